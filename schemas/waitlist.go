package schemas

import (
	"encoding/json"
	"strings"
	"time"
)

// isoMillis matches what browsers emit for Date.toISOString.
const isoMillis = "2006-01-02T15:04:05.000Z"

type WaitlistEntry struct {
	Name      string    `json:"Name"`
	Email     string    `json:"Email"`
	Company   string    `json:"Company"`
	Country   string    `json:"Country"`
	Timestamp time.Time `json:"-"`
}

// Validate reports the first missing field.
func (w WaitlistEntry) Validate() error {
	for _, f := range []struct{ name, value string }{
		{"name", w.Name},
		{"email", w.Email},
		{"company", w.Company},
		{"country", w.Country},
	} {
		if strings.TrimSpace(f.value) == "" {
			return NewValidationError("Please fill in your " + f.name)
		}
	}
	if !strings.Contains(w.Email, "@") {
		return NewValidationError("Please enter a valid email address")
	}
	return nil
}

func (w WaitlistEntry) MarshalJSON() ([]byte, error) {
	type alias WaitlistEntry
	return json.Marshal(struct {
		alias
		Timestamp string `json:"Timestamp"`
	}{alias(w), w.Timestamp.UTC().Format(isoMillis)})
}
