package waitlist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/bradenn/hwdemo/schemas"
	"go.uber.org/zap"
)

// Client posts signups to the spreadsheet backed collection endpoint.
type Client struct {
	Endpoint string
	HTTP     *http.Client
	Logger   *zap.Logger

	now func() time.Time
}

func NewClient(endpoint string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		Endpoint: endpoint,
		HTTP:     &http.Client{Timeout: timeout},
		Logger:   logger,
		now:      time.Now,
	}
}

// Submit validates the entry, stamps it and sends it. Only the outcome matters,
// the response body is ignored.
func (c *Client) Submit(ctx context.Context, entry schemas.WaitlistEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	if c.Endpoint == "" {
		return schemas.NewServerError("Waitlist signups are not configured")
	}
	now := c.now
	if now == nil {
		now = time.Now
	}
	entry.Timestamp = now()

	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode waitlist entry: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		c.Logger.Error("error submitting waitlist form", zap.Error(err))
		return schemas.NewNetworkError(err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.Logger.Error("failed to submit waitlist form", zap.Int("status", resp.StatusCode))
		return schemas.NewServerError("Failed to join the waitlist. Please try again.")
	}
	c.Logger.Info("waitlist signup recorded", zap.String("company", entry.Company), zap.String("country", entry.Country))
	return nil
}

// Form tracks the two flags a signup form shows: in flight and done.
type Form struct {
	client *Client

	mu         sync.Mutex
	submitting bool
	submitted  bool
}

func NewForm(c *Client) *Form {
	return &Form{client: c}
}

// Submit sends the entry unless a submission is already in flight or done.
// Submitted is set only on success.
func (f *Form) Submit(ctx context.Context, entry schemas.WaitlistEntry) error {
	f.mu.Lock()
	if f.submitting || f.submitted {
		f.mu.Unlock()
		return nil
	}
	f.submitting = true
	f.mu.Unlock()

	err := f.client.Submit(ctx, entry)

	f.mu.Lock()
	f.submitting = false
	if err == nil {
		f.submitted = true
	}
	f.mu.Unlock()
	return err
}

func (f *Form) Submitting() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitting
}

func (f *Form) Submitted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitted
}
