package services

import (
	"net/http"

	"github.com/bradenn/hwdemo/schemas"
	"github.com/tidwall/gjson"
)

const statusSuccess = "success"

// ParseResponse turns a remote reply into a result or a *schemas.SubmissionError.
//
// A reply is successful only when the HTTP status is 2xx and the body is a JSON
// object whose "status" member is "success". Every other scalar member becomes
// a result field; nested objects are flattened with dotted names.
func ParseResponse(code int, body []byte) (*schemas.SubmissionResult, error) {
	if !gjson.ValidBytes(body) {
		return nil, schemas.NewServerError(httpFallback(code))
	}
	doc := gjson.ParseBytes(body)
	if !doc.IsObject() {
		return nil, schemas.NewServerError(httpFallback(code))
	}

	status := doc.Get("status").String()
	if code < 200 || code > 299 || status != statusSuccess {
		return nil, schemas.NewServerError(errorMessage(doc, code))
	}

	res := schemas.NewSubmissionResult()
	flatten(res, "", doc)
	delete(res.Fields, "status")
	return res, nil
}

func flatten(res *schemas.SubmissionResult, prefix string, v gjson.Result) {
	v.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		if prefix != "" {
			name = prefix + "." + name
		}
		switch {
		case value.IsObject():
			flatten(res, name, value)
		case value.IsArray():
			res.Fields[name] = value.Raw
		case value.Type == gjson.Null:
		default:
			res.Fields[name] = value.String()
		}
		return true
	})
}

func errorMessage(doc gjson.Result, code int) string {
	for _, path := range []string{"message", "error", "detail", "error.message"} {
		if m := doc.Get(path); m.Type == gjson.String && m.String() != "" {
			return m.String()
		}
	}
	return httpFallback(code)
}

func httpFallback(code int) string {
	if code >= 500 || code == 0 {
		return schemas.MsgServerFallback
	}
	if code >= 400 {
		return http.StatusText(code) + ". " + schemas.MsgServerFallback
	}
	return schemas.MsgServerFallback
}
