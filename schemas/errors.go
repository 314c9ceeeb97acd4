package schemas

import "fmt"

type ErrorKind int

const (
	// NetworkFailure means the request could not complete.
	NetworkFailure ErrorKind = iota
	// ServerError covers non-success HTTP statuses and error flagged payloads.
	ServerError
	// ValidationError is raised locally, before any request is sent.
	ValidationError
)

func (k ErrorKind) String() string {
	switch k {
	case NetworkFailure:
		return "network"
	case ServerError:
		return "server"
	case ValidationError:
		return "validation"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Messages used when the remote side gives us nothing better.
const (
	MsgNetworkFallback = "Network error. Please check your connection and try again."
	MsgServerFallback  = "Something went wrong while processing your request. Please try again."
	MsgEmptySpec       = "Please enter a hardware specification"
	MsgNoFile          = "Please select a file to upload"
	MsgNotPython       = "Please select/drop a Python (.py) file"
)

// SubmissionError is the single human readable message that replaces a result
// on failure.
type SubmissionError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *SubmissionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

func NewValidationError(msg string) *SubmissionError {
	return &SubmissionError{Kind: ValidationError, Message: msg}
}

func NewServerError(msg string) *SubmissionError {
	if msg == "" {
		msg = MsgServerFallback
	}
	return &SubmissionError{Kind: ServerError, Message: msg}
}

func NewNetworkError(err error) *SubmissionError {
	return &SubmissionError{Kind: NetworkFailure, Message: MsgNetworkFallback, Err: err}
}
