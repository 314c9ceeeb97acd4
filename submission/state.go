package submission

import "fmt"

// State is the presentation state of a submission.
type State int

const (
	Input State = iota
	Submitting
	LongWait
	Success
	Failure
)

func (s State) String() string {
	switch s {
	case Input:
		return "input"
	case Submitting:
		return "submitting"
	case LongWait:
		return "long-wait"
	case Success:
		return "success"
	case Failure:
		return "failure"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Pending reports whether a request is outstanding.
func (s State) Pending() bool {
	return s == Submitting || s == LongWait
}

// Done reports whether the submission resolved.
func (s State) Done() bool {
	return s == Success || s == Failure
}
