package qa

import "errors"

// State is the lifecycle position of a Pipeline.
type State int

const (
	// StateUninitialized is a pipeline that has not been built.
	StateUninitialized State = iota
	// StateReady is a pipeline whose document is indexed and can answer.
	StateReady
	// StateFailed is a pipeline whose build failed. It cannot recover; build
	// a new Pipeline instead.
	StateFailed
)

// String returns the lower-case state name used in logs and API responses.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

var (
	// ErrInvalidState is returned when Build or Ask is called in a state that
	// does not allow it.
	ErrInvalidState = errors.New("invalid pipeline state")

	// ErrEmptyQuestion is returned by Ask for a blank question.
	ErrEmptyQuestion = errors.New("question must not be empty")
)
