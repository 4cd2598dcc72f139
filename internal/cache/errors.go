package cache

import (
	"errors"
	"fmt"
)

// Severity tells callers how prominently to surface an Error.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

// Error is a failure caused by the state of the cache rather than by I/O.
type Error struct {
	Message  string
	Severity Severity
}

func (e *Error) Error() string { return e.Message }

// IsWarning reports whether the error should be shown as a warning.
func (e *Error) IsWarning() bool { return e.Severity == SeverityWarning }

// ErrNoProject is returned by operations that need an open project.
var ErrNoProject = &Error{Message: "no DocFX project is currently open", Severity: SeverityWarning}

// ErrTopicNotFound is returned by Topic for unknown UIDs.
var ErrTopicNotFound = errors.New("topic not found")

// IsCacheError reports whether err is (or wraps) a cache-state Error.
func IsCacheError(err error) bool {
	var cerr *Error
	return errors.As(err, &cerr)
}

// State is the lifecycle state of a Cache.
type State int

const (
	StateNoProject State = iota
	StateUnpopulated
	StatePopulating
	StatePopulated
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateNoProject:
		return "no-project"
	case StateUnpopulated:
		return "unpopulated"
	case StatePopulating:
		return "populating"
	case StatePopulated:
		return "populated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}
