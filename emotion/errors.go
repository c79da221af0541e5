package emotion

import (
	"errors"
	"fmt"
	"time"
)

// Error kinds surfaced by the bridge. Match with errors.Is.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrProcessSpawn = errors.New("classifier process could not be started")
	ErrInference    = errors.New("inference failed")
	ErrTimeout      = errors.New("classifier timed out")
	ErrPersistence  = errors.New("prediction could not be saved")
)

// Invocation is the raw record of one classifier run. It is only kept long
// enough to build a response or an error.
type Invocation struct {
	Text     string
	ExitCode int
	Stdout   string
	Stderr   string
	Combined string
	Duration time.Duration
}

// InvocationError carries the kind of failure plus the raw process output
// for diagnostics. errors.Is matches both Kind and the wrapped cause.
type InvocationError struct {
	Kind       error
	Invocation *Invocation
	Err        error
}

func (e *InvocationError) Error() string {
	msg := e.Kind.Error()
	if e.Invocation != nil && e.Invocation.ExitCode > 0 {
		msg = fmt.Sprintf("%s (exit status %d)", msg, e.Invocation.ExitCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InvocationError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Stdout returns the captured standard output, if any.
func (e *InvocationError) Stdout() string {
	if e.Invocation == nil {
		return ""
	}
	return e.Invocation.Stdout
}

// Stderr returns the captured standard error, if any.
func (e *InvocationError) Stderr() string {
	if e.Invocation == nil {
		return ""
	}
	return e.Invocation.Stderr
}

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
