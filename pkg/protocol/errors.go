package protocol

import "errors"

// ErrContext marks failures where the execution context itself is unusable,
// such as a shop without API credentials. These errors are fatal for the execution.
var ErrContext = errors.New("execution context unavailable")

// ContextError wraps the cause of a context failure.
type ContextError struct {
	Reason string
	Err    error
}

func (e *ContextError) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}

	return e.Reason
}

func (e *ContextError) Unwrap() error {
	return e.Err
}

// Is reports ErrContext for every context failure.
func (e *ContextError) Is(target error) bool {
	return target == ErrContext
}

// NewContextError returns a context failure with the given reason.
func NewContextError(reason string, err error) error {
	return &ContextError{Reason: reason, Err: err}
}
