package utils

import "fmt"

// Operation names attached to AppError values raised by the analyzer's
// outbound clients.
const (
	OpModelComplete = "model.complete"
	OpModelStream   = "model.stream"
	OpEnrichSearch  = "enrich.search"
)

// AppError tags a failure with the outbound operation and a human-facing
// message while keeping the underlying error unwrappable.
type AppError struct {
	Op  string
	Msg string
	Err error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(op, msg string, err error) error {
	return &AppError{Op: op, Msg: msg, Err: err}
}
