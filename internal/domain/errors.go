package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation failed")
	ErrTurnConflict    = errors.New("turn conflict")
	ErrProviderFailure = errors.New("provider failure")
	ErrStorage         = errors.New("storage failure")
)

// StatusError carries an HTTP-mappable status alongside a user-facing message.
// Provider errors are normalized into this shape so the HTTP layer can forward
// the upstream status when one was parseable.
type StatusError struct {
	Message    string
	StatusCode int
}

func (e *StatusError) Error() string {
	return e.Message
}

// NewStatusError builds a StatusError, defaulting the status to 500.
func NewStatusError(message string, statusCode int) *StatusError {
	if statusCode == 0 {
		statusCode = 500
	}
	return &StatusError{Message: message, StatusCode: statusCode}
}

// ValidationError wraps ErrValidation with a field-specific message.
func ValidationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
