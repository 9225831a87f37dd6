package contracts

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks requests rejected before any computation
	ErrInvalidInput = errors.New("invalid input")
	// ErrDataUnavailable marks missing price history or quotes
	ErrDataUnavailable = errors.New("data unavailable")
	// ErrUnknownStrategy marks an unregistered strategy or promoter name
	ErrUnknownStrategy = errors.New("unknown strategy")
)

// ValidationError describes one invalid field
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is(err, ErrInvalidInput) match
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// Invalid builds a ValidationError
func Invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
