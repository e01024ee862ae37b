package domain

import "errors"

var (
	// ErrInvalidInput marks structurally invalid requests. Never retried.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is returned by repositories when a record does not exist.
	ErrNotFound = errors.New("not found")
)

// ValidationError describes a single rejected field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}
