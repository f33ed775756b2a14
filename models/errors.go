// ABOUTME: Error taxonomy shared by the store, the HTTP layers and the pipeline controller
// ABOUTME: Sentinel errors plus typed errors matchable with errors.Is and errors.As
package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports that a referenced record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict reports that the store refused a write.
	ErrConflict = errors.New("rejected by store")
)

// ValidationError reports malformed input for one field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// TransportError wraps a connectivity failure reaching the deal store.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport error: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RejectedError is returned when the store answered but refused the write.
// It matches ErrConflict.
type RejectedError struct {
	Status  int
	Message string
}

func (e *RejectedError) Error() string {
	if e.Status == 0 {
		return "rejected by store: " + e.Message
	}
	return fmt.Sprintf("rejected by store (status %d): %s", e.Status, e.Message)
}

func (e *RejectedError) Is(target error) bool { return target == ErrConflict }

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsTransport reports whether err carries a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
