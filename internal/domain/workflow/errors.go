package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned when the record is not in the state a transition starts from
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrInvalidState is returned when a state is not valid
	ErrInvalidState = errors.New("invalid state")

	// ErrUnauthorized is returned when the actor's role does not permit the operation
	ErrUnauthorized = errors.New("unauthorized")

	// ErrValidation is returned when a required payload field is missing or invalid
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a referenced record does not exist
	ErrNotFound = errors.New("record not found")

	// ErrStoreUnavailable is returned when the document or blob store fails
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrMalformedRecord is returned when a stored record fails decoding at the store boundary
	ErrMalformedRecord = errors.New("malformed record")

	// ErrConflict is returned when a unique value is already taken
	ErrConflict = errors.New("conflict")
)

// ValidationError names the payload field that failed validation
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is lets errors.Is(err, ErrValidation) match any ValidationError
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError creates a ValidationError for a field
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// StateError reports a status value outside a kind's vocabulary
type StateError struct {
	Kind  Kind
	Value string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("invalid %s status %q", e.Kind, e.Value)
}

// Is lets errors.Is(err, ErrInvalidState) match any StateError
func (e *StateError) Is(target error) bool {
	return target == ErrInvalidState
}
