package model

import "errors"

// Common errors used across the application
var (
	// Account errors
	ErrAccountNotFound = errors.New("account not found")
	ErrUsernameTaken   = errors.New("username already registered")
	ErrEmailTaken      = errors.New("email already registered")

	// Tenancy errors
	ErrForbidden = errors.New("forbidden")

	// Kingdom errors
	ErrKingdomNotFound = errors.New("kingdom not found")
	ErrCityNotFound    = errors.New("city not found")
	ErrRecordNotFound  = errors.New("registry record not found")

	// ErrValidation is wrapped by every input validation failure
	ErrValidation = errors.New("validation error")

	// ErrConflict means an optimistic update lost too many races in a row
	ErrConflict = errors.New("concurrent modification, retry later")

	// ErrStoreUnavailable wraps connectivity failures of the backing store
	ErrStoreUnavailable = errors.New("store unavailable")
)

// ValidationError names the offending field of a rejected input
type ValidationError struct {
	Field   string
	Message string
}

// Error implements error
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Unwrap lets errors.Is match ErrValidation
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError creates a ValidationError for the given field
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
