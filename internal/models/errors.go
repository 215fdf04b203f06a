package models

import (
	"errors"
	"fmt"
)

// Error kinds. Every failure leaving the core wraps exactly one of these so
// the HTTP boundary can map it to a status code in one place.
var (
	ErrInvalidCredential     = errors.New("invalid credential")
	ErrNoSession             = errors.New("no session")
	ErrUnauthorized          = errors.New("not authorized for this tenant")
	ErrValidation            = errors.New("validation failed")
	ErrSlugTaken             = errors.New("tenant id already taken")
	ErrNotFound              = errors.New("tenant not found")
	ErrOwnerHasTenant        = errors.New("owner already has a tenant")
	ErrConflict              = errors.New("tenant was modified by another request")
	ErrRevocationUnavailable = errors.New("session revocation unavailable")
	ErrUnavailable           = errors.New("service temporarily unavailable")
)

// ValidationError carries the offending field so the boundary can render a
// field-level message.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError creates a field-level validation error
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// Unavailable tags an infrastructure failure as transient. Errors that
// already carry a kind are returned untouched.
func Unavailable(err error) error {
	if err == nil || IsKnown(err) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}

// IsKnown reports whether err already belongs to the taxonomy.
func IsKnown(err error) bool {
	for _, kind := range []error{
		ErrInvalidCredential, ErrNoSession, ErrUnauthorized, ErrValidation, ErrSlugTaken,
		ErrNotFound, ErrOwnerHasTenant, ErrConflict, ErrRevocationUnavailable, ErrUnavailable,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
