// Package errors provides standardized domain errors that express business intent
// rather than infrastructure details. Use cases return errors wrapping one of the
// kinds below and the HTTP layer maps each kind to a status code.
package errors

import (
	"errors"
	"fmt"
)

// Standard error kinds shared by every domain module.
var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a conflict with existing data (e.g., duplicate key).
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput indicates the input data is invalid or fails validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates the presented credential or secret was rejected.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the authenticated principal doesn't have permission.
	ErrForbidden = errors.New("forbidden")

	// ErrUnavailable indicates an infrastructure failure (storage unreadable or
	// unwritable). Callers may retry the operation.
	ErrUnavailable = errors.New("temporarily unavailable")

	// ErrCorrupted indicates stored data cannot be trusted: truncated objects,
	// malformed layouts or failed integrity checks. Retrying does not help.
	ErrCorrupted = errors.New("corrupted")

	// ErrQuotaExceeded indicates that admitting the request would exceed the
	// principal's storage budget.
	ErrQuotaExceeded = errors.New("quota exceeded")
)

// New creates a new error with the given message.
// This is a convenience wrapper around errors.New for consistency.
func New(message string) error {
	return errors.New(message)
}

// Wrap wraps an error with additional context while preserving the error chain.
// Use this to add context at each layer without losing the original error type.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf is like Wrap but formats the message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's tree matches target.
// This is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
// This is a convenience wrapper around errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Join returns an error that wraps the given errors, discarding nils.
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// IsRetryable reports whether err is an infrastructure failure the caller may retry.
// Corruption and authorization failures are never retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrUnavailable) && !errors.Is(err, ErrCorrupted)
}
