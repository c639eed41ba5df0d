package domain

import (
	"errors"
	"fmt"
)

// ErrorKind is a stable identifier for an error surfaced to API callers.
type ErrorKind string

// The closed set of error kinds the service reports.
const (
	ErrInvalidDomain     ErrorKind = "invalid_domain"
	ErrInvalidServer     ErrorKind = "invalid_server"
	ErrServerExists      ErrorKind = "server_exists"
	ErrDiscoveryFailed   ErrorKind = "discovery_failed"
	ErrDatabase          ErrorKind = "database_error"
	ErrPool              ErrorKind = "pool_error"
	ErrRateLimitExceeded ErrorKind = "rate_limit_exceeded"
)

// Error is a tagged error carried across component boundaries. Kind is the
// stable identifier; Message is safe to show to callers; the wrapped cause is
// for operator logs only.
type Error struct {
	Kind    ErrorKind
	Message string
	cause   error
}

// NewError creates a tagged error without a cause.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError creates a tagged error wrapping a cause.
func WrapError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.cause
}

// KindOf extracts the ErrorKind from err, or ErrDatabase if err is not a
// tagged error (repository errors are the only untagged ones that escape).
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrDatabase
}
