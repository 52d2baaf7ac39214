// Package common defines the error taxonomy, shared constants and small
// random helpers used across gatekeeper components. Callers should use
// errors.Is to classify errors.
package common

import (
	"errors"
	"fmt"
)

// Error kinds. Every error that crosses the service boundary unwraps to one
// of these.
var (
	ErrValidation      = errors.New("validation error")
	ErrConflict        = errors.New("conflict")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrUpstream        = errors.New("upstream failure")
	ErrInternal        = errors.New("internal error")
)

// Token errors.
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	ErrTokenPurpose = fmt.Errorf("%w: unexpected purpose", ErrInvalidToken)
)

// Lifecycle errors.
var (
	ErrPendingApproval     = NewError(ErrForbidden, "Your account has not been approved yet. Please wait for approval.")
	ErrPendingConfirmation = NewError(ErrForbidden, "Your account has not been confirmed to login. Please check your email.")
	ErrInvalidCredentials  = NewError(ErrUnauthenticated, "Invalid email or password")
	ErrWeakPassword        = NewError(ErrValidation, "Password must be between 6 and 100 characters")
)

// Error is a classified error with a message that is safe to show to the
// caller.
type Error struct {
	Kind    error
	Message string
}

// NewError returns an Error of the given kind.
func NewError(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Errorf is NewError with fmt.Sprintf formatting.
func Errorf(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// Message returns the caller-facing text of err: the message of the first
// *Error in its chain, or fallback.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return fallback
}
