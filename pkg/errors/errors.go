package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors by code so cloned messages still compare equal.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e != nil && t != nil && e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrInactiveAccount    = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
)

// Outpass lifecycle errors. A compare-and-swap loss reports the same
// InvalidState as a genuine precondition failure; callers cannot tell the
// two apart and retrying is pointless either way.
var (
	ErrInvalidState        = New("INVALID_STATE", http.StatusConflict, "operation not allowed in current status")
	ErrInvalidActor        = New("INVALID_ACTOR", http.StatusForbidden, "actor does not hold the required role")
	ErrInvalidInterval     = New("INVALID_INTERVAL", http.StatusBadRequest, "invalid outpass interval")
	ErrConflictingInterval = New("CONFLICTING_INTERVAL", http.StatusConflict, "an active outpass already covers this interval")
	ErrAlreadyProcessed    = New("ALREADY_PROCESSED", http.StatusConflict, "operation already recorded")
	ErrInvalidSignature    = New("INVALID_SIGNATURE", http.StatusUnauthorized, "invalid pass token")
	ErrTokenExpired        = New("TOKEN_EXPIRED", http.StatusUnauthorized, "pass token has expired")
	ErrStaleReference      = New("STALE_REFERENCE", http.StatusConflict, "outpass is no longer scannable")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
