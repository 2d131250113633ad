package model

import (
	"fmt"

	errors "github.com/Laisky/errors/v2"
)

// ErrorCode identifies a machine-stable sync error code.
type ErrorCode string

const (
	ErrCodeAuthFailed       ErrorCode = "AUTH_FAILED"
	ErrCodeRateLimited      ErrorCode = "RATE_LIMITED"
	ErrCodeValidation       ErrorCode = "VALIDATION"
	ErrCodeNotFound         ErrorCode = "NOT_FOUND"
	ErrCodeConflict         ErrorCode = "CONFLICT"
	ErrCodeStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
)

// Error captures a typed sync error. RetryAfterSeconds is only set for
// rate-limit rejections.
type Error struct {
	Code              ErrorCode
	Message           string
	RetryAfterSeconds int
	// Cause is the underlying backend error, when one exists.
	Cause error
}

// Unwrap exposes the underlying backend error to errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Error returns the error message.
func (e *Error) Error() string {
	if e == nil {
		return "sync error: <nil>"
	}
	if e.Message == "" {
		return fmt.Sprintf("sync error: %s", e.Code)
	}
	return e.Message
}

// NewError constructs a typed sync error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewRateLimited constructs a rate-limit error with a retry-after hint.
func NewRateLimited(retryAfterSeconds int) *Error {
	return &Error{
		Code:              ErrCodeRateLimited,
		Message:           fmt.Sprintf("Rate limit exceeded. Retry after %d seconds", retryAfterSeconds),
		RetryAfterSeconds: retryAfterSeconds,
	}
}

// AsError extracts a typed sync error from the error chain.
func AsError(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed, true
	}
	return nil, false
}

// IsCode reports whether the error chain contains the given code.
func IsCode(err error, code ErrorCode) bool {
	if typed, ok := AsError(err); ok {
		return typed.Code == code
	}
	return false
}
