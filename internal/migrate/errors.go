package migrate

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes reconciliation failures.
type ErrorCode string

const (
	// CodeConfig indicates a malformed declared schema set.
	CodeConfig ErrorCode = "CONFIG_INVALID"

	// CodeDuplicateClass indicates the same className declared twice.
	CodeDuplicateClass ErrorCode = "DUPLICATE_CLASS"

	// CodeStore indicates a backend call failed during a pass.
	CodeStore ErrorCode = "STORE_FAILURE"

	// CodeTimeout indicates bootstrap and enumeration did not finish within
	// the startup window.
	CodeTimeout ErrorCode = "STARTUP_TIMEOUT"

	// CodeRetriesExhausted indicates every retry of a failing pass failed.
	CodeRetriesExhausted ErrorCode = "RETRIES_EXHAUSTED"
)

// Error is returned by Run and Plan.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// ClassName identifies the affected class, when there is one.
	ClassName string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.ClassName != "" {
		msg += fmt.Sprintf(" (class=%s)", e.ClassName)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsConfigError reports whether err is a configuration error: a malformed
// declared set or a duplicate className. Configuration errors are never
// retried.
func IsConfigError(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == CodeConfig || e.Code == CodeDuplicateClass
	}
	return false
}

// IsTimeout reports whether err is a startup timeout.
func IsTimeout(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == CodeTimeout
	}
	return false
}

// IsRetriesExhausted reports whether err ended a run after the last retry.
func IsRetriesExhausted(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == CodeRetriesExhausted
	}
	return false
}
