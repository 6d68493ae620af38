// Package domain defines the core domain models for MeshKV.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a command-level error with a structured error code.
//
// Code is stable and meant for logs and metrics; Message is what the
// client sees after the "ERR " prefix.
type DomainError struct {
	Code    string // Error code (e.g., "KV-KEY-4040")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Authentication Errors (AUTH)
// ============================================================================

var (
	// ErrAuthRequired is returned for any command other than AUTH issued on
	// an unauthenticated session while a password is configured.
	ErrAuthRequired = NewDomainError("KV-AUTH-4010", "authentication required")

	// ErrAuthFailed indicates the supplied password did not match.
	ErrAuthFailed = NewDomainError("KV-AUTH-4011", "invalid password")
)

// ============================================================================
// Keyspace Errors (TYPE, KEY)
// ============================================================================

var (
	// ErrWrongType indicates the key holds a value of another shape.
	ErrWrongType = NewDomainError("KV-TYPE-4000", "operation against a key holding the wrong kind of value")

	// ErrNotFound indicates an operation required an existing key.
	ErrNotFound = NewDomainError("KV-KEY-4040", "no such key")

	// ErrKeyExists indicates the destination of a MOVE already holds the key.
	ErrKeyExists = NewDomainError("KV-KEY-4090", "target key already exists")
)

// ============================================================================
// Argument Errors (ARG)
// ============================================================================

var (
	// ErrSyntax indicates an unrecognized option or option combination.
	ErrSyntax = NewDomainError("KV-ARG-4000", "syntax error")

	// ErrOutOfRange indicates a database index outside 0..databases-1.
	ErrOutOfRange = NewDomainError("KV-ARG-4001", "DB index is out of range")

	// ErrMalformedArgument indicates a non-integer TTL or INCR target.
	ErrMalformedArgument = NewDomainError("KV-ARG-4002", "value is not an integer or out of range")

	// ErrInvalidExpire indicates a non-positive TTL in SET.
	ErrInvalidExpire = NewDomainError("KV-ARG-4003", "invalid expire time")

	// ErrWrongArity indicates the argument count does not fit the command.
	ErrWrongArity = NewDomainError("KV-ARG-4004", "wrong number of arguments")
)

// ============================================================================
// Connection Errors (RATE)
// ============================================================================

var (
	// ErrRateLimited indicates the client IP exceeded its command budget.
	ErrRateLimited = NewDomainError("KV-RATE-4290", "rate limit exceeded")
)

// ============================================================================
// System Errors (SYS)
// ============================================================================

var (
	// ErrInternal indicates an unexpected server-side failure.
	ErrInternal = NewDomainError("KV-SYS-5000", "internal server error")

	// ErrIOFailure indicates the persistence log could not be written or read.
	ErrIOFailure = NewDomainError("KV-SYS-5001", "persistence failure")

	// ErrNotReady indicates startup (AOF replay) has not finished.
	ErrNotReady = NewDomainError("KV-SYS-5030", "server not ready")

	// ErrForbidden indicates the client address is outside the admin allow list.
	ErrForbidden = NewDomainError("KV-ADMIN-4030", "client address not allowed")
)
