package connect

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes as constants
const (
	ErrorCodeNotConfigured = "not_configured"
	ErrorCodeBadRequest    = "bad_request"
	ErrorCodeUnauthorized  = "unauthorized"
	ErrorCodeNotFound      = "not_found"
	ErrorCodeIntegrity     = "integrity_error"
	ErrorCodeProvider      = "provider_error"
	ErrorCodeRateLimited   = "rate_limit_exceeded"
	ErrorCodeInternal      = "internal_error"
)

// ConnectError is a typed error carried across the manager's public surface.
// The Code is stable for programmatic handling; Status maps it onto HTTP for
// hosts that expose the manager over a web surface.
type ConnectError struct {
	Code        string // stable machine-readable code
	Description string // human-readable error description
	Status      int    // HTTP status code
}

// Error implements the error interface
func (e *ConnectError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// NewConnectError creates a new typed error
func NewConnectError(code, description string, status int) *ConnectError {
	return &ConnectError{
		Code:        code,
		Description: description,
		Status:      status,
	}
}

// Common errors as reusable constructors
var (
	// ErrNotConfigured indicates the manager cannot operate because secret
	// material is missing or invalid. Fail closed, never crash the host.
	ErrNotConfigured = func(desc string) *ConnectError {
		return NewConnectError(ErrorCodeNotConfigured, desc, http.StatusServiceUnavailable)
	}

	// ErrBadRequest indicates a malformed callback or a provider-reported denial
	ErrBadRequest = func(desc string) *ConnectError {
		return NewConnectError(ErrorCodeBadRequest, desc, http.StatusBadRequest)
	}

	// ErrUnauthorized indicates an invalid, expired, or already-consumed state,
	// or a refresh token past its own TTL
	ErrUnauthorized = func(desc string) *ConnectError {
		return NewConnectError(ErrorCodeUnauthorized, desc, http.StatusUnauthorized)
	}

	// ErrNotFound indicates no matching connection exists
	ErrNotFound = func(desc string) *ConnectError {
		return NewConnectError(ErrorCodeNotFound, desc, http.StatusNotFound)
	}

	// ErrIntegrity indicates a decryption authentication failure. Distinct
	// from NotFound: the row exists but its ciphertext is tampered or was
	// written under a different master key.
	ErrIntegrity = func(desc string) *ConnectError {
		return NewConnectError(ErrorCodeIntegrity, desc, http.StatusInternalServerError)
	}

	// ErrProvider indicates the remote provider call failed. Recoverable by
	// caller-directed retry, never auto-retried here.
	ErrProvider = func(desc string) *ConnectError {
		return NewConnectError(ErrorCodeProvider, desc, http.StatusBadGateway)
	}

	// ErrRateLimited indicates the per-tenant limit on auth URL issuance was hit
	ErrRateLimited = func(desc string) *ConnectError {
		return NewConnectError(ErrorCodeRateLimited, desc, http.StatusTooManyRequests)
	}

	// ErrInternal indicates an unexpected internal failure
	ErrInternal = func(desc string) *ConnectError {
		return NewConnectError(ErrorCodeInternal, desc, http.StatusInternalServerError)
	}
)

// CodeOf extracts the error code from err, or ErrorCodeInternal when err is
// not a ConnectError.
func CodeOf(err error) string {
	var ce *ConnectError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ErrorCodeInternal
}

// IsCode reports whether err is a ConnectError with the given code.
func IsCode(err error, code string) bool {
	var ce *ConnectError
	return errors.As(err, &ce) && ce.Code == code
}
