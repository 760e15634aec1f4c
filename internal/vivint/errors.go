package vivint

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the client.
var (
	// ErrMfaRequired is returned when the identity service gates the login
	// behind a multi-factor challenge. The client stays in the MFA-pending
	// state until VerifyMfa succeeds.
	ErrMfaRequired = errors.New("multi-factor authentication required")

	// ErrNotAuthenticated is returned when an operation needs a session and
	// none is held.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrNotSupported is returned for an action a device variant lacks.
	ErrNotSupported = errors.New("operation not supported by this device")
)

// AuthError is a 4xx failure from the identity host, or a rejected grant.
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upstream auth error (%d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("upstream auth error: %s", e.Message)
}

// APIError is an explicit 400/401/403 failure from the API host.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("upstream api error (%d): %s", e.StatusCode, e.Message)
}

// TransportError is a network failure or an unexpected upstream status.
type TransportError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upstream transport error: %v", e.Err)
	}
	return fmt.Sprintf("upstream transport error (%d): %s", e.StatusCode, e.Message)
}

func (e *TransportError) Unwrap() error { return e.Err }
