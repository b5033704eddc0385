package api

import (
	"errors"
	"fmt"
)

// Typed failures surfaced by the portal client. The session layer resolves
// exactly one ErrUnauthorized per call transparently; everything else
// propagates unchanged to the caller.
var (
	// ErrUnauthorized indicates an expired or invalid session token, either
	// as an HTTP 401 or as a 401 status inside the calls envelope.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidCredentials indicates a login that was accepted by the
	// transport but yielded no session token.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrSaltUnavailable indicates the salt endpoint returned no salt.
	ErrSaltUnavailable = errors.New("salt unavailable")

	// ErrLegacyEnvelope indicates the calls response used the legacy
	// "responses" envelope key. Detected and surfaced rather than silently
	// coalesced, since it may mask a server-side contract change.
	ErrLegacyEnvelope = errors.New("calls response uses legacy responses envelope")

	// ErrMalformedResponse indicates a response body that does not match the
	// expected shape.
	ErrMalformedResponse = errors.New("malformed response")
)

// StatusError carries a non-200 status from the portal, either HTTP-level or
// from one result inside the calls envelope. A 400 typically means a
// malformed request (missing bundleVersion, wrong parameter shape) and is
// not worth retrying as-is.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.Status)
	}
	return fmt.Sprintf("api error: status %d: %s", e.Status, e.Message)
}

// NetworkError wraps a transport failure (timeout, connection refused).
// Recoverable: the caller may retry the whole poll cycle on the next
// scheduled interval. Session state is left unchanged.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
