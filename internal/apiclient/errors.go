// Package apiclient is the single choke point for every network call to
// the CRM backend. It owns token attachment, client-side rate limiting,
// retry with exponential backoff, and 401 classification so the entity
// services above it stay declarative.
package apiclient

import (
	"errors"
	"fmt"
)

// Kind classifies an APIError. Consumers switch on Kind instead of probing
// status codes or message text.
type Kind string

const (
	// KindRateLimited: refused by the client-side limiter, or a server 429.
	KindRateLimited Kind = "rate_limited"
	// KindNetwork: no response was received at all.
	KindNetwork Kind = "network"
	// KindAuth: the server rejected the credentials or token (401/403).
	KindAuth Kind = "auth"
	// KindSessionExpired: a 401 whose token is locally known to be expired;
	// the session has been cleared.
	KindSessionExpired Kind = "session_expired"
	// KindValidation: a 400 passed through verbatim for field-level UI.
	KindValidation Kind = "validation"
	// KindServer: any other HTTP failure (404, 409, 5xx, ...).
	KindServer Kind = "server"
	// KindBadInput: rejected locally before any network call.
	KindBadInput Kind = "bad_input"
)

// APIError is the structured error built once at the transport boundary.
type APIError struct {
	Kind       Kind
	Message    string
	StatusCode int
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s (%d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// IsKind reports whether err is an APIError of the given kind.
func IsKind(err error, kind Kind) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Kind == kind
}

// AsAPIError extracts the APIError from err, or wraps err as a network
// error so callers above the boundary never see a raw transport error.
func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return &APIError{Kind: KindNetwork, Message: connectivityMessage}
}

// User-facing messages for failures that carry no usable server message.
const (
	connectivityMessage  = "Unable to reach the server. Please check your connection and try again."
	rateLimitedMessage   = "Rate limit exceeded"
	sessionExpired       = "Your session has expired. Please log in again."
	reloginAdvisory      = "Authentication failed. Please re-login."
	invalidCredentials   = "Invalid email or password."
	genericServerFailure = "The server could not complete the request."
)
