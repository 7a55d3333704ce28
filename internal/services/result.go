// Package services contains the typed per-entity façades over the API
// client. Every method normalizes its outcome into a Result: callers
// branch on Success and never see a raw error or exception from the
// transport layer.
package services

import (
	"github.com/proplink/crm-client/internal/apiclient"
)

// Result is the uniform outcome of every service call.
type Result[T any] struct {
	Success bool
	Data    T
	// Message carries an informational note on success, or the
	// user-facing failure description on error.
	Message string
	// Err holds the structured error for callers that branch on Kind.
	// Nil when Success is true.
	Err *apiclient.APIError
}

// Ok builds a successful result.
func Ok[T any](data T) Result[T] {
	return Result[T]{Success: true, Data: data}
}

// Fail converts any error into a failed result, using the structured
// message when one is present and the per-operation fallback otherwise.
func Fail[T any](err error, fallback string) Result[T] {
	apiErr := apiclient.AsAPIError(err)
	msg := apiErr.Message
	if msg == "" {
		msg = fallback
	}
	return Result[T]{Success: false, Message: msg, Err: apiErr}
}

// FailLocal builds a failed result for input rejected before dispatch.
func FailLocal[T any](message string) Result[T] {
	return Result[T]{
		Success: false,
		Message: message,
		Err:     &apiclient.APIError{Kind: apiclient.KindBadInput, Message: message},
	}
}

// countResponse is the wire shape of the counter endpoints.
type countResponse struct {
	Count int `json:"count"`
}
