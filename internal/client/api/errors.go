package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is the single failure type every server call is normalized into.
// Status 0 with NetworkError set means no response reached the client.
type Error struct {
	Status       int
	Message      string
	Body         []byte
	NetworkError bool
}

func (e *Error) Error() string {
	if e.NetworkError {
		return fmt.Sprintf("api: network error: %s", e.Message)
	}
	return fmt.Sprintf("api: %d: %s", e.Status, e.Message)
}

// IsNetworkError reports whether err represents a failure to reach the
// server at all. Such errors are always retryable and must never clear the
// session.
func IsNetworkError(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.NetworkError
}

// IsUnauthorized reports whether the server rejected the bearer token.
// Callers that see this must force a sign-out.
func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// UserMessage translates err into copy fit for the user. Validation errors
// (4xx with a server-provided message) pass through verbatim.
func UserMessage(err error) string {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return "An unexpected error occurred. Please try again."
	}
	switch {
	case apiErr.NetworkError:
		return "Unable to connect to the server. Please check your internet connection and try again."
	case apiErr.Status == http.StatusUnauthorized:
		return "Your session has expired. Please sign in again."
	case apiErr.Status == http.StatusForbidden:
		return "You don't have permission to perform this action."
	case apiErr.Status == http.StatusNotFound:
		return "The requested resource was not found."
	case apiErr.Status >= 500:
		return "A server error occurred. Please try again later."
	default:
		return apiErr.Message
	}
}
