package client

import (
	"errors"
	"fmt"
)

// HTTPError represents a non-2xx HTTP response from the API.
type HTTPError struct {
	Method     string
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Method == "" {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: HTTP %d: %s", e.Method, e.StatusCode, e.Message)
}

// IsStatus returns true if err (or any wrapped error) is an HTTPError with the given status code.
func IsStatus(err error, code int) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == code
	}
	return false
}

// IsGone reports whether the backend no longer knows the subscription.
func IsGone(err error) bool {
	return IsStatus(err, 404) || IsStatus(err, 410)
}
