package llm

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrEmptyCompletion is returned when a provider answers without any text.
var ErrEmptyCompletion = errors.New("empty completion")

const networkErrorType = "network_error"

// APIError is a failed provider call. StatusCode 0 means the request never
// got a response.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
	Type       string
	Code       string
}

func (e *APIError) Error() string {
	var b strings.Builder
	b.WriteString(e.Provider)
	if e.StatusCode == 0 {
		b.WriteString(": request failed")
	} else {
		fmt.Fprintf(&b, ": HTTP %d", e.StatusCode)
	}
	if e.Type != "" && e.Type != networkErrorType {
		fmt.Fprintf(&b, " [%s]", e.Type)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// IsTransient is true for throttling, server faults and transport failures.
func (e *APIError) IsTransient() bool {
	switch {
	case e.StatusCode == 0, e.StatusCode == http.StatusTooManyRequests:
		return true
	default:
		return e.StatusCode >= http.StatusInternalServerError
	}
}

func isTransientError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsTransient()
}

func networkError(provider string, err error) *APIError {
	return &APIError{Provider: provider, Message: err.Error(), Type: networkErrorType}
}
