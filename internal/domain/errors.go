package domain

import (
	"errors"
	"fmt"
	"time"
)

// Request errors.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
)

// Pipeline outcomes. A search ends with ErrSearchFailed only after the
// plain-text fallback has also failed.
var (
	ErrSearchFailed = errors.New("search failed")
	ErrSuperseded   = errors.New("superseded by a newer search")
	ErrCancelled    = errors.New("cancelled")
)

// Upstream errors from arXiv and the completion providers.
var (
	ErrRateLimited        = errors.New("rate limited")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrQuerySyntax        = errors.New("query syntax error")
	ErrMissingCredential  = errors.New("missing credential")
)

// ValidationError names the request field that failed validation. It
// matches ErrInvalidInput.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// RateLimitError is returned once retries against a throttling upstream
// are spent. It matches ErrRateLimited.
type RateLimitError struct {
	Source     string
	RetryAfter time.Duration
}

func NewRateLimitError(source string, retryAfter time.Duration) *RateLimitError {
	return &RateLimitError{Source: source, RetryAfter: retryAfter}
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter <= 0 {
		return fmt.Sprintf("rate limited by %s", e.Source)
	}
	return fmt.Sprintf("rate limited by %s: retry after %s", e.Source, e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// ExternalAPIError carries a non-success upstream response. StatusCode is
// zero when no response arrived.
type ExternalAPIError struct {
	Source     string
	StatusCode int
	Message    string
	Cause      error
}

func NewExternalAPIError(source string, statusCode int, message string, cause error) *ExternalAPIError {
	return &ExternalAPIError{Source: source, StatusCode: statusCode, Message: message, Cause: cause}
}

func (e *ExternalAPIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s API error: %s", e.Source, e.Message)
	}
	return fmt.Sprintf("%s API error (status %d): %s", e.Source, e.StatusCode, e.Message)
}

func (e *ExternalAPIError) Unwrap() error { return e.Cause }

// QuerySyntaxError is an error document returned in place of a result feed
// for a query arXiv could not parse. It matches ErrQuerySyntax.
type QuerySyntaxError struct {
	Source  string
	Query   string
	Message string
}

func NewQuerySyntaxError(source, query, message string) *QuerySyntaxError {
	return &QuerySyntaxError{Source: source, Query: query, Message: message}
}

func (e *QuerySyntaxError) Error() string {
	return fmt.Sprintf("%s could not parse query %q: %s", e.Source, e.Query, e.Message)
}

func (e *QuerySyntaxError) Unwrap() error { return ErrQuerySyntax }
