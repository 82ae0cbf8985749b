// Package errors defines the unified error taxonomy for router operations.
// Every provider-specific failure is mapped to one of these kinds before it
// reaches the fallback executor.
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
)

// Error kinds. These are stable identifiers, not exception types: routing
// decisions and metrics labels key off them.
const (
	KindValidation        = "validation_error"
	KindTimeout           = "provider_timeout"
	KindRateLimited       = "provider_rate_limited"
	KindAuthFailure       = "provider_auth_failure"
	KindMalformedResponse = "provider_malformed_response"
	KindUnavailable       = "provider_unavailable"
	KindUnknown           = "unknown_error"
	KindAllFailed         = "all_providers_failed"
	KindCacheCorruption   = "cache_corruption"
)

// RouteError represents a standardized error from a provider or from the
// router itself. It carries everything needed for error handling, logging,
// and the client response.
type RouteError struct {
	Kind       string `json:"kind"`
	Provider   string `json:"provider,omitempty"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code,omitempty"`
	Retryable  bool   `json:"-"`
}

// Error implements the error interface.
func (e *RouteError) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("[%s] %s (provider=%s, code=%d)", e.Kind, e.Message, e.Provider, e.StatusCode)
}

// HTTPStatusCode returns the HTTP status to report for this error.
func (e *RouteError) HTTPStatusCode() int {
	if e.StatusCode > 0 {
		return e.StatusCode
	}
	return http.StatusInternalServerError
}

// NewValidationError creates a validation error. Validation errors are fatal
// to the call and are raised before any provider is contacted.
func NewValidationError(message string) *RouteError {
	return &RouteError{
		Kind:       KindValidation,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Retryable:  false,
	}
}

// NewTimeoutError creates a provider timeout error (408).
func NewTimeoutError(provider, message string) *RouteError {
	return &RouteError{
		Kind:       KindTimeout,
		Provider:   provider,
		Message:    message,
		StatusCode: http.StatusRequestTimeout,
		Retryable:  true,
	}
}

// NewRateLimitError creates a rate limit error (429).
func NewRateLimitError(provider, message string) *RouteError {
	return &RouteError{
		Kind:       KindRateLimited,
		Provider:   provider,
		Message:    message,
		StatusCode: http.StatusTooManyRequests,
		Retryable:  true,
	}
}

// NewAuthError creates an authentication failure error (401).
func NewAuthError(provider, message string) *RouteError {
	return &RouteError{
		Kind:       KindAuthFailure,
		Provider:   provider,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
		Retryable:  false,
	}
}

// NewMalformedResponseError signals that the backend returned a body the
// adapter could not parse.
func NewMalformedResponseError(provider, message string) *RouteError {
	return &RouteError{
		Kind:       KindMalformedResponse,
		Provider:   provider,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Retryable:  true,
	}
}

// NewUnavailableError creates a service unavailable error (503).
func NewUnavailableError(provider, message string) *RouteError {
	return &RouteError{
		Kind:       KindUnavailable,
		Provider:   provider,
		Message:    message,
		StatusCode: http.StatusServiceUnavailable,
		Retryable:  true,
	}
}

// NewUnknownError wraps an unclassified failure.
func NewUnknownError(provider, message string) *RouteError {
	return &RouteError{
		Kind:       KindUnknown,
		Provider:   provider,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Retryable:  true,
	}
}

// NewCacheCorruptionError signals an internal cache invariant violation.
// It is logged and absorbed by the executor, never surfaced to callers.
func NewCacheCorruptionError(message string) *RouteError {
	return &RouteError{
		Kind:      KindCacheCorruption,
		Message:   message,
		Retryable: false,
	}
}

// Attempt captures why a single provider failed during one fallback chain.
type Attempt struct {
	Provider string `json:"provider"`
	Kind     string `json:"kind"`
	Message  string `json:"message"`
}

// AllFailedError is the terminal aggregate returned when the fallback chain
// is exhausted. Attempts are in the order the providers were tried.
type AllFailedError struct {
	Attempts []Attempt
}

// Error implements the error interface.
func (e *AllFailedError) Error() string {
	var sb strings.Builder
	sb.WriteString("all providers failed")
	for _, a := range e.Attempts {
		fmt.Fprintf(&sb, "; %s: [%s] %s", a.Provider, a.Kind, a.Message)
	}
	return sb.String()
}

// Kind returns the aggregate error kind.
func (e *AllFailedError) Kind() string { return KindAllFailed }

// HTTPStatusCode returns the HTTP status to report for chain exhaustion.
func (e *AllFailedError) HTTPStatusCode() int { return http.StatusBadGateway }

// FromTransport classifies a transport-level error from an HTTP round trip.
// Context cancellation and deadline expiry map to the timeout kind so a
// slow backend and a dead one are ranked the same way.
func FromTransport(provider string, err error) *RouteError {
	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		return NewTimeoutError(provider, err.Error())
	case stderrors.Is(err, context.Canceled):
		return NewTimeoutError(provider, "request canceled: "+err.Error())
	default:
		return NewUnavailableError(provider, err.Error())
	}
}

// KindOf extracts the error kind from any error produced by this module.
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	var re *RouteError
	if stderrors.As(err, &re) {
		return re.Kind
	}
	var af *AllFailedError
	if stderrors.As(err, &af) {
		return KindAllFailed
	}
	return KindUnknown
}
