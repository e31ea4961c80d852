package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/lamim/assessment-reports/internal/assessment"
)

// ErrMissingID is returned when a report is requested without an id
var ErrMissingID = errors.New("missing report ID")

// ErrDecode wraps failures to decode a response body
var ErrDecode = errors.New("decode response")

// StatusError is a non-2xx answer from the report API
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	text := e.Status
	if text == "" {
		text = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("API Error: %d — %s", e.StatusCode, text)
}

// NoResponseError means the request never produced a response
type NoResponseError struct {
	Err error
}

func (e *NoResponseError) Error() string {
	return "API Error: No response received from server."
}

// Unwrap returns the transport error
func (e *NoResponseError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is an upstream 404
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// ErrorCategory classifies fetch and render failures
type ErrorCategory int

const (
	// ErrUnknown represents an unknown error category
	ErrUnknown ErrorCategory = iota
	// ErrTimeout represents a timeout error
	ErrTimeout
	// ErrRateLimit represents a rate limit error
	ErrRateLimit
	// ErrAuth represents an authentication error
	ErrAuth
	// ErrServer5xx represents a server 5xx error
	ErrServer5xx
	// ErrClient4xx represents a client 4xx error
	ErrClient4xx
	// ErrNetwork represents a network error
	ErrNetwork
	// ErrParse represents a parse error
	ErrParse
	// ErrContextCanceled represents a context canceled error
	ErrContextCanceled
	// ErrValidation represents a validation error
	ErrValidation
	// ErrNotFound represents a not found error
	ErrNotFound
)

// String returns the string representation of an error category
func (e ErrorCategory) String() string {
	switch e {
	case ErrTimeout:
		return "timeout"
	case ErrRateLimit:
		return "rate_limit"
	case ErrAuth:
		return "authentication"
	case ErrServer5xx:
		return "server_error"
	case ErrClient4xx:
		return "client_error"
	case ErrNetwork:
		return "network"
	case ErrParse:
		return "parse"
	case ErrContextCanceled:
		return "canceled"
	case ErrValidation:
		return "validation"
	case ErrNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// CategorizeError returns the category of err and a short normalized message.
// Typed errors are checked first; anything else falls back to matching the
// message text.
func CategorizeError(err error) (ErrorCategory, string) {
	if err == nil {
		return ErrUnknown, ""
	}

	var se *StatusError
	if errors.As(err, &se) {
		return categorizeStatus(se.StatusCode)
	}

	var ve *assessment.ValidationError
	switch {
	case errors.Is(err, ErrMissingID), errors.As(err, &ve):
		return ErrValidation, "Validation error"
	case errors.Is(err, ErrDecode):
		return ErrParse, "Parse error"
	case errors.Is(err, context.DeadlineExceeded):
		return ErrTimeout, "Request timed out"
	case errors.Is(err, context.Canceled):
		return ErrContextCanceled, "Request was canceled"
	}

	var nre *NoResponseError
	if errors.As(err, &nre) {
		if contains(nre.Err.Error(), "timeout") {
			return ErrTimeout, "Request timed out"
		}
		return ErrNetwork, "Network error"
	}

	errStr := err.Error()
	switch {
	case contains(errStr, "timeout") || contains(errStr, "deadline exceeded"):
		return ErrTimeout, "Request timed out"
	case contains(errStr, "rate limit") || contains(errStr, "too many requests"):
		return ErrRateLimit, "Rate limit exceeded"
	case contains(errStr, "unauthorized") || contains(errStr, "forbidden"):
		return ErrAuth, "Authentication failed"
	case contains(errStr, "not found"):
		return ErrNotFound, "Resource not found"
	case contains(errStr, "connection refused") || contains(errStr, "connection reset") ||
		contains(errStr, "no such host") || contains(errStr, "dial tcp"):
		return ErrNetwork, "Network error"
	case contains(errStr, "unmarshal") || contains(errStr, "invalid character"):
		return ErrParse, "Parse error"
	case contains(errStr, "invalid") || contains(errStr, "missing"):
		return ErrValidation, "Validation error"
	}

	return ErrUnknown, errStr
}

func categorizeStatus(code int) (ErrorCategory, string) {
	switch {
	case code == http.StatusTooManyRequests:
		return ErrRateLimit, "Rate limit exceeded"
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return ErrAuth, "Authentication failed"
	case code == http.StatusNotFound:
		return ErrNotFound, "Resource not found"
	case code >= 500:
		return ErrServer5xx, "Server error"
	case code >= 400:
		return ErrClient4xx, "Client error"
	default:
		return ErrUnknown, fmt.Sprintf("unexpected status %d", code)
	}
}

func contains(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
