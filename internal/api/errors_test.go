package api

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/lamim/assessment-reports/internal/assessment"
)

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCategory
	}{
		{"nil", nil, ErrUnknown},
		{"404", &StatusError{StatusCode: 404}, ErrNotFound},
		{"429", fmt.Errorf("wrapped: %w", &StatusError{StatusCode: 429}), ErrRateLimit},
		{"401", &StatusError{StatusCode: 401}, ErrAuth},
		{"503", &StatusError{StatusCode: 503}, ErrServer5xx},
		{"422", &StatusError{StatusCode: 422}, ErrClient4xx},
		{"missing id", ErrMissingID, ErrValidation},
		{"validation", &assessment.ValidationError{Entity: "x", Errors: []error{errors.New("bad")}}, ErrValidation},
		{"decode", fmt.Errorf("%w: unexpected EOF", ErrDecode), ErrParse},
		{"deadline", fmt.Errorf("fetch: %w", context.DeadlineExceeded), ErrTimeout},
		{"canceled", context.Canceled, ErrContextCanceled},
		{"no response", &NoResponseError{Err: errors.New("dial tcp: connection refused")}, ErrNetwork},
		{"no response timeout", &NoResponseError{Err: errors.New("i/o timeout")}, ErrTimeout},
		{"text fallback", errors.New("connection reset by peer"), ErrNetwork},
		{"unknown", errors.New("something odd"), ErrUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, _ := CategorizeError(tt.err); got != tt.want {
				t.Errorf("CategorizeError(%v) = %s, want %s", tt.err, got, tt.want)
			}
		})
	}
}

func TestErrorCategoryString(t *testing.T) {
	if ErrServer5xx.String() != "server_error" || ErrorCategory(99).String() != "unknown" {
		t.Fatalf("unexpected category names: %s %s", ErrServer5xx, ErrorCategory(99))
	}
}

func TestStatusErrorFallsBackToStatusText(t *testing.T) {
	err := &StatusError{StatusCode: 502}
	if err.Error() != "API Error: 502 — Bad Gateway" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
