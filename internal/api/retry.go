package api

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"net/http"
	"slices"
	"time"
)

// RetryConfig configures retry behavior for report fetches
type RetryConfig struct {
	MaxRetries      int
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
	BackoffFactor   float64
	RetryableErrors []int // HTTP status codes to retry
}

// DefaultRetryConfig returns a default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		BackoffFactor:  2.0,
		RetryableErrors: []int{
			http.StatusTooManyRequests,     // 429
			http.StatusInternalServerError, // 500
			http.StatusBadGateway,          // 502
			http.StatusServiceUnavailable,  // 503
			http.StatusGatewayTimeout,      // 504
		},
	}
}

// CalculateBackoff calculates the backoff duration for a given attempt
func (rc *RetryConfig) CalculateBackoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	backoff := float64(rc.InitialBackoff) * math.Pow(rc.BackoffFactor, float64(attempt))

	// jitter of +/-25%
	//nolint:gosec // math/rand/v2 is sufficient for jitter
	jitter := backoff * 0.25 * (2*rand.Float64() - 1)
	backoff += jitter

	if backoff > float64(rc.MaxBackoff) {
		backoff = float64(rc.MaxBackoff)
	}

	return time.Duration(backoff)
}

// DoWithRetry runs operation until it succeeds, fails with a non-retryable
// error, or the retry budget is spent. The attempt number starts at 0.
func (rc *RetryConfig) DoWithRetry(ctx context.Context, operation func(attempt int) error) error {
	var lastErr error

	for attempt := 0; attempt <= rc.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		lastErr = operation(attempt)
		if lastErr == nil {
			return nil
		}

		if attempt == rc.MaxRetries {
			break
		}
		if !rc.isRetryable(lastErr) {
			return lastErr
		}

		if err := SleepWithContext(ctx, rc.CalculateBackoff(attempt)); err != nil {
			return fmt.Errorf("context cancelled during retry: %w", err)
		}
	}

	if rc.MaxRetries == 0 {
		return lastErr
	}
	return fmt.Errorf("max retries (%d) exceeded: %w", rc.MaxRetries, lastErr)
}

// isRetryable retries listed status codes and transport failures, never
// decode errors or cancellations.
func (rc *RetryConfig) isRetryable(err error) bool {
	if err == nil {
		return false
	}

	var se *StatusError
	if errors.As(err, &se) {
		return slices.Contains(rc.RetryableErrors, se.StatusCode)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var nre *NoResponseError
	return errors.As(err, &nre)
}

// SleepWithContext sleeps for the given duration or until context is cancelled
func SleepWithContext(ctx context.Context, duration time.Duration) error {
	timer := time.NewTimer(duration)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
