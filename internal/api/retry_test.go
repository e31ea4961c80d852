package api

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCalculateBackoff_StaysWithinJitterAndCap(t *testing.T) {
	cfg := DefaultRetryConfig()
	for attempt := 0; attempt < 4; attempt++ {
		base := float64(cfg.InitialBackoff) * float64(int(1)<<attempt)
		got := float64(cfg.CalculateBackoff(attempt))
		if got < base*0.75 || got > base*1.25 {
			t.Fatalf("attempt %d: backoff %v outside jitter range of %v", attempt, time.Duration(got), time.Duration(base))
		}
	}
	if got := cfg.CalculateBackoff(20); got > cfg.MaxBackoff {
		t.Fatalf("expected cap at %v, got %v", cfg.MaxBackoff, got)
	}
}

func TestDoWithRetry_StopsOnNonRetryable(t *testing.T) {
	cfg := fastRetry()
	calls := 0
	err := cfg.DoWithRetry(context.Background(), func(int) error {
		calls++
		return ErrDecode
	})
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestDoWithRetry_ExhaustsBudget(t *testing.T) {
	cfg := fastRetry()
	cfg.MaxRetries = 2
	attempts := []int{}
	err := cfg.DoWithRetry(context.Background(), func(attempt int) error {
		attempts = append(attempts, attempt)
		return &StatusError{StatusCode: 502}
	})
	if err == nil {
		t.Fatal("expected error")
	}
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected wrapped StatusError, got %v", err)
	}
	if len(attempts) != 3 || attempts[2] != 2 {
		t.Fatalf("unexpected attempts %v", attempts)
	}
}

func TestDoWithRetry_CancelledContext(t *testing.T) {
	cfg := fastRetry()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := cfg.DoWithRetry(ctx, func(int) error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRateLimiter(t *testing.T) {
	var nilLimiter *RateLimiter
	if err := nilLimiter.Wait(context.Background()); err != nil {
		t.Fatalf("nil limiter should not fail: %v", err)
	}

	unlimited := NewRateLimiter(0, 0)
	for i := 0; i < 100; i++ {
		if err := unlimited.Wait(context.Background()); err != nil {
			t.Fatalf("unlimited limiter failed: %v", err)
		}
	}

	slow := NewRateLimiter(0.5, 1)
	if err := slow.Wait(context.Background()); err != nil {
		t.Fatalf("first wait should be immediate: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := slow.Wait(ctx); err == nil {
		t.Fatal("expected second wait to fail before the next token")
	}
}
