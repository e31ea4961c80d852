package api

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter spaces outgoing requests so a batch run stays under the API's
// request budget. A nil limiter never blocks.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter allows maxPerSecond requests per second with the given burst.
// A non-positive rate means unlimited.
func NewRateLimiter(maxPerSecond float64, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Inf
	if maxPerSecond > 0 {
		limit = rate.Limit(maxPerSecond)
	}
	return &RateLimiter{limiter: rate.NewLimiter(limit, burst)}
}

// Wait blocks until a request may be sent or the context is cancelled
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl == nil || rl.limiter == nil {
		return nil
	}
	return rl.limiter.Wait(ctx)
}
