package papersources

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter paces every request a client makes with a token bucket. A
// throttling response can additionally pause all callers until the
// upstream's Retry-After has passed. It is safe for concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter

	mu          sync.Mutex
	pausedUntil time.Time
}

// NewRateLimiter allows ratePerSecond sustained requests with bursts of up
// to burst. arXiv asks for no more than three per second.
func NewRateLimiter(ratePerSecond float64, burst int) *RateLimiter {
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst)}
}

// Wait blocks until any pause has elapsed and a token is available.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if d := r.pauseRemaining(); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return r.limiter.Wait(ctx)
}

// Allow takes a token without waiting. It reports false while paused.
func (r *RateLimiter) Allow() bool {
	if r.pauseRemaining() > 0 {
		return false
	}
	return r.limiter.Allow()
}

// Backoff pauses every caller for d. A shorter backoff never cuts an
// existing pause short.
func (r *RateLimiter) Backoff(d time.Duration) {
	if d <= 0 {
		return
	}
	until := time.Now().Add(d)

	r.mu.Lock()
	if until.After(r.pausedUntil) {
		r.pausedUntil = until
	}
	r.mu.Unlock()
}

func (r *RateLimiter) pauseRemaining() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return time.Until(r.pausedUntil)
}
