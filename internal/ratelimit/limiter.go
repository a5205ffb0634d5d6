package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	initialBackoff = 100 * time.Millisecond
	maxBackoff     = 2 * time.Minute
)

// Limiter wraps rate.Limiter with backoff after upstream 429 responses
type Limiter struct {
	limiter *rate.Limiter
	name    string
	mu      sync.Mutex
	backoff time.Duration
	limited bool // last response was a 429
}

// NewLimiter creates a new rate limiter.
// perMinute specifies the number of requests allowed per minute; 0 or less disables limiting.
func NewLimiter(name string, perMinute int) *Limiter {
	if perMinute <= 0 {
		return &Limiter{limiter: rate.NewLimiter(rate.Inf, 1), name: name, backoff: initialBackoff}
	}

	rps := float64(perMinute) / 60.0
	// Allow burst of up to 5 requests or 1/10th of per-minute limit
	burst := perMinute / 10
	if burst < 1 {
		burst = 1
	}
	if burst > 5 {
		burst = 5
	}

	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		name:    name,
		backoff: initialBackoff,
	}
}

// Wait blocks until a token is available or context is cancelled.
// After a rate limit signal it first sleeps for the current backoff.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	limited, backoff := l.limited, l.backoff
	l.mu.Unlock()

	if limited {
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return l.limiter.Wait(ctx)
}

// SignalRateLimited should be called when a 429 response is received
// It applies exponential backoff
func (l *Limiter) SignalRateLimited() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.limited {
		l.backoff *= 2
	}
	l.limited = true
	if l.backoff > maxBackoff {
		l.backoff = maxBackoff
	}
}

// ResetBackoff resets the backoff duration after successful request
func (l *Limiter) ResetBackoff() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.backoff = initialBackoff
	l.limited = false
}

// Name returns the limiter name
func (l *Limiter) Name() string {
	return l.name
}
