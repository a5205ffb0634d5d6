package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func currentBackoff(l *Limiter) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.backoff
}

func TestNewLimiter(t *testing.T) {
	limiter := NewLimiter("test", 60) // 60 per minute = 1 per second
	assert.Equal(t, "test", limiter.Name())
	assert.Equal(t, rate.Limit(1), limiter.limiter.Limit())
	assert.Equal(t, 5, limiter.limiter.Burst())

	// Burst requests pass without waiting
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	for i := 0; i < 3; i++ {
		assert.NoError(t, limiter.Wait(ctx), "request %d should not wait", i)
	}
}

func TestLimiterUnlimited(t *testing.T) {
	limiter := NewLimiter("csv", 0)
	assert.Equal(t, rate.Inf, limiter.limiter.Limit())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for i := 0; i < 100; i++ {
		assert.NoError(t, limiter.Wait(ctx))
	}
}

func TestLimiterWait(t *testing.T) {
	limiter := NewLimiter("test", 120) // 2 per second

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	assert.NoError(t, limiter.Wait(ctx))
	assert.Less(t, time.Since(start), time.Second)
}

func TestLimiterBackoff(t *testing.T) {
	limiter := NewLimiter("test", 60)
	initial := currentBackoff(limiter)
	assert.Equal(t, initialBackoff, initial)

	limiter.SignalRateLimited()
	assert.Equal(t, initial, currentBackoff(limiter), "first 429 waits the initial backoff")

	limiter.SignalRateLimited()
	assert.Equal(t, 2*initial, currentBackoff(limiter))

	for i := 0; i < 30; i++ {
		limiter.SignalRateLimited()
	}
	assert.Equal(t, maxBackoff, currentBackoff(limiter))

	limiter.ResetBackoff()
	assert.Equal(t, initial, currentBackoff(limiter))
	assert.False(t, limiter.limited)
}

func TestLimiterWaitAfterRateLimit(t *testing.T) {
	limiter := NewLimiter("test", 600)
	limiter.SignalRateLimited()

	start := time.Now()
	assert.NoError(t, limiter.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), initialBackoff)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, limiter.Wait(ctx), context.Canceled)
}
