// Package ratelimit paces content downloads. The API quota is handled
// separately by pkg/quota; this bucket only smooths the byte-fetching side.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter gates download attempts.
type Limiter interface {
	// Allow reports whether a download may start now.
	Allow() bool
	// Wait blocks until a download may start or the context is cancelled.
	Wait(ctx context.Context) error
	// Reset restores the limiter to full capacity.
	Reset()
}

// TokenBucket allows up to capacity downloads per refill period.
type TokenBucket struct {
	capacity     int
	tokens       int
	refillPeriod time.Duration
	lastRefill   time.Time
	mu           sync.Mutex
}

// NewTokenBucket creates a token bucket limiter.
func NewTokenBucket(capacity int, refillPeriod time.Duration) *TokenBucket {
	return &TokenBucket{
		capacity:     capacity,
		tokens:       capacity,
		refillPeriod: refillPeriod,
		lastRefill:   time.Now(),
	}
}

// Allow consumes a token if one is available.
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()

	if tb.tokens > 0 {
		tb.tokens--
		return true
	}

	return false
}

// Wait blocks until a token is available or ctx is done. The sleep happens
// in short increments so cancellation is observed promptly.
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for !tb.Allow() {
		tb.mu.Lock()
		untilRefill := tb.refillPeriod - time.Since(tb.lastRefill)
		tb.mu.Unlock()

		sleep := untilRefill
		if sleep <= 0 || sleep > 100*time.Millisecond {
			sleep = 100 * time.Millisecond
		}

		timer := time.NewTimer(sleep)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
	return nil
}

// Reset restores the bucket to full capacity.
func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.tokens = tb.capacity
	tb.lastRefill = time.Now()
}

// refill recredits tokens when the period has elapsed.
// Caller must hold the mutex.
func (tb *TokenBucket) refill() {
	now := time.Now()
	if now.Sub(tb.lastRefill) >= tb.refillPeriod {
		tb.tokens = tb.capacity
		tb.lastRefill = now
	}
}
