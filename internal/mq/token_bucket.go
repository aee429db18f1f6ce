package mq

import (
	"context"
	"sync"
	"time"
)

// TokenBucket is a hand-rolled byte-budget limiter, grounded on
// dep2p-go-dep2p's internal/realm/gateway/BandwidthLimiter (refill-on-
// access token bucket, poll-and-retry Acquire). The teacher never reaches
// for golang.org/x/time/rate for its own rate limiting, so this package
// follows suit rather than introducing a new library for a concern the
// teacher already solves by hand.
type TokenBucket struct {
	mu       sync.Mutex
	rate     int64 // bytes/sec
	capacity int64
	tokens   int64
	lastTime time.Time
}

// NewTokenBucket creates a bucket that starts full.
func NewTokenBucket(rate, capacity int64) *TokenBucket {
	return &TokenBucket{
		rate:     rate,
		capacity: capacity,
		tokens:   capacity,
		lastTime: time.Now(),
	}
}

func (b *TokenBucket) refillLocked() {
	now := time.Now()
	elapsed := now.Sub(b.lastTime)
	if elapsed <= 0 {
		return
	}
	added := int64(float64(b.rate) * elapsed.Seconds())
	if added <= 0 {
		return
	}
	b.tokens += added
	if b.tokens >= b.capacity {
		b.tokens = b.capacity
		b.lastTime = now
		return
	}
	b.lastTime = b.lastTime.Add(time.Duration(added) * time.Second / time.Duration(b.rate))
}

// Acquire blocks until n bytes of budget are available or ctx is done.
func (b *TokenBucket) Acquire(ctx context.Context, n int64) error {
	b.mu.Lock()
	b.refillLocked()
	for b.tokens < n {
		b.mu.Unlock()
		select {
		case <-time.After(10 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
		b.mu.Lock()
		b.refillLocked()
	}
	b.tokens -= n
	b.mu.Unlock()
	return nil
}

// Release returns n bytes of budget, capped at capacity, for a caller that
// acquired budget and then did not transmit. Queue does not call it.
func (b *TokenBucket) Release(n int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens += n
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
}

// AvailableTokens reports the current budget, for tests and metrics.
func (b *TokenBucket) AvailableTokens() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refillLocked()
	return b.tokens
}
