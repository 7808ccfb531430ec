// Package ratelimit implements per-client token bucket rate limiting for the
// extraction API.
//
// Each client may burst up to the bucket capacity and is then held to the
// refill rate. Exchanges send traffic in bursts, so a plain fixed-window
// counter would reject too much.
package ratelimit

import (
	"sync"
	"time"
)

// TokenBucket is a thread-safe token bucket. It starts full, each Allow
// consumes one token, and tokens come back at refillRate per second up to
// capacity.
type TokenBucket struct {
	capacity   int              // burst allowance
	tokens     int              // tokens currently available
	refillRate int              // tokens added per second
	lastRefill time.Time        // time up to which refills have been credited
	now        func() time.Time // clock, replaced in tests
	mu         sync.Mutex       // protects all bucket state
	hitCount   int64            // requests rejected
	totalCount int64            // requests seen
}

// NewTokenBucket creates a full bucket with the given capacity and refill
// rate in tokens per second.
func NewTokenBucket(capacity, refillRate int) *TokenBucket {
	return newTokenBucketWithClock(capacity, refillRate, time.Now)
}

func newTokenBucketWithClock(capacity, refillRate int, now func() time.Time) *TokenBucket {
	return &TokenBucket{
		capacity:   capacity,
		tokens:     capacity,
		refillRate: refillRate,
		lastRefill: now(),
		now:        now,
	}
}

// Allow consumes a token and reports whether one was available.
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.totalCount++
	tb.refill()

	if tb.tokens > 0 {
		tb.tokens--
		return true
	}
	tb.hitCount++
	return false
}

// Available returns the number of tokens that Allow could consume right now.
func (tb *TokenBucket) Available() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.refill()
	return tb.tokens
}

// refill credits whole tokens for the time elapsed since lastRefill. The
// clock only advances by the time those tokens account for, so partial
// progress toward the next token is kept. Callers hold tb.mu.
func (tb *TokenBucket) refill() {
	now := tb.now()
	if tb.refillRate <= 0 {
		tb.lastRefill = now
		return
	}
	if tb.tokens >= tb.capacity {
		// a full bucket does not bank time
		tb.lastRefill = now
		return
	}

	perToken := time.Second / time.Duration(tb.refillRate)
	if perToken <= 0 {
		perToken = 1
	}
	add := int(now.Sub(tb.lastRefill) / perToken)
	if add <= 0 {
		return
	}
	if tb.tokens+add >= tb.capacity {
		tb.tokens = tb.capacity
		tb.lastRefill = now
		return
	}
	tb.tokens += add
	tb.lastRefill = tb.lastRefill.Add(time.Duration(add) * perToken)
}

// Stats returns how many requests were rejected and how many were seen.
func (tb *TokenBucket) Stats() (hits, total int64) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.hitCount, tb.totalCount
}
