package ratelimit

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/patrickwarner/bidextract/internal/observability"
)

func TestClientLimiter_PerClientBuckets(t *testing.T) {
	metrics := observability.NewMockMetricsRegistry()
	limiter := NewClientLimiter(Config{Capacity: 2, RefillRate: 0, Enabled: true}, metrics)

	assert.True(t, limiter.Allow("a"))
	assert.True(t, limiter.Allow("a"))
	assert.False(t, limiter.Allow("a"))

	// b has its own bucket
	assert.True(t, limiter.Allow("b"))

	assert.Equal(t, 3, metrics.RateLimitReqs["a"])
	assert.Equal(t, 1, metrics.RateLimitHits["a"])
	assert.Equal(t, 0, metrics.RateLimitHits["b"])

	stats := limiter.GetStats()
	assert.Equal(t, int64(1), stats["a"].Hits)
	assert.Equal(t, int64(3), stats["a"].Total)
	assert.InDelta(t, 1.0/3.0, stats["a"].HitRate, 1e-9)
	assert.Equal(t, "Client a: 1/3 hits (33.33%)", stats["a"].String())
}

func TestClientLimiter_Disabled(t *testing.T) {
	metrics := observability.NewMockMetricsRegistry()
	limiter := NewClientLimiter(Config{Capacity: 0, RefillRate: 0, Enabled: false}, metrics)

	for i := 0; i < 10; i++ {
		assert.True(t, limiter.Allow("a"))
	}
	assert.Empty(t, metrics.RateLimitReqs)
	assert.Empty(t, limiter.GetStats())
}

func TestClientLimiter_Nil(t *testing.T) {
	var limiter *ClientLimiter
	assert.True(t, limiter.Allow("anyone"))
	assert.Empty(t, limiter.GetStats())
}

func TestClientLimiter_Concurrent(t *testing.T) {
	limiter := NewClientLimiter(Config{Capacity: 50, RefillRate: 0, Enabled: true}, observability.NewNoOpRegistry())

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.Allow("shared") {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, allowed)
}
