package ratelimit

import (
	"fmt"
	"sync"

	"github.com/patrickwarner/bidextract/internal/observability"
)

// ClientLimiter manages rate limiting for multiple API clients.
//
// Each client gets its own token bucket, created lazily on first access.
// The limiter reports activity to an injected metrics registry.
//
// Example usage:
//
//	config := Config{Capacity: 100, RefillRate: 10, Enabled: true}
//	limiter := NewClientLimiter(config, observability.NewPrometheusRegistry())
//
//	if !limiter.Allow("exchange-a") {
//	    // reply 429
//	}
type ClientLimiter struct {
	buckets map[string]*TokenBucket       // client key to token bucket
	mu      sync.RWMutex                  // protects buckets
	config  Config                        // rate limiting configuration
	metrics observability.MetricsRegistry // records requests and hits per client
}

// Config holds the configuration for rate limiting.
type Config struct {
	Capacity   int  // Token bucket capacity (burst allowance)
	RefillRate int  // Tokens added per second (sustained rate)
	Enabled    bool // Whether rate limiting is active
}

// NewClientLimiter creates a new client rate limiter with the given configuration.
func NewClientLimiter(config Config, metrics observability.MetricsRegistry) *ClientLimiter {
	return &ClientLimiter{
		buckets: make(map[string]*TokenBucket),
		config:  config,
		metrics: metrics,
	}
}

// Allow reports whether a request from client may proceed, consuming a token
// if so. When rate limiting is disabled it always returns true and records
// nothing.
func (cl *ClientLimiter) Allow(client string) bool {
	if cl == nil || !cl.config.Enabled {
		return true
	}

	cl.metrics.IncrementRateLimitRequests(client)

	cl.mu.RLock()
	bucket, exists := cl.buckets[client]
	cl.mu.RUnlock()

	if !exists {
		// Double-checked locking pattern to avoid race conditions
		cl.mu.Lock()
		bucket, exists = cl.buckets[client]
		if !exists {
			bucket = NewTokenBucket(cl.config.Capacity, cl.config.RefillRate)
			cl.buckets[client] = bucket
		}
		cl.mu.Unlock()
	}

	allowed := bucket.Allow()
	if !allowed {
		cl.metrics.IncrementRateLimitHits(client)
	}
	return allowed
}

// GetStats returns a snapshot of rate limiting statistics keyed by client.
// A nil limiter has no clients.
func (cl *ClientLimiter) GetStats() map[string]RateLimitStats {
	if cl == nil {
		return map[string]RateLimitStats{}
	}
	cl.mu.RLock()
	defer cl.mu.RUnlock()

	stats := make(map[string]RateLimitStats, len(cl.buckets))
	for client, bucket := range cl.buckets {
		hits, total := bucket.Stats()
		hitRate := 0.0
		if total > 0 {
			hitRate = float64(hits) / float64(total)
		}
		stats[client] = RateLimitStats{
			Client:  client,
			Hits:    hits,
			Total:   total,
			HitRate: hitRate,
		}
	}
	return stats
}

// RateLimitStats contains statistics about rate limiting for a single client.
type RateLimitStats struct {
	Client  string  `json:"client"`
	Hits    int64   `json:"hits"`     // Number of rate limited requests
	Total   int64   `json:"total"`    // Total number of requests processed
	HitRate float64 `json:"hit_rate"` // Fraction of requests rate limited (0.0-1.0)
}

// String returns a human-readable representation of the rate limit statistics.
func (rls RateLimitStats) String() string {
	return fmt.Sprintf("Client %s: %d/%d hits (%.2f%%)",
		rls.Client, rls.Hits, rls.Total, rls.HitRate*100)
}
