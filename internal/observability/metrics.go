package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// total requests per endpoint, method and status code
	RequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bidextract_requests_total",
			Help: "Total API requests received",
		},
		[]string{"endpoint", "method", "status"},
	)

	// request latency in seconds per endpoint/method
	RequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bidextract_request_duration_seconds",
			Help:    "Histogram of request latencies",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method"},
	)

	// extraction outcomes: ok, duplicate or invalid
	ExtractionCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bidextract_extractions_total",
			Help: "Total bid request extractions by outcome",
		},
		[]string{"outcome"},
	)

	// fields that ended up at their default value
	DefaultedFieldCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bidextract_defaulted_fields_total",
			Help: "Total extracted fields that fell back to their default",
		},
		[]string{"field"},
	)

	// bid requests already seen inside the dedup window
	DuplicateCount = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bidextract_duplicates_total",
			Help: "Total bid requests flagged as duplicates",
		},
	)

	// rate limit hits per client
	RateLimitHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bidextract_ratelimit_hits_total",
			Help: "Total rate limit hits per client",
		},
		[]string{"client"},
	)

	// rate limit requests per client
	RateLimitRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bidextract_ratelimit_requests_total",
			Help: "Total rate limit requests per client",
		},
		[]string{"client"},
	)

	// failed writes to the analytics store
	AnalyticsErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bidextract_analytics_errors_total",
			Help: "Total analytics write errors",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestCount,
		RequestLatency,
		ExtractionCount,
		DefaultedFieldCount,
		DuplicateCount,
		RateLimitHits,
		RateLimitRequests,
		AnalyticsErrors,
	)
}
