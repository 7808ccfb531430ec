package observability

import "time"

// MetricsRegistry provides an interface for recording application metrics
// so components take it as a dependency instead of touching Prometheus globals.
type MetricsRegistry interface {
	// HTTP Request metrics
	IncrementRequests(endpoint, method, status string)
	RecordRequestLatency(endpoint, method string, duration time.Duration)

	// Extraction metrics
	IncrementExtractions(outcome string)
	IncrementDefaultedField(field string)
	IncrementDuplicates()

	// Rate limiting metrics
	IncrementRateLimitRequests(client string)
	IncrementRateLimitHits(client string)

	// Analytics metrics
	IncrementAnalyticsErrors()
}

// PrometheusRegistry implements MetricsRegistry using the global Prometheus metrics
type PrometheusRegistry struct{}

// NewPrometheusRegistry creates a new PrometheusRegistry
func NewPrometheusRegistry() *PrometheusRegistry {
	return &PrometheusRegistry{}
}

// HTTP Request metrics
func (r *PrometheusRegistry) IncrementRequests(endpoint, method, status string) {
	RequestCount.WithLabelValues(endpoint, method, status).Inc()
}

func (r *PrometheusRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {
	RequestLatency.WithLabelValues(endpoint, method).Observe(duration.Seconds())
}

// Extraction metrics
func (r *PrometheusRegistry) IncrementExtractions(outcome string) {
	ExtractionCount.WithLabelValues(outcome).Inc()
}

func (r *PrometheusRegistry) IncrementDefaultedField(field string) {
	DefaultedFieldCount.WithLabelValues(field).Inc()
}

func (r *PrometheusRegistry) IncrementDuplicates() {
	DuplicateCount.Inc()
}

// Rate limiting metrics
func (r *PrometheusRegistry) IncrementRateLimitRequests(client string) {
	RateLimitRequests.WithLabelValues(client).Inc()
}

func (r *PrometheusRegistry) IncrementRateLimitHits(client string) {
	RateLimitHits.WithLabelValues(client).Inc()
}

// Analytics metrics
func (r *PrometheusRegistry) IncrementAnalyticsErrors() {
	AnalyticsErrors.Inc()
}

// NoOpRegistry implements MetricsRegistry with no-op methods for testing
type NoOpRegistry struct{}

// NewNoOpRegistry creates a new NoOpRegistry
func NewNoOpRegistry() *NoOpRegistry {
	return &NoOpRegistry{}
}

func (r *NoOpRegistry) IncrementRequests(endpoint, method, status string)                    {}
func (r *NoOpRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {}
func (r *NoOpRegistry) IncrementExtractions(outcome string)                                  {}
func (r *NoOpRegistry) IncrementDefaultedField(field string)                                 {}
func (r *NoOpRegistry) IncrementDuplicates()                                                 {}
func (r *NoOpRegistry) IncrementRateLimitRequests(client string)                             {}
func (r *NoOpRegistry) IncrementRateLimitHits(client string)                                 {}
func (r *NoOpRegistry) IncrementAnalyticsErrors()                                            {}
