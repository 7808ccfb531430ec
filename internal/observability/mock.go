package observability

import (
	"sync"
	"time"
)

var _ MetricsRegistry = (*MockMetricsRegistry)(nil)

// MockMetricsRegistry counts calls so tests can assert on recorded metrics.
// Keys are the label values joined with "/".
type MockMetricsRegistry struct {
	mu              sync.Mutex
	Requests        map[string]int
	Extractions     map[string]int
	DefaultedFields map[string]int
	Duplicates      int
	RateLimitReqs   map[string]int
	RateLimitHits   map[string]int
	AnalyticsErrors int
}

// NewMockMetricsRegistry returns an empty MockMetricsRegistry.
func NewMockMetricsRegistry() *MockMetricsRegistry {
	return &MockMetricsRegistry{
		Requests:        make(map[string]int),
		Extractions:     make(map[string]int),
		DefaultedFields: make(map[string]int),
		RateLimitReqs:   make(map[string]int),
		RateLimitHits:   make(map[string]int),
	}
}

func (m *MockMetricsRegistry) IncrementRequests(endpoint, method, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests[endpoint+"/"+method+"/"+status]++
}

func (m *MockMetricsRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {}

func (m *MockMetricsRegistry) IncrementExtractions(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Extractions[outcome]++
}

func (m *MockMetricsRegistry) IncrementDefaultedField(field string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DefaultedFields[field]++
}

func (m *MockMetricsRegistry) IncrementDuplicates() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Duplicates++
}

func (m *MockMetricsRegistry) IncrementRateLimitRequests(client string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RateLimitReqs[client]++
}

func (m *MockMetricsRegistry) IncrementRateLimitHits(client string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RateLimitHits[client]++
}

func (m *MockMetricsRegistry) IncrementAnalyticsErrors() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AnalyticsErrors++
}
