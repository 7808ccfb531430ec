package analytics

import (
	"context"
	"sync"
)

var _ AnalyticsService = (*MockAnalytics)(nil)

// MockAnalytics keeps records in memory for tests.
// Err, when set, is returned from every call instead of recording.
type MockAnalytics struct {
	mu      sync.Mutex
	Records []ExtractionRecord
	Err     error
}

// NewMockAnalytics creates a new mock analytics instance
func NewMockAnalytics() *MockAnalytics {
	return &MockAnalytics{}
}

// RecordExtraction appends rec unless Err is set.
func (m *MockAnalytics) RecordExtraction(ctx context.Context, rec ExtractionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Records = append(m.Records, rec)
	return nil
}

// Recorded returns a copy of the records seen so far.
func (m *MockAnalytics) Recorded() []ExtractionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ExtractionRecord, len(m.Records))
	copy(out, m.Records)
	return out
}
