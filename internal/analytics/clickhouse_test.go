package analytics

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patrickwarner/bidextract/internal/bidrequest"
	"github.com/patrickwarner/bidextract/internal/observability"
	"github.com/patrickwarner/bidextract/internal/targeting"
)

func newMockAnalytics(t *testing.T) (*Analytics, sqlmock.Sqlmock, *observability.MockMetricsRegistry) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	metrics := observability.NewMockMetricsRegistry()
	return &Analytics{DB: db, Metrics: metrics}, mock, metrics
}

func TestNewExtractionRecord(t *testing.T) {
	br, err := bidrequest.Parse(`{"regs":{"coppa":1},"imp":[{"bidfloor":0.5,"banner":{"w":320,"h":50,"pos":3}}],"device":{"os":"Android"},"site":{"domain":"m.example.com"}}`)
	require.NoError(t, err)

	rec := NewExtractionRecord("req-9", br, targeting.DeviceProfile{DeviceType: "mobile", Browser: "Chrome 90.0.0"}, true)
	assert.Equal(t, "req-9", rec.RequestID)
	assert.Equal(t, int32(1), rec.Coppa)
	assert.Equal(t, int32(320), rec.AdSlotWidth)
	assert.Equal(t, int32(50), rec.AdSlotHeight)
	assert.Equal(t, 0.5, rec.BidFloor)
	assert.Equal(t, int32(3), rec.Position)
	assert.Equal(t, "Android", rec.DeviceOS)
	assert.Equal(t, "m.example.com", rec.SiteDomain)
	assert.Equal(t, "mobile", rec.DeviceType)
	assert.True(t, rec.Duplicate)
	assert.WithinDuration(t, time.Now().UTC(), rec.Timestamp, time.Minute)
}

func TestRecordExtraction_Unavailable(t *testing.T) {
	var a *Analytics
	assert.ErrorIs(t, a.RecordExtraction(context.Background(), ExtractionRecord{}), ErrUnavailable)

	a = &Analytics{}
	assert.ErrorIs(t, a.RecordExtraction(context.Background(), ExtractionRecord{}), ErrUnavailable)

	_, err := a.GetExtractionsByRequestID(context.Background(), "x")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestRecordExtraction_Insert(t *testing.T) {
	a, mock, metrics := newMockAnalytics(t)

	rec := ExtractionRecord{
		Timestamp:    time.Date(2024, 11, 13, 0, 51, 16, 0, time.UTC),
		RequestID:    "req-1",
		AdSlotWidth:  300,
		AdSlotHeight: 250,
		BidFloor:     0.03,
		DeviceOS:     "Windows",
		SiteDomain:   "www.example.com",
		DeviceType:   "desktop",
	}
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bid_requests")).
		WithArgs(rec.Timestamp, "req-1", int64(0), int64(300), int64(250), 0.03, int64(0), "Windows", "www.example.com", "desktop", "", false, false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, a.RecordExtraction(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, 0, metrics.AnalyticsErrors)
}

func TestRecordExtraction_InsertError(t *testing.T) {
	a, mock, metrics := newMockAnalytics(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bid_requests")).
		WillReturnError(errors.New("connection reset"))

	err := a.RecordExtraction(context.Background(), ExtractionRecord{RequestID: "req-2"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert extraction")
	assert.Equal(t, 1, metrics.AnalyticsErrors)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetExtractionsByRequestID(t *testing.T) {
	a, mock, _ := newMockAnalytics(t)
	ts := time.Date(2024, 11, 13, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"timestamp", "request_id", "coppa", "ad_slot_width", "ad_slot_height", "bid_floor", "position", "device_os", "site_domain", "device_type", "browser", "is_bot", "duplicate"}).
		AddRow(ts, "req-1", int64(0), int64(300), int64(250), 0.03, int64(1), "Windows", "www.example.com", "desktop", "Chrome 88.0.4324", false, false).
		AddRow(ts.Add(time.Second), "req-1", int64(0), int64(300), int64(250), 0.03, int64(1), "Windows", "www.example.com", "desktop", "Chrome 88.0.4324", false, true)
	mock.ExpectQuery(regexp.QuoteMeta("FROM bid_requests WHERE request_id=?")).
		WithArgs("req-1").
		WillReturnRows(rows)

	recs, err := a.GetExtractionsByRequestID(context.Background(), "req-1")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, int32(300), recs[0].AdSlotWidth)
	assert.Equal(t, int32(1), recs[0].Position)
	assert.False(t, recs[0].Duplicate)
	assert.True(t, recs[1].Duplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema(t *testing.T) {
	a, mock, _ := newMockAnalytics(t)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS bid_requests")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, a.ensureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMockAnalytics(t *testing.T) {
	m := NewMockAnalytics()
	require.NoError(t, m.RecordExtraction(context.Background(), ExtractionRecord{RequestID: "a"}))
	assert.Len(t, m.Recorded(), 1)

	m.Err = ErrUnavailable
	assert.ErrorIs(t, m.RecordExtraction(context.Background(), ExtractionRecord{RequestID: "b"}), ErrUnavailable)
	assert.Len(t, m.Recorded(), 1)
}
