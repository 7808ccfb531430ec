package analytics

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/XSAM/otelsql"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/patrickwarner/bidextract/internal/bidrequest"
	"github.com/patrickwarner/bidextract/internal/observability"
	"github.com/patrickwarner/bidextract/internal/targeting"
)

// AnalyticsService records extracted bid requests.
// Implementations return ErrUnavailable when storage is not configured.
type AnalyticsService interface {
	RecordExtraction(ctx context.Context, rec ExtractionRecord) error
}

// ErrUnavailable is returned when the analytics DB is not configured.
var ErrUnavailable = errors.New("analytics unavailable")

// Analytics wraps a ClickHouse DB connection.
type Analytics struct {
	DB      *sql.DB
	Metrics observability.MetricsRegistry
}

// ExtractionRecord mirrors a row in the bid_requests table.
type ExtractionRecord struct {
	Timestamp    time.Time `json:"timestamp"`
	RequestID    string    `json:"request_id"`
	Coppa        int32     `json:"coppa"`
	AdSlotWidth  int32     `json:"ad_slot_width"`
	AdSlotHeight int32     `json:"ad_slot_height"`
	BidFloor     float64   `json:"bid_floor"`
	Position     int32     `json:"position"`
	DeviceOS     string    `json:"device_os"`
	SiteDomain   string    `json:"site_domain"`
	DeviceType   string    `json:"device_type"`
	Browser      string    `json:"browser"`
	IsBot        bool      `json:"is_bot"`
	Duplicate    bool      `json:"duplicate"`
}

// NewExtractionRecord flattens an extraction result into a row.
func NewExtractionRecord(requestID string, br bidrequest.BidRequest, device targeting.DeviceProfile, duplicate bool) ExtractionRecord {
	return ExtractionRecord{
		Timestamp:    time.Now().UTC(),
		RequestID:    requestID,
		Coppa:        int32(br.Coppa()),
		AdSlotWidth:  int32(br.AdSlotWidth()),
		AdSlotHeight: int32(br.AdSlotHeight()),
		BidFloor:     br.BidFloor(),
		Position:     int32(br.Position()),
		DeviceOS:     br.DeviceOS(),
		SiteDomain:   br.SiteDomain(),
		DeviceType:   device.DeviceType,
		Browser:      device.Browser,
		IsBot:        device.IsBot,
		Duplicate:    duplicate,
	}
}

const createTableSQL = `CREATE TABLE IF NOT EXISTS bid_requests (
       timestamp      DateTime,
       request_id     String,
       coppa          Int32,
       ad_slot_width  Int32,
       ad_slot_height Int32,
       bid_floor      Float64,
       position       Int32,
       device_os      String,
       site_domain    String,
       device_type    String,
       browser        String,
       is_bot         Bool,
       duplicate      Bool
   ) ENGINE=MergeTree() ORDER BY (site_domain, timestamp)`

// Options tunes the ClickHouse connection pool.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// InitClickHouse connects to ClickHouse through otelsql and ensures the
// bid_requests table exists.
func InitClickHouse(ctx context.Context, dsn string, opts Options, metrics observability.MetricsRegistry) (*Analytics, error) {
	db, err := otelsql.Open("clickhouse", dsn,
		otelsql.WithAttributes(attribute.String("db.system", "clickhouse")),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse open: %w", err)
	}
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}
	a := &Analytics{DB: db, Metrics: metrics}
	if err := a.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	zap.L().Info("Connected to ClickHouse", zap.Int("max_open_conns", opts.MaxOpenConns))
	return a, nil
}

func (a *Analytics) ensureSchema(ctx context.Context) error {
	if _, err := a.DB.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("clickhouse create table: %w", err)
	}
	return nil
}

// RecordExtraction inserts a single row into the bid_requests table.
func (a *Analytics) RecordExtraction(ctx context.Context, rec ExtractionRecord) error {
	if a == nil || a.DB == nil {
		return ErrUnavailable
	}
	stmt := `INSERT INTO bid_requests (timestamp, request_id, coppa, ad_slot_width, ad_slot_height, bid_floor, position, device_os, site_domain, device_type, browser, is_bot, duplicate) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := a.DB.ExecContext(ctx, stmt,
		rec.Timestamp, rec.RequestID, rec.Coppa, rec.AdSlotWidth, rec.AdSlotHeight, rec.BidFloor,
		rec.Position, rec.DeviceOS, rec.SiteDomain, rec.DeviceType, rec.Browser, rec.IsBot, rec.Duplicate,
	); err != nil {
		if a.Metrics != nil {
			a.Metrics.IncrementAnalyticsErrors()
		}
		zap.L().Error("clickhouse insert failed", zap.Error(err), zap.String("request_id", rec.RequestID))
		return fmt.Errorf("insert extraction: %w", err)
	}
	return nil
}

// GetExtractionsByRequestID returns all rows for a request ID ordered by timestamp.
func (a *Analytics) GetExtractionsByRequestID(ctx context.Context, id string) ([]ExtractionRecord, error) {
	if a == nil || a.DB == nil {
		return nil, ErrUnavailable
	}
	query := `SELECT timestamp, request_id, coppa, ad_slot_width, ad_slot_height, bid_floor, position, device_os, site_domain, device_type, browser, is_bot, duplicate FROM bid_requests WHERE request_id=? ORDER BY timestamp`
	rows, err := a.DB.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("query extractions: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			zap.L().Warn("rows close", zap.Error(err))
		}
	}()

	var out []ExtractionRecord
	for rows.Next() {
		var rec ExtractionRecord
		if err := rows.Scan(&rec.Timestamp, &rec.RequestID, &rec.Coppa, &rec.AdSlotWidth, &rec.AdSlotHeight, &rec.BidFloor,
			&rec.Position, &rec.DeviceOS, &rec.SiteDomain, &rec.DeviceType, &rec.Browser, &rec.IsBot, &rec.Duplicate); err != nil {
			return nil, fmt.Errorf("scan extraction: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}

// Close terminates the ClickHouse connection.
func (a *Analytics) Close() {
	if a != nil && a.DB != nil {
		if err := a.DB.Close(); err != nil {
			zap.L().Error("clickhouse close", zap.Error(err))
		}
	}
}
