package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/patrickwarner/bidextract/internal/analytics"
	"github.com/patrickwarner/bidextract/internal/config"
	"github.com/patrickwarner/bidextract/internal/db"
	"github.com/patrickwarner/bidextract/internal/logic/ratelimit"
	"github.com/patrickwarner/bidextract/internal/observability"
)

var tracer = otel.Tracer("bidextract")

// defaultMaxBodyBytes applies when Config.MaxBodyBytes is unset.
const defaultMaxBodyBytes int64 = 1 << 20

// ExtractionQuerier reads back recorded extractions.
type ExtractionQuerier interface {
	GetExtractionsByRequestID(ctx context.Context, id string) ([]analytics.ExtractionRecord, error)
}

// Server groups dependencies for HTTP handlers.
// Store, Analytics, Extractions and Limiter are optional; a nil value turns
// the corresponding feature off.
type Server struct {
	Logger      *zap.Logger
	Store       *db.RedisStore
	Analytics   analytics.AnalyticsService
	Extractions ExtractionQuerier
	Limiter     *ratelimit.ClientLimiter
	Metrics     observability.MetricsRegistry
	Config      config.Config
}

// NewServer constructs a Server.
func NewServer(logger *zap.Logger, store *db.RedisStore, analyticsSvc analytics.AnalyticsService, extractions ExtractionQuerier, limiter *ratelimit.ClientLimiter, metrics observability.MetricsRegistry, cfg config.Config) *Server {
	if metrics == nil {
		metrics = observability.NewNoOpRegistry()
	}
	return &Server{
		Logger:      logger,
		Store:       store,
		Analytics:   analyticsSvc,
		Extractions: extractions,
		Limiter:     limiter,
		Metrics:     metrics,
		Config:      cfg,
	}
}

// Routes registers the API handlers on r.
func (s *Server) Routes(r *mux.Router) {
	r.HandleFunc("/extract", s.ExtractHandler).Methods("POST")
	r.HandleFunc("/extractions/{id}", s.GetExtractionsHandler).Methods("GET")
	r.HandleFunc("/health", s.HealthHandler).Methods("GET")
	r.HandleFunc("/debug/ratelimit", s.RateLimitStatsHandler).Methods("GET")
}

func (s *Server) maxBodyBytes() int64 {
	if s.Config.MaxBodyBytes > 0 {
		return s.Config.MaxBodyBytes
	}
	return defaultMaxBodyBytes
}

// observe records the request count and latency for one handled request.
func (s *Server) observe(endpoint, method string, status int, start time.Time) {
	s.Metrics.IncrementRequests(endpoint, method, strconv.Itoa(status))
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
