package api

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/patrickwarner/bidextract/internal/analytics"
	"github.com/patrickwarner/bidextract/internal/bidrequest"
	"github.com/patrickwarner/bidextract/internal/middleware"
	"github.com/patrickwarner/bidextract/internal/observability"
	"github.com/patrickwarner/bidextract/internal/targeting"
)

// ClientIDHeader names the caller for rate limiting.
const ClientIDHeader = "X-Client-ID"

// Extraction outcomes reported to metrics.
const (
	outcomeOK        = "ok"
	outcomeDuplicate = "duplicate"
	outcomeInvalid   = "invalid"
)

// ExtractResponse is the body returned by POST /extract.
type ExtractResponse struct {
	RequestID  string                  `json:"request_id"`
	BidRequest bidrequest.BidRequest   `json:"bid_request"`
	Device     targeting.DeviceProfile `json:"device"`
	Duplicate  bool                    `json:"duplicate"`
}

// ExtractHandler handles POST /extract. The body is an OpenRTB bid request.
func (s *Server) ExtractHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "ExtractHandler",
		trace.WithAttributes(
			attribute.String("http.method", "POST"),
			attribute.String("http.route", "/extract"),
		))
	defer span.End()

	logger := middleware.LoggerFromRequest(r, s.Logger)

	start := time.Now()
	const endpoint = "/extract"
	const method = "POST"

	client := clientKey(r)
	if !s.Limiter.Allow(client) {
		span.SetStatus(codes.Error, "rate limited")
		logger.Debug("rate limited", zap.String("client", client))
		s.observe(endpoint, method, http.StatusTooManyRequests, start)
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodyBytes()))
	if err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "read body")
		logger.Warn("read body", zap.Error(err))
		s.observe(endpoint, method, status, start)
		http.Error(w, "could not read request body", status)
		return
	}

	br, err := bidrequest.ParseBytes(body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid input")
		logger.Info("rejected bid request", zap.Error(err))
		s.Metrics.IncrementExtractions(outcomeInvalid)
		s.observe(endpoint, method, http.StatusBadRequest, start)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	requestID := bidrequest.RequestID(body)
	if requestID == "" {
		requestID = middleware.RequestIDFromContext(ctx)
	}
	device := targeting.ClassifyRequest(body)
	duplicate := s.markSeen(ctx, br, logger)

	span.SetAttributes(
		attribute.String("request_id", requestID),
		attribute.String("site_domain", br.SiteDomain()),
		attribute.Bool("coppa", br.IsCoppa()),
		attribute.Bool("duplicate", duplicate),
	)

	if duplicate {
		s.Metrics.IncrementDuplicates()
		s.Metrics.IncrementExtractions(outcomeDuplicate)
	} else {
		s.Metrics.IncrementExtractions(outcomeOK)
	}
	for _, field := range br.Defaulted() {
		s.Metrics.IncrementDefaultedField(field)
	}

	if s.Analytics != nil {
		rec := analytics.NewExtractionRecord(requestID, br, device, duplicate)
		if err := s.Analytics.RecordExtraction(ctx, rec); err != nil && !errors.Is(err, analytics.ErrUnavailable) {
			span.RecordError(err)
			logger.Warn("record extraction", zap.Error(err), zap.String("request_id", requestID))
		}
	}

	if observability.ShouldSample(observability.GetSamplingRate()) {
		logger.Info("extracted bid request",
			zap.String("request_id", requestID),
			zap.String("site_domain", br.SiteDomain()),
			zap.String("device_type", device.DeviceType),
			zap.Bool("duplicate", duplicate),
			zap.Duration("elapsed", time.Since(start)),
		)
	}

	s.observe(endpoint, method, http.StatusOK, start)
	writeJSON(w, http.StatusOK, ExtractResponse{
		RequestID:  requestID,
		BidRequest: br,
		Device:     device,
		Duplicate:  duplicate,
	})
}

// markSeen reports whether an equal request was seen inside the dedup
// window. Redis failures are logged and treated as first sightings.
func (s *Server) markSeen(ctx context.Context, br bidrequest.BidRequest, logger *zap.Logger) bool {
	if !s.Config.DedupEnabled || s.Store == nil {
		return false
	}
	dup, err := s.Store.MarkSeen(ctx, br, s.Config.DedupWindow)
	if err != nil {
		logger.Warn("dedup check failed", zap.Error(err))
		return false
	}
	return dup
}

// clientKey identifies the caller for rate limiting: X-Client-ID when set,
// otherwise the remote host.
func clientKey(r *http.Request) string {
	if id := r.Header.Get(ClientIDHeader); id != "" {
		return id
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
