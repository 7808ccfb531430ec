package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/patrickwarner/bidextract/internal/analytics"
	"github.com/patrickwarner/bidextract/internal/middleware"
)

// GetExtractionsHandler handles GET /extractions/{id} and returns the rows
// recorded for that request ID.
func (s *Server) GetExtractionsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "GetExtractionsHandler",
		trace.WithAttributes(
			attribute.String("http.method", "GET"),
			attribute.String("http.route", "/extractions/{id}"),
		))
	defer span.End()

	logger := middleware.LoggerFromRequest(r, s.Logger)

	start := time.Now()
	const endpoint = "/extractions"
	const method = "GET"

	if s.Extractions == nil {
		s.observe(endpoint, method, http.StatusServiceUnavailable, start)
		http.Error(w, analytics.ErrUnavailable.Error(), http.StatusServiceUnavailable)
		return
	}

	id := mux.Vars(r)["id"]
	span.SetAttributes(attribute.String("request_id", id))

	recs, err := s.Extractions.GetExtractionsByRequestID(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query extractions")
		if errors.Is(err, analytics.ErrUnavailable) {
			s.observe(endpoint, method, http.StatusServiceUnavailable, start)
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		logger.Error("query extractions", zap.Error(err), zap.String("request_id", id))
		s.observe(endpoint, method, http.StatusInternalServerError, start)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	if len(recs) == 0 {
		s.observe(endpoint, method, http.StatusNotFound, start)
		http.Error(w, "no extractions for request", http.StatusNotFound)
		return
	}

	s.observe(endpoint, method, http.StatusOK, start)
	writeJSON(w, http.StatusOK, recs)
}
