package api

import (
	"net/http"
	"time"
)

// RateLimitStatsHandler reports per-client limiter counters. It answers with
// an empty object when rate limiting is off.
func (s *Server) RateLimitStatsHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "/debug/ratelimit"
	const method = "GET"

	writeJSON(w, http.StatusOK, s.Limiter.GetStats())

	s.observe(endpoint, method, http.StatusOK, start)
}
