package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/patrickwarner/bidextract/internal/analytics"
	"github.com/patrickwarner/bidextract/internal/api"
	"github.com/patrickwarner/bidextract/internal/config"
	"github.com/patrickwarner/bidextract/internal/db"
	"github.com/patrickwarner/bidextract/internal/logic/ratelimit"
	"github.com/patrickwarner/bidextract/internal/middleware"
	"github.com/patrickwarner/bidextract/internal/observability"
)

func main() {
	cfg := config.Load()

	logger, err := observability.InitLoggerWithService(cfg.ServiceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}

	defer func() {
		if err := logger.Sync(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to sync logger: %v\n", err)
		}
	}()

	if err := run(logger, cfg); err != nil {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}
}

func run(logger *zap.Logger, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		shutdown, err := observability.InitTracing(ctx, logger, cfg.ServiceName, cfg.TempoEndpoint, cfg.TracingSampleRate)
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		defer shutdown()
	}

	metricsRegistry := observability.NewPrometheusRegistry()

	var store *db.RedisStore
	if cfg.DedupEnabled {
		s, err := db.InitRedis(ctx, cfg.RedisAddr)
		if err != nil {
			return fmt.Errorf("failed to connect redis: %w", err)
		}
		defer s.Close()
		store = s
	}

	var (
		analyticsSvc analytics.AnalyticsService
		extractions  api.ExtractionQuerier
	)
	if cfg.AnalyticsEnabled {
		ch, err := analytics.InitClickHouse(ctx, cfg.ClickHouseDSN, analytics.Options{
			MaxOpenConns:    cfg.CHMaxOpenConns,
			MaxIdleConns:    cfg.CHMaxIdleConns,
			ConnMaxLifetime: cfg.CHConnMaxLifetime,
		}, metricsRegistry)
		if err != nil {
			return fmt.Errorf("failed to connect clickhouse: %w", err)
		}
		defer ch.Close()
		analyticsSvc = ch
		extractions = ch
	}

	limiter := ratelimit.NewClientLimiter(ratelimit.Config{
		Capacity:   cfg.RateLimitCapacity,
		RefillRate: cfg.RateLimitRefillRate,
		Enabled:    cfg.RateLimitEnabled,
	}, metricsRegistry)

	srvDeps := api.NewServer(logger, store, analyticsSvc, extractions, limiter, metricsRegistry, cfg)

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      newHandler(srvDeps, logger),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	logger.Info("Bid request extractor running",
		zap.String("addr", addr),
		zap.Bool("dedup", store != nil),
		zap.Bool("analytics", analyticsSvc != nil),
		zap.Bool("rate_limit", cfg.RateLimitEnabled),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("listen: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	return nil
}

// newHandler builds the router and wraps it with tracing, request IDs and
// the trace-aware logger, outermost first.
func newHandler(srvDeps *api.Server, logger *zap.Logger) http.Handler {
	r := mux.NewRouter()
	srvDeps.Routes(r)
	r.Handle("/metrics", promhttp.Handler())

	var h http.Handler = middleware.WithTraceLogger(logger)(r)
	h = middleware.WithRequestID(h)
	return otelhttp.NewHandler(h, "bidextract",
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/metrics" && r.URL.Path != "/health"
		}),
	)
}
