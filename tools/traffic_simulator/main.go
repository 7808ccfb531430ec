package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/patrickwarner/bidextract/internal/config"
	"github.com/patrickwarner/bidextract/internal/db"
	"github.com/patrickwarner/bidextract/internal/observability"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	server        string
	clientCSV     string
	totalReq      int
	conc          int
	duration      time.Duration
	rate          float64
	malformedRate float64
	repeatRate    float64
	stats         bool
	flush         bool
	redisAddr     string
	debug         bool
	label         string
	jitter        float64
)

var logger *zap.Logger

// HTTP client with proper resource limits
var httpClient *http.Client

const statsInterval = 5 * time.Second

var (
	countSent        uint64
	countSuccess     uint64
	countDuplicate   uint64
	countInvalid     uint64
	countRateLimited uint64
	countErrors      uint64
)

func main() {
	flag.StringVar(&server, "server", "http://localhost:8787", "extractor base URL")
	flag.StringVar(&clientCSV, "clients", "exchange-a,exchange-b", "comma-separated client IDs sent as X-Client-ID")
	flag.IntVar(&totalReq, "requests", 1000, "total requests to send")
	flag.IntVar(&conc, "concurrency", 20, "concurrent requests")
	flag.DurationVar(&duration, "duration", 0, "how long to run traffic (0 to disable)")
	flag.Float64Var(&rate, "rate", 0, "requests per second (0 for unlimited)")
	flag.Float64Var(&malformedRate, "malformed-rate", 0.02, "probability of sending a broken document")
	flag.Float64Var(&repeatRate, "repeat-rate", 0.1, "probability of resending the previous document")
	flag.BoolVar(&stats, "stats", false, "print aggregated stats periodically")
	flag.BoolVar(&flush, "flush", false, "flush dedup keys from redis before sending traffic")
	flag.StringVar(&redisAddr, "redis", "", "redis address (defaults to REDIS_ADDR)")
	flag.BoolVar(&debug, "debug", false, "enable verbose debug logs")
	flag.StringVar(&label, "label", "", "label to identify this run")
	flag.Float64Var(&jitter, "jitter", 0.0, "random jitter factor for request spacing")
	flag.Parse()

	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}
	var err error
	logger, err = observability.InitLoggerWithLevel(level, "traffic-simulator")
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	httpClient = &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			ResponseHeaderTimeout: 10 * time.Second,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			MaxConnsPerHost:       50, // Limit connections per host
			IdleConnTimeout:       90 * time.Second,
		},
	}

	if label == "" {
		label = time.Now().Format(time.RFC3339)
	}

	if flush {
		flushDedupKeys()
	}

	clients := strings.Split(clientCSV, ",")
	for i := range clients {
		clients[i] = strings.TrimSpace(clients[i])
	}

	gen := newGenerator(rand.New(rand.NewSource(time.Now().UnixNano())))
	var wg sync.WaitGroup
	sem := make(chan struct{}, conc)
	done := make(chan struct{})

	var baseInterval time.Duration
	if rate > 0 {
		baseInterval = time.Duration(float64(time.Second) / rate)
	} else if duration > 0 && totalReq > 0 {
		baseInterval = duration / time.Duration(totalReq)
	}

	start := time.Now()
	next := start

	if stats {
		go func() {
			ticker := time.NewTicker(statsInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					printStats()
				case <-done:
					printStats()
					return
				}
			}
		}()
	}

	var prev []byte
	for i := 0; ; i++ {
		if totalReq > 0 && i >= totalReq {
			break
		}
		if duration > 0 && time.Since(start) >= duration {
			break
		}
		if baseInterval > 0 {
			effective := baseInterval
			if jitter > 0 {
				jf := 1 + (gen.rnd.Float64()*2-1)*jitter
				if jf < 0.1 {
					jf = 0.1
				}
				effective = time.Duration(float64(effective) * jf)
			}
			now := time.Now()
			if now.Before(next) {
				time.Sleep(next.Sub(now))
			}
			next = next.Add(effective)
		}

		// documents are built on this goroutine; rand.Rand is not safe for concurrent use
		var blob []byte
		switch roll := gen.rnd.Float64(); {
		case roll < malformedRate:
			blob = gen.malformed()
		case roll < malformedRate+repeatRate && prev != nil:
			blob = prev
		default:
			blob, err = json.Marshal(gen.bidRequest())
			if err != nil {
				atomic.AddUint64(&countErrors, 1)
				logger.Error("marshal error", zap.Error(err))
				continue
			}
			prev = blob
		}
		client := clients[gen.rnd.Intn(len(clients))]

		wg.Add(1)
		sem <- struct{}{}
		go func(blob []byte, client string) {
			defer wg.Done()
			defer func() { <-sem }()
			send(blob, client)
		}(blob, client)
	}
	wg.Wait()
	close(done)
	if !stats {
		printStats()
	}
}

// send posts one document to /extract and tallies the outcome.
func send(blob []byte, client string) {
	atomic.AddUint64(&countSent, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "POST", server+"/extract", bytes.NewReader(blob))
	if err != nil {
		atomic.AddUint64(&countErrors, 1)
		logger.Error("request build error", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Client-ID", client)

	resp, err := httpClient.Do(req)
	if err != nil {
		atomic.AddUint64(&countErrors, 1)
		logger.Error("extract request error", zap.Error(err))
		return
	}
	bodyBytes, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		atomic.AddUint64(&countErrors, 1)
		logger.Error("read body error", zap.Error(err))
		return
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusBadRequest:
		atomic.AddUint64(&countInvalid, 1)
		logger.Debug("rejected", zap.String("body", strings.TrimSpace(string(bodyBytes))))
		return
	case http.StatusTooManyRequests:
		atomic.AddUint64(&countRateLimited, 1)
		return
	default:
		atomic.AddUint64(&countErrors, 1)
		logger.Error("unexpected status", zap.Int("status", resp.StatusCode), zap.String("body", strings.TrimSpace(string(bodyBytes))))
		return
	}

	var res struct {
		RequestID string `json:"request_id"`
		Duplicate bool   `json:"duplicate"`
	}
	if err := json.Unmarshal(bodyBytes, &res); err != nil {
		atomic.AddUint64(&countErrors, 1)
		logger.Error("decode error", zap.Error(err), zap.String("body", strings.TrimSpace(string(bodyBytes))))
		return
	}
	if res.Duplicate {
		atomic.AddUint64(&countDuplicate, 1)
	}
	atomic.AddUint64(&countSuccess, 1)
	logger.Debug("request", zap.String("req_id", res.RequestID), zap.String("client", client), zap.Bool("duplicate", res.Duplicate))
}

func flushDedupKeys() {
	cfg := config.Load()
	addr := redisAddr
	if addr == "" {
		addr = cfg.RedisAddr
	}
	ctx := context.Background()
	store, err := db.InitRedis(ctx, addr)
	if err != nil {
		logger.Fatal("redis connect", zap.Error(err))
	}
	defer store.Close()

	flushed := 0
	iter := store.Client.Scan(ctx, 0, db.SeenKeyPattern, 1000).Iterator()
	for iter.Next(ctx) {
		if err := store.Client.Del(ctx, iter.Val()).Err(); err != nil {
			logger.Error("failed to delete key", zap.String("key", iter.Val()), zap.Error(err))
			continue
		}
		flushed++
	}
	if err := iter.Err(); err != nil {
		logger.Error("scan dedup keys", zap.Error(err))
	}
	logger.Info("redis dedup keys flushed", zap.String("addr", addr), zap.Int("keys_deleted", flushed))
}

func printStats() {
	logger.Info("stats",
		zap.String("run", label),
		zap.Uint64("sent", atomic.LoadUint64(&countSent)),
		zap.Uint64("success", atomic.LoadUint64(&countSuccess)),
		zap.Uint64("duplicate", atomic.LoadUint64(&countDuplicate)),
		zap.Uint64("invalid", atomic.LoadUint64(&countInvalid)),
		zap.Uint64("rate_limited", atomic.LoadUint64(&countRateLimited)),
		zap.Uint64("errors", atomic.LoadUint64(&countErrors)),
	)
}

// requestID mirrors the SDK's random request IDs.
func requestID(r *rand.Rand) string {
	return "req_" + strconv.FormatUint(r.Uint64(), 36)
}
