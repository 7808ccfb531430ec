package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/patrickwarner/bidextract/internal/bidrequest"
)

// ErrNilRedisStore is returned when a RedisStore pointer is nil or uninitialized.
var ErrNilRedisStore = errors.New("redis store is nil")

// RedisStore wraps a redis client used to remember recently seen bid requests.
type RedisStore struct {
	Client *redis.Client
}

// InitRedis initializes a Redis client and returns a RedisStore.
func InitRedis(ctx context.Context, addr string) (*RedisStore, error) {
	rs := &RedisStore{
		Client: redis.NewClient(&redis.Options{Addr: addr}),
	}

	if err := redisotel.InstrumentTracing(rs.Client); err != nil {
		return nil, fmt.Errorf("failed to instrument redis tracing: %w", err)
	}

	if err := rs.Client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	zap.L().Info("Connected to Redis", zap.String("addr", addr))
	return rs, nil
}

const seenKeyPrefix = "bidreq:seen:"

// SeenKeyPattern matches every key written by MarkSeen.
const SeenKeyPattern = seenKeyPrefix + "*"

// SeenKey is the Redis key under which br is remembered. Equal records share
// a key; unequal records may too, so the key holds br.Key() for comparison.
func SeenKey(br bidrequest.BidRequest) string {
	return fmt.Sprintf("%s%016x", seenKeyPrefix, br.Hash())
}

// MarkSeen records br for window and reports whether an equal record was
// already recorded inside the window. The first caller wins; the window is
// not extended by later duplicates. A different record that happens to share
// the hash is never reported as a duplicate, and does not take the slot.
func (r *RedisStore) MarkSeen(ctx context.Context, br bidrequest.BidRequest, window time.Duration) (bool, error) {
	if r == nil || r.Client == nil {
		return false, ErrNilRedisStore
	}
	key, canonical := SeenKey(br), br.Key()
	created, err := r.Client.SetNX(ctx, key, canonical, window).Result()
	if err != nil {
		return false, fmt.Errorf("mark seen: %w", err)
	}
	if created {
		return false, nil
	}

	stored, err := r.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("mark seen: %w", err)
	}
	if stored != canonical {
		zap.L().Debug("seen key collision", zap.String("key", key))
		return false, nil
	}
	return true, nil
}

// Close shuts down the Redis client.
func (r *RedisStore) Close() {
	if r != nil && r.Client != nil {
		if err := r.Client.Close(); err != nil {
			zap.L().Error("redis close", zap.Error(err))
		}
	}
}
