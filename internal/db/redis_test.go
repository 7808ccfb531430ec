package db

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patrickwarner/bidextract/internal/bidrequest"
)

// setupTestRedis spins up an in-memory Redis and points a RedisStore at it.
func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	store := &RedisStore{
		Client: redis.NewClient(&redis.Options{Addr: s.Addr()}),
	}
	return s, store
}

func mustParse(t *testing.T, doc string) bidrequest.BidRequest {
	t.Helper()
	br, err := bidrequest.Parse(doc)
	require.NoError(t, err)
	return br
}

func TestMarkSeen(t *testing.T) {
	ms, store := setupTestRedis(t)
	defer ms.Close()
	defer store.Close()
	ctx := context.Background()

	a := mustParse(t, `{"imp":[{"banner":{"w":300,"h":250}}],"site":{"domain":"a.com"}}`)
	// Unknown keys differ but the projected record is equal.
	b := mustParse(t, `{"id":"other","imp":[{"banner":{"w":300,"h":250}}],"site":{"domain":"a.com"}}`)
	c := mustParse(t, `{"imp":[{"banner":{"w":728,"h":90}}],"site":{"domain":"a.com"}}`)

	dup, err := store.MarkSeen(ctx, a, time.Minute)
	require.NoError(t, err)
	assert.False(t, dup, "first sighting")

	dup, err = store.MarkSeen(ctx, b, time.Minute)
	require.NoError(t, err)
	assert.True(t, dup, "equal record inside window")

	dup, err = store.MarkSeen(ctx, c, time.Minute)
	require.NoError(t, err)
	assert.False(t, dup, "different record")

	assert.True(t, ms.Exists(SeenKey(a)))
	assert.Equal(t, time.Minute, ms.TTL(SeenKey(a)))
}

func TestMarkSeen_WindowExpiry(t *testing.T) {
	ms, store := setupTestRedis(t)
	defer ms.Close()
	defer store.Close()
	ctx := context.Background()

	br := mustParse(t, `{"device":{"os":"Android"}}`)
	_, err := store.MarkSeen(ctx, br, 30*time.Second)
	require.NoError(t, err)

	ms.FastForward(31 * time.Second)

	dup, err := store.MarkSeen(ctx, br, 30*time.Second)
	require.NoError(t, err)
	assert.False(t, dup)
}

func TestMarkSeen_HashCollisionIsNotDuplicate(t *testing.T) {
	ms, store := setupTestRedis(t)
	defer ms.Close()
	defer store.Close()
	ctx := context.Background()

	br := mustParse(t, `{"regs":{"coppa":1},"site":{"domain":"collide.example"}}`)
	// Another record already holds this hash bucket.
	other := mustParse(t, `{"site":{"domain":"other.example"}}`)
	otherKey := other.Key()
	require.NoError(t, ms.Set(SeenKey(br), otherKey))
	ms.SetTTL(SeenKey(br), time.Minute)

	dup, err := store.MarkSeen(ctx, br, time.Minute)
	require.NoError(t, err)
	assert.False(t, dup)

	stored, err := ms.Get(SeenKey(br))
	require.NoError(t, err)
	assert.Equal(t, otherKey, stored, "holder keeps the slot")
}

func TestMarkSeen_StoresCanonicalKey(t *testing.T) {
	ms, store := setupTestRedis(t)
	defer ms.Close()
	defer store.Close()

	br := mustParse(t, `{"device":{"os":"Android"}}`)
	_, err := store.MarkSeen(context.Background(), br, time.Minute)
	require.NoError(t, err)

	stored, err := ms.Get(SeenKey(br))
	require.NoError(t, err)
	assert.Equal(t, br.Key(), stored)
}

func TestMarkSeen_NilStore(t *testing.T) {
	var store *RedisStore
	_, err := store.MarkSeen(context.Background(), bidrequest.BidRequest{}, time.Minute)
	assert.ErrorIs(t, err, ErrNilRedisStore)
}

func TestMarkSeen_ServerDown(t *testing.T) {
	ms, store := setupTestRedis(t)
	defer store.Close()
	ms.Close()

	_, err := store.MarkSeen(context.Background(), bidrequest.BidRequest{}, time.Minute)
	assert.Error(t, err)
}

func TestSeenKeyPattern(t *testing.T) {
	ms, store := setupTestRedis(t)
	defer ms.Close()
	defer store.Close()

	br := mustParse(t, `{"site":{"domain":"pattern.example"}}`)
	_, err := store.MarkSeen(context.Background(), br, time.Minute)
	require.NoError(t, err)

	keys, err := store.Client.Keys(context.Background(), SeenKeyPattern).Result()
	require.NoError(t, err)
	assert.Equal(t, []string{SeenKey(br)}, keys)
	assert.Len(t, SeenKey(br), len("bidreq:seen:")+16)
}
