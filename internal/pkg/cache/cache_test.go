package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/env"
)

const isolatedCacheTestRedisDB = 13

func testRedis(t *testing.T) *redis.Client {
	t.Helper()

	addr := fmt.Sprintf("%s:%s", env.GetEnv("CACHE_HOST", "localhost"), env.GetEnv("CACHE_PORT", "6379"))
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		DB:       isolatedCacheTestRedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		t.Skipf("redis not reachable at %s: %v", addr, err)
	}
	t.Cleanup(func() {
		_ = rdb.FlushDB(context.Background()).Err()
		_ = rdb.Close()
	})
	return rdb
}

func TestRedisStoreRoundTrip(t *testing.T) {
	rdb := testRedis(t)
	store := NewRedisStore(rdb, "test:")
	ctx := context.Background()

	type org struct {
		ID          string  `json:"id"`
		CreditPrice float64 `json:"creditPrice"`
	}

	var got org
	found, err := store.GetJSON(ctx, "org", &got)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.SetJSON(ctx, "org", org{ID: "o1", CreditPrice: 250}, time.Minute))
	found, err = store.GetJSON(ctx, "org", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, org{ID: "o1", CreditPrice: 250}, got)

	raw, err := rdb.Get(ctx, "test:org").Result()
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"o1","creditPrice":250}`, raw)

	require.NoError(t, store.Delete(ctx, "org"))
	found, err = store.GetJSON(ctx, "org", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestNopStore(t *testing.T) {
	var s Store = Nop{}
	var v map[string]any
	found, err := s.GetJSON(context.Background(), "k", &v)
	assert.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, s.SetJSON(context.Background(), "k", 1, time.Second))
}
