package history

import (
	"context"
	"math"
	"os"
	"testing"
	"time"

	"github.com/aristath/riskdash/internal/clientdata"
	"github.com/aristath/riskdash/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteCache(t *testing.T) {
	cache := NewSQLiteCache(clientdata.NewRepository(openDB(t, "cache").Conn()))
	ctx := context.Background()
	obs := []domain.PriceObservation{{Date: day(0), Value: 1}, {Date: day(1), Value: math.NaN()}}

	_, ok, err := cache.Get(ctx, "hist:equity:AAPL:10")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, "hist:equity:AAPL:10", obs, time.Hour))
	got, ok, err := cache.Get(ctx, "hist:equity:AAPL:10")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 2)
	assert.True(t, got[0].Date.Equal(day(0)))
	assert.True(t, math.IsNaN(got[1].Value))

	require.NoError(t, cache.Set(ctx, "hist:crypto:BTCUSDT:10", obs, -time.Second))
	_, ok, err = cache.Get(ctx, "hist:crypto:BTCUSDT:10")
	require.NoError(t, err)
	assert.False(t, ok)

	got, ok, err = cache.GetStale(ctx, "hist:crypto:BTCUSDT:10")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, got, 2)
}

// Runs against a live Redis when REDIS_TEST_ADDR is set.
func TestRedisCache(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}

	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())

	key := "hist:test:" + time.Now().Format("150405.000000")
	t.Cleanup(func() { client.Del(ctx, key, staleKey(key)) })

	cache := NewRedisCache(client)
	_, ok, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	obs := []domain.PriceObservation{{Date: day(0), Value: 3.5}}
	require.NoError(t, cache.Set(ctx, key, obs, time.Minute))

	got, ok, err := cache.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3.5, got[0].Value)

	require.NoError(t, client.Del(ctx, key).Err())
	got, ok, err = cache.GetStale(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, got, 1)
}
