package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/riskdash/internal/clientdata"
	"github.com/aristath/riskdash/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

// Cache stores observation series under a cache key with a TTL.
// Get returns only fresh entries. GetStale ignores expiry.
type Cache interface {
	Get(ctx context.Context, key string) ([]domain.PriceObservation, bool, error)
	GetStale(ctx context.Context, key string) ([]domain.PriceObservation, bool, error)
	Set(ctx context.Context, key string, obs []domain.PriceObservation, ttl time.Duration) error
}

// CacheKey builds the key for a series, e.g. "hist:equity:AAPL:252".
func CacheKey(class domain.AssetClass, identifier string, days int) string {
	return fmt.Sprintf("hist:%s:%s:%d", class, identifier, days)
}

// TTLFor returns the cache lifetime for an asset class.
func TTLFor(class domain.AssetClass) time.Duration {
	switch class {
	case domain.AssetClassCrypto:
		return clientdata.TTLCryptoHistory
	case domain.AssetClassBond:
		return clientdata.TTLBondHistory
	case domain.AssetClassCommodity:
		return clientdata.TTLCommodityHistory
	default:
		return clientdata.TTLEquityHistory
	}
}

// SQLiteCache keeps series in the cache database via clientdata.
type SQLiteCache struct {
	repo *clientdata.Repository
}

// NewSQLiteCache creates a cache backed by the price_history table.
func NewSQLiteCache(repo *clientdata.Repository) *SQLiteCache {
	return &SQLiteCache{repo: repo}
}

func (c *SQLiteCache) Get(_ context.Context, key string) ([]domain.PriceObservation, bool, error) {
	var obs []domain.PriceObservation
	ok, err := c.repo.GetIfFresh(clientdata.TablePriceHistory, key, &obs)
	return obs, ok, err
}

func (c *SQLiteCache) GetStale(_ context.Context, key string) ([]domain.PriceObservation, bool, error) {
	var obs []domain.PriceObservation
	ok, err := c.repo.Get(clientdata.TablePriceHistory, key, &obs)
	return obs, ok, err
}

func (c *SQLiteCache) Set(_ context.Context, key string, obs []domain.PriceObservation, ttl time.Duration) error {
	return c.repo.Store(clientdata.TablePriceHistory, key, obs, ttl)
}

// RedisCache keeps series in Redis. Each Set writes the fresh key with the
// TTL and a companion stale key that lives for clientdata.StaleRetention.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a Redis-backed cache.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func staleKey(key string) string {
	return key + ":stale"
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]domain.PriceObservation, bool, error) {
	return c.read(ctx, key)
}

func (c *RedisCache) GetStale(ctx context.Context, key string) ([]domain.PriceObservation, bool, error) {
	return c.read(ctx, staleKey(key))
}

func (c *RedisCache) read(ctx context.Context, key string) ([]domain.PriceObservation, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	var obs []domain.PriceObservation
	if err := msgpack.Unmarshal(data, &obs); err != nil {
		return nil, false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return obs, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, obs []domain.PriceObservation, ttl time.Duration) error {
	data, err := msgpack.Marshal(obs)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, key, data, ttl)
	pipe.Set(ctx, staleKey(key), data, clientdata.StaleRetention)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}
