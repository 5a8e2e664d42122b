package history

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aristath/riskdash/internal/clients/alphavantage"
	"github.com/aristath/riskdash/internal/clients/binance"
	"github.com/aristath/riskdash/internal/clients/commodity"
	"github.com/aristath/riskdash/internal/clients/fred"
	"github.com/aristath/riskdash/internal/database"
	"github.com/aristath/riskdash/internal/domain"
	"github.com/stretchr/testify/require"
)

var errUpstream = errors.New("upstream down")

func day(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func openDB(t *testing.T, name string) *database.DB {
	t.Helper()
	db, err := database.New(database.Config{
		Path: filepath.Join(t.TempDir(), name+".db"),
		Name: name,
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { _ = db.Close() })
	return db
}

type fakeEquity struct {
	prices []alphavantage.DailyPrice
	err    error
	calls  int
	full   bool
}

func (f *fakeEquity) GetDailyPrices(_ context.Context, _ string, full bool) ([]alphavantage.DailyPrice, error) {
	f.calls++
	f.full = full
	return f.prices, f.err
}

type fakeCrypto struct {
	klines     []binance.Kline
	err        error
	start, end time.Time
}

func (f *fakeCrypto) GetDailyKlines(_ context.Context, _ string, start, end time.Time) ([]binance.Kline, error) {
	f.start, f.end = start, end
	return f.klines, f.err
}

type fakeYield struct {
	obs []fred.Observation
	err error
}

func (f *fakeYield) GetObservations(_ context.Context, _ string, _, _ time.Time) ([]fred.Observation, error) {
	return f.obs, f.err
}

type fakeCommodity struct {
	prices []commodity.Price
	err    error
	limit  int
}

func (f *fakeCommodity) GetHistorical(_ context.Context, _ string, limit int) ([]commodity.Price, error) {
	f.limit = limit
	return f.prices, f.err
}

type memEntry struct {
	obs     []domain.PriceObservation
	expires time.Time
}

// memCache is an in-memory Cache used by provider tests.
type memCache struct {
	mu      sync.Mutex
	entries map[string]memEntry
	failGet bool
	failSet bool
}

func newMemCache() *memCache {
	return &memCache{entries: map[string]memEntry{}}
}

func (c *memCache) Get(_ context.Context, key string) ([]domain.PriceObservation, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failGet {
		return nil, false, errors.New("cache unavailable")
	}
	e, ok := c.entries[key]
	if !ok || time.Now().After(e.expires) {
		return nil, false, nil
	}
	return e.obs, true, nil
}

func (c *memCache) GetStale(_ context.Context, key string) ([]domain.PriceObservation, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return e.obs, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, obs []domain.PriceObservation, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failSet {
		return errors.New("cache unavailable")
	}
	c.entries[key] = memEntry{obs: obs, expires: time.Now().Add(ttl)}
	return nil
}
