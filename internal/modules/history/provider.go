// Package history fetches daily price and yield series for risk evaluation.
// Series are served cache-first, refreshed from the upstream API for the
// asset class, and fall back to stale cache entries or the local store
// when the upstream fails.
package history

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aristath/riskdash/internal/clients/alphavantage"
	"github.com/aristath/riskdash/internal/clients/binance"
	"github.com/aristath/riskdash/internal/clients/commodity"
	"github.com/aristath/riskdash/internal/clients/fred"
	"github.com/aristath/riskdash/internal/domain"
	"github.com/rs/zerolog"
)

// compactOutputSize is the number of points Alpha Vantage returns without outputsize=full.
const compactOutputSize = 100

// EquitySource supplies daily equity closes.
type EquitySource interface {
	GetDailyPrices(ctx context.Context, symbol string, full bool) ([]alphavantage.DailyPrice, error)
}

// CryptoSource supplies daily crypto candles.
type CryptoSource interface {
	GetDailyKlines(ctx context.Context, symbol string, start, end time.Time) ([]binance.Kline, error)
}

// YieldSource supplies daily yield observations in percent.
type YieldSource interface {
	GetObservations(ctx context.Context, seriesID string, start, end time.Time) ([]fred.Observation, error)
}

// CommoditySource supplies daily commodity prices.
type CommoditySource interface {
	GetHistorical(ctx context.Context, name string, limit int) ([]commodity.Price, error)
}

// Sources groups the upstream clients. A nil source makes its asset class unavailable.
type Sources struct {
	Equity    EquitySource
	Crypto    CryptoSource
	Yield     YieldSource
	Commodity CommoditySource
}

// ErrNoSource is returned when no upstream is configured for an asset class.
var ErrNoSource = errors.New("no history source configured")

// Provider implements risk.HistoryProvider.
type Provider struct {
	sources Sources
	cache   Cache
	store   *Store
	now     func() time.Time
	log     zerolog.Logger
}

// NewProvider creates a provider. cache and store may be nil.
func NewProvider(sources Sources, cache Cache, store *Store, log zerolog.Logger) *Provider {
	return &Provider{
		sources: sources,
		cache:   cache,
		store:   store,
		now:     time.Now,
		log:     log.With().Str("component", "history_provider").Logger(),
	}
}

// FetchHistory returns up to lookbackDays observations in ascending date order.
func (p *Provider) FetchHistory(ctx context.Context, class domain.AssetClass, identifier string, lookbackDays int) ([]domain.PriceObservation, error) {
	if lookbackDays <= 0 {
		return nil, fmt.Errorf("lookback must be positive, got %d", lookbackDays)
	}

	key := CacheKey(class, identifier, lookbackDays)
	if obs, ok := p.cacheGet(ctx, key); ok {
		p.log.Debug().Str("key", key).Msg("Historical series from cache")
		return obs, nil
	}

	obs, err := p.fetchRemote(ctx, class, identifier, lookbackDays)
	if err != nil {
		return p.fallback(ctx, class, identifier, lookbackDays, key, err)
	}

	obs = normalize(obs, lookbackDays)
	p.cacheSet(ctx, key, obs, TTLFor(class))
	if p.store != nil {
		if err := p.store.Save(ctx, class, identifier, obs); err != nil {
			p.log.Warn().Err(err).Str("identifier", identifier).Msg("Failed to persist observations")
		}
	}

	p.log.Debug().
		Str("asset_class", string(class)).
		Str("identifier", identifier).
		Int("observations", len(obs)).
		Msg("Fetched historical series")

	return obs, nil
}

func (p *Provider) fallback(ctx context.Context, class domain.AssetClass, identifier string, lookbackDays int, key string, cause error) ([]domain.PriceObservation, error) {
	if p.cache != nil {
		obs, ok, err := p.cache.GetStale(ctx, key)
		if err != nil {
			p.log.Warn().Err(err).Str("key", key).Msg("Stale cache read failed")
		} else if ok && len(obs) > 0 {
			p.log.Warn().Err(cause).Str("identifier", identifier).Msg("Upstream failed, using stale cache")
			return obs, nil
		}
	}

	if p.store != nil {
		obs, err := p.store.Load(ctx, class, identifier, lookbackDays)
		if err != nil {
			p.log.Warn().Err(err).Str("identifier", identifier).Msg("History store read failed")
		} else if len(obs) > 0 {
			p.log.Warn().Err(cause).Str("identifier", identifier).Msg("Upstream failed, using stored observations")
			return obs, nil
		}
	}

	return nil, fmt.Errorf("fetch %s history for %s: %w", class, identifier, cause)
}

func (p *Provider) fetchRemote(ctx context.Context, class domain.AssetClass, identifier string, days int) ([]domain.PriceObservation, error) {
	now := p.now()

	switch class {
	case domain.AssetClassEquity:
		if p.sources.Equity == nil {
			return nil, ErrNoSource
		}
		prices, err := p.sources.Equity.GetDailyPrices(ctx, identifier, days > compactOutputSize)
		if err != nil {
			return nil, err
		}
		obs := make([]domain.PriceObservation, 0, len(prices))
		for _, pr := range prices {
			obs = append(obs, domain.PriceObservation{Date: pr.Date, Value: pr.Close})
		}
		return obs, nil

	case domain.AssetClassCrypto:
		if p.sources.Crypto == nil {
			return nil, ErrNoSource
		}
		start := now.Add(-time.Duration(days) * 24 * time.Hour)
		klines, err := p.sources.Crypto.GetDailyKlines(ctx, identifier, start, now)
		if err != nil {
			return nil, err
		}
		obs := make([]domain.PriceObservation, 0, len(klines))
		for _, k := range klines {
			obs = append(obs, domain.PriceObservation{Date: k.OpenTime, Value: k.Close})
		}
		return obs, nil

	case domain.AssetClassBond:
		if p.sources.Yield == nil {
			return nil, ErrNoSource
		}
		// Extra calendar days cover weekends and holidays
		start := now.AddDate(0, 0, -days*3/2)
		raw, err := p.sources.Yield.GetObservations(ctx, identifier, start, now)
		if err != nil {
			return nil, err
		}
		if len(raw) == 0 {
			return nil, fmt.Errorf("no observations returned for %s", identifier)
		}
		obs := make([]domain.PriceObservation, 0, len(raw))
		for _, o := range raw {
			// FRED publishes percent; NaN stays NaN
			obs = append(obs, domain.PriceObservation{Date: o.Date, Value: o.Value / 100})
		}
		return obs, nil

	case domain.AssetClassCommodity:
		if p.sources.Commodity == nil {
			return nil, ErrNoSource
		}
		prices, err := p.sources.Commodity.GetHistorical(ctx, identifier, days)
		if err != nil {
			return nil, err
		}
		obs := make([]domain.PriceObservation, 0, len(prices))
		for _, pr := range prices {
			obs = append(obs, domain.PriceObservation{Date: pr.Date, Value: pr.Price})
		}
		return obs, nil
	}

	return nil, fmt.Errorf("unknown asset class %q", class)
}

func (p *Provider) cacheGet(ctx context.Context, key string) ([]domain.PriceObservation, bool) {
	if p.cache == nil {
		return nil, false
	}
	obs, ok, err := p.cache.Get(ctx, key)
	if err != nil {
		p.log.Warn().Err(err).Str("key", key).Msg("Cache read failed")
		return nil, false
	}
	return obs, ok && len(obs) > 0
}

func (p *Provider) cacheSet(ctx context.Context, key string, obs []domain.PriceObservation, ttl time.Duration) {
	if p.cache == nil || len(obs) == 0 {
		return
	}
	if err := p.cache.Set(ctx, key, obs, ttl); err != nil {
		p.log.Warn().Err(err).Str("key", key).Msg("Cache write failed")
	}
}

// normalize sorts ascending by date and keeps the most recent limit points.
func normalize(obs []domain.PriceObservation, limit int) []domain.PriceObservation {
	sort.SliceStable(obs, func(i, j int) bool {
		return obs[i].Date.Before(obs[j].Date)
	})
	if len(obs) > limit {
		obs = obs[len(obs)-limit:]
	}
	return obs
}
