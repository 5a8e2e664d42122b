package risk

import (
	"context"
	"fmt"
	"math"

	"github.com/aristath/riskdash/internal/domain"
	"github.com/aristath/riskdash/internal/modules/portfolio"
	"golang.org/x/sync/errgroup"
)

// WithPricing revalues stored holdings from the latest observation of
// provider before they are evaluated. The fetch uses the configured lookback
// so the evaluation that follows is served from the same cache entry.
// Bonds keep their stored price because their series are yields.
func (s *Service) WithPricing(provider HistoryProvider) *Service {
	s.pricer = provider
	return s
}

func (s *Service) priceHoldings(ctx context.Context, holdings []portfolio.Holding) []portfolio.Holding {
	if s.pricer == nil || len(holdings) == 0 {
		return holdings
	}

	priced := make([]portfolio.Holding, len(holdings))
	copy(priced, holdings)

	var g errgroup.Group
	g.SetLimit(s.defaults.FetchConcurrency)
	for i := range priced {
		if priced[i].AssetClass == domain.AssetClassBond {
			continue
		}
		h := &priced[i]
		g.Go(func() error {
			price, err := s.latestPrice(ctx, h.AssetClass, h.Identifier)
			if err != nil {
				s.log.Warn().
					Err(err).
					Str("asset_class", h.AssetClass.String()).
					Str("identifier", h.Identifier).
					Float64("stored_price", h.LastPrice).
					Msg("Live price unavailable, using stored price")
				return nil
			}
			h.LastPrice = price
			return nil
		})
	}
	_ = g.Wait()

	return priced
}

// latestPrice is the most recent usable observation of the instrument.
func (s *Service) latestPrice(ctx context.Context, class domain.AssetClass, identifier string) (float64, error) {
	obs, err := s.pricer.FetchHistory(ctx, class, identifier, s.defaults.LookbackDays)
	if err != nil {
		return 0, err
	}
	for i := len(obs) - 1; i >= 0; i-- {
		v := obs[i].Value
		if v > 0 && !math.IsInf(v, 0) {
			return v, nil
		}
	}
	return 0, fmt.Errorf("no usable price in %d observations", len(obs))
}
