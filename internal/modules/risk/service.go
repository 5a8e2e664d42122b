package risk

import (
	"context"
	"fmt"

	"github.com/aristath/riskdash/internal/domain"
	"github.com/aristath/riskdash/internal/events"
	"github.com/aristath/riskdash/internal/modules/portfolio"
	"github.com/rs/zerolog"
)

// HoldingsSource loads a user's stored holdings.
type HoldingsSource interface {
	GetAll(userID string) ([]portfolio.Holding, error)
}

// AlertStore persists alert messages raised for a user.
type AlertStore interface {
	AddAll(userID string, messages []string) error
}

// Publisher emits domain events. *events.Bus satisfies it.
type Publisher interface {
	Emit(module, userID string, data events.EventData)
}

// Service evaluates stored portfolios and owns the side effects the
// engine leaves to its caller: persisting alerts and publishing events.
type Service struct {
	engine   *Engine
	holdings HoldingsSource
	alerts   AlertStore
	bus      Publisher
	pricer   HistoryProvider
	defaults Options
	log      zerolog.Logger
}

// NewService creates a risk service. alerts and bus may be nil.
func NewService(engine *Engine, holdings HoldingsSource, alerts AlertStore, bus Publisher, defaults Options, log zerolog.Logger) *Service {
	return &Service{
		engine:   engine,
		holdings: holdings,
		alerts:   alerts,
		bus:      bus,
		defaults: defaults.withDefaults(),
		log:      log.With().Str("service", "risk").Logger(),
	}
}

// Defaults returns the configured evaluation options.
func (s *Service) Defaults() Options {
	return s.defaults
}

// Evaluate runs an ad-hoc evaluation. Unset fields of override fall back to
// the configured defaults. A non-nil override.Thresholds replaces all three
// thresholds; use ThresholdsWith for partial overrides. Nothing is persisted.
func (s *Service) Evaluate(ctx context.Context, positions []domain.Position, override Options) (*Result, error) {
	return s.engine.EvaluateRisk(ctx, positions, mergeOptions(s.defaults, override))
}

// ThresholdsWith applies overrides on top of the configured thresholds.
func (s *Service) ThresholdsWith(o ThresholdOverrides) (Thresholds, error) {
	if err := o.Validate(); err != nil {
		return Thresholds{}, err
	}
	return o.Apply(*s.defaults.Thresholds), nil
}

// Positions loads the user's holdings and prices them, from live data when
// pricing is enabled and from the stored price otherwise.
func (s *Service) Positions(ctx context.Context, userID string) ([]domain.Position, error) {
	holdings, err := s.holdings.GetAll(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load holdings for %s: %w", userID, err)
	}
	return portfolio.ToPositions(s.priceHoldings(ctx, holdings)), nil
}

// EvaluateUser evaluates the user's stored portfolio with the configured
// defaults. Nothing is persisted or published.
func (s *Service) EvaluateUser(ctx context.Context, userID string) (*Result, error) {
	positions, err := s.Positions(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.engine.EvaluateRisk(ctx, positions, s.defaults)
}

// AnalyzeUser evaluates the user's stored portfolio, stores any alerts and
// publishes the outcome.
func (s *Service) AnalyzeUser(ctx context.Context, userID string) (*Result, error) {
	result, err := s.EvaluateUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if len(result.Alerts) > 0 && s.alerts != nil {
		// Alert persistence failing must not hide the evaluation
		if err := s.alerts.AddAll(userID, result.Alerts); err != nil {
			s.log.Error().Err(err).Str("user_id", userID).Msg("Failed to store alerts")
		}
	}

	if s.bus != nil {
		s.bus.Emit("risk", userID, &events.RiskEvaluatedData{
			TotalValue:           result.TotalValue,
			VaR95:                result.VaR95,
			VaR99:                result.VaR99,
			RiskLevel:            string(result.RiskLevel),
			Alerts:               result.Alerts,
			PositionsWithoutData: result.DataQuality.PositionsWithoutData,
		})
		if len(result.Alerts) > 0 {
			s.bus.Emit("risk", userID, &events.AlertsRaisedData{Alerts: result.Alerts})
		}
	}

	return result, nil
}

// StressTestUser revalues the user's stored portfolio under the configured scenarios.
// Only current prices are needed, never return history.
func (s *Service) StressTestUser(ctx context.Context, userID string) ([]StressResult, float64, error) {
	positions, err := s.Positions(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	for i, p := range positions {
		if err := p.Validate(); err != nil {
			return nil, 0, fmt.Errorf("position %d (%s): %w", i, p.Identifier, err)
		}
	}

	results, err := RunStressTests(positions, s.defaults.Scenarios)
	if err != nil {
		return nil, 0, err
	}
	return results, TotalValue(positions), nil
}

// mergeOptions fills unset fields of override from base.
func mergeOptions(base, override Options) Options {
	merged := base
	if override.LookbackDays > 0 {
		merged.LookbackDays = override.LookbackDays
	}
	if override.Scenarios != nil {
		merged.Scenarios = override.Scenarios
	}
	if override.Thresholds != nil {
		merged.Thresholds = override.Thresholds
	}
	if override.Alignment != "" {
		merged.Alignment = override.Alignment
	}
	if override.FetchConcurrency > 0 {
		merged.FetchConcurrency = override.FetchConcurrency
	}
	return merged
}
