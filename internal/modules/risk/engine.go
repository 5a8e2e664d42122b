package risk

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/aristath/riskdash/internal/domain"
	"github.com/aristath/riskdash/pkg/formulas"
)

// Recorder receives evaluation telemetry. A nil Recorder is ignored.
type Recorder interface {
	ObserveEvaluation(d time.Duration, positions int)
	FetchFailed(class domain.AssetClass)
	AlertsRaised(kind AlertKind)
}

// Engine runs risk evaluations against a history provider.
// It holds no per-evaluation state and is safe for concurrent use.
type Engine struct {
	provider HistoryProvider
	recorder Recorder
	log      zerolog.Logger
}

// NewEngine creates a risk engine
func NewEngine(provider HistoryProvider, log zerolog.Logger) *Engine {
	return &Engine{
		provider: provider,
		log:      log.With().Str("component", "risk_engine").Logger(),
	}
}

// WithRecorder attaches telemetry and returns the engine.
func (e *Engine) WithRecorder(r Recorder) *Engine {
	e.recorder = r
	return e
}

// EvaluateRisk computes VaR, stress results and alerts for a portfolio.
//
// Missing market data never fails the evaluation: affected positions count
// toward total value and stress tests but yield no VaR. Errors are returned
// only for malformed input.
func (e *Engine) EvaluateRisk(ctx context.Context, positions []domain.Position, opts Options) (*Result, error) {
	if positions == nil {
		return nil, domain.ErrNilPortfolio
	}
	if err := validateInput(positions, opts.Scenarios); err != nil {
		return nil, err
	}
	if opts.Thresholds != nil {
		if err := opts.Thresholds.Validate(); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	opts = opts.withDefaults()

	outcomes := e.fetchAll(ctx, positions, opts)
	agg := AggregateReturns(positions, outcomes, opts.Alignment)
	varMetrics := EstimateVaR(agg.Returns, agg.TotalValue)

	stress, err := RunStressTests(positions, opts.Scenarios)
	if err != nil {
		return nil, err
	}

	alerts := GenerateAlerts(varMetrics, stress, *opts.Thresholds)

	result := &Result{
		VaR95:            varMetrics.VaR95,
		VaR99:            varMetrics.VaR99,
		PortfolioReturns: agg.Returns,
		TotalValue:       agg.TotalValue,
		StressResults:    stress,
		Alerts:           Messages(alerts),
		AlertDetails:     alerts,
		Volatility:       formulas.AnnualizedVolatility(agg.Returns),
		RiskLevel:        ClassifyRiskLevel(varMetrics.VaR95, agg.TotalValue),
		DataQuality:      summarizeQuality(positions, outcomes, agg),
	}

	if e.recorder != nil {
		e.recorder.ObserveEvaluation(time.Since(start), len(positions))
		for _, a := range alerts {
			e.recorder.AlertsRaised(a.Kind)
		}
	}

	e.log.Info().
		Int("positions", len(positions)).
		Float64("total_value", result.TotalValue).
		Float64("var_95", result.VaR95).
		Float64("var_99", result.VaR99).
		Int("alerts", len(result.Alerts)).
		Int("positions_without_data", result.DataQuality.PositionsWithoutData).
		Dur("duration_ms", time.Since(start)).
		Msg("Risk evaluation completed")

	return result, nil
}

// fetchAll retrieves and transforms history for every position concurrently.
// outcomes[i] always corresponds to positions[i].
func (e *Engine) fetchAll(ctx context.Context, positions []domain.Position, opts Options) []SeriesOutcome {
	outcomes := make([]SeriesOutcome, len(positions))
	if e.provider == nil {
		for i := range outcomes {
			outcomes[i].Err = fmt.Errorf("no history provider configured")
		}
		return outcomes
	}

	var g errgroup.Group
	g.SetLimit(opts.FetchConcurrency)

	for i, p := range positions {
		i, p := i, p
		g.Go(func() error {
			outcomes[i] = e.fetchOne(ctx, p, opts.LookbackDays)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

func (e *Engine) fetchOne(ctx context.Context, p domain.Position, lookback int) SeriesOutcome {
	obs, err := e.provider.FetchHistory(ctx, p.AssetClass, p.Identifier, lookback)
	if err != nil {
		e.log.Warn().
			Err(err).
			Str("asset_class", p.AssetClass.String()).
			Str("identifier", p.Identifier).
			Msg("History fetch failed, position excluded from VaR")
		if e.recorder != nil {
			e.recorder.FetchFailed(p.AssetClass)
		}
		return SeriesOutcome{Err: err}
	}

	outcome := TransformHistory(p, obs)
	if len(outcome.Returns) == 0 {
		outcome.Err = fmt.Errorf("insufficient history: %d observations", len(obs))
	}
	return outcome
}

// TransformHistory turns observations into a return series by asset class.
// Prices use percentage change; bond yields use first differences repriced
// through duration and convexity.
func TransformHistory(p domain.Position, obs []domain.PriceObservation) SeriesOutcome {
	values := domain.Values(obs)

	var returns []float64
	switch p.AssetClass {
	case domain.AssetClassEquity, domain.AssetClassCrypto, domain.AssetClassCommodity:
		returns = formulas.PercentChange(values)
	case domain.AssetClassBond:
		returns = formulas.BondPriceReturns(formulas.FirstDiff(values), p.DurationOrDefault(), p.ConvexityOrDefault())
	default:
		return SeriesOutcome{Returns: []float64{}, Err: fmt.Errorf("unknown asset class %q", p.AssetClass)}
	}

	dates := make([]time.Time, len(returns))
	for i := range returns {
		dates[i] = obs[i+1].Date
	}

	return SeriesOutcome{Returns: returns, Dates: dates}
}

func validateInput(positions []domain.Position, scenarios []domain.Scenario) error {
	for i, p := range positions {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("position %d (%s): %w", i, p.Identifier, err)
		}
	}
	for i, s := range scenarios {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("scenario %d: %w", i, err)
		}
	}
	return nil
}

func summarizeQuality(positions []domain.Position, outcomes []SeriesOutcome, agg Aggregate) DataQuality {
	q := DataQuality{Failures: []FetchFailure{}}
	for i, o := range outcomes {
		if o.Ok() {
			q.PositionsWithData++
			continue
		}
		q.PositionsWithoutData++
		reason := "no data"
		if o.Err != nil {
			reason = o.Err.Error()
		}
		q.Failures = append(q.Failures, FetchFailure{
			Identifier: positions[i].Identifier,
			AssetClass: positions[i].AssetClass,
			Reason:     reason,
		})
	}
	q.Insufficient = agg.TotalValue > 0 && len(agg.Returns) == 0
	return q
}
