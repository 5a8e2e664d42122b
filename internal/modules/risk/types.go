// Package risk evaluates the market risk of a multi-asset portfolio:
// historical VaR, scenario stress tests and threshold alerts.
package risk

import (
	"context"
	"time"

	"github.com/aristath/riskdash/internal/domain"
)

// DefaultLookbackDays is one trading year of history.
const DefaultLookbackDays = 252

// DefaultFetchConcurrency bounds in-flight history requests per evaluation.
const DefaultFetchConcurrency = 8

// HistoryProvider supplies ascending-by-date observations for a position.
// An empty slice means no data. Errors are treated the same way by the engine.
type HistoryProvider interface {
	FetchHistory(ctx context.Context, class domain.AssetClass, identifier string, lookbackDays int) ([]domain.PriceObservation, error)
}

// Alignment selects how per-position return series are combined.
type Alignment string

const (
	// AlignByIndex truncates every series to the shortest one and combines
	// element i of each. Calendar dates are ignored.
	AlignByIndex Alignment = "index"
	// AlignByDate combines only the dates present in every series.
	AlignByDate Alignment = "date"
)

// Options controls a single evaluation. Zero values fall back to defaults.
type Options struct {
	LookbackDays int
	// Scenarios nil means the default set. An empty non-nil slice runs no stress tests.
	Scenarios []domain.Scenario
	// Thresholds nil means DefaultThresholds.
	Thresholds       *Thresholds
	Alignment        Alignment
	FetchConcurrency int
}

func (o Options) withDefaults() Options {
	if o.LookbackDays <= 0 {
		o.LookbackDays = DefaultLookbackDays
	}
	if o.Scenarios == nil {
		o.Scenarios = domain.DefaultScenarios()
	}
	if o.Thresholds == nil {
		t := DefaultThresholds()
		o.Thresholds = &t
	}
	if o.Alignment == "" {
		o.Alignment = AlignByIndex
	}
	if o.FetchConcurrency <= 0 {
		o.FetchConcurrency = DefaultFetchConcurrency
	}
	return o
}

// SeriesOutcome is the per-position result of fetching and transforming history.
// A non-nil Err means the position has no usable return data.
type SeriesOutcome struct {
	Returns []float64
	// Dates[i] is the date of the observation that closes Returns[i].
	Dates []time.Time
	Err   error
}

// Ok reports whether the outcome carries usable return data.
func (o SeriesOutcome) Ok() bool {
	return o.Err == nil && len(o.Returns) > 0
}

// RiskLevel buckets VaR95 relative to portfolio value.
type RiskLevel string

const (
	RiskLevelLow    RiskLevel = "Low"
	RiskLevelMedium RiskLevel = "Medium"
	RiskLevelHigh   RiskLevel = "High"
)

// FetchFailure records why a position contributed no return data.
type FetchFailure struct {
	Identifier string            `json:"identifier"`
	AssetClass domain.AssetClass `json:"asset_class"`
	Reason     string            `json:"reason"`
}

// DataQuality separates "risk is zero" from "data was unavailable".
type DataQuality struct {
	PositionsWithData    int            `json:"positions_with_data"`
	PositionsWithoutData int            `json:"positions_without_data"`
	Failures             []FetchFailure `json:"failures"`
	// Insufficient is set when the portfolio has value but no VaR could be estimated.
	Insufficient bool `json:"insufficient"`
}

// Result is the outcome of one risk evaluation.
type Result struct {
	VaR95            float64        `json:"var_95"`
	VaR99            float64        `json:"var_99"`
	PortfolioReturns []float64      `json:"portfolio_returns"`
	TotalValue       float64        `json:"total_value"`
	StressResults    []StressResult `json:"stress_results"`
	Alerts           []string       `json:"alerts"`
	AlertDetails     []Alert        `json:"alert_details"`
	// Volatility is the annualized volatility of PortfolioReturns as a fraction.
	Volatility  float64     `json:"volatility"`
	RiskLevel   RiskLevel   `json:"risk_level"`
	DataQuality DataQuality `json:"data_quality"`
}
