package risk

import (
	"fmt"

	"github.com/aristath/riskdash/internal/domain"
	"github.com/aristath/riskdash/pkg/formulas"
)

// Severity labels the size of a scenario loss relative to portfolio value.
type Severity string

const (
	SeverityMild     Severity = "Mild"
	SeverityModerate Severity = "Moderate"
	SeveritySevere   Severity = "Severe"
)

// StressResult is the revaluation of a portfolio under one scenario.
type StressResult struct {
	ScenarioName string `json:"scenario_name"`
	// Loss is positive when the scenario produces a net loss.
	Loss float64 `json:"loss"`
	// LossPct is Loss as a percentage of total value.
	LossPct     float64         `json:"loss_pct"`
	Severity    Severity        `json:"severity"`
	Assumptions domain.Scenario `json:"assumptions"`
}

// RunStressTests revalues positions under each scenario, in scenario order.
// It uses current values only and never touches price history.
func RunStressTests(positions []domain.Position, scenarios []domain.Scenario) ([]StressResult, error) {
	total := TotalValue(positions)
	results := make([]StressResult, 0, len(scenarios))

	for _, sc := range scenarios {
		pnl := 0.0
		for _, p := range positions {
			r, err := scenarioReturn(p, sc)
			if err != nil {
				return nil, err
			}
			pnl += p.CurrentValue * r
		}

		loss := -pnl
		if loss == 0 {
			loss = 0
		}
		lossPct := 0.0
		if total > 0 {
			lossPct = loss / total * 100
		}

		results = append(results, StressResult{
			ScenarioName: sc.Name,
			Loss:         loss,
			LossPct:      lossPct,
			Severity:     classifySeverity(lossPct),
			Assumptions:  sc,
		})
	}

	return results, nil
}

// scenarioReturn is the fractional value change of one position under a scenario.
func scenarioReturn(p domain.Position, sc domain.Scenario) (float64, error) {
	switch p.AssetClass {
	case domain.AssetClassEquity:
		return sc.EquityShock, nil
	case domain.AssetClassCrypto:
		return sc.CryptoShock, nil
	case domain.AssetClassCommodity:
		return sc.CommodityShock, nil
	case domain.AssetClassBond:
		dy := formulas.BasisPointsToDecimal(sc.RateShockBps)
		return formulas.BondPriceReturn(dy, p.DurationOrDefault(), p.ConvexityOrDefault()), nil
	}
	return 0, &domain.ValidationError{Field: "asset_class", Reason: fmt.Sprintf("unknown asset class %q", p.AssetClass)}
}

func classifySeverity(lossPct float64) Severity {
	switch {
	case lossPct >= 30:
		return SeveritySevere
	case lossPct >= 20:
		return SeverityModerate
	default:
		return SeverityMild
	}
}
