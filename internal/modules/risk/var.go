package risk

import (
	"math"

	"github.com/aristath/riskdash/pkg/formulas"
)

// VaRMetrics holds one-day historical Value-at-Risk in currency units.
type VaRMetrics struct {
	VaR95 float64 `json:"var_95"`
	VaR99 float64 `json:"var_99"`
}

// EstimateVaR computes historical VaR from a portfolio return series without
// interpolation: var = max(0, -quantile(p) * totalValue). The input is not modified.
func EstimateVaR(portfolioReturns []float64, totalValue float64) VaRMetrics {
	if len(portfolioReturns) == 0 {
		return VaRMetrics{}
	}

	sorted := formulas.SortedCopy(portfolioReturns)
	return VaRMetrics{
		VaR95: lossFromQuantile(formulas.HistoricalQuantile(sorted, 0.05), totalValue),
		VaR99: lossFromQuantile(formulas.HistoricalQuantile(sorted, 0.01), totalValue),
	}
}

// lossFromQuantile is a loss magnitude: a quantile that is itself a gain
// carries no loss.
func lossFromQuantile(q, totalValue float64) float64 {
	loss := -q * totalValue
	if loss <= 0 || math.IsNaN(loss) {
		return 0
	}
	return loss
}

// ClassifyRiskLevel buckets VaR95 as a share of portfolio value:
// above 10% is High, above 5% is Medium.
func ClassifyRiskLevel(var95, totalValue float64) RiskLevel {
	if totalValue <= 0 {
		return RiskLevelLow
	}
	pct := var95 / totalValue * 100
	switch {
	case pct > 10:
		return RiskLevelHigh
	case pct > 5:
		return RiskLevelMedium
	default:
		return RiskLevelLow
	}
}
