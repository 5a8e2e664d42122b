package risk

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateVaR_Empty(t *testing.T) {
	assert.Equal(t, VaRMetrics{}, EstimateVaR(nil, 10000))
	assert.Equal(t, VaRMetrics{}, EstimateVaR([]float64{}, 10000))
}

func TestEstimateVaR_DiscreteQuantile(t *testing.T) {
	returns := make([]float64, 1000)
	for i := range returns {
		// Descending so the estimator has to sort.
		returns[i] = -0.05 + float64(999-i)*0.0001
	}

	v := EstimateVaR(returns, 10000)

	// floor(0.05*999) = 49, floor(0.01*999) = 9
	assert.InDelta(t, -(-0.05+49*0.0001)*10000, v.VaR95, 1e-9)
	assert.InDelta(t, -(-0.05+9*0.0001)*10000, v.VaR99, 1e-9)
	assert.GreaterOrEqual(t, v.VaR99, v.VaR95)
}

func TestEstimateVaR_SmallSeries(t *testing.T) {
	// floor(0.05*4) = 0 and floor(0.01*4) = 0 both pick the worst return.
	v := EstimateVaR([]float64{0.01, -0.03, 0.02, -0.01, 0.0}, 1000)
	assert.InDelta(t, 30.0, v.VaR95, 1e-9)
	assert.InDelta(t, 30.0, v.VaR99, 1e-9)
}

func TestEstimateVaR_DoesNotMutateInput(t *testing.T) {
	returns := []float64{0.02, -0.01, 0.03}
	_ = EstimateVaR(returns, 100)
	assert.Equal(t, []float64{0.02, -0.01, 0.03}, returns)
}

func TestEstimateVaR_NoNegativeZero(t *testing.T) {
	v := EstimateVaR([]float64{0, 0, 0}, 100)
	assert.False(t, math.Signbit(v.VaR95))
	assert.False(t, math.Signbit(v.VaR99))
}

func TestEstimateVaR_AllGainsIsZeroLoss(t *testing.T) {
	v := EstimateVaR([]float64{0.04, 0.01, 0.02}, 10000)
	assert.Equal(t, 0.0, v.VaR95)
	assert.Equal(t, 0.0, v.VaR99)
	assert.False(t, math.Signbit(v.VaR95))
}

func TestClassifyRiskLevel(t *testing.T) {
	tests := []struct {
		var95    float64
		total    float64
		expected RiskLevel
	}{
		{var95: 0, total: 0, expected: RiskLevelLow},
		{var95: 400, total: 10000, expected: RiskLevelLow},
		{var95: 499, total: 10000, expected: RiskLevelLow},
		{var95: 501, total: 10000, expected: RiskLevelMedium},
		{var95: 999, total: 10000, expected: RiskLevelMedium},
		{var95: 1001, total: 10000, expected: RiskLevelHigh},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ClassifyRiskLevel(tt.var95, tt.total), "var95=%v total=%v", tt.var95, tt.total)
	}
}
