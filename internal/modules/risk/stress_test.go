package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/riskdash/internal/domain"
)

func bond(id string, value float64) domain.Position {
	return domain.Position{AssetClass: domain.AssetClassBond, Identifier: id, Quantity: 1, CurrentValue: value}
}

func TestRunStressTests_SevereEquity(t *testing.T) {
	positions := []domain.Position{equity("AAPL", 10000)}
	severe := domain.DefaultScenarios()[1]

	results, err := RunStressTests(positions, []domain.Scenario{severe})
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, "Severe Risk-Off", results[0].ScenarioName)
	assert.InDelta(t, 2000.0, results[0].Loss, 1e-9)
	assert.InDelta(t, 20.0, results[0].LossPct, 1e-9)
	assert.Equal(t, SeverityModerate, results[0].Severity)
	assert.Equal(t, severe, results[0].Assumptions)
}

func TestRunStressTests_BondDuration(t *testing.T) {
	positions := []domain.Position{bond("DGS10", 10000)}
	scenario := domain.Scenario{Name: "+100bps", RateShockBps: 100}

	results, err := RunStressTests(positions, []domain.Scenario{scenario})
	require.NoError(t, err)

	assert.InDelta(t, 500.0, results[0].Loss, 1e-9)
}

func TestRunStressTests_BondConvexity(t *testing.T) {
	d, c := 8.0, 100.0
	p := bond("DGS30", 10000)
	p.ModifiedDuration, p.Convexity = &d, &c

	results, err := RunStressTests([]domain.Position{p}, []domain.Scenario{{Name: "rally", RateShockBps: -100}})
	require.NoError(t, err)

	// dP/P = 8*0.01 + 0.5*100*0.0001 = 0.085 -> gain of 850
	assert.InDelta(t, -850.0, results[0].Loss, 1e-9)
	assert.Equal(t, SeverityMild, results[0].Severity)
}

func TestRunStressTests_MixedPortfolioPreservesOrder(t *testing.T) {
	positions := []domain.Position{
		equity("AAPL", 10000),
		{AssetClass: domain.AssetClassCrypto, Identifier: "BTCUSDT", Quantity: 0.1, CurrentValue: 5000},
		{AssetClass: domain.AssetClassCommodity, Identifier: "gold", Quantity: 2, CurrentValue: 4000},
		bond("DGS10", 1000),
	}
	scenarios := domain.DefaultScenarios()

	results, err := RunStressTests(positions, scenarios)
	require.NoError(t, err)
	require.Len(t, results, 3)

	for i, sc := range scenarios {
		assert.Equal(t, sc.Name, results[i].ScenarioName)
	}

	// Mild: 1000 + 750 + 320 + 1000*5*0.005
	assert.InDelta(t, 2095.0, results[0].Loss, 1e-9)
	// Severe: 2000 + 1500 + 600 + 50
	assert.InDelta(t, 4150.0, results[1].Loss, 1e-9)
	// Rates: 500 + 500 + 80 + 100
	assert.InDelta(t, 1180.0, results[2].Loss, 1e-9)
}

func TestRunStressTests_NoScenarios(t *testing.T) {
	results, err := RunStressTests([]domain.Position{equity("A", 1)}, []domain.Scenario{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRunStressTests_ZeroValueHasZeroPct(t *testing.T) {
	results, err := RunStressTests([]domain.Position{equity("A", 0)}, domain.DefaultScenarios())
	require.NoError(t, err)
	for _, r := range results {
		assert.Equal(t, 0.0, r.Loss)
		assert.Equal(t, 0.0, r.LossPct)
	}
}

func TestRunStressTests_RejectsUnknownClass(t *testing.T) {
	_, err := RunStressTests([]domain.Position{{AssetClass: "fx", Identifier: "EURUSD", CurrentValue: 1}}, domain.DefaultScenarios())
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
}

func TestClassifySeverity(t *testing.T) {
	assert.Equal(t, SeverityMild, classifySeverity(-5))
	assert.Equal(t, SeverityMild, classifySeverity(19.9))
	assert.Equal(t, SeverityModerate, classifySeverity(20))
	assert.Equal(t, SeveritySevere, classifySeverity(30))
}
