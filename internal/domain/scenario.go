package domain

import (
	"math"
	"strings"
)

// Scenario is a deterministic set of market shocks.
// Shocks are fractional changes (-0.10 = -10%); RateShockBps is a parallel
// yield move in basis points.
type Scenario struct {
	Name           string  `json:"name"`
	EquityShock    float64 `json:"equity_shock"`
	CryptoShock    float64 `json:"crypto_shock"`
	CommodityShock float64 `json:"commodity_shock"`
	RateShockBps   float64 `json:"rate_shock_bps"`
}

// Validate checks that a scenario is named and has finite shocks.
func (s Scenario) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	checks := []struct {
		field string
		value float64
	}{
		{"equity_shock", s.EquityShock},
		{"crypto_shock", s.CryptoShock},
		{"commodity_shock", s.CommodityShock},
		{"rate_shock_bps", s.RateShockBps},
	}
	for _, c := range checks {
		if math.IsNaN(c.value) || math.IsInf(c.value, 0) {
			return &ValidationError{Field: c.field, Reason: "must be a finite number"}
		}
	}
	return nil
}

// DefaultScenarios returns the built-in stress scenario set.
func DefaultScenarios() []Scenario {
	return []Scenario{
		{Name: "Mild Risk-Off", EquityShock: -0.10, CryptoShock: -0.15, CommodityShock: -0.08, RateShockBps: 50},
		{Name: "Severe Risk-Off", EquityShock: -0.20, CryptoShock: -0.30, CommodityShock: -0.15, RateShockBps: 100},
		{Name: "Rates Shock", EquityShock: -0.05, CryptoShock: -0.10, CommodityShock: -0.02, RateShockBps: 200},
	}
}
