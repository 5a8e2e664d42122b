package risk

import (
	"fmt"
	"math"

	"github.com/aristath/riskdash/internal/domain"
)

// Thresholds are the currency levels at or above which alerts fire.
type Thresholds struct {
	VaR95      float64 `json:"var_95"`
	VaR99      float64 `json:"var_99"`
	StressLoss float64 `json:"stress_loss"`
}

// DefaultThresholds returns the standard alert levels.
func DefaultThresholds() Thresholds {
	return Thresholds{
		VaR95:      1000,
		VaR99:      2000,
		StressLoss: 3000,
	}
}

// Validate rejects negative or non-finite thresholds.
func (t Thresholds) Validate() error {
	return validateThresholdValues(map[string]*float64{
		"thresholds.var_95":      &t.VaR95,
		"thresholds.var_99":      &t.VaR99,
		"thresholds.stress_loss": &t.StressLoss,
	})
}

// ThresholdOverrides replaces individual thresholds. Nil fields keep the base value.
type ThresholdOverrides struct {
	VaR95      *float64 `json:"var_95"`
	VaR99      *float64 `json:"var_99"`
	StressLoss *float64 `json:"stress_loss"`
}

// Validate rejects negative or non-finite overrides.
func (o ThresholdOverrides) Validate() error {
	return validateThresholdValues(map[string]*float64{
		"thresholds.var_95":      o.VaR95,
		"thresholds.var_99":      o.VaR99,
		"thresholds.stress_loss": o.StressLoss,
	})
}

// Apply returns base with every set override applied.
func (o ThresholdOverrides) Apply(base Thresholds) Thresholds {
	if o.VaR95 != nil {
		base.VaR95 = *o.VaR95
	}
	if o.VaR99 != nil {
		base.VaR99 = *o.VaR99
	}
	if o.StressLoss != nil {
		base.StressLoss = *o.StressLoss
	}
	return base
}

func validateThresholdValues(values map[string]*float64) error {
	for _, field := range []string{"thresholds.var_95", "thresholds.var_99", "thresholds.stress_loss"} {
		v := values[field]
		if v == nil {
			continue
		}
		if math.IsNaN(*v) || math.IsInf(*v, 0) {
			return &domain.ValidationError{Field: field, Reason: "must be finite"}
		}
		if *v < 0 {
			return &domain.ValidationError{Field: field, Reason: "must not be negative"}
		}
	}
	return nil
}

// AlertKind identifies which metric breached.
type AlertKind string

const (
	AlertKindVaR95      AlertKind = "var_95"
	AlertKindVaR99      AlertKind = "var_99"
	AlertKindStressLoss AlertKind = "stress_loss"
)

// Alert is a single threshold breach.
type Alert struct {
	Kind      AlertKind `json:"kind"`
	Value     float64   `json:"value"`
	Threshold float64   `json:"threshold"`
	Scenario  string    `json:"scenario,omitempty"`
	Message   string    `json:"message"`
}

// GenerateAlerts emits one alert per breach: VaR95, VaR99, then stress
// scenarios in result order.
func GenerateAlerts(v VaRMetrics, stress []StressResult, t Thresholds) []Alert {
	alerts := []Alert{}

	if v.VaR95 >= t.VaR95 {
		alerts = append(alerts, Alert{
			Kind:      AlertKindVaR95,
			Value:     v.VaR95,
			Threshold: t.VaR95,
			Message:   fmt.Sprintf("⚠️ VaR 95%% exceeds threshold: $%.2f", v.VaR95),
		})
	}

	if v.VaR99 >= t.VaR99 {
		alerts = append(alerts, Alert{
			Kind:      AlertKindVaR99,
			Value:     v.VaR99,
			Threshold: t.VaR99,
			Message:   fmt.Sprintf("⚠️ VaR 99%% exceeds threshold: $%.2f", v.VaR99),
		})
	}

	for _, s := range stress {
		if s.Loss >= t.StressLoss {
			alerts = append(alerts, Alert{
				Kind:      AlertKindStressLoss,
				Value:     s.Loss,
				Threshold: t.StressLoss,
				Scenario:  s.ScenarioName,
				Message:   fmt.Sprintf("⚠️ Stress test loss $%.2f exceeds threshold in \"%s\"", s.Loss, s.ScenarioName),
			})
		}
	}

	return alerts
}

// Messages extracts alert texts in order.
func Messages(alerts []Alert) []string {
	out := make([]string, len(alerts))
	for i, a := range alerts {
		out[i] = a.Message
	}
	return out
}
