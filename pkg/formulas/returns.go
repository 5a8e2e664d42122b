// Package formulas provides the numeric building blocks of the risk engine.
package formulas

import "math"

// IsMissing reports whether an observation is absent. Missing values are
// encoded as NaN by the price history layer.
func IsMissing(v float64) bool {
	return math.IsNaN(v)
}

// PercentChange converts a price series to simple returns.
// Returns[i] = (s[i+1] - s[i]) / s[i], or 0 when the previous value is zero
// or either value is missing. The result has length max(0, n-1).
func PercentChange(series []float64) []float64 {
	if len(series) < 2 {
		return []float64{}
	}

	returns := make([]float64, len(series)-1)
	for i := 1; i < len(series); i++ {
		prev, cur := series[i-1], series[i]
		if IsMissing(prev) || IsMissing(cur) || prev == 0 {
			continue
		}
		returns[i-1] = (cur - prev) / prev
	}

	return returns
}

// FirstDiff returns the absolute change between consecutive observations,
// or 0 when either value is missing. The result has length max(0, n-1).
func FirstDiff(series []float64) []float64 {
	if len(series) < 2 {
		return []float64{}
	}

	diffs := make([]float64, len(series)-1)
	for i := 1; i < len(series); i++ {
		prev, cur := series[i-1], series[i]
		if IsMissing(prev) || IsMissing(cur) {
			continue
		}
		diffs[i-1] = cur - prev
	}

	return diffs
}
