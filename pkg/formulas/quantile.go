package formulas

import (
	"math"
	"sort"
)

// HistoricalQuantile returns the empirical p-quantile of an ascending sorted
// series, picking index floor(p*(n-1)) clamped to the series bounds.
// It returns 0 for an empty series.
func HistoricalQuantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}

	idx := int(math.Floor(p * float64(n-1)))
	if idx < 0 {
		idx = 0
	}
	if idx > n-1 {
		idx = n - 1
	}

	return sorted[idx]
}

// SortedCopy returns an ascending copy of data, leaving the input untouched.
func SortedCopy(data []float64) []float64 {
	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)
	return sorted
}
