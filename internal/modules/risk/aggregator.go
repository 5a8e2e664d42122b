package risk

import (
	"sort"
	"time"

	"github.com/aristath/riskdash/internal/domain"
)

// Aggregate is a value-weighted portfolio return series.
type Aggregate struct {
	Returns []float64
	// Dates is populated only for date-aligned aggregation.
	Dates      []time.Time
	TotalValue float64
	Weights    []float64
}

// TotalValue sums current values across positions.
func TotalValue(positions []domain.Position) float64 {
	total := 0.0
	for _, p := range positions {
		total += p.CurrentValue
	}
	return total
}

// AggregateReturns combines per-position return series into a portfolio
// return series weighted by current value. series[i] belongs to positions[i].
//
// If the portfolio has no value, or any position lacks data, the result has
// no returns. Partial portfolios are never estimated.
func AggregateReturns(positions []domain.Position, series []SeriesOutcome, alignment Alignment) Aggregate {
	agg := Aggregate{
		Returns:    []float64{},
		TotalValue: TotalValue(positions),
	}
	if agg.TotalValue == 0 || len(positions) == 0 || len(series) != len(positions) {
		return agg
	}

	agg.Weights = make([]float64, len(positions))
	for i, p := range positions {
		agg.Weights[i] = p.CurrentValue / agg.TotalValue
	}

	for _, s := range series {
		if !s.Ok() {
			return agg
		}
	}

	switch alignment {
	case AlignByDate:
		agg.Returns, agg.Dates = combineByDate(series, agg.Weights)
	default:
		agg.Returns = combineByIndex(series, agg.Weights)
	}

	return agg
}

func combineByIndex(series []SeriesOutcome, weights []float64) []float64 {
	minLen := len(series[0].Returns)
	for _, s := range series[1:] {
		if len(s.Returns) < minLen {
			minLen = len(s.Returns)
		}
	}

	out := make([]float64, minLen)
	for i := 0; i < minLen; i++ {
		sum := 0.0
		for p, s := range series {
			sum += weights[p] * s.Returns[i]
		}
		out[i] = sum
	}
	return out
}

// combineByDate keeps only calendar days present in every series.
func combineByDate(series []SeriesOutcome, weights []float64) ([]float64, []time.Time) {
	byDate := make([]map[string]float64, len(series))
	dates := make(map[string]time.Time)
	for p, s := range series {
		byDate[p] = make(map[string]float64, len(s.Returns))
		for i, r := range s.Returns {
			if i >= len(s.Dates) {
				break
			}
			k := s.Dates[i].UTC().Format("2006-01-02")
			byDate[p][k] = r
			if _, ok := dates[k]; !ok {
				dates[k] = s.Dates[i]
			}
		}
	}

	common := make([]string, 0, len(byDate[0]))
	for k := range byDate[0] {
		inAll := true
		for p := 1; p < len(byDate); p++ {
			if _, ok := byDate[p][k]; !ok {
				inAll = false
				break
			}
		}
		if inAll {
			common = append(common, k)
		}
	}
	sort.Strings(common)

	returns := make([]float64, len(common))
	out := make([]time.Time, len(common))
	for i, k := range common {
		sum := 0.0
		for p := range series {
			sum += weights[p] * byDate[p][k]
		}
		returns[i] = sum
		out[i] = dates[k]
	}
	return returns, out
}
