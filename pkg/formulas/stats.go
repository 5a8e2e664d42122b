package formulas

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// TradingDaysPerYear is used to annualize daily statistics.
const TradingDaysPerYear = 252

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// PopStdDev calculates the population standard deviation (divides by n).
func PopStdDev(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return math.Sqrt(stat.PopVariance(data, nil))
}

// AnnualizedVolatility calculates annualized volatility from daily returns
// Formula: population std dev of daily returns * sqrt(252 trading days)
func AnnualizedVolatility(dailyReturns []float64) float64 {
	if len(dailyReturns) == 0 {
		return 0
	}
	return PopStdDev(dailyReturns) * math.Sqrt(TradingDaysPerYear)
}
