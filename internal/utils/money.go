package utils

import "github.com/shopspring/decimal"

// RoundCents rounds a currency amount half away from zero to two decimals.
func RoundCents(v float64) float64 {
	return Round(v, 2)
}

// Round rounds v half away from zero to places decimals using exact decimal arithmetic.
func Round(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}
