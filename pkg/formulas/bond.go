package formulas

// Default bond sensitivities applied when a position does not carry its own.
const (
	DefaultModifiedDuration = 5.0
	DefaultConvexity        = 0.0
)

// BondPriceReturn approximates the price return of a bond for a yield move dy
// (in decimal, 0.01 = 100bps) using a second order Taylor expansion:
// r = -D*dy + 0.5*C*dy^2
func BondPriceReturn(dy, duration, convexity float64) float64 {
	return -duration*dy + 0.5*convexity*dy*dy
}

// BondPriceReturns maps a series of yield changes to price returns.
func BondPriceReturns(dy []float64, duration, convexity float64) []float64 {
	returns := make([]float64, len(dy))
	for i, d := range dy {
		returns[i] = BondPriceReturn(d, duration, convexity)
	}
	return returns
}

// BasisPointsToDecimal converts basis points to a decimal yield change.
func BasisPointsToDecimal(bps float64) float64 {
	return bps / 10000
}
