package formulas

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMean(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.InDelta(t, 2.0, Mean([]float64{1, 2, 3}), 1e-12)
}

func TestPopStdDev(t *testing.T) {
	tests := []struct {
		name     string
		data     []float64
		expected float64
	}{
		{name: "empty", data: nil, expected: 0},
		{name: "constant", data: []float64{0.01, 0.01, 0.01}, expected: 0},
		{name: "population", data: []float64{2, 4, 4, 4, 5, 5, 7, 9}, expected: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, PopStdDev(tt.data), 1e-12)
		})
	}
}

func TestAnnualizedVolatility(t *testing.T) {
	assert.Equal(t, 0.0, AnnualizedVolatility(nil))

	returns := []float64{0.01, -0.01, 0.01, -0.01}
	assert.InDelta(t, 0.01*math.Sqrt(252), AnnualizedVolatility(returns), 1e-12)
}
