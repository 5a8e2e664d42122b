package domain

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAssetClass(t *testing.T) {
	for _, in := range []string{"equity", "EQUITY", " Crypto ", "bond", "commodity"} {
		c, err := ParseAssetClass(in)
		require.NoError(t, err, in)
		assert.True(t, c.Valid())
	}

	_, err := ParseAssetClass("real_estate")
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestPosition_Validate(t *testing.T) {
	d := 7.0
	nan := math.NaN()

	tests := []struct {
		name    string
		pos     Position
		wantErr string
	}{
		{name: "valid equity", pos: Position{AssetClass: AssetClassEquity, Identifier: "AAPL", Quantity: 10, CurrentValue: 1500}},
		{name: "valid bond with duration", pos: Position{AssetClass: AssetClassBond, Identifier: "DGS10", Quantity: 1, CurrentValue: 1000, ModifiedDuration: &d}},
		{name: "zero value allowed", pos: Position{AssetClass: AssetClassCrypto, Identifier: "BTCUSDT"}},
		{name: "unknown class", pos: Position{AssetClass: "fx", Identifier: "EURUSD"}, wantErr: "asset_class"},
		{name: "empty identifier", pos: Position{AssetClass: AssetClassEquity, Identifier: " "}, wantErr: "identifier"},
		{name: "negative quantity", pos: Position{AssetClass: AssetClassEquity, Identifier: "X", Quantity: -1}, wantErr: "quantity"},
		{name: "negative value", pos: Position{AssetClass: AssetClassEquity, Identifier: "X", CurrentValue: -5}, wantErr: "current_value"},
		{name: "nan value", pos: Position{AssetClass: AssetClassEquity, Identifier: "X", CurrentValue: nan}, wantErr: "current_value"},
		{name: "inf quantity", pos: Position{AssetClass: AssetClassEquity, Identifier: "X", Quantity: math.Inf(1)}, wantErr: "quantity"},
		{name: "nan duration", pos: Position{AssetClass: AssetClassBond, Identifier: "X", ModifiedDuration: &nan}, wantErr: "modified_duration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.pos.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.True(t, IsValidation(err))
		})
	}
}

func TestPosition_BondDefaults(t *testing.T) {
	p := Position{AssetClass: AssetClassBond, Identifier: "DGS10"}
	assert.Equal(t, 5.0, p.DurationOrDefault())
	assert.Equal(t, 0.0, p.ConvexityOrDefault())

	d, c := 8.5, 90.0
	p.ModifiedDuration, p.Convexity = &d, &c
	assert.Equal(t, 8.5, p.DurationOrDefault())
	assert.Equal(t, 90.0, p.ConvexityOrDefault())
}

func TestValues(t *testing.T) {
	obs := []PriceObservation{{Value: 1}, {Value: 2}}
	assert.Equal(t, []float64{1, 2}, Values(obs))
	assert.Empty(t, Values(nil))
}

func TestIsValidation_Wrapped(t *testing.T) {
	err := fmt.Errorf("position 3: %w", &ValidationError{Field: "quantity", Reason: "must not be negative"})
	assert.True(t, IsValidation(err))
	assert.True(t, IsValidation(fmt.Errorf("evaluate: %w", ErrNilPortfolio)))
	assert.False(t, IsValidation(errors.New("boom")))
}
