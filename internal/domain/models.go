// Package domain provides core domain models and types.
package domain

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/aristath/riskdash/pkg/formulas"
)

// AssetClass is the closed set of instrument kinds the risk engine understands.
type AssetClass string

const (
	AssetClassEquity    AssetClass = "equity"
	AssetClassCrypto    AssetClass = "crypto"
	AssetClassBond      AssetClass = "bond"
	AssetClassCommodity AssetClass = "commodity"
)

// AssetClasses lists every supported asset class in a stable order.
var AssetClasses = []AssetClass{
	AssetClassEquity,
	AssetClassCrypto,
	AssetClassBond,
	AssetClassCommodity,
}

// ParseAssetClass parses a case-insensitive asset class name.
func ParseAssetClass(s string) (AssetClass, error) {
	c := AssetClass(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", &ValidationError{Field: "asset_class", Reason: fmt.Sprintf("unknown asset class %q", s)}
	}
	return c, nil
}

// Valid reports whether c is one of the supported asset classes.
func (c AssetClass) Valid() bool {
	switch c {
	case AssetClassEquity, AssetClassCrypto, AssetClassBond, AssetClassCommodity:
		return true
	}
	return false
}

func (c AssetClass) String() string {
	return string(c)
}

// Default bond sensitivities.
const (
	DefaultModifiedDuration = formulas.DefaultModifiedDuration
	DefaultConvexity        = formulas.DefaultConvexity
)

// Position is a priced holding as seen by the risk engine.
type Position struct {
	AssetClass AssetClass `json:"asset_class"`
	// Identifier is the ticker for equities and crypto, the rate series id
	// for bonds and the commodity name for commodities.
	Identifier   string  `json:"identifier"`
	Quantity     float64 `json:"quantity"`
	CurrentValue float64 `json:"current_value"`
	// Optional bond sensitivities; defaults apply when nil.
	ModifiedDuration *float64 `json:"modified_duration,omitempty"`
	Convexity        *float64 `json:"convexity,omitempty"`
}

// DurationOrDefault returns the modified duration, falling back to the default of 5.
func (p Position) DurationOrDefault() float64 {
	if p.ModifiedDuration != nil {
		return *p.ModifiedDuration
	}
	return DefaultModifiedDuration
}

// ConvexityOrDefault returns the convexity, falling back to 0.
func (p Position) ConvexityOrDefault() float64 {
	if p.Convexity != nil {
		return *p.Convexity
	}
	return DefaultConvexity
}

// Validate rejects positions the engine cannot evaluate.
func (p Position) Validate() error {
	if !p.AssetClass.Valid() {
		return &ValidationError{Field: "asset_class", Reason: fmt.Sprintf("unknown asset class %q", p.AssetClass)}
	}
	if strings.TrimSpace(p.Identifier) == "" {
		return &ValidationError{Field: "identifier", Reason: "must not be empty"}
	}
	if err := checkFinite("quantity", p.Quantity); err != nil {
		return err
	}
	if p.Quantity < 0 {
		return &ValidationError{Field: "quantity", Reason: "must not be negative"}
	}
	if err := checkFinite("current_value", p.CurrentValue); err != nil {
		return err
	}
	if p.CurrentValue < 0 {
		return &ValidationError{Field: "current_value", Reason: "must not be negative"}
	}
	if p.ModifiedDuration != nil {
		if err := checkFinite("modified_duration", *p.ModifiedDuration); err != nil {
			return err
		}
	}
	if p.Convexity != nil {
		if err := checkFinite("convexity", *p.Convexity); err != nil {
			return err
		}
	}
	return nil
}

// PriceObservation is one dated point of a price or yield series.
// A NaN value marks a missing observation.
type PriceObservation struct {
	Date  time.Time `json:"date" msgpack:"d"`
	Value float64   `json:"value" msgpack:"v"`
}

// Values extracts the observation values in order.
func Values(obs []PriceObservation) []float64 {
	values := make([]float64, len(obs))
	for i, o := range obs {
		values[i] = o.Value
	}
	return values
}

func checkFinite(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return &ValidationError{Field: field, Reason: "must be a finite number"}
	}
	return nil
}
