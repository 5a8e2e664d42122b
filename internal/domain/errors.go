package domain

import (
	"errors"
	"fmt"
)

// ErrNilPortfolio is returned when an evaluation is requested without a portfolio.
var ErrNilPortfolio = errors.New("portfolio is nil")

// ValidationError describes malformed input to the risk engine.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is (or wraps) a validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) || errors.Is(err, ErrNilPortfolio)
}
