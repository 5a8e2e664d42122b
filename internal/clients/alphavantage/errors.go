package alphavantage

import "fmt"

// ErrRateLimitExceeded is returned when the daily or per-minute allowance is used up.
type ErrRateLimitExceeded struct{}

func (ErrRateLimitExceeded) Error() string {
	return "alpha vantage rate limit exceeded"
}

// ErrInvalidAPIKey is returned when the API key is missing or rejected.
type ErrInvalidAPIKey struct{}

func (ErrInvalidAPIKey) Error() string {
	return "alpha vantage API key is invalid or missing"
}

// ErrSymbolNotFound is returned when the API has no series for a symbol.
type ErrSymbolNotFound struct {
	Symbol string
}

func (e ErrSymbolNotFound) Error() string {
	return fmt.Sprintf("no daily series found for symbol %s", e.Symbol)
}
