package clientdata

import "time"

// TTL constants for price history by asset class.
// These are added to time.Now() when storing to calculate expires_at.
const (
	TTLEquityHistory    = time.Hour        // Daily closes, refreshed hourly
	TTLCryptoHistory    = 5 * time.Minute  // Trades around the clock
	TTLBondHistory      = time.Hour        // FRED publishes once a day
	TTLCommodityHistory = 5 * time.Minute  // Intraday-updated quotes

	// StaleRetention keeps expired entries around as a fallback when upstreams fail.
	StaleRetention = 7 * 24 * time.Hour
)
