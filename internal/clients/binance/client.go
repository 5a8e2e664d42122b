// Package binance fetches daily crypto candles from the Binance public API.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Kline is one daily candle.
type Kline struct {
	OpenTime time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
}

// Client for the Binance spot market data API
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a new Binance client
func NewClient(log zerolog.Logger) *Client {
	return &Client{
		baseURL: "https://api.binance.com",
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     log.With().Str("client", "binance").Logger(),
	}
}

// SetBaseURL overrides the API endpoint (used by tests).
func (c *Client) SetBaseURL(u string) {
	c.baseURL = u
}

// GetDailyKlines returns up to 1000 daily candles between start and end, oldest first.
func (c *Client) GetDailyKlines(ctx context.Context, symbol string, start, end time.Time) ([]Kline, error) {
	params := url.Values{}
	params.Set("symbol", strings.ToUpper(symbol))
	params.Set("interval", "1d")
	params.Set("startTime", strconv.FormatInt(start.UnixMilli(), 10))
	params.Set("endTime", strconv.FormatInt(end.UnixMilli(), 10))
	params.Set("limit", "1000")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v3/klines?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	c.log.Debug().Str("symbol", symbol).Msg("Fetching klines")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Code int    `json:"code"`
			Msg  string `json:"msg"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Msg != "" {
			return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, apiErr.Msg)
		}
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var raw [][]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return parseKlines(raw)
}

// parseKlines decodes the positional kline arrays:
// [openTime, open, high, low, close, volume, ...]
func parseKlines(raw [][]json.RawMessage) ([]Kline, error) {
	klines := make([]Kline, 0, len(raw))
	for i, row := range raw {
		if len(row) < 6 {
			return nil, fmt.Errorf("kline %d: expected at least 6 fields, got %d", i, len(row))
		}

		var openMs int64
		if err := json.Unmarshal(row[0], &openMs); err != nil {
			return nil, fmt.Errorf("kline %d: invalid open time: %w", i, err)
		}

		fields := make([]float64, 5)
		for j := 1; j <= 5; j++ {
			var s string
			if err := json.Unmarshal(row[j], &s); err != nil {
				return nil, fmt.Errorf("kline %d: field %d is not a string: %w", i, j, err)
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("kline %d: field %d: %w", i, j, err)
			}
			fields[j-1] = v
		}

		klines = append(klines, Kline{
			OpenTime: time.UnixMilli(openMs).UTC(),
			Open:     fields[0],
			High:     fields[1],
			Low:      fields[2],
			Close:    fields[3],
			Volume:   fields[4],
		})
	}
	return klines, nil
}
