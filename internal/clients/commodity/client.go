// Package commodity fetches historical commodity prices from the RapidAPI commodity-prices service.
package commodity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const rapidAPIHost = "commodity-prices2.p.rapidapi.com"

// ErrMissingAPIKey is returned when no RapidAPI key is configured.
var ErrMissingAPIKey = errors.New("rapidapi key is not configured")

// ErrUnknownCommodity is returned for names without an upstream mapping.
type ErrUnknownCommodity struct {
	Name string
}

func (e ErrUnknownCommodity) Error() string {
	return fmt.Sprintf("unknown commodity %q", e.Name)
}

// apiNames maps user-facing commodity names to upstream identifiers.
var apiNames = map[string]string{
	"gold":        "XAU/USD",
	"silver":      "XAG/USD",
	"oil":         "Crude Oil",
	"brent":       "Brent",
	"natural gas": "Natural gas",
	"gasoline":    "Gasoline",
	"heating oil": "Heating Oil",
}

// APIName resolves a commodity name (case-insensitive) to its upstream identifier.
func APIName(name string) (string, bool) {
	n, ok := apiNames[strings.ToLower(strings.TrimSpace(name))]
	return n, ok
}

// Price is one dated commodity price.
type Price struct {
	Date  time.Time
	Price float64
}

// Client for the RapidAPI commodity prices service
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a new commodity prices client
func NewClient(apiKey string, log zerolog.Logger) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: "https://" + rapidAPIHost,
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     log.With().Str("client", "commodity").Logger(),
	}
}

// SetBaseURL overrides the API endpoint (used by tests).
func (c *Client) SetBaseURL(u string) {
	c.baseURL = u
}

// GetHistorical returns up to limit daily prices for a commodity, oldest first.
func (c *Client) GetHistorical(ctx context.Context, name string, limit int) ([]Price, error) {
	apiName, ok := APIName(name)
	if !ok {
		return nil, ErrUnknownCommodity{Name: name}
	}
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	endpoint := fmt.Sprintf("%s/api/commodity/%s/historical?limit=%d", c.baseURL, url.PathEscape(apiName), limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("x-rapidapi-key", c.apiKey)
	req.Header.Set("x-rapidapi-host", rapidAPIHost)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var raw []struct {
		Date  string          `json:"date"`
		Price json.RawMessage `json:"price"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	prices := make([]Price, 0, len(raw))
	for _, r := range raw {
		date, ok := parseDate(r.Date)
		if !ok {
			continue
		}
		v, ok := parsePrice(r.Price)
		if !ok {
			continue
		}
		prices = append(prices, Price{Date: date, Price: v})
	}

	sort.Slice(prices, func(i, j int) bool {
		return prices[i].Date.Before(prices[j].Date)
	})

	return prices, nil
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// parsePrice accepts both JSON numbers and numeric strings.
func parsePrice(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
