// Package alphavantage provides a rate-limited Alpha Vantage client for daily equity prices.
package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultBaseURL = "https://www.alphavantage.co/query"
	// Free tier allowance
	defaultDailyLimit = 25
)

// ClientInterface is the subset of the client used by the history provider.
type ClientInterface interface {
	GetDailyPrices(ctx context.Context, symbol string, full bool) ([]DailyPrice, error)
	GetRemainingRequests() int
}

// DailyPrice is one TIME_SERIES_DAILY bar.
type DailyPrice struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// CacheTTL configures how long responses are kept in memory.
type CacheTTL struct {
	PriceData time.Duration
}

// DefaultCacheTTL returns the default cache durations.
func DefaultCacheTTL() CacheTTL {
	return CacheTTL{
		PriceData: 15 * time.Minute,
	}
}

type cacheEntry struct {
	data      interface{}
	expiresAt time.Time
}

// Client for the Alpha Vantage REST API
type Client struct {
	apiKey   string
	baseURL  string
	client   *http.Client
	log      zerolog.Logger
	cacheTTL CacheTTL

	mu           sync.Mutex
	dailyLimit   int
	requestCount int
	resetAt      time.Time

	cacheMu sync.RWMutex
	cache   map[string]cacheEntry
}

// NewClient creates a new Alpha Vantage client
func NewClient(apiKey string, log zerolog.Logger) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		client:     &http.Client{Timeout: 15 * time.Second},
		log:        log.With().Str("client", "alphavantage").Logger(),
		cacheTTL:   DefaultCacheTTL(),
		dailyLimit: defaultDailyLimit,
		resetAt:    nextMidnightUTC(),
		cache:      make(map[string]cacheEntry),
	}
}

// SetBaseURL overrides the API endpoint (used by tests).
func (c *Client) SetBaseURL(u string) {
	c.baseURL = u
}

// SetCacheTTL replaces the cache durations.
func (c *Client) SetCacheTTL(ttl CacheTTL) {
	c.cacheTTL = ttl
}

// GetRemainingRequests returns the requests left before the daily limit.
func (c *Client) GetRemainingRequests() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maybeResetLocked()
	return c.dailyLimit - c.requestCount
}

// ResetDailyCounter clears the request counter.
func (c *Client) ResetDailyCounter() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requestCount = 0
	c.resetAt = nextMidnightUTC()
}

// ClearCache drops all cached responses.
func (c *Client) ClearCache() {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	c.cache = make(map[string]cacheEntry)
}

// GetDailyPrices fetches TIME_SERIES_DAILY for symbol, newest first.
// full requests the complete history instead of the last 100 days.
func (c *Client) GetDailyPrices(ctx context.Context, symbol string, full bool) ([]DailyPrice, error) {
	outputSize := "compact"
	if full {
		outputSize = "full"
	}
	params := map[string]string{
		"symbol":     symbol,
		"outputsize": outputSize,
	}

	cacheKey := buildCacheKey("TIME_SERIES_DAILY", params)
	if cached, ok := c.getFromCache(cacheKey); ok {
		if prices, ok := cached.([]DailyPrice); ok {
			c.log.Debug().Str("symbol", symbol).Msg("Cache hit")
			return prices, nil
		}
	}

	body, err := c.doRequest(ctx, "TIME_SERIES_DAILY", params)
	if err != nil {
		return nil, err
	}

	prices, err := parseDailyTimeSeries(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse daily series for %s: %w", symbol, err)
	}
	if len(prices) == 0 {
		return nil, ErrSymbolNotFound{Symbol: symbol}
	}

	c.setCache(cacheKey, prices, c.cacheTTL.PriceData)
	return prices, nil
}

func (c *Client) doRequest(ctx context.Context, function string, params map[string]string) ([]byte, error) {
	if c.apiKey == "" {
		return nil, ErrInvalidAPIKey{}
	}
	if err := c.checkRateLimit(); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("function", function)
	q.Set("apikey", c.apiKey)
	for k, v := range params {
		q.Set(k, v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	if err := c.checkAPIError(body); err != nil {
		return nil, err
	}

	return body, nil
}

// checkRateLimit consumes one request from the daily allowance.
func (c *Client) checkRateLimit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maybeResetLocked()

	if c.requestCount >= c.dailyLimit {
		return ErrRateLimitExceeded{}
	}
	c.requestCount++
	return nil
}

func (c *Client) maybeResetLocked() {
	if time.Now().UTC().After(c.resetAt) {
		c.requestCount = 0
		c.resetAt = nextMidnightUTC()
	}
}

// checkAPIError detects error payloads that come back with HTTP 200.
func (c *Client) checkAPIError(body []byte) error {
	if strings.Contains(string(body), "Thank you for using Alpha Vantage") {
		return ErrRateLimitExceeded{}
	}

	var envelope struct {
		Note         string `json:"Note"`
		Information  string `json:"Information"`
		ErrorMessage string `json:"Error Message"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil
	}

	switch {
	case envelope.Note != "":
		return ErrRateLimitExceeded{}
	case envelope.ErrorMessage != "":
		return fmt.Errorf("alpha vantage error: %s", envelope.ErrorMessage)
	case strings.Contains(strings.ToLower(envelope.Information), "api key"):
		return ErrInvalidAPIKey{}
	case envelope.Information != "":
		return ErrRateLimitExceeded{}
	}
	return nil
}

func (c *Client) setCache(key string, data interface{}, ttl time.Duration) {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	c.cache[key] = cacheEntry{data: data, expiresAt: time.Now().Add(ttl)}
}

func (c *Client) getFromCache(key string) (interface{}, bool) {
	c.cacheMu.RLock()
	defer c.cacheMu.RUnlock()
	entry, ok := c.cache[key]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.data, true
}

// buildCacheKey builds a stable key from the function and its params, never including the API key.
func buildCacheKey(function string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "apikey" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(function)
	for _, k := range keys {
		b.WriteString("|")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(params[k])
	}
	return b.String()
}

func parseDailyTimeSeries(body []byte) ([]DailyPrice, error) {
	var raw struct {
		Series map[string]map[string]string `json:"Time Series (Daily)"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}

	prices := make([]DailyPrice, 0, len(raw.Series))
	for ds, bar := range raw.Series {
		date := parseDate(ds)
		if date.IsZero() {
			continue
		}
		prices = append(prices, DailyPrice{
			Date:   date,
			Open:   parseFloat64(bar["1. open"]),
			High:   parseFloat64(bar["2. high"]),
			Low:    parseFloat64(bar["3. low"]),
			Close:  parseFloat64(bar["4. close"]),
			Volume: parseInt64(bar["5. volume"]),
		})
	}

	sort.Slice(prices, func(i, j int) bool {
		return prices[i].Date.After(prices[j].Date)
	})

	return prices, nil
}

// parseFloat64 parses Alpha Vantage numeric strings, treating placeholders as 0.
func parseFloat64(s string) float64 {
	s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	switch s {
	case "", "None", "null", "-":
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func parseInt64(s string) int64 {
	return int64(parseFloat64(s))
}

func parseDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nextMidnightUTC() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
}
