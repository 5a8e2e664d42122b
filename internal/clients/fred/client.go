// Package fred fetches economic series observations from the St. Louis Fed FRED API.
package fred

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// ErrMissingAPIKey is returned when no FRED API key is configured.
var ErrMissingAPIKey = errors.New("fred API key is not configured")

// Observation is one dated series value. Value is NaN when FRED reports "." (no data).
type Observation struct {
	Date  time.Time
	Value float64
}

// Client for the FRED REST API
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a new FRED client
func NewClient(apiKey string, log zerolog.Logger) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: "https://api.stlouisfed.org/fred",
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     log.With().Str("client", "fred").Logger(),
	}
}

// SetBaseURL overrides the API endpoint (used by tests).
func (c *Client) SetBaseURL(u string) {
	c.baseURL = u
}

// GetObservations returns observations of seriesID between start and end, oldest first.
func (c *Client) GetObservations(ctx context.Context, seriesID string, start, end time.Time) ([]Observation, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	params := url.Values{}
	params.Set("series_id", seriesID)
	params.Set("api_key", c.apiKey)
	params.Set("file_type", "json")
	params.Set("observation_start", start.Format("2006-01-02"))
	params.Set("observation_end", end.Format("2006-01-02"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/series/observations?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	c.log.Debug().Str("series_id", seriesID).Msg("Fetching observations")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	var payload struct {
		ErrorMessage string `json:"error_message"`
		Observations []struct {
			Date  string `json:"date"`
			Value string `json:"value"`
		} `json:"observations"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, payload.ErrorMessage)
	}

	observations := make([]Observation, 0, len(payload.Observations))
	for _, o := range payload.Observations {
		date, err := time.Parse("2006-01-02", o.Date)
		if err != nil {
			continue
		}
		observations = append(observations, Observation{Date: date, Value: parseValue(o.Value)})
	}

	return observations, nil
}

// parseValue converts a FRED value string; "." and garbage become NaN.
func parseValue(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
