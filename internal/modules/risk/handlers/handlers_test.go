package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aristath/riskdash/internal/domain"
	"github.com/aristath/riskdash/internal/events"
	"github.com/aristath/riskdash/internal/modules/portfolio"
	"github.com/aristath/riskdash/internal/modules/risk"
	"github.com/aristath/riskdash/internal/utils"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticProvider map[string][]float64

func (p staticProvider) FetchHistory(_ context.Context, _ domain.AssetClass, id string, _ int) ([]domain.PriceObservation, error) {
	values := p[id]
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	obs := make([]domain.PriceObservation, len(values))
	for i, v := range values {
		obs[i] = domain.PriceObservation{Date: start.AddDate(0, 0, i), Value: v}
	}
	return obs, nil
}

type staticHoldings map[string][]portfolio.Holding

func (s staticHoldings) GetAll(userID string) ([]portfolio.Holding, error) {
	return s[userID], nil
}

type memAlerts struct {
	stored map[string][]string
}

func (m *memAlerts) AddAll(userID string, messages []string) error {
	m.stored[userID] = append(m.stored[userID], messages...)
	return nil
}

type testEnv struct {
	router http.Handler
	bus    *events.Bus
	alerts *memAlerts
}

func setupTest(t *testing.T) *testEnv {
	t.Helper()
	log := zerolog.Nop()

	provider := staticProvider{"AAPL": {100, 101, 99, 102, 98, 100}}
	holdings := staticHoldings{
		"u1": {{UserID: "u1", AssetClass: domain.AssetClassEquity, Identifier: "AAPL", Quantity: 100, LastPrice: 100}},
	}
	alerts := &memAlerts{stored: map[string][]string{}}
	bus := events.NewBus(log)

	// Low stress threshold so the stored portfolio always raises alerts
	thresholds := risk.Thresholds{VaR95: 1e9, VaR99: 1e9, StressLoss: 1500}
	svc := risk.NewService(risk.NewEngine(provider, log), holdings, alerts, bus,
		risk.Options{Thresholds: &thresholds}, log)

	h := NewHandler(svc, bus, log)
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		h.RegisterRoutes(r)
		h.RegisterStreamRoutes(r)
	})

	return &testEnv{router: r, bus: bus, alerts: alerts}
}

func (e *testEnv) do(t *testing.T, method, path, userID string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != "" {
		req.Header.Set(utils.HeaderUserID, userID)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded), rec.Body.String())
	return rec, decoded
}

func data(t *testing.T, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	d, ok := body["data"].(map[string]interface{})
	require.True(t, ok, "response has no data envelope: %v", body)
	return d
}

func TestHandleEvaluate(t *testing.T) {
	env := setupTest(t)

	rec, body := env.do(t, http.MethodPost, "/api/risk/evaluate", "", map[string]interface{}{
		"positions": []map[string]interface{}{
			{"asset_class": "equity", "identifier": "AAPL", "quantity": 10, "current_value": 5000},
			{"asset_class": "commodity", "identifier": "gold", "quantity": 1, "current_value": 5000},
		},
		"scenarios": []map[string]interface{}{
			{"name": "Custom", "equity_shock": -0.5, "commodity_shock": 0},
		},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	d := data(t, body)
	assert.Equal(t, 10000.0, d["total_value"])
	assert.Equal(t, "historical", d["method"])

	stress := d["stress_results"].([]interface{})
	require.Len(t, stress, 1)
	first := stress[0].(map[string]interface{})
	assert.Equal(t, "Custom", first["scenario"])
	assert.Equal(t, 2500.0, first["loss"])
	assert.Equal(t, 25.0, first["loss_pct"])
	assert.Equal(t, "Moderate", first["severity"])

	quality := d["data_quality"].(map[string]interface{})
	assert.Equal(t, 1.0, quality["positions_with_data"])
	assert.Equal(t, 1.0, quality["positions_without_data"])

	assert.NotEmpty(t, body["metadata"].(map[string]interface{})["timestamp"])
}

func TestHandleEvaluate_NoAlertsPersisted(t *testing.T) {
	env := setupTest(t)

	rec, _ := env.do(t, http.MethodPost, "/api/risk/evaluate", "u1", map[string]interface{}{
		"positions": []map[string]interface{}{
			{"asset_class": "equity", "identifier": "AAPL", "quantity": 100, "current_value": 10000},
		},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, env.alerts.stored)
}

func TestHandleEvaluate_BadRequests(t *testing.T) {
	env := setupTest(t)

	tests := []struct {
		name string
		body interface{}
	}{
		{"missing positions", map[string]interface{}{}},
		{"unknown asset class", map[string]interface{}{
			"positions": []map[string]interface{}{{"asset_class": "forex", "identifier": "EURUSD", "current_value": 1}},
		}},
		{"negative value", map[string]interface{}{
			"positions": []map[string]interface{}{{"asset_class": "equity", "identifier": "AAPL", "current_value": -1}},
		}},
		{"unnamed scenario", map[string]interface{}{
			"positions": []map[string]interface{}{},
			"scenarios": []map[string]interface{}{{"equity_shock": -0.1}},
		}},
		{"bad alignment", map[string]interface{}{"positions": []map[string]interface{}{}, "alignment": "weekly"}},
		{"unknown field", map[string]interface{}{"positions": []map[string]interface{}{}, "foo": 1}},
		{"negative threshold", map[string]interface{}{
			"positions":  []map[string]interface{}{},
			"thresholds": map[string]interface{}{"var_99": -1},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := env.do(t, http.MethodPost, "/api/risk/evaluate", "", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestHandleEvaluate_PartialThresholdsKeepDefaults(t *testing.T) {
	env := setupTest(t)
	position := []map[string]interface{}{
		{"asset_class": "equity", "identifier": "AAPL", "quantity": 0.1, "current_value": 10},
	}

	rec, body := env.do(t, http.MethodPost, "/api/risk/evaluate", "", map[string]interface{}{
		"positions":  position,
		"thresholds": map[string]interface{}{"var_95": 500},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, data(t, body)["alerts"])

	rec, body = env.do(t, http.MethodPost, "/api/risk/evaluate", "", map[string]interface{}{
		"positions":  position,
		"thresholds": map[string]interface{}{"stress_loss": 1},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	// Mild and Severe Risk-Off lose $1 and $2, Rates Shock only $0.50.
	// The VaR thresholds stay at their configured levels.
	assert.Equal(t, []interface{}{
		"⚠️ Stress test loss $1.00 exceeds threshold in \"Mild Risk-Off\"",
		"⚠️ Stress test loss $2.00 exceeds threshold in \"Severe Risk-Off\"",
	}, data(t, body)["alerts"])
}

func TestHandleEvaluate_EmptyPortfolio(t *testing.T) {
	env := setupTest(t)

	rec, body := env.do(t, http.MethodPost, "/api/risk/evaluate", "", map[string]interface{}{
		"positions": []map[string]interface{}{},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	d := data(t, body)
	assert.Equal(t, 0.0, d["total_value"])
	assert.Equal(t, 0.0, d["var_95"])
	assert.Empty(t, d["alerts"])
}

func TestHandleGetAnalysis(t *testing.T) {
	env := setupTest(t)

	rec, body := env.do(t, http.MethodGet, "/api/risk/analysis", "u1", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	d := data(t, body)
	assert.Equal(t, 10000.0, d["total_value"])
	alerts := d["alerts"].([]interface{})
	require.Len(t, alerts, 1)
	assert.Contains(t, alerts[0], "Severe Risk-Off")
	assert.Len(t, env.alerts.stored["u1"], 1)
}

func TestHandleGetAlerts_DoesNotPersist(t *testing.T) {
	env := setupTest(t)

	rec, body := env.do(t, http.MethodGet, "/api/risk/alerts", "u1", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	d := data(t, body)
	assert.Equal(t, 1.0, d["alert_count"])
	assert.NotEmpty(t, d["risk_level"])
	assert.Empty(t, env.alerts.stored)
}

func TestHandleGetStressTest(t *testing.T) {
	env := setupTest(t)

	rec, body := env.do(t, http.MethodGet, "/api/risk/stress-test", "u1", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	d := data(t, body)
	assert.Equal(t, 10000.0, d["portfolio_value"])

	results := d["stress_tests"].([]interface{})
	require.Len(t, results, 3)
	mild := results[0].(map[string]interface{})
	assert.Equal(t, "Mild Risk-Off", mild["scenario"])
	assert.Equal(t, 1000.0, mild["loss"])
	assert.Equal(t, "Mild", mild["severity"])
}

func TestUserEndpoints_RequireUserHeader(t *testing.T) {
	env := setupTest(t)

	for _, path := range []string{"/api/risk/analysis", "/api/risk/alerts", "/api/risk/stress-test"} {
		t.Run(path, func(t *testing.T) {
			rec, body := env.do(t, http.MethodGet, path, "", nil)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, body["error"], utils.HeaderUserID)
		})
	}
}

func TestHandleGetScenarios(t *testing.T) {
	env := setupTest(t)

	rec, body := env.do(t, http.MethodGet, "/api/risk/scenarios", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	d := data(t, body)
	assert.Len(t, d["scenarios"], 3)
	assert.Equal(t, 252.0, d["lookback_days"])
	thresholds := d["thresholds"].(map[string]interface{})
	assert.Equal(t, 1500.0, thresholds["stress_loss"])
}

func TestUnknownUserHasEmptyPortfolio(t *testing.T) {
	env := setupTest(t)

	rec, body := env.do(t, http.MethodGet, "/api/risk/analysis", "nobody", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0.0, data(t, body)["total_value"])
}
