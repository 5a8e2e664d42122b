package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aristath/riskdash/internal/database"
	"github.com/aristath/riskdash/internal/events"
	"github.com/aristath/riskdash/internal/modules/portfolio"
	"github.com/aristath/riskdash/internal/utils"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	changes []*events.HoldingsChangedData
}

func (p *recordingPublisher) Emit(_ string, _ string, data events.EventData) {
	if c, ok := data.(*events.HoldingsChangedData); ok {
		p.changes = append(p.changes, c)
	}
}

func setupRouter(t *testing.T) (http.Handler, *recordingPublisher) {
	t.Helper()
	db, err := database.New(database.Config{
		Path: filepath.Join(t.TempDir(), "portfolio.db"),
		Name: database.NamePortfolio,
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { _ = db.Close() })

	pub := &recordingPublisher{}
	h := NewHandler(portfolio.NewRepository(db.Conn(), zerolog.Nop()), pub, zerolog.Nop())
	r := chi.NewRouter()
	r.Route("/api", h.RegisterRoutes)
	return r, pub
}

func call(t *testing.T, router http.Handler, method, path, userID, body string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if userID != "" {
		req.Header.Set(utils.HeaderUserID, userID)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded), rec.Body.String())
	return rec.Code, decoded
}

func TestHoldingsLifecycle(t *testing.T) {
	router, pub := setupRouter(t)

	status, body := call(t, router, http.MethodPost, "/api/portfolio/holdings", "u1",
		`{"asset_class":"Equity","identifier":"AAPL","quantity":10,"last_price":150.125}`)
	require.Equal(t, http.StatusOK, status, body)
	created := body["data"].(map[string]interface{})
	id := created["id"].(string)
	assert.NotEmpty(t, id)
	assert.Equal(t, "equity", created["asset_class"])
	assert.Equal(t, 1501.25, created["current_value"])

	status, body = call(t, router, http.MethodPost, "/api/portfolio/holdings", "u1",
		`{"asset_class":"bond","identifier":"DGS10","quantity":1,"last_price":1000,"modified_duration":7.5}`)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, 7.5, body["data"].(map[string]interface{})["modified_duration"])

	status, body = call(t, router, http.MethodGet, "/api/portfolio/holdings", "u1", "")
	require.Equal(t, http.StatusOK, status)
	listed := body["data"].(map[string]interface{})
	assert.Equal(t, 2.0, listed["count"])
	assert.Equal(t, 2501.25, listed["total_value"])

	// Other users see nothing
	_, body = call(t, router, http.MethodGet, "/api/portfolio/holdings", "u2", "")
	assert.Equal(t, 0.0, body["data"].(map[string]interface{})["count"])

	status, _ = call(t, router, http.MethodDelete, "/api/portfolio/holdings/"+id, "u2", "")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = call(t, router, http.MethodDelete, "/api/portfolio/holdings/"+id, "u1", "")
	assert.Equal(t, http.StatusOK, status)

	_, body = call(t, router, http.MethodGet, "/api/portfolio/holdings", "u1", "")
	assert.Equal(t, 1.0, body["data"].(map[string]interface{})["count"])

	require.Len(t, pub.changes, 3)
	assert.Equal(t, "upserted", pub.changes[0].Action)
	assert.Equal(t, "AAPL", pub.changes[0].Identifier)
	assert.Equal(t, "deleted", pub.changes[2].Action)
	assert.Equal(t, id, pub.changes[2].HoldingID)
}

func TestUpsertHolding_ReplacesExisting(t *testing.T) {
	router, _ := setupRouter(t)

	_, first := call(t, router, http.MethodPost, "/api/portfolio/holdings", "u1",
		`{"asset_class":"crypto","identifier":"BTCUSDT","quantity":1,"last_price":50000}`)
	_, second := call(t, router, http.MethodPost, "/api/portfolio/holdings", "u1",
		`{"asset_class":"crypto","identifier":"BTCUSDT","quantity":2,"last_price":60000}`)

	assert.Equal(t, first["data"].(map[string]interface{})["id"], second["data"].(map[string]interface{})["id"])

	_, body := call(t, router, http.MethodGet, "/api/portfolio/holdings", "u1", "")
	listed := body["data"].(map[string]interface{})
	assert.Equal(t, 1.0, listed["count"])
	assert.Equal(t, 120000.0, listed["total_value"])
}

func TestUpsertHolding_Invalid(t *testing.T) {
	router, pub := setupRouter(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"asset_class":`},
		{"unknown class", `{"asset_class":"forex","identifier":"EURUSD","quantity":1,"last_price":1}`},
		{"missing identifier", `{"asset_class":"equity","quantity":1,"last_price":1}`},
		{"negative quantity", `{"asset_class":"equity","identifier":"AAPL","quantity":-1,"last_price":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := call(t, router, http.MethodPost, "/api/portfolio/holdings", "u1", tt.body)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.NotEmpty(t, body["error"])
		})
	}
	assert.Empty(t, pub.changes)
}

func TestHoldings_RequireUser(t *testing.T) {
	router, _ := setupRouter(t)

	status, _ := call(t, router, http.MethodGet, "/api/portfolio/holdings", "", "")
	assert.Equal(t, http.StatusUnauthorized, status)
}
