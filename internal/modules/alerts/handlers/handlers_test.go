package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aristath/riskdash/internal/database"
	"github.com/aristath/riskdash/internal/modules/alerts"
	"github.com/aristath/riskdash/internal/utils"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T) http.Handler {
	t.Helper()
	db, err := database.New(database.Config{
		Path: filepath.Join(t.TempDir(), "portfolio.db"),
		Name: database.NamePortfolio,
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { _ = db.Close() })

	h := NewHandler(alerts.NewRepository(db.Conn(), zerolog.Nop()), zerolog.Nop())
	r := chi.NewRouter()
	r.Route("/api", h.RegisterRoutes)
	return r
}

func request(t *testing.T, router http.Handler, method, path, userID, body string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if userID != "" {
		req.Header.Set(utils.HeaderUserID, userID)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	return rec.Code, decoded
}

func TestAddAndList(t *testing.T) {
	router := setupRouter(t)

	status, body := request(t, router, http.MethodPost, "/api/alerts", "u1", `{"message":"first"}`)
	require.Equal(t, http.StatusCreated, status)
	entry := body["data"].(map[string]interface{})
	assert.NotEmpty(t, entry["id"])
	assert.Equal(t, "first", entry["message"])

	status, _ = request(t, router, http.MethodPost, "/api/alerts", "u1", `{"message":"second"}`)
	require.Equal(t, http.StatusCreated, status)

	status, body = request(t, router, http.MethodGet, "/api/alerts", "u1", "")
	require.Equal(t, http.StatusOK, status)
	d := body["data"].(map[string]interface{})
	assert.Equal(t, 2.0, d["count"])
	list := d["alerts"].([]interface{})
	assert.Equal(t, "second", list[0].(map[string]interface{})["message"])

	_, body = request(t, router, http.MethodGet, "/api/alerts?limit=1", "u1", "")
	assert.Equal(t, 1.0, body["data"].(map[string]interface{})["count"])

	_, body = request(t, router, http.MethodGet, "/api/alerts", "u2", "")
	assert.Equal(t, 0.0, body["data"].(map[string]interface{})["count"])
}

func TestAdd_Invalid(t *testing.T) {
	router := setupRouter(t)

	status, _ := request(t, router, http.MethodPost, "/api/alerts", "u1", `{"message":""}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = request(t, router, http.MethodPost, "/api/alerts", "u1", `not json`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = request(t, router, http.MethodGet, "/api/alerts?limit=zero", "u1", "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = request(t, router, http.MethodGet, "/api/alerts", "", "")
	assert.Equal(t, http.StatusUnauthorized, status)
}
