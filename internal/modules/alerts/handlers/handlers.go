// Package handlers provides HTTP handlers for the alert history.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/aristath/riskdash/internal/domain"
	"github.com/aristath/riskdash/internal/modules/alerts"
	"github.com/aristath/riskdash/internal/utils"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles alert history HTTP requests
type Handler struct {
	repo alerts.RepositoryInterface
	log  zerolog.Logger
}

// NewHandler creates a new alert history handler
func NewHandler(repo alerts.RepositoryInterface, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("handler", "alerts").Logger(),
	}
}

// RegisterRoutes registers the alert history routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/alerts", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleAdd)
	})
}

// HandleList handles GET /api/alerts?limit=N
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	limit := alerts.DefaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := h.repo.List(userID, limit)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to list alerts")
		h.writeError(w, http.StatusInternalServerError, "failed to list alerts")
		return
	}

	h.writeData(w, http.StatusOK, map[string]interface{}{
		"alerts": entries,
		"count":  len(entries),
	})
}

// HandleAdd handles POST /api/alerts
func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	entry, err := h.repo.Add(userID, req.Message)
	if err != nil {
		if domain.IsValidation(err) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to add alert")
		h.writeError(w, http.StatusInternalServerError, "failed to add alert")
		return
	}

	h.writeData(w, http.StatusCreated, entry)
}

func (h *Handler) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := utils.UserID(r)
	if userID == "" {
		h.writeError(w, http.StatusUnauthorized, "missing "+utils.HeaderUserID+" header")
		return "", false
	}
	return userID, true
}

func (h *Handler) writeData(w http.ResponseWriter, status int, data interface{}) {
	h.writeJSON(w, status, map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
