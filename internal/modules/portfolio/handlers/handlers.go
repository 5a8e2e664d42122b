// Package handlers provides HTTP handlers for portfolio holdings.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aristath/riskdash/internal/domain"
	"github.com/aristath/riskdash/internal/events"
	"github.com/aristath/riskdash/internal/modules/portfolio"
	"github.com/aristath/riskdash/internal/utils"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Publisher emits domain events
type Publisher interface {
	Emit(module, userID string, data events.EventData)
}

// Handler handles portfolio HTTP requests
type Handler struct {
	repo portfolio.RepositoryInterface
	bus  Publisher
	log  zerolog.Logger
}

// NewHandler creates a new portfolio handler. bus may be nil.
func NewHandler(repo portfolio.RepositoryInterface, bus Publisher, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		bus:  bus,
		log:  log.With().Str("handler", "portfolio").Logger(),
	}
}

type holdingRequest struct {
	AssetClass       string   `json:"asset_class"`
	Identifier       string   `json:"identifier"`
	Quantity         float64  `json:"quantity"`
	LastPrice        float64  `json:"last_price"`
	ModifiedDuration *float64 `json:"modified_duration"`
	Convexity        *float64 `json:"convexity"`
}

// HandleGetHoldings handles GET /api/portfolio/holdings
func (h *Handler) HandleGetHoldings(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	holdings, err := h.repo.GetAll(userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to load holdings")
		h.writeError(w, http.StatusInternalServerError, "failed to load holdings")
		return
	}

	total := 0.0
	result := make([]map[string]interface{}, 0, len(holdings))
	for _, hd := range holdings {
		total += hd.CurrentValue()
		result = append(result, holdingResponse(hd))
	}

	h.writeData(w, http.StatusOK, map[string]interface{}{
		"holdings":    result,
		"count":       len(result),
		"total_value": utils.RoundCents(total),
	})
}

// HandleUpsertHolding handles POST /api/portfolio/holdings
// Posting an existing asset class and identifier replaces that holding.
func (h *Handler) HandleUpsertHolding(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var req holdingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	class, err := domain.ParseAssetClass(req.AssetClass)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	stored, err := h.repo.Upsert(portfolio.Holding{
		UserID:           userID,
		AssetClass:       class,
		Identifier:       req.Identifier,
		Quantity:         req.Quantity,
		LastPrice:        req.LastPrice,
		ModifiedDuration: req.ModifiedDuration,
		Convexity:        req.Convexity,
	})
	if err != nil {
		if domain.IsValidation(err) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to store holding")
		h.writeError(w, http.StatusInternalServerError, "failed to store holding")
		return
	}

	h.emit(userID, "upserted", stored.ID, stored.Identifier)
	h.writeData(w, http.StatusOK, holdingResponse(stored))
}

// HandleDeleteHolding handles DELETE /api/portfolio/holdings/{id}
func (h *Handler) HandleDeleteHolding(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	if err := h.repo.Delete(userID, id); err != nil {
		if errors.Is(err, portfolio.ErrHoldingNotFound) {
			h.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		h.log.Error().Err(err).Str("user_id", userID).Str("id", id).Msg("Failed to delete holding")
		h.writeError(w, http.StatusInternalServerError, "failed to delete holding")
		return
	}

	h.emit(userID, "deleted", id, "")
	h.writeData(w, http.StatusOK, map[string]interface{}{"deleted": id})
}

func (h *Handler) emit(userID, action, id, identifier string) {
	if h.bus == nil {
		return
	}
	h.bus.Emit("portfolio", userID, &events.HoldingsChangedData{
		Action:     action,
		HoldingID:  id,
		Identifier: identifier,
	})
}

func holdingResponse(hd portfolio.Holding) map[string]interface{} {
	resp := map[string]interface{}{
		"id":            hd.ID,
		"asset_class":   hd.AssetClass,
		"identifier":    hd.Identifier,
		"quantity":      hd.Quantity,
		"last_price":    hd.LastPrice,
		"current_value": utils.RoundCents(hd.CurrentValue()),
		"updated_at":    hd.UpdatedAt.Format(time.RFC3339),
	}
	if hd.ModifiedDuration != nil {
		resp["modified_duration"] = *hd.ModifiedDuration
	}
	if hd.Convexity != nil {
		resp["convexity"] = *hd.Convexity
	}
	return resp
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

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
