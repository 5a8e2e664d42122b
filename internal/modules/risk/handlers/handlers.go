// Package handlers provides HTTP handlers for risk evaluation.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aristath/riskdash/internal/domain"
	"github.com/aristath/riskdash/internal/events"
	"github.com/aristath/riskdash/internal/modules/risk"
	"github.com/aristath/riskdash/internal/utils"
	"github.com/rs/zerolog"
)

// maxBodyBytes bounds evaluation request bodies.
const maxBodyBytes = 1 << 20

// Handler handles risk HTTP requests
type Handler struct {
	service *risk.Service
	bus     *events.Bus
	log     zerolog.Logger
}

// NewHandler creates a new risk handler. bus may be nil, which disables the stream.
func NewHandler(service *risk.Service, bus *events.Bus, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		bus:     bus,
		log:     log.With().Str("handler", "risk").Logger(),
	}
}

// evaluateRequest is the body of POST /api/risk/evaluate.
// Omitted fields fall back to the configured defaults.
type evaluateRequest struct {
	Positions    []domain.Position        `json:"positions"`
	LookbackDays int                      `json:"lookback_days"`
	Scenarios    []domain.Scenario        `json:"scenarios"`
	Thresholds   *risk.ThresholdOverrides `json:"thresholds"`
	Alignment    risk.Alignment           `json:"alignment"`
}

// HandleEvaluate handles POST /api/risk/evaluate
func (h *Handler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	switch req.Alignment {
	case "", risk.AlignByIndex, risk.AlignByDate:
	default:
		h.writeError(w, http.StatusBadRequest, "alignment must be \"index\" or \"date\"")
		return
	}
	if req.LookbackDays < 0 {
		h.writeError(w, http.StatusBadRequest, "lookback_days must not be negative")
		return
	}

	opts := risk.Options{
		LookbackDays: req.LookbackDays,
		Scenarios:    req.Scenarios,
		Alignment:    req.Alignment,
	}
	if req.Thresholds != nil {
		thresholds, err := h.service.ThresholdsWith(*req.Thresholds)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		opts.Thresholds = &thresholds
	}

	result, err := h.service.Evaluate(r.Context(), req.Positions, opts)
	if err != nil {
		h.writeEvaluationError(w, err)
		return
	}

	h.writeData(w, http.StatusOK, resultResponse(result))
}

// HandleGetAnalysis handles GET /api/risk/analysis
// The stored portfolio is evaluated and any alerts are added to the history.
func (h *Handler) HandleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	result, err := h.service.AnalyzeUser(r.Context(), userID)
	if err != nil {
		h.writeEvaluationError(w, err)
		return
	}

	h.writeData(w, http.StatusOK, resultResponse(result))
}

// HandleGetStressTest handles GET /api/risk/stress-test
func (h *Handler) HandleGetStressTest(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	results, total, err := h.service.StressTestUser(r.Context(), userID)
	if err != nil {
		h.writeEvaluationError(w, err)
		return
	}

	h.writeData(w, http.StatusOK, map[string]interface{}{
		"portfolio_value": utils.RoundCents(total),
		"stress_tests":    stressResponse(results),
	})
}

// HandleGetAlerts handles GET /api/risk/alerts
// Alerts are computed for the current portfolio but not stored.
func (h *Handler) HandleGetAlerts(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	result, err := h.service.EvaluateUser(r.Context(), userID)
	if err != nil {
		h.writeEvaluationError(w, err)
		return
	}

	h.writeData(w, http.StatusOK, map[string]interface{}{
		"alerts":      result.Alerts,
		"alert_count": len(result.Alerts),
		"risk_level":  result.RiskLevel,
	})
}

// HandleGetScenarios handles GET /api/risk/scenarios
func (h *Handler) HandleGetScenarios(w http.ResponseWriter, r *http.Request) {
	opts := h.service.Defaults()
	h.writeData(w, http.StatusOK, map[string]interface{}{
		"scenarios":     opts.Scenarios,
		"thresholds":    opts.Thresholds,
		"lookback_days": opts.LookbackDays,
	})
}

func resultResponse(res *risk.Result) map[string]interface{} {
	return map[string]interface{}{
		"var_95":            utils.RoundCents(res.VaR95),
		"var_99":            utils.RoundCents(res.VaR99),
		"total_value":       utils.RoundCents(res.TotalValue),
		"portfolio_returns": res.PortfolioReturns,
		"volatility_pct":    utils.RoundCents(res.Volatility * 100),
		"risk_level":        res.RiskLevel,
		"stress_results":    stressResponse(res.StressResults),
		"alerts":            res.Alerts,
		"alert_details":     res.AlertDetails,
		"data_quality":      res.DataQuality,
		"method":            "historical",
	}
}

func stressResponse(results []risk.StressResult) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(results))
	for _, s := range results {
		out = append(out, map[string]interface{}{
			"scenario":    s.ScenarioName,
			"loss":        utils.RoundCents(s.Loss),
			"loss_pct":    utils.Round(s.LossPct, 1),
			"severity":    s.Severity,
			"assumptions": s.Assumptions,
		})
	}
	return out
}

func (h *Handler) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := utils.UserID(r)
	if userID == "" {
		h.writeError(w, http.StatusUnauthorized, "missing "+utils.HeaderUserID+" header")
		return "", false
	}
	return userID, true
}

func (h *Handler) writeEvaluationError(w http.ResponseWriter, err error) {
	if domain.IsValidation(err) {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if errors.Is(err, context.Canceled) {
		h.log.Debug().Err(err).Msg("Risk evaluation canceled by client")
		return
	}
	h.log.Error().Err(err).Msg("Risk evaluation failed")
	h.writeError(w, http.StatusInternalServerError, "risk evaluation failed")
}

// writeData wraps data in the response envelope
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
