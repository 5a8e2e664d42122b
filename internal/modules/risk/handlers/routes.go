package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the risk evaluation routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/risk", func(r chi.Router) {
		// Ad-hoc evaluation of a posted portfolio
		r.Post("/evaluate", h.HandleEvaluate)

		// Stored portfolio of the calling user
		r.Get("/analysis", h.HandleGetAnalysis)
		r.Get("/stress-test", h.HandleGetStressTest)
		r.Get("/alerts", h.HandleGetAlerts)

		r.Get("/scenarios", h.HandleGetScenarios)
	})
}

// RegisterStreamRoutes registers the long-lived websocket route. It is kept
// apart so the server can mount it outside the request timeout.
func (h *Handler) RegisterStreamRoutes(r chi.Router) {
	r.Get("/risk/stream", h.HandleStream)
}
