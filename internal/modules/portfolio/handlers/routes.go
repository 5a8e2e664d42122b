package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the holdings routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/portfolio/holdings", func(r chi.Router) {
		r.Get("/", h.HandleGetHoldings)
		r.Post("/", h.HandleUpsertHolding)
		r.Delete("/{id}", h.HandleDeleteHolding)
	})
}
