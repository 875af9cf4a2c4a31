package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all balance history routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/all-token-balance-history", h.HandleAllPeriods)
	r.Get("/token-balance-history", h.HandleSinglePeriod)
	r.Delete("/balance-history", h.HandleInvalidate)
}
