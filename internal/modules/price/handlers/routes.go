package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all price routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/near-price", h.HandlePrice)
	r.Get("/near-price/stream", h.HandleStream)
}
