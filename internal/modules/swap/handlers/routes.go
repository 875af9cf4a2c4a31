package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all swap routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/swap", h.HandleSwap)
}
