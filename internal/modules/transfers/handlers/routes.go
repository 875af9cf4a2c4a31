package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all transfer history routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/transactions-transfer-history", h.HandleHistory)
}
