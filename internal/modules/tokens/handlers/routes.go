package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all token routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/token-metadata", h.HandleMetadata)
	r.Get("/whitelist-tokens", h.HandleWhitelist)
	r.Get("/ft-tokens", h.HandleFTTokens)
}
