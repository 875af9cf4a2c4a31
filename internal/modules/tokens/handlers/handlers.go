// Package handlers provides HTTP handlers for token metadata and holdings.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/nearvault/treasury-api/internal/modules/tokens"
)

// Handler handles token HTTP requests
type Handler struct {
	service *tokens.Service
	log     zerolog.Logger
}

// NewHandler creates a new tokens handler
func NewHandler(service *tokens.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "tokens").Logger(),
	}
}

// HandleMetadata handles GET /api/token-metadata
func (h *Handler) HandleMetadata(w http.ResponseWriter, r *http.Request) {
	tokenID := r.URL.Query().Get("token")
	if tokenID == "" {
		tokenID = r.URL.Query().Get("token_id")
	}
	if tokenID == "" {
		http.Error(w, "token parameter is required", http.StatusBadRequest)
		return
	}

	meta, err := h.service.Metadata(r.Context(), tokenID)
	if err != nil {
		h.log.Error().Err(err).Str("token", tokenID).Msg("Failed to fetch token metadata")
		http.Error(w, "Failed to fetch token metadata", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, meta)
}

// HandleWhitelist handles GET /api/whitelist-tokens
func (h *Handler) HandleWhitelist(w http.ResponseWriter, r *http.Request) {
	accountID := r.URL.Query().Get("account")
	if accountID == "" {
		http.Error(w, "account parameter is required", http.StatusBadRequest)
		return
	}

	entries, err := h.service.WhitelistTokens(r.Context(), accountID)
	if err != nil {
		h.log.Error().Err(err).Str("account", accountID).Msg("Failed to build whitelist")
		http.Error(w, "Failed to build whitelist", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, entries)
}

// HandleFTTokens handles GET /api/ft-tokens
func (h *Handler) HandleFTTokens(w http.ResponseWriter, r *http.Request) {
	accountID := r.URL.Query().Get("account_id")
	if accountID == "" {
		http.Error(w, "account_id parameter is required", http.StatusBadRequest)
		return
	}

	portfolio, err := h.service.FTTokens(r.Context(), accountID)
	if err != nil {
		h.log.Error().Err(err).Str("account", accountID).Msg("Failed to fetch inventory")
		http.Error(w, "Failed to fetch inventory", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, portfolio)
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
