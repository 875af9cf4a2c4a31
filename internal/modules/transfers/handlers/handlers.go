// Package handlers provides HTTP handlers for the transfer history feed.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/nearvault/treasury-api/internal/clients/pikespeak"
	"github.com/nearvault/treasury-api/internal/modules/transfers"
)

// Handler handles transfer history HTTP requests
type Handler struct {
	service *transfers.Service
	log     zerolog.Logger
}

// NewHandler creates a new transfers handler
func NewHandler(service *transfers.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "transfers").Logger(),
	}
}

// HandleHistory handles GET /api/transactions-transfer-history
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	daoID := q.Get("treasuryDaoID")
	if daoID == "" {
		http.Error(w, "treasuryDaoID parameter is required", http.StatusBadRequest)
		return
	}
	lockupContract := q.Get("lockupContract")

	page := 1
	if raw := q.Get("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			http.Error(w, "invalid page parameter", http.StatusBadRequest)
			return
		}
		page = parsed
	}

	rows, err := h.service.History(r.Context(), daoID, lockupContract, page)
	if err != nil {
		if errors.Is(err, pikespeak.ErrMissingAPIKey) {
			http.Error(w, "transfer history source is not configured", http.StatusServiceUnavailable)
			return
		}
		h.log.Error().Err(err).Str("dao", daoID).Msg("Failed to fetch transfer history")
		http.Error(w, "Failed to fetch transfer history", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(rows); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
