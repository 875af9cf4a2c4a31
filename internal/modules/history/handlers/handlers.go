// Package handlers provides HTTP handlers for balance history operations.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/nearvault/treasury-api/internal/modules/history"
)

// Handler handles balance history HTTP requests
type Handler struct {
	service *history.Service
	log     zerolog.Logger
}

// NewHandler creates a new balance history handler
func NewHandler(service *history.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "history").Logger(),
	}
}

// HandleAllPeriods handles GET /api/all-token-balance-history
func (h *Handler) HandleAllPeriods(w http.ResponseWriter, r *http.Request) {
	accountID := r.URL.Query().Get("account_id")
	tokenID := r.URL.Query().Get("token_id")
	if accountID == "" || tokenID == "" {
		http.Error(w, "account_id and token_id parameters are required", http.StatusBadRequest)
		return
	}

	series, err := h.service.AllPeriodHistory(r.Context(), accountID, tokenID)
	if err != nil {
		h.log.Error().Err(err).Str("account", accountID).Msg("Failed to build balance history")
		http.Error(w, "Failed to build balance history", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, series)
}

// HandleSinglePeriod handles GET /api/token-balance-history
func (h *Handler) HandleSinglePeriod(w http.ResponseWriter, r *http.Request) {
	accountID := r.URL.Query().Get("account_id")
	tokenID := r.URL.Query().Get("token_id")
	if accountID == "" || tokenID == "" {
		http.Error(w, "account_id and token_id parameters are required", http.StatusBadRequest)
		return
	}

	cfg, ok := h.parsePeriod(r)
	if !ok {
		http.Error(w, "invalid period or interval parameter", http.StatusBadRequest)
		return
	}

	points, err := h.service.PeriodHistory(r.Context(), accountID, tokenID, cfg)
	if err != nil {
		h.log.Error().Err(err).Str("account", accountID).Str("period", cfg.Period).Msg("Failed to build balance history")
		http.Error(w, "Failed to build balance history", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, points)
}

// HandleInvalidate handles DELETE /api/balance-history
func (h *Handler) HandleInvalidate(w http.ResponseWriter, r *http.Request) {
	accountID := r.URL.Query().Get("account_id")
	if accountID == "" {
		http.Error(w, "account_id parameter is required", http.StatusBadRequest)
		return
	}
	tokenID := r.URL.Query().Get("token_id") // optional

	removed, err := h.service.Invalidate(accountID, tokenID)
	if err != nil {
		h.log.Error().Err(err).Str("account", accountID).Msg("Failed to invalidate balance history")
		http.Error(w, "Failed to invalidate balance history", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"account_id": accountID,
			"removed":    removed,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
	h.writeJSON(w, http.StatusOK, response)
}

// parsePeriod resolves the period/interval query parameters. period may be a
// known label ("1W") or a raw hours-per-step value; interval overrides the
// label's default sample count.
func (h *Handler) parsePeriod(r *http.Request) (history.PeriodConfig, bool) {
	label := r.URL.Query().Get("period")
	if label == "" {
		label = "1D"
	}

	cfg, known := history.Known(label)
	if !known {
		hours, err := strconv.ParseFloat(label, 64)
		if err != nil || hours <= 0 {
			return history.PeriodConfig{}, false
		}
		cfg = history.PeriodConfig{Period: label, Value: hours, Interval: 12}
	}

	if intervalStr := r.URL.Query().Get("interval"); intervalStr != "" {
		interval, err := strconv.Atoi(intervalStr)
		if err != nil || interval < 2 {
			return history.PeriodConfig{}, false
		}
		cfg.Interval = interval
	}
	return cfg, true
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
