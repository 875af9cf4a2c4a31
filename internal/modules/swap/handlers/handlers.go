// Package handlers provides HTTP handlers for swap planning.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/nearvault/treasury-api/internal/modules/swap"
)

const defaultSlippage = 0.005

// Handler handles swap HTTP requests
type Handler struct {
	service *swap.Service
	log     zerolog.Logger
}

// NewHandler creates a new swap handler
func NewHandler(service *swap.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "swap").Logger(),
	}
}

// HandleSwap handles GET /api/swap
func (h *Handler) HandleSwap(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	accountID := q.Get("accountId")
	tokenIn := q.Get("tokenIn")
	tokenOut := q.Get("tokenOut")
	amountIn := q.Get("amountIn")
	if accountID == "" || tokenIn == "" || tokenOut == "" || amountIn == "" {
		http.Error(w, "accountId, tokenIn, tokenOut and amountIn parameters are required", http.StatusBadRequest)
		return
	}

	slippage := defaultSlippage
	if raw := q.Get("slippage"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 || parsed >= 1 {
			http.Error(w, "invalid slippage parameter", http.StatusBadRequest)
			return
		}
		slippage = parsed
	}

	quote, err := h.service.CreateSwap(r.Context(), accountID, tokenIn, tokenOut, amountIn, slippage)
	if err != nil {
		h.log.Error().Err(err).Str("tokenIn", tokenIn).Str("tokenOut", tokenOut).Msg("Failed to plan swap")
		http.Error(w, "Failed to plan swap", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(quote); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
