// Package handlers provides HTTP handlers for the NEAR price endpoints.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/nearvault/treasury-api/internal/modules/price"
)

// Handler handles price HTTP requests
type Handler struct {
	service *price.Service
	log     zerolog.Logger
}

// NewHandler creates a new price handler
func NewHandler(service *price.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "price").Logger(),
	}
}

// HandlePrice handles GET /api/near-price
func (h *Handler) HandlePrice(w http.ResponseWriter, r *http.Request) {
	value, err := h.service.Current(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to fetch NEAR price")
		http.Error(w, "Failed to fetch NEAR price", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]any{
		"price":     value,
		"timestamp": time.Now().UnixMilli(),
	}); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// HandleStream handles GET /api/near-price/stream
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Browsers on other origins consume this stream; it carries nothing
		// sensitive.
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("Websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	updates, cancel := h.service.Subscribe()
	defer cancel()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case update := <-updates:
			writeCtx, cancelWrite := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(writeCtx, conn, update)
			cancelWrite()
			if err != nil {
				h.log.Debug().Err(err).Msg("Dropping price stream subscriber")
				return
			}
		}
	}
}
