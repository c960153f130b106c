// Package handler exposes the relay's inbound HTTP API.
package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront-relay/internal/domain/order"
)

// Settler runs the order settlement workflow for one callback.
type Settler interface {
	Settle(ctx context.Context, req order.SettleRequest) (*order.Order, error)
}

// Handler holds the HTTP endpoints of the relay.
type Handler struct {
	settlement Settler
}

// NewHandler constructs a Handler around the settlement workflow.
func NewHandler(settlement Settler) *Handler {
	return &Handler{settlement: settlement}
}

// RegisterRoutes attaches the API endpoints to mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/paystack-callback", h.PaystackCallback)
}

// writeJSON encodes v with the given status. Encoding failures are logged;
// at that point the status line is already on the wire.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zctx.From(r.Context()).Warn("write response", zap.Error(err))
	}
}
