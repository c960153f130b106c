package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/storefront-relay/internal/domain/order"
)

// maxBodyBytes bounds the callback request body.
const maxBodyBytes = 1 << 20

type callbackRequest struct {
	Reference string        `json:"reference"`
	Order     callbackOrder `json:"order"`
}

type callbackOrder struct {
	Total decimal.Decimal  `json:"total"`
	Items []order.LineItem `json:"items"`
}

type successResponse struct {
	OK      bool         `json:"ok"`
	Message string       `json:"message"`
	Order   *order.Order `json:"order"`
}

type errorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// PaystackCallback handles POST /api/paystack-callback: decode, settle, and
// map the outcome to a response. Client-side failures (bad input, declined or
// underpaid transactions) become 400s with a terse reason; a post-payment
// persistence failure becomes a distinct 500 pointing the customer at
// support. No internal error detail ever reaches the response body.
func (h *Handler) PaystackCallback(w http.ResponseWriter, r *http.Request) {
	lg := zctx.From(r.Context())

	var req callbackRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil || dec.More() {
		writeJSON(w, r, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	stored, err := h.settlement.Settle(r.Context(), order.SettleRequest{
		Reference: req.Reference,
		Items:     req.Order.Items,
		Total:     req.Order.Total,
	})
	if err != nil {
		h.writeSettleError(w, r, lg, req.Reference, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, successResponse{
		OK:      true,
		Message: "order received",
		Order:   stored,
	})
}

// writeSettleError maps settlement errors onto the response surface.
func (h *Handler) writeSettleError(w http.ResponseWriter, r *http.Request, lg *zap.Logger, reference string, err error) {
	switch {
	case errors.Is(err, order.ErrMissingReference),
		errors.Is(err, order.ErrEmptyItems),
		errors.Is(err, order.ErrInvalidTotal):
		writeJSON(w, r, http.StatusBadRequest, errorResponse{Error: err.Error()})

	case isPaymentRejection(err):
		// Security-relevant rejection: log the specifics, tell the client
		// only that verification failed.
		lg.Warn("payment verification rejected",
			zap.String("payment_reference", reference),
			zap.Error(err),
		)
		writeJSON(w, r, http.StatusBadRequest, errorResponse{Error: "payment verification failed"})

	case errors.Is(err, order.ErrDuplicateReference):
		writeJSON(w, r, http.StatusConflict, errorResponse{Error: "order already recorded for this payment"})

	case isPersistenceFailure(err):
		// Critical: payment captured, order not recorded. Already logged with
		// full context by the settlement service.
		writeJSON(w, r, http.StatusInternalServerError, errorResponse{
			Error: "your payment was received but we could not record your order; please contact support",
		})

	default:
		lg.Error("settlement failed",
			zap.String("payment_reference", reference),
			zap.Error(err),
		)
		writeJSON(w, r, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

func isPaymentRejection(err error) bool {
	var declined *order.PaymentDeclinedError
	var mismatch *order.AmountMismatchError
	return errors.As(err, &declined) || errors.As(err, &mismatch)
}

func isPersistenceFailure(err error) bool {
	var pe *order.PersistenceError
	return errors.As(err, &pe)
}
