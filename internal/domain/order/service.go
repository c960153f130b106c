package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var hundred = decimal.NewFromInt(100)

// SettleRequest holds the input of a settlement attempt: the processor
// reference from the storefront callback plus the order it claims to pay for.
type SettleRequest struct {
	Reference string
	Items     []LineItem
	Total     decimal.Decimal
}

// Service runs the order settlement workflow: validate the request, verify
// the payment with the processor, reconcile the paid amount against the order
// total, and persist the order.
type Service struct {
	verifier Verifier
	orders   Repository
	lg       *zap.Logger
}

// NewService creates a settlement Service with the required dependencies.
func NewService(verifier Verifier, orders Repository, lg *zap.Logger) *Service {
	return &Service{
		verifier: verifier,
		orders:   orders,
		lg:       lg,
	}
}

// Settle runs the full settlement workflow for one callback.
//
// Terminal outcomes map to the error taxonomy: validation sentinels and
// PaymentDeclinedError/AmountMismatchError are the client's fault;
// PersistenceError means payment was captured but no order was recorded and
// is logged at error level for manual reconciliation. Verification is never
// attempted for invalid input, and persistence is never attempted for
// unverified or underpaid transactions.
func (s *Service) Settle(ctx context.Context, req SettleRequest) (*Order, error) {
	if req.Reference == "" {
		return nil, ErrMissingReference
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	if !req.Total.IsPositive() {
		return nil, ErrInvalidTotal
	}

	v, err := s.verifier.Verify(ctx, req.Reference)
	if err != nil {
		return nil, errors.Wrapf(err, "verify payment %s", req.Reference)
	}
	if !v.Verified {
		return nil, &PaymentDeclinedError{Reference: req.Reference}
	}

	// Totals are decimal cedis; the processor reports pesewas. Underpayment
	// is rejected, overpayment (tips) is accepted.
	expected := req.Total.Mul(hundred).Round(0).IntPart()
	if v.AmountMinor < expected {
		return nil, &AmountMismatchError{
			Reference:     req.Reference,
			ExpectedMinor: expected,
			PaidMinor:     v.AmountMinor,
		}
	}

	o := &Order{
		ID:               uuid.New().String(),
		Items:            req.Items,
		Total:            req.Total.Round(2),
		PaymentReference: req.Reference,
		Status:           StatusReceived,
		Seen:             false,
	}
	stored, err := s.orders.Create(ctx, o)
	if err != nil {
		if errors.Is(err, ErrDuplicateReference) {
			return nil, err
		}
		s.lg.Error("order persistence failed after confirmed payment",
			zap.String("payment_reference", req.Reference),
			zap.String("order_id", o.ID),
			zap.Int64("paid_minor", v.AmountMinor),
			zap.Error(err),
		)
		return nil, &PersistenceError{Reference: req.Reference, Err: err}
	}

	return stored, nil
}
