package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// StatusReceived is the initial status of every settled order. Later
// transitions are driven by the storefront staff, not by this service.
const StatusReceived = "received"

// Order represents a paid customer order as stored in the database.
type Order struct {
	ID               string          `json:"id"`
	Items            []LineItem      `json:"items"`
	Total            decimal.Decimal `json:"total"`
	PaymentReference string          `json:"payment_reference"`
	Status           string          `json:"status"`
	Seen             bool            `json:"seen"`
	CreatedAt        time.Time       `json:"created_at"`
}

// LineItem represents a single line item in an order.
type LineItem struct {
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Create inserts the order and returns the stored representation,
	// including database-assigned fields such as CreatedAt.
	Create(ctx context.Context, o *Order) (*Order, error)
}

// Verification is the normalized outcome of a payment-processor lookup.
type Verification struct {
	// Verified is true only when the processor reports the transaction as
	// successful.
	Verified bool
	// AmountMinor is the paid amount in minor currency units (pesewas).
	AmountMinor int64
}

// Verifier queries the payment processor for a transaction reference.
type Verifier interface {
	Verify(ctx context.Context, reference string) (Verification, error)
}
