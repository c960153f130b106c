package order

import "fmt"

// Sentinel errors for settlement input validation.
var (
	ErrMissingReference = fmt.Errorf("payment reference required")
	ErrEmptyItems       = fmt.Errorf("items required")
	ErrInvalidTotal     = fmt.Errorf("total must be greater than 0")
)

// ErrDuplicateReference indicates an order already exists for the payment
// reference. The unique index on orders.payment_reference is the authority;
// this error is its domain-level surface.
var ErrDuplicateReference = fmt.Errorf("order already recorded for this payment reference")

// PaymentDeclinedError indicates the processor did not report the transaction
// as successful.
type PaymentDeclinedError struct {
	Reference string
}

func (e *PaymentDeclinedError) Error() string {
	return fmt.Sprintf("payment %s not verified by processor", e.Reference)
}

// AmountMismatchError indicates the paid amount is below the order total.
// Overpayment is not a mismatch.
type AmountMismatchError struct {
	Reference     string
	ExpectedMinor int64
	PaidMinor     int64
}

func (e *AmountMismatchError) Error() string {
	return fmt.Sprintf("payment %s amount mismatch: paid %d, expected %d minor units",
		e.Reference, e.PaidMinor, e.ExpectedMinor)
}

// PersistenceError indicates the store rejected the order write after the
// payment was already confirmed. This is the critical-inconsistency state:
// money captured, no order record. Callers must log it with full context for
// manual reconciliation and report a support-contact message to the client.
type PersistenceError struct {
	Reference string
	Err       error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist order for payment %s: %v", e.Reference, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
