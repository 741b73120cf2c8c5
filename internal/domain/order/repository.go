package order

import (
	"context"
	"time"
)

// Store persists orders and enforces the subsystem's two structural
// invariants: gateway order ids are unique, and payment completion is a
// compare-and-set on the pending payment status.
type Store interface {
	// Insert adds a new pending order. ErrConflict when the gateway order
	// id already exists.
	Insert(ctx context.Context, o *Order) error

	GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*Order, error)
	GetByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*Order, error)

	// CompletePayment atomically applies the pending -> confirmed/completed
	// transition and returns the stored order. ErrAlreadyCompleted (with the
	// stored order) when a concurrent caller won the race; ErrInvalidTransition
	// when the order is cancelled or refunded.
	CompletePayment(ctx context.Context, gatewayOrderID, gatewayPaymentID string, at time.Time) (*Order, error)

	// Cancel atomically applies pending -> cancelled/failed.
	Cancel(ctx context.Context, gatewayOrderID string) (*Order, error)

	// MarkRefunded atomically applies confirmed/completed -> completed/refunded.
	MarkRefunded(ctx context.Context, gatewayOrderID, refundID string) (*Order, error)

	ListByBuyer(ctx context.Context, buyerID string) ([]*Order, error)
	ListBySeller(ctx context.Context, sellerID string) ([]*Order, error)

	// ListStalePending returns pending orders created before the cutoff,
	// for the reservation-expiry sweep.
	ListStalePending(ctx context.Context, before time.Time) ([]*Order, error)
}
