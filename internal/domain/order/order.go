package order

import (
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("order: not found")
	ErrConflict          = errors.New("order: gateway order id already exists")
	ErrInvalidQuantity   = errors.New("order: quantity must be greater than zero")
	ErrSelfPurchase      = errors.New("order: cannot purchase your own item")
	ErrOwnershipMismatch = errors.New("order: order does not belong to the caller")
	ErrInvalidTransition = errors.New("order: invalid state transition")
	ErrAlreadyCompleted  = errors.New("order: payment already completed")
)

// Status is the business lifecycle of a purchase attempt.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// PaymentStatus is the payment lifecycle, decoupled from Status but
// jointly constrained by the transition methods below.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// Order is one purchase attempt. It is a financial record: orders are never
// deleted, only transitioned. UnitPrice is a snapshot of the item price at
// reservation time and TotalAmount is always UnitPrice * Quantity.
type Order struct {
	ID       string
	ItemID   string
	BuyerID  string
	SellerID string

	Quantity    int
	UnitPrice   int64 // minor units
	TotalAmount int64 // minor units, derived

	Status        Status
	PaymentStatus PaymentStatus

	GatewayOrderID     string
	GatewayPaymentID   string
	PaymentCompletedAt *time.Time
	RefundID           string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// New creates a pending order for a fresh reservation. The gateway order id
// is the natural idempotency key and must be set before insertion.
func New(id, itemID, buyerID, sellerID, gatewayOrderID string, quantity int, unitPrice int64) (*Order, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	if buyerID == sellerID {
		return nil, ErrSelfPurchase
	}

	now := time.Now().UTC()
	return &Order{
		ID:             id,
		ItemID:         itemID,
		BuyerID:        buyerID,
		SellerID:       sellerID,
		Quantity:       quantity,
		UnitPrice:      unitPrice,
		TotalAmount:    unitPrice * int64(quantity),
		Status:         StatusPending,
		PaymentStatus:  PaymentPending,
		GatewayOrderID: gatewayOrderID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// CompletePayment transitions pending/pending to confirmed/completed.
// The payment id is set once; replays must short-circuit before this call.
func (o *Order) CompletePayment(gatewayPaymentID string, at time.Time) error {
	if o.PaymentStatus == PaymentCompleted {
		return ErrAlreadyCompleted
	}
	if o.Status != StatusPending || o.PaymentStatus != PaymentPending {
		return ErrInvalidTransition
	}
	o.Status = StatusConfirmed
	o.PaymentStatus = PaymentCompleted
	o.GatewayPaymentID = gatewayPaymentID
	completedAt := at.UTC()
	o.PaymentCompletedAt = &completedAt
	o.touch()
	return nil
}

// Cancel transitions pending/pending to cancelled/failed. It covers both an
// explicit buyer abort and reservation expiry; the reservation itself is
// restored by the caller.
func (o *Order) Cancel() error {
	if o.Status != StatusPending || o.PaymentStatus != PaymentPending {
		return ErrInvalidTransition
	}
	o.Status = StatusCancelled
	o.PaymentStatus = PaymentFailed
	o.touch()
	return nil
}

// Refund transitions confirmed/completed to completed/refunded.
func (o *Order) Refund(refundID string) error {
	if o.Status != StatusConfirmed || o.PaymentStatus != PaymentCompleted {
		return ErrInvalidTransition
	}
	o.Status = StatusCompleted
	o.PaymentStatus = PaymentRefunded
	o.RefundID = refundID
	o.touch()
	return nil
}

// Clone returns a deep copy so stores can hand out values without aliasing
// their internal state.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	if o.PaymentCompletedAt != nil {
		at := *o.PaymentCompletedAt
		clone.PaymentCompletedAt = &at
	}
	return &clone
}

func (o *Order) touch() {
	o.UpdatedAt = time.Now().UTC()
}
