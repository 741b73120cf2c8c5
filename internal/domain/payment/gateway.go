package payment

import (
	"context"
	"errors"
)

var (
	// ErrGatewayUnavailable marks transport failures, timeouts, and provider
	// 5xx responses. The call may be retried by the caller.
	ErrGatewayUnavailable = errors.New("payment: gateway unavailable")
	// ErrGatewayRejected marks provider 4xx responses. Retrying the same
	// request cannot succeed; reserved inventory must be rolled back.
	ErrGatewayRejected = errors.New("payment: gateway rejected request")
	ErrPaymentNotFound = errors.New("payment: not found")
)

// Intent is the provider-side record of a pending charge.
type Intent struct {
	GatewayOrderID string
	Amount         int64 // minor units
	Currency       string
	Receipt        string
}

// Payment is the provider's view of a captured (or attempted) payment.
type Payment struct {
	ID             string
	GatewayOrderID string
	Amount         int64
	Currency       string
	Status         string
	Method         string
}

// Refund is the provider's record of a payment reversal.
type Refund struct {
	ID        string
	PaymentID string
	Amount    int64
	Status    string
}

// CreateIntentInput carries everything the provider needs to mint an intent.
// The receipt doubles as the provider-side idempotency key.
type CreateIntentInput struct {
	Amount   int64 // minor units
	Currency string
	Receipt  string
	Notes    map[string]string
}

// Gateway is the adapter to the external payment provider. Every call is
// bounded by the context and by the adapter's own timeout.
type Gateway interface {
	CreateIntent(ctx context.Context, in CreateIntentInput) (*Intent, error)
	FetchPayment(ctx context.Context, paymentID string) (*Payment, error)
	// Refund reverses a payment. Amount 0 requests a full refund.
	Refund(ctx context.Context, paymentID string, amount int64, reason string) (*Refund, error)
}
