package reconcile

import (
	"context"
	"encoding/json"
	"errors"

	domain "github.com/campus-bazaar/checkout/internal/domain/order"
	dompay "github.com/campus-bazaar/checkout/internal/domain/payment"
	"github.com/campus-bazaar/checkout/internal/pkg/logging"
	"github.com/campus-bazaar/checkout/internal/pkg/metrics"

	"go.uber.org/zap"
)

const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
	EventOrderPaid       = "order.paid"
	EventDisputeCreated  = "payment.dispute.created"
)

// Transitions is the slice of the checkout engine the reconciler drives.
// The reconciler is not a second state machine; it is a second caller of
// the same idempotent transitions, so duplicate or out-of-order delivery
// is safe by construction.
type Transitions interface {
	CompleteFromGateway(ctx context.Context, gatewayOrderID, gatewayPaymentID string) (*domain.Order, error)
	FailFromGateway(ctx context.Context, gatewayOrderID string) error
}

// Reconciler consumes asynchronous gateway push events and converges local
// order state, covering buyers whose browsers never return after payment.
type Reconciler struct {
	engine Transitions
	secret string
	met    *metrics.Metrics
}

func New(engine Transitions, webhookSecret string, met *metrics.Metrics) *Reconciler {
	if met == nil {
		met = metrics.NewNop()
	}
	return &Reconciler{
		engine: engine,
		secret: webhookSecret,
		met:    met,
	}
}

// envelope mirrors the provider's webhook payload shape.
type envelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
				Status  string `json:"status"`
			} `json:"entity"`
		} `json:"payment"`
		Order struct {
			Entity struct {
				ID string `json:"id"`
			} `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

// Process verifies and applies one webhook delivery. Only a bad signature is
// an error to the caller; every other failure is logged and acknowledged,
// because gateway retry storms are worse than a missed reconciliation
// caught by the expiry sweep.
func (r *Reconciler) Process(ctx context.Context, body []byte, signature string) error {
	if !dompay.VerifyWebhookSignature(body, signature, r.secret) {
		r.met.WebhookEvents.WithLabelValues("unknown", "bad_signature").Inc()
		return dompay.ErrInvalidSignature
	}

	logger := logging.FromContext(ctx)

	var ev envelope
	if err := json.Unmarshal(body, &ev); err != nil {
		r.met.WebhookEvents.WithLabelValues("unknown", "malformed").Inc()
		logger.Error("webhook_body_malformed", zap.Error(err))
		return nil
	}
	logger = logger.With(zap.String("event", ev.Event))

	outcome := "processed"
	switch ev.Event {
	case EventPaymentCaptured, EventOrderPaid:
		outcome = r.applyCapture(ctx, logger, ev)
	case EventPaymentFailed:
		outcome = r.applyFailure(ctx, logger, ev)
	case EventDisputeCreated:
		// No local transition; a dispute is an operator concern.
		logger.Warn("payment_dispute_created",
			zap.String("gateway_payment_id", ev.Payload.Payment.Entity.ID),
			zap.String("gateway_order_id", ev.Payload.Payment.Entity.OrderID),
		)
	default:
		outcome = "unhandled"
		logger.Debug("webhook_event_unhandled")
	}

	r.met.WebhookEvents.WithLabelValues(ev.Event, outcome).Inc()
	return nil
}

func (r *Reconciler) applyCapture(ctx context.Context, logger *zap.Logger, ev envelope) string {
	gatewayOrderID := ev.Payload.Payment.Entity.OrderID
	if gatewayOrderID == "" {
		gatewayOrderID = ev.Payload.Order.Entity.ID
	}
	paymentID := ev.Payload.Payment.Entity.ID
	if gatewayOrderID == "" || paymentID == "" {
		logger.Error("webhook_capture_missing_ids")
		return "malformed"
	}

	_, err := r.engine.CompleteFromGateway(ctx, gatewayOrderID, paymentID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		// Delivery can race order creation; never fabricate an order from
		// a webhook alone.
		logger.Info("webhook_order_unknown", zap.String("gateway_order_id", gatewayOrderID))
		return "order_unknown"
	case err != nil:
		logger.Error("webhook_capture_failed",
			zap.String("gateway_order_id", gatewayOrderID),
			zap.Error(err),
		)
		return "error"
	}
	return "processed"
}

func (r *Reconciler) applyFailure(ctx context.Context, logger *zap.Logger, ev envelope) string {
	gatewayOrderID := ev.Payload.Payment.Entity.OrderID
	if gatewayOrderID == "" {
		logger.Error("webhook_failure_missing_ids")
		return "malformed"
	}

	err := r.engine.FailFromGateway(ctx, gatewayOrderID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		logger.Info("webhook_order_unknown", zap.String("gateway_order_id", gatewayOrderID))
		return "order_unknown"
	case err != nil:
		logger.Error("webhook_failure_apply_failed",
			zap.String("gateway_order_id", gatewayOrderID),
			zap.Error(err),
		)
		return "error"
	}
	return "processed"
}
