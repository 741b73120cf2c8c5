package checkout

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	dominv "github.com/campus-bazaar/checkout/internal/domain/inventory"
	domain "github.com/campus-bazaar/checkout/internal/domain/order"
	"github.com/campus-bazaar/checkout/internal/domain/outbox"
	dompay "github.com/campus-bazaar/checkout/internal/domain/payment"
	"github.com/campus-bazaar/checkout/internal/pkg/logging"
	"github.com/campus-bazaar/checkout/internal/pkg/metrics"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const (
	tracerName     = "checkout.engine"
	publishTimeout = 300 * time.Millisecond

	reasonExpired = "reservation expired"
	reasonAborted = "cancelled by buyer"
	reasonGateway = "gateway reported payment failure"
)

// Config carries the engine's provider-facing settings. KeySecret signs and
// verifies payment proofs; it is not the webhook secret.
type Config struct {
	KeySecret string
	Currency  string
}

// Engine orchestrates the order/payment lifecycle: reservation, gateway
// intent, verification, completion, cancellation, refund. Inventory is
// decremented at reservation time; verification is payment proof only and
// never touches stock.
type Engine struct {
	orders    domain.Store
	ledger    dominv.Ledger
	gateway   dompay.Gateway
	publisher outbox.Publisher
	idGen     IDGenerator
	met       *metrics.Metrics
	cfg       Config
}

func NewEngine(
	orders domain.Store,
	ledger dominv.Ledger,
	gateway dompay.Gateway,
	publisher outbox.Publisher,
	idGen IDGenerator,
	met *metrics.Metrics,
	cfg Config,
) *Engine {
	if met == nil {
		met = metrics.NewNop()
	}
	if cfg.Currency == "" {
		cfg.Currency = "INR"
	}
	return &Engine{
		orders:    orders,
		ledger:    ledger,
		gateway:   gateway,
		publisher: publisher,
		idGen:     idGen,
		met:       met,
		cfg:       cfg,
	}
}

// PurchaseResult is what the buyer's client needs to start the gateway
// checkout flow.
type PurchaseResult struct {
	LocalOrderID   string
	GatewayOrderID string
	Amount         int64
	Currency       string
}

// RequestPurchase reserves stock, mints a gateway intent, and persists the
// pending order. Reservation and gateway-intent creation are one logical
// unit: any failure after the reservation succeeded restores inventory
// before the error surfaces.
func (e *Engine) RequestPurchase(ctx context.Context, buyerID, itemID string, quantity int) (_ *PurchaseResult, err error) {
	ctx, done := e.begin(ctx, "RequestPurchase",
		attribute.String("order.item_id", itemID),
		attribute.Int("order.quantity", quantity),
	)
	defer func() { done(err) }()
	logger := logging.FromContext(ctx).With(zap.String("item_id", itemID), zap.String("buyer_id", buyerID))

	if itemID == "" {
		return nil, dominv.ErrNotFound
	}
	if quantity < 1 {
		return nil, domain.ErrInvalidQuantity
	}

	item, err := e.ledger.Get(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.SellerID == buyerID {
		return nil, domain.ErrSelfPurchase
	}

	if err := e.ledger.Reserve(ctx, itemID, quantity); err != nil {
		return nil, err
	}

	intent, err := e.gateway.CreateIntent(ctx, dompay.CreateIntentInput{
		Amount:   item.UnitPrice * int64(quantity),
		Currency: e.cfg.Currency,
		Receipt:  fmt.Sprintf("item_%d", time.Now().UnixMilli()),
		Notes: map[string]string{
			"item_id":   itemID,
			"item_name": item.Name,
			"quantity":  strconv.Itoa(quantity),
			"buyer_id":  buyerID,
		},
	})
	if err != nil {
		e.restore(ctx, itemID, quantity)
		return nil, err
	}

	entity, err := domain.New(e.idGen.NewID(), itemID, buyerID, item.SellerID, intent.GatewayOrderID, quantity, item.UnitPrice)
	if err != nil {
		e.restore(ctx, itemID, quantity)
		return nil, err
	}

	if err := e.orders.Insert(ctx, entity); err != nil {
		e.restore(ctx, itemID, quantity)
		return nil, err
	}

	e.publish(ctx, domain.NewOrderCreatedEvent(entity))
	logger.Info("purchase_reserved",
		zap.String("order_id", entity.ID),
		zap.String("gateway_order_id", entity.GatewayOrderID),
		zap.Int64("total_amount", entity.TotalAmount),
	)

	return &PurchaseResult{
		LocalOrderID:   entity.ID,
		GatewayOrderID: entity.GatewayOrderID,
		Amount:         intent.Amount,
		Currency:       intent.Currency,
	}, nil
}

// Confirm applies the buyer's payment proof. Replays of an already completed
// order return the stored record without re-verification; an invalid proof
// mutates nothing and leaves the order retryable.
func (e *Engine) Confirm(ctx context.Context, callerID, gatewayOrderID, gatewayPaymentID, signature string) (_ *domain.Order, err error) {
	ctx, done := e.begin(ctx, "Confirm",
		attribute.String("order.gateway_order_id", gatewayOrderID),
	)
	defer func() { done(err) }()

	stored, err := e.orders.GetByGatewayOrderID(ctx, gatewayOrderID)
	if err != nil {
		return nil, err
	}
	if stored.BuyerID != callerID {
		return nil, domain.ErrOwnershipMismatch
	}
	if stored.PaymentStatus == domain.PaymentCompleted {
		logging.FromContext(ctx).Info("confirm_replayed",
			zap.String("gateway_order_id", gatewayOrderID),
		)
		return stored, nil
	}

	if !dompay.VerifySignature(gatewayOrderID, gatewayPaymentID, signature, e.cfg.KeySecret) {
		return nil, dompay.ErrInvalidSignature
	}

	return e.completePayment(ctx, gatewayOrderID, gatewayPaymentID)
}

// CompleteFromGateway converges an order on a gateway-reported capture. The
// webhook signature has already been checked; this drives the same
// idempotent transition as Confirm.
func (e *Engine) CompleteFromGateway(ctx context.Context, gatewayOrderID, gatewayPaymentID string) (_ *domain.Order, err error) {
	ctx, done := e.begin(ctx, "CompleteFromGateway",
		attribute.String("order.gateway_order_id", gatewayOrderID),
	)
	defer func() { done(err) }()

	stored, err := e.orders.GetByGatewayOrderID(ctx, gatewayOrderID)
	if err != nil {
		return nil, err
	}
	if stored.PaymentStatus == domain.PaymentCompleted {
		return stored, nil
	}
	return e.completePayment(ctx, gatewayOrderID, gatewayPaymentID)
}

// FailFromGateway converges an order on a gateway-reported payment failure.
// Orders already past pending are left alone; out-of-order delivery after a
// successful capture must not unwind a completed payment.
func (e *Engine) FailFromGateway(ctx context.Context, gatewayOrderID string) (err error) {
	ctx, done := e.begin(ctx, "FailFromGateway",
		attribute.String("order.gateway_order_id", gatewayOrderID),
	)
	defer func() { done(err) }()

	_, err = e.cancel(ctx, gatewayOrderID, reasonGateway)
	if errors.Is(err, domain.ErrInvalidTransition) {
		logging.FromContext(ctx).Info("gateway_failure_ignored_order_final",
			zap.String("gateway_order_id", gatewayOrderID),
		)
		return nil
	}
	return err
}

// Cancel aborts a pending order on behalf of its buyer and releases the
// reservation.
func (e *Engine) Cancel(ctx context.Context, callerID, gatewayOrderID string) (_ *domain.Order, err error) {
	ctx, done := e.begin(ctx, "Cancel",
		attribute.String("order.gateway_order_id", gatewayOrderID),
	)
	defer func() { done(err) }()

	stored, err := e.orders.GetByGatewayOrderID(ctx, gatewayOrderID)
	if err != nil {
		return nil, err
	}
	if stored.BuyerID != callerID {
		return nil, domain.ErrOwnershipMismatch
	}
	return e.cancel(ctx, gatewayOrderID, reasonAborted)
}

// ExpireStale cancels pending orders reserved before the cutoff and restores
// their stock. Per-order failures are logged and skipped so one bad row
// cannot stall the sweep.
func (e *Engine) ExpireStale(ctx context.Context, ttl time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-ttl)
	stale, err := e.orders.ListStalePending(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	logger := logging.FromContext(ctx)
	expired := 0
	for _, o := range stale {
		if _, err := e.cancel(ctx, o.GatewayOrderID, reasonExpired); err != nil {
			logger.Warn("expiry_cancel_failed",
				zap.String("gateway_order_id", o.GatewayOrderID),
				zap.Error(err),
			)
			continue
		}
		expired++
	}
	if expired > 0 {
		logger.Info("stale_reservations_expired", zap.Int("count", expired))
	}
	return expired, nil
}

// Refund reverses a completed payment on the seller's behalf and restores
// stock when the item is still listed.
func (e *Engine) Refund(ctx context.Context, callerID, gatewayPaymentID string, amount int64, reason string) (_ *dompay.Refund, err error) {
	ctx, done := e.begin(ctx, "Refund",
		attribute.String("payment.gateway_payment_id", gatewayPaymentID),
	)
	defer func() { done(err) }()
	logger := logging.FromContext(ctx).With(zap.String("gateway_payment_id", gatewayPaymentID))

	stored, err := e.orders.GetByGatewayPaymentID(ctx, gatewayPaymentID)
	if err != nil {
		return nil, err
	}
	if stored.SellerID != callerID {
		return nil, domain.ErrOwnershipMismatch
	}
	if stored.PaymentStatus != domain.PaymentCompleted {
		return nil, domain.ErrInvalidTransition
	}

	refund, err := e.gateway.Refund(ctx, gatewayPaymentID, amount, reason)
	if err != nil {
		return nil, err
	}

	updated, err := e.orders.MarkRefunded(ctx, stored.GatewayOrderID, refund.ID)
	if err != nil {
		// The provider accepted the refund; the local record is now behind.
		logger.Error("refund_record_failed",
			zap.String("refund_id", refund.ID),
			zap.Error(err),
		)
		return refund, err
	}

	if _, lookupErr := e.ledger.Get(ctx, updated.ItemID); errors.Is(lookupErr, dominv.ErrNotFound) {
		logger.Warn("refund_restore_skipped_item_missing", zap.String("item_id", updated.ItemID))
	} else if lookupErr != nil {
		logger.Error("refund_restore_lookup_failed", zap.Error(lookupErr))
	} else {
		e.restore(ctx, updated.ItemID, updated.Quantity)
	}

	e.publish(ctx, domain.NewOrderRefundedEvent(updated))
	logger.Info("payment_refunded",
		zap.String("refund_id", refund.ID),
		zap.String("order_id", updated.ID),
	)
	return refund, nil
}

// PaymentDetails proxies a payment lookup to the gateway.
func (e *Engine) PaymentDetails(ctx context.Context, gatewayPaymentID string) (*dompay.Payment, error) {
	return e.gateway.FetchPayment(ctx, gatewayPaymentID)
}

// BoughtOrders lists the caller's purchases, newest first.
func (e *Engine) BoughtOrders(ctx context.Context, buyerID string) ([]*domain.Order, error) {
	return e.orders.ListByBuyer(ctx, buyerID)
}

// SoldOrders lists the caller's sales, newest first.
func (e *Engine) SoldOrders(ctx context.Context, sellerID string) ([]*domain.Order, error) {
	return e.orders.ListBySeller(ctx, sellerID)
}

// completePayment is the single completion transition shared by the client
// confirmation path and the webhook reconciler. The store applies it as a
// compare-and-set on the pending payment status, so concurrent callers
// converge on one completion.
func (e *Engine) completePayment(ctx context.Context, gatewayOrderID, gatewayPaymentID string) (*domain.Order, error) {
	stored, err := e.orders.CompletePayment(ctx, gatewayOrderID, gatewayPaymentID, time.Now().UTC())
	if errors.Is(err, domain.ErrAlreadyCompleted) {
		return stored, nil
	}
	if err != nil {
		return nil, err
	}

	e.publish(ctx, domain.NewOrderCompletedEvent(stored))
	logging.FromContext(ctx).Info("payment_completed",
		zap.String("order_id", stored.ID),
		zap.String("gateway_order_id", gatewayOrderID),
		zap.String("gateway_payment_id", gatewayPaymentID),
	)
	return stored, nil
}

func (e *Engine) cancel(ctx context.Context, gatewayOrderID, reason string) (*domain.Order, error) {
	cancelled, err := e.orders.Cancel(ctx, gatewayOrderID)
	if err != nil {
		return nil, err
	}
	e.restore(ctx, cancelled.ItemID, cancelled.Quantity)
	e.publish(ctx, domain.NewOrderCancelledEvent(cancelled, reason))
	logging.FromContext(ctx).Info("order_cancelled",
		zap.String("order_id", cancelled.ID),
		zap.String("gateway_order_id", gatewayOrderID),
		zap.String("reason", reason),
	)
	return cancelled, nil
}

// restore is the compensating action for a held reservation. A failed
// restore means stock is leaked until an operator intervenes, so it is
// logged at error level rather than propagated.
func (e *Engine) restore(ctx context.Context, itemID string, quantity int) {
	if err := e.ledger.Restore(ctx, itemID, quantity); err != nil {
		logging.FromContext(ctx).Error("inventory_restore_failed",
			zap.String("item_id", itemID),
			zap.Int("quantity", quantity),
			zap.Error(err),
		)
	}
}

func (e *Engine) publish(ctx context.Context, ev outbox.Event) {
	if e.publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := e.publisher.Publish(pubCtx, ev); err != nil {
		e.met.EventPublish.WithLabelValues(ev.EventName()).Inc()
		logging.FromContext(ctx).Warn("order_event_publish_failed",
			zap.String("event", ev.EventName()),
			zap.Error(err),
		)
	}
}

// begin opens an engine span and returns a closure that records the span
// status and the operation's RED metrics.
func (e *Engine) begin(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "Engine."+op)
	span.SetAttributes(attrs...)
	start := time.Now()

	return ctx, func(err error) {
		outcome := "success"
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()

		e.met.EngineOps.WithLabelValues(op, outcome).Inc()
		e.met.EngineOpTime.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}
}
