package order

import "time"

// OrderCreatedEvent is emitted when a reservation and gateway intent have
// both succeeded and the pending order is persisted.
type OrderCreatedEvent struct {
	OrderID        string
	GatewayOrderID string
	ItemID         string
	BuyerID        string
	SellerID       string
	Quantity       int
	TotalAmount    int64
	OccurredAt     time.Time
}

func (OrderCreatedEvent) EventName() string { return "order.created" }

func NewOrderCreatedEvent(o *Order) OrderCreatedEvent {
	return OrderCreatedEvent{
		OrderID:        o.ID,
		GatewayOrderID: o.GatewayOrderID,
		ItemID:         o.ItemID,
		BuyerID:        o.BuyerID,
		SellerID:       o.SellerID,
		Quantity:       o.Quantity,
		TotalAmount:    o.TotalAmount,
		OccurredAt:     time.Now().UTC(),
	}
}

// OrderCompletedEvent is emitted when payment is verified, by either the
// client confirmation path or the webhook reconciler.
type OrderCompletedEvent struct {
	OrderID          string
	GatewayOrderID   string
	GatewayPaymentID string
	OccurredAt       time.Time
}

func (OrderCompletedEvent) EventName() string { return "order.completed" }

func NewOrderCompletedEvent(o *Order) OrderCompletedEvent {
	return OrderCompletedEvent{
		OrderID:          o.ID,
		GatewayOrderID:   o.GatewayOrderID,
		GatewayPaymentID: o.GatewayPaymentID,
		OccurredAt:       time.Now().UTC(),
	}
}

// OrderCancelledEvent is emitted when a pending order is aborted or expires.
type OrderCancelledEvent struct {
	OrderID        string
	GatewayOrderID string
	Reason         string
	OccurredAt     time.Time
}

func (OrderCancelledEvent) EventName() string { return "order.cancelled" }

func NewOrderCancelledEvent(o *Order, reason string) OrderCancelledEvent {
	return OrderCancelledEvent{
		OrderID:        o.ID,
		GatewayOrderID: o.GatewayOrderID,
		Reason:         reason,
		OccurredAt:     time.Now().UTC(),
	}
}

// OrderRefundedEvent is emitted when a completed payment is refunded.
type OrderRefundedEvent struct {
	OrderID        string
	GatewayOrderID string
	RefundID       string
	OccurredAt     time.Time
}

func (OrderRefundedEvent) EventName() string { return "order.refunded" }

func NewOrderRefundedEvent(o *Order) OrderRefundedEvent {
	return OrderRefundedEvent{
		OrderID:        o.ID,
		GatewayOrderID: o.GatewayOrderID,
		RefundID:       o.RefundID,
		OccurredAt:     time.Now().UTC(),
	}
}
