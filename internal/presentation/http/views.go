package httppresentation

import (
	"time"

	domainOrder "github.com/campus-bazaar/checkout/internal/domain/order"
	domainPayment "github.com/campus-bazaar/checkout/internal/domain/payment"
)

type orderView struct {
	ID                 string     `json:"id"`
	ItemID             string     `json:"item_id"`
	BuyerID            string     `json:"buyer_id"`
	SellerID           string     `json:"seller_id"`
	Quantity           int        `json:"quantity"`
	UnitPrice          int64      `json:"unit_price"`
	TotalAmount        int64      `json:"total_amount"`
	Status             string     `json:"status"`
	PaymentStatus      string     `json:"payment_status"`
	GatewayOrderID     string     `json:"gateway_order_id"`
	GatewayPaymentID   string     `json:"gateway_payment_id,omitempty"`
	PaymentCompletedAt *time.Time `json:"payment_completed_at,omitempty"`
	RefundID           string     `json:"refund_id,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func toOrderView(o *domainOrder.Order) orderView {
	return orderView{
		ID:                 o.ID,
		ItemID:             o.ItemID,
		BuyerID:            o.BuyerID,
		SellerID:           o.SellerID,
		Quantity:           o.Quantity,
		UnitPrice:          o.UnitPrice,
		TotalAmount:        o.TotalAmount,
		Status:             string(o.Status),
		PaymentStatus:      string(o.PaymentStatus),
		GatewayOrderID:     o.GatewayOrderID,
		GatewayPaymentID:   o.GatewayPaymentID,
		PaymentCompletedAt: o.PaymentCompletedAt,
		RefundID:           o.RefundID,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}
}

func toOrderViews(orders []*domainOrder.Order) []orderView {
	out := make([]orderView, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderView(o))
	}
	return out
}

type paymentView struct {
	ID             string `json:"id"`
	GatewayOrderID string `json:"gateway_order_id"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	Status         string `json:"status"`
	Method         string `json:"method,omitempty"`
}

func toPaymentView(p *domainPayment.Payment) paymentView {
	return paymentView{
		ID:             p.ID,
		GatewayOrderID: p.GatewayOrderID,
		Amount:         p.Amount,
		Currency:       p.Currency,
		Status:         p.Status,
		Method:         p.Method,
	}
}

type refundView struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
}

func toRefundView(r *domainPayment.Refund) refundView {
	return refundView{
		ID:        r.ID,
		PaymentID: r.PaymentID,
		Amount:    r.Amount,
		Status:    r.Status,
	}
}
