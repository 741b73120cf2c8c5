package httppresentation

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/campus-bazaar/checkout/internal/application/checkout"
	"github.com/campus-bazaar/checkout/internal/application/reconcile"
	domainInventory "github.com/campus-bazaar/checkout/internal/domain/inventory"
	domainOrder "github.com/campus-bazaar/checkout/internal/domain/order"
	domainPayment "github.com/campus-bazaar/checkout/internal/domain/payment"
	"github.com/campus-bazaar/checkout/internal/pkg/metrics"
)

const (
	// The identity provider is an external collaborator; the resolved buyer
	// id arrives on this header from the edge.
	headerUserID = "X-User-ID"

	headerWebhookSignature = "X-Razorpay-Signature"

	maxBodyBytes = 1 << 20
)

type Handler struct {
	engine     *checkout.Engine
	reconciler *reconcile.Reconciler
	log        *zap.Logger
	met        *metrics.Metrics
}

func NewHandler(engine *checkout.Engine, reconciler *reconcile.Reconciler, logger *zap.Logger, met *metrics.Metrics) *Handler {
	if met == nil {
		met = metrics.NewNop()
	}
	return &Handler{
		engine:     engine,
		reconciler: reconciler,
		log:        logger.With(zap.String("component", "http_server")),
		met:        met,
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID, chimw.RealIP)
	r.Use(h.withTrace)
	r.Use(h.withObservedRequest)

	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Post("/webhooks/payment", h.handleWebhook)

	r.Group(func(r chi.Router) {
		r.Use(h.requireUser)

		r.Post("/orders", h.handleRequestPurchase)
		r.Get("/orders/bought", h.handleBoughtOrders)
		r.Get("/orders/sold", h.handleSoldOrders)
		r.Post("/orders/{gatewayOrderID}/confirm", h.handleConfirm)
		r.Post("/orders/{gatewayOrderID}/cancel", h.handleCancel)

		r.Get("/payments/{paymentID}", h.handlePaymentDetails)
		r.Post("/payments/{paymentID}/refund", h.handleRefund)
	})

	return r
}

type purchaseRequest struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

type purchaseResponse struct {
	LocalOrderID   string `json:"local_order_id"`
	GatewayOrderID string `json:"gateway_order_id"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
}

func (h *Handler) handleRequestPurchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := h.engine.RequestPurchase(r.Context(), callerID(r), req.ItemID, req.Quantity)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, purchaseResponse{
		LocalOrderID:   result.LocalOrderID,
		GatewayOrderID: result.GatewayOrderID,
		Amount:         result.Amount,
		Currency:       result.Currency,
	})
}

type confirmRequest struct {
	GatewayPaymentID string `json:"gateway_payment_id"`
	Signature        string `json:"signature"`
}

func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	order, err := h.engine.Confirm(r.Context(),
		callerID(r),
		chi.URLParam(r, "gatewayOrderID"),
		req.GatewayPaymentID,
		req.Signature,
	)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(order))
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	order, err := h.engine.Cancel(r.Context(), callerID(r), chi.URLParam(r, "gatewayOrderID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(order))
}

func (h *Handler) handleBoughtOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.engine.BoughtOrders(r.Context(), callerID(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderViews(orders))
}

func (h *Handler) handleSoldOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.engine.SoldOrders(r.Context(), callerID(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderViews(orders))
}

func (h *Handler) handlePaymentDetails(w http.ResponseWriter, r *http.Request) {
	payment, err := h.engine.PaymentDetails(r.Context(), chi.URLParam(r, "paymentID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentView(payment))
}

type refundRequest struct {
	Amount int64  `json:"amount"` // minor units; 0 means full refund
	Reason string `json:"reason"`
}

func (h *Handler) handleRefund(w http.ResponseWriter, r *http.Request) {
	var req refundRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Reason == "" {
		req.Reason = "requested_by_customer"
	}

	refund, err := h.engine.Refund(r.Context(), callerID(r), chi.URLParam(r, "paymentID"), req.Amount, req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRefundView(refund))
}

// handleWebhook is signature-gated but unauthenticated. After the signature
// passes, processing failures are still acknowledged with 200; the gateway
// retrying a delivery we already logged is worse than the miss.
func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	err = h.reconciler.Process(r.Context(), body, r.Header.Get(headerWebhookSignature))
	if errors.Is(err, domainPayment.ErrInvalidSignature) {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// requireUser rejects requests whose buyer identity was not resolved by the
// edge. Session handling itself is out of scope.
func (h *Handler) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(headerUserID) == "" {
			writeError(w, http.StatusUnauthorized, errors.New("missing user identity"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func callerID(r *http.Request) string {
	return r.Header.Get(headerUserID)
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domainOrder.ErrNotFound),
		errors.Is(err, domainInventory.ErrNotFound),
		errors.Is(err, domainPayment.ErrPaymentNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, domainOrder.ErrOwnershipMismatch):
		writeError(w, http.StatusForbidden, err)
	case errors.Is(err, domainInventory.ErrOutOfStock),
		errors.Is(err, domainOrder.ErrConflict),
		errors.Is(err, domainOrder.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, domainOrder.ErrInvalidQuantity),
		errors.Is(err, domainOrder.ErrSelfPurchase),
		errors.Is(err, domainInventory.ErrInvalidQuantity),
		errors.Is(err, domainPayment.ErrInvalidSignature),
		errors.Is(err, domainPayment.ErrGatewayRejected):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, domainPayment.ErrGatewayUnavailable):
		writeError(w, http.StatusBadGateway, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}
