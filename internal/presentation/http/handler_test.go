package httppresentation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campus-bazaar/checkout/internal/application/checkout"
	"github.com/campus-bazaar/checkout/internal/application/reconcile"
	domainInventory "github.com/campus-bazaar/checkout/internal/domain/inventory"
	domainPayment "github.com/campus-bazaar/checkout/internal/domain/payment"
	"github.com/campus-bazaar/checkout/internal/infrastructure/id"
	"github.com/campus-bazaar/checkout/internal/infrastructure/memory"
	"github.com/campus-bazaar/checkout/internal/infrastructure/outbox"
)

const (
	testKeySecret     = "test_key_secret"
	testWebhookSecret = "test_webhook_secret"
)

type fakeGateway struct {
	intents int64
}

func (g *fakeGateway) CreateIntent(_ context.Context, in domainPayment.CreateIntentInput) (*domainPayment.Intent, error) {
	n := atomic.AddInt64(&g.intents, 1)
	return &domainPayment.Intent{
		GatewayOrderID: fmt.Sprintf("order_%d", n),
		Amount:         in.Amount,
		Currency:       in.Currency,
		Receipt:        in.Receipt,
	}, nil
}

func (g *fakeGateway) FetchPayment(_ context.Context, paymentID string) (*domainPayment.Payment, error) {
	if paymentID == "pay_missing" {
		return nil, domainPayment.ErrPaymentNotFound
	}
	return &domainPayment.Payment{ID: paymentID, Status: "captured", Currency: "INR"}, nil
}

func (g *fakeGateway) Refund(_ context.Context, paymentID string, amount int64, _ string) (*domainPayment.Refund, error) {
	return &domainPayment.Refund{ID: "rfnd_1", PaymentID: paymentID, Amount: amount, Status: "processed"}, nil
}

func setupServerTest(t *testing.T) (http.Handler, *memory.InventoryLedger) {
	t.Helper()
	store := memory.NewOrderStore()
	ledger := memory.NewInventoryLedger()

	item, err := domainInventory.NewItem("item-1", "seller-1", "vintage lamp", 10000, 5)
	require.NoError(t, err)
	ledger.Seed(item)

	logger := zap.NewNop()
	engine := checkout.NewEngine(store, ledger, &fakeGateway{}, outbox.NewLogPublisher(logger), id.NewUUIDGenerator(), nil, checkout.Config{
		KeySecret: testKeySecret,
		Currency:  "INR",
	})
	reconciler := reconcile.New(engine, testWebhookSecret, nil)
	return NewHandler(engine, reconciler, logger, nil).Router(), ledger
}

func doJSON(t *testing.T, router http.Handler, method, target, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	if userID != "" {
		req.Header.Set(headerUserID, userID)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func createOrder(t *testing.T, router http.Handler) map[string]any {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/orders", "buyer-1", map[string]any{
		"item_id":  "item-1",
		"quantity": 2,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	return decodeBody(t, rec)
}

func TestCreateOrderEndpoint(t *testing.T) {
	router, ledger := setupServerTest(t)

	body := createOrder(t, router)

	assert.NotEmpty(t, body["local_order_id"])
	assert.NotEmpty(t, body["gateway_order_id"])
	assert.EqualValues(t, 20000, body["amount"])
	assert.Equal(t, "INR", body["currency"])

	item, err := ledger.Get(context.Background(), "item-1")
	require.NoError(t, err)
	assert.Equal(t, 3, item.Quantity)
}

func TestCreateOrderEndpoint_RequiresIdentity(t *testing.T) {
	router, _ := setupServerTest(t)

	rec := doJSON(t, router, http.MethodPost, "/orders", "", map[string]any{
		"item_id":  "item-1",
		"quantity": 1,
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateOrderEndpoint_ErrorMapping(t *testing.T) {
	router, _ := setupServerTest(t)

	cases := []struct {
		name   string
		userID string
		body   map[string]any
		want   int
	}{
		{"unknown item", "buyer-1", map[string]any{"item_id": "missing", "quantity": 1}, http.StatusNotFound},
		{"zero quantity", "buyer-1", map[string]any{"item_id": "item-1", "quantity": 0}, http.StatusBadRequest},
		{"over stock", "buyer-1", map[string]any{"item_id": "item-1", "quantity": 6}, http.StatusConflict},
		{"self purchase", "seller-1", map[string]any{"item_id": "item-1", "quantity": 1}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodPost, "/orders", tc.userID, tc.body)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestCreateOrderEndpoint_MalformedBody(t *testing.T) {
	router, _ := setupServerTest(t)

	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewBufferString(`{"item_id":`))
	req.Header.Set(headerUserID, "buyer-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConfirmEndpoint(t *testing.T) {
	router, _ := setupServerTest(t)
	order := createOrder(t, router)
	gatewayOrderID := order["gateway_order_id"].(string)

	rec := doJSON(t, router, http.MethodPost, "/orders/"+gatewayOrderID+"/confirm", "buyer-1", map[string]any{
		"gateway_payment_id": "pay_1",
		"signature":          domainPayment.Sign(gatewayOrderID, "pay_1", testKeySecret),
	})

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "confirmed", body["status"])
	assert.Equal(t, "completed", body["payment_status"])
	assert.Equal(t, "pay_1", body["gateway_payment_id"])
	assert.NotEmpty(t, body["payment_completed_at"])
}

func TestConfirmEndpoint_BadSignature(t *testing.T) {
	router, _ := setupServerTest(t)
	order := createOrder(t, router)
	gatewayOrderID := order["gateway_order_id"].(string)

	rec := doJSON(t, router, http.MethodPost, "/orders/"+gatewayOrderID+"/confirm", "buyer-1", map[string]any{
		"gateway_payment_id": "pay_1",
		"signature":          "forged",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConfirmEndpoint_WrongCaller(t *testing.T) {
	router, _ := setupServerTest(t)
	order := createOrder(t, router)
	gatewayOrderID := order["gateway_order_id"].(string)

	rec := doJSON(t, router, http.MethodPost, "/orders/"+gatewayOrderID+"/confirm", "buyer-2", map[string]any{
		"gateway_payment_id": "pay_1",
		"signature":          domainPayment.Sign(gatewayOrderID, "pay_1", testKeySecret),
	})

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestConfirmEndpoint_UnknownOrder(t *testing.T) {
	router, _ := setupServerTest(t)

	rec := doJSON(t, router, http.MethodPost, "/orders/order_missing/confirm", "buyer-1", map[string]any{
		"gateway_payment_id": "pay_1",
		"signature":          "sig",
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelEndpoint(t *testing.T) {
	router, ledger := setupServerTest(t)
	order := createOrder(t, router)
	gatewayOrderID := order["gateway_order_id"].(string)

	rec := doJSON(t, router, http.MethodPost, "/orders/"+gatewayOrderID+"/cancel", "buyer-1", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "cancelled", body["status"])
	assert.Equal(t, "failed", body["payment_status"])

	item, err := ledger.Get(context.Background(), "item-1")
	require.NoError(t, err)
	assert.Equal(t, 5, item.Quantity)
}

func TestListEndpoints(t *testing.T) {
	router, _ := setupServerTest(t)
	createOrder(t, router)

	rec := doJSON(t, router, http.MethodGet, "/orders/bought", "buyer-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var bought []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bought))
	require.Len(t, bought, 1)
	assert.Equal(t, "buyer-1", bought[0]["buyer_id"])

	rec = doJSON(t, router, http.MethodGet, "/orders/sold", "seller-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var sold []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sold))
	require.Len(t, sold, 1)

	rec = doJSON(t, router, http.MethodGet, "/orders/bought", "someone-else", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var none []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &none))
	assert.Empty(t, none)
}

func TestPaymentDetailsEndpoint(t *testing.T) {
	router, _ := setupServerTest(t)

	rec := doJSON(t, router, http.MethodGet, "/payments/pay_1", "buyer-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "pay_1", body["id"])
	assert.Equal(t, "captured", body["status"])
	assert.Equal(t, "INR", body["currency"])

	rec = doJSON(t, router, http.MethodGet, "/payments/pay_missing", "buyer-1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRefundEndpoint(t *testing.T) {
	router, ledger := setupServerTest(t)
	order := createOrder(t, router)
	gatewayOrderID := order["gateway_order_id"].(string)

	rec := doJSON(t, router, http.MethodPost, "/orders/"+gatewayOrderID+"/confirm", "buyer-1", map[string]any{
		"gateway_payment_id": "pay_1",
		"signature":          domainPayment.Sign(gatewayOrderID, "pay_1", testKeySecret),
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/payments/pay_1/refund", "seller-1", map[string]any{
		"reason": "damaged item",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "rfnd_1", body["id"])
	assert.Equal(t, "pay_1", body["payment_id"])
	assert.Equal(t, "processed", body["status"])

	item, err := ledger.Get(context.Background(), "item-1")
	require.NoError(t, err)
	assert.Equal(t, 5, item.Quantity)
}

func TestRefundEndpoint_BuyerForbidden(t *testing.T) {
	router, _ := setupServerTest(t)
	order := createOrder(t, router)
	gatewayOrderID := order["gateway_order_id"].(string)

	rec := doJSON(t, router, http.MethodPost, "/orders/"+gatewayOrderID+"/confirm", "buyer-1", map[string]any{
		"gateway_payment_id": "pay_1",
		"signature":          domainPayment.Sign(gatewayOrderID, "pay_1", testKeySecret),
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/payments/pay_1/refund", "buyer-1", map[string]any{})

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func webhookRequest(t *testing.T, body []byte, signature string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set(headerWebhookSignature, signature)
	}
	return req
}

func TestWebhookEndpoint_CaptureCompletesOrder(t *testing.T) {
	router, _ := setupServerTest(t)
	order := createOrder(t, router)
	gatewayOrderID := order["gateway_order_id"].(string)

	body := []byte(fmt.Sprintf(
		`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":%q,"status":"captured"}}}}`,
		gatewayOrderID,
	))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, webhookRequest(t, body, domainPayment.SignWebhookBody(body, testWebhookSecret)))

	require.Equal(t, http.StatusOK, rec.Code)

	listed := doJSON(t, router, http.MethodGet, "/orders/bought", "buyer-1", nil)
	var bought []map[string]any
	require.NoError(t, json.Unmarshal(listed.Body.Bytes(), &bought))
	require.Len(t, bought, 1)
	assert.Equal(t, "completed", bought[0]["payment_status"])
}

func TestWebhookEndpoint_BadSignature(t *testing.T) {
	router, _ := setupServerTest(t)
	body := []byte(`{"event":"payment.captured","payload":{}}`)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, webhookRequest(t, body, "forged"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookEndpoint_UnknownOrderStillAcked(t *testing.T) {
	router, _ := setupServerTest(t)
	body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_missing"}}}}`)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, webhookRequest(t, body, domainPayment.SignWebhookBody(body, testWebhookSecret)))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := setupServerTest(t)

	rec := doJSON(t, router, http.MethodGet, "/healthz", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
}
