package reconcile

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/campus-bazaar/checkout/internal/domain/order"
	dompay "github.com/campus-bazaar/checkout/internal/domain/payment"
)

const testWebhookSecret = "test_webhook_secret"

type call struct {
	op             string
	gatewayOrderID string
	paymentID      string
}

type stubTransitions struct {
	calls       []call
	completeErr error
	failErr     error
}

func (s *stubTransitions) CompleteFromGateway(_ context.Context, gatewayOrderID, gatewayPaymentID string) (*domain.Order, error) {
	s.calls = append(s.calls, call{op: "complete", gatewayOrderID: gatewayOrderID, paymentID: gatewayPaymentID})
	if s.completeErr != nil {
		return nil, s.completeErr
	}
	return &domain.Order{GatewayOrderID: gatewayOrderID, GatewayPaymentID: gatewayPaymentID}, nil
}

func (s *stubTransitions) FailFromGateway(_ context.Context, gatewayOrderID string) error {
	s.calls = append(s.calls, call{op: "fail", gatewayOrderID: gatewayOrderID})
	return s.failErr
}

func setupReconcilerTest(t *testing.T) (*Reconciler, *stubTransitions) {
	t.Helper()
	engine := &stubTransitions{}
	return New(engine, testWebhookSecret, nil), engine
}

func signedBody(t *testing.T, event, orderID, paymentID string) ([]byte, string) {
	t.Helper()
	body := []byte(fmt.Sprintf(
		`{"event":%q,"payload":{"payment":{"entity":{"id":%q,"order_id":%q,"status":"captured"}}}}`,
		event, paymentID, orderID,
	))
	return body, dompay.SignWebhookBody(body, testWebhookSecret)
}

func TestProcess_PaymentCaptured(t *testing.T) {
	r, engine := setupReconcilerTest(t)
	body, sig := signedBody(t, EventPaymentCaptured, "order_1", "pay_1")

	err := r.Process(context.Background(), body, sig)

	require.NoError(t, err)
	require.Len(t, engine.calls, 1)
	assert.Equal(t, call{op: "complete", gatewayOrderID: "order_1", paymentID: "pay_1"}, engine.calls[0])
}

func TestProcess_OrderPaidFallsBackToOrderEntity(t *testing.T) {
	r, engine := setupReconcilerTest(t)
	body := []byte(`{"event":"order.paid","payload":{"payment":{"entity":{"id":"pay_1"}},"order":{"entity":{"id":"order_1"}}}}`)
	sig := dompay.SignWebhookBody(body, testWebhookSecret)

	err := r.Process(context.Background(), body, sig)

	require.NoError(t, err)
	require.Len(t, engine.calls, 1)
	assert.Equal(t, "order_1", engine.calls[0].gatewayOrderID)
}

func TestProcess_BadSignatureRejected(t *testing.T) {
	r, engine := setupReconcilerTest(t)
	body, _ := signedBody(t, EventPaymentCaptured, "order_1", "pay_1")

	err := r.Process(context.Background(), body, "deadbeef")

	require.ErrorIs(t, err, dompay.ErrInvalidSignature)
	assert.Empty(t, engine.calls)
}

func TestProcess_TamperedBodyRejected(t *testing.T) {
	r, engine := setupReconcilerTest(t)
	body, sig := signedBody(t, EventPaymentCaptured, "order_1", "pay_1")
	tampered := append([]byte(nil), body...)
	tampered[len(tampered)-2] = 'x'

	err := r.Process(context.Background(), tampered, sig)

	require.ErrorIs(t, err, dompay.ErrInvalidSignature)
	assert.Empty(t, engine.calls)
}

func TestProcess_MalformedBodyAcked(t *testing.T) {
	r, engine := setupReconcilerTest(t)
	body := []byte(`{"event":`)
	sig := dompay.SignWebhookBody(body, testWebhookSecret)

	err := r.Process(context.Background(), body, sig)

	require.NoError(t, err)
	assert.Empty(t, engine.calls)
}

func TestProcess_UnknownOrderAcked(t *testing.T) {
	r, engine := setupReconcilerTest(t)
	engine.completeErr = domain.ErrNotFound
	body, sig := signedBody(t, EventPaymentCaptured, "order_unknown", "pay_1")

	err := r.Process(context.Background(), body, sig)

	require.NoError(t, err)
}

func TestProcess_EngineErrorStillAcked(t *testing.T) {
	r, engine := setupReconcilerTest(t)
	engine.completeErr = fmt.Errorf("store down")
	body, sig := signedBody(t, EventPaymentCaptured, "order_1", "pay_1")

	err := r.Process(context.Background(), body, sig)

	require.NoError(t, err)
}

func TestProcess_DuplicateCaptureDelivery(t *testing.T) {
	r, engine := setupReconcilerTest(t)
	body, sig := signedBody(t, EventPaymentCaptured, "order_1", "pay_1")

	require.NoError(t, r.Process(context.Background(), body, sig))
	require.NoError(t, r.Process(context.Background(), body, sig))

	// Both deliveries reach the engine; idempotency lives in the completion
	// transition, not in delivery tracking.
	assert.Len(t, engine.calls, 2)
}

func TestProcess_PaymentFailed(t *testing.T) {
	r, engine := setupReconcilerTest(t)
	body, sig := signedBody(t, EventPaymentFailed, "order_1", "pay_1")

	err := r.Process(context.Background(), body, sig)

	require.NoError(t, err)
	require.Len(t, engine.calls, 1)
	assert.Equal(t, call{op: "fail", gatewayOrderID: "order_1"}, engine.calls[0])
}

func TestProcess_CaptureMissingIDsAcked(t *testing.T) {
	r, engine := setupReconcilerTest(t)
	body := []byte(`{"event":"payment.captured","payload":{}}`)
	sig := dompay.SignWebhookBody(body, testWebhookSecret)

	err := r.Process(context.Background(), body, sig)

	require.NoError(t, err)
	assert.Empty(t, engine.calls)
}

func TestProcess_DisputeAcked(t *testing.T) {
	r, engine := setupReconcilerTest(t)
	body, sig := signedBody(t, EventDisputeCreated, "order_1", "pay_1")

	err := r.Process(context.Background(), body, sig)

	require.NoError(t, err)
	assert.Empty(t, engine.calls)
}

func TestProcess_UnhandledEventAcked(t *testing.T) {
	r, engine := setupReconcilerTest(t)
	body, sig := signedBody(t, "payout.processed", "order_1", "pay_1")

	err := r.Process(context.Background(), body, sig)

	require.NoError(t, err)
	assert.Empty(t, engine.calls)
}
