package order

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPendingOrder(t *testing.T) *Order {
	t.Helper()
	o, err := New("local-1", "item-1", "buyer-1", "seller-1", "order_1", 3, 10000)
	require.NoError(t, err)
	return o
}

func TestNew(t *testing.T) {
	o := newPendingOrder(t)

	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, PaymentPending, o.PaymentStatus)
	assert.Equal(t, int64(30000), o.TotalAmount)
	assert.Nil(t, o.PaymentCompletedAt)
	assert.Empty(t, o.GatewayPaymentID)
}

func TestNew_Validation(t *testing.T) {
	_, err := New("local-1", "item-1", "buyer-1", "seller-1", "order_1", 0, 10000)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = New("local-1", "item-1", "same-user", "same-user", "order_1", 1, 10000)
	assert.ErrorIs(t, err, ErrSelfPurchase)
}

func TestCompletePayment(t *testing.T) {
	o := newPendingOrder(t)
	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, o.CompletePayment("pay_1", at))

	assert.Equal(t, StatusConfirmed, o.Status)
	assert.Equal(t, PaymentCompleted, o.PaymentStatus)
	assert.Equal(t, "pay_1", o.GatewayPaymentID)
	require.NotNil(t, o.PaymentCompletedAt)
	assert.True(t, at.Equal(*o.PaymentCompletedAt))
}

func TestCompletePayment_Replay(t *testing.T) {
	o := newPendingOrder(t)
	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, o.CompletePayment("pay_1", at))

	err := o.CompletePayment("pay_2", at.Add(time.Minute))

	assert.ErrorIs(t, err, ErrAlreadyCompleted)
	// The first completion stands.
	assert.Equal(t, "pay_1", o.GatewayPaymentID)
	assert.True(t, at.Equal(*o.PaymentCompletedAt))
}

func TestCompletePayment_AfterCancel(t *testing.T) {
	o := newPendingOrder(t)
	require.NoError(t, o.Cancel())

	err := o.CompletePayment("pay_1", time.Now())

	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCancel(t *testing.T) {
	o := newPendingOrder(t)

	require.NoError(t, o.Cancel())

	assert.Equal(t, StatusCancelled, o.Status)
	assert.Equal(t, PaymentFailed, o.PaymentStatus)
}

func TestCancel_AfterCompletion(t *testing.T) {
	o := newPendingOrder(t)
	require.NoError(t, o.CompletePayment("pay_1", time.Now()))

	assert.ErrorIs(t, o.Cancel(), ErrInvalidTransition)
}

func TestRefund(t *testing.T) {
	o := newPendingOrder(t)
	require.NoError(t, o.CompletePayment("pay_1", time.Now()))

	require.NoError(t, o.Refund("rfnd_1"))

	assert.Equal(t, StatusCompleted, o.Status)
	assert.Equal(t, PaymentRefunded, o.PaymentStatus)
	assert.Equal(t, "rfnd_1", o.RefundID)
}

func TestRefund_RequiresCompletedPayment(t *testing.T) {
	o := newPendingOrder(t)
	assert.ErrorIs(t, o.Refund("rfnd_1"), ErrInvalidTransition)

	require.NoError(t, o.Cancel())
	assert.ErrorIs(t, o.Refund("rfnd_1"), ErrInvalidTransition)
}

func TestRefund_IsTerminal(t *testing.T) {
	o := newPendingOrder(t)
	require.NoError(t, o.CompletePayment("pay_1", time.Now()))
	require.NoError(t, o.Refund("rfnd_1"))

	assert.ErrorIs(t, o.Refund("rfnd_2"), ErrInvalidTransition)
	assert.ErrorIs(t, o.Cancel(), ErrInvalidTransition)
}

func TestClone(t *testing.T) {
	o := newPendingOrder(t)
	require.NoError(t, o.CompletePayment("pay_1", time.Now()))

	clone := o.Clone()
	*clone.PaymentCompletedAt = clone.PaymentCompletedAt.Add(time.Hour)
	clone.GatewayPaymentID = "pay_other"

	assert.Equal(t, "pay_1", o.GatewayPaymentID)
	assert.False(t, o.PaymentCompletedAt.Equal(*clone.PaymentCompletedAt))
}
