package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// ErrInvalidSignature marks a payment proof that failed verification. The
// rejection mutates nothing; the caller may retry with a correct proof.
var ErrInvalidSignature = errors.New("payment: invalid signature, payment not verified")

// VerifySignature checks the payment proof the buyer's client returns after
// completing a charge: hex HMAC-SHA256 of "<orderID>|<paymentID>" under the
// gateway key secret. Fails closed: any missing input yields false.
func VerifySignature(gatewayOrderID, gatewayPaymentID, signature, secret string) bool {
	if gatewayOrderID == "" || gatewayPaymentID == "" || signature == "" || secret == "" {
		return false
	}
	expected := signPayload(gatewayOrderID+"|"+gatewayPaymentID, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// VerifyWebhookSignature checks a gateway push event: hex HMAC-SHA256 of the
// raw request body under the webhook secret, which is distinct from the
// payment-proof secret.
func VerifyWebhookSignature(body []byte, signature, secret string) bool {
	if len(body) == 0 || signature == "" || secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Sign computes the payment-proof signature. Exposed so tests and tooling
// can mint valid proofs.
func Sign(gatewayOrderID, gatewayPaymentID, secret string) string {
	return signPayload(gatewayOrderID+"|"+gatewayPaymentID, secret)
}

// SignWebhookBody computes the webhook signature for a raw body.
func SignWebhookBody(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func signPayload(payload, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
