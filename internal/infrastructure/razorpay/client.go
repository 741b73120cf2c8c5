package razorpay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	domain "github.com/campus-bazaar/checkout/internal/domain/payment"
)

const defaultTimeout = 10 * time.Second

// Client is the payment.Gateway adapter for the Razorpay REST API. Every
// call is bounded by the configured timeout; a timeout surfaces as
// ErrGatewayUnavailable, which the caller may retry.
type Client struct {
	baseURL   string
	keyID     string
	keySecret string
	http      *http.Client
}

func NewClient(baseURL, keyID, keySecret string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:   baseURL,
		keyID:     keyID,
		keySecret: keySecret,
		http:      &http.Client{Timeout: timeout},
	}
}

type orderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type paymentResponse struct {
	ID       string `json:"id"`
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
	Method   string `json:"method"`
}

type refundResponse struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
}

type apiError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

func (c *Client) CreateIntent(ctx context.Context, in domain.CreateIntentInput) (*domain.Intent, error) {
	body := map[string]any{
		"amount":   in.Amount,
		"currency": in.Currency,
		"receipt":  in.Receipt,
		"notes":    in.Notes,
	}

	var out orderResponse
	if err := c.call(ctx, http.MethodPost, "/v1/orders", body, &out); err != nil {
		return nil, err
	}
	return &domain.Intent{
		GatewayOrderID: out.ID,
		Amount:         out.Amount,
		Currency:       out.Currency,
		Receipt:        out.Receipt,
	}, nil
}

func (c *Client) FetchPayment(ctx context.Context, paymentID string) (*domain.Payment, error) {
	var out paymentResponse
	if err := c.call(ctx, http.MethodGet, "/v1/payments/"+paymentID, nil, &out); err != nil {
		return nil, err
	}
	return &domain.Payment{
		ID:             out.ID,
		GatewayOrderID: out.OrderID,
		Amount:         out.Amount,
		Currency:       out.Currency,
		Status:         out.Status,
		Method:         out.Method,
	}, nil
}

func (c *Client) Refund(ctx context.Context, paymentID string, amount int64, reason string) (*domain.Refund, error) {
	body := map[string]any{
		"notes": map[string]string{"reason": reason},
	}
	if amount > 0 {
		body["amount"] = amount
	}

	var out refundResponse
	if err := c.call(ctx, http.MethodPost, "/v1/payments/"+paymentID+"/refund", body, &out); err != nil {
		return nil, err
	}
	return &domain.Refund{
		ID:        out.ID,
		PaymentID: out.PaymentID,
		Amount:    out.Amount,
		Status:    out.Status,
	}, nil
}

func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("razorpay: encode request: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("razorpay: build request: %w", err)
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", domain.ErrGatewayUnavailable, err)
	}

	switch {
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: provider returned %d", domain.ErrGatewayUnavailable, resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return domain.ErrPaymentNotFound
	case resp.StatusCode >= 400:
		var apiErr apiError
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Description != "" {
			return fmt.Errorf("%w: %s", domain.ErrGatewayRejected, apiErr.Error.Description)
		}
		return fmt.Errorf("%w: provider returned %d", domain.ErrGatewayRejected, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("razorpay: decode response: %w", err)
	}
	return nil
}
