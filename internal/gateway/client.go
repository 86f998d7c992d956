// Package gateway is the HTTP client for the external payment
// provider (razorpay-compatible API surface). Every call carries a
// bounded timeout; failures map to domain.GatewayError with the
// retryable flag set for timeouts and 5xx responses, so the
// orchestrator can leave a payment PENDING instead of failing it.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"tickethub/internal/domain"
	"tickethub/internal/monitoring"
)

type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
	Raw      string `json:"-"`
}

type PaymentInfo struct {
	ID      string `json:"id"`
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Amount  int64  `json:"amount"`
	Raw     string `json:"-"`
}

type RefundRecord struct {
	ID     string `json:"id"`
	Amount int64  `json:"amount"`
	Status string `json:"status"`
	Raw    string `json:"-"`
}

// Captured is the gateway's terminal success status for a payment.
const StatusCaptured = "captured"

type Client struct {
	baseURL   string
	keyID     string
	keySecret string
	http      *http.Client
}

func NewClient(baseURL, keyID, keySecret string, timeout time.Duration) *Client {
	return &Client{
		baseURL:   baseURL,
		keyID:     keyID,
		keySecret: keySecret,
		http:      &http.Client{Timeout: timeout},
	}
}

// do runs one gateway round-trip and classifies the failure mode.
func (c *Client) do(ctx context.Context, op, method, path string, body interface{}, out interface{}) (string, error) {
	start := time.Now()
	raw, err := c.roundTrip(ctx, method, path, body, out)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	monitoring.GatewayRequest(op, outcome, time.Since(start))
	if err != nil {
		return "", err
	}
	return raw, nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body interface{}, out interface{}) (string, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return "", fmt.Errorf("marshal gateway request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return "", fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.http.Do(req)
	if err != nil {
		// timeouts and connection failures are retryable
		return "", &domain.GatewayError{Op: path, Retryable: true, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &domain.GatewayError{Op: path, Retryable: true, Err: err}
	}

	switch {
	case resp.StatusCode >= 500:
		return "", &domain.GatewayError{Op: path, Retryable: true, Err: fmt.Errorf("gateway returned %d: %s", resp.StatusCode, data)}
	case resp.StatusCode >= 400:
		return "", &domain.GatewayError{Op: path, Retryable: false, Err: fmt.Errorf("gateway returned %d: %s", resp.StatusCode, data)}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return "", &domain.GatewayError{Op: path, Retryable: false, Err: fmt.Errorf("decode gateway response: %w", err)}
		}
	}
	return string(data), nil
}

// CreateOrder opens an order for amountMinor minor currency units.
func (c *Client) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (*Order, error) {
	var order Order
	raw, err := c.do(ctx, "create_order", http.MethodPost, "/orders", map[string]interface{}{
		"amount":   amountMinor,
		"currency": currency,
		"receipt":  receipt,
	}, &order)
	if err != nil {
		return nil, err
	}
	order.Raw = raw
	return &order, nil
}

// FetchPayment returns the gateway's authoritative view of a payment.
func (c *Client) FetchPayment(ctx context.Context, externalTxnID string) (*PaymentInfo, error) {
	var info PaymentInfo
	raw, err := c.do(ctx, "fetch_payment", http.MethodGet, "/payments/"+externalTxnID, nil, &info)
	if err != nil {
		return nil, err
	}
	info.Raw = raw
	return &info, nil
}

// Refund refunds amountMinor minor units of a captured payment.
func (c *Client) Refund(ctx context.Context, externalTxnID string, amountMinor int64) (*RefundRecord, error) {
	var rec RefundRecord
	raw, err := c.do(ctx, "refund", http.MethodPost, "/payments/"+externalTxnID+"/refund", map[string]interface{}{
		"amount": amountMinor,
	}, &rec)
	if err != nil {
		return nil, err
	}
	rec.Raw = raw
	return &rec, nil
}
