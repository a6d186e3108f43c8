// Package razorpay provides a minimal HTTP client for the Razorpay v1 API.
package razorpay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dhwanilabs/dhwani_backend/config"
)

var (
	ErrSignatureMismatch  = errors.New("razorpay: signature mismatch")
	ErrPaymentNotFound    = errors.New("razorpay: payment not found")
	ErrRefundFailed       = errors.New("razorpay: refund failed")
	ErrUnexpectedResponse = errors.New("razorpay: unexpected response from gateway")
)

// Client is a lightweight Razorpay HTTP client.
type Client struct {
	keyID         string
	keySecret     string
	webhookSecret string
	baseURL       string
	httpClient    *http.Client
}

// New creates a Client from config.
func New(cfg config.RazorpayConfig) *Client {
	return &Client{
		keyID:         cfg.KeyID,
		keySecret:     cfg.KeySecret,
		webhookSecret: cfg.WebhookSecret,
		baseURL:       "https://api.razorpay.com/v1",
		httpClient:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Order is the subset of the Razorpay order object this service uses.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// Payment is the subset of the Razorpay payment object this service uses.
type Payment struct {
	ID      string `json:"id"`
	OrderID string `json:"order_id"`
	Amount  int64  `json:"amount"`
	Status  string `json:"status"`
	Method  string `json:"method"`
	Email   string `json:"email"`
	Contact string `json:"contact"`
	VPA     string `json:"vpa"`
	Card    *struct {
		Last4   string `json:"last4"`
		Network string `json:"network"`
	} `json:"card"`
	Bank string `json:"bank"`
}

// CreateOrder creates a gateway order. amount is in the currency's smallest
// unit (paise for INR).
func (c *Client) CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*Order, error) {
	reqBody := map[string]any{
		"amount":   amount,
		"currency": currency,
		"receipt":  receipt,
	}
	if len(notes) > 0 {
		reqBody["notes"] = notes
	}

	var order Order
	if err := c.post(ctx, "/orders", reqBody, &order); err != nil {
		return nil, fmt.Errorf("razorpay create order: %w", err)
	}
	if order.ID == "" {
		return nil, ErrUnexpectedResponse
	}
	return &order, nil
}

// FetchPayment retrieves a payment by its gateway id.
func (c *Client) FetchPayment(ctx context.Context, paymentID string) (*Payment, error) {
	var p Payment
	if err := c.get(ctx, "/payments/"+paymentID, &p); err != nil {
		return nil, fmt.Errorf("razorpay fetch payment: %w", err)
	}
	if p.ID == "" {
		return nil, ErrPaymentNotFound
	}
	return &p, nil
}

// Refund issues a refund against a captured payment. amount is in the
// smallest unit; pass 0 for a full refund. Returns the refund id.
func (c *Client) Refund(ctx context.Context, paymentID string, amount int64, notes map[string]string) (string, error) {
	reqBody := map[string]any{}
	if amount > 0 {
		reqBody["amount"] = amount
	}
	if len(notes) > 0 {
		reqBody["notes"] = notes
	}

	var resp struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := c.post(ctx, "/payments/"+paymentID+"/refund", reqBody, &resp); err != nil {
		return "", fmt.Errorf("razorpay refund: %w", err)
	}
	if resp.ID == "" {
		return "", ErrRefundFailed
	}
	return resp.ID, nil
}

// VerifyCheckoutSignature verifies the signature Razorpay checkout returns
// after a successful payment: HMAC-SHA256(order_id + "|" + payment_id)
// keyed with the API secret.
func (c *Client) VerifyCheckoutSignature(orderID, paymentID, signature string) error {
	return verifyHMAC([]byte(orderID+"|"+paymentID), signature, c.keySecret)
}

// VerifyWebhookSignature verifies the X-Razorpay-Signature header of a
// webhook delivery: HMAC-SHA256 over the raw request body keyed with the
// webhook secret.
func (c *Client) VerifyWebhookSignature(body []byte, signature string) error {
	return verifyHMAC(body, signature, c.webhookSecret)
}

func verifyHMAC(message []byte, signature, secret string) error {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrSignatureMismatch
	}
	return nil
}

// post sends an authenticated JSON POST to baseURL+path and decodes the response.
func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.keySecret)

	return c.do(req, out)
}

// get sends an authenticated GET to baseURL+path and decodes the response.
func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.keyID, c.keySecret)

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return ErrPaymentNotFound
	}
	if res.StatusCode >= 400 {
		var apiErr struct {
			Error struct {
				Code        string `json:"code"`
				Description string `json:"description"`
			} `json:"error"`
		}
		_ = json.NewDecoder(res.Body).Decode(&apiErr)
		return fmt.Errorf("%w (status=%d, code=%s, desc=%s)",
			ErrUnexpectedResponse, res.StatusCode, apiErr.Error.Code, apiErr.Error.Description)
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
