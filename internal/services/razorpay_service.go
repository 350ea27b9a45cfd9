package services

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/example/boldbrew/internal/config"
)

// VerifyPaymentSignature checks that a claimed payment confirmation was
// genuinely issued by the gateway for the given order. The expected value is
// HMAC-SHA256(secret, orderID + "|" + paymentID) hex-encoded. Any missing
// input fails closed before the comparison is attempted.
func VerifyPaymentSignature(orderID, paymentID, signature, secret string) bool {
	if orderID == "" || paymentID == "" || signature == "" || secret == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}

// GatewayOrder is the order object returned by the payment gateway. Amount
// is in the minor unit (paise).
type GatewayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// RazorpayService creates gateway orders on behalf of the storefront.
type RazorpayService struct {
	cfg        config.Razorpay
	httpClient *http.Client
}

func NewRazorpayService(cfg config.Razorpay) *RazorpayService {
	return &RazorpayService{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type createGatewayOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

// CreateOrder registers the payment with the gateway. The amount arrives in
// the major currency unit (rupees) and is converted to the minor unit
// (paise) only here, at the gateway boundary.
func (s *RazorpayService) CreateOrder(ctx context.Context, amount float64, currency string) (*GatewayOrder, error) {
	if currency == "" {
		currency = "INR"
	}

	payload := createGatewayOrderRequest{
		Amount:   int64(math.Round(amount * 100)),
		Currency: currency,
		Receipt:  fmt.Sprintf("receipt_%d", time.Now().UnixMilli()),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal gateway order payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create gateway order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(s.cfg.KeyID, s.cfg.KeySecret)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute gateway order request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read gateway order response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("gateway order creation failed: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	var order GatewayOrder
	if err := json.Unmarshal(respBody, &order); err != nil {
		return nil, fmt.Errorf("unmarshal gateway order response: %w", err)
	}

	return &order, nil
}

// CreateCheckoutPreference forwards a standard-checkout preferences payload
// to the gateway. The storefront never talks to the gateway directly because
// the key secret stays server-side; the gateway's status and body are passed
// through untouched.
func (s *RazorpayService) CreateCheckoutPreference(ctx context.Context, payload json.RawMessage) (int, json.RawMessage, error) {
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+"/v1/standard_checkout/preferences", bytes.NewReader(payload))
	if err != nil {
		return 0, nil, fmt.Errorf("create preference request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(s.cfg.KeyID, s.cfg.KeySecret)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("execute preference request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read preference response: %w", err)
	}

	return resp.StatusCode, respBody, nil
}
