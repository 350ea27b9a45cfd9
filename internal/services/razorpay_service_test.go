package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/boldbrew/internal/config"
)

func signPayment(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyPaymentSignature(t *testing.T) {
	const secret = "test_secret"
	const orderID = "order_N9z3X"
	const paymentID = "pay_M4k2Q"

	sig := signPayment(secret, orderID, paymentID)

	if !VerifyPaymentSignature(orderID, paymentID, sig, secret) {
		t.Fatal("valid signature should verify")
	}

	// Flipping any single character must break verification.
	for i := 0; i < len(sig); i++ {
		mutated := []byte(sig)
		if mutated[i] == 'a' {
			mutated[i] = 'b'
		} else {
			mutated[i] = 'a'
		}
		if VerifyPaymentSignature(orderID, paymentID, string(mutated), secret) {
			t.Fatalf("mutated signature at index %d should not verify", i)
		}
	}

	if VerifyPaymentSignature(orderID, "pay_other", sig, secret) {
		t.Fatal("signature for a different payment should not verify")
	}
	if VerifyPaymentSignature(orderID, paymentID, sig, "other_secret") {
		t.Fatal("signature under a different secret should not verify")
	}
}

func TestVerifyPaymentSignature_MissingFieldsFailClosed(t *testing.T) {
	const secret = "test_secret"
	sig := signPayment(secret, "order_1", "pay_1")

	cases := []struct {
		name                         string
		orderID, paymentID, sigValue string
	}{
		{"empty order id", "", "pay_1", sig},
		{"empty payment id", "order_1", "", sig},
		{"empty signature", "order_1", "pay_1", ""},
		{"all empty", "", "", ""},
	}

	for _, tc := range cases {
		if VerifyPaymentSignature(tc.orderID, tc.paymentID, tc.sigValue, secret) {
			t.Fatalf("%s: verification must fail closed", tc.name)
		}
	}

	if VerifyPaymentSignature("order_1", "pay_1", sig, "") {
		t.Fatal("empty secret: verification must fail closed")
	}
}

func TestRazorpayService_CreateOrder(t *testing.T) {
	var captured struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
		Receipt  string `json:"receipt"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/orders" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "key_id" || pass != "key_secret" {
			t.Errorf("missing or wrong basic auth: %q %q", user, pass)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"id":       "order_created",
			"amount":   captured.Amount,
			"currency": captured.Currency,
			"status":   "created",
		})
	}))
	defer server.Close()

	svc := NewRazorpayService(config.Razorpay{
		KeyID:     "key_id",
		KeySecret: "key_secret",
		BaseURL:   server.URL,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	order, err := svc.CreateOrder(ctx, 250.00, "")
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	// Rupees convert to paise exactly once, at the gateway boundary.
	if captured.Amount != 25000 {
		t.Fatalf("amount = %d paise, want 25000", captured.Amount)
	}
	if captured.Currency != "INR" {
		t.Fatalf("currency = %q, want INR default", captured.Currency)
	}
	if order.ID != "order_created" {
		t.Fatalf("order id = %q", order.ID)
	}
}

func TestRazorpayService_CreateOrderRoundsFractionalPaise(t *testing.T) {
	var amount int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		json.NewDecoder(r.Body).Decode(&req)
		amount = int64(req["amount"].(float64))
		json.NewEncoder(w).Encode(map[string]any{"id": "order_x"})
	}))
	defer server.Close()

	svc := NewRazorpayService(config.Razorpay{KeyID: "k", KeySecret: "s", BaseURL: server.URL})

	if _, err := svc.CreateOrder(context.Background(), 19.99, "INR"); err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if amount != 1999 {
		t.Fatalf("amount = %d, want 1999", amount)
	}
}

func TestRazorpayService_CreateCheckoutPreference(t *testing.T) {
	var forwarded map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/standard_checkout/preferences" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if _, _, ok := r.BasicAuth(); !ok {
			t.Error("basic auth missing on forwarded request")
		}
		if err := json.NewDecoder(r.Body).Decode(&forwarded); err != nil {
			t.Errorf("decode forwarded payload: %v", err)
		}
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"description":"currency not supported"}}`))
	}))
	defer server.Close()

	svc := NewRazorpayService(config.Razorpay{KeyID: "k", KeySecret: "s", BaseURL: server.URL})

	status, body, err := svc.CreateCheckoutPreference(context.Background(), []byte(`{"currency":"XYZ"}`))
	if err != nil {
		t.Fatalf("CreateCheckoutPreference: %v", err)
	}

	if forwarded["currency"] != "XYZ" {
		t.Fatalf("forwarded payload = %v, want currency passed through", forwarded)
	}
	// Gateway failures relay as-is instead of being rewritten server-side.
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want the gateway's 400", status)
	}
	if !strings.Contains(string(body), "currency not supported") {
		t.Fatalf("body = %s, want gateway body verbatim", body)
	}
}
