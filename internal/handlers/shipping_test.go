package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/boldbrew/internal/config"
	"github.com/example/boldbrew/internal/models"
	"github.com/example/boldbrew/internal/services"
)

func newShippingTestApp(t *testing.T, db *gorm.DB, carrierURL string) *fiber.App {
	t.Helper()

	cfg := &config.Config{
		Shiprocket: config.Shiprocket{
			BaseURL:       carrierURL,
			Email:         "ops@example.com",
			Password:      "secret",
			PickupName:    "Home",
			PickupPincode: "110019",
		},
	}

	shiprocket := services.NewShiprocketService(db, cfg.Shiprocket)
	handler := NewShippingHandler(db, cfg, shiprocket, services.NewTelegramService("", ""))

	app := fiber.New()
	app.Post("/api/admin/shipping/orders", handler.CreateShipment)
	return app
}

func TestCreateShipment_BooksStoredOrderAndRecordsCarrierIDs(t *testing.T) {
	db := newHandlerTestDB(t)

	var bookedPayload services.ShiprocketOrder
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/external/auth/login":
			json.NewEncoder(w).Encode(map[string]any{"token": "tok"})
		case "/v1/external/orders/create/adhoc":
			if err := json.NewDecoder(r.Body).Decode(&bookedPayload); err != nil {
				t.Errorf("decode booking payload: %v", err)
			}
			json.NewEncoder(w).Encode(map[string]any{
				"order_id":    555001,
				"shipment_id": 666002,
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	app := newShippingTestApp(t, db, server.URL)

	order := models.Order{
		Status: models.StatusInProcess,
		Total:  898,
		Items: []models.OrderItem{
			{Name: "Dark Roast 250g", Quantity: 2, UnitPrice: 449},
		},
		Shipping: models.ShippingAddress{
			FullName: "Asha Rao",
			Address:  "14 MG Road",
			City:     "Bengaluru",
			State:    "Karnataka",
			Pincode:  "560001",
			Country:  "India",
			Email:    "asha@example.com",
			Phone:    "9876543210",
		},
		RazorpayPaymentID: "pay_ship",
	}
	if err := db.Create(&order).Error; err != nil {
		t.Fatalf("create order: %v", err)
	}

	body, _ := json.Marshal(map[string]any{"orderId": order.ID.String()})
	req := httptest.NewRequest(http.MethodPost, "/api/admin/shipping/orders", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, raw)
	}

	// The stored order went through the sanitizer on its way out.
	if bookedPayload.BillingCustomerName != "Asha Rao" {
		t.Fatalf("billing name = %q", bookedPayload.BillingCustomerName)
	}
	if bookedPayload.ShippingPincode != "560001" {
		t.Fatalf("shipping pincode = %q", bookedPayload.ShippingPincode)
	}
	if bookedPayload.PickupLocation != "Home" {
		t.Fatalf("pickup = %q, want configured default", bookedPayload.PickupLocation)
	}
	if len(bookedPayload.OrderItems) != 1 || bookedPayload.OrderItems[0].Units != 2 {
		t.Fatalf("items = %+v", bookedPayload.OrderItems)
	}

	var updated models.Order
	if err := db.First(&updated, "id = ?", order.ID).Error; err != nil {
		t.Fatalf("read order: %v", err)
	}
	if updated.Status != models.StatusShipped {
		t.Fatalf("status = %q, want Shipped", updated.Status)
	}
	if updated.ShiprocketOrderID != "555001" || updated.ShiprocketShipmentID != "666002" {
		t.Fatalf("carrier ids = %q/%q", updated.ShiprocketOrderID, updated.ShiprocketShipmentID)
	}
}

func TestCreateShipment_CarrierRejectionSurfacesMessage(t *testing.T) {
	db := newHandlerTestDB(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/external/auth/login" {
			json.NewEncoder(w).Encode(map[string]any{"token": "tok"})
			return
		}
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]any{"message": "Wrong Pickup location entered."})
	}))
	defer server.Close()

	app := newShippingTestApp(t, db, server.URL)

	order := models.Order{
		Status: models.StatusInProcess,
		Total:  100,
		Items:  []models.OrderItem{{Name: "House Blend", Quantity: 1, UnitPrice: 100}},
	}
	if err := db.Create(&order).Error; err != nil {
		t.Fatalf("create order: %v", err)
	}

	body, _ := json.Marshal(map[string]any{"orderId": order.ID.String()})
	req := httptest.NewRequest(http.MethodPost, "/api/admin/shipping/orders", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", resp.StatusCode)
	}

	raw, _ := io.ReadAll(resp.Body)
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded["success"] != false {
		t.Fatalf("body = %v", decoded)
	}
	if decoded["message"] != "Wrong Pickup location entered." {
		t.Fatalf("message = %q, want the carrier's text verbatim", decoded["message"])
	}

	// The order must not move to Shipped on failure.
	var stored models.Order
	db.First(&stored, "id = ?", order.ID)
	if stored.Status != models.StatusInProcess {
		t.Fatalf("status = %q, want unchanged", stored.Status)
	}
}

func TestCreateShipment_InputFailuresStayTagged(t *testing.T) {
	db := newHandlerTestDB(t)
	app := newShippingTestApp(t, db, "http://127.0.0.1:0")

	cases := []struct {
		name       string
		body       string
		wantStatus int
		wantMsg    string
	}{
		{"malformed body", `{"orderId": `, http.StatusBadRequest, "invalid request body"},
		{"bad order id", `{"orderId": "not-a-uuid"}`, http.StatusBadRequest, "invalid orderId"},
		{"unknown order", `{"orderId": "7b1ce0e4-2c3d-4a5f-9e8d-1f2a3b4c5d6e"}`, http.StatusNotFound, "order not found"},
		{"nothing to ship", `{}`, http.StatusBadRequest, "orderId or orderData is required"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/admin/shipping/orders", bytes.NewReader([]byte(tc.body)))
			req.Header.Set("Content-Type", "application/json")

			resp, err := app.Test(req, -1)
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			if resp.StatusCode != tc.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.wantStatus)
			}

			raw, _ := io.ReadAll(resp.Body)
			var decoded map[string]any
			if err := json.Unmarshal(raw, &decoded); err != nil {
				t.Fatalf("body %q is not the tagged shape: %v", raw, err)
			}
			if decoded["success"] != false {
				t.Fatalf("success = %v, want false", decoded["success"])
			}
			if decoded["message"] != tc.wantMsg {
				t.Fatalf("message = %q, want %q", decoded["message"], tc.wantMsg)
			}
		})
	}
}
