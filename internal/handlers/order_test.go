package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/boldbrew/internal/config"
	"github.com/example/boldbrew/internal/middleware"
	"github.com/example/boldbrew/internal/models"
	"github.com/example/boldbrew/internal/services"
	"github.com/example/boldbrew/internal/utils"
)

func newOrderTestApp(t *testing.T) (*fiber.App, *gorm.DB, *config.Config) {
	t.Helper()
	db := newHandlerTestDB(t)

	cfg := &config.Config{JWTSecret: "jwt_secret", TokenExpires: time.Hour}
	orders := services.NewOrderService(db)
	handler := NewOrderHandler(db, orders, services.NewReconciliationService(orders))

	app := fiber.New()
	app.Get("/api/orders", middleware.AuthMiddleware(cfg), handler.ListMyOrders)
	app.Patch("/api/admin/orders/:id/status", handler.UpdateStatus)
	return app, db, cfg
}

func TestUpdateStatus_Transitions(t *testing.T) {
	app, db, _ := newOrderTestApp(t)

	order := models.Order{Status: models.StatusInProcess, Total: 100}
	if err := db.Create(&order).Error; err != nil {
		t.Fatalf("create order: %v", err)
	}

	patch := func(status string) int {
		body, _ := json.Marshal(map[string]string{"status": status})
		req := httptest.NewRequest(http.MethodPatch, "/api/admin/orders/"+order.ID.String()+"/status", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req, -1)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		io.Copy(io.Discard, resp.Body)
		return resp.StatusCode
	}

	// In Process cannot jump straight to Completed.
	if code := patch(models.StatusCompleted); code != http.StatusBadRequest {
		t.Fatalf("In Process -> Completed: status %d, want 400", code)
	}

	if code := patch(models.StatusShipped); code != http.StatusOK {
		t.Fatalf("In Process -> Shipped: status %d, want 200", code)
	}
	if code := patch(models.StatusCompleted); code != http.StatusOK {
		t.Fatalf("Shipped -> Completed: status %d, want 200", code)
	}

	// Cancellation after completion is rejected.
	if code := patch(models.StatusCancelled); code != http.StatusBadRequest {
		t.Fatalf("Completed -> Cancelled: status %d, want 400", code)
	}

	if code := patch("Refunded"); code != http.StatusBadRequest {
		t.Fatalf("unknown status: %d, want 400", code)
	}

	var stored models.Order
	db.First(&stored, "id = ?", order.ID)
	if stored.Status != models.StatusCompleted {
		t.Fatalf("stored status = %q, want Completed", stored.Status)
	}
}

func TestUpdateStatus_CancelledIsTerminal(t *testing.T) {
	app, db, _ := newOrderTestApp(t)

	order := models.Order{Status: models.StatusCancelled, Total: 100}
	if err := db.Create(&order).Error; err != nil {
		t.Fatalf("create order: %v", err)
	}

	body, _ := json.Marshal(map[string]string{"status": models.StatusInProcess})
	req := httptest.NewRequest(http.MethodPatch, "/api/admin/orders/"+order.ID.String()+"/status", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, cancelled orders must stay cancelled", resp.StatusCode)
	}
}

func TestListMyOrders_IncludesLegacyOrdersByEmail(t *testing.T) {
	app, db, cfg := newOrderTestApp(t)

	user := models.User{Email: "asha@example.com", PasswordHash: "x"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}

	// One order linked by user id, one legacy order matched by email, one
	// belonging to someone else.
	db.Create(&models.Order{UserID: &user.ID, Total: 100, Status: models.StatusInProcess,
		Shipping: models.ShippingAddress{Email: "other@example.com"}})
	db.Create(&models.Order{Total: 200, Status: models.StatusInProcess,
		Shipping: models.ShippingAddress{Email: "asha@example.com"}})
	db.Create(&models.Order{Total: 300, Status: models.StatusInProcess,
		Shipping: models.ShippingAddress{Email: "stranger@example.com"}})

	token, err := utils.GenerateToken(cfg.JWTSecret, user.ID, false, time.Hour)
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	raw, _ := io.ReadAll(resp.Body)
	var body struct {
		Data []models.Order `json:"data"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(body.Data) != 2 {
		t.Fatalf("got %d orders, want own + legacy = 2", len(body.Data))
	}
	for _, o := range body.Data {
		if o.Total == 300 {
			t.Fatal("a stranger's order leaked into the list")
		}
	}
}
