package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/boldbrew/internal/models"
)

func newCouponTestApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()
	db := newHandlerTestDB(t)

	handler := NewCouponHandler(db)
	app := fiber.New()
	app.Get("/api/coupons/:code/validate", handler.ValidateCoupon)
	return app, db
}

func validateCoupon(t *testing.T, app *fiber.App, code string, subtotal float64) map[string]any {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet,
		fmt.Sprintf("/api/coupons/%s/validate?subtotal=%v", code, subtotal), nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	raw, _ := io.ReadAll(resp.Body)
	var body struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("decode %q: %v", raw, err)
	}
	return body.Data
}

func timePtr(t time.Time) *time.Time { return &t }

func TestValidateCoupon_PercentageDiscount(t *testing.T) {
	app, db := newCouponTestApp(t)

	db.Create(&models.Coupon{
		Code:          "BREW10",
		DiscountType:  models.DiscountPercent,
		DiscountValue: 10,
		MinOrderValue: 500,
		IsActive:      true,
	})

	data := validateCoupon(t, app, "brew10", 1000)
	if data["valid"] != true {
		t.Fatalf("data = %v, want valid (case-insensitive code)", data)
	}
	if data["discount"] != 100.0 {
		t.Fatalf("discount = %v, want 100", data["discount"])
	}
}

func TestValidateCoupon_FixedDiscountCappedAtSubtotal(t *testing.T) {
	app, db := newCouponTestApp(t)

	db.Create(&models.Coupon{
		Code:          "FLAT200",
		DiscountType:  models.DiscountFixed,
		DiscountValue: 200,
		IsActive:      true,
	})

	data := validateCoupon(t, app, "FLAT200", 150)
	if data["valid"] != true {
		t.Fatalf("data = %v", data)
	}
	if data["discount"] != 150.0 {
		t.Fatalf("discount = %v, fixed discount must not exceed the subtotal", data["discount"])
	}
}

func TestValidateCoupon_Rejections(t *testing.T) {
	app, db := newCouponTestApp(t)

	now := time.Now()
	db.Create(&models.Coupon{Code: "INACTIVE", DiscountType: models.DiscountFixed, DiscountValue: 50, IsActive: false})
	db.Create(&models.Coupon{Code: "EXPIRED", DiscountType: models.DiscountFixed, DiscountValue: 50, IsActive: true, ValidUntil: timePtr(now.Add(-time.Hour))})
	db.Create(&models.Coupon{Code: "NOTYET", DiscountType: models.DiscountFixed, DiscountValue: 50, IsActive: true, ValidFrom: timePtr(now.Add(time.Hour))})
	db.Create(&models.Coupon{Code: "MIN1000", DiscountType: models.DiscountFixed, DiscountValue: 50, MinOrderValue: 1000, IsActive: true})
	db.Create(&models.Coupon{Code: "USEDUP", DiscountType: models.DiscountFixed, DiscountValue: 50, UsageLimit: 5, UsedCount: 5, IsActive: true})

	for _, code := range []string{"INACTIVE", "EXPIRED", "NOTYET", "MIN1000", "USEDUP", "NOSUCHCODE"} {
		data := validateCoupon(t, app, code, 500)
		if data["valid"] != false {
			t.Errorf("%s: data = %v, want invalid", code, data)
		}
		if data["reason"] == "" {
			t.Errorf("%s: rejection must carry a reason", code)
		}
	}
}
