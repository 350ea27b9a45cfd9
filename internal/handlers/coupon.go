package handlers

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/boldbrew/internal/models"
	"github.com/example/boldbrew/internal/utils"
)

// CouponHandler manages discount codes and validates them against a cart
// subtotal.
type CouponHandler struct {
	db *gorm.DB
}

// NewCouponHandler constructs CouponHandler.
func NewCouponHandler(db *gorm.DB) *CouponHandler {
	return &CouponHandler{db: db}
}

// ListCoupons returns all coupons for the admin dashboard.
func (h *CouponHandler) ListCoupons(c *fiber.Ctx) error {
	var coupons []models.Coupon
	if err := h.db.Order("created_at desc").Find(&coupons).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": coupons})
}

type couponRequest struct {
	Code          string     `json:"code" validate:"required"`
	DiscountType  string     `json:"discountType" validate:"required,oneof=percentage fixed"`
	DiscountValue float64    `json:"discountValue" validate:"gt=0"`
	MinOrderValue float64    `json:"minOrderValue" validate:"gte=0"`
	UsageLimit    int        `json:"usageLimit" validate:"gte=0"`
	ValidFrom     *time.Time `json:"validFrom"`
	ValidUntil    *time.Time `json:"validUntil"`
	IsActive      bool       `json:"isActive"`
}

// CreateCoupon persists a new discount code. Codes are uppercased so
// lookups are case-insensitive.
func (h *CouponHandler) CreateCoupon(c *fiber.Ctx) error {
	var payload couponRequest
	if err := c.BodyParser(&payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := utils.Validate.Struct(&payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid coupon: "+err.Error())
	}

	coupon := models.Coupon{
		Code:          strings.ToUpper(strings.TrimSpace(payload.Code)),
		DiscountType:  payload.DiscountType,
		DiscountValue: payload.DiscountValue,
		MinOrderValue: payload.MinOrderValue,
		UsageLimit:    payload.UsageLimit,
		ValidFrom:     payload.ValidFrom,
		ValidUntil:    payload.ValidUntil,
		IsActive:      payload.IsActive,
	}

	if err := h.db.Create(&coupon).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fiber.NewError(fiber.StatusConflict, "coupon code already exists")
		}
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": coupon})
}

// UpdateCoupon updates an existing coupon.
func (h *CouponHandler) UpdateCoupon(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var coupon models.Coupon
	if err := h.db.First(&coupon, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "coupon not found")
		}
		return err
	}

	var payload couponRequest
	if err := c.BodyParser(&payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := utils.Validate.Struct(&payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid coupon: "+err.Error())
	}

	updates := map[string]any{
		"code":            strings.ToUpper(strings.TrimSpace(payload.Code)),
		"discount_type":   payload.DiscountType,
		"discount_value":  payload.DiscountValue,
		"min_order_value": payload.MinOrderValue,
		"usage_limit":     payload.UsageLimit,
		"valid_from":      payload.ValidFrom,
		"valid_until":     payload.ValidUntil,
		"is_active":       payload.IsActive,
	}
	if err := h.db.Model(&coupon).Updates(updates).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": coupon})
}

// DeleteCoupon removes a coupon by ID.
func (h *CouponHandler) DeleteCoupon(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	if err := h.db.Delete(&models.Coupon{}, "id = ?", id).Error; err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ValidateCoupon checks a code against a cart subtotal and returns the
// discount it would apply. A fixed discount never exceeds the subtotal.
func (h *CouponHandler) ValidateCoupon(c *fiber.Ctx) error {
	code := strings.ToUpper(strings.TrimSpace(c.Params("code")))
	subtotal, err := strconv.ParseFloat(c.Query("subtotal"), 64)
	if err != nil || subtotal < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "invalid subtotal")
	}

	invalid := func(reason string) error {
		return c.JSON(fiber.Map{
			"success": true,
			"data":    fiber.Map{"valid": false, "reason": reason},
		})
	}

	var coupon models.Coupon
	if err := h.db.First(&coupon, "code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return invalid("coupon not found")
		}
		return err
	}

	now := time.Now()
	switch {
	case !coupon.IsActive:
		return invalid("coupon is inactive")
	case coupon.ValidFrom != nil && now.Before(*coupon.ValidFrom):
		return invalid("coupon is not active yet")
	case coupon.ValidUntil != nil && now.After(*coupon.ValidUntil):
		return invalid("coupon has expired")
	case subtotal < coupon.MinOrderValue:
		return invalid("order value below coupon minimum")
	case coupon.UsageLimit > 0 && coupon.UsedCount >= coupon.UsageLimit:
		return invalid("coupon usage limit reached")
	}

	var discount float64
	switch coupon.DiscountType {
	case models.DiscountPercent:
		discount = subtotal * coupon.DiscountValue / 100
	case models.DiscountFixed:
		discount = math.Min(coupon.DiscountValue, subtotal)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"valid":    true,
			"code":     coupon.Code,
			"discount": math.Round(discount*100) / 100,
		},
	})
}
