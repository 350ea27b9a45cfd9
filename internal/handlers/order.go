package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/boldbrew/internal/middleware"
	"github.com/example/boldbrew/internal/models"
	"github.com/example/boldbrew/internal/services"
	"github.com/example/boldbrew/internal/utils"
)

// OrderHandler serves order history, the confirmation view and admin order
// management.
type OrderHandler struct {
	db             *gorm.DB
	orders         *services.OrderService
	reconciliation *services.ReconciliationService
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(db *gorm.DB, orders *services.OrderService, reconciliation *services.ReconciliationService) *OrderHandler {
	return &OrderHandler{db: db, orders: orders, reconciliation: reconciliation}
}

type confirmationRequest struct {
	PaymentID string                 `json:"paymentId" validate:"required"`
	Local     services.LocalCheckout `json:"local"`
}

// Confirmation resolves the order written for a payment id, retrying while
// the write settles and degrading to the client's local snapshot when it
// never becomes visible.
func (h *OrderHandler) Confirmation(c *fiber.Ctx) error {
	var payload confirmationRequest
	if err := c.BodyParser(&payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := utils.Validate.Struct(&payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "paymentId is required")
	}

	confirmation, err := h.reconciliation.Reconcile(c.Context(), payload.PaymentID, payload.Local)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": confirmation})
}

// ListMyOrders returns the authenticated user's orders. Orders written
// before accounts existed have no user id and are matched by shipping
// email instead.
func (h *OrderHandler) ListMyOrders(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "authentication required")
	}

	var user models.User
	if err := h.db.First(&user, "id = ?", userID).Error; err != nil {
		return err
	}

	var orders []models.Order
	if err := h.db.Preload("Items").
		Where("user_id = ? OR (user_id IS NULL AND shipping_email = ?)", userID, user.Email).
		Order("created_at desc").
		Find(&orders).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": orders})
}

// GetOrder returns one order, restricted to its owner unless the caller is
// an admin.
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var order models.Order
	if err := h.db.Preload("Items").First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "order not found")
		}
		return err
	}

	userID, authed := middleware.GetCurrentUserID(c)
	if !authed {
		return fiber.NewError(fiber.StatusUnauthorized, "authentication required")
	}
	if !middleware.IsAdmin(c) && (order.UserID == nil || *order.UserID != userID) {
		return fiber.NewError(fiber.StatusForbidden, "not your order")
	}

	return c.JSON(fiber.Map{"success": true, "data": order})
}

// ListAll returns paginated orders for the admin dashboard, newest first.
func (h *OrderHandler) ListAll(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	var orders []models.Order
	var total int64

	query := h.db.Model(&models.Order{})
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return err
	}

	if err := query.Preload("Items").
		Limit(pg.Limit).Offset(pg.Offset).
		Order("created_at desc").
		Find(&orders).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    orders,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// UpdateStatus moves an order through its lifecycle. Illegal transitions
// such as reviving a cancelled order are rejected.
func (h *OrderHandler) UpdateStatus(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var payload updateStatusRequest
	if err := c.BodyParser(&payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	switch payload.Status {
	case models.StatusInProcess, models.StatusShipped, models.StatusCompleted, models.StatusCancelled:
	default:
		return fiber.NewError(fiber.StatusBadRequest, "unknown status")
	}

	var order models.Order
	if err := h.db.First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "order not found")
		}
		return err
	}

	if !models.CanTransition(order.Status, payload.Status) {
		return fiber.NewError(fiber.StatusBadRequest, "illegal status transition from "+order.Status+" to "+payload.Status)
	}

	if err := h.db.Model(&order).Update("status", payload.Status).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": order})
}
