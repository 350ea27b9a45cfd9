package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/example/boldbrew/internal/config"
	"github.com/example/boldbrew/internal/middleware"
	"github.com/example/boldbrew/internal/models"
	"github.com/example/boldbrew/internal/services"
	"github.com/example/boldbrew/internal/utils"
)

// PaymentHandler exposes gateway order creation and payment verification.
type PaymentHandler struct {
	cfg      *config.Config
	gateway  *services.RazorpayService
	orders   *services.OrderService
	telegram *services.TelegramService
}

// NewPaymentHandler constructs PaymentHandler.
func NewPaymentHandler(cfg *config.Config, gateway *services.RazorpayService, orders *services.OrderService, telegram *services.TelegramService) *PaymentHandler {
	return &PaymentHandler{cfg: cfg, gateway: gateway, orders: orders, telegram: telegram}
}

type createPaymentOrderRequest struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// CreateOrder registers a pending payment with the gateway and returns the
// gateway order for the client-side checkout widget.
func (h *PaymentHandler) CreateOrder(c *fiber.Ctx) error {
	var payload createPaymentOrderRequest
	if err := c.BodyParser(&payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if payload.Amount <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "invalid amount")
	}

	order, err := h.gateway.CreateOrder(c.Context(), payload.Amount, payload.Currency)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": order})
}

// CheckoutPreferences proxies the client's standard-checkout preferences
// request to the gateway so the key secret never reaches the browser. The
// gateway's status and body are relayed as-is.
func (h *PaymentHandler) CheckoutPreferences(c *fiber.Ctx) error {
	status, body, err := h.gateway.CreateCheckoutPreference(c.Context(), c.Body())
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Status(status).Send(body)
}

// checkoutOrder is the order payload the client sends alongside the
// gateway confirmation.
type checkoutOrder struct {
	Items         []models.OrderItem     `json:"items"`
	Total         float64                `json:"total"`
	Shipping      models.ShippingAddress `json:"shipping"`
	SaveForFuture bool                   `json:"saveForFuture"`
}

type verifyPaymentRequest struct {
	RazorpayOrderID   string        `json:"razorpay_order_id" validate:"required"`
	RazorpayPaymentID string        `json:"razorpay_payment_id" validate:"required"`
	RazorpaySignature string        `json:"razorpay_signature" validate:"required"`
	Order             checkoutOrder `json:"orderData"`
}

// VerifyPayment checks the gateway signature and, only on success, records
// the order. A signature mismatch means the confirmation was not issued by
// the gateway for this order and nothing is persisted.
func (h *PaymentHandler) VerifyPayment(c *fiber.Ctx) error {
	var payload verifyPaymentRequest
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "failure",
			"message": "Missing required details.",
		})
	}

	if err := utils.Validate.Struct(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "failure",
			"message": "Missing required details.",
		})
	}

	ok := services.VerifyPaymentSignature(
		payload.RazorpayOrderID,
		payload.RazorpayPaymentID,
		payload.RazorpaySignature,
		h.cfg.Razorpay.KeySecret,
	)
	if !ok {
		logrus.WithFields(logrus.Fields{
			"razorpay_order_id":   payload.RazorpayOrderID,
			"razorpay_payment_id": payload.RazorpayPaymentID,
		}).Warn("[Payments] signature mismatch")

		go func(orderID, paymentID string) {
			if err := h.telegram.NotifyVerificationFailure(orderID, paymentID); err != nil {
				logrus.WithError(err).Warn("[Payments] failed to notify verification failure")
			}
		}(payload.RazorpayOrderID, payload.RazorpayPaymentID)

		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "failure",
			"message": "Payment verification failed (Signature Mismatch).",
		})
	}

	input := services.OrderInput{
		Items:             payload.Order.Items,
		Total:             payload.Order.Total,
		Shipping:          payload.Order.Shipping,
		RazorpayOrderID:   payload.RazorpayOrderID,
		RazorpayPaymentID: payload.RazorpayPaymentID,
		RazorpaySignature: payload.RazorpaySignature,
		SaveForFuture:     payload.Order.SaveForFuture,
	}
	if userID, authed := middleware.GetCurrentUserID(c); authed {
		input.UserID = &userID
	}

	orderID, err := h.orders.WriteOrder(c.Context(), input)
	if err != nil {
		logrus.WithError(err).Error("[Payments] failed to write verified order")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  "failure",
			"message": "Internal server error.",
		})
	}

	// The fiber context is recycled once the handler returns, so the
	// notification goroutine gets its own context.
	go func(paymentID string) {
		order, ferr := h.orders.FindByPaymentID(context.Background(), paymentID)
		if ferr != nil {
			return
		}
		if err := h.telegram.NotifyPaymentVerified(order); err != nil {
			logrus.WithError(err).Warn("[Payments] failed to notify verified payment")
		}
	}(input.RazorpayPaymentID)

	return c.JSON(fiber.Map{
		"status":  "success",
		"orderId": orderID,
	})
}

type unverifiedCheckoutRequest struct {
	Order checkoutOrder `json:"orderData"`
}

// UnverifiedCheckout records an order without gateway verification. It
// backs the client's last-resort fallback when the verify call cannot be
// reached, and is disabled unless explicitly enabled by configuration.
func (h *PaymentHandler) UnverifiedCheckout(c *fiber.Ctx) error {
	if !h.cfg.AllowUnverifiedCheckout {
		return fiber.NewError(fiber.StatusForbidden, "unverified checkout is disabled")
	}

	var payload unverifiedCheckoutRequest
	if err := c.BodyParser(&payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	input := services.OrderInput{
		Items:         payload.Order.Items,
		Total:         payload.Order.Total,
		Shipping:      payload.Order.Shipping,
		SaveForFuture: payload.Order.SaveForFuture,
		Note:          "Saved from client-only checkout (no server verification)",
	}
	if userID, authed := middleware.GetCurrentUserID(c); authed {
		input.UserID = &userID
	}

	orderID, err := h.orders.WriteOrder(c.Context(), input)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"orderId": orderID,
	})
}
