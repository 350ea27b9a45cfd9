package handlers

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/example/boldbrew/internal/config"
	"github.com/example/boldbrew/internal/models"
	"github.com/example/boldbrew/internal/services"
)

// ShippingHandler drives shipment booking from the admin dashboard. Every
// response carries a success flag instead of a bare error status so the
// dashboard can always render the carrier's message.
type ShippingHandler struct {
	db         *gorm.DB
	cfg        *config.Config
	shiprocket *services.ShiprocketService
	telegram   *services.TelegramService
}

// NewShippingHandler constructs ShippingHandler.
func NewShippingHandler(db *gorm.DB, cfg *config.Config, shiprocket *services.ShiprocketService, telegram *services.TelegramService) *ShippingHandler {
	return &ShippingHandler{db: db, cfg: cfg, shiprocket: shiprocket, telegram: telegram}
}

// carrierFailure renders a carrier-side failure with the carrier's own
// message when one is available.
func carrierFailure(c *fiber.Ctx, err error) error {
	var carrierErr *services.CarrierError
	if errors.As(err, &carrierErr) {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"success": false,
			"message": carrierErr.Message,
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"success": false,
		"message": err.Error(),
	})
}

// shipmentFailure keeps booking failures in the same tagged shape as
// carrierFailure, so the dashboard never sees an untagged error body.
func shipmentFailure(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}

type createShipmentRequest struct {
	OrderID        string         `json:"orderId"`
	OrderData      map[string]any `json:"orderData"`
	PickupLocation string         `json:"pickupLocation"`
	Length         float64        `json:"length"`
	Breadth        float64        `json:"breadth"`
	Height         float64        `json:"height"`
	Weight         float64        `json:"weight"`
}

// CreateShipment books a stored order (or ad-hoc order data) with the
// carrier. The order-like input is sanitized into the carrier's strict
// schema first; booking a stored order also moves it to Shipped and
// records the carrier identifiers.
func (h *ShippingHandler) CreateShipment(c *fiber.Ctx) error {
	var payload createShipmentRequest
	if err := c.BodyParser(&payload); err != nil {
		return shipmentFailure(c, fiber.StatusBadRequest, "invalid request body")
	}

	var stored *models.Order
	raw := payload.OrderData

	if payload.OrderID != "" {
		id, err := uuid.Parse(payload.OrderID)
		if err != nil {
			return shipmentFailure(c, fiber.StatusBadRequest, "invalid orderId")
		}
		var order models.Order
		if err := h.db.Preload("Items").First(&order, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shipmentFailure(c, fiber.StatusNotFound, "order not found")
			}
			return shipmentFailure(c, fiber.StatusInternalServerError, err.Error())
		}
		stored = &order
		raw = rawFromOrder(&order)
	}

	if raw == nil {
		return shipmentFailure(c, fiber.StatusBadRequest, "orderId or orderData is required")
	}

	if payload.PickupLocation != "" {
		raw["pickup_location"] = payload.PickupLocation
	} else if h.cfg.Shiprocket.PickupName != "" {
		raw["pickup_location"] = h.cfg.Shiprocket.PickupName
	}
	if payload.Length > 0 {
		raw["length"] = payload.Length
	}
	if payload.Breadth > 0 {
		raw["breadth"] = payload.Breadth
	}
	if payload.Height > 0 {
		raw["height"] = payload.Height
	}
	if payload.Weight > 0 {
		raw["weight"] = payload.Weight
	}

	sanitized, err := services.SanitizeShipmentOrder(raw)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": err.Error(),
		})
	}

	result, err := h.shiprocket.BookShipment(c.Context(), sanitized)
	if err != nil {
		return carrierFailure(c, err)
	}

	if stored != nil {
		stored.ShiprocketOrderID = result.OrderID.String()
		stored.ShiprocketShipmentID = result.ShipmentID.String()
		updates := map[string]any{
			"shiprocket_order_id":    stored.ShiprocketOrderID,
			"shiprocket_shipment_id": stored.ShiprocketShipmentID,
		}
		if models.CanTransition(stored.Status, models.StatusShipped) {
			stored.Status = models.StatusShipped
			updates["status"] = stored.Status
		}
		if err := h.db.Model(stored).Updates(updates).Error; err != nil {
			logrus.WithError(err).Error("[Shipping] booked but failed to record carrier ids")
		} else {
			go func(order models.Order) {
				if err := h.telegram.NotifyShipmentBooked(&order); err != nil {
					logrus.WithError(err).Warn("[Shipping] failed to notify booking")
				}
			}(*stored)
		}
	}

	return c.JSON(fiber.Map{"success": true, "data": result})
}

// rawFromOrder flattens a stored order into the loose shape the sanitizer
// consumes, so stored and ad-hoc orders go through the same normalization.
func rawFromOrder(order *models.Order) map[string]any {
	items := make([]any, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, map[string]any{
			"name":     item.Name,
			"sku":      item.SKU,
			"units":    item.Quantity,
			"price":    item.UnitPrice,
		})
	}

	return map[string]any{
		"order_id":   order.ID.String(),
		"order_date": order.CreatedAt.Format("2006-01-02 15:04"),
		"sub_total":  order.Total,
		"items":      items,
		"shipping": map[string]any{
			"fullName": order.Shipping.FullName,
			"address":  order.Shipping.Address,
			"city":     order.Shipping.City,
			"state":    order.Shipping.State,
			"pincode":  order.Shipping.Pincode,
			"country":  order.Shipping.Country,
			"email":    order.Shipping.Email,
			"phone":    order.Shipping.Phone,
		},
	}
}

// ListPickupAddresses proxies the carrier's configured pickup locations.
func (h *ShippingHandler) ListPickupAddresses(c *fiber.Ctx) error {
	addresses, err := h.shiprocket.ListPickupAddresses(c.Context())
	if err != nil {
		return carrierFailure(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": addresses})
}

// GetRates returns courier serviceability and rates for a route.
func (h *ShippingHandler) GetRates(c *fiber.Ctx) error {
	pickup := c.Query("pickupPincode", h.cfg.Shiprocket.PickupPincode)
	delivery := c.Query("deliveryPincode")

	weight := 0.5
	if w, err := strconv.ParseFloat(c.Query("weight"), 64); err == nil && w > 0 {
		weight = w
	}
	cod := c.Query("cod") == "1"

	rates, err := h.shiprocket.GetShipmentRates(c.Context(), pickup, delivery, weight, cod)
	if err != nil {
		var carrierErr *services.CarrierError
		if errors.As(err, &carrierErr) && carrierErr.Status == fiber.StatusBadRequest {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": carrierErr.Message,
			})
		}
		return carrierFailure(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "data": rates})
}

type assignAWBRequest struct {
	ShipmentID string `json:"shipmentId" validate:"required"`
	CourierID  string `json:"courierId"`
}

// AssignAWB requests a tracking number for a booked shipment.
func (h *ShippingHandler) AssignAWB(c *fiber.Ctx) error {
	var payload assignAWBRequest
	if err := c.BodyParser(&payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if payload.ShipmentID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "shipmentId is required")
	}

	assignment, err := h.shiprocket.AssignAWB(c.Context(), payload.ShipmentID, payload.CourierID)
	if err != nil {
		return carrierFailure(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "data": assignment})
}

// WarmCarrierToken primes the carrier token at boot so the first booking
// does not pay the login round trip. Failure is logged and ignored.
func (h *ShippingHandler) WarmCarrierToken(ctx context.Context) {
	if _, err := h.shiprocket.GetToken(ctx); err != nil {
		logrus.WithError(err).Warn("[Shipping] carrier token warm-up failed")
	}
}
