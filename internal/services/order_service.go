package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/example/boldbrew/internal/models"
)

// OrderService persists verified orders and reads them back by payment id.
type OrderService struct {
	db *gorm.DB
}

func NewOrderService(db *gorm.DB) *OrderService {
	return &OrderService{db: db}
}

// OrderInput carries everything needed to persist one purchase.
type OrderInput struct {
	UserID            *uuid.UUID
	Items             []models.OrderItem
	Total             float64
	Shipping          models.ShippingAddress
	RazorpayOrderID   string
	RazorpayPaymentID string
	RazorpaySignature string
	SaveForFuture     bool
	Note              string
}

// WriteOrder persists an order exactly once per payment id. A replay with
// the same payment id returns the stored order's id and leaves the record
// untouched, regardless of the rest of the payload. The partial unique
// index on razorpay_payment_id backs the query-before-insert guard, so a
// concurrent duplicate insert loses cleanly and is resolved by re-reading.
func (s *OrderService) WriteOrder(ctx context.Context, in OrderInput) (uuid.UUID, error) {
	if in.RazorpayPaymentID != "" {
		if existing, err := s.FindByPaymentID(ctx, in.RazorpayPaymentID); err == nil {
			return existing.ID, nil
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, err
		}
	}

	order := models.Order{
		UserID:            in.UserID,
		Items:             in.Items,
		Total:             in.Total,
		Status:            models.StatusInProcess,
		Shipping:          in.Shipping,
		RazorpayOrderID:   in.RazorpayOrderID,
		RazorpayPaymentID: in.RazorpayPaymentID,
		RazorpaySignature: in.RazorpaySignature,
		Note:              in.Note,
	}

	if err := s.db.WithContext(ctx).Create(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) && in.RazorpayPaymentID != "" {
			existing, ferr := s.FindByPaymentID(ctx, in.RazorpayPaymentID)
			if ferr != nil {
				return uuid.Nil, ferr
			}
			return existing.ID, nil
		}
		return uuid.Nil, err
	}

	if in.SaveForFuture && in.UserID != nil {
		if err := s.saveAddressForFuture(ctx, *in.UserID, in.Shipping); err != nil {
			logrus.Warnf("[Orders] failed to save address for user %s: %v", in.UserID, err)
		}
	}

	return order.ID, nil
}

// FindByPaymentID reads back the order written for a payment id. Oldest
// write wins, which deduplicates reads if a duplicate ever slips through.
func (s *OrderService) FindByPaymentID(ctx context.Context, paymentID string) (*models.Order, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).
		Preload("Items").
		Where("razorpay_payment_id = ?", paymentID).
		Order("created_at asc").
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// saveAddressForFuture merge-upserts the checkout address snapshot onto the
// user's profile without clobbering other profile fields.
func (s *OrderService) saveAddressForFuture(ctx context.Context, userID uuid.UUID, addr models.ShippingAddress) error {
	return s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"saved_full_name": addr.FullName,
			"saved_address":   addr.Address,
			"saved_city":      addr.City,
			"saved_state":     addr.State,
			"saved_pincode":   addr.Pincode,
			"saved_country":   addr.Country,
			"saved_email":     addr.Email,
			"saved_phone":     addr.Phone,
		}).Error
}
