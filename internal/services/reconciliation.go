package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/example/boldbrew/internal/models"
)

// Confirmation is what the order-confirmed view renders. When the server
// write is not yet visible after the final read attempt, Degraded is true
// and Order is assembled from the caller's locally-held checkout data
// (no line items from the store, no server timestamp).
type Confirmation struct {
	Order         *models.Order `json:"order"`
	Degraded      bool          `json:"degraded"`
	DisplayStatus string        `json:"displayStatus"`
}

// LocalCheckout is the checkout snapshot the client still holds after the
// gateway redirect, used to render a degraded confirmation.
type LocalCheckout struct {
	Items    []models.OrderItem     `json:"items"`
	Total    float64                `json:"total"`
	Shipping models.ShippingAddress `json:"shipping"`
}

// ReconciliationService reads back the order written for a payment id,
// tolerating server-side write latency. The write happens asynchronously
// relative to the confirmation view, so the read retries on a fixed
// schedule and then degrades instead of blocking.
type ReconciliationService struct {
	orders *OrderService
	delays []time.Duration
}

func NewReconciliationService(orders *OrderService) *ReconciliationService {
	return &ReconciliationService{
		orders: orders,
		delays: []time.Duration{500 * time.Millisecond, 2 * time.Second},
	}
}

// Reconcile attempts a bounded series of reads for the order identified by
// paymentID. Each attempt waits its scheduled delay first; a hit returns
// the stored order, and a miss after the final attempt returns a degraded
// confirmation built from the local checkout snapshot.
func (s *ReconciliationService) Reconcile(ctx context.Context, paymentID string, local LocalCheckout) (*Confirmation, error) {
	for _, delay := range s.delays {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}

		order, err := s.orders.FindByPaymentID(ctx, paymentID)
		if err == nil {
			return &Confirmation{
				Order:         order,
				DisplayStatus: DisplayStatus(order.Status),
			}, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	degraded := &models.Order{
		Items:             local.Items,
		Total:             local.Total,
		Status:            models.StatusInProcess,
		Shipping:          local.Shipping,
		RazorpayPaymentID: paymentID,
	}

	return &Confirmation{
		Order:         degraded,
		Degraded:      true,
		DisplayStatus: models.StatusInProcess,
	}, nil
}

// DisplayStatus maps a stored status to what the confirmation view shows.
// "Completed" is rendered as "In Process" there; the stored value keeps
// both states. TODO: revisit whether the confirmation view should surface
// "Completed" directly.
func DisplayStatus(status string) string {
	if status == models.StatusCompleted {
		return models.StatusInProcess
	}
	if status == "" {
		return models.StatusInProcess
	}
	return status
}
