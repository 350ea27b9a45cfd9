package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Order statuses. The raw status is stored as written by admin actions and
// shipment booking; the confirmation view substitutes "In Process" for
// "Completed" (presentation rule carried over from the storefront).
const (
	StatusInProcess = "In Process"
	StatusShipped   = "Shipped"
	StatusCompleted = "Completed"
	StatusCancelled = "Cancelled"
)

// CanTransition reports whether an order status change is legal.
// "Cancelled" is terminal; "Completed" is only reachable from "Shipped".
func CanTransition(from, to string) bool {
	if from == to {
		return true
	}
	switch from {
	case StatusInProcess:
		return to == StatusShipped || to == StatusCancelled
	case StatusShipped:
		return to == StatusCompleted || to == StatusCancelled
	default:
		return false
	}
}

// ShippingAddress is the address snapshot embedded on each order. The JSON
// field names are the wire contract shared with the confirmation view, the
// admin order list and the shipment booking flow; do not rename them.
type ShippingAddress struct {
	FullName string `json:"fullName"`
	Address  string `json:"address"`
	City     string `json:"city"`
	State    string `json:"state"`
	Pincode  string `json:"pincode"`
	Country  string `json:"country"`
	Email    string `gorm:"index" json:"email"`
	Phone    string `json:"phone"`
}

// Order represents one completed or in-flight purchase. Legacy orders may
// lack a UserID and are matched by shipping email instead.
type Order struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"-"`

	UserID *uuid.UUID  `gorm:"type:uuid;index" json:"userId"`
	Items  []OrderItem `json:"items,omitempty"`
	Total  float64     `json:"total"`
	Status string      `json:"status"`

	Shipping ShippingAddress `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping"`

	// Payment identifiers are immutable once written. The payment ID gets a
	// partial unique index so the idempotency guard holds under a write race.
	RazorpayOrderID   string `gorm:"index" json:"razorpayOrderId"`
	RazorpayPaymentID string `gorm:"uniqueIndex:uniq_orders_razorpay_payment_id,where:razorpay_payment_id <> ''" json:"razorpayPaymentId"`
	RazorpaySignature string `json:"razorpaySignature,omitempty"`

	ShiprocketOrderID    string `json:"shiprocketOrderId,omitempty"`
	ShiprocketShipmentID string `json:"shiprocketShipmentId,omitempty"`

	Note string `json:"note,omitempty"`
}

// BeforeCreate assigns the order ID.
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// OrderItem is one line of an order.
type OrderItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"-"`
	OrderID   uuid.UUID `gorm:"type:uuid;index" json:"-"`
	Name      string    `json:"name"`
	SKU       string    `json:"sku,omitempty"`
	Quantity  int       `json:"quantity"`
	UnitPrice float64   `json:"unitPrice"`
}

// BeforeCreate assigns the line item ID.
func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
