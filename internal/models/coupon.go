package models

import "time"

// Coupon discount types.
const (
	DiscountPercent = "percentage"
	DiscountFixed   = "fixed"
)

// Coupon is an admin-managed discount code. Codes are stored uppercase so
// lookups are case-insensitive.
type Coupon struct {
	BaseModel
	Code          string     `gorm:"uniqueIndex" json:"code"`
	DiscountType  string     `json:"discountType"`
	DiscountValue float64    `json:"discountValue"`
	MinOrderValue float64    `json:"minOrderValue"`
	UsageLimit    int        `json:"usageLimit"`
	UsedCount     int        `json:"usedCount"`
	ValidFrom     *time.Time `json:"validFrom"`
	ValidUntil    *time.Time `json:"validUntil"`
	IsActive      bool       `json:"isActive"`
}
