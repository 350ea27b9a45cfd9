package models

// User represents an authenticated customer or admin.
type User struct {
	BaseModel
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Email        string `gorm:"uniqueIndex" json:"email"`
	DisplayName  string `json:"display_name"`
	Phone        string `json:"phone"`
	PasswordHash string `json:"-"`
	IsAdmin      bool   `json:"is_admin"`

	// SavedAddress is the checkout form snapshot persisted when a customer
	// ticks "save for future". Updates merge into these columns only and
	// leave the rest of the profile untouched.
	SavedAddress ShippingAddress `gorm:"embedded;embeddedPrefix:saved_" json:"saved_address"`

	CartItems     []CartItem     `json:"cart_items,omitempty"`
	WishlistItems []WishlistItem `json:"wishlist_items,omitempty"`
	Orders        []Order        `json:"orders,omitempty"`
}
