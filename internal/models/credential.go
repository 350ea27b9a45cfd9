package models

import "time"

// CarrierCredential caches one bearer token per logistics carrier.
// Concurrent refreshes are tolerated: the auth endpoint is idempotent in
// effect and the latest write wins.
type CarrierCredential struct {
	BaseModel
	Carrier     string    `gorm:"uniqueIndex" json:"carrier"`
	Token       string    `json:"-"`
	ExpiresAt   time.Time `json:"expiresAt"`
	LastUpdated time.Time `json:"lastUpdated"`
}
