package models

type Product struct {
	BaseModel
	Name        string  `json:"name"`
	Slug        string  `gorm:"uniqueIndex" json:"slug"`
	Description string  `json:"description"`
	Category    string  `gorm:"index" json:"category"`
	Price       float64 `json:"price"`
	Image       string  `json:"image"`
	SKU         string  `json:"sku"`
	Stock       int     `json:"stock"`
	IsActive    bool    `json:"is_active"`

	RatingAverage float64 `json:"rating_average"`
	RatingCount   int     `json:"rating_count"`
}
