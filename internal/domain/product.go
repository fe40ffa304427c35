package domain

import "time"

// Product represents a catalog item sold by the storefront
type Product struct {
	ID                int64     `json:"id,string" form:"id"`
	Name              string    `gorm:"index" json:"name" form:"name"`
	Description       string    `gorm:"size:2048" json:"description" form:"description"`
	Category          string    `gorm:"index;size:64" json:"category" form:"category"`
	Price             float64   `json:"price" form:"price"`
	OriginalPrice     float64   `json:"original_price,omitempty" form:"original_price"` // pre-sale price, 0 when never discounted
	Image             string    `gorm:"size:1024" json:"image" form:"image"`
	Quantity          int       `json:"quantity" form:"quantity"` // on-hand stock mirrored from the inventory ledger
	LowStockThreshold int       `json:"low_stock_threshold" form:"low_stock_threshold"`
	InStock           bool      `json:"in_stock" form:"in_stock"`
	OutOfOrder        bool      `json:"out_of_order" form:"out_of_order"` // admin purchase block independent of stock
	Rating            float64   `json:"rating"`
	ReviewCount       int       `json:"review_count"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// TableName Specify table name
func (Product) TableName() string {
	return "products"
}

// Sellable reports whether the product may be added to a cart at all,
// independent of available quantity.
func (p Product) Sellable() bool {
	return p.InStock && !p.OutOfOrder
}
