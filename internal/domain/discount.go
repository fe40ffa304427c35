package domain

import (
	"strings"
	"time"
)

// Discount types
const (
	DiscountPercentage   = "percentage"
	DiscountFixedAmount  = "fixed_amount"
	DiscountFreeShipping = "free_shipping"
	DiscountBuyXGetY     = "buy_x_get_y"
)

// Discount is a promo code definition. Codes are unique
// case-insensitively; lookups normalize to upper case.
type Discount struct {
	ID                 int64     `json:"id,string" form:"id"`
	Code               string    `gorm:"uniqueIndex;size:64" json:"code" form:"code"`
	Description        string    `gorm:"size:512" json:"description" form:"description"`
	Type               string    `gorm:"size:32" json:"type" form:"type"`
	Value              float64   `json:"value" form:"value"` // percent for percentage, currency for fixed_amount
	BuyQuantity        int       `json:"buy_quantity" form:"buy_quantity"` // buy_x_get_y only
	GetQuantity        int       `json:"get_quantity" form:"get_quantity"` // buy_x_get_y only
	MinimumOrderAmount float64   `json:"minimum_order_amount" form:"minimum_order_amount"`
	MaximumDiscountAmount float64 `json:"maximum_discount_amount" form:"maximum_discount_amount"` // 0 = no cap
	ApplicableCategories  string  `gorm:"size:512" json:"applicable_categories" form:"applicable_categories"` // comma separated, empty = all
	ExcludedProductIds    string  `gorm:"size:1024" json:"excluded_product_ids" form:"excluded_product_ids"`  // comma separated
	StartAt            time.Time `json:"start_at" form:"start_at"`
	EndAt              time.Time `json:"end_at" form:"end_at"`
	UsageLimit         int       `json:"usage_limit" form:"usage_limit"` // 0 = unlimited
	UsageCount         int       `json:"usage_count"`
	IsStackable        bool      `json:"is_stackable" form:"is_stackable"`
	IsActive           bool      `gorm:"index" json:"is_active" form:"is_active"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// TableName Specify table name
func (Discount) TableName() string {
	return "discounts"
}

// Categories returns the applicable category list, nil when unrestricted.
func (d Discount) Categories() []string {
	return splitCsv(d.ApplicableCategories)
}

// ExcludedProducts returns the excluded product id list.
func (d Discount) ExcludedProducts() []string {
	return splitCsv(d.ExcludedProductIds)
}

// InDateWindow reports whether now falls inside [StartAt, EndAt].
// A zero EndAt means the code never expires.
func (d Discount) InDateWindow(now time.Time) bool {
	if !d.StartAt.IsZero() && now.Before(d.StartAt) {
		return false
	}
	if !d.EndAt.IsZero() && now.After(d.EndAt) {
		return false
	}
	return true
}

func splitCsv(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
