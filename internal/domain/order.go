package domain

import "time"

// Order statuses
const (
	OrderPending   = "pending"
	OrderPaid      = "paid"
	OrderFulfilled = "fulfilled"
	OrderShipped   = "shipped"
	OrderDelivered = "delivered"
	OrderCancelled = "cancelled"
)

// Order is a placed order with its captured totals. Totals are frozen at
// checkout time; later catalog or discount edits never change them.
type Order struct {
	ID             int64       `json:"id,string"`
	OrderNo        string      `gorm:"uniqueIndex;size:32" json:"order_no"`
	CustomerID     int64       `gorm:"index" json:"customer_id,string"`
	OwnerKey       string      `gorm:"index;size:64" json:"owner_key"`
	Email          string      `gorm:"size:128" json:"email"`
	Status         string      `gorm:"index;size:32" json:"status"`
	Subtotal       float64     `json:"subtotal"`
	DiscountTotal  float64     `json:"discount_total"`
	Shipping       float64     `json:"shipping"`
	Tax            float64     `json:"tax"`
	Total          float64     `json:"total"`
	AppliedCodes   string      `gorm:"size:256" json:"applied_codes"` // comma separated promo codes
	PaymentRef     string      `gorm:"size:64" json:"payment_ref"`
	ShippingAddress string     `gorm:"size:1024" json:"shipping_address"`
	Items          []OrderItem `gorm:"-" json:"items"`
	PlacedAt       time.Time   `json:"placed_at"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// TableName Specify table name
func (Order) TableName() string {
	return "orders"
}

// OrderItem is one frozen order line.
type OrderItem struct {
	ID        int64     `json:"id,string"`
	OrderID   int64     `gorm:"index" json:"order_id,string"`
	ProductID int64     `gorm:"index" json:"product_id,string"`
	Name      string    `json:"name"`
	Category  string    `gorm:"size:64" json:"category"`
	Price     float64   `json:"price"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName Specify table name
func (OrderItem) TableName() string {
	return "order_items"
}
