package domain

import "time"

// Cart is one shopper's cart, keyed by owner: a customer id for signed-in
// shoppers or a guest token for anonymous ones.
type Cart struct {
	ID        int64      `json:"id,string"`
	OwnerKey  string     `gorm:"uniqueIndex;size:64" json:"owner_key"`
	Items     []CartItem `gorm:"-" json:"items"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TableName Specify table name
func (Cart) TableName() string {
	return "carts"
}

// CartItem is one cart line. The product fields are a snapshot taken at
// add time so the line survives later catalog edits; quantity is always
// bounded by available stock at reconciliation time.
type CartItem struct {
	ID        int64     `json:"id,string"`
	CartID    int64     `gorm:"index" json:"cart_id,string"`
	ProductID int64     `gorm:"index" json:"product_id,string"`
	Name      string    `json:"name"`
	Category  string    `gorm:"size:64" json:"category"`
	Price     float64   `json:"price"`
	Image     string    `gorm:"size:1024" json:"image"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"added_at"`
}

// TableName Specify table name
func (CartItem) TableName() string {
	return "cart_items"
}

// LineTotal returns price * quantity for this line.
func (i CartItem) LineTotal() float64 {
	return i.Price * float64(i.Quantity)
}

// WishlistItem is one saved product for an owner key.
type WishlistItem struct {
	ID        int64     `json:"id,string"`
	OwnerKey  string    `gorm:"index;size:64" json:"owner_key"`
	ProductID int64     `gorm:"index" json:"product_id,string"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName Specify table name
func (WishlistItem) TableName() string {
	return "wishlist_items"
}
