package domain

import "time"

// InventoryItem is the ledger row backing one product, one-to-one by
// product id. quantity is on-hand stock, reserved is held for in-flight
// carts and orders. Available stock is max(0, quantity-reserved).
type InventoryItem struct {
	ID                int64     `json:"id,string" form:"id"`
	ProductID         int64     `gorm:"uniqueIndex" json:"product_id,string" form:"product_id"`
	Quantity          int       `json:"quantity" form:"quantity"`
	Reserved          int       `json:"reserved" form:"reserved"`
	LowStockThreshold int       `json:"low_stock_threshold" form:"low_stock_threshold"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// TableName Specify table name
func (InventoryItem) TableName() string {
	return "inventory_items"
}

// Available returns on-hand stock not held by a reservation.
func (i InventoryItem) Available() int {
	if a := i.Quantity - i.Reserved; a > 0 {
		return a
	}
	return 0
}

// Inventory transaction types
const (
	TxnStockSet    = "stock_set"    // admin absolute set
	TxnReserve     = "reserve"      // hold for an in-flight cart/order
	TxnRelease     = "release"      // reservation released
	TxnFulfillment = "fulfillment"  // order processed, on-hand decremented
	TxnRestock     = "restock"      // cancelled order returned to shelf
)

// InventoryTransaction is one append-only audit entry for a ledger
// mutation. Rows are never updated or pruned.
type InventoryTransaction struct {
	ID             int64     `json:"id,string"`
	ProductID      int64     `gorm:"index" json:"product_id,string"`
	Type           string    `gorm:"index;size:32" json:"type"`
	Delta          int       `json:"delta"`
	QuantityBefore int       `json:"quantity_before"`
	QuantityAfter  int       `json:"quantity_after"`
	ReservedBefore int       `json:"reserved_before"`
	ReservedAfter  int       `json:"reserved_after"`
	Actor          string    `gorm:"size:64" json:"actor"` // operator username or "system"
	Note           string    `gorm:"size:512" json:"note"`
	CreatedAt      time.Time `gorm:"index" json:"created_at"`
}

// TableName Specify table name
func (InventoryTransaction) TableName() string {
	return "inventory_transactions"
}
