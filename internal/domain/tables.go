package domain

var Tables = []interface{}{
	// System
	&SysConfig{},
	&SysOpr{},
	&SysOprLog{},
	// Catalog
	&Product{},
	&InventoryItem{},
	&InventoryTransaction{},
	// Commerce
	&Discount{},
	&Cart{},
	&CartItem{},
	&WishlistItem{},
	&Order{},
	&OrderItem{},
	// Shoppers
	&Customer{},
}
