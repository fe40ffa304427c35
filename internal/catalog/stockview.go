package catalog

import (
	"context"

	"github.com/talkincode/eazybuy/internal/domain"
	"github.com/talkincode/eazybuy/internal/inventory"
)

// StockView bridges the catalog and the inventory ledger into the read
// interface the cart reconciler consumes.
type StockView struct {
	Products ProductRepository
	Ledger   *inventory.Service
}

func NewStockView(products ProductRepository, ledger *inventory.Service) *StockView {
	return &StockView{Products: products, Ledger: ledger}
}

func (v *StockView) Product(productID int64) (domain.Product, bool) {
	p, err := v.Products.GetByID(context.Background(), productID)
	if err != nil {
		return domain.Product{}, false
	}
	return *p, true
}

func (v *StockView) Available(productID int64) int {
	return v.Ledger.GetAvailableQuantity(context.Background(), productID)
}
