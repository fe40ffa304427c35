// Package cart maintains quantity-bounded cart lines against the
// inventory ledger. Every mutation re-clamps line quantities to the
// stock available at that moment; the reconciliation pass in
// ValidateStock is the authoritative pre-payment gate.
package cart

import (
	"time"

	"github.com/talkincode/eazybuy/internal/domain"
	"github.com/talkincode/eazybuy/pkg/common"
)

// StockView is the read side of the inventory ledger the reconciler
// consults. Available is quantity minus reserved, floored at zero.
type StockView interface {
	Product(productID int64) (domain.Product, bool)
	Available(productID int64) int
}

// AddResult reports what Add actually did. Requests over the available
// headroom are adjusted down silently rather than errored; that is a
// deliberate storefront policy, the caller surfaces Clamped as an
// informational note at most.
type AddResult struct {
	Items    []domain.CartItem
	Added    int
	Clamped  bool
	Rejected string // non-empty when the product cannot be sold at all
}

// Report is the outcome of a full reconciliation pass.
type Report struct {
	Valid   []domain.CartItem // lines safe to charge, quantities corrected
	Updated []domain.CartItem // lines whose quantity was reduced
	Removed []domain.CartItem // lines dropped: unsellable or zero available
}

// Changed reports whether the pass altered the cart at all.
func (r Report) Changed() bool {
	return len(r.Updated) > 0 || len(r.Removed) > 0
}

// Reconciler applies cart mutations against a stock view.
type Reconciler struct {
	stock StockView
}

func NewReconciler(stock StockView) *Reconciler {
	return &Reconciler{stock: stock}
}

// Add puts qty units of product into the cart, clamped so that the
// line's total quantity never exceeds available stock. Unsellable
// products are rejected outright and the cart is returned unchanged.
// When no headroom remains the call is a no-op.
func (r *Reconciler) Add(items []domain.CartItem, product domain.Product, qty int) AddResult {
	if qty <= 0 {
		return AddResult{Items: items}
	}
	if !product.Sellable() {
		return AddResult{Items: items, Rejected: "This product is currently unavailable"}
	}

	available := r.stock.Available(product.ID)
	existing := 0
	idx := -1
	for i, it := range items {
		if it.ProductID == product.ID {
			existing = it.Quantity
			idx = i
			break
		}
	}

	headroom := available - existing
	if headroom <= 0 {
		return AddResult{Items: items, Clamped: true}
	}
	added := qty
	clamped := false
	if added > headroom {
		added = headroom
		clamped = true
	}

	out := make([]domain.CartItem, len(items))
	copy(out, items)
	if idx >= 0 {
		out[idx].Quantity += added
	} else {
		out = append(out, domain.CartItem{
			ID:        common.UUIDint64(),
			ProductID: product.ID,
			Name:      product.Name,
			Category:  product.Category,
			Price:     product.Price,
			Image:     product.Image,
			Quantity:  added,
			AddedAt:   time.Now(),
		})
	}
	return AddResult{Items: out, Added: added, Clamped: clamped}
}

// UpdateQuantity sets the line for productID to qty. qty <= 0 removes
// the line, as does a product that is no longer sellable. Otherwise the
// quantity is clamped to available stock; clamping to zero also removes.
func (r *Reconciler) UpdateQuantity(items []domain.CartItem, productID int64, qty int) []domain.CartItem {
	out := make([]domain.CartItem, 0, len(items))
	for _, it := range items {
		if it.ProductID != productID {
			out = append(out, it)
			continue
		}
		if qty <= 0 {
			continue
		}
		product, ok := r.stock.Product(productID)
		if !ok || !product.Sellable() {
			continue
		}
		if available := r.stock.Available(productID); qty > available {
			qty = available
		}
		if qty <= 0 {
			continue
		}
		it.Quantity = qty
		out = append(out, it)
	}
	return out
}

// ValidateStock reconciles every line against current stock. Lines whose
// product is gone, unsellable, or out of available stock are removed;
// lines over available stock are reduced. Must run synchronously
// immediately before payment capture.
func (r *Reconciler) ValidateStock(items []domain.CartItem) Report {
	var report Report
	for _, it := range items {
		product, ok := r.stock.Product(it.ProductID)
		if !ok || !product.Sellable() {
			report.Removed = append(report.Removed, it)
			continue
		}
		available := r.stock.Available(it.ProductID)
		if available <= 0 {
			report.Removed = append(report.Removed, it)
			continue
		}
		if it.Quantity > available {
			it.Quantity = available
			report.Updated = append(report.Updated, it)
		}
		report.Valid = append(report.Valid, it)
	}
	return report
}

// ItemCount returns the unit count across all lines.
func ItemCount(items []domain.CartItem) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}

// Subtotal returns the price*quantity sum across all lines.
func Subtotal(items []domain.CartItem) float64 {
	var sum float64
	for _, it := range items {
		sum += it.LineTotal()
	}
	return common.Round2(sum)
}
