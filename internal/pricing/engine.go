// Package pricing implements promo code validation and cart totals.
//
// All calculation entry points are pure: they never touch usage counters
// or any other shared state. Usage moves only through the repository's
// explicit IncrementUsage/DecrementUsage, called by the checkout flow.
package pricing

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/talkincode/eazybuy/internal/domain"
	"github.com/talkincode/eazybuy/pkg/common"
)

// Application is the computed effect of one discount on one cart. It is
// derived and ephemeral; it is never persisted on its own.
type Application struct {
	Code           string  `json:"code"`
	Type           string  `json:"type"`
	Description    string  `json:"description"`
	Amount         float64 `json:"amount"`
	FreeShipping   bool    `json:"free_shipping"`
	AffectedItemIds []int64 `json:"affected_item_ids,omitempty"`
}

// Result is the outcome of validating one discount against one cart.
type Result struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

func pass() Result { return Result{OK: true} }

func reject(format string, args ...interface{}) Result {
	return Result{OK: false, Reason: fmt.Sprintf(format, args...)}
}

// Validate checks whether d can be applied to the given cart. Checks run
// in a fixed order and stop at the first failure: active flag, date
// window, usage limit, minimum order amount, category applicability,
// exclusions. The reason string is user-facing.
func Validate(d *domain.Discount, items []domain.CartItem, subtotal float64, now time.Time) Result {
	if !d.IsActive {
		return reject("This discount code is no longer active")
	}
	if !d.InDateWindow(now) {
		return reject("This discount code has expired")
	}
	if d.UsageLimit > 0 && d.UsageCount >= d.UsageLimit {
		return reject("This discount code has reached its usage limit")
	}
	if d.MinimumOrderAmount > 0 && subtotal < d.MinimumOrderAmount {
		return reject("A minimum order of $%.2f is required for this code", d.MinimumOrderAmount)
	}
	if cats := d.Categories(); len(cats) > 0 {
		if len(applicableByCategory(items, cats)) == 0 {
			return reject("This code only applies to: %s", strings.Join(cats, ", "))
		}
	}
	if excluded := d.ExcludedProducts(); len(excluded) > 0 {
		// fail only when every line in the cart is excluded
		if len(withoutExcluded(items, excluded)) == 0 {
			return reject("This code does not apply to the items in your cart")
		}
	}
	return pass()
}

// Amount computes the monetary effect of d on the cart. shipping is the
// current shipping cost, consumed by free_shipping codes. The returned
// ids are the cart item ids the discount touched.
func Amount(d *domain.Discount, items []domain.CartItem, subtotal, shipping float64) (float64, []int64) {
	applicable := applicableItems(d, items)

	switch d.Type {
	case domain.DiscountPercentage:
		base := subtotal
		if len(d.Categories()) > 0 {
			base = itemsSubtotal(applicable)
		}
		amount := base * d.Value / 100
		if d.MaximumDiscountAmount > 0 && amount > d.MaximumDiscountAmount {
			amount = d.MaximumDiscountAmount
		}
		return common.Round2(amount), itemIds(applicable)

	case domain.DiscountFixedAmount:
		amount := d.Value
		if amount > subtotal {
			amount = subtotal
		}
		return common.Round2(amount), itemIds(items)

	case domain.DiscountFreeShipping:
		return common.Round2(shipping), nil

	case domain.DiscountBuyXGetY:
		return buyXGetYAmount(d, applicable)
	}
	return 0, nil
}

// buyXGetYAmount discounts the cheapest qualifying units first: expand
// lines into units sorted ascending by unit price, then give away
// floor(totalQty/(buy+get))*get of them.
func buyXGetYAmount(d *domain.Discount, items []domain.CartItem) (float64, []int64) {
	buy, get := d.BuyQuantity, d.GetQuantity
	if buy <= 0 || get <= 0 || len(items) == 0 {
		return 0, nil
	}

	sorted := make([]domain.CartItem, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Price < sorted[j].Price })

	totalQty := 0
	for _, it := range sorted {
		totalQty += it.Quantity
	}
	freeUnits := totalQty / (buy + get) * get
	if freeUnits == 0 {
		return 0, nil
	}

	var amount float64
	var affected []int64
	for _, it := range sorted {
		if freeUnits == 0 {
			break
		}
		take := it.Quantity
		if take > freeUnits {
			take = freeUnits
		}
		amount += it.Price * float64(take)
		affected = append(affected, it.ID)
		freeUnits -= take
	}
	return common.Round2(amount), affected
}

// Quote is a fully priced cart: subtotal, per-code applications, shipping
// after free-shipping codes, tax on the discounted subtotal, and the
// final total. Tax is never applied to shipping.
type Quote struct {
	Subtotal      float64           `json:"subtotal"`
	DiscountTotal float64           `json:"discount_total"`
	Shipping      float64           `json:"shipping"`
	Tax           float64           `json:"tax"`
	Total         float64           `json:"total"`
	Applied       []Application     `json:"applied"`
	Rejected      map[string]string `json:"rejected,omitempty"` // code -> reason
}

// Engine evaluates promo codes against carts using a DiscountRepository
// for lookups. Calculate never mutates usage counters.
type Engine struct {
	repo DiscountRepository
}

func NewEngine(repo DiscountRepository) *Engine {
	return &Engine{repo: repo}
}

// Calculate applies codes in caller order and folds the results into a
// Quote. Unknown and invalid codes are skipped, not errors. Once any
// discount is applied, a non-stackable candidate is skipped; the
// stackability of already-applied codes is deliberately not re-checked
// (see the ordering tests). Because application order decides which
// codes survive, the caller-supplied order is part of the contract.
func (e *Engine) Calculate(ctx context.Context, items []domain.CartItem, codes []string, baseShipping, taxRate float64) (*Quote, error) {
	q := &Quote{
		Subtotal: common.Round2(itemsSubtotal(items)),
		Shipping: baseShipping,
		Rejected: map[string]string{},
	}

	now := time.Now()
	seen := map[string]bool{}
	for _, code := range codes {
		key := strings.ToUpper(strings.TrimSpace(code))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true

		d, err := e.repo.GetByCode(ctx, code)
		if err != nil {
			return nil, err
		}
		if d == nil {
			q.Rejected[key] = "Unknown or expired discount code"
			continue
		}
		if len(q.Applied) > 0 && !d.IsStackable {
			q.Rejected[key] = "This code cannot be combined with other discounts"
			continue
		}
		if res := Validate(d, items, q.Subtotal, now); !res.OK {
			q.Rejected[key] = res.Reason
			continue
		}

		amount, affected := Amount(d, items, q.Subtotal, q.Shipping)
		app := Application{
			Code:            key,
			Type:            d.Type,
			Description:     d.Description,
			Amount:          amount,
			AffectedItemIds: affected,
		}
		if d.Type == domain.DiscountFreeShipping {
			app.FreeShipping = true
			q.Shipping = 0
		} else {
			q.DiscountTotal += amount
		}
		q.Applied = append(q.Applied, app)
	}

	q.DiscountTotal = common.Round2(q.DiscountTotal)
	if q.DiscountTotal > q.Subtotal {
		q.DiscountTotal = q.Subtotal
	}
	taxable := q.Subtotal - q.DiscountTotal
	q.Tax = common.Round2(taxable * taxRate)
	q.Total = common.Round2(taxable + q.Shipping + q.Tax)
	return q, nil
}

// Codes returns the applied code list in application order.
func (q *Quote) Codes() []string {
	out := make([]string, 0, len(q.Applied))
	for _, a := range q.Applied {
		out = append(out, a.Code)
	}
	return out
}

// FreeShippingApplied reports whether any applied code zeroed shipping.
func (q *Quote) FreeShippingApplied() bool {
	for _, a := range q.Applied {
		if a.FreeShipping {
			return true
		}
	}
	return false
}

func applicableItems(d *domain.Discount, items []domain.CartItem) []domain.CartItem {
	out := items
	if cats := d.Categories(); len(cats) > 0 {
		out = applicableByCategory(out, cats)
	}
	if excluded := d.ExcludedProducts(); len(excluded) > 0 {
		out = withoutExcluded(out, excluded)
	}
	return out
}

func applicableByCategory(items []domain.CartItem, cats []string) []domain.CartItem {
	var out []domain.CartItem
	for _, it := range items {
		for _, c := range cats {
			if strings.EqualFold(it.Category, c) {
				out = append(out, it)
				break
			}
		}
	}
	return out
}

func withoutExcluded(items []domain.CartItem, excluded []string) []domain.CartItem {
	var out []domain.CartItem
	for _, it := range items {
		skip := false
		for _, ex := range excluded {
			if ex == strconv.FormatInt(it.ProductID, 10) {
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, it)
		}
	}
	return out
}

func itemsSubtotal(items []domain.CartItem) float64 {
	var sum float64
	for _, it := range items {
		sum += it.LineTotal()
	}
	return sum
}

func itemIds(items []domain.CartItem) []int64 {
	out := make([]int64, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}
