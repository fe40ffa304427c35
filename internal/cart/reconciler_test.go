package cart

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkincode/eazybuy/internal/domain"
)

type fakeStock struct {
	products  map[int64]domain.Product
	available map[int64]int
}

func (f *fakeStock) Product(id int64) (domain.Product, bool) {
	p, ok := f.products[id]
	return p, ok
}

func (f *fakeStock) Available(id int64) int {
	return f.available[id]
}

func newFakeStock() *fakeStock {
	return &fakeStock{
		products: map[int64]domain.Product{
			101: {ID: 101, Name: "Headphones", Category: "electronics", Price: 199.99, InStock: true},
			102: {ID: 102, Name: "Paperback", Category: "books", Price: 12.50, InStock: true},
		},
		// product 101: quantity 5, reserved 2
		available: map[int64]int{101: 3, 102: 10},
	}
}

func TestAddClampsToAvailable(t *testing.T) {
	stock := newFakeStock()
	r := NewReconciler(stock)

	// quantity 5, reserved 2 -> available 3; adding 4 clamps to 3
	res := r.Add(nil, stock.products[101], 4)
	require.Empty(t, res.Rejected)
	assert.True(t, res.Clamped)
	assert.Equal(t, 3, res.Added)
	require.Len(t, res.Items, 1)
	assert.Equal(t, 3, res.Items[0].Quantity)
}

func TestAddExistingLineCountsTowardHeadroom(t *testing.T) {
	stock := newFakeStock()
	r := NewReconciler(stock)

	res := r.Add(nil, stock.products[101], 2)
	require.Equal(t, 2, res.Added)

	// 2 in cart, 3 available -> only 1 more fits
	res = r.Add(res.Items, stock.products[101], 5)
	assert.Equal(t, 1, res.Added)
	assert.True(t, res.Clamped)
	require.Len(t, res.Items, 1)
	assert.Equal(t, 3, res.Items[0].Quantity)

	// no headroom left: no-op, not an error
	before := res.Items
	res = r.Add(res.Items, stock.products[101], 1)
	assert.Equal(t, 0, res.Added)
	assert.Equal(t, before, res.Items)
}

func TestAddRejectsUnsellable(t *testing.T) {
	stock := newFakeStock()
	r := NewReconciler(stock)

	p := stock.products[101]
	p.OutOfOrder = true
	res := r.Add(nil, p, 1)
	assert.NotEmpty(t, res.Rejected)
	assert.Empty(t, res.Items)

	p = stock.products[101]
	p.InStock = false
	res = r.Add(nil, p, 1)
	assert.NotEmpty(t, res.Rejected)
}

func TestAddDoesNotMutateInput(t *testing.T) {
	stock := newFakeStock()
	r := NewReconciler(stock)
	items := r.Add(nil, stock.products[101], 1).Items
	_ = r.Add(items, stock.products[101], 1)
	assert.Equal(t, 1, items[0].Quantity)
}

func TestUpdateQuantity(t *testing.T) {
	stock := newFakeStock()
	r := NewReconciler(stock)
	items := r.Add(nil, stock.products[101], 2).Items
	items = r.Add(items, stock.products[102], 1).Items

	// zero removes the line
	out := r.UpdateQuantity(items, 101, 0)
	require.Len(t, out, 1)
	assert.Equal(t, int64(102), out[0].ProductID)

	// clamp to available
	out = r.UpdateQuantity(items, 101, 99)
	require.Len(t, out, 2)
	assert.Equal(t, 3, out[0].Quantity)

	// unsellable product removes regardless of requested quantity
	p := stock.products[101]
	p.OutOfOrder = true
	stock.products[101] = p
	out = r.UpdateQuantity(items, 101, 2)
	require.Len(t, out, 1)
	assert.Equal(t, int64(102), out[0].ProductID)
}

func TestUpdateQuantityClampToZeroRemoves(t *testing.T) {
	stock := newFakeStock()
	r := NewReconciler(stock)
	items := r.Add(nil, stock.products[101], 2).Items
	stock.available[101] = 0
	out := r.UpdateQuantity(items, 101, 2)
	assert.Empty(t, out)
}

func TestValidateStockPartition(t *testing.T) {
	stock := newFakeStock()
	r := NewReconciler(stock)
	items := r.Add(nil, stock.products[101], 3).Items
	items = r.Add(items, stock.products[102], 4).Items

	// stock drops under line quantities before checkout
	stock.available[101] = 1
	stock.available[102] = 0

	report := r.ValidateStock(items)
	assert.True(t, report.Changed())
	require.Len(t, report.Valid, 1)
	assert.Equal(t, int64(101), report.Valid[0].ProductID)
	assert.Equal(t, 1, report.Valid[0].Quantity)
	require.Len(t, report.Updated, 1)
	require.Len(t, report.Removed, 1)
	assert.Equal(t, int64(102), report.Removed[0].ProductID)

	// the corrected set passes a second pass untouched
	report = r.ValidateStock(report.Valid)
	assert.False(t, report.Changed())

	// post-reconciliation invariant: qty never exceeds available
	for _, it := range report.Valid {
		assert.LessOrEqual(t, it.Quantity, stock.Available(it.ProductID))
	}
}

func TestValidateStockRemovesUnknownAndUnsellable(t *testing.T) {
	stock := newFakeStock()
	r := NewReconciler(stock)
	items := []domain.CartItem{
		{ID: 1, ProductID: 999, Quantity: 1},               // product deleted
		{ID: 2, ProductID: 101, Quantity: 1},
	}
	p := stock.products[101]
	p.InStock = false
	stock.products[101] = p

	report := r.ValidateStock(items)
	assert.Empty(t, report.Valid)
	assert.Len(t, report.Removed, 2)
}

func TestCountAndSubtotalInvariants(t *testing.T) {
	stock := newFakeStock()
	r := NewReconciler(stock)
	items := r.Add(nil, stock.products[101], 2).Items
	items = r.Add(items, stock.products[102], 4).Items

	assert.Equal(t, 6, ItemCount(items))
	assert.Equal(t, 449.98, Subtotal(items)) // 2*199.99 + 4*12.50
}

func TestMemoryRepositoryRoundTrip(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	c, err := repo.GetByOwner(ctx, "customer-1")
	require.NoError(t, err)
	assert.Empty(t, c.Items)

	added := time.Now().Truncate(time.Millisecond)
	c.Items = []domain.CartItem{
		{ID: 1, ProductID: 101, Name: "Headphones", Price: 199.99, Quantity: 2, AddedAt: added},
	}
	require.NoError(t, repo.Save(ctx, c))

	got, err := repo.GetByOwner(ctx, "customer-1")
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, c.Items[0].ProductID, got.Items[0].ProductID)
	assert.Equal(t, c.Items[0].Quantity, got.Items[0].Quantity)
	assert.True(t, got.Items[0].AddedAt.Equal(added))

	// saved copies are isolated from later caller mutation
	got.Items[0].Quantity = 99
	again, err := repo.GetByOwner(ctx, "customer-1")
	require.NoError(t, err)
	assert.Equal(t, 2, again.Items[0].Quantity)
}
