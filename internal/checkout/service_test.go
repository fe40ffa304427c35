package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkincode/eazybuy/internal/cart"
	"github.com/talkincode/eazybuy/internal/catalog"
	"github.com/talkincode/eazybuy/internal/domain"
	"github.com/talkincode/eazybuy/internal/inventory"
	"github.com/talkincode/eazybuy/internal/orders"
	"github.com/talkincode/eazybuy/internal/payment"
	"github.com/talkincode/eazybuy/internal/pricing"
)

type fixture struct {
	products  *catalog.MemoryProductRepository
	ledger    *inventory.Service
	carts     *cart.MemoryRepository
	discounts *pricing.MemoryDiscountRepository
	orders    *orders.MemoryRepository
	svc       *Service
}

type decliningClient struct{}

func (decliningClient) Authorize(ctx context.Context, amount float64, currency, orderNo string) (*payment.Authorization, error) {
	return nil, payment.ErrDeclined
}
func (decliningClient) Capture(ctx context.Context, ref string) error { return nil }
func (decliningClient) Void(ctx context.Context, ref string) error    { return nil }

func newFixture(t *testing.T, client payment.Client) *fixture {
	t.Helper()
	ctx := context.Background()

	products := catalog.NewMemoryProductRepository()
	require.NoError(t, products.Create(ctx, &domain.Product{
		ID: 101, Name: "Headphones", Category: "electronics", Price: 199.99, InStock: true,
	}))
	require.NoError(t, products.Create(ctx, &domain.Product{
		ID: 102, Name: "Paperback", Category: "books", Price: 12.50, InStock: true,
	}))

	invRepo := inventory.NewMemoryRepository()
	ledger := inventory.NewService(invRepo, products, EventBus.New())
	require.NoError(t, ledger.EnsureItem(ctx, 101, 5, 2))
	require.NoError(t, ledger.EnsureItem(ctx, 102, 10, 2))

	carts := cart.NewMemoryRepository()
	discounts := pricing.NewMemoryDiscountRepository()
	orderRepo := orders.NewMemoryRepository()

	if client == nil {
		client = &payment.DemoClient{Delay: time.Millisecond}
	}
	svc := NewService(
		carts,
		cart.NewReconciler(catalog.NewStockView(products, ledger)),
		pricing.NewEngine(discounts),
		discounts,
		ledger,
		orderRepo,
		client,
		nil,
		Pricing{BaseShipping: 9.99, TaxRate: 0.08, Currency: "USD"},
	)
	return &fixture{
		products:  products,
		ledger:    ledger,
		carts:     carts,
		discounts: discounts,
		orders:    orderRepo,
		svc:       svc,
	}
}

func (f *fixture) fillCart(t *testing.T, owner string, productID int64, qty int) {
	t.Helper()
	ctx := context.Background()
	c, err := f.carts.GetByOwner(ctx, owner)
	require.NoError(t, err)
	p, err := f.products.GetByID(ctx, productID)
	require.NoError(t, err)
	c.Items = append(c.Items, domain.CartItem{
		ID: productID, ProductID: productID, Name: p.Name, Category: p.Category,
		Price: p.Price, Quantity: qty, AddedAt: time.Now(),
	})
	require.NoError(t, f.carts.Save(ctx, c))
}

func TestPlaceOrderHappyPath(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.fillCart(t, "customer-1", 101, 2)

	res, err := f.svc.PlaceOrder(ctx, PlaceOrderInput{
		OwnerKey: "customer-1", Email: "jo@example.org", Name: "Jo",
	})
	require.NoError(t, err)
	o := res.Order
	assert.Equal(t, domain.OrderPaid, o.Status)
	assert.Equal(t, 399.98, o.Subtotal)
	assert.Equal(t, 9.99, o.Shipping)
	assert.Equal(t, 32.00, o.Tax) // 399.98 * 0.08 = 31.9984
	assert.Equal(t, 441.97, o.Total)
	require.Len(t, o.Items, 1)
	assert.NotEmpty(t, o.PaymentRef)

	// fulfillment moved both quantity and reserved down together
	item, err := f.ledger.Get(ctx, 101)
	require.NoError(t, err)
	assert.Equal(t, 3, item.Quantity)
	assert.Equal(t, 0, item.Reserved)

	// cart is cleared
	c, err := f.carts.GetByOwner(ctx, "customer-1")
	require.NoError(t, err)
	assert.Empty(t, c.Items)

	// persisted order readable by number
	got, err := f.orders.GetByOrderNo(ctx, o.OrderNo)
	require.NoError(t, err)
	assert.Equal(t, o.Total, got.Total)
}

func TestPlaceOrderEmptyCart(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.PlaceOrder(context.Background(), PlaceOrderInput{OwnerKey: "nobody"})
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestPlaceOrderReconcilesStaleCart(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.fillCart(t, "customer-1", 101, 4)

	// stock dropped to 3 after the lines were added
	require.NoError(t, f.ledger.UpdateStock(ctx, 101, 3, "admin", "correction", false))

	res, err := f.svc.PlaceOrder(ctx, PlaceOrderInput{OwnerKey: "customer-1"})
	require.NoError(t, err)
	assert.True(t, res.Report.Changed())
	require.Len(t, res.Order.Items, 1)
	assert.Equal(t, 3, res.Order.Items[0].Quantity)
}

func TestPlaceOrderDeclinedReleasesReservations(t *testing.T) {
	f := newFixture(t, decliningClient{})
	ctx := context.Background()
	f.fillCart(t, "customer-1", 101, 2)

	_, err := f.svc.PlaceOrder(ctx, PlaceOrderInput{OwnerKey: "customer-1"})
	assert.ErrorIs(t, err, ErrPaymentDeclined)

	item, err := f.ledger.Get(ctx, 101)
	require.NoError(t, err)
	assert.Equal(t, 0, item.Reserved)
	assert.Equal(t, 5, item.Quantity)

	// no order was persisted
	rows, total, err := f.orders.List(ctx, orders.Filter{})
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Zero(t, total)

	// cart untouched so the shopper can retry
	c, err := f.carts.GetByOwner(ctx, "customer-1")
	require.NoError(t, err)
	assert.Len(t, c.Items, 1)
}

func TestPlaceOrderIncrementsUsageOnlyOnSuccess(t *testing.T) {
	d := &domain.Discount{
		Code: "SAVE20", Type: domain.DiscountFixedAmount, Value: 20,
		IsActive: true, IsStackable: true,
	}

	f := newFixture(t, decliningClient{})
	f.discounts.Put(d)
	ctx := context.Background()
	f.fillCart(t, "customer-1", 101, 1)

	_, err := f.svc.PlaceOrder(ctx, PlaceOrderInput{OwnerKey: "customer-1", Codes: []string{"SAVE20"}})
	require.ErrorIs(t, err, ErrPaymentDeclined)
	got, err := f.discounts.GetByCode(ctx, "SAVE20")
	require.NoError(t, err)
	assert.Equal(t, 0, got.UsageCount, "declined checkout must not burn the code")

	f2 := newFixture(t, nil)
	f2.discounts.Put(d)
	f2.fillCart(t, "customer-1", 101, 1)
	res, err := f2.svc.PlaceOrder(ctx, PlaceOrderInput{OwnerKey: "customer-1", Codes: []string{"SAVE20"}})
	require.NoError(t, err)
	assert.Equal(t, "SAVE20", res.Order.AppliedCodes)
	got, err = f2.discounts.GetByCode(ctx, "SAVE20")
	require.NoError(t, err)
	assert.Equal(t, 1, got.UsageCount)
}

func TestQuoteCartAppliesFreeShipping(t *testing.T) {
	f := newFixture(t, nil)
	f.discounts.Put(&domain.Discount{
		Code: "FREESHIP", Type: domain.DiscountFreeShipping, IsActive: true,
	})
	ctx := context.Background()
	f.fillCart(t, "customer-1", 102, 2)

	q, report, err := f.svc.QuoteCart(ctx, "customer-1", []string{"FREESHIP"})
	require.NoError(t, err)
	assert.False(t, report.Changed())
	assert.Equal(t, 25.00, q.Subtotal)
	assert.Equal(t, 0.00, q.Shipping)
	require.Len(t, q.Applied, 1)
	assert.Equal(t, 9.99, q.Applied[0].Amount)
}

func TestCancelOrderRestocks(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.fillCart(t, "customer-1", 101, 2)

	res, err := f.svc.PlaceOrder(ctx, PlaceOrderInput{OwnerKey: "customer-1"})
	require.NoError(t, err)

	require.NoError(t, f.svc.CancelOrder(ctx, res.Order.OrderNo, "admin"))

	item, err := f.ledger.Get(ctx, 101)
	require.NoError(t, err)
	assert.Equal(t, 5, item.Quantity)

	got, err := f.orders.GetByOrderNo(ctx, res.Order.OrderNo)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCancelled, got.Status)

	// cancelling again is a no-op
	require.NoError(t, f.svc.CancelOrder(ctx, res.Order.OrderNo, "admin"))
}

func TestCancelOrderReleasesDiscountUsage(t *testing.T) {
	f := newFixture(t, nil)
	f.discounts.Put(&domain.Discount{
		Code: "SAVE20", Type: domain.DiscountFixedAmount, Value: 20,
		IsActive: true, IsStackable: true, UsageLimit: 1,
	})
	ctx := context.Background()
	f.fillCart(t, "customer-1", 101, 1)

	res, err := f.svc.PlaceOrder(ctx, PlaceOrderInput{OwnerKey: "customer-1", Codes: []string{"SAVE20"}})
	require.NoError(t, err)
	got, err := f.discounts.GetByCode(ctx, "SAVE20")
	require.NoError(t, err)
	require.Equal(t, 1, got.UsageCount)

	require.NoError(t, f.svc.CancelOrder(ctx, res.Order.OrderNo, "admin"))
	got, err = f.discounts.GetByCode(ctx, "SAVE20")
	require.NoError(t, err)
	assert.Equal(t, 0, got.UsageCount, "cancelled order must not keep the usage slot")

	// the repeated cancel above is a no-op, so the counter never goes
	// negative and the slot can be spent again
	require.NoError(t, f.svc.CancelOrder(ctx, res.Order.OrderNo, "admin"))
	got, err = f.discounts.GetByCode(ctx, "SAVE20")
	require.NoError(t, err)
	assert.Equal(t, 0, got.UsageCount)
}
