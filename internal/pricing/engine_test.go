package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkincode/eazybuy/internal/domain"
)

func testItems() []domain.CartItem {
	return []domain.CartItem{
		{ID: 1, ProductID: 101, Name: "Wireless Headphones", Category: "electronics", Price: 199.99, Quantity: 1},
	}
}

func activeDiscount(code, dtype string, value float64) *domain.Discount {
	return &domain.Discount{
		Code:     code,
		Type:     dtype,
		Value:    value,
		IsActive: true,
		StartAt:  time.Now().Add(-time.Hour),
		EndAt:    time.Now().Add(24 * time.Hour),
	}
}

func TestValidateOrderOfChecks(t *testing.T) {
	items := testItems()

	d := activeDiscount("X", domain.DiscountPercentage, 10)
	d.IsActive = false
	d.EndAt = time.Now().Add(-time.Minute) // expired too, active check must win
	res := Validate(d, items, 199.99, time.Now())
	require.False(t, res.OK)
	assert.Contains(t, res.Reason, "no longer active")

	d = activeDiscount("X", domain.DiscountPercentage, 10)
	d.EndAt = time.Now().Add(-time.Minute)
	res = Validate(d, items, 199.99, time.Now())
	require.False(t, res.OK)
	assert.Contains(t, res.Reason, "expired")

	d = activeDiscount("X", domain.DiscountPercentage, 10)
	d.UsageLimit = 5
	d.UsageCount = 5
	res = Validate(d, items, 199.99, time.Now())
	require.False(t, res.OK)
	assert.Contains(t, res.Reason, "usage limit")

	d = activeDiscount("X", domain.DiscountPercentage, 10)
	d.MinimumOrderAmount = 250
	res = Validate(d, items, 199.99, time.Now())
	require.False(t, res.OK)
	assert.Contains(t, res.Reason, "minimum order")

	d = activeDiscount("X", domain.DiscountPercentage, 10)
	d.ApplicableCategories = "books,toys"
	res = Validate(d, items, 199.99, time.Now())
	require.False(t, res.OK)
	assert.Contains(t, res.Reason, "only applies")

	d = activeDiscount("X", domain.DiscountPercentage, 10)
	d.ExcludedProductIds = "101"
	res = Validate(d, items, 199.99, time.Now())
	require.False(t, res.OK)
	assert.Contains(t, res.Reason, "does not apply")

	// exclusion passes when at least one line survives
	items = append(items, domain.CartItem{ID: 2, ProductID: 102, Category: "electronics", Price: 10, Quantity: 1})
	res = Validate(d, items, 209.99, time.Now())
	assert.True(t, res.OK)
}

func TestPercentageAmountCapAndRounding(t *testing.T) {
	items := testItems()

	// 10% of 199.99 = 19.999, rounds to 20.00, under the 50 cap
	d := activeDiscount("WELCOME10", domain.DiscountPercentage, 10)
	d.MinimumOrderAmount = 25
	d.MaximumDiscountAmount = 50
	amount, affected := Amount(d, items, 199.99, 9.99)
	assert.Equal(t, 20.00, amount)
	assert.Equal(t, []int64{1}, affected)

	// cap kicks in
	d.Value = 50
	amount, _ = Amount(d, items, 199.99, 9.99)
	assert.Equal(t, 50.00, amount)
}

func TestPercentageCategoryRestrictedBase(t *testing.T) {
	items := []domain.CartItem{
		{ID: 1, ProductID: 101, Category: "electronics", Price: 100, Quantity: 1},
		{ID: 2, ProductID: 102, Category: "books", Price: 50, Quantity: 2},
	}
	d := activeDiscount("BOOKS10", domain.DiscountPercentage, 10)
	d.ApplicableCategories = "books"
	amount, affected := Amount(d, items, 200, 0)
	assert.Equal(t, 10.00, amount) // 10% of the 100 book subtotal only
	assert.Equal(t, []int64{2}, affected)
}

func TestFixedAmountClampedToSubtotal(t *testing.T) {
	items := []domain.CartItem{{ID: 1, ProductID: 101, Price: 15, Quantity: 1}}
	d := activeDiscount("TAKE20", domain.DiscountFixedAmount, 20)
	amount, _ := Amount(d, items, 15, 0)
	assert.Equal(t, 15.00, amount)
}

func TestFreeShippingAmountEqualsShipping(t *testing.T) {
	d := activeDiscount("FREESHIP", domain.DiscountFreeShipping, 0)
	amount, _ := Amount(d, testItems(), 199.99, 9.99)
	assert.Equal(t, 9.99, amount)
}

func TestBuyXGetYDiscountsCheapestUnitsFirst(t *testing.T) {
	items := []domain.CartItem{
		{ID: 1, ProductID: 101, Price: 30, Quantity: 2},
		{ID: 2, ProductID: 102, Price: 10, Quantity: 2},
	}
	// buy 2 get 1: floor(4/3)*1 = 1 free unit, the $10 one
	d := activeDiscount("B2G1", domain.DiscountBuyXGetY, 0)
	d.BuyQuantity = 2
	d.GetQuantity = 1
	amount, affected := Amount(d, items, 80, 0)
	assert.Equal(t, 10.00, amount)
	assert.Equal(t, []int64{2}, affected)

	// 6 units -> 2 free, both cheapest units come from line 2
	items[0].Quantity = 3
	items[1].Quantity = 3
	amount, _ = Amount(d, items, 120, 0)
	assert.Equal(t, 20.00, amount)
}

func TestBuyXGetYBelowThresholdIsZero(t *testing.T) {
	items := []domain.CartItem{{ID: 1, ProductID: 101, Price: 10, Quantity: 2}}
	d := activeDiscount("B2G1", domain.DiscountBuyXGetY, 0)
	d.BuyQuantity = 2
	d.GetQuantity = 1
	amount, affected := Amount(d, items, 20, 0)
	assert.Equal(t, 0.00, amount)
	assert.Empty(t, affected)
}

func newTestEngine(discounts ...*domain.Discount) *Engine {
	return NewEngine(NewMemoryDiscountRepository(discounts...))
}

func TestCalculateWelcome10Scenario(t *testing.T) {
	d := activeDiscount("WELCOME10", domain.DiscountPercentage, 10)
	d.MinimumOrderAmount = 25
	d.MaximumDiscountAmount = 50
	e := newTestEngine(d)

	q, err := e.Calculate(context.Background(), testItems(), []string{"welcome10"}, 9.99, 0.08)
	require.NoError(t, err)
	require.Len(t, q.Applied, 1)
	assert.Equal(t, 199.99, q.Subtotal)
	assert.Equal(t, 20.00, q.DiscountTotal)
	assert.Equal(t, 9.99, q.Shipping)
	// tax on discounted subtotal only, never on shipping
	assert.Equal(t, 14.40, q.Tax) // (199.99-20.00)*0.08 = 14.3992
	assert.Equal(t, 204.38, q.Total)
}

func TestCalculateFreeShipScenario(t *testing.T) {
	e := newTestEngine(activeDiscount("FREESHIP", domain.DiscountFreeShipping, 0))
	q, err := e.Calculate(context.Background(), testItems(), []string{"FREESHIP"}, 9.99, 0)
	require.NoError(t, err)
	require.Len(t, q.Applied, 1)
	assert.Equal(t, 9.99, q.Applied[0].Amount)
	assert.Equal(t, 0.00, q.Shipping)
	assert.True(t, q.FreeShippingApplied())
}

func TestCalculateUnknownCodeSkipped(t *testing.T) {
	e := newTestEngine()
	q, err := e.Calculate(context.Background(), testItems(), []string{"NOPE"}, 9.99, 0.08)
	require.NoError(t, err)
	assert.Empty(t, q.Applied)
	assert.Contains(t, q.Rejected["NOPE"], "Unknown")
}

// Stackability only checks the candidate, never the already-applied
// codes. SAVE20 (stackable) then WELCOME10 (non-stackable): WELCOME10 is
// rejected. WELCOME10 first, then SAVE20: both apply even though a
// non-stackable code is already in the cart. Caller order decides.
func TestCalculateStackabilityAsymmetry(t *testing.T) {
	save20 := activeDiscount("SAVE20", domain.DiscountFixedAmount, 20)
	save20.IsStackable = true
	welcome10 := activeDiscount("WELCOME10", domain.DiscountPercentage, 10)
	welcome10.IsStackable = false
	e := newTestEngine(save20, welcome10)
	items := testItems()

	q, err := e.Calculate(context.Background(), items, []string{"SAVE20", "WELCOME10"}, 0, 0)
	require.NoError(t, err)
	require.Len(t, q.Applied, 1)
	assert.Equal(t, "SAVE20", q.Applied[0].Code)
	assert.Contains(t, q.Rejected["WELCOME10"], "combined")

	q, err = e.Calculate(context.Background(), items, []string{"WELCOME10", "SAVE20"}, 0, 0)
	require.NoError(t, err)
	require.Len(t, q.Applied, 2)
	assert.Equal(t, []string{"WELCOME10", "SAVE20"}, q.Codes())
}

func TestCalculateIsIdempotent(t *testing.T) {
	d := activeDiscount("SAVE20", domain.DiscountFixedAmount, 20)
	d.UsageLimit = 1
	repo := NewMemoryDiscountRepository(d)
	e := NewEngine(repo)
	items := testItems()

	for i := 0; i < 3; i++ {
		q, err := e.Calculate(context.Background(), items, []string{"SAVE20"}, 9.99, 0.08)
		require.NoError(t, err)
		require.Len(t, q.Applied, 1, "calculation must not consume usage")
		assert.Equal(t, 20.00, q.DiscountTotal)
	}

	// usage moves only through the explicit increment
	require.NoError(t, repo.IncrementUsage(context.Background(), "SAVE20"))
	q, err := e.Calculate(context.Background(), items, []string{"SAVE20"}, 9.99, 0.08)
	require.NoError(t, err)
	assert.Empty(t, q.Applied)
	assert.Contains(t, q.Rejected["SAVE20"], "usage limit")
}

func TestCalculateDuplicateCodeAppliedOnce(t *testing.T) {
	d := activeDiscount("SAVE20", domain.DiscountFixedAmount, 20)
	d.IsStackable = true
	e := newTestEngine(d)
	q, err := e.Calculate(context.Background(), testItems(), []string{"SAVE20", "save20"}, 0, 0)
	require.NoError(t, err)
	assert.Len(t, q.Applied, 1)
}

func TestGetByCodeCaseInsensitiveAndWindowed(t *testing.T) {
	d := activeDiscount("FreeShip", domain.DiscountFreeShipping, 0)
	repo := NewMemoryDiscountRepository(d)

	got, err := repo.GetByCode(context.Background(), "  fReEsHiP ")
	require.NoError(t, err)
	require.NotNil(t, got)

	d.EndAt = time.Now().Add(-time.Minute)
	repo.Put(d)
	got, err = repo.GetByCode(context.Background(), "FREESHIP")
	require.NoError(t, err)
	assert.Nil(t, got)
}
