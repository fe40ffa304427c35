package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkincode/eazybuy/internal/domain"
	"github.com/talkincode/eazybuy/internal/pricing"
)

// The demo catalog doubles as the reference data set: the seeded codes
// must price the documented scenarios exactly.
func TestDemoDiscountScenarios(t *testing.T) {
	engine := pricing.NewEngine(pricing.NewMemoryDiscountRepository(demoDiscounts()...))
	ctx := context.Background()
	items := []domain.CartItem{
		{ID: 1, ProductID: 1, Name: "Wireless Headphones", Category: "electronics",
			Price: 199.99, Quantity: 1, AddedAt: time.Now()},
	}

	// WELCOME10: 10% of $199.99 rounds to $20.00, under the $50 cap
	q, err := engine.Calculate(ctx, items, []string{"WELCOME10"}, 9.99, 0.08)
	require.NoError(t, err)
	require.Len(t, q.Applied, 1)
	assert.Equal(t, 20.00, q.Applied[0].Amount)
	assert.Equal(t, 20.00, q.DiscountTotal)

	// WELCOME10 requires a $25 order
	small := []domain.CartItem{
		{ID: 2, ProductID: 6, Name: "Linen Notebook", Category: "books",
			Price: 12.50, Quantity: 1, AddedAt: time.Now()},
	}
	q, err = engine.Calculate(ctx, small, []string{"WELCOME10"}, 9.99, 0.08)
	require.NoError(t, err)
	assert.Empty(t, q.Applied)
	assert.NotEmpty(t, q.Rejected["WELCOME10"])

	// WELCOME10 is not stackable: after SAVE20 it must be skipped
	q, err = engine.Calculate(ctx, items, []string{"SAVE20", "WELCOME10"}, 9.99, 0.08)
	require.NoError(t, err)
	require.Len(t, q.Applied, 1)
	assert.Equal(t, "SAVE20", q.Applied[0].Code)
	assert.NotEmpty(t, q.Rejected["WELCOME10"])
}
