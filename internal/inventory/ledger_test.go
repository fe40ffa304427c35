package inventory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkincode/eazybuy/internal/domain"
)

type recordingMirror struct {
	mu       sync.Mutex
	quantity int
	inStock  bool
	calls    int
}

func (m *recordingMirror) SyncQuantity(ctx context.Context, productID int64, quantity int, inStock bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quantity = quantity
	m.inStock = inStock
	m.calls++
	return nil
}

func newTestService(t *testing.T) (*Service, *MemoryRepository, *recordingMirror) {
	t.Helper()
	repo := NewMemoryRepository()
	mirror := &recordingMirror{}
	svc := NewService(repo, mirror, EventBus.New())
	require.NoError(t, svc.EnsureItem(context.Background(), 101, 5, 2))
	return svc, repo, mirror
}

func TestAvailableQuantity(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	// quantity 5, reserved 2 -> available 3
	require.NoError(t, svc.ReserveStock(ctx, 101, 2, "test"))
	assert.Equal(t, 3, svc.GetAvailableQuantity(ctx, 101))

	// unknown product reads as zero, not an error
	assert.Equal(t, 0, svc.GetAvailableQuantity(ctx, 999))
}

func TestReserveGuardedByAvailable(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.ReserveStock(ctx, 101, 3, "test"))
	err := svc.ReserveStock(ctx, 101, 3, "test")
	assert.ErrorIs(t, err, ErrInsufficientStock)

	item, err := svc.Get(ctx, 101)
	require.NoError(t, err)
	assert.Equal(t, 3, item.Reserved)
	assert.Equal(t, 2, item.Available())
}

func TestReleaseFloorsAtZero(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.ReserveStock(ctx, 101, 2, "test"))
	require.NoError(t, svc.ReleaseReservedStock(ctx, 101, 5, "test"))

	item, err := svc.Get(ctx, 101)
	require.NoError(t, err)
	assert.Equal(t, 0, item.Reserved)
	assert.Equal(t, 5, item.Quantity)
}

func TestProcessOrderRequiresReservation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	err := svc.ProcessOrder(ctx, 101, 2, "system", "EZ1001")
	assert.ErrorIs(t, err, ErrReservedShortfall)

	require.NoError(t, svc.ReserveStock(ctx, 101, 2, "system"))
	require.NoError(t, svc.ProcessOrder(ctx, 101, 2, "system", "EZ1001"))

	item, err := svc.Get(ctx, 101)
	require.NoError(t, err)
	assert.Equal(t, 3, item.Quantity)
	assert.Equal(t, 0, item.Reserved)
	assert.Equal(t, 3, item.Available())
}

func TestUpdateStockRefusesBelowReserved(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.ReserveStock(ctx, 101, 3, "system"))

	err := svc.UpdateStock(ctx, 101, 2, "admin", "shrinkage", false)
	assert.ErrorIs(t, err, ErrBelowReserved)

	// force overrides the guard
	require.NoError(t, svc.UpdateStock(ctx, 101, 2, "admin", "shrinkage", true))
	item, err := svc.Get(ctx, 101)
	require.NoError(t, err)
	assert.Equal(t, 2, item.Quantity)
}

func TestUpdateStockAuditEntry(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.UpdateStock(ctx, 101, 20, "admin", "restock delivery", false))

	txns, total, err := svc.ListTransactions(ctx, 101, time.Time{}, time.Time{}, 1, 10)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	set := txns[0]
	assert.Equal(t, domain.TxnStockSet, set.Type)
	assert.Equal(t, 5, set.QuantityBefore)
	assert.Equal(t, 20, set.QuantityAfter)
	assert.Equal(t, "admin", set.Actor)
	assert.Equal(t, "restock delivery", set.Note)
}

func TestAuditTrailPerMutation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.ReserveStock(ctx, 101, 2, "cart"))
	require.NoError(t, svc.ProcessOrder(ctx, 101, 2, "system", "EZ1002"))
	require.NoError(t, svc.RestockOrder(ctx, 101, 1, "system", "EZ1002"))

	txns, total, err := svc.ListTransactions(ctx, 101, time.Time{}, time.Time{}, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	// newest first
	assert.Equal(t, domain.TxnRestock, txns[0].Type)
	assert.Equal(t, domain.TxnFulfillment, txns[1].Type)
	assert.Equal(t, domain.TxnReserve, txns[2].Type)
}

func TestStockChangedEventAndMirror(t *testing.T) {
	svc, _, mirror := newTestService(t)
	ctx := context.Background()

	bus := EventBus.New()
	var mu sync.Mutex
	var events []int64
	require.NoError(t, bus.Subscribe(TopicStockChanged, func(productID int64) {
		mu.Lock()
		events = append(events, productID)
		mu.Unlock()
	}))
	svc.bus = bus

	require.NoError(t, svc.UpdateStock(ctx, 101, 0, "admin", "sold out", false))
	bus.WaitAsync()

	mu.Lock()
	assert.Equal(t, []int64{101}, events)
	mu.Unlock()

	mirror.mu.Lock()
	assert.Equal(t, 0, mirror.quantity)
	assert.False(t, mirror.inStock)
	mirror.mu.Unlock()
}

func TestReleaseStaleReservations(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.ReserveStock(ctx, 101, 3, "checkout"))
	time.Sleep(5 * time.Millisecond)

	released, err := svc.ReleaseStaleReservations(ctx, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 1, released)

	item, err := svc.Get(ctx, 101)
	require.NoError(t, err)
	assert.Equal(t, 0, item.Reserved)
	assert.Equal(t, 5, item.Quantity, "reclaim releases the hold, it never touches on-hand stock")

	txns, _, err := svc.ListTransactions(ctx, 101, time.Time{}, time.Time{}, 1, 1)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, domain.TxnRelease, txns[0].Type)
	assert.Equal(t, "scheduler", txns[0].Actor)
}

func TestReleaseStaleReservationsSkipsFreshHolds(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.ReserveStock(ctx, 101, 2, "checkout"))

	released, err := svc.ReleaseStaleReservations(ctx, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, released)

	item, err := svc.Get(ctx, 101)
	require.NoError(t, err)
	assert.Equal(t, 2, item.Reserved)
}

func TestLowStock(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.EnsureItem(ctx, 102, 50, 5))

	// 101 has quantity 5, threshold 2: reserve down to threshold
	require.NoError(t, svc.ReserveStock(ctx, 101, 3, "cart"))

	rows, err := svc.LowStock(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(101), rows[0].ProductID)
}
