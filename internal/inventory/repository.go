package inventory

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/talkincode/eazybuy/internal/domain"
	"github.com/talkincode/eazybuy/pkg/common"
	"gorm.io/gorm"
)

var (
	ErrNotFound          = errors.New("inventory: product has no ledger row")
	ErrInsufficientStock = errors.New("inventory: insufficient available stock")
	ErrReservedShortfall = errors.New("inventory: reserved less than requested")
	ErrBelowReserved     = errors.New("inventory: quantity would drop below reserved")
)

// Repository handles ledger row access. Mutations are guarded so the
// ledger invariants hold under concurrent requests: reserve never
// exceeds available stock, fulfillment never exceeds reservations.
type Repository interface {
	// Get retrieves the ledger row for productID
	Get(ctx context.Context, productID int64) (*domain.InventoryItem, error)

	// Ensure creates the ledger row when missing
	Ensure(ctx context.Context, productID int64, quantity, threshold int) error

	// Reserve adds qty to reserved, failing with ErrInsufficientStock
	// when qty exceeds available. Returns the updated row.
	Reserve(ctx context.Context, productID int64, qty int) (*domain.InventoryItem, error)

	// Release subtracts qty from reserved, floored at zero
	Release(ctx context.Context, productID int64, qty int) (*domain.InventoryItem, error)

	// Fulfill decrements both reserved and quantity together, failing
	// with ErrReservedShortfall when reserved < qty
	Fulfill(ctx context.Context, productID int64, qty int) (*domain.InventoryItem, error)

	// SetQuantity is the admin absolute set. Unless force is set it
	// fails with ErrBelowReserved when qty < reserved.
	SetQuantity(ctx context.Context, productID int64, qty int, force bool) (*domain.InventoryItem, error)

	// Restock adds qty back to on-hand stock (cancelled orders)
	Restock(ctx context.Context, productID int64, qty int) (*domain.InventoryItem, error)

	// AppendTransaction inserts one audit entry; the log is append-only
	AppendTransaction(ctx context.Context, txn *domain.InventoryTransaction) error

	// ListTransactions pages through audit entries, newest first.
	// productID 0 and zero times mean no filter.
	ListTransactions(ctx context.Context, productID int64, from, to time.Time, page, pageSize int) ([]*domain.InventoryTransaction, int64, error)

	// LowStock lists rows whose available stock is at or under their
	// low-stock threshold
	LowStock(ctx context.Context) ([]*domain.InventoryItem, error)

	// ReservedItems lists rows currently holding any reservation
	ReservedItems(ctx context.Context) ([]*domain.InventoryItem, error)
}

// GormRepository is the GORM implementation of Repository
type GormRepository struct {
	DB *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{DB: db}
}

func (r *GormRepository) Get(ctx context.Context, productID int64) (*domain.InventoryItem, error) {
	var item domain.InventoryItem
	err := r.DB.WithContext(ctx).Where("product_id = ?", productID).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *GormRepository) Ensure(ctx context.Context, productID int64, quantity, threshold int) error {
	var count int64
	r.DB.WithContext(ctx).Model(&domain.InventoryItem{}).
		Where("product_id = ?", productID).Count(&count)
	if count > 0 {
		return nil
	}
	return r.DB.WithContext(ctx).Create(&domain.InventoryItem{
		ID:                common.UUIDint64(),
		ProductID:         productID,
		Quantity:          quantity,
		LowStockThreshold: threshold,
	}).Error
}

// adjust runs a guarded update and reloads the row. A zero RowsAffected
// with an existing row means the guard rejected the mutation.
func (r *GormRepository) adjust(ctx context.Context, productID int64, guard string, guardArgs []interface{}, updates map[string]interface{}, guardErr error) (*domain.InventoryItem, error) {
	q := r.DB.WithContext(ctx).Model(&domain.InventoryItem{}).
		Where("product_id = ?", productID)
	if guard != "" {
		q = q.Where(guard, guardArgs...)
	}
	res := q.Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.Get(ctx, productID); err != nil {
			return nil, err
		}
		return nil, guardErr
	}
	return r.Get(ctx, productID)
}

func (r *GormRepository) Reserve(ctx context.Context, productID int64, qty int) (*domain.InventoryItem, error) {
	return r.adjust(ctx, productID,
		"quantity - reserved >= ?", []interface{}{qty},
		map[string]interface{}{
			"reserved":   gorm.Expr("reserved + ?", qty),
			"updated_at": time.Now(),
		}, ErrInsufficientStock)
}

func (r *GormRepository) Release(ctx context.Context, productID int64, qty int) (*domain.InventoryItem, error) {
	return r.adjust(ctx, productID,
		"", nil,
		map[string]interface{}{
			"reserved":   gorm.Expr("CASE WHEN reserved > ? THEN reserved - ? ELSE 0 END", qty, qty),
			"updated_at": time.Now(),
		}, nil)
}

func (r *GormRepository) Fulfill(ctx context.Context, productID int64, qty int) (*domain.InventoryItem, error) {
	return r.adjust(ctx, productID,
		"reserved >= ?", []interface{}{qty},
		map[string]interface{}{
			"reserved":   gorm.Expr("reserved - ?", qty),
			"quantity":   gorm.Expr("quantity - ?", qty),
			"updated_at": time.Now(),
		}, ErrReservedShortfall)
}

func (r *GormRepository) SetQuantity(ctx context.Context, productID int64, qty int, force bool) (*domain.InventoryItem, error) {
	guard := "reserved <= ?"
	guardArgs := []interface{}{qty}
	if force {
		guard, guardArgs = "", nil
	}
	return r.adjust(ctx, productID, guard, guardArgs,
		map[string]interface{}{
			"quantity":   qty,
			"updated_at": time.Now(),
		}, ErrBelowReserved)
}

func (r *GormRepository) Restock(ctx context.Context, productID int64, qty int) (*domain.InventoryItem, error) {
	return r.adjust(ctx, productID, "", nil,
		map[string]interface{}{
			"quantity":   gorm.Expr("quantity + ?", qty),
			"updated_at": time.Now(),
		}, nil)
}

func (r *GormRepository) AppendTransaction(ctx context.Context, txn *domain.InventoryTransaction) error {
	return r.DB.WithContext(ctx).Create(txn).Error
}

func (r *GormRepository) ListTransactions(ctx context.Context, productID int64, from, to time.Time, page, pageSize int) ([]*domain.InventoryTransaction, int64, error) {
	query := r.DB.WithContext(ctx).Model(&domain.InventoryTransaction{})
	if productID != 0 {
		query = query.Where("product_id = ?", productID)
	}
	if !from.IsZero() {
		query = query.Where("created_at >= ?", from)
	}
	if !to.IsZero() {
		query = query.Where("created_at <= ?", to)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []*domain.InventoryTransaction
	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&rows).Error
	return rows, total, err
}

func (r *GormRepository) LowStock(ctx context.Context) ([]*domain.InventoryItem, error) {
	var rows []*domain.InventoryItem
	err := r.DB.WithContext(ctx).
		Where("quantity - reserved <= low_stock_threshold").
		Order("quantity - reserved ASC").
		Find(&rows).Error
	return rows, err
}

func (r *GormRepository) ReservedItems(ctx context.Context) ([]*domain.InventoryItem, error) {
	var rows []*domain.InventoryItem
	err := r.DB.WithContext(ctx).
		Where("reserved > 0").
		Find(&rows).Error
	return rows, err
}

// MemoryRepository keeps the ledger in memory for the demo mode and
// tests. Guards mirror the SQL implementation.
type MemoryRepository struct {
	mu    sync.RWMutex
	items map[int64]*domain.InventoryItem
	txns  []*domain.InventoryTransaction
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{items: make(map[int64]*domain.InventoryItem)}
}

func (r *MemoryRepository) Get(ctx context.Context, productID int64) (*domain.InventoryItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[productID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *item
	return &cp, nil
}

func (r *MemoryRepository) Ensure(ctx context.Context, productID int64, quantity, threshold int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[productID]; ok {
		return nil
	}
	r.items[productID] = &domain.InventoryItem{
		ID:                common.UUIDint64(),
		ProductID:         productID,
		Quantity:          quantity,
		LowStockThreshold: threshold,
	}
	return nil
}

func (r *MemoryRepository) mutate(productID int64, f func(*domain.InventoryItem) error) (*domain.InventoryItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[productID]
	if !ok {
		return nil, ErrNotFound
	}
	if err := f(item); err != nil {
		return nil, err
	}
	item.UpdatedAt = time.Now()
	cp := *item
	return &cp, nil
}

func (r *MemoryRepository) Reserve(ctx context.Context, productID int64, qty int) (*domain.InventoryItem, error) {
	return r.mutate(productID, func(item *domain.InventoryItem) error {
		if item.Available() < qty {
			return ErrInsufficientStock
		}
		item.Reserved += qty
		return nil
	})
}

func (r *MemoryRepository) Release(ctx context.Context, productID int64, qty int) (*domain.InventoryItem, error) {
	return r.mutate(productID, func(item *domain.InventoryItem) error {
		item.Reserved -= qty
		if item.Reserved < 0 {
			item.Reserved = 0
		}
		return nil
	})
}

func (r *MemoryRepository) Fulfill(ctx context.Context, productID int64, qty int) (*domain.InventoryItem, error) {
	return r.mutate(productID, func(item *domain.InventoryItem) error {
		if item.Reserved < qty {
			return ErrReservedShortfall
		}
		item.Reserved -= qty
		item.Quantity -= qty
		return nil
	})
}

func (r *MemoryRepository) SetQuantity(ctx context.Context, productID int64, qty int, force bool) (*domain.InventoryItem, error) {
	return r.mutate(productID, func(item *domain.InventoryItem) error {
		if !force && qty < item.Reserved {
			return ErrBelowReserved
		}
		item.Quantity = qty
		return nil
	})
}

func (r *MemoryRepository) Restock(ctx context.Context, productID int64, qty int) (*domain.InventoryItem, error) {
	return r.mutate(productID, func(item *domain.InventoryItem) error {
		item.Quantity += qty
		return nil
	})
}

func (r *MemoryRepository) AppendTransaction(ctx context.Context, txn *domain.InventoryTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.txns = append(r.txns, txn)
	return nil
}

func (r *MemoryRepository) ListTransactions(ctx context.Context, productID int64, from, to time.Time, page, pageSize int) ([]*domain.InventoryTransaction, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var filtered []*domain.InventoryTransaction
	for i := len(r.txns) - 1; i >= 0; i-- {
		t := r.txns[i]
		if productID != 0 && t.ProductID != productID {
			continue
		}
		if !from.IsZero() && t.CreatedAt.Before(from) {
			continue
		}
		if !to.IsZero() && t.CreatedAt.After(to) {
			continue
		}
		filtered = append(filtered, t)
	}
	total := int64(len(filtered))
	start := (page - 1) * pageSize
	if start >= len(filtered) {
		return nil, total, nil
	}
	end := start + pageSize
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[start:end], total, nil
}

func (r *MemoryRepository) LowStock(ctx context.Context) ([]*domain.InventoryItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var rows []*domain.InventoryItem
	for _, item := range r.items {
		if item.Available() <= item.LowStockThreshold {
			cp := *item
			rows = append(rows, &cp)
		}
	}
	return rows, nil
}

func (r *MemoryRepository) ReservedItems(ctx context.Context) ([]*domain.InventoryItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var rows []*domain.InventoryItem
	for _, item := range r.items {
		if item.Reserved > 0 {
			cp := *item
			rows = append(rows, &cp)
		}
	}
	return rows, nil
}
