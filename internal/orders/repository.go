package orders

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/talkincode/eazybuy/internal/domain"
	"github.com/talkincode/eazybuy/pkg/common"
	"gorm.io/gorm"
)

// Filter narrows order listings.
type Filter struct {
	Status   string
	OwnerKey string
	Page     int
	PageSize int
}

// Repository handles order data access
type Repository interface {
	// Create inserts the order and its lines atomically
	Create(ctx context.Context, o *domain.Order) error

	// GetByOrderNo retrieves one order with its lines
	GetByOrderNo(ctx context.Context, orderNo string) (*domain.Order, error)

	// List pages orders matching the filter, newest first
	List(ctx context.Context, filter Filter) ([]*domain.Order, int64, error)

	// UpdateStatus moves the order to status
	UpdateStatus(ctx context.Context, orderNo, status string) error

	// Totals returns every order total for the given statuses, used by
	// the dashboard stats
	Totals(ctx context.Context, statuses ...string) ([]float64, error)

	// CountByStatus returns order counts grouped by status
	CountByStatus(ctx context.Context) (map[string]int64, error)
}

// NextOrderNo builds a human-readable order number. The tail is a
// snowflake id, so numbers never repeat across process restarts and the
// unique index on order_no cannot reject a checkout mid-saga.
func NextOrderNo() string {
	return fmt.Sprintf("EZ%s%d", time.Now().Format("20060102"), common.UUIDint64())
}

// GormRepository is the GORM implementation of Repository
type GormRepository struct {
	DB *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{DB: db}
}

func (r *GormRepository) Create(ctx context.Context, o *domain.Order) error {
	if o.ID == 0 {
		o.ID = common.UUIDint64()
	}
	now := time.Now()
	o.CreatedAt = now
	o.UpdatedAt = now
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items := o.Items
		o.Items = nil
		if err := tx.Create(o).Error; err != nil {
			return err
		}
		o.Items = items
		for i := range o.Items {
			o.Items[i].ID = common.UUIDint64()
			o.Items[i].OrderID = o.ID
			o.Items[i].CreatedAt = now
		}
		if len(o.Items) > 0 {
			return tx.Create(&o.Items).Error
		}
		return nil
	})
}

func (r *GormRepository) GetByOrderNo(ctx context.Context, orderNo string) (*domain.Order, error) {
	var o domain.Order
	err := r.DB.WithContext(ctx).Where("order_no = ?", orderNo).First(&o).Error
	if err != nil {
		return nil, err
	}
	err = r.DB.WithContext(ctx).Where("order_id = ?", o.ID).Find(&o.Items).Error
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *GormRepository) List(ctx context.Context, filter Filter) ([]*domain.Order, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 500 {
		filter.PageSize = 20
	}
	query := r.DB.WithContext(ctx).Model(&domain.Order{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.OwnerKey != "" {
		query = query.Where("owner_key = ?", filter.OwnerKey)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []*domain.Order
	err := query.Order("placed_at DESC").
		Offset((filter.Page - 1) * filter.PageSize).
		Limit(filter.PageSize).
		Find(&rows).Error
	return rows, total, err
}

func (r *GormRepository) UpdateStatus(ctx context.Context, orderNo, status string) error {
	return r.DB.WithContext(ctx).Model(&domain.Order{}).
		Where("order_no = ?", orderNo).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		}).Error
}

func (r *GormRepository) Totals(ctx context.Context, statuses ...string) ([]float64, error) {
	query := r.DB.WithContext(ctx).Model(&domain.Order{})
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	var totals []float64
	err := query.Pluck("total", &totals).Error
	return totals, err
}

func (r *GormRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	type row struct {
		Status string
		N      int64
	}
	var rows []row
	err := r.DB.WithContext(ctx).Model(&domain.Order{}).
		Select("status, COUNT(*) as n").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, rr := range rows {
		out[rr.Status] = rr.N
	}
	return out, nil
}

// MemoryRepository keeps orders in memory for the demo mode and tests.
type MemoryRepository struct {
	mu     sync.RWMutex
	orders map[string]*domain.Order
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{orders: make(map[string]*domain.Order)}
}

func (r *MemoryRepository) Create(ctx context.Context, o *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	// mirror the unique index on order_no
	if _, exists := r.orders[o.OrderNo]; exists {
		return gorm.ErrDuplicatedKey
	}
	if o.ID == 0 {
		o.ID = common.UUIDint64()
	}
	now := time.Now()
	o.CreatedAt = now
	o.UpdatedAt = now
	cp := *o
	cp.Items = append([]domain.OrderItem(nil), o.Items...)
	r.orders[o.OrderNo] = &cp
	return nil
}

func (r *MemoryRepository) GetByOrderNo(ctx context.Context, orderNo string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[orderNo]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *o
	cp.Items = append([]domain.OrderItem(nil), o.Items...)
	return &cp, nil
}

func (r *MemoryRepository) List(ctx context.Context, filter Filter) ([]*domain.Order, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	r.mu.RLock()
	var rows []*domain.Order
	for _, o := range r.orders {
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		if filter.OwnerKey != "" && o.OwnerKey != filter.OwnerKey {
			continue
		}
		cp := *o
		rows = append(rows, &cp)
	}
	r.mu.RUnlock()
	sort.Slice(rows, func(i, j int) bool { return rows[i].PlacedAt.After(rows[j].PlacedAt) })
	total := int64(len(rows))
	start := (filter.Page - 1) * filter.PageSize
	if start >= len(rows) {
		return nil, total, nil
	}
	end := start + filter.PageSize
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end], total, nil
}

func (r *MemoryRepository) UpdateStatus(ctx context.Context, orderNo, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderNo]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	o.Status = status
	o.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryRepository) Totals(ctx context.Context, statuses ...string) ([]float64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	match := func(status string) bool {
		if len(statuses) == 0 {
			return true
		}
		for _, s := range statuses {
			if s == status {
				return true
			}
		}
		return false
	}
	var totals []float64
	for _, o := range r.orders {
		if match(o.Status) {
			totals = append(totals, o.Total)
		}
	}
	return totals, nil
}

func (r *MemoryRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := map[string]int64{}
	for _, o := range r.orders {
		out[o.Status]++
	}
	return out, nil
}
