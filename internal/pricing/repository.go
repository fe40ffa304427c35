package pricing

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/talkincode/eazybuy/internal/domain"
	"gorm.io/gorm"
)

// DiscountRepository handles promo code data access
type DiscountRepository interface {
	// GetByCode retrieves the active discount matching code
	// case-insensitively whose date window contains now. Unknown or
	// inactive codes return (nil, nil); they are not errors.
	GetByCode(ctx context.Context, code string) (*domain.Discount, error)

	// IncrementUsage bumps the usage counter for code
	IncrementUsage(ctx context.Context, code string) error

	// DecrementUsage reverses one usage increment, floored at zero
	DecrementUsage(ctx context.Context, code string) error
}

// GormDiscountRepository is the GORM implementation of DiscountRepository
type GormDiscountRepository struct {
	DB *gorm.DB
}

func NewGormDiscountRepository(db *gorm.DB) *GormDiscountRepository {
	return &GormDiscountRepository{DB: db}
}

func (r *GormDiscountRepository) GetByCode(ctx context.Context, code string) (*domain.Discount, error) {
	var d domain.Discount
	err := r.DB.WithContext(ctx).
		Where("UPPER(code) = ? AND is_active = ?", strings.ToUpper(strings.TrimSpace(code)), true).
		First(&d).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	if !d.InDateWindow(time.Now()) {
		return nil, nil
	}
	return &d, nil
}

func (r *GormDiscountRepository) IncrementUsage(ctx context.Context, code string) error {
	return r.DB.WithContext(ctx).
		Model(&domain.Discount{}).
		Where("UPPER(code) = ?", strings.ToUpper(strings.TrimSpace(code))).
		Update("usage_count", gorm.Expr("usage_count + 1")).Error
}

func (r *GormDiscountRepository) DecrementUsage(ctx context.Context, code string) error {
	return r.DB.WithContext(ctx).
		Model(&domain.Discount{}).
		Where("UPPER(code) = ? AND usage_count > 0", strings.ToUpper(strings.TrimSpace(code))).
		Update("usage_count", gorm.Expr("usage_count - 1")).Error
}

// MemoryDiscountRepository keeps discounts in memory. It backs the demo
// no-database mode and the test suites.
type MemoryDiscountRepository struct {
	mu        sync.RWMutex
	discounts map[string]*domain.Discount
}

func NewMemoryDiscountRepository(seed ...*domain.Discount) *MemoryDiscountRepository {
	r := &MemoryDiscountRepository{discounts: make(map[string]*domain.Discount)}
	for _, d := range seed {
		r.Put(d)
	}
	return r
}

func (r *MemoryDiscountRepository) Put(d *domain.Discount) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.discounts[strings.ToUpper(strings.TrimSpace(d.Code))] = d
}

func (r *MemoryDiscountRepository) GetByCode(ctx context.Context, code string) (*domain.Discount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.discounts[strings.ToUpper(strings.TrimSpace(code))]
	if !ok || !d.IsActive || !d.InDateWindow(time.Now()) {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (r *MemoryDiscountRepository) IncrementUsage(ctx context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.discounts[strings.ToUpper(strings.TrimSpace(code))]; ok {
		d.UsageCount++
	}
	return nil
}

func (r *MemoryDiscountRepository) DecrementUsage(ctx context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.discounts[strings.ToUpper(strings.TrimSpace(code))]; ok && d.UsageCount > 0 {
		d.UsageCount--
	}
	return nil
}
