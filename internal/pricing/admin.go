package pricing

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/talkincode/eazybuy/internal/domain"
	"github.com/talkincode/eazybuy/pkg/common"
	"gorm.io/gorm"
)

var ErrDuplicateCode = errors.New("pricing: a discount with this code already exists")

// AdminRepository is the console-facing side of discount storage. Unlike
// DiscountRepository it sees inactive and expired codes too.
type AdminRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Discount, error)
	List(ctx context.Context, page, pageSize int) ([]*domain.Discount, int64, error)
	Create(ctx context.Context, d *domain.Discount) error
	Update(ctx context.Context, d *domain.Discount) error
	Delete(ctx context.Context, id int64) error

	// DeactivateExpired flips is_active off for codes past their end
	// date and returns how many rows changed.
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}

// GormAdminRepository is the GORM implementation of AdminRepository
type GormAdminRepository struct {
	DB *gorm.DB
}

func NewGormAdminRepository(db *gorm.DB) *GormAdminRepository {
	return &GormAdminRepository{DB: db}
}

func (r *GormAdminRepository) GetByID(ctx context.Context, id int64) (*domain.Discount, error) {
	var d domain.Discount
	err := r.DB.WithContext(ctx).First(&d, id).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *GormAdminRepository) List(ctx context.Context, page, pageSize int) ([]*domain.Discount, int64, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 500 {
		pageSize = 20
	}
	var total int64
	if err := r.DB.WithContext(ctx).Model(&domain.Discount{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []*domain.Discount
	err := r.DB.WithContext(ctx).
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&rows).Error
	return rows, total, err
}

func (r *GormAdminRepository) Create(ctx context.Context, d *domain.Discount) error {
	d.Code = strings.ToUpper(strings.TrimSpace(d.Code))
	var count int64
	err := r.DB.WithContext(ctx).Model(&domain.Discount{}).
		Where("UPPER(code) = ?", d.Code).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrDuplicateCode
	}
	if d.ID == 0 {
		d.ID = common.UUIDint64()
	}
	d.CreatedAt = time.Now()
	d.UpdatedAt = time.Now()
	return r.DB.WithContext(ctx).Create(d).Error
}

func (r *GormAdminRepository) Update(ctx context.Context, d *domain.Discount) error {
	d.Code = strings.ToUpper(strings.TrimSpace(d.Code))
	d.UpdatedAt = time.Now()
	return r.DB.WithContext(ctx).Save(d).Error
}

func (r *GormAdminRepository) Delete(ctx context.Context, id int64) error {
	return r.DB.WithContext(ctx).Delete(&domain.Discount{}, id).Error
}

func (r *GormAdminRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.DB.WithContext(ctx).Model(&domain.Discount{}).
		Where("is_active = ? AND end_at <> ? AND end_at < ?", true, time.Time{}, now).
		Update("is_active", false)
	return res.RowsAffected, res.Error
}

// MemoryAdminRepository layers admin CRUD over a MemoryDiscountRepository
// so the demo mode shares one dataset between storefront and console.
type MemoryAdminRepository struct {
	store *MemoryDiscountRepository
}

func NewMemoryAdminRepository(store *MemoryDiscountRepository) *MemoryAdminRepository {
	return &MemoryAdminRepository{store: store}
}

func (r *MemoryAdminRepository) GetByID(ctx context.Context, id int64) (*domain.Discount, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	for _, d := range r.store.discounts {
		if d.ID == id {
			cp := *d
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *MemoryAdminRepository) List(ctx context.Context, page, pageSize int) ([]*domain.Discount, int64, error) {
	r.store.mu.RLock()
	var rows []*domain.Discount
	for _, d := range r.store.discounts {
		cp := *d
		rows = append(rows, &cp)
	}
	r.store.mu.RUnlock()
	sort.Slice(rows, func(i, j int) bool { return rows[i].Code < rows[j].Code })
	return rows, int64(len(rows)), nil
}

func (r *MemoryAdminRepository) Create(ctx context.Context, d *domain.Discount) error {
	d.Code = strings.ToUpper(strings.TrimSpace(d.Code))
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.discounts[d.Code]; ok {
		return ErrDuplicateCode
	}
	if d.ID == 0 {
		d.ID = common.UUIDint64()
	}
	d.CreatedAt = time.Now()
	d.UpdatedAt = time.Now()
	cp := *d
	r.store.discounts[d.Code] = &cp
	return nil
}

func (r *MemoryAdminRepository) Update(ctx context.Context, d *domain.Discount) error {
	d.Code = strings.ToUpper(strings.TrimSpace(d.Code))
	d.UpdatedAt = time.Now()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for code, old := range r.store.discounts {
		if old.ID == d.ID && code != d.Code {
			delete(r.store.discounts, code)
		}
	}
	cp := *d
	r.store.discounts[d.Code] = &cp
	return nil
}

func (r *MemoryAdminRepository) Delete(ctx context.Context, id int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for code, d := range r.store.discounts {
		if d.ID == id {
			delete(r.store.discounts, code)
		}
	}
	return nil
}

func (r *MemoryAdminRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var n int64
	for _, d := range r.store.discounts {
		if d.IsActive && !d.EndAt.IsZero() && now.After(d.EndAt) {
			d.IsActive = false
			n++
		}
	}
	return n, nil
}
