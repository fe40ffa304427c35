package cart

import (
	"context"
	"sync"
	"time"

	"github.com/talkincode/eazybuy/internal/domain"
	"github.com/talkincode/eazybuy/pkg/common"
	"gorm.io/gorm"
)

// Repository persists carts keyed by owner. Save replaces the full line
// set; carts are small so diffing is not worth the bookkeeping.
type Repository interface {
	// GetByOwner loads the cart for ownerKey, creating an empty one on
	// first access.
	GetByOwner(ctx context.Context, ownerKey string) (*domain.Cart, error)

	// Save stores the cart's current line set
	Save(ctx context.Context, c *domain.Cart) error

	// Clear removes every line from the owner's cart
	Clear(ctx context.Context, ownerKey string) error
}

// GormRepository is the GORM implementation of Repository
type GormRepository struct {
	DB *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{DB: db}
}

func (r *GormRepository) GetByOwner(ctx context.Context, ownerKey string) (*domain.Cart, error) {
	var c domain.Cart
	err := r.DB.WithContext(ctx).Where("owner_key = ?", ownerKey).First(&c).Error
	if err == gorm.ErrRecordNotFound {
		c = domain.Cart{ID: common.UUIDint64(), OwnerKey: ownerKey, CreatedAt: time.Now(), UpdatedAt: time.Now()}
		if err := r.DB.WithContext(ctx).Create(&c).Error; err != nil {
			return nil, err
		}
		return &c, nil
	}
	if err != nil {
		return nil, err
	}
	err = r.DB.WithContext(ctx).
		Where("cart_id = ?", c.ID).
		Order("added_at ASC").
		Find(&c.Items).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *GormRepository) Save(ctx context.Context, c *domain.Cart) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cart_id = ?", c.ID).Delete(&domain.CartItem{}).Error; err != nil {
			return err
		}
		for i := range c.Items {
			c.Items[i].CartID = c.ID
			if c.Items[i].ID == 0 {
				c.Items[i].ID = common.UUIDint64()
			}
		}
		if len(c.Items) > 0 {
			if err := tx.Create(&c.Items).Error; err != nil {
				return err
			}
		}
		return tx.Model(&domain.Cart{}).Where("id = ?", c.ID).
			Update("updated_at", time.Now()).Error
	})
}

func (r *GormRepository) Clear(ctx context.Context, ownerKey string) error {
	var c domain.Cart
	err := r.DB.WithContext(ctx).Where("owner_key = ?", ownerKey).First(&c).Error
	if err == gorm.ErrRecordNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	return r.DB.WithContext(ctx).Where("cart_id = ?", c.ID).Delete(&domain.CartItem{}).Error
}

// MemoryRepository keeps carts in memory for the demo mode and tests.
type MemoryRepository struct {
	mu    sync.RWMutex
	carts map[string]*domain.Cart
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{carts: make(map[string]*domain.Cart)}
}

func (r *MemoryRepository) GetByOwner(ctx context.Context, ownerKey string) (*domain.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.carts[ownerKey]
	if !ok {
		c = &domain.Cart{ID: common.UUIDint64(), OwnerKey: ownerKey, CreatedAt: time.Now(), UpdatedAt: time.Now()}
		r.carts[ownerKey] = c
	}
	cp := *c
	cp.Items = append([]domain.CartItem(nil), c.Items...)
	return &cp, nil
}

func (r *MemoryRepository) Save(ctx context.Context, c *domain.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	cp.Items = append([]domain.CartItem(nil), c.Items...)
	cp.UpdatedAt = time.Now()
	r.carts[c.OwnerKey] = &cp
	return nil
}

func (r *MemoryRepository) Clear(ctx context.Context, ownerKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.carts[ownerKey]; ok {
		c.Items = nil
	}
	return nil
}
