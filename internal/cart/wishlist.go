package cart

import (
	"context"
	"sync"
	"time"

	"github.com/talkincode/eazybuy/internal/domain"
	"github.com/talkincode/eazybuy/pkg/common"
	"gorm.io/gorm"
)

// WishlistRepository stores saved-for-later products per owner key.
// Adding an already-saved product is a no-op.
type WishlistRepository interface {
	List(ctx context.Context, ownerKey string) ([]domain.WishlistItem, error)
	Add(ctx context.Context, ownerKey string, productID int64) error
	Remove(ctx context.Context, ownerKey string, productID int64) error
}

// GormWishlistRepository is the GORM implementation of WishlistRepository
type GormWishlistRepository struct {
	DB *gorm.DB
}

func NewGormWishlistRepository(db *gorm.DB) *GormWishlistRepository {
	return &GormWishlistRepository{DB: db}
}

func (r *GormWishlistRepository) List(ctx context.Context, ownerKey string) ([]domain.WishlistItem, error) {
	var rows []domain.WishlistItem
	err := r.DB.WithContext(ctx).
		Where("owner_key = ?", ownerKey).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

func (r *GormWishlistRepository) Add(ctx context.Context, ownerKey string, productID int64) error {
	var count int64
	err := r.DB.WithContext(ctx).Model(&domain.WishlistItem{}).
		Where("owner_key = ? AND product_id = ?", ownerKey, productID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return r.DB.WithContext(ctx).Create(&domain.WishlistItem{
		ID:        common.UUIDint64(),
		OwnerKey:  ownerKey,
		ProductID: productID,
		CreatedAt: time.Now(),
	}).Error
}

func (r *GormWishlistRepository) Remove(ctx context.Context, ownerKey string, productID int64) error {
	return r.DB.WithContext(ctx).
		Where("owner_key = ? AND product_id = ?", ownerKey, productID).
		Delete(&domain.WishlistItem{}).Error
}

// MemoryWishlistRepository keeps wishlists in memory for the demo mode
// and tests.
type MemoryWishlistRepository struct {
	mu    sync.RWMutex
	items map[string][]domain.WishlistItem
}

func NewMemoryWishlistRepository() *MemoryWishlistRepository {
	return &MemoryWishlistRepository{items: make(map[string][]domain.WishlistItem)}
}

func (r *MemoryWishlistRepository) List(ctx context.Context, ownerKey string) ([]domain.WishlistItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rows := r.items[ownerKey]
	out := make([]domain.WishlistItem, len(rows))
	copy(out, rows)
	return out, nil
}

func (r *MemoryWishlistRepository) Add(ctx context.Context, ownerKey string, productID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, it := range r.items[ownerKey] {
		if it.ProductID == productID {
			return nil
		}
	}
	r.items[ownerKey] = append(r.items[ownerKey], domain.WishlistItem{
		ID:        common.UUIDint64(),
		OwnerKey:  ownerKey,
		ProductID: productID,
		CreatedAt: time.Now(),
	})
	return nil
}

func (r *MemoryWishlistRepository) Remove(ctx context.Context, ownerKey string, productID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := r.items[ownerKey]
	for i, it := range rows {
		if it.ProductID == productID {
			r.items[ownerKey] = append(rows[:i], rows[i+1:]...)
			return nil
		}
	}
	return nil
}
