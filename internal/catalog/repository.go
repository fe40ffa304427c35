package catalog

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/talkincode/eazybuy/internal/domain"
	"github.com/talkincode/eazybuy/pkg/common"
	"gorm.io/gorm"
)

// Filter narrows product listings. Zero values mean no restriction.
type Filter struct {
	Query       string
	Category    string
	InStockOnly bool
	Sort        string // whitelisted column
	Order       string // ASC or DESC
	Page        int
	PageSize    int
}

// allowed sort columns, to keep user input out of the ORDER BY clause
var sortColumns = map[string]string{
	"id":         "id",
	"name":       "name",
	"price":      "price",
	"category":   "category",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

func (f *Filter) normalize() {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.PageSize <= 0 || f.PageSize > 500 {
		f.PageSize = 20
	}
	if _, ok := sortColumns[f.Sort]; !ok {
		f.Sort = "id"
	}
	if f.Order != "ASC" && f.Order != "DESC" {
		f.Order = "DESC"
	}
}

// ProductRepository handles catalog data access
type ProductRepository interface {
	// GetByID retrieves one product
	GetByID(ctx context.Context, id int64) (*domain.Product, error)

	// List pages products matching the filter
	List(ctx context.Context, filter Filter) ([]*domain.Product, int64, error)

	// Create inserts a new product
	Create(ctx context.Context, p *domain.Product) error

	// Update saves an existing product
	Update(ctx context.Context, p *domain.Product) error

	// Delete removes a product
	Delete(ctx context.Context, id int64) error

	// SyncQuantity mirrors the inventory ledger onto the catalog row
	SyncQuantity(ctx context.Context, productID int64, quantity int, inStock bool) error

	// Categories returns the distinct category names
	Categories(ctx context.Context) ([]string, error)
}

// GormProductRepository is the GORM implementation of ProductRepository
type GormProductRepository struct {
	DB *gorm.DB
}

func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{DB: db}
}

func (r *GormProductRepository) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	var p domain.Product
	err := r.DB.WithContext(ctx).First(&p, id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormProductRepository) List(ctx context.Context, filter Filter) ([]*domain.Product, int64, error) {
	filter.normalize()
	query := r.DB.WithContext(ctx).Model(&domain.Product{})
	if q := strings.TrimSpace(filter.Query); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.InStockOnly {
		query = query.Where("in_stock = ? AND out_of_order = ?", true, false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []*domain.Product
	err := query.Order(sortColumns[filter.Sort] + " " + filter.Order).
		Offset((filter.Page - 1) * filter.PageSize).
		Limit(filter.PageSize).
		Find(&rows).Error
	return rows, total, err
}

func (r *GormProductRepository) Create(ctx context.Context, p *domain.Product) error {
	if p.ID == 0 {
		p.ID = common.UUIDint64()
	}
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()
	return r.DB.WithContext(ctx).Create(p).Error
}

func (r *GormProductRepository) Update(ctx context.Context, p *domain.Product) error {
	p.UpdatedAt = time.Now()
	return r.DB.WithContext(ctx).Save(p).Error
}

func (r *GormProductRepository) Delete(ctx context.Context, id int64) error {
	return r.DB.WithContext(ctx).Delete(&domain.Product{}, id).Error
}

func (r *GormProductRepository) SyncQuantity(ctx context.Context, productID int64, quantity int, inStock bool) error {
	return r.DB.WithContext(ctx).Model(&domain.Product{}).
		Where("id = ?", productID).
		Updates(map[string]interface{}{
			"quantity":   quantity,
			"in_stock":   inStock,
			"updated_at": time.Now(),
		}).Error
}

func (r *GormProductRepository) Categories(ctx context.Context) ([]string, error) {
	var cats []string
	err := r.DB.WithContext(ctx).Model(&domain.Product{}).
		Distinct("category").
		Where("category <> ''").
		Order("category ASC").
		Pluck("category", &cats).Error
	return cats, err
}

// MemoryProductRepository keeps the catalog in memory for the demo mode
// and tests.
type MemoryProductRepository struct {
	mu       sync.RWMutex
	products map[int64]*domain.Product
}

func NewMemoryProductRepository() *MemoryProductRepository {
	return &MemoryProductRepository{products: make(map[int64]*domain.Product)}
}

func (r *MemoryProductRepository) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *MemoryProductRepository) List(ctx context.Context, filter Filter) ([]*domain.Product, int64, error) {
	filter.normalize()
	r.mu.RLock()
	var rows []*domain.Product
	for _, p := range r.products {
		if q := strings.ToLower(strings.TrimSpace(filter.Query)); q != "" {
			if !strings.Contains(strings.ToLower(p.Name), q) &&
				!strings.Contains(strings.ToLower(p.Description), q) {
				continue
			}
		}
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if filter.InStockOnly && !p.Sellable() {
			continue
		}
		cp := *p
		rows = append(rows, &cp)
	}
	r.mu.RUnlock()

	asc := filter.Order == "ASC"
	sort.Slice(rows, func(i, j int) bool {
		var less bool
		switch filter.Sort {
		case "name":
			less = rows[i].Name < rows[j].Name
		case "price":
			less = rows[i].Price < rows[j].Price
		case "category":
			less = rows[i].Category < rows[j].Category
		default:
			less = rows[i].ID < rows[j].ID
		}
		if asc {
			return less
		}
		return !less
	})

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

func (r *MemoryProductRepository) Create(ctx context.Context, p *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == 0 {
		p.ID = common.UUIDint64()
	}
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()
	cp := *p
	r.products[p.ID] = &cp
	return nil
}

func (r *MemoryProductRepository) Update(ctx context.Context, p *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[p.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	p.UpdatedAt = time.Now()
	cp := *p
	r.products[p.ID] = &cp
	return nil
}

func (r *MemoryProductRepository) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.products, id)
	return nil
}

func (r *MemoryProductRepository) SyncQuantity(ctx context.Context, productID int64, quantity int, inStock bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.products[productID]; ok {
		p.Quantity = quantity
		p.InStock = inStock
		p.UpdatedAt = time.Now()
	}
	return nil
}

func (r *MemoryProductRepository) Categories(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := map[string]bool{}
	var cats []string
	for _, p := range r.products {
		if p.Category != "" && !seen[p.Category] {
			seen[p.Category] = true
			cats = append(cats, p.Category)
		}
	}
	sort.Strings(cats)
	return cats, nil
}
