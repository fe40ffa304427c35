package customers

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/labstack/gommon/random"
	"github.com/pkg/errors"
	"github.com/talkincode/eazybuy/internal/domain"
	"github.com/talkincode/eazybuy/pkg/common"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	// ErrAlreadyExists gets its own identity so the account flow can
	// show the "you already have an account" prompt instead of a
	// generic failure.
	ErrAlreadyExists = errors.New("customers: an account with this email already exists")
	ErrNotFound      = errors.New("customers: account not found")
	ErrBadCredential = errors.New("customers: invalid email or password")
)

// Repository handles shopper account access
type Repository interface {
	GetByID(ctx context.Context, id int64) (*domain.Customer, error)
	GetByEmail(ctx context.Context, email string) (*domain.Customer, error)
	Create(ctx context.Context, c *domain.Customer) error
	Update(ctx context.Context, c *domain.Customer) error
	List(ctx context.Context, page, pageSize int) ([]*domain.Customer, int64, error)
}

// Service wraps the repository with registration and credential logic.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Repo() Repository {
	return s.repo
}

// Register creates an account with a bcrypt password hash. Duplicate
// emails fail with ErrAlreadyExists.
func (s *Service) Register(ctx context.Context, email, username, password string) (*domain.Customer, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if existing, _ := s.repo.GetByEmail(ctx, email); existing != nil {
		return nil, ErrAlreadyExists
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	c := &domain.Customer{
		ID:          common.UUIDint64(),
		Email:       email,
		Username:    username,
		Password:    string(hash),
		Status:      common.ENABLED,
		VerifyToken: random.String(32),
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Authenticate verifies credentials and stamps the last login.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*domain.Customer, error) {
	c, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil || c == nil {
		return nil, ErrBadCredential
	}
	if bcrypt.CompareHashAndPassword([]byte(c.Password), []byte(password)) != nil {
		return nil, ErrBadCredential
	}
	c.LastLogin = time.Now()
	_ = s.repo.Update(ctx, c)
	return c, nil
}

// StartPasswordReset stores a reset token valid for one hour.
func (s *Service) StartPasswordReset(ctx context.Context, email string) (*domain.Customer, string, error) {
	c, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil || c == nil {
		return nil, "", ErrNotFound
	}
	token := random.String(32)
	c.ResetToken = token
	c.ResetExpireAt = time.Now().Add(time.Hour)
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, "", err
	}
	return c, token, nil
}

// CompletePasswordReset consumes a valid token and sets the password.
func (s *Service) CompletePasswordReset(ctx context.Context, email, token, password string) error {
	c, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil || c == nil {
		return ErrNotFound
	}
	if c.ResetToken == "" || c.ResetToken != token || time.Now().After(c.ResetExpireAt) {
		return errors.New("customers: invalid or expired reset token")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	c.Password = string(hash)
	c.ResetToken = ""
	c.ResetExpireAt = time.Time{}
	return s.repo.Update(ctx, c)
}

// Verify consumes the email verification token.
func (s *Service) Verify(ctx context.Context, email, token string) error {
	c, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil || c == nil {
		return ErrNotFound
	}
	if c.VerifyToken == "" || c.VerifyToken != token {
		return errors.New("customers: invalid verification token")
	}
	c.Verified = true
	c.VerifyToken = ""
	return s.repo.Update(ctx, c)
}

// GormRepository is the GORM implementation of Repository
type GormRepository struct {
	DB *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{DB: db}
}

func (r *GormRepository) GetByID(ctx context.Context, id int64) (*domain.Customer, error) {
	var c domain.Customer
	err := r.DB.WithContext(ctx).First(&c, id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *GormRepository) GetByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	var c domain.Customer
	err := r.DB.WithContext(ctx).Where("email = ?", email).First(&c).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *GormRepository) Create(ctx context.Context, c *domain.Customer) error {
	c.CreatedAt = time.Now()
	c.UpdatedAt = time.Now()
	return r.DB.WithContext(ctx).Create(c).Error
}

func (r *GormRepository) Update(ctx context.Context, c *domain.Customer) error {
	c.UpdatedAt = time.Now()
	return r.DB.WithContext(ctx).Save(c).Error
}

func (r *GormRepository) List(ctx context.Context, page, pageSize int) ([]*domain.Customer, int64, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 500 {
		pageSize = 20
	}
	var total int64
	if err := r.DB.WithContext(ctx).Model(&domain.Customer{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []*domain.Customer
	err := r.DB.WithContext(ctx).
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&rows).Error
	return rows, total, err
}

// MemoryRepository keeps accounts in memory for the demo mode and tests.
type MemoryRepository struct {
	mu      sync.RWMutex
	byID    map[int64]*domain.Customer
	byEmail map[string]*domain.Customer
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:    make(map[int64]*domain.Customer),
		byEmail: make(map[string]*domain.Customer),
	}
}

func (r *MemoryRepository) GetByID(ctx context.Context, id int64) (*domain.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *MemoryRepository) GetByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byEmail[email]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *MemoryRepository) Create(ctx context.Context, c *domain.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.CreatedAt = time.Now()
	c.UpdatedAt = time.Now()
	cp := *c
	r.byID[c.ID] = &cp
	r.byEmail[c.Email] = &cp
	return nil
}

func (r *MemoryRepository) Update(ctx context.Context, c *domain.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.UpdatedAt = time.Now()
	cp := *c
	r.byID[c.ID] = &cp
	r.byEmail[c.Email] = &cp
	return nil
}

func (r *MemoryRepository) List(ctx context.Context, page, pageSize int) ([]*domain.Customer, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var rows []*domain.Customer
	for _, c := range r.byID {
		cp := *c
		rows = append(rows, &cp)
	}
	return rows, int64(len(rows)), nil
}
