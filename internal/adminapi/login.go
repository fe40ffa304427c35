package adminapi

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/talkincode/eazybuy/internal/domain"
	"github.com/talkincode/eazybuy/internal/webserver"
	"github.com/talkincode/eazybuy/pkg/common"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OperatorStore looks up console operator accounts.
type OperatorStore interface {
	GetByUsername(ctx context.Context, username string) (*domain.SysOpr, error)
	Update(ctx context.Context, opr *domain.SysOpr) error
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Level    string `json:"level"`
}

func (h *Handler) login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse login request", nil)
	}
	req.Username = strings.TrimSpace(req.Username)

	opr, err := h.operators.GetByUsername(c.Request().Context(), req.Username)
	if err != nil || opr == nil || opr.Status == common.DISABLED {
		return fail(c, http.StatusUnauthorized, "AUTH_FAILED", "Invalid username or password", nil)
	}
	if opr.Password != common.Sha256HashWithSalt(req.Password, common.GetSecretSalt()) {
		return fail(c, http.StatusUnauthorized, "AUTH_FAILED", "Invalid username or password", nil)
	}

	token, err := webserver.IssueToken(h.cfg, opr.ID, opr.Username, opr.Level)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "TOKEN_ERROR", "Failed to issue token", nil)
	}

	opr.LastLogin = time.Now()
	if err := h.operators.Update(c.Request().Context(), opr); err != nil {
		zap.L().Warn("failed to stamp operator login", zap.String("username", opr.Username), zap.Error(err))
	}

	zap.L().Info("operator logged in", zap.String("username", opr.Username))
	return ok(c, loginResponse{Token: token, Username: opr.Username, Level: opr.Level})
}

// GormOperatorStore is the GORM implementation of OperatorStore
type GormOperatorStore struct {
	DB *gorm.DB
}

func NewGormOperatorStore(db *gorm.DB) *GormOperatorStore {
	return &GormOperatorStore{DB: db}
}

func (s *GormOperatorStore) GetByUsername(ctx context.Context, username string) (*domain.SysOpr, error) {
	var opr domain.SysOpr
	err := s.DB.WithContext(ctx).Where("username = ?", username).First(&opr).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &opr, nil
}

func (s *GormOperatorStore) Update(ctx context.Context, opr *domain.SysOpr) error {
	opr.UpdatedAt = time.Now()
	return s.DB.WithContext(ctx).Save(opr).Error
}

// MemoryOperatorStore keeps operators in memory for the demo mode and
// tests.
type MemoryOperatorStore struct {
	mu   sync.RWMutex
	oprs map[string]*domain.SysOpr
}

func NewMemoryOperatorStore(seed ...*domain.SysOpr) *MemoryOperatorStore {
	s := &MemoryOperatorStore{oprs: make(map[string]*domain.SysOpr)}
	for _, o := range seed {
		cp := *o
		s.oprs[o.Username] = &cp
	}
	return s
}

func (s *MemoryOperatorStore) GetByUsername(ctx context.Context, username string) (*domain.SysOpr, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	opr, exists := s.oprs[username]
	if !exists {
		return nil, nil
	}
	cp := *opr
	return &cp, nil
}

func (s *MemoryOperatorStore) Update(ctx context.Context, opr *domain.SysOpr) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *opr
	s.oprs[opr.Username] = &cp
	return nil
}
