package app

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/talkincode/eazybuy/internal/domain"
	"github.com/talkincode/eazybuy/pkg/common"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (a *Application) checkSuper() {
	const superUsername = "admin"
	const defaultPassword = "eazybuy"

	hashedPassword := common.Sha256HashWithSalt(defaultPassword, common.GetSecretSalt())

	var operator domain.SysOpr
	err := a.gormDB.Where("username = ?", superUsername).First(&operator).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := a.gormDB.Create(&domain.SysOpr{
			ID:        common.UUIDint64(),
			Realname:  "administrator",
			Mobile:    "0000",
			Email:     "N/A",
			Username:  superUsername,
			Password:  hashedPassword,
			Level:     "super",
			Status:    common.ENABLED,
			Remark:    "super",
			LastLogin: time.Now(),
		}).Error; err != nil {
			zap.L().Error("failed to create default super admin", zap.Error(err))
		} else {
			zap.L().Info("initialized default super admin account", zap.String("username", superUsername))
		}
		return
	case err != nil:
		zap.L().Error("failed to query super admin", zap.Error(err))
		return
	}

	resetPassword := strings.TrimSpace(operator.Password) == ""
	resetLevel := !strings.EqualFold(operator.Level, "super")
	resetStatus := !strings.EqualFold(operator.Status, common.ENABLED)

	if !resetPassword && !resetLevel && !resetStatus {
		return
	}

	updates := map[string]interface{}{
		"updated_at": time.Now(),
	}
	if resetPassword {
		updates["password"] = hashedPassword
	}
	if resetLevel {
		updates["level"] = "super"
	}
	if resetStatus {
		updates["status"] = common.ENABLED
	}

	if err := a.gormDB.Model(&domain.SysOpr{}).Where("id = ?", operator.ID).Updates(updates).Error; err != nil {
		zap.L().Error("failed to repair super admin account", zap.Error(err))
		return
	}

	zap.L().Warn("repaired default super admin account",
		zap.String("username", superUsername),
		zap.Bool("passwordReset", resetPassword),
		zap.Bool("levelReset", resetLevel),
		zap.Bool("statusEnabled", resetStatus))
}

type settingSchema struct {
	Category    string
	Name        string
	Default     string
	Description string
}

var defaultSettings = []settingSchema{
	{"store", "LowStockAlertEnabled", "true", "Log an alert when available stock drops to the threshold"},
	{"store", "GuestCheckoutEnabled", "true", "Allow checkout without an account"},
	{"store", "OprLogRetentionDays", "365", "How long operator audit log rows are kept"},
	{"store", "ReservationTTLMinutes", "15", "Idle minutes before a stranded stock hold is released"},
	{"mail", "OrderConfirmationEnabled", "true", "Send an email when an order is paid"},
}

func (a *Application) checkSettings() {
	for sortid, schema := range defaultSettings {
		var count int64
		a.gormDB.Model(&domain.SysConfig{}).
			Where("type = ? and name = ?", schema.Category, schema.Name).
			Count(&count)
		if count == 0 {
			a.gormDB.Create(&domain.SysConfig{
				ID:     common.UUIDint64(),
				Sort:   sortid,
				Type:   schema.Category,
				Name:   schema.Name,
				Value:  schema.Default,
				Remark: schema.Description,
			})
			zap.L().Info("initialized config",
				zap.String("key", schema.Category+"."+schema.Name),
				zap.String("default", schema.Default))
		}
	}
}

func demoProducts() []demoProduct {
	return []demoProduct{
		{domain.Product{Name: "Wireless Headphones", Description: "Over-ear, noise cancelling", Category: "electronics", Price: 199.99, Image: "/img/headphones.jpg", Rating: 4.6, ReviewCount: 212}, 25, 5},
		{domain.Product{Name: "Mechanical Keyboard", Description: "Hot-swappable switches", Category: "electronics", Price: 89.99, Image: "/img/keyboard.jpg", Rating: 4.4, ReviewCount: 98}, 40, 5},
		{domain.Product{Name: "Espresso Grinder", Description: "Conical burr grinder", Category: "kitchen", Price: 149.50, Image: "/img/grinder.jpg", Rating: 4.8, ReviewCount: 54}, 12, 3},
		{domain.Product{Name: "Travel Mug", Description: "Keeps drinks hot for 8 hours", Category: "kitchen", Price: 24.95, Image: "/img/mug.jpg", Rating: 4.1, ReviewCount: 330}, 120, 10},
		{domain.Product{Name: "Go In Practice", Description: "Paperback, second edition", Category: "books", Price: 39.99, Image: "/img/book.jpg", Rating: 4.7, ReviewCount: 77}, 60, 5},
		{domain.Product{Name: "Linen Notebook", Description: "Dot grid, 192 pages", Category: "books", Price: 12.50, Image: "/img/notebook.jpg", Rating: 4.3, ReviewCount: 41}, 200, 20},
	}
}

type demoProduct struct {
	product   domain.Product
	quantity  int
	threshold int
}

func demoDiscounts() []*domain.Discount {
	return []*domain.Discount{
		{
			Code: "WELCOME10", Description: "10% off your first order",
			Type: domain.DiscountPercentage, Value: 10,
			MinimumOrderAmount: 25, MaximumDiscountAmount: 50, IsActive: true,
		},
		{
			Code: "SAVE20", Description: "$20 off orders over $100",
			Type: domain.DiscountFixedAmount, Value: 20,
			MinimumOrderAmount: 100, IsActive: true,
		},
		{
			Code: "FREESHIP", Description: "Free shipping on any order",
			Type: domain.DiscountFreeShipping, IsStackable: true, IsActive: true,
		},
		{
			Code: "B2G1BOOKS", Description: "Buy 2 get 1 free on books",
			Type: domain.DiscountBuyXGetY, BuyQuantity: 2, GetQuantity: 1,
			ApplicableCategories: "books", IsActive: true,
		},
	}
}

// checkDemoCatalog seeds the catalog on an empty database so a fresh
// install has something to sell.
func (a *Application) checkDemoCatalog() {
	var count int64
	a.gormDB.Model(&domain.Product{}).Count(&count)
	if count > 0 {
		return
	}

	ctx := context.Background()
	for _, dp := range demoProducts() {
		p := dp.product
		p.Quantity = dp.quantity
		p.LowStockThreshold = dp.threshold
		p.InStock = dp.quantity > 0
		if err := a.products.Create(ctx, &p); err != nil {
			zap.L().Error("failed to seed product", zap.String("name", p.Name), zap.Error(err))
			continue
		}
		if err := a.ledger.EnsureItem(ctx, p.ID, dp.quantity, dp.threshold); err != nil {
			zap.L().Error("failed to seed inventory row", zap.String("name", p.Name), zap.Error(err))
		}
	}
	for _, d := range demoDiscounts() {
		if err := a.discountAdmin.Create(ctx, d); err != nil {
			zap.L().Error("failed to seed discount", zap.String("code", d.Code), zap.Error(err))
		}
	}
	zap.L().Info("seeded demo catalog", zap.Int("products", len(demoProducts())))
}

// seedDemoData fills the in-memory stores for the no-database demo mode.
func (a *Application) seedDemoData() {
	ctx := context.Background()
	for _, dp := range demoProducts() {
		p := dp.product
		p.Quantity = dp.quantity
		p.LowStockThreshold = dp.threshold
		p.InStock = dp.quantity > 0
		_ = a.products.Create(ctx, &p)
		_ = a.ledger.EnsureItem(ctx, p.ID, dp.quantity, dp.threshold)
	}
	for _, d := range demoDiscounts() {
		_ = a.discountAdmin.Create(ctx, d)
	}
}

func demoOperator() *domain.SysOpr {
	return &domain.SysOpr{
		ID:       common.UUIDint64(),
		Realname: "administrator",
		Username: "admin",
		Password: common.Sha256HashWithSalt("eazybuy", common.GetSecretSalt()),
		Level:    "super",
		Status:   common.ENABLED,
	}
}
