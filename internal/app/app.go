// Package app owns the application container: logging, database,
// repository wiring, seeders and background jobs. Everything else gets
// its dependencies from here.
package app

import (
	"os"
	"time"
	_ "time/tzdata"

	"github.com/asaskevich/EventBus"
	"github.com/robfig/cron/v3"
	"github.com/talkincode/eazybuy/config"
	"github.com/talkincode/eazybuy/internal/adminapi"
	"github.com/talkincode/eazybuy/internal/cart"
	"github.com/talkincode/eazybuy/internal/catalog"
	"github.com/talkincode/eazybuy/internal/checkout"
	"github.com/talkincode/eazybuy/internal/customers"
	"github.com/talkincode/eazybuy/internal/domain"
	"github.com/talkincode/eazybuy/internal/email"
	"github.com/talkincode/eazybuy/internal/inventory"
	"github.com/talkincode/eazybuy/internal/orders"
	"github.com/talkincode/eazybuy/internal/payment"
	"github.com/talkincode/eazybuy/internal/prefs"
	"github.com/talkincode/eazybuy/internal/pricing"
	"github.com/talkincode/eazybuy/pkg/metrics"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm"
)

type Application struct {
	appConfig     *config.AppConfig
	gormDB        *gorm.DB
	sched         *cron.Cron
	configManager *ConfigManager
	bus           EventBus.Bus
	prefStore     *prefs.Store

	products      catalog.ProductRepository
	ledger        *inventory.Service
	discounts     pricing.DiscountRepository
	discountAdmin pricing.AdminRepository
	carts         cart.Repository
	wishlist      cart.WishlistRepository
	orders        orders.Repository
	accounts      *customers.Service
	operators     adminapi.OperatorStore
	reconciler    *cart.Reconciler
	mailer        *email.Service
	payments      payment.Client
	checkout      *checkout.Service
}

// Ensure Application implements the provider interfaces
var (
	_ DBProvider            = (*Application)(nil)
	_ ConfigProvider        = (*Application)(nil)
	_ SchedulerProvider     = (*Application)(nil)
	_ ConfigManagerProvider = (*Application)(nil)
)

func NewApplication(appConfig *config.AppConfig) *Application {
	return &Application{appConfig: appConfig}
}

func (a *Application) Config() *config.AppConfig {
	return a.appConfig
}

func (a *Application) DB() *gorm.DB {
	return a.gormDB
}

// OverrideDB replaces the application's database handle (used in tests).
func (a *Application) OverrideDB(db *gorm.DB) {
	a.gormDB = db
}

func (a *Application) Init(cfg *config.AppConfig) {
	loc, err := time.LoadLocation(cfg.System.Location)
	if err != nil {
		zap.S().Error("timezone config error")
	} else {
		time.Local = loc
	}

	a.initLogger(cfg)

	if err := metrics.InitMetrics(cfg.System.Workdir); err != nil {
		zap.S().Warn("Failed to initialize metrics:", err)
	}

	a.bus = EventBus.New()

	if cfg.Database.Type == "memory" {
		// demo mode: everything lives in process memory
		a.wireMemory()
		zap.L().Warn("running in demo mode, no data will be persisted")
	} else {
		if cfg.Database.Type == "" {
			cfg.Database.Type = "postgres"
		}
		a.gormDB = getDatabase(cfg.Database)
		zap.S().Infof("Database connection successful, type: %s", cfg.Database.Type)

		if err := a.MigrateDB(false); err != nil {
			zap.S().Errorf("database migration failed: %v", err)
		}
		a.wireGorm()

		// wait for database initialization to complete
		go func() {
			time.Sleep(3 * time.Second)
			a.checkSuper()
			a.checkSettings()
			a.checkDemoCatalog()
		}()
	}

	a.configManager = NewConfigManager(a)

	a.prefStore, err = prefs.NewStore(cfg.GetDataDir())
	if err != nil {
		zap.S().Errorf("failed to open prefs store: %v", err)
	}

	a.mailer, err = email.NewService(cfg.Smtp)
	if err != nil {
		zap.S().Errorf("failed to initialize mail service: %v", err)
	}
	a.payments = payment.NewClient(cfg.Payment)

	a.reconciler = cart.NewReconciler(catalog.NewStockView(a.products, a.ledger))
	a.checkout = checkout.NewService(
		a.carts, a.reconciler, pricing.NewEngine(a.discounts), a.discounts,
		a.ledger, a.orders, a.payments, a.mailer,
		checkout.Pricing{
			BaseShipping:     cfg.Store.BaseShipping,
			FreeShippingOver: cfg.Store.FreeShippingOver,
			TaxRate:          cfg.Store.TaxRate,
			Currency:         cfg.Store.Currency,
		},
	)

	a.initJob()
}

func (a *Application) initLogger(cfg *config.AppConfig) {
	var zapConfig zap.Config
	if cfg.Logger.Mode == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}

	var logger *zap.Logger
	if cfg.Logger.FileEnable {
		lumberJackLogger := &lumberjack.Logger{
			Filename:   cfg.Logger.Filename,
			MaxSize:    64,
			MaxBackups: 7,
			MaxAge:     7,
			Compress:   false,
		}

		core := zapcore.NewTee(
			zapcore.NewCore(
				zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
				zapcore.AddSync(lumberJackLogger),
				zapConfig.Level,
			),
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
				zapcore.AddSync(os.Stdout),
				zapConfig.Level,
			),
		)
		logger = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	} else {
		var err error
		logger, err = zapConfig.Build(zap.AddCaller(), zap.AddCallerSkip(1))
		if err != nil {
			panic(err)
		}
	}

	zap.ReplaceGlobals(logger)
}

func (a *Application) wireGorm() {
	a.products = catalog.NewGormProductRepository(a.gormDB)
	a.ledger = inventory.NewService(inventory.NewGormRepository(a.gormDB), a.products, a.bus)
	a.discounts = pricing.NewGormDiscountRepository(a.gormDB)
	a.discountAdmin = pricing.NewGormAdminRepository(a.gormDB)
	a.carts = cart.NewGormRepository(a.gormDB)
	a.wishlist = cart.NewGormWishlistRepository(a.gormDB)
	a.orders = orders.NewGormRepository(a.gormDB)
	a.accounts = customers.NewService(customers.NewGormRepository(a.gormDB))
	a.operators = adminapi.NewGormOperatorStore(a.gormDB)
}

func (a *Application) wireMemory() {
	products := catalog.NewMemoryProductRepository()
	discounts := pricing.NewMemoryDiscountRepository()
	a.products = products
	a.ledger = inventory.NewService(inventory.NewMemoryRepository(), products, a.bus)
	a.discounts = discounts
	a.discountAdmin = pricing.NewMemoryAdminRepository(discounts)
	a.carts = cart.NewMemoryRepository()
	a.wishlist = cart.NewMemoryWishlistRepository()
	a.orders = orders.NewMemoryRepository()
	a.accounts = customers.NewService(customers.NewMemoryRepository())
	a.operators = adminapi.NewMemoryOperatorStore(demoOperator())
	a.seedDemoData()
}

func (a *Application) MigrateDB(track bool) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
				zap.S().Error(e.Error())
			}
		}
	}()
	if track {
		if err := a.gormDB.Debug().Migrator().AutoMigrate(domain.Tables...); err != nil {
			zap.S().Error(err)
		}
	} else {
		if err := a.gormDB.Migrator().AutoMigrate(domain.Tables...); err != nil {
			zap.S().Error(err)
		}
	}
	return nil
}

func (a *Application) DropAll() {
	_ = a.gormDB.Migrator().DropTable(domain.Tables...)
}

func (a *Application) InitDb() {
	_ = a.gormDB.Migrator().DropTable(domain.Tables...)
	if err := a.gormDB.Migrator().AutoMigrate(domain.Tables...); err != nil {
		zap.S().Error(err)
	}
}

// ConfigMgr returns the configuration manager
func (a *Application) ConfigMgr() *ConfigManager {
	return a.configManager
}

// Scheduler returns the cron scheduler
func (a *Application) Scheduler() *cron.Cron {
	return a.sched
}

func (a *Application) Bus() EventBus.Bus                       { return a.bus }
func (a *Application) Prefs() *prefs.Store                     { return a.prefStore }
func (a *Application) Products() catalog.ProductRepository     { return a.products }
func (a *Application) Ledger() *inventory.Service              { return a.ledger }
func (a *Application) Discounts() pricing.DiscountRepository   { return a.discounts }
func (a *Application) DiscountAdmin() pricing.AdminRepository  { return a.discountAdmin }
func (a *Application) Carts() cart.Repository                  { return a.carts }
func (a *Application) Wishlist() cart.WishlistRepository       { return a.wishlist }
func (a *Application) Orders() orders.Repository               { return a.orders }
func (a *Application) Accounts() *customers.Service            { return a.accounts }
func (a *Application) Operators() adminapi.OperatorStore       { return a.operators }
func (a *Application) Reconciler() *cart.Reconciler            { return a.reconciler }
func (a *Application) Mailer() *email.Service                  { return a.mailer }
func (a *Application) Payments() payment.Client                { return a.payments }
func (a *Application) Checkout() *checkout.Service             { return a.checkout }

// Release releases application resources
func (a *Application) Release() {
	if a.sched != nil {
		a.sched.Stop()
	}
	if a.mailer != nil {
		a.mailer.Close()
	}
	if a.prefStore != nil {
		_ = a.prefStore.Close()
	}
	_ = metrics.Close()
	_ = zap.L().Sync()
}
