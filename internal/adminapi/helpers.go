// Package adminapi is the admin console REST surface: catalog and
// discount management, the inventory ledger, orders and the dashboard.
// Every route requires an operator token except the login endpoint.
package adminapi

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/talkincode/eazybuy/config"
	"github.com/talkincode/eazybuy/internal/catalog"
	"github.com/talkincode/eazybuy/internal/checkout"
	"github.com/talkincode/eazybuy/internal/customers"
	"github.com/talkincode/eazybuy/internal/inventory"
	"github.com/talkincode/eazybuy/internal/orders"
	"github.com/talkincode/eazybuy/internal/pricing"
	"github.com/talkincode/eazybuy/internal/webserver"
)

// Handler carries the console's dependencies.
type Handler struct {
	cfg       *config.AppConfig
	products  catalog.ProductRepository
	ledger    *inventory.Service
	discounts pricing.AdminRepository
	orders    orders.Repository
	checkout  *checkout.Service
	customers customers.Repository
	operators OperatorStore
}

func NewHandler(
	cfg *config.AppConfig,
	products catalog.ProductRepository,
	ledger *inventory.Service,
	discounts pricing.AdminRepository,
	orderRepo orders.Repository,
	checkoutSvc *checkout.Service,
	customerRepo customers.Repository,
	operators OperatorStore,
) *Handler {
	return &Handler{
		cfg:       cfg,
		products:  products,
		ledger:    ledger,
		discounts: discounts,
		orders:    orderRepo,
		checkout:  checkoutSvc,
		customers: customerRepo,
		operators: operators,
	}
}

// Register mounts the console routes. The login endpoint goes on the
// public group; everything else on the operator-guarded admin group.
func (h *Handler) Register(public, admin *echo.Group) {
	public.POST("/admin/login", h.login)

	admin.GET("/products", h.listProducts)
	admin.GET("/products/export", h.exportProducts)
	admin.GET("/products/categories", h.listCategories)
	admin.GET("/products/:id", h.getProduct)
	admin.POST("/products", h.createProduct)
	admin.PUT("/products/:id", h.updateProduct)
	admin.DELETE("/products/:id", h.deleteProduct)

	admin.GET("/discounts", h.listDiscounts)
	admin.GET("/discounts/:id", h.getDiscount)
	admin.POST("/discounts", h.createDiscount)
	admin.PUT("/discounts/:id", h.updateDiscount)
	admin.DELETE("/discounts/:id", h.deleteDiscount)

	admin.GET("/inventory/:id", h.getInventory)
	admin.PUT("/inventory/:id/stock", h.updateStock)
	admin.GET("/inventory/transactions", h.listTransactions)
	admin.GET("/inventory/transactions/export", h.exportTransactions)
	admin.GET("/inventory/lowstock", h.lowStock)

	admin.GET("/orders", h.listOrders)
	admin.GET("/orders/:order_no", h.getOrder)
	admin.PUT("/orders/:order_no/status", h.updateOrderStatus)
	admin.POST("/orders/:order_no/cancel", h.cancelOrder)

	admin.GET("/customers", h.listCustomers)

	admin.GET("/dashboard", h.dashboard)
}

func ok(c echo.Context, data interface{}) error {
	return webserver.OK(c, data)
}

func fail(c echo.Context, status int, code, msg string, detail interface{}) error {
	return webserver.Fail(c, status, code, msg, detail)
}

func paged(c echo.Context, items interface{}, total int64, page, pageSize int) error {
	return webserver.Paged(c, items, total, page, pageSize)
}

// parsePagination reads page/perPage query params with sane bounds.
func parsePagination(c echo.Context) (int, int) {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(c.QueryParam("perPage"))
	if perPage < 1 || perPage > 500 {
		perPage = 20
	}
	return page, perPage
}

func paramInt64(c echo.Context, name string) (int64, bool) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	return v, err == nil
}
