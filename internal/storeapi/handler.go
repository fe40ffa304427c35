// Package storeapi is the shopper-facing REST surface: catalog
// browsing, carts, checkout and accounts. Signed-in shoppers are
// identified by their token; guests by a client-held guest key, so a
// cart survives until the browser forgets it.
package storeapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/talkincode/eazybuy/config"
	"github.com/talkincode/eazybuy/internal/cart"
	"github.com/talkincode/eazybuy/internal/catalog"
	"github.com/talkincode/eazybuy/internal/checkout"
	"github.com/talkincode/eazybuy/internal/customers"
	"github.com/talkincode/eazybuy/internal/email"
	"github.com/talkincode/eazybuy/internal/inventory"
	"github.com/talkincode/eazybuy/internal/orders"
	"github.com/talkincode/eazybuy/internal/prefs"
	"github.com/talkincode/eazybuy/internal/webserver"
)

// HeaderGuestKey carries the anonymous shopper identity.
const HeaderGuestKey = "X-Guest-Key"

// Handler carries the storefront's dependencies.
type Handler struct {
	cfg        *config.AppConfig
	products   catalog.ProductRepository
	ledger     *inventory.Service
	reconciler *cart.Reconciler
	carts      cart.Repository
	wishlist   cart.WishlistRepository
	checkout   *checkout.Service
	orders     orders.Repository
	accounts   *customers.Service
	mail       *email.Service
	prefs      *prefs.Store
}

func NewHandler(
	cfg *config.AppConfig,
	products catalog.ProductRepository,
	ledger *inventory.Service,
	reconciler *cart.Reconciler,
	carts cart.Repository,
	wishlist cart.WishlistRepository,
	checkoutSvc *checkout.Service,
	orderRepo orders.Repository,
	accounts *customers.Service,
	mail *email.Service,
	prefStore *prefs.Store,
) *Handler {
	return &Handler{
		cfg:        cfg,
		products:   products,
		ledger:     ledger,
		reconciler: reconciler,
		carts:      carts,
		wishlist:   wishlist,
		checkout:   checkoutSvc,
		orders:     orderRepo,
		accounts:   accounts,
		mail:       mail,
		prefs:      prefStore,
	}
}

// Register mounts storefront routes. Account creation and login go on
// the public group; shopper routes on the store group, which admits
// both token holders and guests.
func (h *Handler) Register(public, store *echo.Group) {
	public.POST("/account/register", h.register)
	public.POST("/account/login", h.loginCustomer)
	public.POST("/account/password/forgot", h.forgotPassword)
	public.POST("/account/password/reset", h.resetPassword)
	public.POST("/account/verify", h.verifyAccount)

	store.GET("/products", h.listProducts)
	store.GET("/products/:id", h.getProduct)
	store.GET("/categories", h.listCategories)
	store.GET("/searches", h.recentSearches)

	store.GET("/cart", h.getCart)
	store.POST("/cart/items", h.addCartItem)
	store.PUT("/cart/items/:product_id", h.updateCartItem)
	store.DELETE("/cart/items/:product_id", h.removeCartItem)
	store.POST("/cart/validate", h.validateCart)

	store.GET("/wishlist", h.listWishlist)
	store.POST("/wishlist/:product_id", h.addWishlist)
	store.DELETE("/wishlist/:product_id", h.removeWishlist)

	store.POST("/checkout/quote", h.quote)
	store.POST("/checkout/place", h.placeOrder)
	store.GET("/orders", h.myOrders)
	store.GET("/orders/:order_no", h.myOrder)

	store.GET("/discounts/dismissed", h.dismissedDiscounts)
	store.POST("/discounts/:code/dismiss", h.dismissDiscount)
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

// ownerKey resolves the shopper identity for cart-scoped state: the
// customer id when a token is present, otherwise the guest key the
// client holds.
func (h *Handler) ownerKey(c echo.Context) (string, error) {
	if uid := webserver.CurrentUid(c); uid != 0 {
		return "cus:" + strconv.FormatInt(uid, 10), nil
	}
	key := strings.TrimSpace(c.Request().Header.Get(HeaderGuestKey))
	if key == "" {
		key = strings.TrimSpace(c.QueryParam("guest_key"))
	}
	if key == "" || len(key) > 64 {
		return "", echo.NewHTTPError(http.StatusBadRequest, "missing or invalid guest key")
	}
	return "guest:" + key, nil
}
