package storeapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/talkincode/eazybuy/internal/checkout"
	"github.com/talkincode/eazybuy/internal/orders"
	"github.com/talkincode/eazybuy/internal/webserver"
)

type quoteRequest struct {
	Codes []string `json:"codes"`
}

func (h *Handler) quote(c echo.Context) error {
	owner, err := h.ownerKey(c)
	if err != nil {
		return err
	}
	var req quoteRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse quote request", nil)
	}
	q, report, err := h.checkout.QuoteCart(c.Request().Context(), owner, req.Codes)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "QUOTE_FAILED", "Failed to price the cart", nil)
	}
	return ok(c, map[string]interface{}{
		"quote":   q,
		"updated": report.Updated,
		"removed": report.Removed,
	})
}

type placeOrderRequest struct {
	Email           string   `json:"email"`
	Name            string   `json:"name"`
	ShippingAddress string   `json:"shipping_address"`
	Codes           []string `json:"codes"`
}

func (h *Handler) placeOrder(c echo.Context) error {
	owner, err := h.ownerKey(c)
	if err != nil {
		return err
	}
	var req placeOrderRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse order", nil)
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Email is required", nil)
	}

	res, err := h.checkout.PlaceOrder(c.Request().Context(), checkout.PlaceOrderInput{
		OwnerKey:        owner,
		CustomerID:      webserver.CurrentUid(c),
		Email:           req.Email,
		Name:            req.Name,
		ShippingAddress: req.ShippingAddress,
		Codes:           req.Codes,
	})
	if err != nil {
		switch {
		case errors.Is(err, checkout.ErrEmptyCart):
			return fail(c, http.StatusBadRequest, "EMPTY_CART", "Your cart is empty", nil)
		case errors.Is(err, checkout.ErrPaymentDeclined):
			return fail(c, http.StatusPaymentRequired, "PAYMENT_DECLINED",
				"Payment was declined; your cart is unchanged", nil)
		default:
			return fail(c, http.StatusInternalServerError, "CHECKOUT_FAILED", "Failed to place order", nil)
		}
	}
	return ok(c, map[string]interface{}{
		"order":   res.Order,
		"updated": res.Report.Updated,
		"removed": res.Report.Removed,
	})
}

func (h *Handler) myOrders(c echo.Context) error {
	owner, err := h.ownerKey(c)
	if err != nil {
		return err
	}
	rows, total, err := h.orders.List(c.Request().Context(), orders.Filter{OwnerKey: owner, PageSize: 50})
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load orders", nil)
	}
	return paged(c, rows, total, 1, 50)
}

func (h *Handler) myOrder(c echo.Context) error {
	owner, err := h.ownerKey(c)
	if err != nil {
		return err
	}
	o, err := h.orders.GetByOrderNo(c.Request().Context(), c.Param("order_no"))
	if err != nil || o.OwnerKey != owner {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Order not found", nil)
	}
	return ok(c, o)
}

func (h *Handler) dismissedDiscounts(c echo.Context) error {
	owner, err := h.ownerKey(c)
	if err != nil {
		return err
	}
	codes, err := h.prefs.DismissedDiscounts(owner)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "STORAGE_ERROR", "Failed to load preferences", nil)
	}
	return ok(c, codes)
}

func (h *Handler) dismissDiscount(c echo.Context) error {
	owner, err := h.ownerKey(c)
	if err != nil {
		return err
	}
	code := strings.TrimSpace(c.Param("code"))
	if code == "" {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Code is required", nil)
	}
	if err := h.prefs.DismissDiscount(owner, code); err != nil {
		return fail(c, http.StatusInternalServerError, "STORAGE_ERROR", "Failed to save preference", nil)
	}
	return ok(c, map[string]string{"code": strings.ToUpper(code)})
}
