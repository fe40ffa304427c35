package storeapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/talkincode/eazybuy/internal/cart"
	"github.com/talkincode/eazybuy/internal/domain"
)

type cartView struct {
	Items     []domain.CartItem `json:"items"`
	ItemCount int               `json:"item_count"`
	Subtotal  float64           `json:"subtotal"`
	// Notice carries informational adjustments: a clamped add, removed
	// lines after revalidation. Empty means the request did exactly what
	// was asked.
	Notice string `json:"notice,omitempty"`
}

func cartResponse(items []domain.CartItem, notice string) cartView {
	return cartView{
		Items:     items,
		ItemCount: cart.ItemCount(items),
		Subtotal:  cart.Subtotal(items),
		Notice:    notice,
	}
}

func (h *Handler) getCart(c echo.Context) error {
	owner, err := h.ownerKey(c)
	if err != nil {
		return err
	}
	cc, err := h.carts.GetByOwner(c.Request().Context(), owner)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load cart", nil)
	}
	return ok(c, cartResponse(cc.Items, ""))
}

type addItemRequest struct {
	ProductID int64 `json:"product_id,string"`
	Quantity  int   `json:"quantity"`
}

func (h *Handler) addCartItem(c echo.Context) error {
	owner, err := h.ownerKey(c)
	if err != nil {
		return err
	}
	var req addItemRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse cart item", nil)
	}
	if req.Quantity <= 0 {
		req.Quantity = 1
	}

	ctx := c.Request().Context()
	p, err := h.products.GetByID(ctx, req.ProductID)
	if err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Product not found", nil)
	}
	cc, err := h.carts.GetByOwner(ctx, owner)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load cart", nil)
	}

	res := h.reconciler.Add(cc.Items, *p, req.Quantity)
	if res.Rejected != "" {
		return fail(c, http.StatusConflict, "UNAVAILABLE", res.Rejected, nil)
	}
	cc.Items = res.Items
	if err := h.carts.Save(ctx, cc); err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to save cart", nil)
	}

	notice := ""
	if res.Clamped {
		notice = "Quantity was adjusted to the stock we have on hand"
	}
	return ok(c, cartResponse(cc.Items, notice))
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) updateCartItem(c echo.Context) error {
	owner, err := h.ownerKey(c)
	if err != nil {
		return err
	}
	productID, err := strconv.ParseInt(c.Param("product_id"), 10, 64)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	var req updateItemRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse quantity", nil)
	}

	ctx := c.Request().Context()
	cc, err := h.carts.GetByOwner(ctx, owner)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load cart", nil)
	}
	before := cart.ItemCount(cc.Items)
	cc.Items = h.reconciler.UpdateQuantity(cc.Items, productID, req.Quantity)
	if err := h.carts.Save(ctx, cc); err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to save cart", nil)
	}

	notice := ""
	if req.Quantity > 0 && cart.ItemCount(cc.Items) < before+req.Quantity {
		notice = "Quantity was adjusted to the stock we have on hand"
	}
	return ok(c, cartResponse(cc.Items, notice))
}

func (h *Handler) removeCartItem(c echo.Context) error {
	owner, err := h.ownerKey(c)
	if err != nil {
		return err
	}
	productID, err := strconv.ParseInt(c.Param("product_id"), 10, 64)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	ctx := c.Request().Context()
	cc, err := h.carts.GetByOwner(ctx, owner)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load cart", nil)
	}
	cc.Items = h.reconciler.UpdateQuantity(cc.Items, productID, 0)
	if err := h.carts.Save(ctx, cc); err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to save cart", nil)
	}
	return ok(c, cartResponse(cc.Items, ""))
}

// validateCart reconciles the cart against current stock and persists
// any correction, mirroring what checkout will do.
func (h *Handler) validateCart(c echo.Context) error {
	owner, err := h.ownerKey(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	cc, err := h.carts.GetByOwner(ctx, owner)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load cart", nil)
	}
	report := h.reconciler.ValidateStock(cc.Items)
	if report.Changed() {
		cc.Items = report.Valid
		if err := h.carts.Save(ctx, cc); err != nil {
			return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to save cart", nil)
		}
	}
	notice := ""
	if report.Changed() {
		notice = "Some items were adjusted or removed because stock changed"
	}
	return ok(c, map[string]interface{}{
		"cart":    cartResponse(cc.Items, notice),
		"updated": report.Updated,
		"removed": report.Removed,
	})
}

func (h *Handler) listWishlist(c echo.Context) error {
	owner, err := h.ownerKey(c)
	if err != nil {
		return err
	}
	rows, err := h.wishlist.List(c.Request().Context(), owner)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load wishlist", nil)
	}
	return ok(c, rows)
}

func (h *Handler) addWishlist(c echo.Context) error {
	owner, err := h.ownerKey(c)
	if err != nil {
		return err
	}
	productID, err := strconv.ParseInt(c.Param("product_id"), 10, 64)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	ctx := c.Request().Context()
	if _, err := h.products.GetByID(ctx, productID); err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Product not found", nil)
	}
	if err := h.wishlist.Add(ctx, owner, productID); err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to save wishlist", nil)
	}
	return ok(c, map[string]interface{}{"product_id": productID})
}

func (h *Handler) removeWishlist(c echo.Context) error {
	owner, err := h.ownerKey(c)
	if err != nil {
		return err
	}
	productID, err := strconv.ParseInt(c.Param("product_id"), 10, 64)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	if err := h.wishlist.Remove(c.Request().Context(), owner, productID); err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update wishlist", nil)
	}
	return ok(c, map[string]interface{}{"product_id": productID})
}
