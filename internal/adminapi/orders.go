package adminapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/talkincode/eazybuy/internal/domain"
	"github.com/talkincode/eazybuy/internal/orders"
	"github.com/talkincode/eazybuy/internal/webserver"
)

// allowed order status transitions for the console; cancel has its own
// endpoint so it can restock
var statusTransitions = map[string][]string{
	domain.OrderPaid:      {domain.OrderFulfilled, domain.OrderShipped},
	domain.OrderFulfilled: {domain.OrderShipped},
	domain.OrderShipped:   {domain.OrderDelivered},
}

func (h *Handler) listOrders(c echo.Context) error {
	page, perPage := parsePagination(c)
	filter := orders.Filter{
		Status:   strings.TrimSpace(c.QueryParam("status")),
		OwnerKey: strings.TrimSpace(c.QueryParam("owner_key")),
		Page:     page,
		PageSize: perPage,
	}
	rows, total, err := h.orders.List(c.Request().Context(), filter)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query orders", err.Error())
	}
	return paged(c, rows, total, page, perPage)
}

func (h *Handler) getOrder(c echo.Context) error {
	o, err := h.orders.GetByOrderNo(c.Request().Context(), c.Param("order_no"))
	if err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Order not found", nil)
	}
	return ok(c, o)
}

type orderStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) updateOrderStatus(c echo.Context) error {
	var req orderStatusRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse status update", nil)
	}
	ctx := c.Request().Context()
	o, err := h.orders.GetByOrderNo(ctx, c.Param("order_no"))
	if err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Order not found", nil)
	}

	allowed := false
	for _, next := range statusTransitions[o.Status] {
		if next == req.Status {
			allowed = true
			break
		}
	}
	if !allowed {
		return fail(c, http.StatusConflict, "INVALID_TRANSITION",
			"Cannot move order from "+o.Status+" to "+req.Status, nil)
	}
	if err := h.orders.UpdateStatus(ctx, o.OrderNo, req.Status); err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update order", err.Error())
	}
	o.Status = req.Status
	return ok(c, o)
}

func (h *Handler) cancelOrder(c echo.Context) error {
	actor := "admin"
	if claims := webserver.CurrentClaims(c); claims != nil {
		actor = claims.Username
	}
	if err := h.checkout.CancelOrder(c.Request().Context(), c.Param("order_no"), actor); err != nil {
		return fail(c, http.StatusConflict, "CANCEL_FAILED", err.Error(), nil)
	}
	o, err := h.orders.GetByOrderNo(c.Request().Context(), c.Param("order_no"))
	if err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Order not found", nil)
	}
	return ok(c, o)
}
