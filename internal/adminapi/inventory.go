package adminapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/gocarina/gocsv"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/talkincode/eazybuy/internal/inventory"
	"github.com/talkincode/eazybuy/internal/webserver"
)

type updateStockRequest struct {
	Quantity int    `json:"quantity"`
	Note     string `json:"note"`
	// Force allows setting on-hand stock below the reserved count,
	// which strands existing holds until they release.
	Force bool `json:"force"`
}

func (h *Handler) getInventory(c echo.Context) error {
	id, valid := paramInt64(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	item, err := h.ledger.Get(c.Request().Context(), id)
	if err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Inventory row not found", nil)
	}
	return ok(c, item)
}

func (h *Handler) updateStock(c echo.Context) error {
	id, valid := paramInt64(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	var req updateStockRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse stock update", err.Error())
	}
	if req.Quantity < 0 {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Quantity must be >= 0", nil)
	}

	actor := "admin"
	if claims := webserver.CurrentClaims(c); claims != nil {
		actor = claims.Username
	}

	ctx := c.Request().Context()
	err := h.ledger.UpdateStock(ctx, id, req.Quantity, actor, req.Note, req.Force)
	if err != nil {
		if errors.Is(err, inventory.ErrBelowReserved) {
			return fail(c, http.StatusConflict, "BELOW_RESERVED",
				"Quantity is below the reserved count; retry with force to override", nil)
		}
		if errors.Is(err, inventory.ErrNotFound) {
			return fail(c, http.StatusNotFound, "NOT_FOUND", "Inventory row not found", nil)
		}
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update stock", err.Error())
	}
	item, err := h.ledger.Get(ctx, id)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to reload inventory row", err.Error())
	}
	return ok(c, item)
}

// transactionRange parses optional from/to query params in any common
// date format.
func transactionRange(c echo.Context) (time.Time, time.Time, error) {
	var from, to time.Time
	var err error
	if v := strings.TrimSpace(c.QueryParam("from")); v != "" {
		if from, err = dateparse.ParseAny(v); err != nil {
			return from, to, errors.Wrap(err, "from")
		}
	}
	if v := strings.TrimSpace(c.QueryParam("to")); v != "" {
		if to, err = dateparse.ParseAny(v); err != nil {
			return from, to, errors.Wrap(err, "to")
		}
	}
	return from, to, nil
}

func (h *Handler) listTransactions(c echo.Context) error {
	page, perPage := parsePagination(c)
	productID, _ := strconv.ParseInt(c.QueryParam("product_id"), 10, 64)
	from, to, err := transactionRange(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse date range", err.Error())
	}
	rows, total, err := h.ledger.ListTransactions(c.Request().Context(), productID, from, to, page, perPage)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query transactions", err.Error())
	}
	return paged(c, rows, total, page, perPage)
}

type transactionCsvRow struct {
	ID             int64     `csv:"id"`
	ProductID      int64     `csv:"product_id"`
	Type           string    `csv:"type"`
	Delta          int       `csv:"delta"`
	QuantityBefore int       `csv:"quantity_before"`
	QuantityAfter  int       `csv:"quantity_after"`
	Actor          string    `csv:"actor"`
	Note           string    `csv:"note"`
	CreatedAt      time.Time `csv:"created_at"`
}

func (h *Handler) exportTransactions(c echo.Context) error {
	productID, _ := strconv.ParseInt(c.QueryParam("product_id"), 10, 64)
	from, to, err := transactionRange(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse date range", err.Error())
	}
	rows, _, err := h.ledger.ListTransactions(c.Request().Context(), productID, from, to, 1, 500)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query transactions", err.Error())
	}
	out := make([]transactionCsvRow, 0, len(rows))
	for _, t := range rows {
		out = append(out, transactionCsvRow{
			ID: t.ID, ProductID: t.ProductID, Type: t.Type, Delta: t.Delta,
			QuantityBefore: t.QuantityBefore, QuantityAfter: t.QuantityAfter,
			Actor: t.Actor, Note: t.Note, CreatedAt: t.CreatedAt,
		})
	}
	data, err := gocsv.MarshalString(&out)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "EXPORT_ERROR", "Failed to render CSV", err.Error())
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="inventory_transactions.csv"`)
	return c.Blob(http.StatusOK, "text/csv", []byte(data))
}

func (h *Handler) lowStock(c echo.Context) error {
	rows, err := h.ledger.LowStock(c.Request().Context())
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query low stock", err.Error())
	}
	return ok(c, rows)
}
