package adminapi

import (
	"net/http"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/labstack/echo/v4"
	"github.com/talkincode/eazybuy/internal/catalog"
	"github.com/talkincode/eazybuy/internal/domain"
)

type productPayload struct {
	Name              string  `json:"name"`
	Description       string  `json:"description"`
	Category          string  `json:"category"`
	Price             float64 `json:"price"`
	OriginalPrice     float64 `json:"original_price"`
	Image             string  `json:"image"`
	Quantity          int     `json:"quantity"`
	LowStockThreshold int     `json:"low_stock_threshold"`
	InStock           bool    `json:"in_stock"`
	OutOfOrder        bool    `json:"out_of_order"`
}

func (h *Handler) listProducts(c echo.Context) error {
	page, perPage := parsePagination(c)
	filter := catalog.Filter{
		Query:       strings.TrimSpace(c.QueryParam("q")),
		Category:    strings.TrimSpace(c.QueryParam("category")),
		InStockOnly: c.QueryParam("in_stock") == "true",
		Sort:        strings.TrimSpace(c.QueryParam("sort")),
		Order:       strings.ToUpper(strings.TrimSpace(c.QueryParam("order"))),
		Page:        page,
		PageSize:    perPage,
	}
	rows, total, err := h.products.List(c.Request().Context(), filter)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query products", err.Error())
	}
	return paged(c, rows, total, page, perPage)
}

func (h *Handler) getProduct(c echo.Context) error {
	id, valid := paramInt64(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	p, err := h.products.GetByID(c.Request().Context(), id)
	if err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Product not found", nil)
	}
	return ok(c, p)
}

func (h *Handler) listCategories(c echo.Context) error {
	cats, err := h.products.Categories(c.Request().Context())
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query categories", err.Error())
	}
	return ok(c, cats)
}

func (h *Handler) createProduct(c echo.Context) error {
	var payload productPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse product", err.Error())
	}
	payload.Name = strings.TrimSpace(payload.Name)
	if payload.Name == "" {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Name is required", nil)
	}
	if payload.Price < 0 {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Price must be >= 0", nil)
	}
	if payload.Quantity < 0 {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Quantity must be >= 0", nil)
	}

	ctx := c.Request().Context()
	p := domain.Product{
		Name:              payload.Name,
		Description:       payload.Description,
		Category:          strings.TrimSpace(payload.Category),
		Price:             payload.Price,
		OriginalPrice:     payload.OriginalPrice,
		Image:             strings.TrimSpace(payload.Image),
		Quantity:          payload.Quantity,
		LowStockThreshold: payload.LowStockThreshold,
		InStock:           payload.Quantity > 0,
		OutOfOrder:        payload.OutOfOrder,
	}
	if err := h.products.Create(ctx, &p); err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create product", err.Error())
	}
	if err := h.ledger.EnsureItem(ctx, p.ID, payload.Quantity, payload.LowStockThreshold); err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create inventory row", err.Error())
	}
	return ok(c, p)
}

func (h *Handler) updateProduct(c echo.Context) error {
	id, valid := paramInt64(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	ctx := c.Request().Context()
	p, err := h.products.GetByID(ctx, id)
	if err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Product not found", nil)
	}

	var payload productPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse product", err.Error())
	}
	payload.Name = strings.TrimSpace(payload.Name)
	if payload.Name == "" {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Name is required", nil)
	}
	if payload.Price < 0 {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Price must be >= 0", nil)
	}

	// stock quantity is owned by the inventory ledger; the product
	// endpoint edits catalog fields only
	p.Name = payload.Name
	p.Description = payload.Description
	p.Category = strings.TrimSpace(payload.Category)
	p.Price = payload.Price
	p.OriginalPrice = payload.OriginalPrice
	p.Image = strings.TrimSpace(payload.Image)
	p.LowStockThreshold = payload.LowStockThreshold
	p.OutOfOrder = payload.OutOfOrder

	if err := h.products.Update(ctx, p); err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update product", err.Error())
	}
	return ok(c, p)
}

func (h *Handler) deleteProduct(c echo.Context) error {
	id, valid := paramInt64(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	if err := h.products.Delete(c.Request().Context(), id); err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete product", err.Error())
	}
	return ok(c, map[string]interface{}{"id": id})
}

type productCsvRow struct {
	ID       int64   `csv:"id"`
	Name     string  `csv:"name"`
	Category string  `csv:"category"`
	Price    float64 `csv:"price"`
	Quantity int     `csv:"quantity"`
	InStock  bool    `csv:"in_stock"`
}

func (h *Handler) exportProducts(c echo.Context) error {
	rows, _, err := h.products.List(c.Request().Context(), catalog.Filter{PageSize: 500})
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query products", err.Error())
	}
	out := make([]productCsvRow, 0, len(rows))
	for _, p := range rows {
		out = append(out, productCsvRow{
			ID: p.ID, Name: p.Name, Category: p.Category,
			Price: p.Price, Quantity: p.Quantity, InStock: p.InStock,
		})
	}
	data, err := gocsv.MarshalString(&out)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "EXPORT_ERROR", "Failed to render CSV", err.Error())
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="products.csv"`)
	return c.Blob(http.StatusOK, "text/csv", []byte(data))
}
