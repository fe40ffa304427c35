package storeapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/talkincode/eazybuy/internal/catalog"
	"go.uber.org/zap"
)

type productView struct {
	ID                int64   `json:"id,string"`
	Name              string  `json:"name"`
	Description       string  `json:"description"`
	Category          string  `json:"category"`
	Price             float64 `json:"price"`
	OriginalPrice     float64 `json:"original_price,omitempty"`
	Image             string  `json:"image"`
	Rating            float64 `json:"rating"`
	ReviewCount       int     `json:"review_count"`
	InStock           bool    `json:"in_stock"`
	AvailableQuantity int     `json:"available_quantity"`
}

func (h *Handler) listProducts(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(c.QueryParam("perPage"))
	if perPage < 1 || perPage > 100 {
		perPage = 24
	}
	query := strings.TrimSpace(c.QueryParam("q"))

	filter := catalog.Filter{
		Query:       query,
		Category:    strings.TrimSpace(c.QueryParam("category")),
		InStockOnly: c.QueryParam("in_stock") == "true",
		Sort:        strings.TrimSpace(c.QueryParam("sort")),
		Order:       strings.ToUpper(strings.TrimSpace(c.QueryParam("order"))),
		Page:        page,
		PageSize:    perPage,
	}
	ctx := c.Request().Context()
	rows, total, err := h.products.List(ctx, filter)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query products", nil)
	}

	if query != "" && h.prefs != nil {
		if owner, err := h.ownerKey(c); err == nil {
			if err := h.prefs.RecordSearch(owner, query); err != nil {
				zap.L().Warn("failed to record search", zap.Error(err))
			}
		}
	}

	out := make([]productView, 0, len(rows))
	for _, p := range rows {
		out = append(out, productView{
			ID: p.ID, Name: p.Name, Description: p.Description,
			Category: p.Category, Price: p.Price, OriginalPrice: p.OriginalPrice,
			Image: p.Image, Rating: p.Rating, ReviewCount: p.ReviewCount,
			InStock:           p.Sellable(),
			AvailableQuantity: h.ledger.GetAvailableQuantity(ctx, p.ID),
		})
	}
	return paged(c, out, total, page, perPage)
}

func (h *Handler) getProduct(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	ctx := c.Request().Context()
	p, err := h.products.GetByID(ctx, id)
	if err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Product not found", nil)
	}
	return ok(c, productView{
		ID: p.ID, Name: p.Name, Description: p.Description,
		Category: p.Category, Price: p.Price, OriginalPrice: p.OriginalPrice,
		Image: p.Image, Rating: p.Rating, ReviewCount: p.ReviewCount,
		InStock:           p.Sellable(),
		AvailableQuantity: h.ledger.GetAvailableQuantity(ctx, p.ID),
	})
}

func (h *Handler) listCategories(c echo.Context) error {
	cats, err := h.products.Categories(c.Request().Context())
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query categories", nil)
	}
	return ok(c, cats)
}

func (h *Handler) recentSearches(c echo.Context) error {
	owner, err := h.ownerKey(c)
	if err != nil {
		return err
	}
	queries, err := h.prefs.RecentSearches(owner)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "STORAGE_ERROR", "Failed to load searches", nil)
	}
	return ok(c, queries)
}
