package adminapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/talkincode/eazybuy/internal/domain"
	"github.com/talkincode/eazybuy/internal/pricing"
)

var discountTypes = map[string]bool{
	domain.DiscountPercentage:   true,
	domain.DiscountFixedAmount:  true,
	domain.DiscountFreeShipping: true,
	domain.DiscountBuyXGetY:     true,
}

func validateDiscount(d *domain.Discount) string {
	d.Code = strings.ToUpper(strings.TrimSpace(d.Code))
	if d.Code == "" {
		return "Code is required"
	}
	if !discountTypes[d.Type] {
		return "Unknown discount type"
	}
	switch d.Type {
	case domain.DiscountPercentage:
		if d.Value <= 0 || d.Value > 100 {
			return "Percentage value must be in (0, 100]"
		}
	case domain.DiscountFixedAmount:
		if d.Value <= 0 {
			return "Fixed amount must be > 0"
		}
	case domain.DiscountBuyXGetY:
		if d.BuyQuantity <= 0 || d.GetQuantity <= 0 {
			return "Buy and get quantities must be > 0"
		}
	}
	if !d.StartAt.IsZero() && !d.EndAt.IsZero() && d.EndAt.Before(d.StartAt) {
		return "End date must be after start date"
	}
	return ""
}

func (h *Handler) listDiscounts(c echo.Context) error {
	page, perPage := parsePagination(c)
	rows, total, err := h.discounts.List(c.Request().Context(), page, perPage)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query discounts", err.Error())
	}
	return paged(c, rows, total, page, perPage)
}

func (h *Handler) getDiscount(c echo.Context) error {
	id, valid := paramInt64(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid discount ID", nil)
	}
	d, err := h.discounts.GetByID(c.Request().Context(), id)
	if err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Discount not found", nil)
	}
	return ok(c, d)
}

func (h *Handler) createDiscount(c echo.Context) error {
	var d domain.Discount
	if err := c.Bind(&d); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse discount", err.Error())
	}
	if msg := validateDiscount(&d); msg != "" {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", msg, nil)
	}
	d.ID = 0
	d.UsageCount = 0
	if err := h.discounts.Create(c.Request().Context(), &d); err != nil {
		if errors.Is(err, pricing.ErrDuplicateCode) {
			return fail(c, http.StatusConflict, "DUPLICATE_CODE", "A discount with this code already exists", nil)
		}
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create discount", err.Error())
	}
	return ok(c, d)
}

func (h *Handler) updateDiscount(c echo.Context) error {
	id, valid := paramInt64(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid discount ID", nil)
	}
	ctx := c.Request().Context()
	existing, err := h.discounts.GetByID(ctx, id)
	if err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Discount not found", nil)
	}

	var d domain.Discount
	if err := c.Bind(&d); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse discount", err.Error())
	}
	if msg := validateDiscount(&d); msg != "" {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", msg, nil)
	}
	d.ID = existing.ID
	d.UsageCount = existing.UsageCount
	d.CreatedAt = existing.CreatedAt
	if err := h.discounts.Update(ctx, &d); err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update discount", err.Error())
	}
	return ok(c, d)
}

func (h *Handler) deleteDiscount(c echo.Context) error {
	id, valid := paramInt64(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid discount ID", nil)
	}
	if err := h.discounts.Delete(c.Request().Context(), id); err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete discount", err.Error())
	}
	return ok(c, map[string]interface{}{"id": id})
}
