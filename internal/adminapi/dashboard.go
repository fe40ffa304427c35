package adminapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/montanaflynn/stats"
	"github.com/talkincode/eazybuy/internal/domain"
	"github.com/talkincode/eazybuy/pkg/common"
	"github.com/talkincode/eazybuy/pkg/metrics"
)

type dashboardResponse struct {
	OrderCounts      map[string]int64 `json:"order_counts"`
	Revenue          float64          `json:"revenue"`
	MeanOrderValue   float64          `json:"mean_order_value"`
	MedianOrderValue float64          `json:"median_order_value"`
	LowStockCount    int              `json:"low_stock_count"`
	LowStock         interface{}      `json:"low_stock"`
}

func (h *Handler) dashboard(c echo.Context) error {
	ctx := c.Request().Context()

	counts, err := h.orders.CountByStatus(ctx)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to count orders", err.Error())
	}

	// revenue counts orders the shopper has paid for and kept
	totals, err := h.orders.Totals(ctx,
		domain.OrderPaid, domain.OrderFulfilled, domain.OrderShipped, domain.OrderDelivered)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to sum orders", err.Error())
	}

	var revenue, mean, median float64
	if len(totals) > 0 {
		revenue, _ = stats.Sum(totals)
		mean, _ = stats.Mean(totals)
		median, _ = stats.Median(totals)
	}

	low, err := h.ledger.LowStock(ctx)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query low stock", err.Error())
	}

	metrics.SetGauge("dashboard_revenue", int64(revenue))
	metrics.SetGauge("dashboard_low_stock", int64(len(low)))

	return ok(c, dashboardResponse{
		OrderCounts:      counts,
		Revenue:          common.Round2(revenue),
		MeanOrderValue:   common.Round2(mean),
		MedianOrderValue: common.Round2(median),
		LowStockCount:    len(low),
		LowStock:         low,
	})
}
