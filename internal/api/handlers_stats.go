// handlers_stats.go - Dashboard statistics handlers
package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// HandleDashboardStats returns the inventory summary.
func (h *Handler) HandleDashboardStats(c echo.Context) error {
	stats, err := h.store.DashboardStats(c.Request().Context())
	if err != nil {
		return storeError(err, "dashboard stats", "")
	}
	return c.JSON(http.StatusOK, stats)
}

// HandleCategoryDistribution returns product counts per category.
func (h *Handler) HandleCategoryDistribution(c echo.Context) error {
	items, err := h.store.CategoryDistribution(c.Request().Context())
	if err != nil {
		return storeError(err, "category distribution", "")
	}
	return c.JSON(http.StatusOK, items)
}

// HandleInventoryValue returns the daily bought/sold/profit series for
// the last N days (default 30).
func (h *Handler) HandleInventoryValue(c echo.Context) error {
	days := 30
	if raw := c.QueryParam("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 365 {
			return NewValidationError("days")
		}
		days = parsed
	}

	series, err := h.store.InventoryValue(c.Request().Context(), days)
	if err != nil {
		return storeError(err, "inventory value", "")
	}
	return c.JSON(http.StatusOK, series)
}
