// handlers_stats_test.go - Tests for dashboard statistics handlers
package api

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shalset/barcode-backend/internal/models"
)

func TestHandleDashboardStats(t *testing.T) {
	handler, st, user := newTestHandler(t)
	st.AddProduct(models.Product{
		Barcode: "111", Name: "Green Tea", CurrentStock: 10,
		BuyingPrice: 1.0, SellingPrice: 2.0,
		StockHistory: []models.StockHistoryEntry{
			{Quantity: 3, Direction: models.StockRemove, CreatedAt: time.Now().UTC()},
		},
	})

	c, rec := request(t, user, http.MethodGet, "/api/stats/dashboard", nil)
	require.NoError(t, handler.HandleDashboardStats(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var stats models.DashboardStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.TotalProducts)
	assert.Equal(t, 10.0, stats.TotalBuyValue)
	assert.Equal(t, 20.0, stats.TotalSellValue)
	assert.Equal(t, 3.0, stats.MonthlyProfit)
}

func TestHandleCategoryDistribution(t *testing.T) {
	handler, st, user := newTestHandler(t)
	st.AddProduct(models.Product{Barcode: "111", Name: "Green Tea", CurrentStock: 1})
	st.AddProduct(models.Product{Barcode: "222", Name: "Black Tea", CurrentStock: 1})

	c, rec := request(t, user, http.MethodGet, "/api/stats/category-distribution", nil)
	require.NoError(t, handler.HandleCategoryDistribution(c))

	var items []models.CategoryDistributionItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "Uncategorized", items[0].Name)
	assert.Equal(t, 2, items[0].Count)
}

func TestHandleInventoryValueSeriesLength(t *testing.T) {
	handler, _, user := newTestHandler(t)

	c, rec := request(t, user, http.MethodGet, "/api/stats/inventory-value?days=7", nil)
	require.NoError(t, handler.HandleInventoryValue(c))

	var series []models.InventoryValueItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &series))
	assert.Len(t, series, 7, "series is zero-filled for quiet days")
}

func TestHandleInventoryValueRejectsBadDays(t *testing.T) {
	handler, _, user := newTestHandler(t)

	c, _ := request(t, user, http.MethodGet, "/api/stats/inventory-value?days=9001", nil)
	requireAPIError(t, handler.HandleInventoryValue(c), "VALIDATION_ERROR")
}
