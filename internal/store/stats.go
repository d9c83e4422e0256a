package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shalset/barcode-backend/internal/models"
)

// CategoryDistribution counts products per category. Products with no
// category are grouped under "Uncategorized".
func (s *DuckStore) CategoryDistribution(ctx context.Context) ([]models.CategoryDistributionItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT COALESCE(c.name, 'Uncategorized'), COALESCE(c.color, ''), COUNT(*)
		 FROM products p LEFT JOIN categories c ON c.id = p.category_id
		 GROUP BY c.name, c.color
		 ORDER BY COUNT(*) DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying category distribution: %w", err)
	}
	defer rows.Close()

	items := make([]models.CategoryDistributionItem, 0)
	for rows.Next() {
		var it models.CategoryDistributionItem
		if err := rows.Scan(&it.Name, &it.Color, &it.Count); err != nil {
			return nil, fmt.Errorf("scanning distribution row: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// InventoryValue builds a daily bought/sold/profit series over the last
// N days from the stock history ledger joined with product prices. Days
// with no movement are filled with zeros so the series is contiguous.
func (s *DuckStore) InventoryValue(ctx context.Context, days int) ([]models.InventoryValueItem, error) {
	if days <= 0 {
		days = 30
	}
	start := time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, -(days - 1))

	rows, err := s.db.QueryContext(ctx,
		`SELECT CAST(h.created_at AS DATE) AS day,
			SUM(CASE WHEN h.direction = 'add' THEN h.quantity * p.buying_price ELSE 0 END),
			SUM(CASE WHEN h.direction = 'remove' THEN h.quantity * p.selling_price ELSE 0 END),
			SUM(CASE WHEN h.direction = 'remove' THEN h.quantity * (p.selling_price - p.buying_price) ELSE 0 END)
		 FROM stock_history h
		 JOIN products p ON p.id = h.product_id
		 WHERE h.created_at >= ?
		 GROUP BY day
		 ORDER BY day ASC`, start)
	if err != nil {
		return nil, fmt.Errorf("querying inventory value: %w", err)
	}
	defer rows.Close()

	byDay := make(map[string]models.InventoryValueItem, days)
	for rows.Next() {
		var day time.Time
		var it models.InventoryValueItem
		if err := rows.Scan(&day, &it.Bought, &it.Sold, &it.Profit); err != nil {
			return nil, fmt.Errorf("scanning inventory value row: %w", err)
		}
		it.Date = day.Format("2006-01-02")
		byDay[it.Date] = it
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	series := make([]models.InventoryValueItem, 0, days)
	for i := 0; i < days; i++ {
		date := start.AddDate(0, 0, i).Format("2006-01-02")
		if it, ok := byDay[date]; ok {
			series = append(series, it)
		} else {
			series = append(series, models.InventoryValueItem{Date: date})
		}
	}
	return series, nil
}

// DashboardStats aggregates the admin summary: product count, current
// stock valued at buy and sell prices, and the current month's realized
// profit on removed stock.
func (s *DuckStore) DashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	var stats models.DashboardStats
	var buyValue, sellValue sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
			SUM(current_stock * buying_price),
			SUM(current_stock * selling_price)
		 FROM products`).Scan(&stats.TotalProducts, &buyValue, &sellValue)
	if err != nil {
		return nil, fmt.Errorf("querying product totals: %w", err)
	}
	stats.TotalBuyValue = buyValue.Float64
	stats.TotalSellValue = sellValue.Float64

	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	var profit sql.NullFloat64
	err = s.db.QueryRowContext(ctx,
		`SELECT SUM(h.quantity * (p.selling_price - p.buying_price))
		 FROM stock_history h
		 JOIN products p ON p.id = h.product_id
		 WHERE h.direction = 'remove' AND h.created_at >= ?`, monthStart).Scan(&profit)
	if err != nil {
		return nil, fmt.Errorf("querying monthly profit: %w", err)
	}
	stats.MonthlyProfit = profit.Float64
	return &stats, nil
}
