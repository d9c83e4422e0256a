package models

// CategoryDistributionItem is one slice of the category breakdown chart.
type CategoryDistributionItem struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	Count int    `json:"count"`
}

// InventoryValueItem is one day of the bought/sold/profit time series,
// derived from the stock history ledger joined with product prices.
type InventoryValueItem struct {
	Date   string  `json:"date"` // YYYY-MM-DD
	Bought float64 `json:"bought"`
	Sold   float64 `json:"sold"`
	Profit float64 `json:"profit"`
}

// DashboardStats is the admin dashboard summary.
type DashboardStats struct {
	TotalProducts  int     `json:"totalProducts"`
	TotalBuyValue  float64 `json:"totalBuyValue"`
	TotalSellValue float64 `json:"totalSellValue"`
	MonthlyProfit  float64 `json:"monthlyProfit"`
}
