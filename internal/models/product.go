package models

import "time"

// StockDirection is the sign of a stock adjustment.
type StockDirection string

const (
	StockAdd    StockDirection = "add"
	StockRemove StockDirection = "remove"
)

// StockHistoryEntry is one immutable row of a product's stock ledger.
// Entries are only ever appended; they are never edited or deleted.
type StockHistoryEntry struct {
	Quantity    int            `json:"quantity"`
	Direction   StockDirection `json:"type"`
	Note        string         `json:"note,omitempty"`
	Supplier    string         `json:"supplier,omitempty"` // where items were bought from (add)
	Location    string         `json:"location,omitempty"` // where items were sold/moved to (remove)
	AddedByName string         `json:"addedByName"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// Product is an inventory record keyed by barcode.
type Product struct {
	ID            string              `json:"id"`
	Barcode       string              `json:"barcode"`
	Name          string              `json:"name"`
	CurrentStock  int                 `json:"currentStock"`
	Note          string              `json:"note,omitempty"`
	BuyingPrice   float64             `json:"buyingPrice"`
	SellingPrice  float64             `json:"sellingPrice"`
	BoughtFrom    string              `json:"boughtFrom,omitempty"`
	SellLocation  string              `json:"sellLocation,omitempty"`
	ImageURL      string              `json:"imageUrl,omitempty"`
	CategoryID    string              `json:"category,omitempty"`
	CategoryName  string              `json:"categoryName,omitempty"`
	StockHistory  []StockHistoryEntry `json:"stockHistory"`
	CreatedByName string              `json:"createdByName"`
	CreatedAt     time.Time           `json:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt"`
}

// ProductUpdate carries the mutable metadata fields of a product.
// Nil pointers mean "leave unchanged".
type ProductUpdate struct {
	Name         *string  `json:"name,omitempty"`
	Note         *string  `json:"note,omitempty"`
	BuyingPrice  *float64 `json:"buyingPrice,omitempty"`
	SellingPrice *float64 `json:"sellingPrice,omitempty"`
	BoughtFrom   *string  `json:"boughtFrom,omitempty"`
	SellLocation *string  `json:"sellLocation,omitempty"`
	ImageURL     *string  `json:"imageUrl,omitempty"`
	CategoryID   *string  `json:"category,omitempty"`
}
