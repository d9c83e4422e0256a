// mock_store.go - In-memory store implementation for handler tests
package testutil

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shalset/barcode-backend/internal/models"
	"github.com/shalset/barcode-backend/internal/store"
)

// MockStore implements store.Store in memory.
type MockStore struct {
	mu         sync.RWMutex
	users      map[string]*models.User
	scans      []models.Scan
	products   map[string]*models.Product // keyed by barcode
	categories map[string]*models.Category

	// Err, when set, is returned by every method. Lets tests exercise
	// the 500 paths.
	Err error
}

// NewMockStore creates an empty mock store.
func NewMockStore() *MockStore {
	return &MockStore{
		users:      make(map[string]*models.User),
		scans:      make([]models.Scan, 0),
		products:   make(map[string]*models.Product),
		categories: make(map[string]*models.Category),
	}
}

var _ store.Store = (*MockStore)(nil)

var idCounter int
var idMutex sync.Mutex

func nextID() string {
	idMutex.Lock()
	defer idMutex.Unlock()
	idCounter++
	return fmt.Sprintf("test-id-%d", idCounter)
}

// --- users ---

func (m *MockStore) CreateUser(ctx context.Context, username, fullName, passwordHash string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	u := &models.User{
		ID:           nextID(),
		Username:     username,
		FullName:     fullName,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	m.users[u.ID] = u
	return u, nil
}

func (m *MockStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, u := range m.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *MockStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (m *MockStore) TouchLastLogin(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	u, ok := m.users[id]
	if !ok {
		return store.ErrNotFound
	}
	now := time.Now().UTC()
	u.LastLogin = &now
	return nil
}

func (m *MockStore) CountUsers(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return 0, m.Err
	}
	return len(m.users), nil
}

// --- scans ---

func (m *MockStore) InsertScan(ctx context.Context, scan models.Scan) (*models.Scan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if scan.ID == "" {
		scan.ID = nextID()
	}
	if scan.ScannedAt.IsZero() {
		scan.ScannedAt = time.Now().UTC()
	}
	if u, ok := m.users[scan.UserID]; ok {
		scan.Username = u.Username
		scan.UserFullName = u.FullName
	}
	m.scans = append(m.scans, scan)
	return &scan, nil
}

func (m *MockStore) ListScans(ctx context.Context, userID string, page, limit int) ([]models.Scan, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, 0, m.Err
	}
	filtered := m.scansFor(userID)
	start, end := pageWindow(page, limit, 50, 500, len(filtered))
	return filtered[start:end], len(filtered), nil
}

// pageWindow clamps page/limit the way DuckStore does and returns the
// slice bounds for the requested page.
func pageWindow(page, limit, defaultLimit, maxLimit, total int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return start, end
}

func (m *MockStore) ScanStats(ctx context.Context, userID string) (*models.ScanStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	filtered := m.scansFor(userID)
	today := time.Now().UTC().Truncate(24 * time.Hour)
	stats := &models.ScanStats{TotalScans: len(filtered), RecentScans: []models.Scan{}}
	for _, s := range filtered {
		if !s.ScannedAt.Before(today) {
			stats.TodayScans++
		}
	}
	for i := 0; i < len(filtered) && i < 5; i++ {
		stats.RecentScans = append(stats.RecentScans, filtered[i])
	}
	return stats, nil
}

// scansFor returns the user's scans newest first. Callers hold the lock.
func (m *MockStore) scansFor(userID string) []models.Scan {
	filtered := make([]models.Scan, 0, len(m.scans))
	for _, s := range m.scans {
		if userID == "" || s.UserID == userID {
			filtered = append(filtered, s)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].ScannedAt.After(filtered[j].ScannedAt)
	})
	return filtered
}

func (m *MockStore) DeleteScansBefore(ctx context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	kept := m.scans[:0]
	removed := 0
	for _, s := range m.scans {
		if s.ScannedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, s)
	}
	m.scans = kept
	return removed, nil
}

// --- products ---

func (m *MockStore) CreateProduct(ctx context.Context, in store.ProductInput) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if in.Quantity <= 0 {
		return nil, store.ErrInvalidQuantity
	}
	if _, exists := m.products[in.Barcode]; exists {
		return nil, store.ErrDuplicateBarcode
	}
	now := time.Now().UTC()
	p := &models.Product{
		ID:            nextID(),
		Barcode:       in.Barcode,
		Name:          in.Name,
		CurrentStock:  in.Quantity,
		Note:          in.Note,
		BuyingPrice:   in.BuyingPrice,
		SellingPrice:  in.SellingPrice,
		BoughtFrom:    in.BoughtFrom,
		SellLocation:  in.SellLocation,
		CreatedByName: in.CreatedByName,
		CreatedAt:     now,
		UpdatedAt:     now,
		StockHistory: []models.StockHistoryEntry{{
			Quantity:    in.Quantity,
			Direction:   models.StockAdd,
			Note:        in.Note,
			Supplier:    in.BoughtFrom,
			AddedByName: in.CreatedByName,
			CreatedAt:   now,
		}},
	}
	m.products[in.Barcode] = p
	copied := *p
	return &copied, nil
}

func (m *MockStore) GetProductByBarcode(ctx context.Context, barcode string) (*models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	p, ok := m.products[barcode]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (m *MockStore) ListProducts(ctx context.Context, q store.ProductQuery) ([]models.Product, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, 0, m.Err
	}
	filtered := make([]models.Product, 0, len(m.products))
	needle := strings.ToLower(q.Search)
	for _, p := range m.products {
		if needle != "" &&
			!strings.Contains(strings.ToLower(p.Name), needle) &&
			!strings.Contains(strings.ToLower(p.Barcode), needle) {
			continue
		}
		if q.CategoryID != "" && p.CategoryID != q.CategoryID {
			continue
		}
		filtered = append(filtered, *p)
	}
	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].UpdatedAt.After(filtered[j].UpdatedAt)
	})
	start, end := pageWindow(q.Page, q.Limit, 50, 200, len(filtered))
	return filtered[start:end], len(filtered), nil
}

func (m *MockStore) UpdateProduct(ctx context.Context, barcode string, upd models.ProductUpdate) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	p, ok := m.products[barcode]
	if !ok {
		return nil, store.ErrNotFound
	}
	if upd.Name != nil {
		p.Name = *upd.Name
	}
	if upd.Note != nil {
		p.Note = *upd.Note
	}
	if upd.BuyingPrice != nil {
		p.BuyingPrice = *upd.BuyingPrice
	}
	if upd.SellingPrice != nil {
		p.SellingPrice = *upd.SellingPrice
	}
	if upd.BoughtFrom != nil {
		p.BoughtFrom = *upd.BoughtFrom
	}
	if upd.SellLocation != nil {
		p.SellLocation = *upd.SellLocation
	}
	if upd.ImageURL != nil {
		p.ImageURL = *upd.ImageURL
	}
	if upd.CategoryID != nil {
		p.CategoryID = *upd.CategoryID
		if c, ok := m.categories[p.CategoryID]; ok {
			p.CategoryName = c.Name
		} else {
			p.CategoryName = ""
		}
	}
	p.UpdatedAt = time.Now().UTC()
	copied := *p
	return &copied, nil
}

func (m *MockStore) AdjustStock(ctx context.Context, barcode string, adj store.StockAdjustment) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if adj.Quantity <= 0 {
		return nil, store.ErrInvalidQuantity
	}
	p, ok := m.products[barcode]
	if !ok {
		return nil, store.ErrNotFound
	}
	if adj.Direction == models.StockRemove {
		if adj.Quantity > p.CurrentStock {
			return nil, fmt.Errorf("%w: cannot remove %d, only %d in stock",
				store.ErrInsufficientStock, adj.Quantity, p.CurrentStock)
		}
		p.CurrentStock -= adj.Quantity
	} else {
		p.CurrentStock += adj.Quantity
	}
	now := time.Now().UTC()
	entry := models.StockHistoryEntry{
		Quantity:    adj.Quantity,
		Direction:   adj.Direction,
		Note:        adj.Note,
		Supplier:    adj.Supplier,
		Location:    adj.Location,
		AddedByName: adj.ActorName,
		CreatedAt:   now,
	}
	p.StockHistory = append([]models.StockHistoryEntry{entry}, p.StockHistory...)
	p.UpdatedAt = now
	copied := *p
	return &copied, nil
}

// --- categories ---

func (m *MockStore) CreateCategory(ctx context.Context, name, description, color, createdByName string) (*models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, c := range m.categories {
		if strings.EqualFold(c.Name, name) {
			return nil, store.ErrDuplicateCategory
		}
	}
	now := time.Now().UTC()
	c := &models.Category{
		ID:            nextID(),
		Name:          name,
		Description:   description,
		Color:         color,
		CreatedByName: createdByName,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	m.categories[c.ID] = c
	copied := *c
	return &copied, nil
}

func (m *MockStore) ListCategories(ctx context.Context) ([]models.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	categories := make([]models.Category, 0, len(m.categories))
	for _, c := range m.categories {
		categories = append(categories, *c)
	}
	sort.Slice(categories, func(i, j int) bool {
		return categories[i].Name < categories[j].Name
	})
	return categories, nil
}

func (m *MockStore) UpdateCategory(ctx context.Context, id, name, description, color string) (*models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	c, ok := m.categories[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	for otherID, other := range m.categories {
		if otherID != id && strings.EqualFold(other.Name, name) {
			return nil, store.ErrDuplicateCategory
		}
	}
	c.Name = name
	c.Description = description
	c.Color = color
	c.UpdatedAt = time.Now().UTC()
	copied := *c
	return &copied, nil
}

func (m *MockStore) DeleteCategory(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if _, ok := m.categories[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.categories, id)
	for _, p := range m.products {
		if p.CategoryID == id {
			p.CategoryID = ""
			p.CategoryName = ""
		}
	}
	return nil
}

// --- stats ---

func (m *MockStore) CategoryDistribution(ctx context.Context) ([]models.CategoryDistributionItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	counts := make(map[string]*models.CategoryDistributionItem)
	for _, p := range m.products {
		name, color := "Uncategorized", ""
		if c, ok := m.categories[p.CategoryID]; ok {
			name, color = c.Name, c.Color
		}
		if it, ok := counts[name]; ok {
			it.Count++
		} else {
			counts[name] = &models.CategoryDistributionItem{Name: name, Color: color, Count: 1}
		}
	}
	items := make([]models.CategoryDistributionItem, 0, len(counts))
	for _, it := range counts {
		items = append(items, *it)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Count > items[j].Count })
	return items, nil
}

func (m *MockStore) InventoryValue(ctx context.Context, days int) ([]models.InventoryValueItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if days <= 0 {
		days = 30
	}
	start := time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, -(days - 1))
	byDay := make(map[string]*models.InventoryValueItem)
	for _, p := range m.products {
		for _, e := range p.StockHistory {
			if e.CreatedAt.Before(start) {
				continue
			}
			date := e.CreatedAt.Format("2006-01-02")
			it, ok := byDay[date]
			if !ok {
				it = &models.InventoryValueItem{Date: date}
				byDay[date] = it
			}
			if e.Direction == models.StockAdd {
				it.Bought += float64(e.Quantity) * p.BuyingPrice
			} else {
				it.Sold += float64(e.Quantity) * p.SellingPrice
				it.Profit += float64(e.Quantity) * (p.SellingPrice - p.BuyingPrice)
			}
		}
	}
	series := make([]models.InventoryValueItem, 0, days)
	for i := 0; i < days; i++ {
		date := start.AddDate(0, 0, i).Format("2006-01-02")
		if it, ok := byDay[date]; ok {
			series = append(series, *it)
		} else {
			series = append(series, models.InventoryValueItem{Date: date})
		}
	}
	return series, nil
}

func (m *MockStore) DashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	stats := &models.DashboardStats{}
	monthStart := time.Now().UTC()
	monthStart = time.Date(monthStart.Year(), monthStart.Month(), 1, 0, 0, 0, 0, time.UTC)
	for _, p := range m.products {
		stats.TotalProducts++
		stats.TotalBuyValue += float64(p.CurrentStock) * p.BuyingPrice
		stats.TotalSellValue += float64(p.CurrentStock) * p.SellingPrice
		for _, e := range p.StockHistory {
			if e.Direction == models.StockRemove && !e.CreatedAt.Before(monthStart) {
				stats.MonthlyProfit += float64(e.Quantity) * (p.SellingPrice - p.BuyingPrice)
			}
		}
	}
	return stats, nil
}

func (m *MockStore) Close() error { return nil }

// --- test helpers ---

// AddUser seeds a user directly and returns it.
func (m *MockStore) AddUser(id, username, fullName, passwordHash string) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := &models.User{
		ID:           id,
		Username:     username,
		FullName:     fullName,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	m.users[id] = u
	return u
}

// AddProduct seeds a product directly and returns it.
func (m *MockStore) AddProduct(p models.Product) *models.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = nextID()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	if p.StockHistory == nil {
		p.StockHistory = []models.StockHistoryEntry{}
	}
	m.products[p.Barcode] = &p
	return &p
}

// ScanCount returns the number of stored scans.
func (m *MockStore) ScanCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.scans)
}
