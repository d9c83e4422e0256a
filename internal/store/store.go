// Package store persists users, products, categories, scans and the
// stock history ledger in a DuckDB database file.
package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/marcboeker/go-duckdb"

	"github.com/shalset/barcode-backend/internal/models"
)

// Sentinel errors mapped to API error codes by the handlers.
var (
	ErrNotFound          = errors.New("record not found")
	ErrDuplicateBarcode  = errors.New("barcode already exists")
	ErrDuplicateCategory = errors.New("category already exists")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
)

// ProductInput is the payload for creating a product with its initial
// stock.
type ProductInput struct {
	Barcode       string
	Name          string
	Quantity      int
	Note          string
	BuyingPrice   float64
	SellingPrice  float64
	BoughtFrom    string
	SellLocation  string
	CreatedByName string
}

// StockAdjustment is one add/remove operation against a product.
type StockAdjustment struct {
	Direction models.StockDirection
	Quantity  int
	Note      string
	Supplier  string // add: where items were bought from
	Location  string // remove: where items were sold/moved to
	ActorName string
}

// ProductQuery filters the product listing.
type ProductQuery struct {
	Search     string
	CategoryID string
	Page       int
	Limit      int
}

// Store is the persistence interface consumed by the API layer.
// DuckStore is the production implementation; testutil provides an
// in-memory mock.
type Store interface {
	// users
	CreateUser(ctx context.Context, username, fullName, passwordHash string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	TouchLastLogin(ctx context.Context, id string) error
	CountUsers(ctx context.Context) (int, error)

	// scans
	InsertScan(ctx context.Context, scan models.Scan) (*models.Scan, error)
	ListScans(ctx context.Context, userID string, page, limit int) ([]models.Scan, int, error)
	ScanStats(ctx context.Context, userID string) (*models.ScanStats, error)
	DeleteScansBefore(ctx context.Context, cutoff time.Time) (int, error)

	// products
	CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error)
	GetProductByBarcode(ctx context.Context, barcode string) (*models.Product, error)
	ListProducts(ctx context.Context, q ProductQuery) ([]models.Product, int, error)
	UpdateProduct(ctx context.Context, barcode string, upd models.ProductUpdate) (*models.Product, error)
	AdjustStock(ctx context.Context, barcode string, adj StockAdjustment) (*models.Product, error)

	// categories
	CreateCategory(ctx context.Context, name, description, color, createdByName string) (*models.Category, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	UpdateCategory(ctx context.Context, id, name, description, color string) (*models.Category, error)
	DeleteCategory(ctx context.Context, id string) error

	// stats
	CategoryDistribution(ctx context.Context) ([]models.CategoryDistributionItem, error)
	InventoryValue(ctx context.Context, days int) ([]models.InventoryValueItem, error)
	DashboardStats(ctx context.Context) (*models.DashboardStats, error)

	Close() error
}

// DuckStore implements Store on a DuckDB database file.
type DuckStore struct {
	db     *sql.DB
	dbPath string
}

// Options tunes the underlying DuckDB instance.
type Options struct {
	Threads     int
	MemoryLimit string
}

func (o Options) withDefaults() Options {
	if o.Threads <= 0 {
		o.Threads = 2
	}
	if o.MemoryLimit == "" {
		o.MemoryLimit = "512MB"
	}
	return o
}

// Open creates or opens the database at dbPath and ensures the schema.
func Open(dbPath string, opts Options) (*DuckStore, error) {
	opts = opts.withDefaults()
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	connector, err := duckdb.NewConnector(dbPath, func(execer driver.ExecerContext) error {
		pragmas := []string{
			fmt.Sprintf("PRAGMA memory_limit='%s'", opts.MemoryLimit),
			fmt.Sprintf("PRAGMA threads=%d", opts.Threads),
			"PRAGMA enable_progress_bar=false",
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("creating DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)
	s := &DuckStore{db: db, dbPath: dbPath}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	fmt.Printf("[Store] Database ready at %s\n", dbPath)
	return s, nil
}

func (s *DuckStore) ensureSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id            VARCHAR PRIMARY KEY,
			username      VARCHAR NOT NULL UNIQUE,
			full_name     VARCHAR NOT NULL,
			password_hash VARCHAR NOT NULL,
			created_at    TIMESTAMP NOT NULL,
			last_login    TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS categories (
			id              VARCHAR PRIMARY KEY,
			name            VARCHAR NOT NULL UNIQUE,
			description     VARCHAR,
			color           VARCHAR NOT NULL,
			created_by_name VARCHAR,
			created_at      TIMESTAMP NOT NULL,
			updated_at      TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			id              VARCHAR PRIMARY KEY,
			barcode         VARCHAR NOT NULL UNIQUE,
			name            VARCHAR NOT NULL,
			current_stock   INTEGER NOT NULL,
			note            VARCHAR,
			buying_price    DOUBLE NOT NULL DEFAULT 0,
			selling_price   DOUBLE NOT NULL DEFAULT 0,
			bought_from     VARCHAR,
			sell_location   VARCHAR,
			image_url       VARCHAR,
			category_id     VARCHAR,
			created_by_name VARCHAR,
			created_at      TIMESTAMP NOT NULL,
			updated_at      TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS stock_history (
			id            VARCHAR PRIMARY KEY,
			product_id    VARCHAR NOT NULL,
			quantity      INTEGER NOT NULL,
			direction     VARCHAR NOT NULL,
			note          VARCHAR,
			supplier      VARCHAR,
			location      VARCHAR,
			added_by_name VARCHAR,
			created_at    TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS scans (
			id             VARCHAR PRIMARY KEY,
			barcode        VARCHAR NOT NULL,
			user_id        VARCHAR NOT NULL,
			username       VARCHAR NOT NULL,
			user_full_name VARCHAR,
			scan_mode      VARCHAR NOT NULL,
			device_info    VARCHAR,
			location       VARCHAR,
			scanned_at     TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scans_user_time ON scans(user_id, scanned_at)`,
		`CREATE INDEX IF NOT EXISTS idx_history_product ON stock_history(product_id, created_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database.
func (s *DuckStore) Close() error {
	return s.db.Close()
}

// normalizePage clamps page/limit to sane bounds for skip/limit queries.
func normalizePage(page, limit, defaultLimit, maxLimit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}
