package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shalset/barcode-backend/internal/models"
)

const productColumns = `p.id, p.barcode, p.name, p.current_stock, p.note,
	p.buying_price, p.selling_price, p.bought_from, p.sell_location, p.image_url,
	p.category_id, c.name, p.created_by_name, p.created_at, p.updated_at`

const productFrom = `FROM products p LEFT JOIN categories c ON c.id = p.category_id`

// CreateProduct inserts a product together with its initial stock and
// the first entry of its stock history ledger.
func (s *DuckStore) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	in.Barcode = strings.TrimSpace(in.Barcode)
	in.Name = strings.TrimSpace(in.Name)
	if in.Barcode == "" || in.Name == "" {
		return nil, fmt.Errorf("barcode and name are required")
	}
	if in.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM products WHERE barcode = ?`, in.Barcode).Scan(&exists); err != nil {
		return nil, fmt.Errorf("checking barcode: %w", err)
	}
	if exists > 0 {
		return nil, ErrDuplicateBarcode
	}

	now := time.Now().UTC()
	id := uuid.New().String()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO products (id, barcode, name, current_stock, note, buying_price, selling_price,
			bought_from, sell_location, image_url, category_id, created_by_name, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, '', NULL, ?, ?, ?)`,
		id, in.Barcode, in.Name, in.Quantity, in.Note, in.BuyingPrice, in.SellingPrice,
		in.BoughtFrom, in.SellLocation, in.CreatedByName, now, now)
	if err != nil {
		return nil, fmt.Errorf("inserting product: %w", err)
	}

	if err := insertHistory(ctx, tx, id, models.StockHistoryEntry{
		Quantity:    in.Quantity,
		Direction:   models.StockAdd,
		Note:        in.Note,
		Supplier:    in.BoughtFrom,
		AddedByName: in.CreatedByName,
		CreatedAt:   now,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing product: %w", err)
	}
	return s.GetProductByBarcode(ctx, in.Barcode)
}

func insertHistory(ctx context.Context, tx *sql.Tx, productID string, e models.StockHistoryEntry) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO stock_history (id, product_id, quantity, direction, note, supplier, location, added_by_name, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), productID, e.Quantity, string(e.Direction), e.Note, e.Supplier, e.Location, e.AddedByName, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("appending stock history: %w", err)
	}
	return nil
}

func scanProduct(scanner interface{ Scan(...any) error }) (*models.Product, error) {
	var p models.Product
	var note, boughtFrom, sellLocation, imageURL, categoryID, categoryName, createdBy sql.NullString
	err := scanner.Scan(&p.ID, &p.Barcode, &p.Name, &p.CurrentStock, &note,
		&p.BuyingPrice, &p.SellingPrice, &boughtFrom, &sellLocation, &imageURL,
		&categoryID, &categoryName, &createdBy, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning product: %w", err)
	}
	p.Note = note.String
	p.BoughtFrom = boughtFrom.String
	p.SellLocation = sellLocation.String
	p.ImageURL = imageURL.String
	p.CategoryID = categoryID.String
	p.CategoryName = categoryName.String
	p.CreatedByName = createdBy.String
	p.StockHistory = []models.StockHistoryEntry{}
	return &p, nil
}

// GetProductByBarcode returns the product plus its full stock history,
// newest entry first.
func (s *DuckStore) GetProductByBarcode(ctx context.Context, barcode string) (*models.Product, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+productColumns+" "+productFrom+" WHERE p.barcode = ?", barcode)
	p, err := scanProduct(row)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT quantity, direction, note, supplier, location, added_by_name, created_at
		 FROM stock_history WHERE product_id = ? ORDER BY created_at DESC`, p.ID)
	if err != nil {
		return nil, fmt.Errorf("listing stock history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e models.StockHistoryEntry
		var direction string
		var note, supplier, location, addedBy sql.NullString
		if err := rows.Scan(&e.Quantity, &direction, &note, &supplier, &location, &addedBy, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		e.Direction = models.StockDirection(direction)
		e.Note = note.String
		e.Supplier = supplier.String
		e.Location = location.String
		e.AddedByName = addedBy.String
		p.StockHistory = append(p.StockHistory, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return p, nil
}

// ListProducts returns a page of products filtered by a name/barcode
// substring and an optional category. Stock history is not loaded for
// listings.
func (s *DuckStore) ListProducts(ctx context.Context, q ProductQuery) ([]models.Product, int, error) {
	page, limit := normalizePage(q.Page, q.Limit, 50, 200)
	offset := (page - 1) * limit

	var conds []string
	var args []any
	if q.Search != "" {
		conds = append(conds, "(p.name ILIKE ? OR p.barcode ILIKE ?)")
		pattern := "%" + q.Search + "%"
		args = append(args, pattern, pattern)
	}
	if q.CategoryID != "" {
		conds = append(conds, "p.category_id = ?")
		args = append(args, q.CategoryID)
	}
	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) "+productFrom+" "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting products: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+productColumns+" "+productFrom+" "+where+" ORDER BY p.updated_at DESC LIMIT ? OFFSET ?",
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing products: %w", err)
	}
	defer rows.Close()

	products := make([]models.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// UpdateProduct applies the non-nil metadata fields. Stock is never
// touched here; only AdjustStock moves it.
func (s *DuckStore) UpdateProduct(ctx context.Context, barcode string, upd models.ProductUpdate) (*models.Product, error) {
	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UTC()}

	apply := func(column string, v any) {
		sets = append(sets, column+" = ?")
		args = append(args, v)
	}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, fmt.Errorf("name cannot be empty")
		}
		apply("name", name)
	}
	if upd.Note != nil {
		apply("note", *upd.Note)
	}
	if upd.BuyingPrice != nil {
		apply("buying_price", *upd.BuyingPrice)
	}
	if upd.SellingPrice != nil {
		apply("selling_price", *upd.SellingPrice)
	}
	if upd.BoughtFrom != nil {
		apply("bought_from", *upd.BoughtFrom)
	}
	if upd.SellLocation != nil {
		apply("sell_location", *upd.SellLocation)
	}
	if upd.ImageURL != nil {
		apply("image_url", *upd.ImageURL)
	}
	if upd.CategoryID != nil {
		if *upd.CategoryID == "" {
			sets = append(sets, "category_id = NULL")
		} else {
			apply("category_id", *upd.CategoryID)
		}
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE products SET "+strings.Join(sets, ", ")+" WHERE barcode = ?",
		append(args, barcode)...)
	if err != nil {
		return nil, fmt.Errorf("updating product: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}
	return s.GetProductByBarcode(ctx, barcode)
}

// AdjustStock applies one add/remove operation transactionally:
// the stock count and the ledger entry move together, and a remove
// that exceeds the current stock fails without touching either.
func (s *DuckStore) AdjustStock(ctx context.Context, barcode string, adj StockAdjustment) (*models.Product, error) {
	if adj.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if adj.Direction != models.StockAdd && adj.Direction != models.StockRemove {
		return nil, fmt.Errorf("unknown stock direction %q", adj.Direction)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var productID string
	var current int
	err = tx.QueryRowContext(ctx,
		`SELECT id, current_stock FROM products WHERE barcode = ?`, barcode).Scan(&productID, &current)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading product stock: %w", err)
	}

	delta := adj.Quantity
	if adj.Direction == models.StockRemove {
		if adj.Quantity > current {
			return nil, fmt.Errorf("%w: cannot remove %d, only %d in stock", ErrInsufficientStock, adj.Quantity, current)
		}
		delta = -adj.Quantity
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`UPDATE products SET current_stock = current_stock + ?, updated_at = ? WHERE id = ?`,
		delta, now, productID); err != nil {
		return nil, fmt.Errorf("updating stock: %w", err)
	}

	if err := insertHistory(ctx, tx, productID, models.StockHistoryEntry{
		Quantity:    adj.Quantity,
		Direction:   adj.Direction,
		Note:        adj.Note,
		Supplier:    adj.Supplier,
		Location:    adj.Location,
		AddedByName: adj.ActorName,
		CreatedAt:   now,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing stock adjustment: %w", err)
	}
	return s.GetProductByBarcode(ctx, barcode)
}
