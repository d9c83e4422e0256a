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

func (s *DuckStore) CreateCategory(ctx context.Context, name, description, color, createdByName string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("category name is required")
	}

	var exists int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM categories WHERE lower(name) = lower(?)`, name).Scan(&exists); err != nil {
		return nil, fmt.Errorf("checking category name: %w", err)
	}
	if exists > 0 {
		return nil, ErrDuplicateCategory
	}

	now := time.Now().UTC()
	c := &models.Category{
		ID:            uuid.New().String(),
		Name:          name,
		Description:   description,
		Color:         color,
		CreatedByName: createdByName,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (id, name, description, color, created_by_name, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Description, c.Color, c.CreatedByName, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting category: %w", err)
	}
	return c, nil
}

func (s *DuckStore) ListCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description, color, created_by_name, created_at, updated_at
		 FROM categories ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()

	categories := make([]models.Category, 0)
	for rows.Next() {
		var c models.Category
		var description, color, createdBy sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &description, &color, &createdBy, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		c.Description = description.String
		c.Color = color.String
		c.CreatedByName = createdBy.String
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *DuckStore) UpdateCategory(ctx context.Context, id, name, description, color string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("category name is required")
	}

	var taken int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM categories WHERE lower(name) = lower(?) AND id <> ?`, name, id).Scan(&taken); err != nil {
		return nil, fmt.Errorf("checking category name: %w", err)
	}
	if taken > 0 {
		return nil, ErrDuplicateCategory
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, description = ?, color = ?, updated_at = ? WHERE id = ?`,
		name, description, color, now, id)
	if err != nil {
		return nil, fmt.Errorf("updating category: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, color, created_by_name, created_at, updated_at
		 FROM categories WHERE id = ?`, id)
	var c models.Category
	var desc, col, createdBy sql.NullString
	err = row.Scan(&c.ID, &c.Name, &desc, &col, &createdBy, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reloading category: %w", err)
	}
	c.Description = desc.String
	c.Color = col.String
	c.CreatedByName = createdBy.String
	return &c, nil
}

// DeleteCategory removes the category and detaches any products that
// referenced it. The products themselves survive.
func (s *DuckStore) DeleteCategory(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE products SET category_id = NULL WHERE category_id = ?`, id); err != nil {
		return fmt.Errorf("detaching products: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting category: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}
