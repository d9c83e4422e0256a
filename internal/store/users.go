package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shalset/barcode-backend/internal/models"
)

// CreateUser inserts a user record with an already-hashed password.
func (s *DuckStore) CreateUser(ctx context.Context, username, fullName, passwordHash string) (*models.User, error) {
	u := &models.User{
		ID:           uuid.New().String(),
		Username:     username,
		FullName:     fullName,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, full_name, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.FullName, u.PasswordHash, u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting user: %w", err)
	}
	return u, nil
}

func (s *DuckStore) scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	var lastLogin sql.NullTime
	err := row.Scan(&u.ID, &u.Username, &u.FullName, &u.PasswordHash, &u.CreatedAt, &lastLogin)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning user: %w", err)
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	return &u, nil
}

// GetUserByUsername looks a user up for login.
func (s *DuckStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, full_name, password_hash, created_at, last_login FROM users WHERE username = ?`,
		username)
	return s.scanUser(row)
}

// GetUserByID resolves the user behind a bearer token.
func (s *DuckStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, full_name, password_hash, created_at, last_login FROM users WHERE id = ?`,
		id)
	return s.scanUser(row)
}

// TouchLastLogin records a successful login.
func (s *DuckStore) TouchLastLogin(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET last_login = ? WHERE id = ?`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("updating last login: %w", err)
	}
	return nil
}

// CountUsers is used at startup to decide whether to seed the default
// operator account.
func (s *DuckStore) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return n, nil
}
