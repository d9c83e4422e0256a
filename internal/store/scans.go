package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shalset/barcode-backend/internal/models"
)

// InsertScan persists one accepted scan event. ID and timestamp are
// filled in if the caller left them empty.
func (s *DuckStore) InsertScan(ctx context.Context, scan models.Scan) (*models.Scan, error) {
	if scan.ID == "" {
		scan.ID = uuid.New().String()
	}
	if scan.ScannedAt.IsZero() {
		scan.ScannedAt = time.Now().UTC()
	}
	if !scan.Mode.Valid() {
		scan.Mode = models.ScanModeKeyboard
	}
	if scan.Username == "" && scan.UserID != "" {
		user, err := s.GetUserByID(ctx, scan.UserID)
		if err != nil {
			return nil, fmt.Errorf("resolving scan user: %w", err)
		}
		scan.Username = user.Username
		scan.UserFullName = user.FullName
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scans (id, barcode, user_id, username, user_full_name, scan_mode, device_info, location, scanned_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		scan.ID, scan.Barcode, scan.UserID, scan.Username, scan.UserFullName,
		string(scan.Mode), scan.DeviceInfo, scan.Location, scan.ScannedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting scan: %w", err)
	}
	return &scan, nil
}

// ListScans returns scans newest first with skip/limit pagination.
// An empty userID lists scans across all users (admin view).
func (s *DuckStore) ListScans(ctx context.Context, userID string, page, limit int) ([]models.Scan, int, error) {
	page, limit = normalizePage(page, limit, 50, 500)
	offset := (page - 1) * limit

	where := ""
	args := []any{}
	if userID != "" {
		where = "WHERE user_id = ?"
		args = append(args, userID)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM scans "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting scans: %w", err)
	}

	query := fmt.Sprintf(
		"SELECT id, barcode, user_id, username, user_full_name, scan_mode, device_info, location, scanned_at FROM scans %s ORDER BY scanned_at DESC LIMIT ? OFFSET ?",
		where)
	rows, err := s.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing scans: %w", err)
	}
	defer rows.Close()

	scans, err := collectScans(rows)
	if err != nil {
		return nil, 0, err
	}
	return scans, total, nil
}

func collectScans(rows *sql.Rows) ([]models.Scan, error) {
	scans := make([]models.Scan, 0)
	for rows.Next() {
		var sc models.Scan
		var mode string
		var deviceInfo, location, fullName sql.NullString
		if err := rows.Scan(&sc.ID, &sc.Barcode, &sc.UserID, &sc.Username, &fullName,
			&mode, &deviceInfo, &location, &sc.ScannedAt); err != nil {
			return nil, fmt.Errorf("scanning scan row: %w", err)
		}
		sc.Mode = models.ScanMode(mode)
		sc.UserFullName = fullName.String
		sc.DeviceInfo = deviceInfo.String
		sc.Location = location.String
		scans = append(scans, sc)
	}
	return scans, rows.Err()
}

// ScanStats summarizes one user's activity: lifetime count, today's
// count and the 5 most recent scans.
func (s *DuckStore) ScanStats(ctx context.Context, userID string) (*models.ScanStats, error) {
	stats := &models.ScanStats{RecentScans: []models.Scan{}}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM scans WHERE user_id = ?`, userID).Scan(&stats.TotalScans); err != nil {
		return nil, fmt.Errorf("counting scans: %w", err)
	}

	todayStart := time.Now().UTC().Truncate(24 * time.Hour)
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM scans WHERE user_id = ? AND scanned_at >= ?`,
		userID, todayStart).Scan(&stats.TodayScans); err != nil {
		return nil, fmt.Errorf("counting today's scans: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, barcode, user_id, username, user_full_name, scan_mode, device_info, location, scanned_at
		 FROM scans WHERE user_id = ? ORDER BY scanned_at DESC LIMIT 5`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing recent scans: %w", err)
	}
	defer rows.Close()

	stats.RecentScans, err = collectScans(rows)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// DeleteScansBefore removes scans older than the cutoff and returns the
// number of rows deleted. Used by the retention cleanup loop and the
// manual cleanup endpoint.
func (s *DuckStore) DeleteScansBefore(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM scans WHERE scanned_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting old scans: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
