// handlers_scans_test.go - Tests for scan handlers
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/shalset/barcode-backend/internal/models"
)

func TestHandleCreateScan(t *testing.T) {
	tests := []struct {
		name    string
		request createScanRequest
		wantErr bool
		errCode string
	}{
		{
			name:    "keyboard scan",
			request: createScanRequest{Barcode: "4006381333931", ScanMode: "keyboard"},
		},
		{
			name:    "camera scan with device info",
			request: createScanRequest{Barcode: "4006381333931", ScanMode: "camera", DeviceInfo: "webcam"},
		},
		{
			name:    "mode defaults to keyboard",
			request: createScanRequest{Barcode: "4006381333931"},
		},
		{
			name:    "missing barcode",
			request: createScanRequest{ScanMode: "keyboard"},
			wantErr: true,
			errCode: "VALIDATION_ERROR",
		},
		{
			name:    "unknown mode",
			request: createScanRequest{Barcode: "4006381333931", ScanMode: "telepathy"},
			wantErr: true,
			errCode: "VALIDATION_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, st, user := newTestHandler(t)

			c, rec := request(t, user, http.MethodPost, "/api/scans", tt.request)
			err := handler.HandleCreateScan(c)

			if tt.wantErr {
				requireAPIError(t, err, tt.errCode)
				assert.Equal(t, 0, st.ScanCount())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, http.StatusCreated, rec.Code)
			assert.Equal(t, 1, st.ScanCount())

			var scan models.Scan
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &scan))
			assert.Equal(t, tt.request.Barcode, scan.Barcode)
			assert.Equal(t, user.ID, scan.UserID)
			assert.True(t, scan.Mode.Valid())
		})
	}
}

func TestHandleListScansPagination(t *testing.T) {
	handler, st, user := newTestHandler(t)
	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 25; i++ {
		_, err := st.InsertScan(context.Background(), models.Scan{
			Barcode:   "CODE",
			UserID:    user.ID,
			Mode:      models.ScanModeKeyboard,
			ScannedAt: base.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}

	c, rec := request(t, user, http.MethodGet, "/api/scans?page=2&limit=10", nil)
	require.NoError(t, handler.HandleListScans(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Scans      []models.Scan     `json:"scans"`
		Pagination models.Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Scans, 10)
	assert.Equal(t, 25, resp.Pagination.Total)
	assert.Equal(t, 3, resp.Pagination.Pages)
	assert.Equal(t, 2, resp.Pagination.Page)
}

func TestHandleListScansDefaultLimitMatchesMetadata(t *testing.T) {
	handler, st, user := newTestHandler(t)
	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 60; i++ {
		_, err := st.InsertScan(context.Background(), models.Scan{
			Barcode:   "CODE",
			UserID:    user.ID,
			Mode:      models.ScanModeKeyboard,
			ScannedAt: base.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}

	c, rec := request(t, user, http.MethodGet, "/api/scans", nil)
	require.NoError(t, handler.HandleListScans(c))

	var resp struct {
		Scans      []models.Scan     `json:"scans"`
		Pagination models.Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Scans, 50)
	assert.Equal(t, 50, resp.Pagination.Limit)
	assert.Equal(t, 60, resp.Pagination.Total)
	assert.Equal(t, 2, resp.Pagination.Pages)

	c, rec = request(t, user, http.MethodGet, "/api/scans/all", nil)
	require.NoError(t, handler.HandleListAllScans(c))
	resp.Scans = nil
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Scans, 60)
	assert.Equal(t, 100, resp.Pagination.Limit)
	assert.Equal(t, 1, resp.Pagination.Pages)
}

func TestHandleListScansExcludesOtherUsers(t *testing.T) {
	handler, st, user := newTestHandler(t)
	st.AddUser("user-2", "bob", "Bob Lim", "hash")
	for _, uid := range []string{user.ID, "user-2"} {
		_, err := st.InsertScan(context.Background(), models.Scan{
			Barcode: "CODE", UserID: uid, Mode: models.ScanModeKeyboard,
		})
		require.NoError(t, err)
	}

	c, rec := request(t, user, http.MethodGet, "/api/scans", nil)
	require.NoError(t, handler.HandleListScans(c))

	var resp struct {
		Scans []models.Scan `json:"scans"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Scans, 1)
	assert.Equal(t, user.ID, resp.Scans[0].UserID)

	c, rec = request(t, user, http.MethodGet, "/api/scans/all", nil)
	require.NoError(t, handler.HandleListAllScans(c))
	resp.Scans = nil
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Scans, 2)
}

func TestHandleScanStats(t *testing.T) {
	handler, st, user := newTestHandler(t)
	now := time.Now().UTC()
	times := []time.Time{now, now.Add(-time.Minute), now.AddDate(0, 0, -2)}
	for _, ts := range times {
		_, err := st.InsertScan(context.Background(), models.Scan{
			Barcode: "CODE", UserID: user.ID, Mode: models.ScanModeCamera, ScannedAt: ts,
		})
		require.NoError(t, err)
	}

	c, rec := request(t, user, http.MethodGet, "/api/scans/stats", nil)
	require.NoError(t, handler.HandleScanStats(c))

	var stats models.ScanStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 3, stats.TotalScans)
	assert.Equal(t, 2, stats.TodayScans)
	assert.Len(t, stats.RecentScans, 3)
}

func TestHandleCleanupScans(t *testing.T) {
	handler, st, user := newTestHandler(t)
	now := time.Now().UTC()
	_, err := st.InsertScan(context.Background(), models.Scan{
		Barcode: "OLD", UserID: user.ID, Mode: models.ScanModeKeyboard, ScannedAt: now.AddDate(0, 0, -10),
	})
	require.NoError(t, err)
	_, err = st.InsertScan(context.Background(), models.Scan{
		Barcode: "FRESH", UserID: user.ID, Mode: models.ScanModeKeyboard, ScannedAt: now,
	})
	require.NoError(t, err)

	c, rec := request(t, user, http.MethodDelete, "/api/scans/cleanup?days=3", nil)
	require.NoError(t, handler.HandleCleanupScans(c))

	var resp map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp["deleted"])
	assert.Equal(t, 1, st.ScanCount())
}

func TestHandleCleanupScansRejectsBadDays(t *testing.T) {
	handler, _, user := newTestHandler(t)

	c, _ := request(t, user, http.MethodDelete, "/api/scans/cleanup?days=zero", nil)
	requireAPIError(t, handler.HandleCleanupScans(c), "VALIDATION_ERROR")
}

func TestHandleExportScansMsgpack(t *testing.T) {
	handler, st, user := newTestHandler(t)
	for i := 0; i < 3; i++ {
		_, err := st.InsertScan(context.Background(), models.Scan{
			Barcode: "CODE", UserID: user.ID, Mode: models.ScanModeKeyboard,
		})
		require.NoError(t, err)
	}

	c, rec := request(t, user, http.MethodGet, "/api/scans/export/msgpack", nil)
	require.NoError(t, handler.HandleExportScansMsgpack(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/x-msgpack", rec.Header().Get("Content-Type"))

	var exported []models.Scan
	require.NoError(t, msgpack.Unmarshal(rec.Body.Bytes(), &exported))
	assert.Len(t, exported, 3)
}
