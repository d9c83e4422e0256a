// handlers_scans.go - Scan feed handlers
package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/shalset/barcode-backend/internal/auth"
	"github.com/shalset/barcode-backend/internal/models"
)

const defaultRetentionDays = 3

type createScanRequest struct {
	Barcode    string `json:"barcode"`
	ScanMode   string `json:"scanMode"`
	DeviceInfo string `json:"deviceInfo"`
	Location   string `json:"location"`
}

// HandleCreateScan records one scan for the authenticated user and
// pushes it to live feed subscribers.
func (h *Handler) HandleCreateScan(c echo.Context) error {
	var req createScanRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	req.Barcode = strings.TrimSpace(req.Barcode)
	if req.Barcode == "" {
		return NewValidationError("barcode")
	}
	mode := models.ScanMode(req.ScanMode)
	if req.ScanMode == "" {
		mode = models.ScanModeKeyboard
	}
	if !mode.Valid() {
		return NewValidationError("scanMode")
	}

	user := auth.CurrentUser(c)
	scan, err := h.store.InsertScan(c.Request().Context(), models.Scan{
		Barcode:    req.Barcode,
		UserID:     user.ID,
		Mode:       mode,
		DeviceInfo: req.DeviceInfo,
		Location:   req.Location,
	})
	if err != nil {
		return storeError(err, "scan", req.Barcode)
	}

	h.hub.Broadcast(*scan)
	return c.JSON(http.StatusCreated, scan)
}

// HandleListScans returns the authenticated user's scans, newest first.
func (h *Handler) HandleListScans(c echo.Context) error {
	return h.listScans(c, auth.CurrentUser(c).ID, 50)
}

// HandleListAllScans returns every user's scans, newest first.
func (h *Handler) HandleListAllScans(c echo.Context) error {
	return h.listScans(c, "", 100)
}

func (h *Handler) listScans(c echo.Context, userID string, defaultLimit int) error {
	page, limit := pageParams(c, defaultLimit, 500)

	scans, total, err := h.store.ListScans(c.Request().Context(), userID, page, limit)
	if err != nil {
		return storeError(err, "scans", userID)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"scans":      scans,
		"pagination": models.NewPagination(page, limit, total),
	})
}

// HandleScanStats returns total/today counts and the five most recent
// scans for the authenticated user.
func (h *Handler) HandleScanStats(c echo.Context) error {
	user := auth.CurrentUser(c)
	stats, err := h.store.ScanStats(c.Request().Context(), user.ID)
	if err != nil {
		return storeError(err, "scan stats", user.ID)
	}
	return c.JSON(http.StatusOK, stats)
}

// HandleExportScansMsgpack streams the user's full scan history as a
// msgpack-encoded array. Much smaller than JSON for bulk export.
func (h *Handler) HandleExportScansMsgpack(c echo.Context) error {
	user := auth.CurrentUser(c)

	// Page through the full history.
	const pageSize = 1000
	all := make([]models.Scan, 0)
	for page := 1; ; page++ {
		scans, total, err := h.store.ListScans(c.Request().Context(), user.ID, page, pageSize)
		if err != nil {
			return storeError(err, "scans", user.ID)
		}
		all = append(all, scans...)
		if len(all) >= total || len(scans) == 0 {
			break
		}
	}

	data, err := msgpack.Marshal(all)
	if err != nil {
		return NewInternalError("failed to encode scans", err)
	}

	c.Response().Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="scans-%s.msgpack"`, time.Now().UTC().Format("2006-01-02")))
	return c.Blob(http.StatusOK, "application/x-msgpack", data)
}

// HandleCleanupScans deletes scans older than the given number of days
// (default 3).
func (h *Handler) HandleCleanupScans(c echo.Context) error {
	days := defaultRetentionDays
	if raw := c.QueryParam("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return NewValidationError("days")
		}
		days = parsed
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	deleted, err := h.store.DeleteScansBefore(c.Request().Context(), cutoff)
	if err != nil {
		return storeError(err, "scans", "cleanup")
	}

	fmt.Printf("[API] Cleaned up %d scans older than %d days\n", deleted, days)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"deleted": deleted,
		"days":    days,
	})
}
