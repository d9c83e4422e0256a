// handlers.go - API handler wiring
package api

import (
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/shalset/barcode-backend/internal/auth"
	"github.com/shalset/barcode-backend/internal/store"
)

// Handler handles API requests.
type Handler struct {
	store   store.Store
	auth    *auth.Service
	hub     *ScanHub
	version string
}

// NewHandler creates a new API handler.
func NewHandler(st store.Store, authSvc *auth.Service, version string) *Handler {
	return &Handler{
		store:   st,
		auth:    authSvc,
		hub:     NewScanHub(),
		version: version,
	}
}

// RegisterRoutes registers all API routes with the Echo instance.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.HandleHealth)
	e.POST("/api/auth/login", h.HandleLogin)

	authed := e.Group("/api", h.auth.Middleware())

	authed.GET("/auth/me", h.HandleMe)
	authed.POST("/auth/logout", h.HandleLogout)

	authed.POST("/scans", h.HandleCreateScan)
	authed.GET("/scans", h.HandleListScans)
	authed.GET("/scans/my", h.HandleListScans)
	authed.GET("/scans/all", h.HandleListAllScans)
	authed.GET("/scans/stats", h.HandleScanStats)
	authed.GET("/scans/export/msgpack", h.HandleExportScansMsgpack)
	authed.DELETE("/scans/cleanup", h.HandleCleanupScans)

	authed.GET("/products", h.HandleListProducts)
	authed.POST("/products", h.HandleCreateProduct)
	authed.GET("/products/check/:barcode", h.HandleCheckProduct)
	authed.GET("/products/:barcode", h.HandleCheckProduct)
	authed.PUT("/products/:barcode", h.HandleUpdateProduct)
	authed.POST("/products/:barcode/add-stock", h.HandleAddStock)
	authed.POST("/products/:barcode/remove-stock", h.HandleRemoveStock)

	authed.GET("/categories", h.HandleListCategories)
	authed.POST("/categories", h.HandleCreateCategory)
	authed.PUT("/categories/:id", h.HandleUpdateCategory)
	authed.DELETE("/categories/:id", h.HandleDeleteCategory)

	authed.GET("/stats/dashboard", h.HandleDashboardStats)
	authed.GET("/stats/category-distribution", h.HandleCategoryDistribution)
	authed.GET("/stats/inventory-value", h.HandleInventoryValue)

	authed.GET("/ws/scans", h.HandleScanFeed)
}

// pageParams reads the page/limit query params and clamps them the way
// the store does, so the pagination metadata in the response describes
// the query that actually ran.
func pageParams(c echo.Context, defaultLimit, maxLimit int) (int, int) {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
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

// storeError maps well-known store errors onto API errors. Unmatched
// errors become a 500.
func storeError(err error, resource, id string) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return NewNotFoundError(resource, id)
	case errors.Is(err, store.ErrDuplicateBarcode):
		return NewConflictError("a product with this barcode already exists")
	case errors.Is(err, store.ErrDuplicateCategory):
		return NewConflictError("a category with this name already exists")
	case errors.Is(err, store.ErrInsufficientStock):
		return NewInsufficientStockError(err.Error())
	case errors.Is(err, store.ErrInvalidQuantity):
		return NewValidationError("quantity")
	default:
		return NewInternalError("database operation failed", err)
	}
}
