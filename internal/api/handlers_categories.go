// handlers_categories.go - Category handlers
package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/shalset/barcode-backend/internal/auth"
)

type categoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

// HandleListCategories returns all categories sorted by name.
func (h *Handler) HandleListCategories(c echo.Context) error {
	categories, err := h.store.ListCategories(c.Request().Context())
	if err != nil {
		return storeError(err, "categories", "")
	}
	return c.JSON(http.StatusOK, categories)
}

// HandleCreateCategory creates a category.
func (h *Handler) HandleCreateCategory(c echo.Context) error {
	var req categoryRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if strings.TrimSpace(req.Name) == "" {
		return NewValidationError("name")
	}

	user := auth.CurrentUser(c)
	category, err := h.store.CreateCategory(c.Request().Context(),
		req.Name, req.Description, req.Color, user.FullName)
	if err != nil {
		return storeError(err, "category", req.Name)
	}
	return c.JSON(http.StatusCreated, category)
}

// HandleUpdateCategory renames or restyles a category.
func (h *Handler) HandleUpdateCategory(c echo.Context) error {
	id := c.Param("id")
	var req categoryRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if strings.TrimSpace(req.Name) == "" {
		return NewValidationError("name")
	}

	category, err := h.store.UpdateCategory(c.Request().Context(),
		id, req.Name, req.Description, req.Color)
	if err != nil {
		return storeError(err, "category", id)
	}
	return c.JSON(http.StatusOK, category)
}

// HandleDeleteCategory deletes a category. Products it contained are
// left uncategorized.
func (h *Handler) HandleDeleteCategory(c echo.Context) error {
	id := c.Param("id")
	if err := h.store.DeleteCategory(c.Request().Context(), id); err != nil {
		return storeError(err, "category", id)
	}
	return c.JSON(http.StatusOK, map[string]string{
		"message": "category deleted",
	})
}
