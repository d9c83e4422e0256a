// handlers_auth.go - Login and session handlers
package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/shalset/barcode-backend/internal/auth"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  interface{} `json:"user"`
}

// HandleLogin verifies credentials and returns a bearer token.
func (h *Handler) HandleLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		return NewValidationError("username")
	}
	if req.Password == "" {
		return NewValidationError("password")
	}

	token, user, err := h.auth.Login(c.Request().Context(), req.Username, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		return NewUnauthorizedError("invalid username or password")
	}
	if err != nil {
		return NewInternalError("login failed", err)
	}

	return c.JSON(http.StatusOK, loginResponse{Token: token, User: user})
}

// HandleMe returns the authenticated user.
func (h *Handler) HandleMe(c echo.Context) error {
	return c.JSON(http.StatusOK, auth.CurrentUser(c))
}

// HandleLogout acknowledges a logout. Tokens are stateless; clients
// drop theirs and it expires on its own.
func (h *Handler) HandleLogout(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"message": "logged out",
	})
}
