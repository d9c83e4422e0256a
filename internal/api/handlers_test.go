// handlers_test.go - Shared test helpers for API handlers
package api

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/shalset/barcode-backend/internal/auth"
	"github.com/shalset/barcode-backend/internal/models"
	"github.com/shalset/barcode-backend/internal/testutil"
)

// newTestHandler wires a handler onto an empty mock store with one
// seeded operator.
func newTestHandler(t *testing.T) (*Handler, *testutil.MockStore, *models.User) {
	t.Helper()
	st := testutil.NewMockStore()
	user := st.AddUser("user-1", "alice", "Alice Tan", "unused-hash")
	svc := auth.NewService(st, "test-secret", time.Hour)
	return NewHandler(st, svc, "test"), st, user
}

// request builds an authenticated echo context carrying an optional
// JSON body.
func request(t *testing.T, user *models.User, method, path string, body interface{}) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()

	httpReq := httptest.NewRequest(method, path, nil)
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		httpReq = httptest.NewRequest(method, path, bytes.NewReader(raw))
		httpReq.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(httpReq, rec)
	if user != nil {
		auth.SetTestUser(c, user)
	}
	return c, rec
}

// requireAPIError asserts the handler returned an APIError with the
// given code.
func requireAPIError(t *testing.T, err error, code string) *APIError {
	t.Helper()
	require.Error(t, err)
	apiErr, ok := err.(*APIError)
	require.True(t, ok, "expected *APIError, got %T", err)
	require.Equal(t, code, apiErr.Code)
	return apiErr
}
