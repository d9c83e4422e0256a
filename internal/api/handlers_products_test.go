// handlers_products_test.go - Tests for product and stock handlers
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shalset/barcode-backend/internal/models"
	"github.com/shalset/barcode-backend/internal/testutil"
)

func seedProduct(st *testutil.MockStore, barcode string, stock int) *models.Product {
	return st.AddProduct(models.Product{
		Barcode:      barcode,
		Name:         "Instant Noodles",
		CurrentStock: stock,
		BuyingPrice:  2.5,
		SellingPrice: 4.0,
	})
}

func TestHandleCheckProduct(t *testing.T) {
	handler, st, user := newTestHandler(t)
	seedProduct(st, "4006381333931", 12)

	c, rec := request(t, user, http.MethodGet, "/api/products/check/4006381333931", nil)
	c.SetParamNames("barcode")
	c.SetParamValues("4006381333931")
	require.NoError(t, handler.HandleCheckProduct(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var p models.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, 12, p.CurrentStock)
}

func TestHandleCheckProductNotFound(t *testing.T) {
	handler, _, user := newTestHandler(t)

	c, _ := request(t, user, http.MethodGet, "/api/products/check/unknown", nil)
	c.SetParamNames("barcode")
	c.SetParamValues("unknown")
	apiErr := requireAPIError(t, handler.HandleCheckProduct(c), "NOT_FOUND")
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestHandleCreateProduct(t *testing.T) {
	tests := []struct {
		name    string
		request createProductRequest
		wantErr bool
		errCode string
	}{
		{
			name: "valid product",
			request: createProductRequest{
				Barcode: "4006381333931", Name: "Instant Noodles", Quantity: 10,
				BuyingPrice: 2.5, SellingPrice: 4.0, BoughtFrom: "ACME Wholesale",
			},
		},
		{
			name:    "missing name",
			request: createProductRequest{Barcode: "4006381333931", Quantity: 10},
			wantErr: true,
			errCode: "VALIDATION_ERROR",
		},
		{
			name:    "missing barcode",
			request: createProductRequest{Name: "Instant Noodles", Quantity: 10},
			wantErr: true,
			errCode: "VALIDATION_ERROR",
		},
		{
			name:    "zero quantity",
			request: createProductRequest{Barcode: "4006381333931", Name: "Instant Noodles"},
			wantErr: true,
			errCode: "VALIDATION_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, _, user := newTestHandler(t)

			c, rec := request(t, user, http.MethodPost, "/api/products", tt.request)
			err := handler.HandleCreateProduct(c)

			if tt.wantErr {
				requireAPIError(t, err, tt.errCode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, http.StatusCreated, rec.Code)

			var p models.Product
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
			assert.Equal(t, tt.request.Quantity, p.CurrentStock)
			require.Len(t, p.StockHistory, 1)
			assert.Equal(t, models.StockAdd, p.StockHistory[0].Direction)
			assert.Equal(t, user.FullName, p.CreatedByName)
		})
	}
}

func TestHandleCreateProductDuplicateBarcode(t *testing.T) {
	handler, st, user := newTestHandler(t)
	seedProduct(st, "4006381333931", 1)

	c, _ := request(t, user, http.MethodPost, "/api/products", createProductRequest{
		Barcode: "4006381333931", Name: "Other Noodles", Quantity: 5,
	})
	apiErr := requireAPIError(t, handler.HandleCreateProduct(c), "CONFLICT")
	assert.Equal(t, http.StatusConflict, apiErr.Status)
}

func TestHandleUpdateProduct(t *testing.T) {
	handler, st, user := newTestHandler(t)
	seedProduct(st, "4006381333931", 7)

	name := "Premium Noodles"
	price := 5.5
	c, rec := request(t, user, http.MethodPut, "/api/products/4006381333931", models.ProductUpdate{
		Name:         &name,
		SellingPrice: &price,
	})
	c.SetParamNames("barcode")
	c.SetParamValues("4006381333931")
	require.NoError(t, handler.HandleUpdateProduct(c))

	var p models.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, "Premium Noodles", p.Name)
	assert.Equal(t, 5.5, p.SellingPrice)
	assert.Equal(t, 7, p.CurrentStock, "update must not touch stock")
	assert.Equal(t, 2.5, p.BuyingPrice, "absent fields stay unchanged")
}

func TestHandleAddStock(t *testing.T) {
	handler, st, user := newTestHandler(t)
	seedProduct(st, "4006381333931", 3)

	c, rec := request(t, user, http.MethodPost, "/api/products/4006381333931/add-stock", stockRequest{
		Quantity: 5, Supplier: "ACME Wholesale",
	})
	c.SetParamNames("barcode")
	c.SetParamValues("4006381333931")
	require.NoError(t, handler.HandleAddStock(c))

	var p models.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, 8, p.CurrentStock)
	require.NotEmpty(t, p.StockHistory)
	assert.Equal(t, models.StockAdd, p.StockHistory[0].Direction)
	assert.Equal(t, "ACME Wholesale", p.StockHistory[0].Supplier)
}

func TestHandleRemoveStock(t *testing.T) {
	handler, st, user := newTestHandler(t)
	seedProduct(st, "4006381333931", 10)

	c, rec := request(t, user, http.MethodPost, "/api/products/4006381333931/remove-stock", stockRequest{
		Quantity: 4, Location: "Front Store",
	})
	c.SetParamNames("barcode")
	c.SetParamValues("4006381333931")
	require.NoError(t, handler.HandleRemoveStock(c))

	var p models.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, 6, p.CurrentStock)
	assert.Equal(t, models.StockRemove, p.StockHistory[0].Direction)
}

func TestHandleRemoveStockExceedsAvailable(t *testing.T) {
	handler, st, user := newTestHandler(t)
	seedProduct(st, "4006381333931", 2)

	c, _ := request(t, user, http.MethodPost, "/api/products/4006381333931/remove-stock", stockRequest{
		Quantity: 5,
	})
	c.SetParamNames("barcode")
	c.SetParamValues("4006381333931")
	apiErr := requireAPIError(t, handler.HandleRemoveStock(c), "INSUFFICIENT_STOCK")
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)

	// Stock must be untouched after the rejection.
	p, err := st.GetProductByBarcode(c.Request().Context(), "4006381333931")
	require.NoError(t, err)
	assert.Equal(t, 2, p.CurrentStock)
}

func TestHandleAdjustStockRejectsZeroQuantity(t *testing.T) {
	handler, st, user := newTestHandler(t)
	seedProduct(st, "4006381333931", 2)

	c, _ := request(t, user, http.MethodPost, "/api/products/4006381333931/add-stock", stockRequest{})
	c.SetParamNames("barcode")
	c.SetParamValues("4006381333931")
	requireAPIError(t, handler.HandleAddStock(c), "VALIDATION_ERROR")
}

func TestHandleListProductsSearch(t *testing.T) {
	handler, st, user := newTestHandler(t)
	seedProduct(st, "4006381333931", 2)
	st.AddProduct(models.Product{Barcode: "111", Name: "Green Tea", CurrentStock: 4})

	c, rec := request(t, user, http.MethodGet, "/api/products?search=noodles", nil)
	require.NoError(t, handler.HandleListProducts(c))

	var resp struct {
		Products   []models.Product  `json:"products"`
		Pagination models.Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Products, 1)
	assert.Equal(t, "Instant Noodles", resp.Products[0].Name)
	assert.Equal(t, 1, resp.Pagination.Total)
}

func TestHandleListProductsPagination(t *testing.T) {
	handler, st, user := newTestHandler(t)
	for i := 0; i < 60; i++ {
		st.AddProduct(models.Product{
			Barcode:      fmt.Sprintf("barcode-%03d", i),
			Name:         "Bulk Item",
			CurrentStock: 1,
		})
	}

	c, rec := request(t, user, http.MethodGet, "/api/products?page=2&limit=25", nil)
	require.NoError(t, handler.HandleListProducts(c))

	var resp struct {
		Products   []models.Product  `json:"products"`
		Pagination models.Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Products, 25)
	assert.Equal(t, 60, resp.Pagination.Total)
	assert.Equal(t, 3, resp.Pagination.Pages)
	assert.Equal(t, 2, resp.Pagination.Page)

	// Default page size applies when limit is omitted.
	c, rec = request(t, user, http.MethodGet, "/api/products", nil)
	require.NoError(t, handler.HandleListProducts(c))
	resp.Products = nil
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Products, 50)
	assert.Equal(t, 50, resp.Pagination.Limit)
	assert.Equal(t, 2, resp.Pagination.Pages)
}
