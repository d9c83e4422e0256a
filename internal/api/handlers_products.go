// handlers_products.go - Product and stock handlers
package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/shalset/barcode-backend/internal/auth"
	"github.com/shalset/barcode-backend/internal/models"
	"github.com/shalset/barcode-backend/internal/store"
)

type createProductRequest struct {
	Barcode      string  `json:"barcode"`
	Name         string  `json:"name"`
	Quantity     int     `json:"quantity"`
	Note         string  `json:"note"`
	BuyingPrice  float64 `json:"buyingPrice"`
	SellingPrice float64 `json:"sellingPrice"`
	BoughtFrom   string  `json:"boughtFrom"`
	SellLocation string  `json:"sellLocation"`
}

type stockRequest struct {
	Quantity int    `json:"quantity"`
	Note     string `json:"note"`
	Supplier string `json:"supplier"`
	Location string `json:"location"`
}

// HandleCheckProduct looks a product up by barcode. A 404 means the
// barcode is unknown and the client should offer the create form.
func (h *Handler) HandleCheckProduct(c echo.Context) error {
	barcode := c.Param("barcode")
	product, err := h.store.GetProductByBarcode(c.Request().Context(), barcode)
	if err != nil {
		return storeError(err, "product", barcode)
	}
	return c.JSON(http.StatusOK, product)
}

// HandleListProducts returns a filtered product page.
func (h *Handler) HandleListProducts(c echo.Context) error {
	page, limit := pageParams(c, 50, 200)
	q := store.ProductQuery{
		Search:     strings.TrimSpace(c.QueryParam("search")),
		CategoryID: c.QueryParam("category"),
		Page:       page,
		Limit:      limit,
	}

	products, total, err := h.store.ListProducts(c.Request().Context(), q)
	if err != nil {
		return storeError(err, "products", q.Search)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"products":   products,
		"pagination": models.NewPagination(page, limit, total),
	})
}

// HandleCreateProduct registers a new product with its opening stock.
func (h *Handler) HandleCreateProduct(c echo.Context) error {
	var req createProductRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if strings.TrimSpace(req.Barcode) == "" {
		return NewValidationError("barcode")
	}
	if strings.TrimSpace(req.Name) == "" {
		return NewValidationError("name")
	}
	if req.Quantity <= 0 {
		return NewValidationError("quantity")
	}

	user := auth.CurrentUser(c)
	product, err := h.store.CreateProduct(c.Request().Context(), store.ProductInput{
		Barcode:       req.Barcode,
		Name:          req.Name,
		Quantity:      req.Quantity,
		Note:          req.Note,
		BuyingPrice:   req.BuyingPrice,
		SellingPrice:  req.SellingPrice,
		BoughtFrom:    req.BoughtFrom,
		SellLocation:  req.SellLocation,
		CreatedByName: user.FullName,
	})
	if err != nil {
		return storeError(err, "product", req.Barcode)
	}
	return c.JSON(http.StatusCreated, product)
}

// HandleUpdateProduct patches product metadata. Absent fields stay as
// they are; stock moves only through the stock endpoints.
func (h *Handler) HandleUpdateProduct(c echo.Context) error {
	barcode := c.Param("barcode")
	var upd models.ProductUpdate
	if err := c.Bind(&upd); err != nil {
		return NewBadRequestError("invalid request body", err)
	}

	product, err := h.store.UpdateProduct(c.Request().Context(), barcode, upd)
	if err != nil {
		return storeError(err, "product", barcode)
	}
	return c.JSON(http.StatusOK, product)
}

// HandleAddStock appends stock to a product.
func (h *Handler) HandleAddStock(c echo.Context) error {
	return h.adjustStock(c, models.StockAdd)
}

// HandleRemoveStock removes stock from a product. Removing more than
// is available fails with INSUFFICIENT_STOCK.
func (h *Handler) HandleRemoveStock(c echo.Context) error {
	return h.adjustStock(c, models.StockRemove)
}

func (h *Handler) adjustStock(c echo.Context, direction models.StockDirection) error {
	barcode := c.Param("barcode")
	var req stockRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if req.Quantity <= 0 {
		return NewValidationError("quantity")
	}

	user := auth.CurrentUser(c)
	product, err := h.store.AdjustStock(c.Request().Context(), barcode, store.StockAdjustment{
		Direction: direction,
		Quantity:  req.Quantity,
		Note:      req.Note,
		Supplier:  req.Supplier,
		Location:  req.Location,
		ActorName: user.FullName,
	})
	if err != nil {
		return storeError(err, "product", barcode)
	}
	return c.JSON(http.StatusOK, product)
}
