// Package client is the Go client for the barcode inventory API. The
// scanner command drives the capture pipeline through it.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shalset/barcode-backend/internal/capture"
	"github.com/shalset/barcode-backend/internal/models"
)

// Client talks to the inventory backend over REST.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New creates a client for the given base URL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: 12 * time.Second},
	}
}

// apiError mirrors the server's structured error body.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Login authenticates and stores the bearer token for later calls.
func (c *Client) Login(ctx context.Context, username, password string) (*models.User, error) {
	var resp loginResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, &resp)
	if err != nil {
		return nil, err
	}
	c.token = resp.Token
	return resp.User, nil
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := c.doJSON(ctx, http.MethodGet, "/api/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// SubmitScan records one completed scan. Implements capture.Submitter.
func (c *Client) SubmitScan(ctx context.Context, barcode string, mode models.ScanMode, deviceTag string) error {
	return c.doJSON(ctx, http.MethodPost, "/api/scans", map[string]string{
		"barcode":    barcode,
		"scanMode":   string(mode),
		"deviceInfo": deviceTag,
	}, nil)
}

// ScanStats fetches the user's scan statistics.
func (c *Client) ScanStats(ctx context.Context) (*models.ScanStats, error) {
	var stats models.ScanStats
	if err := c.doJSON(ctx, http.MethodGet, "/api/scans/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// LookupProduct checks a barcode. Unknown barcodes map to
// capture.ErrProductNotFound so the workflow can open the create form.
func (c *Client) LookupProduct(ctx context.Context, barcode string) (*models.Product, error) {
	var product models.Product
	err := c.doJSON(ctx, http.MethodGet, "/api/products/check/"+url.PathEscape(barcode), nil, &product)
	if err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && httpErr.Status == http.StatusNotFound {
			return nil, capture.ErrProductNotFound
		}
		return nil, err
	}
	return &product, nil
}

// CreateProduct registers a new product. Implements part of
// capture.ProductService.
func (c *Client) CreateProduct(ctx context.Context, in capture.CreateProductInput) (*models.Product, error) {
	var product models.Product
	if err := c.doJSON(ctx, http.MethodPost, "/api/products", in, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// AdjustStock adds or removes stock for a product.
func (c *Client) AdjustStock(ctx context.Context, barcode string, in capture.StockAdjustment) (*models.Product, error) {
	endpoint := "/api/products/" + url.PathEscape(barcode) + "/add-stock"
	body := map[string]interface{}{
		"quantity": in.Quantity,
		"note":     in.Note,
		"supplier": in.Counterparty,
	}
	if in.Direction == models.StockRemove {
		endpoint = "/api/products/" + url.PathEscape(barcode) + "/remove-stock"
		body = map[string]interface{}{
			"quantity": in.Quantity,
			"note":     in.Note,
			"location": in.Counterparty,
		}
	}

	var product models.Product
	if err := c.doJSON(ctx, http.MethodPost, endpoint, body, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// HTTPError is a non-2xx response from the server.
type HTTPError struct {
	Status  int
	Code    string
	Message string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server returned %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("server returned %d", e.Status)
}

// doJSON performs one request with an optional JSON body and decodes
// the JSON response into out when out is non-nil.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		httpErr := &HTTPError{Status: resp.StatusCode}
		var payload apiError
		if json.Unmarshal(raw, &payload) == nil {
			httpErr.Code = payload.Code
			httpErr.Message = payload.Message
		}
		return httpErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// Interface checks: the scanner wires the client straight into the
// capture pipeline.
var (
	_ capture.Submitter      = (*Client)(nil)
	_ capture.ProductService = (*Client)(nil)
)
