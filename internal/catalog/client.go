// Package catalog resolves products from the product service.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/imrishuroy/go-orderlifecycle/internal/orders"
)

const defaultTimeout = 5 * time.Second

// HTTPClient reads products from GET {baseURL}/products/{id}.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPClient constructs a catalog client. A nil httpClient gets a default
// one with the given timeout.
func NewHTTPClient(baseURL string, timeout time.Duration, httpClient *http.Client) *HTTPClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    httpClient,
	}
}

type productPayload struct {
	ID            json.RawMessage `json:"id"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity *int            `json:"stock_quantity"`
	Stock         *int            `json:"stock"`
}

// envelope accepts both {"product": {...}} and a bare product object.
type envelope struct {
	Product *productPayload `json:"product"`
	productPayload
}

// GetProduct fetches one product. A 404 maps to orders.ErrProductNotFound;
// every other failure is returned as is and treated as transient by callers.
func (c *HTTPClient) GetProduct(ctx context.Context, productID string) (orders.Product, error) {
	if c.baseURL == "" {
		return orders.Product{}, fmt.Errorf("catalog: base url is not configured")
	}
	endpoint, err := url.JoinPath(c.baseURL, "products", url.PathEscape(productID))
	if err != nil {
		return orders.Product{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return orders.Product{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return orders.Product{}, fmt.Errorf("catalog: get product %s: %w", productID, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return orders.Product{}, &orders.ProductNotFoundError{ProductID: productID}
	case resp.StatusCode >= 400:
		return orders.Product{}, fmt.Errorf("catalog: product %s status %d: %s", productID, resp.StatusCode, drainError(resp.Body))
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return orders.Product{}, fmt.Errorf("catalog: decode product %s: %w", productID, err)
	}
	p := env.productPayload
	if env.Product != nil {
		p = *env.Product
	}
	return p.toProduct(productID), nil
}

func (p productPayload) toProduct(productID string) orders.Product {
	stock := 0
	switch {
	case p.StockQuantity != nil:
		stock = *p.StockQuantity
	case p.Stock != nil:
		stock = *p.Stock
	}
	return orders.Product{
		ID:    productID,
		Name:  strings.TrimSpace(p.Name),
		Price: p.Price,
		Stock: stock,
	}
}

func drainError(r io.Reader) string {
	body, _ := io.ReadAll(io.LimitReader(r, 512))
	return strings.TrimSpace(string(body))
}
