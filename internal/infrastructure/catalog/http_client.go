package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/crosslist/backend/internal/domain/catalog"
)

// maxResponseSize is the maximum allowed response size from the catalog service (10MB)
const maxResponseSize = 10 * 1024 * 1024

// Errors for catalog client configuration
var (
	ErrCatalogConfigMissingBaseURL = errors.New("catalog: base URL is required")
)

// Config holds configuration for the product catalog HTTP client
type Config struct {
	// BaseURL is the catalog service base URL
	BaseURL string
	// APIKey authenticates this service to the catalog
	APIKey string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

// Validate validates the configuration and fills in defaults
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrCatalogConfigMissingBaseURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 10
	}
	return nil
}

// productPayload is the catalog service's product representation
type productPayload struct {
	ID          uuid.UUID       `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	Condition   string          `json:"condition"`
	ImageURLs   []string        `json:"image_urls"`
	Category    string          `json:"category"`
	Brand       string          `json:"brand"`
	Model       string          `json:"model"`
	SKU         string          `json:"sku"`
	UPC         string          `json:"upc"`
	Status      string          `json:"status"`
}

// decrementResponse carries the remaining quantity after a decrement
type decrementResponse struct {
	Remaining int `json:"remaining"`
}

// Client implements the ProductCatalog port against the catalog service's
// REST API.
type Client struct {
	config     *Config
	httpClient *http.Client
}

// NewClient creates a new catalog client with the given configuration
func NewClient(config *Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
	}, nil
}

// GetProduct fetches a product by ID
func (c *Client) GetProduct(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/products/"+id.String(), nil)
	if err != nil {
		return nil, err
	}

	var payload productPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("catalog: failed to parse product response: %w", err)
	}

	return &catalog.Product{
		ID:          payload.ID,
		Title:       payload.Title,
		Description: payload.Description,
		Price:       payload.Price,
		Quantity:    payload.Quantity,
		Condition:   catalog.Condition(payload.Condition),
		ImageURLs:   payload.ImageURLs,
		Category:    payload.Category,
		Brand:       payload.Brand,
		Model:       payload.Model,
		SKU:         payload.SKU,
		UPC:         payload.UPC,
		Status:      catalog.ProductStatus(payload.Status),
	}, nil
}

// SetProductStatus updates the product lifecycle status
func (c *Client) SetProductStatus(ctx context.Context, id uuid.UUID, status catalog.ProductStatus) error {
	if !status.IsValid() {
		return catalog.ErrInvalidProductStatus
	}
	_, err := c.doRequest(ctx, http.MethodPatch, "/products/"+id.String()+"/status",
		map[string]string{"status": status.String()})
	return err
}

// DecrementQuantity atomically reduces on-hand quantity and returns the remainder
func (c *Client) DecrementQuantity(ctx context.Context, id uuid.UUID, n int) (int, error) {
	body, err := c.doRequest(ctx, http.MethodPost, "/products/"+id.String()+"/decrement",
		map[string]int{"quantity": n})
	if err != nil {
		return 0, err
	}

	var resp decrementResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("catalog: failed to parse decrement response: %w", err)
	}
	return resp.Remaining, nil
}

// doRequest performs an HTTP request against the catalog service
func (c *Client) doRequest(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("catalog: failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("catalog: failed to create request: %w", err)
	}
	if c.config.APIKey != "" {
		req.Header.Set("X-API-Key", c.config.APIKey)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", catalog.ErrCatalogUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("catalog: failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, catalog.ErrProductNotFound
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: HTTP %d", catalog.ErrCatalogUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("catalog: request rejected: HTTP %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

var _ catalog.ProductCatalog = (*Client)(nil)
