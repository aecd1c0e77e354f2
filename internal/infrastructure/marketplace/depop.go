package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/crosslist/backend/internal/domain/listing"
)

// DepopAPIURL is the Depop seller API endpoint
const DepopAPIURL = "https://api.depop.com/v2"

// Errors for Depop configuration
var (
	ErrDepopConfigMissingBaseURL = errors.New("depop: base URL is required")
)

// DepopConfig holds configuration for the Depop seller API integration
type DepopConfig struct {
	// APIBaseURL is the base URL for the Depop API
	APIBaseURL string
	// Currency is the ISO currency code used for prices
	Currency string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

// NewDepopConfig creates a new Depop configuration with defaults
func NewDepopConfig() *DepopConfig {
	return &DepopConfig{
		APIBaseURL:     DepopAPIURL,
		Currency:       "USD",
		TimeoutSeconds: 30,
	}
}

// Validate validates the Depop configuration and fills in defaults
func (c *DepopConfig) Validate() error {
	if c.APIBaseURL == "" {
		c.APIBaseURL = DepopAPIURL
	}
	if c.APIBaseURL == "" {
		return ErrDepopConfigMissingBaseURL
	}
	if c.Currency == "" {
		c.Currency = "USD"
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	return nil
}

// depopProductPayload is the request body for creating or editing a product
type depopProductPayload struct {
	Title           string   `json:"title,omitempty"`
	Description     string   `json:"description,omitempty"`
	PriceAmount     string   `json:"price_amount,omitempty"`
	PriceCurrency   string   `json:"price_currency,omitempty"`
	Quantity        *int     `json:"quantity,omitempty"`
	Condition       string   `json:"condition,omitempty"`
	CategoryPath    string   `json:"category_path,omitempty"`
	Brand           string   `json:"brand,omitempty"`
	PictureURLs     []string `json:"picture_urls,omitempty"`
	NationalShip    string   `json:"national_shipping_price,omitempty"`
	ShippingMethods []string `json:"shipping_methods,omitempty"`
}

// depopProductResponse is the response body for product reads and writes
type depopProductResponse struct {
	ID            string `json:"id"`
	Slug          string `json:"slug"`
	Status        string `json:"status"`
	PriceAmount   string `json:"price_amount"`
	Quantity      int    `json:"quantity"`
	LikesCount    int    `json:"likes_count"`
	ImpressionSum int    `json:"impressions"`
}

// depopErrorResponse is Depop's error envelope
type depopErrorResponse struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

// depopCondition maps the catalog condition to Depop's condition enum
var depopCondition = map[string]string{
	"new":        "brand_new",
	"like-new":   "like_new",
	"good":       "used_excellent",
	"fair":       "used_good",
	"acceptable": "used_fair",
}

// mapDepopStatus translates Depop product statuses to the neutral remote status
func mapDepopStatus(status string) listing.RemoteStatus {
	switch status {
	case "live", "on_sale":
		return listing.RemoteStatusActive
	case "sold":
		return listing.RemoteStatusSold
	case "ended", "deleted":
		return listing.RemoteStatusEnded
	default:
		return listing.RemoteStatusUnknown
	}
}

// DepopAdapter implements the PlatformAdapter interface for Depop. Likes
// stand in for watchers and impressions for views.
type DepopAdapter struct {
	config      *DepopConfig
	credentials CredentialSource
	httpClient  *http.Client
}

// NewDepopAdapter creates a new Depop adapter
func NewDepopAdapter(config *DepopConfig, credentials CredentialSource) (*DepopAdapter, error) {
	if config == nil {
		config = NewDepopConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &DepopAdapter{
		config:      config,
		credentials: credentials,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
	}, nil
}

// Platform returns the marketplace this adapter handles
func (a *DepopAdapter) Platform() listing.Platform {
	return listing.PlatformDepop
}

// Capabilities declares which operations the adapter supports
func (a *DepopAdapter) Capabilities() listing.CapabilitySet {
	return listing.FullCapabilities()
}

// CreateListing creates a product in the seller's shop
func (a *DepopAdapter) CreateListing(ctx context.Context, req listing.ListingRequest) (*listing.CreateResult, error) {
	quantity := req.Quantity
	payload := depopProductPayload{
		Title:           req.Title,
		Description:     req.Description,
		PriceAmount:     req.Price.StringFixed(2),
		PriceCurrency:   a.config.Currency,
		Quantity:        &quantity,
		Condition:       depopCondition[string(req.Condition)],
		CategoryPath:    req.Category,
		Brand:           req.Brand,
		PictureURLs:     req.ImageURLs,
		ShippingMethods: []string{"own_shipping"},
	}
	if !req.ShippingCost.IsZero() {
		payload.NationalShip = req.ShippingCost.StringFixed(2)
	}

	body, err := a.doRequest(ctx, http.MethodPost, "/products", payload)
	if err != nil {
		return nil, err
	}

	var resp depopProductResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("depop: failed to parse create response: %w", err)
	}

	result := &listing.CreateResult{
		PlatformListingID: resp.ID,
		Raw:               string(body),
	}
	if resp.Slug != "" {
		result.URL = "https://www.depop.com/products/" + resp.Slug
	}
	return result, nil
}

// UpdateListing edits a live product
func (a *DepopAdapter) UpdateListing(ctx context.Context, platformListingID string, upd listing.ListingUpdate) (*listing.UpdateResult, error) {
	payload := depopProductPayload{Quantity: upd.Quantity}
	if upd.Title != nil {
		payload.Title = *upd.Title
	}
	if upd.Description != nil {
		payload.Description = *upd.Description
	}
	if upd.Price != nil {
		payload.PriceAmount = upd.Price.StringFixed(2)
		payload.PriceCurrency = a.config.Currency
	}

	body, err := a.doRequest(ctx, http.MethodPut, "/products/"+platformListingID, payload)
	if err != nil {
		return nil, err
	}
	return &listing.UpdateResult{Raw: string(body)}, nil
}

// EndListing deletes a product from the shop. Deleting an already-deleted
// product is folded into success.
func (a *DepopAdapter) EndListing(ctx context.Context, platformListingID, _ string) (*listing.EndResult, error) {
	body, err := a.doRequest(ctx, http.MethodDelete, "/products/"+platformListingID, nil)
	if err != nil {
		var adapterErr *listing.AdapterError
		if errors.As(err, &adapterErr) && adapterErr.Code == listing.AdapterErrCodeNotFound {
			return &listing.EndResult{EndedAt: time.Now().UTC()}, nil
		}
		return nil, err
	}
	return &listing.EndResult{EndedAt: time.Now().UTC(), Raw: string(body)}, nil
}

// GetListing reads the product's current remote state
func (a *DepopAdapter) GetListing(ctx context.Context, platformListingID string) (*listing.RemoteListing, error) {
	body, err := a.doRequest(ctx, http.MethodGet, "/products/"+platformListingID, nil)
	if err != nil {
		return nil, err
	}

	var resp depopProductResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("depop: failed to parse product response: %w", err)
	}

	remote := &listing.RemoteListing{
		PlatformListingID: resp.ID,
		Status:            mapDepopStatus(resp.Status),
		Views:             resp.ImpressionSum,
		Watchers:          resp.LikesCount,
		Raw:               string(body),
	}
	if price, err := decimal.NewFromString(resp.PriceAmount); err == nil {
		remote.Price = &price
	}
	quantity := resp.Quantity
	remote.Quantity = &quantity
	return remote, nil
}

// doRequest performs an authenticated HTTP request against the Depop API
func (a *DepopAdapter) doRequest(ctx context.Context, method, path string, payload any) ([]byte, error) {
	creds, err := a.credentials.Credentials(ctx, listing.PlatformDepop)
	if err != nil {
		return nil, err
	}

	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("depop: failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.config.APIBaseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("depop: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, transportError(listing.PlatformDepop, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("depop: failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp depopErrorResponse
		_ = json.Unmarshal(body, &errResp)
		return nil, statusError(listing.PlatformDepop, resp.StatusCode, errResp.Message)
	}
	return body, nil
}

var _ listing.PlatformAdapter = (*DepopAdapter)(nil)
