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

const (
	// FacebookGraphAPIURL is the Graph API endpoint for marketplace listings
	FacebookGraphAPIURL = "https://graph.facebook.com/v19.0"

	defaultFacebookAvailability = "in_stock"
	defaultFacebookDelivery     = "shipping"
)

// Errors for Facebook configuration
var (
	ErrFacebookConfigMissingBaseURL = errors.New("facebook: base URL is required")
)

// FacebookConfig holds configuration for the Facebook Marketplace integration
type FacebookConfig struct {
	// APIBaseURL is the Graph API base URL
	APIBaseURL string
	// Currency is the ISO currency code used for prices
	Currency string
	// DeliveryMethod is the default delivery method for new listings
	DeliveryMethod string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

// NewFacebookConfig creates a new Facebook configuration with defaults
func NewFacebookConfig() *FacebookConfig {
	return &FacebookConfig{
		APIBaseURL:     FacebookGraphAPIURL,
		Currency:       "USD",
		DeliveryMethod: defaultFacebookDelivery,
		TimeoutSeconds: 30,
	}
}

// Validate validates the Facebook configuration and fills in defaults
func (c *FacebookConfig) Validate() error {
	if c.APIBaseURL == "" {
		c.APIBaseURL = FacebookGraphAPIURL
	}
	if c.APIBaseURL == "" {
		return ErrFacebookConfigMissingBaseURL
	}
	if c.Currency == "" {
		c.Currency = "USD"
	}
	if c.DeliveryMethod == "" {
		c.DeliveryMethod = defaultFacebookDelivery
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	return nil
}

// fbListingPayload is the Graph API request body for a marketplace listing
type fbListingPayload struct {
	Title          string   `json:"title,omitempty"`
	Description    string   `json:"description,omitempty"`
	Price          string   `json:"price,omitempty"`
	Currency       string   `json:"currency,omitempty"`
	Quantity       *int     `json:"quantity,omitempty"`
	Condition      string   `json:"condition,omitempty"`
	Category       string   `json:"category,omitempty"`
	Brand          string   `json:"brand,omitempty"`
	ImageURLs      []string `json:"image_urls,omitempty"`
	Availability   string   `json:"availability,omitempty"`
	DeliveryMethod string   `json:"delivery_method,omitempty"`
}

// fbCreateResponse is the response body for a successful create
type fbCreateResponse struct {
	ID  string `json:"id"`
	URL string `json:"marketplace_url"`
}

// fbGetResponse is the response body for a listing read
type fbGetResponse struct {
	ID           string `json:"id"`
	Availability string `json:"availability"`
	Price        string `json:"price"`
	Quantity     int    `json:"quantity"`
	ViewCount    int    `json:"view_count"`
}

// fbErrorResponse is the Graph API error envelope
type fbErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// fbCondition maps the catalog condition to Facebook's condition enum
var fbCondition = map[string]string{
	"new":        "new",
	"like-new":   "used_like_new",
	"good":       "used_good",
	"fair":       "used_fair",
	"acceptable": "used_fair",
}

// mapFacebookAvailability translates Graph availability values to the
// neutral remote status
func mapFacebookAvailability(availability string) listing.RemoteStatus {
	switch availability {
	case "in_stock", "available":
		return listing.RemoteStatusActive
	case "out_of_stock", "sold":
		return listing.RemoteStatusSold
	case "discontinued", "removed":
		return listing.RemoteStatusEnded
	default:
		return listing.RemoteStatusUnknown
	}
}

// FacebookAdapter implements the PlatformAdapter interface for Facebook
// Marketplace via the Graph API commerce surface. Facebook reports view
// counts but has no watcher concept.
type FacebookAdapter struct {
	config      *FacebookConfig
	credentials CredentialSource
	httpClient  *http.Client
}

// NewFacebookAdapter creates a new Facebook adapter
func NewFacebookAdapter(config *FacebookConfig, credentials CredentialSource) (*FacebookAdapter, error) {
	if config == nil {
		config = NewFacebookConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &FacebookAdapter{
		config:      config,
		credentials: credentials,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
	}, nil
}

// Platform returns the marketplace this adapter handles
func (a *FacebookAdapter) Platform() listing.Platform {
	return listing.PlatformFacebook
}

// Capabilities declares which operations the adapter supports
func (a *FacebookAdapter) Capabilities() listing.CapabilitySet {
	return listing.FullCapabilities()
}

// CreateListing publishes a marketplace listing
func (a *FacebookAdapter) CreateListing(ctx context.Context, req listing.ListingRequest) (*listing.CreateResult, error) {
	quantity := req.Quantity
	payload := fbListingPayload{
		Title:          req.Title,
		Description:    req.Description,
		Price:          req.Price.StringFixed(2),
		Currency:       a.config.Currency,
		Quantity:       &quantity,
		Condition:      fbCondition[string(req.Condition)],
		Category:       req.Category,
		Brand:          req.Brand,
		ImageURLs:      req.ImageURLs,
		Availability:   defaultFacebookAvailability,
		DeliveryMethod: a.config.DeliveryMethod,
	}

	body, err := a.doRequest(ctx, http.MethodPost, "/me/marketplace_listings", payload)
	if err != nil {
		return nil, err
	}

	var resp fbCreateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("facebook: failed to parse create response: %w", err)
	}
	return &listing.CreateResult{
		PlatformListingID: resp.ID,
		URL:               resp.URL,
		Raw:               string(body),
	}, nil
}

// UpdateListing edits a live marketplace listing
func (a *FacebookAdapter) UpdateListing(ctx context.Context, platformListingID string, upd listing.ListingUpdate) (*listing.UpdateResult, error) {
	payload := fbListingPayload{Quantity: upd.Quantity}
	if upd.Title != nil {
		payload.Title = *upd.Title
	}
	if upd.Description != nil {
		payload.Description = *upd.Description
	}
	if upd.Price != nil {
		payload.Price = upd.Price.StringFixed(2)
		payload.Currency = a.config.Currency
	}

	body, err := a.doRequest(ctx, http.MethodPost, "/"+platformListingID, payload)
	if err != nil {
		return nil, err
	}
	return &listing.UpdateResult{Raw: string(body)}, nil
}

// EndListing removes a marketplace listing. Deleting an already-deleted
// listing is folded into success.
func (a *FacebookAdapter) EndListing(ctx context.Context, platformListingID, _ string) (*listing.EndResult, error) {
	body, err := a.doRequest(ctx, http.MethodDelete, "/"+platformListingID, nil)
	if err != nil {
		var adapterErr *listing.AdapterError
		if errors.As(err, &adapterErr) && adapterErr.Code == listing.AdapterErrCodeNotFound {
			return &listing.EndResult{EndedAt: time.Now().UTC()}, nil
		}
		return nil, err
	}
	return &listing.EndResult{EndedAt: time.Now().UTC(), Raw: string(body)}, nil
}

// GetListing reads the listing's current remote state
func (a *FacebookAdapter) GetListing(ctx context.Context, platformListingID string) (*listing.RemoteListing, error) {
	body, err := a.doRequest(ctx, http.MethodGet,
		"/"+platformListingID+"?fields=id,availability,price,quantity,view_count", nil)
	if err != nil {
		return nil, err
	}

	var resp fbGetResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("facebook: failed to parse listing response: %w", err)
	}

	remote := &listing.RemoteListing{
		PlatformListingID: resp.ID,
		Status:            mapFacebookAvailability(resp.Availability),
		Views:             resp.ViewCount,
		Raw:               string(body),
	}
	if price, err := decimal.NewFromString(resp.Price); err == nil {
		remote.Price = &price
	}
	quantity := resp.Quantity
	remote.Quantity = &quantity
	return remote, nil
}

// doRequest performs an authenticated HTTP request against the Graph API
func (a *FacebookAdapter) doRequest(ctx context.Context, method, path string, payload any) ([]byte, error) {
	creds, err := a.credentials.Credentials(ctx, listing.PlatformFacebook)
	if err != nil {
		return nil, err
	}

	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("facebook: failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.config.APIBaseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("facebook: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, transportError(listing.PlatformFacebook, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("facebook: failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp fbErrorResponse
		_ = json.Unmarshal(body, &errResp)
		return nil, statusError(listing.PlatformFacebook, resp.StatusCode, errResp.Error.Message)
	}
	return body, nil
}

var _ listing.PlatformAdapter = (*FacebookAdapter)(nil)
