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

	"github.com/crosslist/backend/internal/domain/listing"
)

const (
	// EBayProductionAPIURL is the production API endpoint
	EBayProductionAPIURL = "https://api.ebay.com/sell/listing/v1"
	// EBaySandboxAPIURL is the sandbox API endpoint
	EBaySandboxAPIURL = "https://api.sandbox.ebay.com/sell/listing/v1"

	defaultEbayMarketplace = "EBAY_US"
	defaultEbayCurrency    = "USD"
	defaultEbayDuration    = "GTC"
)

// Errors for eBay configuration
var (
	ErrEbayConfigMissingBaseURL = errors.New("ebay: base URL is required")
)

// EBayConfig holds configuration for the eBay Sell API integration
type EBayConfig struct {
	// APIBaseURL is the base URL for the eBay API (production or sandbox)
	APIBaseURL string
	// Marketplace is the eBay marketplace identifier, e.g. EBAY_US
	Marketplace string
	// Currency is the ISO currency code used for prices
	Currency string
	// IsSandbox indicates if this is a sandbox environment
	IsSandbox bool
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

// NewEBayConfig creates a new eBay configuration with production defaults
func NewEBayConfig() *EBayConfig {
	return &EBayConfig{
		APIBaseURL:     EBayProductionAPIURL,
		Marketplace:    defaultEbayMarketplace,
		Currency:       defaultEbayCurrency,
		TimeoutSeconds: 30,
	}
}

// NewSandboxEBayConfig creates a new eBay configuration for the sandbox
func NewSandboxEBayConfig() *EBayConfig {
	return &EBayConfig{
		APIBaseURL:     EBaySandboxAPIURL,
		Marketplace:    defaultEbayMarketplace,
		Currency:       defaultEbayCurrency,
		IsSandbox:      true,
		TimeoutSeconds: 30,
	}
}

// Validate validates the eBay configuration and fills in defaults
func (c *EBayConfig) Validate() error {
	if c.APIBaseURL == "" {
		if c.IsSandbox {
			c.APIBaseURL = EBaySandboxAPIURL
		} else {
			c.APIBaseURL = EBayProductionAPIURL
		}
	}
	if c.APIBaseURL == "" {
		return ErrEbayConfigMissingBaseURL
	}
	if c.Marketplace == "" {
		c.Marketplace = defaultEbayMarketplace
	}
	if c.Currency == "" {
		c.Currency = defaultEbayCurrency
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	return nil
}

// EBayAdapter implements the PlatformAdapter interface for eBay. eBay is the
// only marketplace in the set with a full read/write API, so every
// capability is declared.
type EBayAdapter struct {
	config      *EBayConfig
	credentials CredentialSource
	httpClient  *http.Client
}

// NewEBayAdapter creates a new eBay adapter with the given configuration
func NewEBayAdapter(config *EBayConfig, credentials CredentialSource) (*EBayAdapter, error) {
	if config == nil {
		config = NewEBayConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &EBayAdapter{
		config:      config,
		credentials: credentials,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
	}, nil
}

// Platform returns the marketplace this adapter handles
func (a *EBayAdapter) Platform() listing.Platform {
	return listing.PlatformEbay
}

// Capabilities declares which operations the adapter supports
func (a *EBayAdapter) Capabilities() listing.CapabilitySet {
	return listing.FullCapabilities()
}

// ---------------------------------------------------------------------------
// Listing Operations
// ---------------------------------------------------------------------------

// CreateListing creates a fixed-price listing on eBay
func (a *EBayAdapter) CreateListing(ctx context.Context, req listing.ListingRequest) (*listing.CreateResult, error) {
	payload := ebayListingPayload{
		Title:           req.Title,
		Description:     req.Description,
		Price:           ebayMoney{Value: req.Price, Currency: a.config.Currency},
		Quantity:        req.Quantity,
		ConditionID:     ebayConditionID[string(req.Condition)],
		CategoryName:    req.Category,
		ImageURLs:       req.ImageURLs,
		SKU:             req.SKU,
		UPC:             req.UPC,
		Brand:           req.Brand,
		MPN:             req.Model,
		Format:          "FIXED_PRICE",
		Duration:        defaultEbayDuration,
		HandlingDays:    req.HandlingDays,
		MarketplaceSite: a.config.Marketplace,
	}
	if !req.ShippingCost.IsZero() {
		payload.ShippingCost = &ebayMoney{Value: req.ShippingCost, Currency: a.config.Currency}
	}

	body, err := a.doRequest(ctx, http.MethodPost, "/listings", payload)
	if err != nil {
		return nil, err
	}

	var resp ebayCreateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("ebay: failed to parse create response: %w", err)
	}

	result := &listing.CreateResult{
		PlatformListingID: resp.ListingID,
		URL:               resp.ViewURL,
		Raw:               string(body),
	}
	if resp.Fees != nil {
		result.Fees = &listing.FeeBreakdown{
			ListingFee:           resp.Fees.InsertionFee,
			FinalValueFee:        resp.Fees.FinalValueFee,
			PaymentProcessingFee: resp.Fees.ProcessingFee,
		}
	}
	return result, nil
}

// UpdateListing revises a live eBay listing
func (a *EBayAdapter) UpdateListing(ctx context.Context, platformListingID string, upd listing.ListingUpdate) (*listing.UpdateResult, error) {
	payload := ebayUpdatePayload{
		Title:       upd.Title,
		Description: upd.Description,
		Quantity:    upd.Quantity,
	}
	if upd.Price != nil {
		payload.Price = &ebayMoney{Value: *upd.Price, Currency: a.config.Currency}
	}

	body, err := a.doRequest(ctx, http.MethodPut, "/listings/"+platformListingID, payload)
	if err != nil {
		return nil, err
	}
	return &listing.UpdateResult{Raw: string(body)}, nil
}

// EndListing ends a live eBay listing. eBay rejects ending an already-ended
// listing, so that case is folded into success.
func (a *EBayAdapter) EndListing(ctx context.Context, platformListingID, reason string) (*listing.EndResult, error) {
	if reason == "" {
		reason = "NotAvailable"
	}
	body, err := a.doRequest(ctx, http.MethodPost, "/listings/"+platformListingID+"/end", ebayEndPayload{Reason: reason})
	if err != nil {
		var adapterErr *listing.AdapterError
		if errors.As(err, &adapterErr) && adapterErr.Code == listing.AdapterErrCodeNotFound {
			return &listing.EndResult{EndedAt: time.Now().UTC()}, nil
		}
		return nil, err
	}

	var resp ebayEndResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("ebay: failed to parse end response: %w", err)
	}
	endedAt, err := time.Parse(time.RFC3339, resp.EndedAt)
	if err != nil {
		endedAt = time.Now().UTC()
	}
	return &listing.EndResult{EndedAt: endedAt, Raw: string(body)}, nil
}

// GetListing reads the listing's current remote state
func (a *EBayAdapter) GetListing(ctx context.Context, platformListingID string) (*listing.RemoteListing, error) {
	body, err := a.doRequest(ctx, http.MethodGet, "/listings/"+platformListingID, nil)
	if err != nil {
		return nil, err
	}

	var resp ebayGetResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("ebay: failed to parse listing response: %w", err)
	}

	price := resp.Price.Value
	quantity := resp.Quantity
	return &listing.RemoteListing{
		PlatformListingID: resp.ListingID,
		Status:            mapEbayStatus(resp.Status, resp.Quantity, resp.QuantitySold),
		Price:             &price,
		Quantity:          &quantity,
		Views:             resp.HitCount,
		Watchers:          resp.WatchCount,
		Raw:               string(body),
	}, nil
}

// doRequest performs an authenticated HTTP request against the eBay API
func (a *EBayAdapter) doRequest(ctx context.Context, method, path string, payload any) ([]byte, error) {
	creds, err := a.credentials.Credentials(ctx, listing.PlatformEbay)
	if err != nil {
		return nil, err
	}

	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("ebay: failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.config.APIBaseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("ebay: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	req.Header.Set("X-EBAY-C-MARKETPLACE-ID", a.config.Marketplace)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, transportError(listing.PlatformEbay, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("ebay: failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp ebayErrorResponse
		_ = json.Unmarshal(body, &errResp)
		return nil, statusError(listing.PlatformEbay, resp.StatusCode, errResp.message())
	}
	return body, nil
}

var _ listing.PlatformAdapter = (*EBayAdapter)(nil)
