package listing

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/crosslist/backend/internal/domain/catalog"
)

// ---------------------------------------------------------------------------
// AdapterError
// ---------------------------------------------------------------------------

// AdapterError is the uniform failure shape reported by platform adapters.
// Marketplace-specific exceptions never leak past the adapter boundary; they
// are translated into an AdapterError with a stable code.
type AdapterError struct {
	// Platform is the marketplace that produced the error
	Platform Platform
	// Code is a stable machine-readable error code
	Code string
	// Message is a human-readable description
	Message string
	// Details carries marketplace-specific diagnostic data
	Details map[string]any
	// Permanent indicates the failure will not resolve by retrying
	// (unsupported operation, rejected payload) as opposed to a transient
	// network or rate-limit condition
	Permanent bool
}

// Error implements the error interface
func (e *AdapterError) Error() string {
	return fmt.Sprintf("%s adapter: %s (%s)", e.Platform, e.Message, e.Code)
}

// Common adapter error codes
const (
	AdapterErrCodeAuth        = "AUTH_FAILED"
	AdapterErrCodeRateLimited = "RATE_LIMITED"
	AdapterErrCodeValidation  = "VALIDATION_FAILED"
	AdapterErrCodeUnreachable = "UNREACHABLE"
	AdapterErrCodeNotFound    = "REMOTE_NOT_FOUND"
	AdapterErrCodeUnsupported = "UNSUPPORTED_OPERATION"
	AdapterErrCodeUnknown     = "UNKNOWN"
)

// NewAdapterError creates a new AdapterError
func NewAdapterError(platform Platform, code, message string) *AdapterError {
	return &AdapterError{
		Platform: platform,
		Code:     code,
		Message:  message,
		Details:  make(map[string]any),
	}
}

// NewUnsupportedOperationError creates the permanent AdapterError raised when
// an adapter is asked for a capability it does not declare
func NewUnsupportedOperationError(platform Platform, capability Capability) *AdapterError {
	return &AdapterError{
		Platform:  platform,
		Code:      AdapterErrCodeUnsupported,
		Message:   fmt.Sprintf("%s does not support %s", platform.DisplayName(), capability),
		Details:   map[string]any{"capability": string(capability)},
		Permanent: true,
	}
}

// ---------------------------------------------------------------------------
// Adapter request/response shapes
// ---------------------------------------------------------------------------

// ListingRequest is the platform-neutral payload for creating a listing. It
// is assembled by the engine from product attributes, platform defaults, and
// per-call custom overrides.
type ListingRequest struct {
	// Title is the listing title
	Title string
	// Description is the listing body text
	Description string
	// Price is the asking price after markup and clamping
	Price decimal.Decimal
	// Quantity is the quantity offered
	Quantity int
	// Condition is the item condition
	Condition catalog.Condition
	// ImageURLs contains image URLs in display order
	ImageURLs []string
	// Category is the catalog category name, mapped per platform
	Category string
	// Brand, Model, SKU, UPC identify the item where the platform accepts them
	Brand string
	Model string
	SKU   string
	UPC   string
	// ShippingCost is the flat shipping cost, if any
	ShippingCost decimal.Decimal
	// HandlingDays is the dispatch time in days
	HandlingDays int
}

// ListingUpdate is a partial update to a live listing. Nil fields are left
// untouched on the platform.
type ListingUpdate struct {
	Title       *string
	Description *string
	Price       *decimal.Decimal
	Quantity    *int
}

// IsEmpty returns true if no field is set
func (u ListingUpdate) IsEmpty() bool {
	return u.Title == nil && u.Description == nil && u.Price == nil && u.Quantity == nil
}

// CreateResult is the adapter's response to a successful create call
type CreateResult struct {
	// PlatformListingID is the identifier assigned by the marketplace
	PlatformListingID string
	// URL is the public listing URL, if the marketplace provides one
	URL string
	// Fees are the fees charged at listing time, if reported
	Fees *FeeBreakdown
	// Raw is the raw marketplace response for the sync ledger
	Raw string
}

// UpdateResult is the adapter's response to a successful update call
type UpdateResult struct {
	// Raw is the raw marketplace response for the sync ledger
	Raw string
}

// EndResult is the adapter's response to an end call. Ending an already-ended
// listing is not an error.
type EndResult struct {
	// EndedAt is when the marketplace ended the listing
	EndedAt time.Time
	// Raw is the raw marketplace response for the sync ledger
	Raw string
}

// RemoteStatus is the marketplace-reported state of a listing
type RemoteStatus string

const (
	RemoteStatusActive  RemoteStatus = "active"
	RemoteStatusEnded   RemoteStatus = "ended"
	RemoteStatusSold    RemoteStatus = "sold"
	// RemoteStatusUnknown is returned by platforms without a read API
	RemoteStatusUnknown RemoteStatus = "unknown"
)

// RemoteListing is a best-effort snapshot of a listing's remote state
type RemoteListing struct {
	// PlatformListingID is the marketplace identifier
	PlatformListingID string
	// Status is the marketplace-reported status
	Status RemoteStatus
	// Price is the current remote price, if readable
	Price *decimal.Decimal
	// Quantity is the current remote quantity, if readable
	Quantity *int
	// Views and Watchers are engagement metrics, if readable
	Views    int
	Watchers int
	// Raw is the raw marketplace response
	Raw string
}

// ---------------------------------------------------------------------------
// PlatformAdapter port
// ---------------------------------------------------------------------------

// PlatformAdapter is the uniform capability surface over one marketplace.
// It follows the ports & adapters pattern: the interface lives in the domain
// layer and concrete implementations (eBay, Facebook, Depop, Craigslist) live
// in the infrastructure layer. Adapters perform remote calls only; all
// persistence belongs to the engine.
type PlatformAdapter interface {
	// Platform returns the marketplace this adapter handles
	Platform() Platform

	// Capabilities declares which operations the adapter supports
	Capabilities() CapabilitySet

	// CreateListing creates a listing on the marketplace
	CreateListing(ctx context.Context, req ListingRequest) (*CreateResult, error)

	// UpdateListing partially updates a live listing. Platforms without an
	// update path fail with an AdapterError carrying the unsupported code,
	// never by silently succeeding.
	UpdateListing(ctx context.Context, platformListingID string, upd ListingUpdate) (*UpdateResult, error)

	// EndListing ends a live listing. Idempotent: ending an already-ended
	// listing succeeds.
	EndListing(ctx context.Context, platformListingID, reason string) (*EndResult, error)

	// GetListing reads the listing's remote state. Best-effort: platforms
	// without a read API return RemoteStatusUnknown rather than failing.
	GetListing(ctx context.Context, platformListingID string) (*RemoteListing, error)
}

// AdapterRegistry resolves adapters from the closed Platform enum. It is
// populated once at startup.
type AdapterRegistry interface {
	// Adapter returns the adapter for the given platform
	Adapter(platform Platform) (PlatformAdapter, error)

	// Adapters returns every registered adapter
	Adapters() []PlatformAdapter
}
