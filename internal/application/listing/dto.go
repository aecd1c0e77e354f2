package listing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/crosslist/backend/internal/domain/listing"
)

// ============================================================================
// Request DTOs
// ============================================================================

// ListingOverrides carries caller-supplied values that take precedence over
// both the product record and the platform defaults
type ListingOverrides struct {
	Title       *string          `json:"title,omitempty"`
	Description *string          `json:"description,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Quantity    *int             `json:"quantity,omitempty"`
	Category    *string          `json:"category,omitempty"`
}

// CreateListingCommand asks the engine to list a product on one platform
type CreateListingCommand struct {
	ProductID uuid.UUID
	Platform  listing.Platform
	Trigger   listing.TriggerSource
	Overrides *ListingOverrides
}

// CreateMultiPlatformCommand asks the engine to list a product on several
// platforms at once
type CreateMultiPlatformCommand struct {
	ProductID uuid.UUID
	Platforms []listing.Platform
	Trigger   listing.TriggerSource
	Overrides *ListingOverrides
}

// UpdateListingCommand asks the engine to push changes to one listing
type UpdateListingCommand struct {
	ListingID uuid.UUID
	Trigger   listing.TriggerSource
	Update    listing.ListingUpdate
}

// SaleCommand reports a sale detected on a platform
type SaleCommand struct {
	Platform          listing.Platform
	PlatformListingID string
	Trigger           listing.TriggerSource
	Sale              listing.SaleData
}

// ============================================================================
// Result DTOs
// ============================================================================

// PlatformOutcome is one platform's result inside a multi-platform operation
type PlatformOutcome struct {
	Platform     listing.Platform `json:"platform"`
	Success      bool             `json:"success"`
	ListingID    *uuid.UUID       `json:"listing_id,omitempty"`
	ListingURL   string           `json:"listing_url,omitempty"`
	ErrorCode    string           `json:"error_code,omitempty"`
	ErrorMessage string           `json:"error_message,omitempty"`
	DurationMS   int64            `json:"duration_ms"`
}

// MultiPlatformResult summarizes a fan-out operation
type MultiPlatformResult struct {
	SyncLogID    uuid.UUID               `json:"sync_log_id"`
	Status       listing.AggregateStatus `json:"status"`
	Outcomes     []PlatformOutcome       `json:"outcomes"`
	SuccessCount int                     `json:"success_count"`
	TotalCount   int                     `json:"total_count"`
}

// SaleResult summarizes sale handling including the cross-delist
type SaleResult struct {
	ListingID         uuid.UUID         `json:"listing_id"`
	ProductID         uuid.UUID         `json:"product_id"`
	RemainingQuantity int               `json:"remaining_quantity"`
	Delisted          []PlatformOutcome `json:"delisted,omitempty"`
	// Duplicate is true when the sale event was already processed
	Duplicate bool `json:"duplicate"`
}

// SyncProductResult summarizes a product-to-listings propagation. TotalCount
// covers every listing considered, skipped ones included.
type SyncProductResult struct {
	SyncLogID    uuid.UUID               `json:"sync_log_id"`
	Status       listing.AggregateStatus `json:"status"`
	Outcomes     []PlatformOutcome       `json:"outcomes"`
	Skipped      []listing.Platform      `json:"skipped,omitempty"`
	SuccessCount int                     `json:"success_count"`
	TotalCount   int                     `json:"total_count"`
}
