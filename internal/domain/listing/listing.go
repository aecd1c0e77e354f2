package listing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/crosslist/backend/internal/domain/shared"
)

// ---------------------------------------------------------------------------
// Listing status
// ---------------------------------------------------------------------------

// ListingStatus represents the lifecycle state of a Listing.
//
// draft -> pending -> active -> {sold | delisted | ended}
//
// sold, delisted and ended are terminal. A failed create never produces a
// Listing row at all; the attempt lives only in the sync ledger.
type ListingStatus string

const (
	// ListingStatusDraft indicates the listing has been prepared but not dispatched
	ListingStatusDraft ListingStatus = "draft"
	// ListingStatusPending indicates the create call has been dispatched
	ListingStatusPending ListingStatus = "pending"
	// ListingStatusActive indicates the listing is live on the marketplace
	ListingStatusActive ListingStatus = "active"
	// ListingStatusSold indicates the item sold through this listing
	ListingStatusSold ListingStatus = "sold"
	// ListingStatusDelisted indicates the listing was retired by a cross-delist or manual delist
	ListingStatusDelisted ListingStatus = "delisted"
	// ListingStatusEnded indicates the listing was ended manually on the marketplace
	ListingStatusEnded ListingStatus = "ended"
)

// IsValid returns true if the status is a known value
func (s ListingStatus) IsValid() bool {
	switch s {
	case ListingStatusDraft, ListingStatusPending, ListingStatusActive,
		ListingStatusSold, ListingStatusDelisted, ListingStatusEnded:
		return true
	default:
		return false
	}
}

// String returns the string representation of ListingStatus
func (s ListingStatus) String() string {
	return string(s)
}

// IsTerminal returns true if no further transition is allowed from the status
func (s ListingStatus) IsTerminal() bool {
	switch s {
	case ListingStatusSold, ListingStatusDelisted, ListingStatusEnded:
		return true
	default:
		return false
	}
}

// IsOpen returns true if the status counts against the one-open-listing-per-
// (product, platform) invariant
func (s ListingStatus) IsOpen() bool {
	return s == ListingStatusPending || s == ListingStatusActive
}

// canTransitionTo reports whether the state machine allows s -> next
func (s ListingStatus) canTransitionTo(next ListingStatus) bool {
	switch s {
	case ListingStatusDraft:
		return next == ListingStatusPending
	case ListingStatusPending:
		return next == ListingStatusActive
	case ListingStatusActive:
		return next == ListingStatusSold || next == ListingStatusDelisted || next == ListingStatusEnded
	default:
		return false
	}
}

// ---------------------------------------------------------------------------
// Sync status
// ---------------------------------------------------------------------------

// ListingSyncStatus tracks how the local listing relates to its remote copy
type ListingSyncStatus string

const (
	// SyncStateSynced indicates local and remote state agree as of LastSyncedAt
	SyncStateSynced ListingSyncStatus = "synced"
	// SyncStatePending indicates a sync has not completed yet
	SyncStatePending ListingSyncStatus = "pending"
	// SyncStateError indicates the last remote update failed
	SyncStateError ListingSyncStatus = "error"
	// SyncStateManual indicates the listing is managed by hand and excluded from auto-sync
	SyncStateManual ListingSyncStatus = "manual"
)

// IsValid returns true if the status is a known value
func (s ListingSyncStatus) IsValid() bool {
	switch s {
	case SyncStateSynced, SyncStatePending, SyncStateError, SyncStateManual:
		return true
	default:
		return false
	}
}

// String returns the string representation of ListingSyncStatus
func (s ListingSyncStatus) String() string {
	return string(s)
}

// ---------------------------------------------------------------------------
// Value objects
// ---------------------------------------------------------------------------

// AutoSyncSettings toggles which product changes propagate to this listing.
// Each field is independent: a listing may follow price changes but hold its
// own description.
type AutoSyncSettings struct {
	Enabled         bool `json:"enabled"`
	SyncPrice       bool `json:"sync_price"`
	SyncQuantity    bool `json:"sync_quantity"`
	SyncDescription bool `json:"sync_description"`
}

// DefaultAutoSyncSettings returns the default auto-sync configuration
func DefaultAutoSyncSettings() AutoSyncSettings {
	return AutoSyncSettings{
		Enabled:         true,
		SyncPrice:       true,
		SyncQuantity:    true,
		SyncDescription: false,
	}
}

// SyncErrorEntry records one failed remote update against this listing
type SyncErrorEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
}

// FeeBreakdown itemizes marketplace fees for a listing or sale
type FeeBreakdown struct {
	ListingFee           decimal.Decimal `json:"listing_fee"`
	FinalValueFee        decimal.Decimal `json:"final_value_fee"`
	PaymentProcessingFee decimal.Decimal `json:"payment_processing_fee"`
	ShippingFee          decimal.Decimal `json:"shipping_fee"`
}

// Total sums every fee component exactly
func (f FeeBreakdown) Total() decimal.Decimal {
	return f.ListingFee.Add(f.FinalValueFee).Add(f.PaymentProcessingFee).Add(f.ShippingFee)
}

// BuyerInfo identifies the buyer as reported by the marketplace
type BuyerInfo struct {
	PlatformUserID string `json:"platform_user_id,omitempty"`
	Username       string `json:"username,omitempty"`
	Email          string `json:"email,omitempty"`
}

// SaleData carries the details of a completed sale
type SaleData struct {
	// Price is the final sale price
	Price decimal.Decimal
	// Buyer identifies the buyer, if reported
	Buyer *BuyerInfo
	// Fees are the marketplace fees on the sale, if reported; when absent the
	// engine computes them from the platform's fee schedule
	Fees *FeeBreakdown
	// SoldAt is when the sale occurred; zero means now
	SoldAt time.Time
	// EventID identifies the originating sale event for webhook deduplication
	EventID string
}

// ---------------------------------------------------------------------------
// Listing entity
// ---------------------------------------------------------------------------

// Listing is the record of one product's presence on one marketplace. Rows
// are never physically deleted; terminal listings are retained for audit.
type Listing struct {
	shared.BaseEntity

	// ProductID references the catalog product
	ProductID uuid.UUID
	// Platform is the marketplace this listing lives on
	Platform Platform
	// PlatformListingID is the identifier assigned by the marketplace
	PlatformListingID string
	// ListingURL is the public listing URL, if any
	ListingURL string

	// Title, Description and Price snapshot the payload at listing time; they
	// may diverge from the product record until a sync runs
	Title       string
	Description string
	Price       decimal.Decimal
	Quantity    int

	// Status is the lifecycle state
	Status ListingStatus

	// ListedAt, EndedAt, SoldAt are lifecycle timestamps
	ListedAt *time.Time
	EndedAt  *time.Time
	SoldAt   *time.Time

	// Views and Watchers are engagement counters from reconciliation
	Views    int
	Watchers int

	// SalePrice, Buyer and Fees are populated when the listing sells
	SalePrice *decimal.Decimal
	Buyer     *BuyerInfo
	Fees      FeeBreakdown

	// LastSyncedAt is when the listing last agreed with its remote copy
	LastSyncedAt *time.Time
	// SyncStatus tracks local/remote agreement
	SyncStatus ListingSyncStatus
	// SyncErrors is the ordered history of failed remote updates
	SyncErrors []SyncErrorEntry

	// AutoSync toggles which product changes propagate here
	AutoSync AutoSyncSettings

	// Notes is free-form operator annotation
	Notes string
}

// NewListing creates a listing in pending state, ready for dispatch
func NewListing(productID uuid.UUID, platform Platform, req ListingRequest) (*Listing, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "product ID is required")
	}
	if !platform.IsValid() {
		return nil, ErrPlatformUnknown
	}

	return &Listing{
		BaseEntity:  shared.NewBaseEntity(),
		ProductID:   productID,
		Platform:    platform,
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Quantity:    req.Quantity,
		Status:      ListingStatusPending,
		SyncStatus:  SyncStatePending,
		SyncErrors:  make([]SyncErrorEntry, 0),
		AutoSync:    DefaultAutoSyncSettings(),
	}, nil
}

// Activate records a successful remote create: the listing goes live with the
// marketplace-assigned identifier
func (l *Listing) Activate(platformListingID, url string, fees *FeeBreakdown) error {
	if !l.Status.canTransitionTo(ListingStatusActive) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, l.Status, ListingStatusActive)
	}
	now := time.Now()
	l.Status = ListingStatusActive
	l.PlatformListingID = platformListingID
	l.ListingURL = url
	l.ListedAt = &now
	l.LastSyncedAt = &now
	l.SyncStatus = SyncStateSynced
	if fees != nil {
		l.Fees = *fees
	}
	l.UpdatedAt = now
	return nil
}

// MarkSold transitions the listing to sold and captures the sale details
func (l *Listing) MarkSold(sale SaleData) error {
	if !l.Status.canTransitionTo(ListingStatusSold) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, l.Status, ListingStatusSold)
	}
	soldAt := sale.SoldAt
	if soldAt.IsZero() {
		soldAt = time.Now()
	}
	l.Status = ListingStatusSold
	l.SoldAt = &soldAt
	price := sale.Price
	l.SalePrice = &price
	if sale.Buyer != nil {
		buyer := *sale.Buyer
		l.Buyer = &buyer
	}
	if sale.Fees != nil {
		l.Fees = *sale.Fees
	}
	l.UpdatedAt = time.Now()
	return nil
}

// Delist retires the listing locally after a cross-delist or manual delist.
// It always succeeds for an active listing even when the remote end call
// failed: a sold item must never remain listed locally.
func (l *Listing) Delist(reason string) error {
	if !l.Status.canTransitionTo(ListingStatusDelisted) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, l.Status, ListingStatusDelisted)
	}
	now := time.Now()
	l.Status = ListingStatusDelisted
	l.EndedAt = &now
	if reason != "" {
		if l.Notes != "" {
			l.Notes += "\n"
		}
		l.Notes += "Delisted: " + reason
	}
	l.UpdatedAt = now
	return nil
}

// End records a manual end on the marketplace
func (l *Listing) End(reason string) error {
	if !l.Status.canTransitionTo(ListingStatusEnded) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, l.Status, ListingStatusEnded)
	}
	now := time.Now()
	l.Status = ListingStatusEnded
	l.EndedAt = &now
	if reason != "" {
		if l.Notes != "" {
			l.Notes += "\n"
		}
		l.Notes += "Ended: " + reason
	}
	l.UpdatedAt = now
	return nil
}

// ApplySyncedUpdate applies a successfully synchronized update to the local
// snapshot and marks the listing synced
func (l *Listing) ApplySyncedUpdate(upd ListingUpdate) {
	now := time.Now()
	if upd.Title != nil {
		l.Title = *upd.Title
	}
	if upd.Description != nil {
		l.Description = *upd.Description
	}
	if upd.Price != nil {
		l.Price = *upd.Price
	}
	if upd.Quantity != nil {
		l.Quantity = *upd.Quantity
	}
	l.LastSyncedAt = &now
	l.SyncStatus = SyncStateSynced
	l.UpdatedAt = now
}

// RecordSyncError appends a failed remote update to the error history and
// flags the listing. The last known-good snapshot is left untouched.
func (l *Listing) RecordSyncError(code, message string, details map[string]any) {
	l.SyncErrors = append(l.SyncErrors, SyncErrorEntry{
		Timestamp: time.Now(),
		Code:      code,
		Message:   message,
		Details:   details,
	})
	l.SyncStatus = SyncStateError
	l.UpdatedAt = time.Now()
}

// RecordMetrics updates engagement counters from a reconciliation pass
func (l *Listing) RecordMetrics(views, watchers int) {
	l.Views = views
	l.Watchers = watchers
	now := time.Now()
	l.LastSyncedAt = &now
	l.UpdatedAt = now
}

// NetProfit returns the sale price minus total fees, or zero when unsold
func (l *Listing) NetProfit() decimal.Decimal {
	if l.SalePrice == nil {
		return decimal.Zero
	}
	return l.SalePrice.Sub(l.Fees.Total())
}

// AgeDays returns how many whole days the listing has been live
func (l *Listing) AgeDays() int {
	if l.ListedAt == nil {
		return 0
	}
	return int(time.Since(*l.ListedAt).Hours() / 24)
}
