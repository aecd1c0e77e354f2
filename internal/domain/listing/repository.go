package listing

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/crosslist/backend/internal/domain/shared"
)

// ListingFilter narrows listing queries. Zero values mean "any".
type ListingFilter struct {
	shared.Filter

	ProductID  *uuid.UUID
	Platform   *Platform
	Status     *ListingStatus
	SyncStatus *ListingSyncStatus
	// OpenOnly restricts to pending and active listings
	OpenOnly bool
}

// SyncLogFilter narrows sync history queries. Zero values mean "any".
type SyncLogFilter struct {
	shared.Filter

	ProductID *uuid.UUID
	Operation *OperationKind
	Status    *AggregateStatus
	Trigger   *TriggerSource
	Since     *time.Time
}

// NotificationFilter narrows notification queries. Zero values mean "any".
type NotificationFilter struct {
	shared.Filter

	Type     *NotificationType
	Platform *Platform
	// UnreadOnly restricts to unread notifications
	UnreadOnly bool
	// IncludeArchived also returns archived notifications
	IncludeArchived bool
}

// PlatformStats is the per-platform aggregate the stats endpoint reports
type PlatformStats struct {
	Platform       Platform `json:"platform"`
	TotalListings  int64    `json:"total_listings"`
	ActiveListings int64    `json:"active_listings"`
	SoldListings   int64    `json:"sold_listings"`
	TotalRevenue   string   `json:"total_revenue"`
	TotalFees      string   `json:"total_fees"`
}

// ListingRepository is the persistence port for listings
type ListingRepository interface {
	// Save inserts or updates a listing
	Save(ctx context.Context, l *Listing) error
	// FindByID returns a listing by its local ID
	FindByID(ctx context.Context, id uuid.UUID) (*Listing, error)
	// FindByPlatformListingID returns a listing by its marketplace identifier
	FindByPlatformListingID(ctx context.Context, platform Platform, platformListingID string) (*Listing, error)
	// FindOpenByProductAndPlatform returns the pending or active listing for a
	// (product, platform) pair, enforcing the one-open-listing invariant
	FindOpenByProductAndPlatform(ctx context.Context, productID uuid.UUID, platform Platform) (*Listing, error)
	// FindByProduct returns all listings for a product, any status
	FindByProduct(ctx context.Context, productID uuid.UUID) ([]*Listing, error)
	// List returns listings matching the filter with a total count
	List(ctx context.Context, filter ListingFilter) (*shared.Paginated[*Listing], error)
	// ListActive returns all active listings, for reconciliation sweeps
	ListActive(ctx context.Context) ([]*Listing, error)
	// StatsByPlatform aggregates listing counts and revenue per platform
	StatsByPlatform(ctx context.Context) ([]PlatformStats, error)
}

// PlatformConfigRepository is the persistence port for platform configs
type PlatformConfigRepository interface {
	// Save inserts or updates a config
	Save(ctx context.Context, c *PlatformConfig) error
	// FindByPlatform returns the config for a platform
	FindByPlatform(ctx context.Context, platform Platform) (*PlatformConfig, error)
	// FindAll returns every stored config
	FindAll(ctx context.Context) ([]*PlatformConfig, error)
	// IncrementUsage atomically adjusts the usage counters for a platform.
	// Revenue and fees are decimal strings; empty means no change.
	IncrementUsage(ctx context.Context, platform Platform, delta UsageDelta) error
}

// UsageDelta is an atomic adjustment to a config's usage counters
type UsageDelta struct {
	TotalListings  int64
	ActiveListings int64
	TotalSales     int64
	Revenue        string
	Fees           string
}

// SyncLogRepository is the persistence port for the sync audit ledger
type SyncLogRepository interface {
	// Save inserts or updates an entry
	Save(ctx context.Context, e *SyncLogEntry) error
	// FindByID returns an entry by ID
	FindByID(ctx context.Context, id uuid.UUID) (*SyncLogEntry, error)
	// List returns entries matching the filter, newest first
	List(ctx context.Context, filter SyncLogFilter) (*shared.Paginated[*SyncLogEntry], error)
	// CountByStatus counts entries per aggregate status since a time
	CountByStatus(ctx context.Context, since time.Time) (map[AggregateStatus]int64, error)
}

// NotificationRepository is the persistence port for notifications
type NotificationRepository interface {
	// Save inserts or updates a notification
	Save(ctx context.Context, n *Notification) error
	// FindByID returns a notification by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Notification, error)
	// List returns notifications matching the filter, newest first
	List(ctx context.Context, filter NotificationFilter) (*shared.Paginated[*Notification], error)
	// CountUnread counts unread, unarchived notifications
	CountUnread(ctx context.Context) (int64, error)
	// MarkAllRead stamps every unread notification read
	MarkAllRead(ctx context.Context) error
	// DeleteExpired removes aged-out notifications and reports how many
	DeleteExpired(ctx context.Context) (int64, error)
}
