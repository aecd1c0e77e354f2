package listing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/crosslist/backend/internal/domain/shared"
)

// Event types emitted by the listing engine
const (
	EventListingCreated      = "listing.created"
	EventListingUpdated      = "listing.updated"
	EventListingSold         = "listing.sold"
	EventListingDelisted     = "listing.delisted"
	EventSyncCompleted       = "listing.sync_completed"
	EventThirdPartyDetected  = "listing.third_party_detected"
	EventPlatformConnected   = "platform.connected"
	EventPlatformTripped     = "platform.tripped"
	EventNotificationCreated = "notification.created"
)

// ListingCreatedEvent fires when a listing goes live on a marketplace
type ListingCreatedEvent struct {
	shared.BaseDomainEvent
	ProductID         uuid.UUID `json:"product_id"`
	Platform          Platform  `json:"platform"`
	PlatformListingID string    `json:"platform_listing_id"`
}

// NewListingCreatedEvent creates a ListingCreatedEvent
func NewListingCreatedEvent(l *Listing) *ListingCreatedEvent {
	return &ListingCreatedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventListingCreated, "listing", l.ID),
		ProductID:         l.ProductID,
		Platform:          l.Platform,
		PlatformListingID: l.PlatformListingID,
	}
}

// ListingSoldEvent fires when a sale is recorded against a listing
type ListingSoldEvent struct {
	shared.BaseDomainEvent
	ProductID uuid.UUID       `json:"product_id"`
	Platform  Platform        `json:"platform"`
	SalePrice decimal.Decimal `json:"sale_price"`
}

// NewListingSoldEvent creates a ListingSoldEvent
func NewListingSoldEvent(l *Listing, salePrice decimal.Decimal) *ListingSoldEvent {
	return &ListingSoldEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventListingSold, "listing", l.ID),
		ProductID:       l.ProductID,
		Platform:        l.Platform,
		SalePrice:       salePrice,
	}
}

// ListingDelistedEvent fires when a listing is retired locally
type ListingDelistedEvent struct {
	shared.BaseDomainEvent
	ProductID uuid.UUID `json:"product_id"`
	Platform  Platform  `json:"platform"`
	// RemoteEnded is false when the marketplace end call failed and only the
	// local state advanced
	RemoteEnded bool   `json:"remote_ended"`
	Reason      string `json:"reason,omitempty"`
}

// NewListingDelistedEvent creates a ListingDelistedEvent
func NewListingDelistedEvent(l *Listing, remoteEnded bool, reason string) *ListingDelistedEvent {
	return &ListingDelistedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventListingDelisted, "listing", l.ID),
		ProductID:       l.ProductID,
		Platform:        l.Platform,
		RemoteEnded:     remoteEnded,
		Reason:          reason,
	}
}

// SyncCompletedEvent fires when a multi-platform operation finishes
type SyncCompletedEvent struct {
	shared.BaseDomainEvent
	ProductID uuid.UUID       `json:"product_id"`
	Operation OperationKind   `json:"operation"`
	Status    AggregateStatus `json:"status"`
	Succeeded []Platform      `json:"succeeded"`
	Failed    []Platform      `json:"failed"`
}

// NewSyncCompletedEvent creates a SyncCompletedEvent from a closed log entry
func NewSyncCompletedEvent(e *SyncLogEntry) *SyncCompletedEvent {
	return &SyncCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventSyncCompleted, "sync_log", e.ID),
		ProductID:       e.ProductID,
		Operation:       e.Operation,
		Status:          e.Status,
		Succeeded:       e.Succeeded(),
		Failed:          e.Failed(),
	}
}

// ThirdPartyDetectedEvent fires when reconciliation finds an out-of-band change
type ThirdPartyDetectedEvent struct {
	shared.BaseDomainEvent
	Platform  Platform             `json:"platform"`
	ListingID uuid.UUID            `json:"listing_id"`
	Kind      ThirdPartyActionKind `json:"kind"`
}

// NewThirdPartyDetectedEvent creates a ThirdPartyDetectedEvent
func NewThirdPartyDetectedEvent(n *Notification) *ThirdPartyDetectedEvent {
	ev := &ThirdPartyDetectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventThirdPartyDetected, "notification", n.ID),
		Platform:        n.Platform,
	}
	if n.Action != nil {
		ev.ListingID = n.Action.ListingID
		ev.Kind = n.Action.Kind
	}
	return ev
}

// PlatformConnectedEvent fires when a platform connection is established
type PlatformConnectedEvent struct {
	shared.BaseDomainEvent
	Platform Platform `json:"platform"`
}

// NewPlatformConnectedEvent creates a PlatformConnectedEvent
func NewPlatformConnectedEvent(c *PlatformConfig) *PlatformConnectedEvent {
	return &PlatformConnectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventPlatformConnected, "platform_config", c.ID),
		Platform:        c.Platform,
	}
}

// PlatformTrippedEvent fires when repeated failures trip a connection
type PlatformTrippedEvent struct {
	shared.BaseDomainEvent
	Platform  Platform `json:"platform"`
	LastError string   `json:"last_error"`
}

// NewPlatformTrippedEvent creates a PlatformTrippedEvent
func NewPlatformTrippedEvent(c *PlatformConfig) *PlatformTrippedEvent {
	return &PlatformTrippedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventPlatformTripped, "platform_config", c.ID),
		Platform:        c.Platform,
		LastError:       c.LastError,
	}
}
