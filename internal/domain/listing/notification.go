package listing

import (
	"time"

	"github.com/google/uuid"

	"github.com/crosslist/backend/internal/domain/shared"
)

// ---------------------------------------------------------------------------
// Notification type and priority
// ---------------------------------------------------------------------------

// NotificationType classifies what a notification reports
type NotificationType string

const (
	// NotificationSale reports an item sold on a platform
	NotificationSale NotificationType = "sale"
	// NotificationSyncError reports a failed remote update
	NotificationSyncError NotificationType = "sync_error"
	// NotificationDelistResult reports the outcome of a cross-delist
	NotificationDelistResult NotificationType = "delist_result"
	// NotificationThirdPartyAction reports an out-of-band change detected on
	// a platform, awaiting operator approval
	NotificationThirdPartyAction NotificationType = "third_party_action"
	// NotificationConnection reports platform connection state changes
	NotificationConnection NotificationType = "connection"
)

// IsValid returns true if the type is a known value
func (t NotificationType) IsValid() bool {
	switch t {
	case NotificationSale, NotificationSyncError, NotificationDelistResult,
		NotificationThirdPartyAction, NotificationConnection:
		return true
	default:
		return false
	}
}

// String returns the string representation of NotificationType
func (t NotificationType) String() string {
	return string(t)
}

// NotificationPriority orders notifications for display
type NotificationPriority string

const (
	PriorityLow    NotificationPriority = "low"
	PriorityNormal NotificationPriority = "normal"
	PriorityHigh   NotificationPriority = "high"
	PriorityUrgent NotificationPriority = "urgent"
)

// IsValid returns true if the priority is a known value
func (p NotificationPriority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	default:
		return false
	}
}

// ---------------------------------------------------------------------------
// Third-party actions
// ---------------------------------------------------------------------------

// ThirdPartyActionKind names the out-of-band change detected on a platform
type ThirdPartyActionKind string

const (
	// ThirdPartySold means the remote listing sold outside the engine
	ThirdPartySold ThirdPartyActionKind = "sold"
	// ThirdPartyEnded means the remote listing was ended outside the engine
	ThirdPartyEnded ThirdPartyActionKind = "ended"
	// ThirdPartyPriceChanged means the remote price no longer matches
	ThirdPartyPriceChanged ThirdPartyActionKind = "price_changed"
	// ThirdPartyQuantityChanged means the remote quantity no longer matches
	ThirdPartyQuantityChanged ThirdPartyActionKind = "quantity_changed"
	// ThirdPartyRemoved means the remote listing no longer exists
	ThirdPartyRemoved ThirdPartyActionKind = "removed"
)

// IsValid returns true if the kind is a known value
func (k ThirdPartyActionKind) IsValid() bool {
	switch k {
	case ThirdPartySold, ThirdPartyEnded, ThirdPartyPriceChanged,
		ThirdPartyQuantityChanged, ThirdPartyRemoved:
		return true
	default:
		return false
	}
}

// ThirdPartyAction describes a detected out-of-band change and, once
// approved, who accepted it and when
type ThirdPartyAction struct {
	Kind ThirdPartyActionKind `json:"kind"`
	// ListingID is the local listing the change was detected against
	ListingID uuid.UUID `json:"listing_id"`
	// Observed carries the remote state that differed
	Observed map[string]any `json:"observed,omitempty"`
	// DetectedAt is when reconciliation noticed the change
	DetectedAt time.Time `json:"detected_at"`
	// Approved, ApprovedBy and ApprovedAt are stamped on operator approval
	Approved   bool       `json:"approved"`
	ApprovedBy string     `json:"approved_by,omitempty"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`
}

// ---------------------------------------------------------------------------
// Notification entity
// ---------------------------------------------------------------------------

// Notification is an operator-facing message produced by the engine. Only
// third-party-action notifications are approvable; the rest are purely
// informational.
type Notification struct {
	shared.BaseEntity

	// Type classifies the notification
	Type NotificationType
	// Priority orders display
	Priority NotificationPriority
	// Title and Message are the operator-facing text
	Title   string
	Message string
	// Platform is the marketplace concerned, if any
	Platform Platform
	// ProductID and ListingID reference the subjects, when applicable
	ProductID *uuid.UUID
	ListingID *uuid.UUID
	// Data carries type-specific payload
	Data map[string]any
	// Action is the pending third-party change, for approvable notifications
	Action *ThirdPartyAction

	// Read and ReadAt track operator acknowledgement
	Read   bool
	ReadAt *time.Time
	// Archived hides the notification from the default feed
	Archived bool
	// ExpiresAt lets informational notifications age out
	ExpiresAt *time.Time
}

// NewNotification creates an unread notification
func NewNotification(typ NotificationType, priority NotificationPriority, title, message string) (*Notification, error) {
	if !typ.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", "unknown notification type")
	}
	if !priority.IsValid() {
		priority = PriorityNormal
	}
	if title == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "notification title is required")
	}
	return &Notification{
		BaseEntity: shared.NewBaseEntity(),
		Type:       typ,
		Priority:   priority,
		Title:      title,
		Message:    message,
	}, nil
}

// NewThirdPartyNotification creates an approvable notification for a change
// detected outside the engine
func NewThirdPartyNotification(platform Platform, productID, listingID uuid.UUID, action ThirdPartyAction, title, message string) (*Notification, error) {
	n, err := NewNotification(NotificationThirdPartyAction, PriorityHigh, title, message)
	if err != nil {
		return nil, err
	}
	if !action.Kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", "unknown third-party action kind")
	}
	action.ListingID = listingID
	if action.DetectedAt.IsZero() {
		action.DetectedAt = time.Now()
	}
	n.Platform = platform
	n.ProductID = &productID
	n.ListingID = &listingID
	n.Action = &action
	return n, nil
}

// MarkRead stamps the notification read; reading twice is a no-op
func (n *Notification) MarkRead() {
	if n.Read {
		return
	}
	now := time.Now()
	n.Read = true
	n.ReadAt = &now
	n.UpdatedAt = now
}

// Archive hides the notification from the default feed
func (n *Notification) Archive() {
	if n.Archived {
		return
	}
	n.Archived = true
	n.UpdatedAt = time.Now()
}

// Approvable reports whether the notification carries a pending action
func (n *Notification) Approvable() bool {
	return n.Type == NotificationThirdPartyAction && n.Action != nil
}

// Approve stamps the pending action as accepted. Approving an already
// approved action returns the original stamp unchanged, so retried approvals
// are safe.
func (n *Notification) Approve(approver string) (*ThirdPartyAction, error) {
	if !n.Approvable() {
		return nil, ErrNotApprovable
	}
	if n.Action.Approved {
		return n.Action, nil
	}
	now := time.Now()
	n.Action.Approved = true
	n.Action.ApprovedBy = approver
	n.Action.ApprovedAt = &now
	n.MarkRead()
	n.UpdatedAt = now
	return n.Action, nil
}

// Expired reports whether the notification has aged out
func (n *Notification) Expired() bool {
	return n.ExpiresAt != nil && time.Now().After(*n.ExpiresAt)
}
