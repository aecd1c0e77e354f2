package listing

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/crosslist/backend/internal/domain/listing"
	"github.com/crosslist/backend/internal/domain/shared"
)

// NotificationService manages the operator notification feed and executes
// approved third-party actions.
type NotificationService struct {
	notifRepo   listing.NotificationRepository
	listingRepo listing.ListingRepository
	engine      *SyncService
	logger      *zap.Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(
	notifRepo listing.NotificationRepository,
	listingRepo listing.ListingRepository,
	engine *SyncService,
	logger *zap.Logger,
) *NotificationService {
	return &NotificationService{
		notifRepo:   notifRepo,
		listingRepo: listingRepo,
		engine:      engine,
		logger:      logger,
	}
}

// ListNotifications returns notifications matching the filter, newest first
func (s *NotificationService) ListNotifications(ctx context.Context, filter listing.NotificationFilter) (*shared.Paginated[*listing.Notification], error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	return s.notifRepo.List(ctx, filter)
}

// GetNotification returns one notification by ID
func (s *NotificationService) GetNotification(ctx context.Context, id uuid.UUID) (*listing.Notification, error) {
	return s.notifRepo.FindByID(ctx, id)
}

// MarkRead stamps one notification read
func (s *NotificationService) MarkRead(ctx context.Context, id uuid.UUID) error {
	n, err := s.notifRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	n.MarkRead()
	return s.notifRepo.Save(ctx, n)
}

// MarkAllRead stamps every unread notification read
func (s *NotificationService) MarkAllRead(ctx context.Context) error {
	return s.notifRepo.MarkAllRead(ctx)
}

// ArchiveNotification hides one notification from the default feed
func (s *NotificationService) ArchiveNotification(ctx context.Context, id uuid.UUID) error {
	n, err := s.notifRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	n.Archive()
	return s.notifRepo.Save(ctx, n)
}

// UnreadCount returns the number of unread, unarchived notifications
func (s *NotificationService) UnreadCount(ctx context.Context) (int64, error) {
	return s.notifRepo.CountUnread(ctx)
}

// PruneExpired deletes aged-out notifications
func (s *NotificationService) PruneExpired(ctx context.Context) (int64, error) {
	n, err := s.notifRepo.DeleteExpired(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("Pruned expired notifications", zap.Int64("count", n))
	}
	return n, nil
}

// ApproveAction accepts a detected third-party change and brings the local
// record in line with it. The approval stamp is persisted only after the
// change applies, so a failed apply leaves the action pending and a retry
// goes through the full path again. Approving an already approved
// notification returns the original approval without re-applying anything.
func (s *NotificationService) ApproveAction(ctx context.Context, id uuid.UUID, approver string) (*listing.Notification, error) {
	n, err := s.notifRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !n.Approvable() {
		return nil, listing.ErrNotApprovable
	}
	if n.Action.Approved {
		return n, nil
	}

	if err := s.applyAction(ctx, n, n.Action); err != nil {
		s.logger.Error("Failed to apply third-party action",
			zap.String("notification_id", n.ID.String()),
			zap.String("kind", string(n.Action.Kind)),
			zap.Error(err),
		)
		return nil, err
	}

	action, err := n.Approve(approver)
	if err != nil {
		return nil, err
	}
	if err := s.notifRepo.Save(ctx, n); err != nil {
		return nil, err
	}

	s.logger.Info("Third-party action applied",
		zap.String("notification_id", n.ID.String()),
		zap.String("kind", string(action.Kind)),
		zap.String("approved_by", approver),
	)
	return n, nil
}

// applyAction performs the local state change an approved action calls for
func (s *NotificationService) applyAction(ctx context.Context, n *listing.Notification, action *listing.ThirdPartyAction) error {
	l, err := s.listingRepo.FindByID(ctx, action.ListingID)
	if err != nil {
		return err
	}

	switch action.Kind {
	case listing.ThirdPartySold:
		// Route through the engine so quantity decrements and the
		// cross-delist fire exactly as for a webhook-reported sale
		sale := listing.SaleData{Price: l.Price}
		if raw, ok := action.Observed["remote_price"].(string); ok {
			if price, perr := decimal.NewFromString(raw); perr == nil {
				sale.Price = price
			}
		}
		_, err := s.engine.HandleSale(ctx, SaleCommand{
			Platform:          l.Platform,
			PlatformListingID: l.PlatformListingID,
			Trigger:           listing.TriggerSystem,
			Sale:              sale,
		})
		return err

	case listing.ThirdPartyEnded:
		if err := l.End("ended on platform"); err != nil {
			return err
		}
		return s.listingRepo.Save(ctx, l)

	case listing.ThirdPartyRemoved:
		if err := l.Delist("removed on platform"); err != nil {
			return err
		}
		return s.listingRepo.Save(ctx, l)

	case listing.ThirdPartyPriceChanged:
		raw, ok := action.Observed["remote_price"].(string)
		if !ok {
			return shared.NewDomainError("INVALID_INPUT", "observed remote price missing")
		}
		price, err := decimal.NewFromString(raw)
		if err != nil {
			return shared.NewDomainError("INVALID_INPUT", "observed remote price malformed")
		}
		l.ApplySyncedUpdate(listing.ListingUpdate{Price: &price})
		return s.listingRepo.Save(ctx, l)

	case listing.ThirdPartyQuantityChanged:
		qty, ok := observedQuantity(action.Observed["remote_quantity"])
		if !ok {
			return shared.NewDomainError("INVALID_INPUT", "observed remote quantity missing")
		}
		l.ApplySyncedUpdate(listing.ListingUpdate{Quantity: &qty})
		return s.listingRepo.Save(ctx, l)

	default:
		return shared.NewDomainError("INVALID_INPUT", "unknown third-party action kind")
	}
}

// observedQuantity reads the remote quantity out of the observed payload.
// The payload round-trips through JSON, so numbers may come back as float64.
func observedQuantity(v any) (int, bool) {
	switch q := v.(type) {
	case int:
		return q, true
	case float64:
		return int(q), true
	default:
		return 0, false
	}
}
