package listing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/crosslist/backend/internal/domain/listing"
	"github.com/crosslist/backend/internal/domain/shared"
	"github.com/crosslist/backend/internal/infrastructure/telemetry"
)

// ReconciliationService compares local listing state against what each
// marketplace actually shows. Differences are never applied automatically;
// they become approvable notifications so an operator decides whether the
// engine's record should follow the remote change.
type ReconciliationService struct {
	listingRepo listing.ListingRepository
	notifRepo   listing.NotificationRepository
	registry    listing.AdapterRegistry
	configRepo  listing.PlatformConfigRepository
	eventBus    shared.EventBus
	logger      *zap.Logger

	callTimeout time.Duration
}

// NewReconciliationService creates a new ReconciliationService
func NewReconciliationService(
	listingRepo listing.ListingRepository,
	notifRepo listing.NotificationRepository,
	registry listing.AdapterRegistry,
	configRepo listing.PlatformConfigRepository,
	eventBus shared.EventBus,
	logger *zap.Logger,
) *ReconciliationService {
	return &ReconciliationService{
		listingRepo: listingRepo,
		notifRepo:   notifRepo,
		registry:    registry,
		configRepo:  configRepo,
		eventBus:    eventBus,
		logger:      logger,
		callTimeout: DefaultAdapterTimeout,
	}
}

// ReconcileStats summarizes one reconciliation sweep
type ReconcileStats struct {
	Checked   int       `json:"checked"`
	Drifted   int       `json:"drifted"`
	Errors    int       `json:"errors"`
	StartedAt time.Time `json:"started_at"`
}

// ReconcileAll sweeps every active listing whose platform can be read
func (s *ReconciliationService) ReconcileAll(ctx context.Context) (*ReconcileStats, error) {
	stats := &ReconcileStats{StartedAt: time.Now()}

	active, err := s.listingRepo.ListActive(ctx)
	if err != nil {
		s.logger.Error("Failed to load active listings for reconciliation", zap.Error(err))
		return nil, err
	}

	for _, l := range active {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		labels := telemetry.OperationLabels("reconcile", map[string]string{
			telemetry.ProfilingLabelPlatform: l.Platform.String(),
		})
		telemetry.WithProfilingLabels(ctx, labels, func(ctx context.Context) {
			drifted, err := s.reconcileOne(ctx, l)
			if err != nil {
				stats.Errors++
				return
			}
			stats.Checked++
			if drifted {
				stats.Drifted++
			}
		})
	}

	s.logger.Info("Reconciliation sweep finished",
		zap.Int("checked", stats.Checked),
		zap.Int("drifted", stats.Drifted),
		zap.Int("errors", stats.Errors),
	)
	return stats, nil
}

// reconcileOne compares one listing against its remote copy. It returns true
// when drift was detected and a notification raised.
func (s *ReconciliationService) reconcileOne(ctx context.Context, l *listing.Listing) (bool, error) {
	adapter, err := s.registry.Adapter(l.Platform)
	if err != nil {
		return false, err
	}
	if !adapter.Capabilities().Supports(listing.CapabilityGet) {
		return false, nil
	}

	config, err := s.configRepo.FindByPlatform(ctx, l.Platform)
	if err != nil || config.IsReady() != nil {
		return false, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	remote, err := adapter.GetListing(callCtx, l.PlatformListingID)
	cancel()
	if err != nil {
		var adapterErr *listing.AdapterError
		if errors.As(err, &adapterErr) && adapterErr.Code == listing.AdapterErrCodeNotFound {
			return true, s.raiseDrift(ctx, l, listing.ThirdPartyRemoved, map[string]any{
				"platform_listing_id": l.PlatformListingID,
			})
		}
		s.logger.Warn("Remote read failed during reconciliation",
			zap.String("platform", l.Platform.String()),
			zap.String("listing_id", l.ID.String()),
			zap.Error(err),
		)
		return false, err
	}

	l.RecordMetrics(remote.Views, remote.Watchers)
	if err := s.listingRepo.Save(ctx, l); err != nil {
		s.logger.Warn("Failed to persist listing metrics", zap.Error(err))
	}

	switch remote.Status {
	case listing.RemoteStatusSold:
		return true, s.raiseDrift(ctx, l, listing.ThirdPartySold, map[string]any{
			"remote_status": string(remote.Status),
		})
	case listing.RemoteStatusEnded:
		return true, s.raiseDrift(ctx, l, listing.ThirdPartyEnded, map[string]any{
			"remote_status": string(remote.Status),
		})
	case listing.RemoteStatusUnknown:
		return false, nil
	}

	if remote.Price != nil && !remote.Price.Equal(l.Price) {
		return true, s.raiseDrift(ctx, l, listing.ThirdPartyPriceChanged, map[string]any{
			"local_price":  l.Price.String(),
			"remote_price": remote.Price.String(),
		})
	}

	if remote.Quantity != nil && *remote.Quantity != l.Quantity {
		return true, s.raiseDrift(ctx, l, listing.ThirdPartyQuantityChanged, map[string]any{
			"local_quantity":  l.Quantity,
			"remote_quantity": *remote.Quantity,
		})
	}

	return false, nil
}

// raiseDrift creates the approvable notification for a detected change,
// unless an unresolved one for the same listing and kind already exists
func (s *ReconciliationService) raiseDrift(ctx context.Context, l *listing.Listing, kind listing.ThirdPartyActionKind, observed map[string]any) error {
	if s.hasPendingAction(ctx, l, kind) {
		return nil
	}

	title := fmt.Sprintf("%s changed on %s", driftLabel(kind), l.Platform.DisplayName())
	message := fmt.Sprintf("%q was %s on %s outside this app. Approve to update the local record.",
		l.Title, driftLabel(kind), l.Platform.DisplayName())

	n, err := listing.NewThirdPartyNotification(l.Platform, l.ProductID, l.ID,
		listing.ThirdPartyAction{Kind: kind, Observed: observed}, title, message)
	if err != nil {
		return err
	}
	if err := s.notifRepo.Save(ctx, n); err != nil {
		return err
	}

	if s.eventBus != nil {
		if err := s.eventBus.Publish(ctx, listing.NewThirdPartyDetectedEvent(n)); err != nil {
			s.logger.Warn("Failed to publish third-party event", zap.Error(err))
		}
	}

	s.logger.Info("Third-party change detected",
		zap.String("platform", l.Platform.String()),
		zap.String("listing_id", l.ID.String()),
		zap.String("kind", string(kind)),
	)
	return nil
}

// hasPendingAction reports whether an unapproved notification for the same
// listing and kind is already open, to avoid flooding the operator on every
// sweep
func (s *ReconciliationService) hasPendingAction(ctx context.Context, l *listing.Listing, kind listing.ThirdPartyActionKind) bool {
	typ := listing.NotificationThirdPartyAction
	page, err := s.notifRepo.List(ctx, listing.NotificationFilter{
		Filter: shared.Filter{Page: 1, PageSize: 100},
		Type:   &typ,
	})
	if err != nil {
		return false
	}
	for _, n := range page.Items {
		if n.Action != nil && !n.Action.Approved &&
			n.Action.ListingID == l.ID && n.Action.Kind == kind {
			return true
		}
	}
	return false
}

func driftLabel(kind listing.ThirdPartyActionKind) string {
	switch kind {
	case listing.ThirdPartySold:
		return "sold"
	case listing.ThirdPartyEnded:
		return "ended"
	case listing.ThirdPartyPriceChanged:
		return "price"
	case listing.ThirdPartyQuantityChanged:
		return "quantity"
	case listing.ThirdPartyRemoved:
		return "removed"
	default:
		return string(kind)
	}
}

