package listing

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/crosslist/backend/internal/domain/catalog"
	"github.com/crosslist/backend/internal/domain/listing"
	"github.com/crosslist/backend/internal/domain/shared"
	"github.com/crosslist/backend/internal/infrastructure/logger"
	"github.com/crosslist/backend/internal/infrastructure/telemetry"
)

// HandleSale processes a sale reported by a platform: marks the listing
// sold, decrements catalog quantity, and cross-delists every other open
// listing of the product. Sale events carrying an event ID are deduplicated,
// so webhook retries never double-count.
func (s *SyncService) HandleSale(ctx context.Context, cmd SaleCommand) (*SaleResult, error) {
	if !cmd.Platform.IsValid() {
		return nil, listing.ErrPlatformUnknown
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "sale", "process",
		telemetry.WithAttribute(telemetry.SpanAttrPlatform, cmd.Platform.String()),
		telemetry.WithAttribute(telemetry.SpanAttrExternalID, cmd.PlatformListingID),
	)
	defer span.End()
	if cmd.Sale.EventID != "" {
		telemetry.SetAttribute(span, telemetry.SpanAttrEventID, cmd.Sale.EventID)
	}

	log := logger.WithTraceContext(ctx, s.logger)

	if cmd.Sale.EventID != "" && s.idempotency != nil {
		key := saleEventKey(cmd.Platform, cmd.Sale.EventID)
		fresh, err := s.idempotency.MarkProcessed(ctx, key, shared.DefaultIdempotencyConfig().TTL)
		if err != nil {
			log.Warn("Idempotency check failed, processing anyway",
				zap.String("event_id", cmd.Sale.EventID),
				zap.Error(err),
			)
		} else if !fresh {
			log.Info("Duplicate sale event ignored",
				zap.String("platform", cmd.Platform.String()),
				zap.String("event_id", cmd.Sale.EventID),
			)
			return &SaleResult{Duplicate: true}, nil
		}
	}

	sold, err := s.listingRepo.FindByPlatformListingID(ctx, cmd.Platform, cmd.PlatformListingID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.locks.Lock(sold.ProductID)
	defer s.locks.Unlock(sold.ProductID)

	// Re-read under the lock
	sold, err = s.listingRepo.FindByID(ctx, sold.ID)
	if err != nil {
		return nil, err
	}

	sale := cmd.Sale
	if sale.Fees == nil {
		if config, cfgErr := s.configRepo.FindByPlatform(ctx, cmd.Platform); cfgErr == nil {
			fees := config.ComputeFees(sale.Price)
			sale.Fees = &fees
		}
	}

	if err := sold.MarkSold(sale); err != nil {
		return nil, err
	}
	if err := s.listingRepo.Save(ctx, sold); err != nil {
		return nil, err
	}

	s.publish(ctx, listing.NewListingSoldEvent(sold, sale.Price))

	delta := listing.UsageDelta{
		ActiveListings: -1,
		TotalSales:     1,
		Revenue:        sale.Price.String(),
	}
	if sale.Fees != nil {
		delta.Fees = sale.Fees.Total().String()
	}
	if err := s.configRepo.IncrementUsage(ctx, cmd.Platform, delta); err != nil {
		log.Warn("Failed to increment sale counters",
			zap.String("platform", cmd.Platform.String()),
			zap.Error(err),
		)
	}

	remaining, err := s.products.DecrementQuantity(ctx, sold.ProductID, 1)
	if err != nil {
		log.Error("Failed to decrement product quantity",
			zap.String("product_id", sold.ProductID.String()),
			zap.Error(err),
		)
		remaining = 0
	}

	result := &SaleResult{
		ListingID:         sold.ID,
		ProductID:         sold.ProductID,
		RemainingQuantity: remaining,
	}

	s.notifySale(ctx, sold, sale)

	if remaining == 0 {
		if err := s.products.SetProductStatus(ctx, sold.ProductID, catalog.ProductStatusSold); err != nil {
			log.Warn("Failed to mark product sold",
				zap.String("product_id", sold.ProductID.String()),
				zap.Error(err),
			)
		}
	}

	// Every sibling listing retires the moment one platform sells, whatever
	// quantity remains: a sold item must never stay listed elsewhere.
	telemetry.AddEvent(span, "cross_delist_started",
		telemetry.SpanAttrProductID, sold.ProductID.String(),
	)
	result.Delisted = s.crossDelist(ctx, sold, cmd.Trigger)
	return result, nil
}

// crossDelist retires every other open listing of the sold product. Remote
// end calls run concurrently; each listing is delisted locally no matter how
// its remote call fares.
func (s *SyncService) crossDelist(ctx context.Context, sold *listing.Listing, trigger listing.TriggerSource) []PlatformOutcome {
	all, err := s.listingRepo.FindByProduct(ctx, sold.ProductID)
	if err != nil {
		s.logger.Error("Failed to load listings for cross-delist",
			zap.String("product_id", sold.ProductID.String()),
			zap.Error(err),
		)
		return nil
	}

	var targets []*listing.Listing
	for _, l := range all {
		if l.ID != sold.ID && l.Status.IsOpen() {
			targets = append(targets, l)
		}
	}
	if len(targets) == 0 {
		return nil
	}

	entry, err := listing.NewSyncLogEntry(sold.ProductID, listing.OperationDelist, listing.TriggerSystem)
	if err != nil {
		s.logger.Error("Failed to open cross-delist log entry", zap.Error(err))
		return nil
	}

	reason := fmt.Sprintf("sold on %s", sold.Platform.DisplayName())
	outcomes := make([]platformOutcome, len(targets))
	var wg sync.WaitGroup
	for i, l := range targets {
		wg.Add(1)
		go func(i int, l *listing.Listing) {
			defer wg.Done()
			outcomes[i] = s.endRemoteAndDelist(ctx, l, reason)
		}(i, l)
	}
	wg.Wait()

	public := make([]PlatformOutcome, 0, len(outcomes))
	for _, o := range outcomes {
		entry.AddResult(toPlatformResult(o))
		public = append(public, o.public())
	}
	if err := entry.Complete(); err == nil {
		if saveErr := s.syncLogRepo.Save(ctx, entry); saveErr != nil {
			s.logger.Error("Failed to save cross-delist log entry", zap.Error(saveErr))
		}
		s.publish(ctx, listing.NewSyncCompletedEvent(entry))
	}

	s.notifyCrossDelist(ctx, sold, public)

	s.logger.Info("Cross-delist finished",
		zap.String("product_id", sold.ProductID.String()),
		zap.String("sold_on", sold.Platform.String()),
		zap.Int("targets", len(targets)),
		zap.String("status", entry.Status.String()),
	)

	return public
}

func (s *SyncService) notifySale(ctx context.Context, sold *listing.Listing, sale listing.SaleData) {
	n, err := listing.NewNotification(
		listing.NotificationSale,
		listing.PriorityHigh,
		fmt.Sprintf("Sold on %s", sold.Platform.DisplayName()),
		fmt.Sprintf("%q sold for %s", sold.Title, sale.Price.StringFixed(2)),
	)
	if err != nil {
		return
	}
	n.Platform = sold.Platform
	n.ProductID = &sold.ProductID
	n.ListingID = &sold.ID
	if err := s.notifRepo.Save(ctx, n); err != nil {
		s.logger.Warn("Failed to save sale notification", zap.Error(err))
	}
}

func (s *SyncService) notifyCrossDelist(ctx context.Context, sold *listing.Listing, outcomes []PlatformOutcome) {
	var failed []string
	for _, o := range outcomes {
		if !o.Success {
			failed = append(failed, o.Platform.DisplayName())
		}
	}

	title := "Other listings removed"
	message := fmt.Sprintf("%q was delisted from %d other platform(s) after selling on %s",
		sold.Title, len(outcomes), sold.Platform.DisplayName())
	priority := listing.PriorityNormal
	if len(failed) > 0 {
		title = "Some listings need attention"
		message = fmt.Sprintf("%q could not be ended remotely on: %v. The listings were removed locally; end them on the platform by hand.",
			sold.Title, failed)
		priority = listing.PriorityUrgent
	}

	n, err := listing.NewNotification(listing.NotificationDelistResult, priority, title, message)
	if err != nil {
		return
	}
	n.Platform = sold.Platform
	n.ProductID = &sold.ProductID
	n.ListingID = &sold.ID
	if err := s.notifRepo.Save(ctx, n); err != nil {
		s.logger.Warn("Failed to save delist notification", zap.Error(err))
	}
}

func saleEventKey(platform listing.Platform, eventID string) string {
	return fmt.Sprintf("sale:%s:%s", platform, eventID)
}
