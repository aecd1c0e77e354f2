package listing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/crosslist/backend/internal/domain/catalog"
	"github.com/crosslist/backend/internal/domain/listing"
	"github.com/crosslist/backend/internal/domain/shared"
	"github.com/crosslist/backend/internal/infrastructure/telemetry"
)

// DefaultAdapterTimeout bounds every outbound marketplace call
const DefaultAdapterTimeout = 30 * time.Second

// SyncService is the listing engine. It orchestrates platform adapters,
// persists listings and the sync ledger, and keeps per-platform outcomes
// isolated: one marketplace failing never aborts the others.
type SyncService struct {
	listingRepo listing.ListingRepository
	configRepo  listing.PlatformConfigRepository
	syncLogRepo listing.SyncLogRepository
	notifRepo   listing.NotificationRepository
	registry    listing.AdapterRegistry
	products    catalog.ProductCatalog
	idempotency shared.IdempotencyStore
	eventBus    shared.EventBus
	logger      *zap.Logger

	locks       *productLocks
	callTimeout time.Duration
}

// NewSyncService creates a new SyncService
func NewSyncService(
	listingRepo listing.ListingRepository,
	configRepo listing.PlatformConfigRepository,
	syncLogRepo listing.SyncLogRepository,
	notifRepo listing.NotificationRepository,
	registry listing.AdapterRegistry,
	products catalog.ProductCatalog,
	idempotency shared.IdempotencyStore,
	eventBus shared.EventBus,
	logger *zap.Logger,
) *SyncService {
	return &SyncService{
		listingRepo: listingRepo,
		configRepo:  configRepo,
		syncLogRepo: syncLogRepo,
		notifRepo:   notifRepo,
		registry:    registry,
		products:    products,
		idempotency: idempotency,
		eventBus:    eventBus,
		logger:      logger,
		locks:       newProductLocks(),
		callTimeout: DefaultAdapterTimeout,
	}
}

// SetAdapterTimeout overrides the per-call adapter timeout
func (s *SyncService) SetAdapterTimeout(d time.Duration) {
	if d > 0 {
		s.callTimeout = d
	}
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

// CreateListing lists a product on a single platform. On success a listing
// row is persisted as active; on failure no listing row exists and the
// attempt is recorded in the sync ledger only.
func (s *SyncService) CreateListing(ctx context.Context, cmd CreateListingCommand) (*listing.Listing, error) {
	s.locks.Lock(cmd.ProductID)
	defer s.locks.Unlock(cmd.ProductID)

	entry, err := listing.NewSyncLogEntry(cmd.ProductID, listing.OperationCreate, cmd.Trigger)
	if err != nil {
		return nil, err
	}

	product, err := s.products.GetProduct(ctx, cmd.ProductID)
	if err != nil {
		return nil, err
	}

	created, outcome := s.createOnPlatform(ctx, product, cmd.Platform, cmd.Overrides)
	entry.AddResult(toPlatformResult(outcome))
	if err := entry.Complete(); err != nil {
		return nil, err
	}
	if err := s.syncLogRepo.Save(ctx, entry); err != nil {
		s.logger.Error("Failed to save sync log entry",
			zap.String("product_id", cmd.ProductID.String()),
			zap.Error(err),
		)
	}
	s.publish(ctx, listing.NewSyncCompletedEvent(entry))

	if created == nil {
		return nil, outcome.err
	}

	if product.Status == catalog.ProductStatusDraft {
		if err := s.products.SetProductStatus(ctx, product.ID, catalog.ProductStatusActive); err != nil {
			s.logger.Warn("Failed to activate product after listing",
				zap.String("product_id", product.ID.String()),
				zap.Error(err),
			)
		}
	}

	return created, nil
}

// CreateMultiPlatform lists a product on several platforms concurrently.
// Each platform succeeds or fails on its own; the aggregate status reflects
// the mix.
func (s *SyncService) CreateMultiPlatform(ctx context.Context, cmd CreateMultiPlatformCommand) (*MultiPlatformResult, error) {
	if len(cmd.Platforms) == 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "at least one platform is required")
	}
	for _, p := range cmd.Platforms {
		if !p.IsValid() {
			return nil, listing.ErrPlatformUnknown
		}
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "listing", "create_multi",
		telemetry.WithAttribute(telemetry.SpanAttrProductID, cmd.ProductID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrPlatformCount, len(cmd.Platforms)),
	)
	defer span.End()

	s.locks.Lock(cmd.ProductID)
	defer s.locks.Unlock(cmd.ProductID)

	entry, err := listing.NewSyncLogEntry(cmd.ProductID, listing.OperationCreate, cmd.Trigger)
	if err != nil {
		return nil, err
	}

	product, err := s.products.GetProduct(ctx, cmd.ProductID)
	if err != nil {
		return nil, err
	}

	outcomes := make([]platformOutcome, len(cmd.Platforms))
	var wg sync.WaitGroup
	for i, platform := range cmd.Platforms {
		wg.Add(1)
		go func(i int, platform listing.Platform) {
			defer wg.Done()
			_, outcomes[i] = s.createOnPlatform(ctx, product, platform, cmd.Overrides)
		}(i, platform)
	}
	wg.Wait()

	result := &MultiPlatformResult{SyncLogID: entry.ID, TotalCount: len(outcomes)}
	for _, o := range outcomes {
		entry.AddResult(toPlatformResult(o))
		result.Outcomes = append(result.Outcomes, o.public())
		if o.err == nil {
			result.SuccessCount++
		}
	}
	if err := entry.Complete(); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	result.Status = entry.Status
	telemetry.SetAttribute(span, "sync_status", entry.Status.String())

	if err := s.syncLogRepo.Save(ctx, entry); err != nil {
		s.logger.Error("Failed to save sync log entry",
			zap.String("product_id", cmd.ProductID.String()),
			zap.Error(err),
		)
	}
	s.publish(ctx, listing.NewSyncCompletedEvent(entry))

	if anySuccess(outcomes) && product.Status == catalog.ProductStatusDraft {
		if err := s.products.SetProductStatus(ctx, product.ID, catalog.ProductStatusActive); err != nil {
			s.logger.Warn("Failed to activate product after listing",
				zap.String("product_id", product.ID.String()),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("Multi-platform create finished",
		zap.String("product_id", cmd.ProductID.String()),
		zap.String("status", entry.Status.String()),
		zap.Int("platforms", len(cmd.Platforms)),
	)

	return result, nil
}

// platformOutcome is the internal per-platform result shape; err keeps the
// original error for single-platform callers.
type platformOutcome struct {
	platform   listing.Platform
	listingID  *uuid.UUID
	platformID string
	url        string
	err        error
	errCode    string
	durationMS int64
}

func (o platformOutcome) public() PlatformOutcome {
	p := PlatformOutcome{
		Platform:   o.platform,
		Success:    o.err == nil,
		ListingID:  o.listingID,
		ListingURL: o.url,
		ErrorCode:  o.errCode,
		DurationMS: o.durationMS,
	}
	if o.err != nil {
		p.ErrorMessage = o.err.Error()
	}
	return p
}

func toPlatformResult(o platformOutcome) listing.PlatformResult {
	r := listing.PlatformResult{
		Platform:          o.platform,
		Status:            listing.ResultSuccess,
		PlatformListingID: o.platformID,
		DurationMS:        o.durationMS,
	}
	if o.err != nil {
		r.Status = listing.ResultFailed
		r.ErrorCode = o.errCode
		r.ErrorMessage = o.err.Error()
	}
	return r
}

func anySuccess(outcomes []platformOutcome) bool {
	for _, o := range outcomes {
		if o.err == nil {
			return true
		}
	}
	return false
}

// createOnPlatform performs the full single-platform create: readiness and
// duplicate checks, payload preparation, the adapter call, and persistence.
func (s *SyncService) createOnPlatform(ctx context.Context, product *catalog.Product, platform listing.Platform, overrides *ListingOverrides) (*listing.Listing, platformOutcome) {
	started := time.Now()
	outcome := platformOutcome{platform: platform}
	fail := func(err error) (*listing.Listing, platformOutcome) {
		outcome.err = err
		outcome.errCode = errorCode(err)
		outcome.durationMS = time.Since(started).Milliseconds()
		return nil, outcome
	}

	config, err := s.readyConfig(ctx, platform)
	if err != nil {
		return fail(err)
	}

	adapter, err := s.registry.Adapter(platform)
	if err != nil {
		return fail(err)
	}
	if !adapter.Capabilities().Supports(listing.CapabilityCreate) {
		return fail(listing.NewUnsupportedOperationError(platform, listing.CapabilityCreate))
	}

	existing, err := s.listingRepo.FindOpenByProductAndPlatform(ctx, product.ID, platform)
	if err != nil && !errors.Is(err, listing.ErrListingNotFound) {
		return fail(err)
	}
	if existing != nil {
		return fail(listing.ErrDuplicateListing)
	}

	if !product.InStock() {
		return fail(shared.NewDomainError("OUT_OF_STOCK", "product has no quantity on hand"))
	}

	req := prepareRequest(product, config, overrides)

	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	res, err := adapter.CreateListing(callCtx, req)
	cancel()
	if err != nil {
		s.recordConfigError(ctx, config, err)
		s.notifySyncError(ctx, platform, listing.OperationCreate, &product.ID, nil, err)
		s.logger.Warn("Platform create failed",
			zap.String("platform", platform.String()),
			zap.String("product_id", product.ID.String()),
			zap.Error(err),
		)
		return fail(err)
	}
	s.recordConfigSuccess(ctx, config)

	l, err := listing.NewListing(product.ID, platform, req)
	if err != nil {
		return fail(err)
	}
	if err := l.Activate(res.PlatformListingID, res.URL, res.Fees); err != nil {
		return fail(err)
	}
	if err := s.listingRepo.Save(ctx, l); err != nil {
		return fail(err)
	}

	if err := s.configRepo.IncrementUsage(ctx, platform, listing.UsageDelta{
		TotalListings:  1,
		ActiveListings: 1,
	}); err != nil {
		s.logger.Warn("Failed to increment usage counters",
			zap.String("platform", platform.String()),
			zap.Error(err),
		)
	}

	s.publish(ctx, listing.NewListingCreatedEvent(l))

	outcome.listingID = &l.ID
	outcome.platformID = l.PlatformListingID
	outcome.url = l.ListingURL
	outcome.durationMS = time.Since(started).Milliseconds()
	return l, outcome
}

// prepareRequest assembles the platform payload. Later sources win: product
// attributes, then platform defaults, then caller overrides.
func prepareRequest(product *catalog.Product, config *listing.PlatformConfig, overrides *ListingOverrides) listing.ListingRequest {
	req := listing.ListingRequest{
		Title:        product.Title,
		Description:  product.Description,
		Price:        config.Defaults.AdjustPrice(product.Price),
		Quantity:     product.Quantity,
		Condition:    product.Condition,
		ImageURLs:    product.ImageURLs,
		Category:     product.Category,
		Brand:        product.Brand,
		Model:        product.Model,
		SKU:          product.SKU,
		UPC:          product.UPC,
		HandlingDays: config.Defaults.HandlingDays,
	}
	if config.Defaults.DefaultShippingCost.IsPositive() {
		req.ShippingCost = config.Defaults.DefaultShippingCost
	}
	if overrides != nil {
		if overrides.Title != nil {
			req.Title = *overrides.Title
		}
		if overrides.Description != nil {
			req.Description = *overrides.Description
		}
		if overrides.Price != nil {
			req.Price = *overrides.Price
		}
		if overrides.Quantity != nil {
			req.Quantity = *overrides.Quantity
		}
		if overrides.Category != nil {
			req.Category = *overrides.Category
		}
	}
	return req
}

// ---------------------------------------------------------------------------
// Update
// ---------------------------------------------------------------------------

// UpdateListing pushes a partial update to one live listing. On adapter
// failure the local snapshot keeps its last known-good values and the
// failure is appended to the listing's error history.
func (s *SyncService) UpdateListing(ctx context.Context, cmd UpdateListingCommand) (*listing.Listing, error) {
	if cmd.Update.IsEmpty() {
		return nil, shared.NewDomainError("INVALID_INPUT", "update has no fields")
	}

	l, err := s.listingRepo.FindByID(ctx, cmd.ListingID)
	if err != nil {
		return nil, err
	}

	s.locks.Lock(l.ProductID)
	defer s.locks.Unlock(l.ProductID)

	// Re-read under the lock; a concurrent sale may have closed it
	l, err = s.listingRepo.FindByID(ctx, cmd.ListingID)
	if err != nil {
		return nil, err
	}
	if l.Status != listing.ListingStatusActive {
		return nil, listing.ErrListingNotActive
	}

	entry, err := listing.NewSyncLogEntry(l.ProductID, listing.OperationUpdate, cmd.Trigger)
	if err != nil {
		return nil, err
	}

	updErr := s.pushUpdate(ctx, l, cmd.Update)

	result := listing.PlatformResult{
		Platform:          l.Platform,
		Status:            listing.ResultSuccess,
		PlatformListingID: l.PlatformListingID,
	}
	if updErr != nil {
		result.Status = listing.ResultFailed
		result.ErrorCode = errorCode(updErr)
		result.ErrorMessage = updErr.Error()
	}
	entry.AddResult(result)
	if err := entry.Complete(); err != nil {
		return nil, err
	}
	if err := s.syncLogRepo.Save(ctx, entry); err != nil {
		s.logger.Error("Failed to save sync log entry", zap.Error(err))
	}

	if updErr != nil {
		return l, updErr
	}
	return l, nil
}

// pushUpdate performs the capability check, the adapter call, and the local
// state change for one listing.
func (s *SyncService) pushUpdate(ctx context.Context, l *listing.Listing, upd listing.ListingUpdate) error {
	config, err := s.readyConfig(ctx, l.Platform)
	if err != nil {
		return err
	}

	adapter, err := s.registry.Adapter(l.Platform)
	if err != nil {
		return err
	}
	if !adapter.Capabilities().Supports(listing.CapabilityUpdate) {
		err := listing.NewUnsupportedOperationError(l.Platform, listing.CapabilityUpdate)
		l.RecordSyncError(err.Code, err.Message, err.Details)
		if saveErr := s.listingRepo.Save(ctx, l); saveErr != nil {
			s.logger.Error("Failed to save listing after unsupported update", zap.Error(saveErr))
		}
		return err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	_, err = adapter.UpdateListing(callCtx, l.PlatformListingID, upd)
	cancel()
	if err != nil {
		s.recordConfigError(ctx, config, err)
		s.notifySyncError(ctx, l.Platform, listing.OperationUpdate, &l.ProductID, &l.ID, err)
		l.RecordSyncError(errorCode(err), err.Error(), nil)
		if saveErr := s.listingRepo.Save(ctx, l); saveErr != nil {
			s.logger.Error("Failed to save listing after sync error", zap.Error(saveErr))
		}
		return err
	}
	s.recordConfigSuccess(ctx, config)

	l.ApplySyncedUpdate(upd)
	return s.listingRepo.Save(ctx, l)
}

// ---------------------------------------------------------------------------
// Sync product
// ---------------------------------------------------------------------------

// SyncProduct propagates the current product record to every open listing,
// honoring each listing's auto-sync settings. Listings in manual sync state
// are skipped.
func (s *SyncService) SyncProduct(ctx context.Context, productID uuid.UUID, trigger listing.TriggerSource) (*SyncProductResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "listing", "sync_product",
		telemetry.WithAttribute(telemetry.SpanAttrProductID, productID.String()),
	)
	defer span.End()

	s.locks.Lock(productID)
	defer s.locks.Unlock(productID)

	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	open, err := s.listingRepo.FindByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	entry, err := listing.NewSyncLogEntry(productID, listing.OperationSync, trigger)
	if err != nil {
		return nil, err
	}
	result := &SyncProductResult{SyncLogID: entry.ID}

	for _, l := range open {
		if l.Status != listing.ListingStatusActive {
			continue
		}
		if !l.AutoSync.Enabled || l.SyncStatus == listing.SyncStateManual {
			result.Skipped = append(result.Skipped, l.Platform)
			entry.AddResult(listing.PlatformResult{
				Platform:          l.Platform,
				Status:            listing.ResultSkipped,
				PlatformListingID: l.PlatformListingID,
			})
			continue
		}

		upd := diffListing(l, product)
		if upd.IsEmpty() {
			result.Skipped = append(result.Skipped, l.Platform)
			entry.AddResult(listing.PlatformResult{
				Platform:          l.Platform,
				Status:            listing.ResultSkipped,
				PlatformListingID: l.PlatformListingID,
			})
			continue
		}

		started := time.Now()
		pushErr := s.pushUpdate(ctx, l, upd)

		r := listing.PlatformResult{
			Platform:          l.Platform,
			Status:            listing.ResultSuccess,
			PlatformListingID: l.PlatformListingID,
			DurationMS:        time.Since(started).Milliseconds(),
		}
		o := PlatformOutcome{
			Platform:   l.Platform,
			Success:    true,
			ListingID:  &l.ID,
			DurationMS: r.DurationMS,
		}
		if pushErr != nil {
			r.Status = listing.ResultFailed
			r.ErrorCode = errorCode(pushErr)
			r.ErrorMessage = pushErr.Error()
			o.Success = false
			o.ErrorCode = r.ErrorCode
			o.ErrorMessage = r.ErrorMessage
		}
		entry.AddResult(r)
		result.Outcomes = append(result.Outcomes, o)
	}

	if err := entry.Complete(); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	result.Status = entry.Status
	result.TotalCount = len(result.Outcomes) + len(result.Skipped)
	for _, o := range result.Outcomes {
		if o.Success {
			result.SuccessCount++
		}
	}
	telemetry.SetAttributes(span,
		"sync_status", entry.Status.String(),
		"skipped", len(result.Skipped),
	)

	if err := s.syncLogRepo.Save(ctx, entry); err != nil {
		s.logger.Error("Failed to save sync log entry", zap.Error(err))
	}
	s.publish(ctx, listing.NewSyncCompletedEvent(entry))

	return result, nil
}

// diffListing computes the update that brings a listing's snapshot in line
// with the product record, limited to the fields its auto-sync settings allow
func diffListing(l *listing.Listing, product *catalog.Product) listing.ListingUpdate {
	var upd listing.ListingUpdate
	if l.AutoSync.SyncPrice && !l.Price.Equal(product.Price) {
		price := product.Price
		upd.Price = &price
	}
	if l.AutoSync.SyncQuantity && l.Quantity != product.Quantity {
		qty := product.Quantity
		upd.Quantity = &qty
	}
	if l.AutoSync.SyncDescription && l.Description != product.Description {
		desc := product.Description
		upd.Description = &desc
	}
	return upd
}

// ---------------------------------------------------------------------------
// Delist / relist
// ---------------------------------------------------------------------------

// DelistListing manually retires one listing. Local state always advances;
// when the remote end call fails the listing is still delisted locally and
// the failure is recorded.
func (s *SyncService) DelistListing(ctx context.Context, listingID uuid.UUID, reason string, trigger listing.TriggerSource) (*listing.Listing, error) {
	l, err := s.listingRepo.FindByID(ctx, listingID)
	if err != nil {
		return nil, err
	}

	s.locks.Lock(l.ProductID)
	defer s.locks.Unlock(l.ProductID)

	l, err = s.listingRepo.FindByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if l.Status != listing.ListingStatusActive {
		return nil, listing.ErrListingNotActive
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "listing", "delist",
		telemetry.WithAttribute(telemetry.SpanAttrListingID, listingID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrPlatform, l.Platform.String()),
	)
	defer span.End()

	entry, err := listing.NewSyncLogEntry(l.ProductID, listing.OperationDelist, trigger)
	if err != nil {
		return nil, err
	}

	outcome := s.endRemoteAndDelist(ctx, l, reason)
	if outcome.err != nil {
		telemetry.RecordError(span, outcome.err)
	}
	entry.AddResult(toPlatformResult(outcome))
	if err := entry.Complete(); err != nil {
		return nil, err
	}
	if err := s.syncLogRepo.Save(ctx, entry); err != nil {
		s.logger.Error("Failed to save sync log entry", zap.Error(err))
	}

	return l, nil
}

// endRemoteAndDelist ends a listing remotely when possible and always
// delists it locally. The outcome reflects only the remote call.
func (s *SyncService) endRemoteAndDelist(ctx context.Context, l *listing.Listing, reason string) platformOutcome {
	started := time.Now()
	outcome := platformOutcome{
		platform:   l.Platform,
		listingID:  &l.ID,
		platformID: l.PlatformListingID,
	}

	remoteEnded := false
	adapter, err := s.registry.Adapter(l.Platform)
	switch {
	case err != nil:
		outcome.err = err
		outcome.errCode = errorCode(err)
	case !adapter.Capabilities().Supports(listing.CapabilityEnd):
		e := listing.NewUnsupportedOperationError(l.Platform, listing.CapabilityEnd)
		outcome.err = e
		outcome.errCode = e.Code
	default:
		config, cfgErr := s.readyConfig(ctx, l.Platform)
		if cfgErr != nil {
			outcome.err = cfgErr
			outcome.errCode = errorCode(cfgErr)
			break
		}
		callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
		_, endErr := adapter.EndListing(callCtx, l.PlatformListingID, reason)
		cancel()
		if endErr != nil {
			s.recordConfigError(ctx, config, endErr)
			outcome.err = endErr
			outcome.errCode = errorCode(endErr)
		} else {
			s.recordConfigSuccess(ctx, config)
			remoteEnded = true
		}
	}

	if err := l.Delist(reason); err != nil {
		s.logger.Error("Failed to delist locally",
			zap.String("listing_id", l.ID.String()),
			zap.Error(err),
		)
		outcome.err = err
		outcome.errCode = errorCode(err)
		outcome.durationMS = time.Since(started).Milliseconds()
		return outcome
	}
	if err := s.listingRepo.Save(ctx, l); err != nil {
		outcome.err = err
		outcome.errCode = errorCode(err)
		outcome.durationMS = time.Since(started).Milliseconds()
		return outcome
	}

	if err := s.configRepo.IncrementUsage(ctx, l.Platform, listing.UsageDelta{ActiveListings: -1}); err != nil {
		s.logger.Warn("Failed to decrement active listing counter",
			zap.String("platform", l.Platform.String()),
			zap.Error(err),
		)
	}

	s.publish(ctx, listing.NewListingDelistedEvent(l, remoteEnded, reason))

	if !remoteEnded && outcome.err != nil {
		s.logger.Warn("Remote end failed, listing delisted locally only",
			zap.String("platform", l.Platform.String()),
			zap.String("listing_id", l.ID.String()),
			zap.Error(outcome.err),
		)
	}

	outcome.durationMS = time.Since(started).Milliseconds()
	return outcome
}

// RelistListing re-creates a previously ended or delisted listing as a fresh
// listing on the same platform
func (s *SyncService) RelistListing(ctx context.Context, listingID uuid.UUID, trigger listing.TriggerSource) (*listing.Listing, error) {
	old, err := s.listingRepo.FindByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if old.Status != listing.ListingStatusDelisted && old.Status != listing.ListingStatusEnded {
		return nil, listing.ErrInvalidTransition
	}

	price := old.Price
	qty := old.Quantity
	title := old.Title
	desc := old.Description
	cmd := CreateListingCommand{
		ProductID: old.ProductID,
		Platform:  old.Platform,
		Trigger:   trigger,
		Overrides: &ListingOverrides{
			Title:       &title,
			Description: &desc,
			Price:       &price,
			Quantity:    &qty,
		},
	}
	return s.CreateListing(ctx, cmd)
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

// GetListing returns one listing by ID
func (s *SyncService) GetListing(ctx context.Context, id uuid.UUID) (*listing.Listing, error) {
	return s.listingRepo.FindByID(ctx, id)
}

// ListListings returns listings matching the filter
func (s *SyncService) ListListings(ctx context.Context, filter listing.ListingFilter) (*shared.Paginated[*listing.Listing], error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	return s.listingRepo.List(ctx, filter)
}

// GetProductListings returns every listing for a product
func (s *SyncService) GetProductListings(ctx context.Context, productID uuid.UUID) ([]*listing.Listing, error) {
	return s.listingRepo.FindByProduct(ctx, productID)
}

// GetPlatformStats aggregates listing counts and revenue per platform
func (s *SyncService) GetPlatformStats(ctx context.Context) ([]listing.PlatformStats, error) {
	return s.listingRepo.StatsByPlatform(ctx)
}

// GetSyncHistory returns sync ledger entries matching the filter
func (s *SyncService) GetSyncHistory(ctx context.Context, filter listing.SyncLogFilter) (*shared.Paginated[*listing.SyncLogEntry], error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	return s.syncLogRepo.List(ctx, filter)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// readyConfig loads the platform config and verifies it accepts calls
func (s *SyncService) readyConfig(ctx context.Context, platform listing.Platform) (*listing.PlatformConfig, error) {
	config, err := s.configRepo.FindByPlatform(ctx, platform)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, listing.ErrPlatformNotProvisioned
		}
		return nil, err
	}
	if err := config.IsReady(); err != nil {
		return nil, err
	}
	return config, nil
}

func (s *SyncService) recordConfigError(ctx context.Context, config *listing.PlatformConfig, callErr error) {
	wasTripped := config.Status == listing.ConnectionStatusError
	config.RecordError(callErr.Error())
	if err := s.configRepo.Save(ctx, config); err != nil {
		s.logger.Warn("Failed to persist config error state", zap.Error(err))
		return
	}
	if !wasTripped && config.Status == listing.ConnectionStatusError {
		s.publish(ctx, listing.NewPlatformTrippedEvent(config))
	}
}

func (s *SyncService) recordConfigSuccess(ctx context.Context, config *listing.PlatformConfig) {
	config.ResetErrors()
	if err := s.configRepo.Save(ctx, config); err != nil {
		s.logger.Warn("Failed to persist config success state", zap.Error(err))
	}
}

// notifySyncError surfaces a failed remote call to the operator feed so the
// failure is not buried in the sync ledger.
func (s *SyncService) notifySyncError(ctx context.Context, platform listing.Platform, op listing.OperationKind, productID, listingID *uuid.UUID, cause error) {
	n, err := listing.NewNotification(
		listing.NotificationSyncError,
		listing.PriorityHigh,
		fmt.Sprintf("Sync failed on %s", platform.DisplayName()),
		fmt.Sprintf("%s failed: %v", op, cause),
	)
	if err != nil {
		return
	}
	n.Platform = platform
	n.ProductID = productID
	n.ListingID = listingID
	n.Data = map[string]any{
		"operation":  string(op),
		"error_code": errorCode(cause),
	}
	if err := s.notifRepo.Save(ctx, n); err != nil {
		s.logger.Warn("Failed to save sync error notification", zap.Error(err))
	}
}

func (s *SyncService) publish(ctx context.Context, event shared.DomainEvent) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish event",
			zap.String("event_type", event.EventType()),
			zap.Error(err),
		)
	}
}

// errorCode derives the stable code recorded in the sync ledger for an error
func errorCode(err error) string {
	var adapterErr *listing.AdapterError
	if errors.As(err, &adapterErr) {
		return adapterErr.Code
	}
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	switch {
	case errors.Is(err, listing.ErrDuplicateListing):
		return "DUPLICATE_LISTING"
	case errors.Is(err, listing.ErrPlatformNotProvisioned),
		errors.Is(err, listing.ErrPlatformUnavailable):
		return "PLATFORM_UNAVAILABLE"
	case errors.Is(err, listing.ErrCredentialsExpired):
		return "CREDENTIALS_EXPIRED"
	case errors.Is(err, listing.ErrPlatformUnknown):
		return "UNKNOWN_PLATFORM"
	case errors.Is(err, listing.ErrListingNotFound):
		return "NOT_FOUND"
	case errors.Is(err, context.DeadlineExceeded):
		return listing.AdapterErrCodeUnreachable
	default:
		return listing.AdapterErrCodeUnknown
	}
}
