// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// SyncMetrics provides listing synchronization metrics.
// It tracks platform sync attempts, sale processing, and drift detection.
type SyncMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	syncAttemptTotal   *Counter
	saleRecordedTotal  *Counter
	driftDetectedTotal *Counter

	// Histogram metrics
	syncDuration *Histogram

	// Gauge metrics (point-in-time values)
	listingsActive       *Gauge
	notificationsPending *Gauge

	// Periodic collector
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	// Data provider for periodic collection
	listingProvider ListingMetricsProvider
}

// ListingMetricsProvider provides listing data for periodic metrics collection.
// This interface allows the telemetry layer to query listing state without
// depending on the listing domain directly.
type ListingMetricsProvider interface {
	// CountActiveByPlatform returns the number of live platform listings per platform
	CountActiveByPlatform(ctx context.Context) (map[string]int64, error)

	// CountPendingNotifications returns the number of notifications awaiting review
	CountPendingNotifications(ctx context.Context) (int64, error)
}

// SyncMetricsConfig holds configuration for sync metrics.
type SyncMetricsConfig struct {
	Meter           metric.Meter
	Logger          *zap.Logger
	CollectInterval time.Duration // Default: 5 minutes
	ListingProvider ListingMetricsProvider
}

// NewSyncMetrics creates a new SyncMetrics instance.
func NewSyncMetrics(cfg SyncMetricsConfig) (*SyncMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	sm := &SyncMetrics{
		meter:           cfg.Meter,
		logger:          logger,
		stopChan:        make(chan struct{}),
		listingProvider: cfg.ListingProvider,
	}

	var err error

	sm.syncAttemptTotal, err = NewCounter(
		cfg.Meter,
		"crosslist_sync_attempt_total",
		"Total number of platform sync attempts",
		"{attempts}",
	)
	if err != nil {
		return nil, err
	}

	sm.saleRecordedTotal, err = NewCounter(
		cfg.Meter,
		"crosslist_sale_recorded_total",
		"Total number of sales recorded from platforms",
		"{sales}",
	)
	if err != nil {
		return nil, err
	}

	sm.driftDetectedTotal, err = NewCounter(
		cfg.Meter,
		"crosslist_drift_detected_total",
		"Total number of remote listing changes detected during reconciliation",
		"{changes}",
	)
	if err != nil {
		return nil, err
	}

	sm.syncDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "crosslist_sync_duration_seconds",
		Description: "Duration of individual platform sync operations",
		Unit:        "s",
		Boundaries:  HTTPDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	sm.listingsActive, err = NewGauge(
		cfg.Meter,
		"crosslist_listings_active",
		"Number of live platform listings",
		"{listings}",
	)
	if err != nil {
		return nil, err
	}

	sm.notificationsPending, err = NewGauge(
		cfg.Meter,
		"crosslist_notifications_pending",
		"Number of notifications awaiting review",
		"{notifications}",
	)
	if err != nil {
		return nil, err
	}

	return sm, nil
}

// =============================================================================
// Sync Metrics
// =============================================================================

// SyncOutcome represents the result of a sync attempt for metrics labeling.
type SyncOutcome string

const (
	SyncOutcomeSuccess SyncOutcome = "success"
	SyncOutcomeFailed  SyncOutcome = "failed"
	SyncOutcomeSkipped SyncOutcome = "skipped"
)

// RecordSyncAttempt records a single platform sync attempt.
// This should be called from the application layer after each adapter call.
func (sm *SyncMetrics) RecordSyncAttempt(ctx context.Context, platform, operation string, outcome SyncOutcome) {
	sm.syncAttemptTotal.Inc(ctx,
		AttrPlatform.String(platform),
		AttrOperation.String(operation),
		AttrOutcome.String(string(outcome)),
	)
}

// RecordSyncDuration records how long a platform sync operation took.
func (sm *SyncMetrics) RecordSyncDuration(ctx context.Context, platform, operation string, d time.Duration) {
	sm.syncDuration.RecordDuration(ctx, d,
		AttrPlatform.String(platform),
		AttrOperation.String(operation),
	)
}

// RecordSync is a convenience method that records both the attempt and its duration.
func (sm *SyncMetrics) RecordSync(ctx context.Context, platform, operation string, outcome SyncOutcome, d time.Duration) {
	sm.RecordSyncAttempt(ctx, platform, operation, outcome)
	sm.RecordSyncDuration(ctx, platform, operation, d)
}

// =============================================================================
// Sale and Drift Metrics
// =============================================================================

// RecordSale records a sale reported by a platform.
// This should be called when a sale event is processed.
func (sm *SyncMetrics) RecordSale(ctx context.Context, platform string) {
	sm.saleRecordedTotal.Inc(ctx,
		AttrPlatform.String(platform),
	)
}

// RecordDrift records a remote change detected during reconciliation.
func (sm *SyncMetrics) RecordDrift(ctx context.Context, platform, driftKind string) {
	sm.driftDetectedTotal.Inc(ctx,
		AttrPlatform.String(platform),
		AttrDriftKind.String(driftKind),
	)
}

// =============================================================================
// Gauge Metrics
// =============================================================================

// RecordActiveListings records the current number of live listings for a platform.
// This is a gauge metric that should be updated periodically.
func (sm *SyncMetrics) RecordActiveListings(ctx context.Context, platform string, count int64) {
	sm.listingsActive.Record(ctx, count,
		AttrPlatform.String(platform),
	)
}

// RecordPendingNotifications records the number of notifications awaiting review.
// This is a gauge metric that should be updated periodically.
func (sm *SyncMetrics) RecordPendingNotifications(ctx context.Context, count int64) {
	sm.notificationsPending.Record(ctx, count)
}

// =============================================================================
// Periodic Collection
// =============================================================================

// StartPeriodicCollection starts periodic collection of gauge metrics.
// It collects listing metrics every interval (default: 5 minutes).
// This is non-blocking - use Stop() to stop collection.
func (sm *SyncMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	sm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}

		go sm.runPeriodicCollection(ctx, interval)
	})
}

// runPeriodicCollection runs the periodic collection loop.
func (sm *SyncMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Collect immediately on start
	sm.collectListingMetrics(ctx)

	for {
		select {
		case <-sm.stopChan:
			sm.logger.Info("Stopping periodic sync metrics collection")
			return
		case <-ctx.Done():
			sm.logger.Info("Context cancelled, stopping periodic sync metrics collection")
			return
		case <-ticker.C:
			sm.collectListingMetrics(ctx)
		}
	}
}

// collectListingMetrics collects listing gauge metrics.
func (sm *SyncMetrics) collectListingMetrics(ctx context.Context) {
	if sm.listingProvider == nil {
		sm.logger.Debug("No listing provider configured, skipping listing metrics collection")
		return
	}

	activeByPlatform, err := sm.listingProvider.CountActiveByPlatform(ctx)
	if err != nil {
		sm.logger.Warn("Failed to count active listings", zap.Error(err))
	} else {
		for platform, count := range activeByPlatform {
			sm.RecordActiveListings(ctx, platform, count)
		}
	}

	pending, err := sm.listingProvider.CountPendingNotifications(ctx)
	if err != nil {
		sm.logger.Warn("Failed to count pending notifications", zap.Error(err))
	} else {
		sm.RecordPendingNotifications(ctx, pending)
	}
}

// Stop stops the periodic collection.
func (sm *SyncMetrics) Stop() {
	sm.stopOnce.Do(func() {
		close(sm.stopChan)
	})
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewSyncMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
