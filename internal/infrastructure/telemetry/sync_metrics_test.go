package telemetry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/crosslist/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
)

func TestNewSyncMetrics(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")

	sm, err := telemetry.NewSyncMetrics(telemetry.SyncMetricsConfig{
		Meter:  meter,
		Logger: zap.NewNop(),
	})

	require.NoError(t, err)
	require.NotNil(t, sm)
}

func TestNewSyncMetrics_NilMeter(t *testing.T) {
	sm, err := telemetry.NewSyncMetrics(telemetry.SyncMetricsConfig{
		Meter:  nil,
		Logger: zap.NewNop(),
	})

	require.Error(t, err)
	assert.Nil(t, sm)
	assert.Equal(t, "NewSyncMetrics: meter cannot be nil", err.Error())
}

func TestSyncMetrics_RecordSyncAttempt(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	sm, err := telemetry.NewSyncMetrics(telemetry.SyncMetricsConfig{
		Meter: meter,
	})
	require.NoError(t, err)

	ctx := context.Background()

	// Should not panic
	sm.RecordSyncAttempt(ctx, "ebay", "create", telemetry.SyncOutcomeSuccess)
	sm.RecordSyncAttempt(ctx, "facebook", "update", telemetry.SyncOutcomeFailed)
	sm.RecordSyncAttempt(ctx, "craigslist", "update", telemetry.SyncOutcomeSkipped)
}

func TestSyncMetrics_RecordSync(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	sm, err := telemetry.NewSyncMetrics(telemetry.SyncMetricsConfig{
		Meter: meter,
	})
	require.NoError(t, err)

	ctx := context.Background()

	// Should not panic and record both attempt and duration
	sm.RecordSync(ctx, "depop", "end", telemetry.SyncOutcomeSuccess, 350*time.Millisecond)
}

func TestSyncMetrics_RecordSaleAndDrift(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	sm, err := telemetry.NewSyncMetrics(telemetry.SyncMetricsConfig{
		Meter: meter,
	})
	require.NoError(t, err)

	ctx := context.Background()

	// Should not panic
	sm.RecordSale(ctx, "ebay")
	sm.RecordDrift(ctx, "facebook", "price_changed")
	sm.RecordDrift(ctx, "depop", "remote_ended")
}

func TestSyncMetrics_RecordGauges(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	sm, err := telemetry.NewSyncMetrics(telemetry.SyncMetricsConfig{
		Meter: meter,
	})
	require.NoError(t, err)

	ctx := context.Background()

	// Should not panic
	sm.RecordActiveListings(ctx, "ebay", 42)
	sm.RecordPendingNotifications(ctx, 7)
}

type stubListingMetricsProvider struct {
	active  map[string]int64
	pending int64
	err     error
}

func (s *stubListingMetricsProvider) CountActiveByPlatform(context.Context) (map[string]int64, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.active, nil
}

func (s *stubListingMetricsProvider) CountPendingNotifications(context.Context) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.pending, nil
}

func TestSyncMetrics_PeriodicCollection(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	provider := &stubListingMetricsProvider{
		active:  map[string]int64{"ebay": 3, "facebook": 1},
		pending: 2,
	}
	sm, err := telemetry.NewSyncMetrics(telemetry.SyncMetricsConfig{
		Meter:           meter,
		Logger:          zap.NewNop(),
		ListingProvider: provider,
	})
	require.NoError(t, err)

	ctx := context.Background()
	sm.StartPeriodicCollection(ctx, time.Hour)

	// Starting twice is a no-op, stopping twice is safe
	sm.StartPeriodicCollection(ctx, time.Hour)
	sm.Stop()
	sm.Stop()
}

func TestSyncMetrics_PeriodicCollection_ProviderError(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	provider := &stubListingMetricsProvider{err: errors.New("db unavailable")}
	sm, err := telemetry.NewSyncMetrics(telemetry.SyncMetricsConfig{
		Meter:           meter,
		Logger:          zap.NewNop(),
		ListingProvider: provider,
	})
	require.NoError(t, err)

	// Collection failures are logged, never fatal
	sm.StartPeriodicCollection(context.Background(), time.Hour)
	sm.Stop()
}
