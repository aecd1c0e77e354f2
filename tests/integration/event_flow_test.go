package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/crosslist/backend/internal/infrastructure/cache"
	"github.com/crosslist/backend/internal/infrastructure/event"
	"github.com/crosslist/backend/tests/testutil"
)

// TestEventFlow_DuplicateDelivery publishes the same sale event twice
// through a dedup-wrapped handler and checks the handler only runs once,
// mirroring how webhook redelivery is absorbed in production.
func TestEventFlow_DuplicateDelivery(t *testing.T) {
	ctx := context.Background()
	logger := zaptest.NewLogger(t)

	bus := event.NewInMemoryEventBus(logger)
	require.NoError(t, bus.Start(ctx))
	defer bus.Stop(ctx)

	recorder := testutil.NewRecordingEventHandler("listing.sold")
	deduped := event.NewIdempotentHandler(recorder, cache.NewInMemoryIdempotencyStore(), logger)
	bus.Subscribe(deduped)

	eventID := testutil.NewTestUUID("webhook-evt-001")
	sale := testutil.NewListingEventWithID(eventID, "listing.sold", testutil.TestListingID())

	require.NoError(t, bus.Publish(ctx, sale))
	require.NoError(t, bus.Publish(ctx, sale))

	assert.Equal(t, 1, recorder.ReceivedCount(), "redelivered event must not run the handler again")

	stats := deduped.GetMetrics().Stats()
	assert.Equal(t, int64(1), stats.EventsProcessed)
	assert.Equal(t, int64(1), stats.EventsDuplicate)
}

// TestEventFlow_FanOut checks one published event reaches every handler
// subscribed to its type and nothing else.
func TestEventFlow_FanOut(t *testing.T) {
	ctx := context.Background()
	logger := zaptest.NewLogger(t)

	bus := event.NewInMemoryEventBus(logger)
	require.NoError(t, bus.Start(ctx))
	defer bus.Stop(ctx)

	crossDelist := testutil.NewRecordingEventHandler("listing.sold")
	notify := testutil.NewRecordingEventHandler("listing.sold")
	driftOnly := testutil.NewRecordingEventHandler("listing.drift_detected")
	bus.Subscribe(crossDelist)
	bus.Subscribe(notify)
	bus.Subscribe(driftOnly)

	require.NoError(t, bus.Publish(ctx, testutil.NewListingEvent("listing.sold", testutil.TestListingID())))

	assert.Equal(t, 1, crossDelist.ReceivedCount())
	assert.Equal(t, 1, notify.ReceivedCount())
	assert.Zero(t, driftOnly.ReceivedCount())
}

// TestEventFlow_FailingHandlerDoesNotBlockOthers subscribes a failing
// handler ahead of a healthy one and checks delivery continues.
func TestEventFlow_FailingHandlerDoesNotBlockOthers(t *testing.T) {
	ctx := context.Background()
	logger := zaptest.NewLogger(t)

	bus := event.NewInMemoryEventBus(logger)
	require.NoError(t, bus.Start(ctx))
	defer bus.Stop(ctx)

	broken := testutil.NewRecordingEventHandler("listing.sold")
	broken.FailWith(assert.AnError)
	healthy := testutil.NewRecordingEventHandler("listing.sold")
	bus.Subscribe(broken)
	bus.Subscribe(healthy)

	require.NoError(t, bus.Publish(ctx, testutil.NewListingEvent("listing.sold", testutil.TestListingID())))

	assert.Equal(t, 1, healthy.ReceivedCount())
}
