package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/crosslist/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubEvent struct {
	shared.BaseDomainEvent
}

func saleEvent() *stubEvent {
	return eventOf("listing.sold")
}

func eventOf(eventType string) *stubEvent {
	return &stubEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "listing", uuid.New()),
	}
}

type recordingHandler struct {
	mu       sync.Mutex
	types    []string
	received []shared.DomainEvent
	failWith error
}

func newRecordingHandler(types ...string) *recordingHandler {
	return &recordingHandler{types: types}
}

func (h *recordingHandler) Handle(_ context.Context, evt shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.received = append(h.received, evt)
	return h.failWith
}

func (h *recordingHandler) EventTypes() []string { return h.types }

func (h *recordingHandler) seen() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]shared.DomainEvent(nil), h.received...)
}

func TestBusPublish_DeliversToSubscriber(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	h := newRecordingHandler("listing.sold")
	bus.Subscribe(h)

	evt := saleEvent()
	require.NoError(t, bus.Publish(context.Background(), evt))

	require.Len(t, h.seen(), 1)
	assert.Equal(t, evt, h.seen()[0])
}

func TestBusPublish_BatchAndFanOut(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	first := newRecordingHandler("listing.sold")
	second := newRecordingHandler("listing.sold")
	bus.Subscribe(first)
	bus.Subscribe(second)

	require.NoError(t, bus.Publish(context.Background(), saleEvent(), saleEvent()))

	assert.Len(t, first.seen(), 2)
	assert.Len(t, second.seen(), 2)
}

func TestBusPublish_WildcardSubscriber(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	all := newRecordingHandler()
	bus.Subscribe(all)

	require.NoError(t, bus.Publish(context.Background(), eventOf("listing.delisted")))
	require.NoError(t, bus.Publish(context.Background(), eventOf("platform.tripped")))

	assert.Len(t, all.seen(), 2)
}

func TestBusPublish_FailingHandlerDoesNotBlockOthers(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	broken := newRecordingHandler("listing.sold")
	broken.failWith = errors.New("delist call failed")
	healthy := newRecordingHandler("listing.sold")
	bus.Subscribe(broken)
	bus.Subscribe(healthy)

	require.NoError(t, bus.Publish(context.Background(), saleEvent()))

	assert.Len(t, broken.seen(), 1)
	assert.Len(t, healthy.seen(), 1)
}

func TestBusPublish_NoMatchingSubscriber(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	h := newRecordingHandler("platform.connected")
	bus.Subscribe(h)

	require.NoError(t, bus.Publish(context.Background(), saleEvent()))

	assert.Empty(t, h.seen())
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	h := newRecordingHandler("listing.sold")
	bus.Subscribe(h)

	require.NoError(t, bus.Publish(context.Background(), saleEvent()))
	require.Len(t, h.seen(), 1)

	bus.Unsubscribe(h)

	require.NoError(t, bus.Publish(context.Background(), saleEvent()))
	assert.Len(t, h.seen(), 1)
}

func TestBusStartStop(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	require.NoError(t, bus.Start(context.Background()))

	h := newRecordingHandler("listing.sold")
	bus.Subscribe(h)
	require.NoError(t, bus.Publish(context.Background(), saleEvent()))
	assert.Len(t, h.seen(), 1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, bus.Stop(ctx))
}
