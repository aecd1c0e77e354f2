package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/crosslist/backend/internal/domain/shared"
)

// RecordingEventHandler implements shared.EventHandler and records every
// event it receives. Safe for concurrent use.
type RecordingEventHandler struct {
	mu         sync.Mutex
	eventTypes []string
	received   []shared.DomainEvent
	err        error
}

// NewRecordingEventHandler returns a handler subscribed to the given
// event types.
func NewRecordingEventHandler(eventTypes ...string) *RecordingEventHandler {
	return &RecordingEventHandler{eventTypes: eventTypes}
}

func (h *RecordingEventHandler) EventTypes() []string {
	return h.eventTypes
}

func (h *RecordingEventHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.received = append(h.received, event)
	return h.err
}

// Received returns a copy of all events seen so far.
func (h *RecordingEventHandler) Received() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]shared.DomainEvent, len(h.received))
	copy(out, h.received)
	return out
}

// ReceivedCount returns how many events the handler has seen.
func (h *RecordingEventHandler) ReceivedCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.received)
}

// FailWith makes subsequent Handle calls return err.
func (h *RecordingEventHandler) FailWith(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.err = err
}

// ListingEvent is a minimal domain event aggregated on a listing, for
// driving the event bus in tests.
type ListingEvent struct {
	shared.BaseDomainEvent
	Payload string
}

// NewListingEvent builds a ListingEvent with a fresh event ID.
func NewListingEvent(eventType string, listingID uuid.UUID) *ListingEvent {
	return NewListingEventWithID(uuid.New(), eventType, listingID)
}

// NewListingEventWithID builds a ListingEvent with a fixed event ID, for
// exercising duplicate delivery.
func NewListingEventWithID(eventID uuid.UUID, eventType string, listingID uuid.UUID) *ListingEvent {
	return &ListingEvent{
		BaseDomainEvent: shared.BaseDomainEvent{
			ID:        eventID,
			Type:      eventType,
			Timestamp: time.Now(),
			AggID:     listingID,
			AggType:   "Listing",
		},
		Payload: "fixture",
	}
}
