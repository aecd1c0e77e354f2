package listing

import (
	"context"

	"go.uber.org/zap"

	"github.com/crosslist/backend/internal/domain/shared"
)

// EventAuditor subscribes to every engine event and writes a structured
// audit line. The log stream is the operator's trail for answering why a
// listing changed state.
type EventAuditor struct {
	logger *zap.Logger
}

var _ shared.EventHandler = (*EventAuditor)(nil)

// NewEventAuditor returns an auditor logging through logger.
func NewEventAuditor(logger *zap.Logger) *EventAuditor {
	return &EventAuditor{logger: logger}
}

// EventTypes returns nil so the auditor receives all events.
func (a *EventAuditor) EventTypes() []string {
	return nil
}

// Handle logs the event. It never fails.
func (a *EventAuditor) Handle(_ context.Context, evt shared.DomainEvent) error {
	a.logger.Info("Engine event",
		zap.String("event_id", evt.EventID().String()),
		zap.String("event_type", evt.EventType()),
		zap.String("aggregate_type", evt.AggregateType()),
		zap.String("aggregate_id", evt.AggregateID().String()),
		zap.Time("occurred_at", evt.OccurredAt()),
	)
	return nil
}
