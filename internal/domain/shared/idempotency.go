package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers processed event IDs so webhook replays and
// redelivered bus events become no-ops. MarkProcessed is the atomic
// check-and-set: it returns false when the ID was already recorded.
type IdempotencyStore interface {
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)
	IsProcessed(ctx context.Context, eventID string) (bool, error)
	Close() error
}

// IdempotencyConfig controls duplicate suppression for event handlers.
type IdempotencyConfig struct {
	// TTL bounds how long an event ID stays recorded. Platform webhooks
	// can redeliver for up to a day, so the default matches that window.
	TTL time.Duration

	Enabled bool
}

// DefaultIdempotencyConfig returns the production defaults.
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
