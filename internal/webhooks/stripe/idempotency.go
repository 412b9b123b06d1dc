package stripewebhook

import (
	"context"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

// EventScope is the consumer name processed Stripe event ids are marked under.
const EventScope = "stripe-event"

// DefaultEventTTL outlives Stripe's three-day retry window.
const DefaultEventTTL = 72 * time.Hour

// EventGuard marks Stripe event ids as seen so redeliveries become no-ops.
type EventGuard struct {
	marks *idempotency.Manager
}

// NewEventGuard uses DefaultEventTTL when ttl is zero.
func NewEventGuard(store redis.IdempotencyStore, ttl time.Duration) (*EventGuard, error) {
	if ttl == 0 {
		ttl = DefaultEventTTL
	}
	marks, err := idempotency.NewManager(store, ttl)
	if err != nil {
		return nil, err
	}
	return &EventGuard{marks: marks}, nil
}

// CheckAndMark reports whether the event was already seen, marking it otherwise.
func (g *EventGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	claimed, err := g.marks.Claim(ctx, EventScope, eventID)
	return !claimed, err
}

// Delete releases the mark so a failed event can be redelivered.
func (g *EventGuard) Delete(ctx context.Context, eventID string) error {
	return g.marks.Release(ctx, EventScope, eventID)
}
