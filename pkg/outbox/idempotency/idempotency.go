package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

// Manager records which events a consumer has processed. Marks are Redis
// keys shaped `<ns>:idempotency:evt:processed:<consumer>:<event_id>` that
// expire after ttl.
type Manager struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	now   func() time.Time
}

func NewManager(store redis.IdempotencyStore, ttl time.Duration) (*Manager, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &Manager{store: store, ttl: ttl, now: time.Now}, nil
}

// Claim marks id for consumer. It reports false when the mark already
// existed, meaning another delivery got there first.
func (m *Manager) Claim(ctx context.Context, consumer, id string) (bool, error) {
	key, err := m.key(consumer, id)
	if err != nil {
		return false, err
	}
	claimed, err := m.store.SetNX(ctx, key, m.now().UTC().Format(time.RFC3339), m.ttl)
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", consumer, err)
	}
	return claimed, nil
}

// Release drops the mark so a redelivery is processed again.
func (m *Manager) Release(ctx context.Context, consumer, id string) error {
	key, err := m.key(consumer, id)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

// CheckAndMarkProcessed is Claim for outbox event ids, inverted: true means
// the event was seen before.
func (m *Manager) CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	if eventID == uuid.Nil {
		return false, errors.New("event id is required")
	}
	claimed, err := m.Claim(ctx, consumer, eventID.String())
	return !claimed, err
}

func (m *Manager) Delete(ctx context.Context, consumer string, eventID uuid.UUID) error {
	if eventID == uuid.Nil {
		return errors.New("event id is required")
	}
	return m.Release(ctx, consumer, eventID.String())
}

func (m *Manager) key(consumer, id string) (string, error) {
	id = strings.TrimSpace(id)
	switch {
	case consumer == "":
		return "", errors.New("consumer name is required")
	case id == "":
		return "", errors.New("event id is required")
	}
	return m.store.IdempotencyKey("evt:processed:"+consumer, id), nil
}
