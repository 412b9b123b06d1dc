package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

// ErrNotFound is returned by Storage.Get when no cart is stored.
var ErrNotFound = errors.New("cart: not found")

// Storage persists encoded carts by cart id.
type Storage interface {
	Get(ctx context.Context, cartID string) ([]byte, error)
	Set(ctx context.Context, cartID string, payload []byte) error
	Clear(ctx context.Context, cartID string) error
}

type redisStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CartKey(cartID string) string
}

// RedisStorage keeps each cart in a single key whose TTL is refreshed on write.
type RedisStorage struct {
	store redisStore
	ttl   time.Duration
}

// NewRedisStorage builds a Redis-backed cart store.
func NewRedisStorage(store redisStore, ttl time.Duration) (*RedisStorage, error) {
	if store == nil {
		return nil, fmt.Errorf("redis store required")
	}
	if ttl < 0 {
		return nil, fmt.Errorf("cart ttl must be non-negative")
	}
	return &RedisStorage{store: store, ttl: ttl}, nil
}

func (s *RedisStorage) Get(ctx context.Context, cartID string) ([]byte, error) {
	raw, err := s.store.Get(ctx, s.store.CartKey(cartID))
	if err != nil {
		if redis.IsNil(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read cart: %w", err)
	}
	return []byte(raw), nil
}

func (s *RedisStorage) Set(ctx context.Context, cartID string, payload []byte) error {
	if err := s.store.Set(ctx, s.store.CartKey(cartID), string(payload), s.ttl); err != nil {
		return fmt.Errorf("write cart: %w", err)
	}
	return nil
}

func (s *RedisStorage) Clear(ctx context.Context, cartID string) error {
	if err := s.store.Del(ctx, s.store.CartKey(cartID)); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// MemoryStorage is a process-local Storage used by tests and single-node dev runs.
type MemoryStorage struct {
	mu    sync.Mutex
	carts map[string][]byte
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{carts: map[string][]byte{}}
}

func (s *MemoryStorage) Get(_ context.Context, cartID string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.carts[cartID]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), raw...), nil
}

func (s *MemoryStorage) Set(_ context.Context, cartID string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[cartID] = append([]byte(nil), payload...)
	return nil
}

func (s *MemoryStorage) Clear(_ context.Context, cartID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, cartID)
	return nil
}
