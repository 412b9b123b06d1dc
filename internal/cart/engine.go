package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Engine owns one shopper's cart for the lifetime of a request. Every
// mutation is written back to Storage before it returns.
type Engine struct {
	mu        sync.Mutex
	id        string
	storage   Storage
	policy    PricingPolicy
	now       func() time.Time
	cart      Cart
	recovered error
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithClock overrides the clock used for lastModified.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// Load reads the stored cart for cartID. A missing cart starts empty and a
// corrupt one is replaced by an empty cart; Recovered reports the latter.
func Load(ctx context.Context, storage Storage, cartID string, policy PricingPolicy, opts ...EngineOption) (*Engine, error) {
	if storage == nil {
		return nil, fmt.Errorf("cart storage required")
	}
	cartID = strings.TrimSpace(cartID)
	if cartID == "" {
		return nil, fmt.Errorf("cart id required")
	}
	e := &Engine{
		id:      cartID,
		storage: storage,
		policy:  policy,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}

	raw, err := storage.Get(ctx, cartID)
	switch {
	case errors.Is(err, ErrNotFound):
		return e, nil
	case err != nil:
		return nil, err
	}

	stored, err := Decode(raw)
	if err != nil {
		e.recovered = err
		return e, nil
	}
	e.cart = stored
	return e, nil
}

// ID returns the cart id.
func (e *Engine) ID() string {
	return e.id
}

// Recovered returns the decode error when the stored cart was discarded.
func (e *Engine) Recovered() error {
	return e.recovered
}

// Add merges item into an existing line with the same key or appends it.
func (e *Engine) Add(ctx context.Context, item LineItem) error {
	if err := item.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	key := item.Key()
	for idx := range e.cart.Items {
		if e.cart.Items[idx].Key() == key {
			e.cart.Items[idx].Quantity += item.Quantity
			return e.persistLocked(ctx)
		}
	}
	e.cart.Items = append(e.cart.Items, item.clone())
	return e.persistLocked(ctx)
}

// UpdateQuantity sets the absolute quantity for key. A quantity of zero or
// less removes the line. Unknown keys are left alone and report false.
func (e *Engine) UpdateQuantity(ctx context.Context, key Key, quantity int) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx := e.indexLocked(key)
	if idx < 0 {
		return false, nil
	}
	if quantity <= 0 {
		e.cart.Items = append(e.cart.Items[:idx], e.cart.Items[idx+1:]...)
	} else {
		e.cart.Items[idx].Quantity = quantity
	}
	return true, e.persistLocked(ctx)
}

// Remove drops the line for key and reports whether one existed.
func (e *Engine) Remove(ctx context.Context, key Key) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx := e.indexLocked(key)
	if idx < 0 {
		return false, nil
	}
	e.cart.Items = append(e.cart.Items[:idx], e.cart.Items[idx+1:]...)
	return true, e.persistLocked(ctx)
}

// Clear empties the cart and drops its stored slot.
func (e *Engine) Clear(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cart = Cart{LastModified: e.now()}
	return e.storage.Clear(ctx, e.id)
}

// Items returns a copy of the lines in insertion order.
func (e *Engine) Items() []LineItem {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]LineItem, 0, len(e.cart.Items))
	for _, item := range e.cart.Items {
		out = append(out, item.clone())
	}
	return out
}

// Find returns the line for key.
func (e *Engine) Find(key Key) (LineItem, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx := e.indexLocked(key)
	if idx < 0 {
		return LineItem{}, false
	}
	return e.cart.Items[idx].clone(), true
}

// Totals derives subtotal, shipping, tax and total from the current lines.
func (e *Engine) Totals() Totals {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.policy.Compute(e.cart.Items)
}

// Count is the sum of quantities.
func (e *Engine) Count() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	count := 0
	for _, item := range e.cart.Items {
		count += item.Quantity
	}
	return count
}

// LastModified is the time of the last persisted mutation.
func (e *Engine) LastModified() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cart.LastModified
}

func (e *Engine) indexLocked(key Key) int {
	key = key.normalized()
	for idx, item := range e.cart.Items {
		if item.Key() == key {
			return idx
		}
	}
	return -1
}

func (e *Engine) persistLocked(ctx context.Context) error {
	e.cart.LastModified = e.now()
	payload, err := Encode(e.cart)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	return e.storage.Set(ctx, e.id, payload)
}
