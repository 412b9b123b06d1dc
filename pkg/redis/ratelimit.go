package redis

import (
	"context"
	"time"
)

// FixedWindowAllow counts one hit against scope and reports whether the
// running count for the current window is within limit.
func (c *Client) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	if c.store == nil {
		return false, 0, errNotInitialized
	}
	key := c.RateLimitKey(scope)
	count, err := c.store.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, err
	}
	if window > 0 {
		if err := c.armWindow(ctx, key, count, window); err != nil {
			return false, count, err
		}
	}
	return count <= limit, count, nil
}

// armWindow sets the window TTL on the first hit and re-arms a counter
// found without one.
func (c *Client) armWindow(ctx context.Context, key string, count int64, window time.Duration) error {
	if count == 1 {
		return c.store.Expire(ctx, key, window).Err()
	}
	ttl, err := c.store.TTL(ctx, key).Result()
	if err != nil {
		return err
	}
	if ttl < 0 {
		return c.store.Expire(ctx, key, window).Err()
	}
	return nil
}
