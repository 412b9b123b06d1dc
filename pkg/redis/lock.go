package redis

import (
	"context"
	"fmt"
)

// releaseIfOwnerScript deletes KEYS[1] only while it still holds ARGV[1].
const releaseIfOwnerScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// ReleaseIfOwner atomically deletes a lock key held by owner. It reports
// false when the key expired or another holder took it.
func (c *Client) ReleaseIfOwner(ctx context.Context, key, owner string) (bool, error) {
	if c == nil || c.store == nil {
		return false, errNotInitialized
	}
	n, err := c.store.Eval(ctx, releaseIfOwnerScript, []string{key}, owner).Int64()
	if err != nil {
		return false, fmt.Errorf("release %s: %w", key, err)
	}
	return n == 1, nil
}
