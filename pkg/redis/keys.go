package redis

import "strings"

const defaultNamespace = "sf"

// Keyspace prefixes every key the storefront writes so several
// environments can share one Redis database.
type Keyspace string

const (
	idempotencyPrefix = "idempotency"
	rateLimitPrefix   = "rate_limit"
	cartPrefix        = "cart"
	lockPrefix        = "lock"
)

// IdempotencyKey namespaces a replay-protection entry, e.g. sf:idempotency:checkout:<key>.
func (k Keyspace) IdempotencyKey(scope, id string) string {
	return k.join(idempotencyPrefix, scope, id)
}

func (k Keyspace) RateLimitKey(scope string) string {
	return k.join(rateLimitPrefix, scope)
}

// CartKey is the slot holding one serialized cart.
func (k Keyspace) CartKey(cartID string) string {
	return k.join(cartPrefix, cartID)
}

func (k Keyspace) LockKey(name string) string {
	return k.join(lockPrefix, name)
}

func (k Keyspace) join(parts ...string) string {
	ns := strings.TrimSpace(string(k))
	if ns == "" {
		ns = defaultNamespace
	}
	var b strings.Builder
	b.WriteString(ns)
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		b.WriteByte(':')
		b.WriteString(part)
	}
	return b.String()
}
