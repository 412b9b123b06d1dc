package cron

import (
	"context"
	"testing"
	"time"
)

type memoryLockStore struct {
	values map[string]string
}

func (m *memoryLockStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	return true, nil
}

func (m *memoryLockStore) ReleaseIfOwner(_ context.Context, key, owner string) (bool, error) {
	if m.values[key] != owner {
		return false, nil
	}
	delete(m.values, key)
	return true, nil
}

func (m *memoryLockStore) LockKey(name string) string { return "sf:lock:" + name }

func TestRedisLockIsExclusive(t *testing.T) {
	store := &memoryLockStore{values: map[string]string{}}
	first, err := NewRedisLock(store, LockName, 0)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}
	second, _ := NewRedisLock(store, LockName, time.Minute)
	ctx := context.Background()

	if ok, err := first.Acquire(ctx); err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}
	if ok, _ := second.Acquire(ctx); ok {
		t.Fatalf("second acquire should fail while held")
	}
	if err := second.Release(ctx); err != nil {
		t.Fatalf("non-owner release: %v", err)
	}
	if _, held := store.values["sf:lock:cron-worker"]; !held {
		t.Fatalf("non-owner must not release the lock")
	}
	if err := first.Release(ctx); err != nil {
		t.Fatalf("owner release: %v", err)
	}
	if ok, _ := second.Acquire(ctx); !ok {
		t.Fatalf("lock should be free after release")
	}
}

func TestRedisLockReleaseAfterExpiryKeepsNewHolder(t *testing.T) {
	store := &memoryLockStore{values: map[string]string{}}
	stale, _ := NewRedisLock(store, LockName, time.Minute)
	fresh, _ := NewRedisLock(store, LockName, time.Minute)
	ctx := context.Background()

	if ok, _ := stale.Acquire(ctx); !ok {
		t.Fatal("stale acquire")
	}
	// Simulate the lease expiring and another replica taking it.
	delete(store.values, "sf:lock:cron-worker")
	if ok, _ := fresh.Acquire(ctx); !ok {
		t.Fatal("fresh acquire")
	}
	if err := stale.Release(ctx); err != nil {
		t.Fatalf("stale release: %v", err)
	}
	if _, held := store.values["sf:lock:cron-worker"]; !held {
		t.Fatal("stale holder must not release the new lease")
	}
}
