package disbursements

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultLockTTL = 30 * time.Second

// lockStore defines the Redis operations used by CauseLock.
type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	AllocationLockKey(causeID string) string
}

// CauseLocker builds per-cause allocation locks so concurrent batches for
// the same cause serialize while distinct causes proceed independently.
type CauseLocker struct {
	store lockStore
	ttl   time.Duration
}

// NewCauseLocker constructs a Redis-backed lock factory.
func NewCauseLocker(store lockStore, ttl time.Duration) (*CauseLocker, error) {
	if store == nil {
		return nil, errors.New("redis store required for cause locks")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &CauseLocker{store: store, ttl: ttl}, nil
}

// For returns a lock scoped to the given cause.
func (f *CauseLocker) For(causeID string) *CauseLock {
	return &CauseLock{
		store: f.store,
		key:   f.store.AllocationLockKey(causeID),
		ttl:   f.ttl,
	}
}

// CauseLock implements a single-cause mutex using Redis SETNX + TTL.
type CauseLock struct {
	store lockStore
	key   string
	ttl   time.Duration
	owner string
}

// Acquire tries to own the lock for the configured TTL.
func (l *CauseLock) Acquire(ctx context.Context) (bool, error) {
	owner := uuid.NewString()
	ok, err := l.store.SetNX(ctx, l.key, owner, l.ttl)
	if err != nil {
		return false, fmt.Errorf("setnx: %w", err)
	}
	if ok {
		l.owner = owner
	}
	return ok, nil
}

// Release frees the lock only if the owner value still matches.
func (l *CauseLock) Release(ctx context.Context) error {
	if l.owner == "" {
		return nil
	}
	value, err := l.store.Get(ctx, l.key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("read lock owner: %w", err)
	}
	if value != l.owner {
		return nil
	}
	if err := l.store.Del(ctx, l.key); err != nil {
		return fmt.Errorf("delete lock: %w", err)
	}
	l.owner = ""
	return nil
}
