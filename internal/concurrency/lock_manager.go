package concurrency

import (
	"context"
	"sync"
	"time"

	"github.com/yieldland/production-core/internal/domain"
	"github.com/yieldland/production-core/internal/metrics"
)

// LockManager handles named locks. Every ledger (user, resource_type) key and
// every session ID maps to one mutex; callers acquiring several keys must do
// so in lexicographic key order.
type LockManager struct {
	locks sync.Map

	attempts int
	delay    time.Duration
}

// NewLockManager creates a new LockManager with the given acquisition budget:
// attempts TryLock probes spaced delay apart before giving up with ErrBusy.
func NewLockManager(attempts int, delay time.Duration) *LockManager {
	if attempts < 1 {
		attempts = 1
	}
	return &LockManager{
		attempts: attempts,
		delay:    delay,
	}
}

// GetLock returns the mutex for the given key.
func (lm *LockManager) GetLock(key string) *sync.Mutex {
	lock, _ := lm.locks.LoadOrStore(key, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// Acquire locks the named key within the retry budget. It returns
// domain.ErrBusy if the budget is exhausted, or the context error if the
// context is cancelled first. On success the caller must call the returned
// release function.
func (lm *LockManager) Acquire(ctx context.Context, key string) (func(), error) {
	mu := lm.GetLock(key)
	for i := 0; i < lm.attempts; i++ {
		if mu.TryLock() {
			return mu.Unlock, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lm.delay):
		}
	}
	metrics.LockAcquisitionBusy.Inc()
	return nil, domain.ErrBusy
}

// AcquireAll locks every key in the given order, releasing everything already
// held if any single acquisition fails. Keys must be pre-sorted by the caller
// so that overlapping multi-key operations agree on order.
func (lm *LockManager) AcquireAll(ctx context.Context, keys []string) (func(), error) {
	releases := make([]func(), 0, len(keys))
	releaseAll := func() {
		// Release in reverse acquisition order.
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}

	for _, key := range keys {
		release, err := lm.Acquire(ctx, key)
		if err != nil {
			releaseAll()
			return nil, err
		}
		releases = append(releases, release)
	}
	return releaseAll, nil
}
