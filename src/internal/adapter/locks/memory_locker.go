package locks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/api-sage/bridge-ledger/src/internal/commons"
)

var _ Locker = (*MemoryLocker)(nil)

type memoryLock struct {
	holder  string
	expires time.Time
}

// MemoryLocker implements the Locker contract in-process, for tests and
// local runs. Same semantics as the redis locker, including TTL expiry.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]memoryLock
	seq   int
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[string]memoryLock)}
}

func (l *MemoryLocker) Acquire(ctx context.Context, key string, ttl, wait time.Duration) (func(), error) {
	deadline := time.Now().Add(wait)

	for {
		if holder, ok := l.tryAcquire(key, ttl); ok {
			return l.releaseFunc(key, holder), nil
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("lock %s: %w", key, commons.ErrLockTimeout)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func (l *MemoryLocker) Exists(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, ok := l.locks[key]
	return ok && lock.expires.After(time.Now()), nil
}

func (l *MemoryLocker) tryAcquire(key string, ttl time.Duration) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lock, ok := l.locks[key]; ok && lock.expires.After(time.Now()) {
		return "", false
	}

	l.seq++
	holder := fmt.Sprintf("holder-%d", l.seq)
	l.locks[key] = memoryLock{holder: holder, expires: time.Now().Add(ttl)}
	return holder, true
}

func (l *MemoryLocker) releaseFunc(key, holder string) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			if lock, ok := l.locks[key]; ok && lock.holder == holder {
				delete(l.locks, key)
			}
		})
	}
}
