package locks

import (
	"context"
	"time"
)

// Locker is a named distributed mutual-exclusion handle with a TTL and a
// bounded-wait acquisition protocol. A crashed holder is backstopped by TTL
// expiry; release never relies on the holder being alive.
type Locker interface {
	// Acquire blocks up to wait for the lock, holding it for at most ttl.
	// Returns commons.ErrLockTimeout when the waiting budget runs out. The
	// returned release func is idempotent and safe on every exit path.
	Acquire(ctx context.Context, key string, ttl, wait time.Duration) (func(), error)

	// Exists reports whether the lock is currently held.
	Exists(ctx context.Context, key string) (bool, error)
}
