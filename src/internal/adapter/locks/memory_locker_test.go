package locks_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/api-sage/bridge-ledger/src/internal/adapter/locks"
	"github.com/api-sage/bridge-ledger/src/internal/commons"
)

func TestMemoryLockerMutualExclusion(t *testing.T) {
	locker := locks.NewMemoryLocker()
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "op:chain_transfer:tx1-0", time.Minute, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("first acquire: expected nil error, got %v", err)
	}

	_, err = locker.Acquire(ctx, "op:chain_transfer:tx1-0", time.Minute, 25*time.Millisecond)
	if !errors.Is(err, commons.ErrLockTimeout) {
		t.Fatalf("expected ErrLockTimeout while held, got %v", err)
	}

	release()

	release2, err := locker.Acquire(ctx, "op:chain_transfer:tx1-0", time.Minute, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("acquire after release: expected nil error, got %v", err)
	}
	release2()
}

func TestMemoryLockerTTLExpiryFreesTheLock(t *testing.T) {
	locker := locks.NewMemoryLocker()
	ctx := context.Background()

	// Never released; only the ttl backstop can free it.
	_, err := locker.Acquire(ctx, "cust:cust-1", 20*time.Millisecond, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("first acquire: expected nil error, got %v", err)
	}

	release, err := locker.Acquire(ctx, "cust:cust-1", time.Minute, time.Second)
	if err != nil {
		t.Fatalf("expected acquisition after ttl expiry, got %v", err)
	}
	release()
}

func TestMemoryLockerReleaseIsIdempotent(t *testing.T) {
	locker := locks.NewMemoryLocker()
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "op:a", time.Minute, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	release()
	release()

	held, err := locker.Exists(ctx, "op:a")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if held {
		t.Fatal("lock must be free after release")
	}
}

func TestMemoryLockerStaleReleaseDoesNotFreeNewHolder(t *testing.T) {
	locker := locks.NewMemoryLocker()
	ctx := context.Background()

	staleRelease, err := locker.Acquire(ctx, "op:a", 10*time.Millisecond, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	// Let the first hold expire and hand the lock to a new owner.
	time.Sleep(20 * time.Millisecond)
	release, err := locker.Acquire(ctx, "op:a", time.Minute, time.Second)
	if err != nil {
		t.Fatalf("expected acquisition after expiry, got %v", err)
	}

	staleRelease()

	held, err := locker.Exists(ctx, "op:a")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !held {
		t.Fatal("stale release must not free the new holder's lock")
	}
	release()
}

func TestCoordinatorAcquiresAndReleasesBothLevels(t *testing.T) {
	locker := locks.NewMemoryLocker()
	coordinator := locks.NewCoordinator(locker, time.Minute, 50*time.Millisecond)
	ctx := context.Background()

	release, err := coordinator.AcquireBoth(ctx, "chain_transfer:tx1-0", "cust-1")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	// A different operation for the same customer must block on the
	// customer-level lock.
	_, err = coordinator.AcquireBoth(ctx, "chain_transfer:tx2-0", "cust-1")
	if !errors.Is(err, commons.ErrLockTimeout) {
		t.Fatalf("expected ErrLockTimeout on customer lock, got %v", err)
	}

	// A different customer proceeds independently.
	otherRelease, err := coordinator.AcquireBoth(ctx, "chain_transfer:tx3-0", "cust-2")
	if err != nil {
		t.Fatalf("expected nil error for other customer, got %v", err)
	}
	otherRelease()

	release()

	retryRelease, err := coordinator.AcquireBoth(ctx, "chain_transfer:tx2-0", "cust-1")
	if err != nil {
		t.Fatalf("expected acquisition after release, got %v", err)
	}
	retryRelease()
}

func TestCoordinatorFailedCustomerLockFreesOperationLock(t *testing.T) {
	locker := locks.NewMemoryLocker()
	coordinator := locks.NewCoordinator(locker, time.Minute, 25*time.Millisecond)
	ctx := context.Background()

	// Hold the customer lock directly so AcquireBoth takes the operation
	// lock and then times out one level down.
	release, err := locker.Acquire(ctx, "cust:cust-1", time.Minute, 25*time.Millisecond)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	_, err = coordinator.AcquireBoth(ctx, "chain_transfer:tx1-0", "cust-1")
	if !errors.Is(err, commons.ErrLockTimeout) {
		t.Fatalf("expected ErrLockTimeout, got %v", err)
	}

	held, err := locker.Exists(ctx, "op:chain_transfer:tx1-0")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if held {
		t.Fatal("operation lock must be released when the customer lock times out")
	}
	release()
}
