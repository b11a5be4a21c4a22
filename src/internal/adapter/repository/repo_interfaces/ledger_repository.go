package repo_interfaces

import (
	"context"
	"time"

	"github.com/api-sage/bridge-ledger/src/internal/domain"
)

// LedgerRepository is the append-only ledger store. Save is idempotent by
// group id; there is no update or delete.
type LedgerRepository interface {
	// Save verifies the conservation invariant and inserts the entry.
	// Returns commons.ErrImbalancedEntry on an invariant violation and
	// commons.ErrDuplicateEntry when the group id already exists (an
	// idempotent no-op for callers).
	Save(ctx context.Context, entry domain.LedgerEntry) error

	// FindByGroupID is an exact-key lookup; commons.ErrRecordNotFound when
	// absent.
	FindByGroupID(ctx context.Context, groupID string) (domain.LedgerEntry, error)

	// ListByAccount returns all entries touching the account on either leg,
	// ordered by timestamp ascending. A zero since/until leaves that bound
	// open.
	ListByAccount(ctx context.Context, name, sub string, since, until time.Time) ([]domain.LedgerEntry, error)

	// ListByCustomer returns all entries for the customer since the given
	// time, ordered by timestamp ascending.
	ListByCustomer(ctx context.Context, custID string, since time.Time) ([]domain.LedgerEntry, error)

	// ListAccounts returns the distinct (name, sub, type) triples observed
	// across all stored entries.
	ListAccounts(ctx context.Context) ([]domain.AccountRef, error)
}
