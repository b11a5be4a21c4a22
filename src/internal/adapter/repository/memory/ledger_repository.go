package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/api-sage/bridge-ledger/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/bridge-ledger/src/internal/commons"
	"github.com/api-sage/bridge-ledger/src/internal/domain"
)

// Verify that LedgerRepository implements the repo interface
var _ repo_interfaces.LedgerRepository = (*LedgerRepository)(nil)

// LedgerRepository is the in-memory ledger store, used by tests and local
// runs. Thread-safe; matches the duplicate/imbalance semantics of the
// persistent backends.
type LedgerRepository struct {
	mu      sync.Mutex
	byGroup map[string]domain.LedgerEntry
	order   []string
}

func NewLedgerRepository() *LedgerRepository {
	return &LedgerRepository{
		byGroup: make(map[string]domain.LedgerEntry),
	}
}

func (r *LedgerRepository) Save(ctx context.Context, entry domain.LedgerEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byGroup[entry.GroupID]; exists {
		return commons.ErrDuplicateEntry
	}
	r.byGroup[entry.GroupID] = entry
	r.order = append(r.order, entry.GroupID)
	return nil
}

func (r *LedgerRepository) FindByGroupID(ctx context.Context, groupID string) (domain.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.byGroup[groupID]
	if !ok {
		return domain.LedgerEntry{}, commons.ErrRecordNotFound
	}
	return entry, nil
}

func (r *LedgerRepository) ListByAccount(ctx context.Context, name, sub string, since, until time.Time) ([]domain.LedgerEntry, error) {
	return r.list(func(e domain.LedgerEntry) bool {
		if !touchesAccount(e, name, sub) {
			return false
		}
		return inWindow(e.Timestamp, since, until)
	})
}

func (r *LedgerRepository) ListByCustomer(ctx context.Context, custID string, since time.Time) ([]domain.LedgerEntry, error) {
	return r.list(func(e domain.LedgerEntry) bool {
		return e.CustID == custID && inWindow(e.Timestamp, since, time.Time{})
	})
}

func (r *LedgerRepository) ListAccounts(ctx context.Context) ([]domain.AccountRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[domain.AccountRef]struct{})
	for _, entry := range r.byGroup {
		for _, acc := range []domain.Account{entry.Debit.Account, entry.Credit.Account} {
			seen[domain.AccountRef{Name: acc.Name, Sub: acc.Sub, Type: acc.Type}] = struct{}{}
		}
	}

	refs := make([]domain.AccountRef, 0, len(seen))
	for ref := range seen {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Name != refs[j].Name {
			return refs[i].Name < refs[j].Name
		}
		return refs[i].Sub < refs[j].Sub
	})
	return refs, nil
}

func (r *LedgerRepository) list(keep func(domain.LedgerEntry) bool) ([]domain.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.LedgerEntry
	for _, groupID := range r.order {
		entry := r.byGroup[groupID]
		if keep(entry) {
			out = append(out, entry)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

func touchesAccount(e domain.LedgerEntry, name, sub string) bool {
	d, c := e.Debit.Account, e.Credit.Account
	return (d.Name == name && d.Sub == sub) || (c.Name == name && c.Sub == sub)
}

func inWindow(ts, since, until time.Time) bool {
	if !since.IsZero() && ts.Before(since) {
		return false
	}
	if !until.IsZero() && ts.After(until) {
		return false
	}
	return true
}
