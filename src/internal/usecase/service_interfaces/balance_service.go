package service_interfaces

import (
	"context"
	"time"

	"github.com/api-sage/bridge-ledger/src/internal/domain"
	"github.com/shopspring/decimal"
)

// BalanceService computes point-in-time and running balances from the
// ledger store. The store is always the source of truth; nothing here is
// cached.
type BalanceService interface {
	// Balance aggregates all entries touching the account up to asOf. A
	// non-zero ageWindow bounds the selection to [asOf-ageWindow, asOf].
	Balance(ctx context.Context, account domain.Account, asOf time.Time, ageWindow time.Duration) (domain.BalanceReport, error)

	// ConvertedInWindow reports the msat value the customer converted in
	// the trailing window, for rate limiting.
	ConvertedInWindow(ctx context.Context, custID string, window time.Duration) (decimal.Decimal, error)

	// ListAccounts returns the distinct account triples observed across all
	// entries.
	ListAccounts(ctx context.Context) ([]domain.AccountRef, error)
}
