package memory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/api-sage/bridge-ledger/src/internal/adapter/repository/memory"
	"github.com/api-sage/bridge-ledger/src/internal/commons"
	"github.com/api-sage/bridge-ledger/src/internal/domain"
	"github.com/shopspring/decimal"
)

func repoQuote() domain.Quote {
	return domain.Quote{
		TokenAUSD:          decimal.RequireFromString("0.05078236"),
		TokenBUSD:          decimal.RequireFromString("0.2"),
		SettlementAssetUSD: decimal.RequireFromString("20000"),
		TokenATokenBRate:   decimal.RequireFromString("0.2539118"),
		FetchTime:          time.Now().UTC(),
		Source:             "test",
	}
}

func testEntry(t *testing.T, groupID, custID string, ts time.Time) domain.LedgerEntry {
	t.Helper()

	msats := decimal.RequireFromString("2539118")
	snap, err := domain.NewConversionSnapshot(msats, repoQuote(), decimal.Zero, decimal.Zero)
	if err != nil {
		t.Fatalf("build snapshot: %v", err)
	}

	return domain.LedgerEntry{
		GroupID:     groupID,
		ShortID:     domain.ShortID(groupID),
		CustID:      custID,
		Type:        domain.LedgerTypeDeposit,
		Timestamp:   ts,
		Description: "deposit",
		Debit: domain.Leg{
			Account:  domain.NewAccount("chain_wallet", "", domain.AccountTypeAsset),
			Unit:     domain.UnitTokenA,
			Amount:   decimal.NewFromInt(10),
			Snapshot: snap,
		},
		Credit: domain.Leg{
			Account:  domain.NewAccount("customer_deposits", custID, domain.AccountTypeLiability),
			Unit:     domain.UnitTokenA,
			Amount:   decimal.NewFromInt(10),
			Snapshot: snap,
		},
		SourceEventID: "evt-" + groupID,
	}
}

func TestSaveAndFindByGroupID(t *testing.T) {
	repo := memory.NewLedgerRepository()
	ctx := context.Background()

	entry := testEntry(t, "chain_transfer:tx1-0", "cust-1", time.Now().UTC())
	if err := repo.Save(ctx, entry); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	found, err := repo.FindByGroupID(ctx, entry.GroupID)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if found.ShortID != entry.ShortID {
		t.Fatalf("expected short id %s, got %s", entry.ShortID, found.ShortID)
	}

	_, err = repo.FindByGroupID(ctx, "chain_transfer:missing")
	if !errors.Is(err, commons.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestSaveIsIdempotentByGroupID(t *testing.T) {
	repo := memory.NewLedgerRepository()
	ctx := context.Background()

	entry := testEntry(t, "chain_transfer:tx1-0", "cust-1", time.Now().UTC())
	if err := repo.Save(ctx, entry); err != nil {
		t.Fatalf("first save: expected nil error, got %v", err)
	}

	err := repo.Save(ctx, entry)
	if !commons.IsDuplicate(err) {
		t.Fatalf("expected duplicate error on second save, got %v", err)
	}
}

func TestSaveRejectsImbalancedEntry(t *testing.T) {
	repo := memory.NewLedgerRepository()

	entry := testEntry(t, "chain_transfer:tx1-0", "cust-1", time.Now().UTC())
	entry.Credit.Amount = decimal.NewFromInt(12)

	err := repo.Save(context.Background(), entry)
	if !errors.Is(err, commons.ErrImbalancedEntry) {
		t.Fatalf("expected ErrImbalancedEntry, got %v", err)
	}
}

func TestConcurrentSavesOfSameEntryPostExactlyOnce(t *testing.T) {
	repo := memory.NewLedgerRepository()
	ctx := context.Background()
	entry := testEntry(t, "chain_transfer:tx1-0", "cust-1", time.Now().UTC())

	const workers = 16
	var wg sync.WaitGroup
	results := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- repo.Save(ctx, entry)
		}()
	}
	wg.Wait()
	close(results)

	var posted, duplicates int
	for err := range results {
		switch {
		case err == nil:
			posted++
		case commons.IsDuplicate(err):
			duplicates++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if posted != 1 || duplicates != workers-1 {
		t.Fatalf("expected exactly one post, got %d posts and %d duplicates", posted, duplicates)
	}
}

func TestListByAccountWindowAndOrder(t *testing.T) {
	repo := memory.NewLedgerRepository()
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	for i, groupID := range []string{"chain_transfer:a-0", "chain_transfer:b-0", "chain_transfer:c-0"} {
		entry := testEntry(t, groupID, "cust-1", base.Add(time.Duration(i)*time.Hour))
		if err := repo.Save(ctx, entry); err != nil {
			t.Fatalf("save %s: %v", groupID, err)
		}
	}

	entries, err := repo.ListByAccount(ctx, "chain_wallet", "", base.Add(30*time.Minute), base.Add(90*time.Minute))
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(entries) != 1 || entries[0].GroupID != "chain_transfer:b-0" {
		t.Fatalf("expected only the middle entry in window, got %d entries", len(entries))
	}

	all, err := repo.ListByAccount(ctx, "chain_wallet", "", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].Timestamp.Before(all[i-1].Timestamp) {
			t.Fatal("entries must be ordered by timestamp ascending")
		}
	}
}

func TestListAccountsReturnsDistinctTriples(t *testing.T) {
	repo := memory.NewLedgerRepository()
	ctx := context.Background()
	now := time.Now().UTC()

	if err := repo.Save(ctx, testEntry(t, "chain_transfer:a-0", "cust-1", now)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := repo.Save(ctx, testEntry(t, "chain_transfer:b-0", "cust-1", now)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := repo.Save(ctx, testEntry(t, "chain_transfer:c-0", "cust-2", now)); err != nil {
		t.Fatalf("save: %v", err)
	}

	refs, err := repo.ListAccounts(ctx)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	// chain_wallet plus one customer_deposits sub per customer.
	if len(refs) != 3 {
		t.Fatalf("expected 3 distinct account refs, got %d", len(refs))
	}
}
