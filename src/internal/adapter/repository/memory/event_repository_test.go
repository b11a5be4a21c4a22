package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/api-sage/bridge-ledger/src/internal/adapter/repository/memory"
	"github.com/api-sage/bridge-ledger/src/internal/domain"
	"github.com/shopspring/decimal"
)

func trackedEvent(id string, ts time.Time) domain.TrackedEvent {
	return domain.TrackedEvent{
		ID:        id,
		CustID:    "cust-1",
		Timestamp: ts,
		Payload: domain.ChainTransfer{
			TxID:   "tx-" + id,
			Amount: decimal.NewFromInt(1),
			Unit:   domain.UnitTokenA,
		},
	}
}

func TestRecordReceivedIsIdempotent(t *testing.T) {
	repo := memory.NewEventRepository()
	ctx := context.Background()
	event := trackedEvent("evt-1", time.Now().UTC())

	if err := repo.RecordReceived(ctx, event); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if err := repo.RecordReceived(ctx, event); err != nil {
		t.Fatalf("re-delivery must not error, got %v", err)
	}
}

func TestListUnstampedReturnsOnlyInterruptedEvents(t *testing.T) {
	repo := memory.NewEventRepository()
	ctx := context.Background()
	base := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)

	if err := repo.RecordReceived(ctx, trackedEvent("evt-done", base)); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := repo.RecordReceived(ctx, trackedEvent("evt-stuck", base)); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := repo.RecordReceived(ctx, trackedEvent("evt-recent", base.Add(2*time.Hour))); err != nil {
		t.Fatalf("record: %v", err)
	}

	if err := repo.StampProcessed(ctx, "evt-done", 120*time.Millisecond); err != nil {
		t.Fatalf("stamp: %v", err)
	}

	ids, err := repo.ListUnstamped(ctx, base.Add(time.Hour))
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(ids) != 1 || ids[0] != "evt-stuck" {
		t.Fatalf("expected only evt-stuck, got %v", ids)
	}

	if duration, ok := repo.ProcessedDuration("evt-done"); !ok || duration != 120*time.Millisecond {
		t.Fatalf("expected 120ms stamp on evt-done, got %v (%v)", duration, ok)
	}
}
