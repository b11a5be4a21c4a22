package repo_interfaces

import (
	"context"
	"time"

	"github.com/api-sage/bridge-ledger/src/internal/domain"
)

// EventRepository records inbound tracked events and their processing stamp.
// An event that is present but unstamped after a restart was interrupted
// mid-pipeline and must be reprocessed; the ledger store's idempotency makes
// that re-entry safe.
type EventRepository interface {
	// RecordReceived upserts the event by id; re-delivery of the same event
	// is not an error.
	RecordReceived(ctx context.Context, event domain.TrackedEvent) error

	// StampProcessed stores the pipeline's processing duration for the
	// event, marking it fully handled.
	StampProcessed(ctx context.Context, eventID string, duration time.Duration) error

	// ListUnstamped returns ids of events received before the cutoff that
	// never got their processing stamp.
	ListUnstamped(ctx context.Context, receivedBefore time.Time) ([]string, error)
}
