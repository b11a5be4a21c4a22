package service_interfaces

import (
	"context"

	"github.com/api-sage/bridge-ledger/src/internal/domain"
)

type PipelineOutcome string

const (
	OutcomeDuplicate       PipelineOutcome = "DUPLICATE"
	OutcomeLedgerCreated   PipelineOutcome = "LEDGER_CREATED"
	OutcomeSkipped         PipelineOutcome = "SKIPPED"
	OutcomeFailedRetryable PipelineOutcome = "FAILED_RETRYABLE"
	OutcomeFailedTerminal  PipelineOutcome = "FAILED_TERMINAL"
)

// CompletionRecord is the one structured record emitted per processed
// event, whatever the outcome.
type CompletionRecord struct {
	EventID       string          `json:"event_id"`
	GroupID       string          `json:"group_id"`
	CustID        string          `json:"cust_id"`
	Kind          string          `json:"kind"`
	Outcome       PipelineOutcome `json:"outcome"`
	Attempts      int             `json:"attempts"`
	DurationMs    int64           `json:"duration_ms"`
	EntryGroupIDs []string        `json:"entry_group_ids,omitempty"`
	Degraded      bool            `json:"degraded,omitempty"`
	Error         string          `json:"error,omitempty"`
}

// CompletionPublisher delivers completion records to external consumers.
type CompletionPublisher interface {
	Publish(ctx context.Context, key string, record any) error
}

// PipelineService orchestrates dedup, locking, dispatch, posting and
// finalization for every inbound tracked event.
type PipelineService interface {
	Process(ctx context.Context, event domain.TrackedEvent) (CompletionRecord, error)
}
