package memory

import (
	"context"
	"sync"
	"time"

	"github.com/api-sage/bridge-ledger/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/bridge-ledger/src/internal/commons"
	"github.com/api-sage/bridge-ledger/src/internal/domain"
)

var _ repo_interfaces.EventRepository = (*EventRepository)(nil)

type eventRecord struct {
	event     domain.TrackedEvent
	processed *time.Duration
}

// EventRepository is the in-memory tracked-event record, used by tests.
type EventRepository struct {
	mu     sync.Mutex
	events map[string]*eventRecord
}

func NewEventRepository() *EventRepository {
	return &EventRepository{events: make(map[string]*eventRecord)}
}

func (r *EventRepository) RecordReceived(ctx context.Context, event domain.TrackedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.events[event.ID]; exists {
		return nil
	}
	r.events[event.ID] = &eventRecord{event: event}
	return nil
}

func (r *EventRepository) StampProcessed(ctx context.Context, eventID string, duration time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.events[eventID]
	if !ok {
		return commons.ErrRecordNotFound
	}
	record.processed = &duration
	return nil
}

func (r *EventRepository) ListUnstamped(ctx context.Context, receivedBefore time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ids []string
	for id, record := range r.events {
		if record.processed == nil && record.event.Timestamp.Before(receivedBefore) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// ProcessedDuration reports the stamp for an event id, for tests.
func (r *EventRepository) ProcessedDuration(eventID string) (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.events[eventID]
	if !ok || record.processed == nil {
		return 0, false
	}
	return *record.processed, true
}
