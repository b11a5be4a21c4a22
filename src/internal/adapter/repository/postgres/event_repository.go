package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/api-sage/bridge-ledger/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/bridge-ledger/src/internal/commons"
	"github.com/api-sage/bridge-ledger/src/internal/domain"
)

var _ repo_interfaces.EventRepository = (*EventRepository)(nil)

type EventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) RecordReceived(ctx context.Context, event domain.TrackedEvent) error {
	const query = `
INSERT INTO tracked_events (event_id, group_id, cust_id, kind, received_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (event_id) DO NOTHING`

	if _, err := r.db.ExecContext(
		ctx,
		query,
		event.ID,
		event.GroupID(),
		event.CustID,
		string(event.Payload.Kind()),
		event.Timestamp.UTC(),
	); err != nil {
		return fmt.Errorf("record event %s: %v: %w", event.ID, err, commons.ErrTransientStore)
	}
	return nil
}

func (r *EventRepository) StampProcessed(ctx context.Context, eventID string, duration time.Duration) error {
	const query = `
UPDATE tracked_events
SET processed_ms = $2
WHERE event_id = $1`

	result, err := r.db.ExecContext(ctx, query, eventID, duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("stamp event %s: %v: %w", eventID, err, commons.ErrTransientStore)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("stamp event %s: %w", eventID, err)
	}
	if affected == 0 {
		return commons.ErrRecordNotFound
	}
	return nil
}

func (r *EventRepository) ListUnstamped(ctx context.Context, receivedBefore time.Time) ([]string, error) {
	const query = `
SELECT event_id
FROM tracked_events
WHERE processed_ms IS NULL AND received_at < $1
ORDER BY received_at ASC`

	rows, err := r.db.QueryContext(ctx, query, receivedBefore.UTC())
	if err != nil {
		return nil, fmt.Errorf("list unstamped events: %v: %w", err, commons.ErrTransientStore)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan event id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
