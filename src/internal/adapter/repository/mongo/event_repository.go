package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/api-sage/bridge-ledger/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/bridge-ledger/src/internal/commons"
	"github.com/api-sage/bridge-ledger/src/internal/domain"
)

var _ repo_interfaces.EventRepository = (*EventRepository)(nil)

type EventRepository struct {
	events *mongo.Collection
}

func NewEventRepository(client *mongo.Client, database string) *EventRepository {
	return &EventRepository{
		events: client.Database(database).Collection(colTrackedEvents),
	}
}

func (r *EventRepository) Migrate(ctx context.Context) error {
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "processed_ms", Value: 1}, {Key: "received_at", Value: 1}}},
	}
	if _, err := r.events.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("migrate tracked_events indexes: %w", err)
	}
	return nil
}

func (r *EventRepository) RecordReceived(ctx context.Context, event domain.TrackedEvent) error {
	update := bson.M{"$setOnInsert": eventDoc{
		EventID:    event.ID,
		GroupID:    event.GroupID(),
		CustID:     event.CustID,
		Kind:       string(event.Payload.Kind()),
		ReceivedAt: event.Timestamp.UTC(),
	}}

	_, err := r.events.UpdateOne(ctx, bson.M{"_id": event.ID}, update, options.UpdateOne().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("record event %s: %v: %w", event.ID, err, commons.ErrTransientStore)
	}
	return nil
}

func (r *EventRepository) StampProcessed(ctx context.Context, eventID string, duration time.Duration) error {
	ms := duration.Milliseconds()
	result, err := r.events.UpdateOne(ctx, bson.M{"_id": eventID}, bson.M{"$set": bson.M{"processed_ms": ms}})
	if err != nil {
		return fmt.Errorf("stamp event %s: %v: %w", eventID, err, commons.ErrTransientStore)
	}
	if result.MatchedCount == 0 {
		return commons.ErrRecordNotFound
	}
	return nil
}

func (r *EventRepository) ListUnstamped(ctx context.Context, receivedBefore time.Time) ([]string, error) {
	filter := bson.M{
		"processed_ms": bson.M{"$exists": false},
		"received_at":  bson.M{"$lt": receivedBefore.UTC()},
	}

	cursor, err := r.events.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "received_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list unstamped events: %v: %w", err, commons.ErrTransientStore)
	}
	defer cursor.Close(ctx)

	var docs []eventDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode tracked events: %w", err)
	}

	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		ids = append(ids, doc.EventID)
	}
	return ids, nil
}
