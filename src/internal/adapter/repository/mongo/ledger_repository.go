package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/api-sage/bridge-ledger/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/bridge-ledger/src/internal/commons"
	"github.com/api-sage/bridge-ledger/src/internal/domain"
	"github.com/api-sage/bridge-ledger/src/internal/logger"
)

// Verify that LedgerRepository implements the repo interface
var _ repo_interfaces.LedgerRepository = (*LedgerRepository)(nil)

// LedgerRepository is the document-store ledger backend. The entry group id
// is the document _id, so uniqueness is enforced by the collection itself.
type LedgerRepository struct {
	entries *mongo.Collection
}

func NewLedgerRepository(client *mongo.Client, database string) *LedgerRepository {
	return &LedgerRepository{
		entries: client.Database(database).Collection(colLedgerEntries),
	}
}

// Migrate creates the secondary indexes the balance queries rely on.
func (r *LedgerRepository) Migrate(ctx context.Context) error {
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "cust_id", Value: 1}, {Key: "ts", Value: 1}}},
		{Keys: bson.D{{Key: "debit.account_name", Value: 1}, {Key: "debit.account_sub", Value: 1}, {Key: "ts", Value: 1}}},
		{Keys: bson.D{{Key: "credit.account_name", Value: 1}, {Key: "credit.account_sub", Value: 1}, {Key: "ts", Value: 1}}},
	}
	if _, err := r.entries.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("migrate ledger_entries indexes: %w", err)
	}
	return nil
}

func (r *LedgerRepository) Save(ctx context.Context, entry domain.LedgerEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	if _, err := r.entries.InsertOne(ctx, toEntryDoc(entry)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return commons.ErrDuplicateEntry
		}
		logger.Error("ledger repository save failed", err, logger.Fields{
			"groupId": entry.GroupID,
		})
		return fmt.Errorf("save ledger entry %s: %v: %w", entry.GroupID, err, commons.ErrTransientStore)
	}
	return nil
}

func (r *LedgerRepository) FindByGroupID(ctx context.Context, groupID string) (domain.LedgerEntry, error) {
	var doc entryDoc
	err := r.entries.FindOne(ctx, bson.M{"_id": groupID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.LedgerEntry{}, commons.ErrRecordNotFound
		}
		return domain.LedgerEntry{}, fmt.Errorf("find ledger entry %s: %v: %w", groupID, err, commons.ErrTransientStore)
	}
	return fromEntryDoc(doc)
}

func (r *LedgerRepository) ListByAccount(ctx context.Context, name, sub string, since, until time.Time) ([]domain.LedgerEntry, error) {
	filter := bson.M{
		"$or": bson.A{
			bson.M{"debit.account_name": name, "debit.account_sub": sub},
			bson.M{"credit.account_name": name, "credit.account_sub": sub},
		},
	}
	if window := timeFilter(since, until); window != nil {
		filter["ts"] = window
	}
	return r.find(ctx, filter)
}

func (r *LedgerRepository) ListByCustomer(ctx context.Context, custID string, since time.Time) ([]domain.LedgerEntry, error) {
	filter := bson.M{"cust_id": custID}
	if window := timeFilter(since, time.Time{}); window != nil {
		filter["ts"] = window
	}
	return r.find(ctx, filter)
}

func (r *LedgerRepository) ListAccounts(ctx context.Context) ([]domain.AccountRef, error) {
	pipeline := bson.A{
		bson.M{"$project": bson.M{
			"legs": bson.A{
				bson.M{
					"name": "$debit.account_name",
					"sub":  "$debit.account_sub",
					"type": "$debit.account_type",
				},
				bson.M{
					"name": "$credit.account_name",
					"sub":  "$credit.account_sub",
					"type": "$credit.account_type",
				},
			},
		}},
		bson.M{"$unwind": "$legs"},
		bson.M{"$group": bson.M{"_id": "$legs"}},
		bson.M{"$sort": bson.D{{Key: "_id.name", Value: 1}, {Key: "_id.sub", Value: 1}}},
	}

	cursor, err := r.entries.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %v: %w", err, commons.ErrTransientStore)
	}
	defer cursor.Close(ctx)

	var docs []struct {
		ID struct {
			Name string `bson:"name"`
			Sub  string `bson:"sub"`
			Type string `bson:"type"`
		} `bson:"_id"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode account refs: %w", err)
	}

	refs := make([]domain.AccountRef, 0, len(docs))
	for _, doc := range docs {
		refs = append(refs, domain.AccountRef{
			Name: doc.ID.Name,
			Sub:  doc.ID.Sub,
			Type: domain.AccountType(doc.ID.Type),
		})
	}
	return refs, nil
}

func (r *LedgerRepository) find(ctx context.Context, filter bson.M) ([]domain.LedgerEntry, error) {
	cursor, err := r.entries.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "ts", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %v: %w", err, commons.ErrTransientStore)
	}
	defer cursor.Close(ctx)

	var docs []entryDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode ledger entries: %w", err)
	}

	entries := make([]domain.LedgerEntry, 0, len(docs))
	for _, doc := range docs {
		entry, err := fromEntryDoc(doc)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func timeFilter(since, until time.Time) bson.M {
	window := bson.M{}
	if !since.IsZero() {
		window["$gte"] = since.UTC()
	}
	if !until.IsZero() {
		window["$lte"] = until.UTC()
	}
	if len(window) == 0 {
		return nil
	}
	return window
}
