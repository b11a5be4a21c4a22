package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/api-sage/bridge-ledger/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/bridge-ledger/src/internal/commons"
	"github.com/api-sage/bridge-ledger/src/internal/domain"
	"github.com/api-sage/bridge-ledger/src/internal/logger"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const uniqueViolation = "23505"

// Verify that LedgerRepository implements the repo interface
var _ repo_interfaces.LedgerRepository = (*LedgerRepository)(nil)

type LedgerRepository struct {
	db *sql.DB
}

func NewLedgerRepository(db *sql.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

const entryColumns = `
group_id,
short_id,
cust_id,
ledger_type,
ts,
description,
debit_account_name,
debit_account_sub,
debit_account_type,
debit_contra,
debit_unit,
debit_amount,
debit_snapshot,
credit_account_name,
credit_account_sub,
credit_account_type,
credit_contra,
credit_unit,
credit_amount,
credit_snapshot,
source_event_id`

func (r *LedgerRepository) Save(ctx context.Context, entry domain.LedgerEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	debitSnapshot, err := json.Marshal(entry.Debit.Snapshot)
	if err != nil {
		return fmt.Errorf("marshal debit snapshot: %w", err)
	}
	creditSnapshot, err := json.Marshal(entry.Credit.Snapshot)
	if err != nil {
		return fmt.Errorf("marshal credit snapshot: %w", err)
	}

	const query = `
INSERT INTO ledger_entries (` + entryColumns + `
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21
)`

	if _, err := r.db.ExecContext(
		ctx,
		query,
		entry.GroupID,
		entry.ShortID,
		entry.CustID,
		entry.Type.Code(),
		entry.Timestamp.UTC(),
		entry.Description,
		entry.Debit.Account.Name,
		entry.Debit.Account.Sub,
		string(entry.Debit.Account.Type),
		entry.Debit.Account.Contra,
		string(entry.Debit.Unit),
		entry.Debit.Amount,
		debitSnapshot,
		entry.Credit.Account.Name,
		entry.Credit.Account.Sub,
		string(entry.Credit.Account.Type),
		entry.Credit.Account.Contra,
		string(entry.Credit.Unit),
		entry.Credit.Amount,
		creditSnapshot,
		entry.SourceEventID,
	); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
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
	const query = `
SELECT ` + entryColumns + `
FROM ledger_entries
WHERE group_id = $1`

	entry, err := scanEntry(r.db.QueryRowContext(ctx, query, groupID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.LedgerEntry{}, commons.ErrRecordNotFound
		}
		return domain.LedgerEntry{}, fmt.Errorf("find ledger entry %s: %v: %w", groupID, err, commons.ErrTransientStore)
	}
	return entry, nil
}

func (r *LedgerRepository) ListByAccount(ctx context.Context, name, sub string, since, until time.Time) ([]domain.LedgerEntry, error) {
	const query = `
SELECT ` + entryColumns + `
FROM ledger_entries
WHERE ((debit_account_name = $1 AND debit_account_sub = $2)
	OR (credit_account_name = $1 AND credit_account_sub = $2))
	AND ($3::timestamptz IS NULL OR ts >= $3)
	AND ($4::timestamptz IS NULL OR ts <= $4)
ORDER BY ts ASC`

	rows, err := r.db.QueryContext(ctx, query, name, sub, nullableTime(since), nullableTime(until))
	if err != nil {
		return nil, fmt.Errorf("list entries for account %s:%s: %v: %w", name, sub, err, commons.ErrTransientStore)
	}
	defer rows.Close()

	return collectEntries(rows)
}

func (r *LedgerRepository) ListByCustomer(ctx context.Context, custID string, since time.Time) ([]domain.LedgerEntry, error) {
	const query = `
SELECT ` + entryColumns + `
FROM ledger_entries
WHERE cust_id = $1
	AND ($2::timestamptz IS NULL OR ts >= $2)
ORDER BY ts ASC`

	rows, err := r.db.QueryContext(ctx, query, custID, nullableTime(since))
	if err != nil {
		return nil, fmt.Errorf("list entries for customer %s: %v: %w", custID, err, commons.ErrTransientStore)
	}
	defer rows.Close()

	return collectEntries(rows)
}

func (r *LedgerRepository) ListAccounts(ctx context.Context) ([]domain.AccountRef, error) {
	const query = `
SELECT DISTINCT name, sub, account_type FROM (
	SELECT debit_account_name AS name, debit_account_sub AS sub, debit_account_type AS account_type FROM ledger_entries
	UNION
	SELECT credit_account_name, credit_account_sub, credit_account_type FROM ledger_entries
) accounts
ORDER BY name, sub`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %v: %w", err, commons.ErrTransientStore)
	}
	defer rows.Close()

	var refs []domain.AccountRef
	for rows.Next() {
		var ref domain.AccountRef
		var accountType string
		if err := rows.Scan(&ref.Name, &ref.Sub, &accountType); err != nil {
			return nil, fmt.Errorf("scan account ref: %w", err)
		}
		ref.Type = domain.AccountType(accountType)
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (domain.LedgerEntry, error) {
	var (
		entry          domain.LedgerEntry
		ledgerType     string
		timestamp      time.Time
		debitType      string
		debitUnit      string
		debitAmount    decimal.Decimal
		debitSnapshot  []byte
		creditType     string
		creditUnit     string
		creditAmount   decimal.Decimal
		creditSnapshot []byte
	)

	if err := row.Scan(
		&entry.GroupID,
		&entry.ShortID,
		&entry.CustID,
		&ledgerType,
		&timestamp,
		&entry.Description,
		&entry.Debit.Account.Name,
		&entry.Debit.Account.Sub,
		&debitType,
		&entry.Debit.Account.Contra,
		&debitUnit,
		&debitAmount,
		&debitSnapshot,
		&entry.Credit.Account.Name,
		&entry.Credit.Account.Sub,
		&creditType,
		&entry.Credit.Account.Contra,
		&creditUnit,
		&creditAmount,
		&creditSnapshot,
		&entry.SourceEventID,
	); err != nil {
		return domain.LedgerEntry{}, err
	}

	parsedType, err := domain.ParseLedgerType(ledgerType)
	if err != nil {
		return domain.LedgerEntry{}, err
	}
	entry.Type = parsedType
	entry.Timestamp = timestamp.UTC()

	entry.Debit.Account.Type = domain.AccountType(debitType)
	entry.Debit.Unit = domain.Unit(debitUnit)
	entry.Debit.Amount = debitAmount
	if err := json.Unmarshal(debitSnapshot, &entry.Debit.Snapshot); err != nil {
		return domain.LedgerEntry{}, fmt.Errorf("unmarshal debit snapshot: %w", err)
	}

	entry.Credit.Account.Type = domain.AccountType(creditType)
	entry.Credit.Unit = domain.Unit(creditUnit)
	entry.Credit.Amount = creditAmount
	if err := json.Unmarshal(creditSnapshot, &entry.Credit.Snapshot); err != nil {
		return domain.LedgerEntry{}, fmt.Errorf("unmarshal credit snapshot: %w", err)
	}

	return entry, nil
}

func collectEntries(rows *sql.Rows) ([]domain.LedgerEntry, error) {
	var entries []domain.LedgerEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func nullableTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
