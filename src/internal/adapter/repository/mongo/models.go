package mongo

import (
	"fmt"
	"time"

	"github.com/api-sage/bridge-ledger/src/internal/domain"
	"github.com/shopspring/decimal"
)

// Amounts are persisted as strings: exact decimal round-trips, no BSON
// floating point.

type quoteDoc struct {
	TokenAUSD          string    `bson:"token_a_usd"`
	TokenBUSD          string    `bson:"token_b_usd"`
	SettlementAssetUSD string    `bson:"settlement_asset_usd"`
	TokenATokenBRate   string    `bson:"token_a_token_b_rate"`
	FetchTime          time.Time `bson:"fetch_time"`
	Source             string    `bson:"source"`
	Degraded           bool      `bson:"degraded,omitempty"`
}

type snapshotDoc struct {
	TokenA       string    `bson:"token_a"`
	TokenB       string    `bson:"token_b"`
	USD          string    `bson:"usd"`
	Sats         string    `bson:"sats"`
	Msats        string    `bson:"msats"`
	FeeFlatMsats string    `bson:"fee_flat_msats"`
	FeePercent   string    `bson:"fee_percent"`
	Quote        quoteDoc  `bson:"quote"`
	Source       string    `bson:"source"`
	FetchTime    time.Time `bson:"fetch_time"`
}

type legDoc struct {
	AccountName string      `bson:"account_name"`
	AccountSub  string      `bson:"account_sub"`
	AccountType string      `bson:"account_type"`
	Contra      bool        `bson:"contra,omitempty"`
	Unit        string      `bson:"unit"`
	Amount      string      `bson:"amount"`
	Snapshot    snapshotDoc `bson:"snapshot"`
}

type entryDoc struct {
	GroupID       string    `bson:"_id"`
	ShortID       string    `bson:"short_id"`
	CustID        string    `bson:"cust_id"`
	LedgerType    string    `bson:"ledger_type"`
	Timestamp     time.Time `bson:"ts"`
	Description   string    `bson:"description,omitempty"`
	Debit         legDoc    `bson:"debit"`
	Credit        legDoc    `bson:"credit"`
	SourceEventID string    `bson:"source_event_id,omitempty"`
}

type eventDoc struct {
	EventID     string    `bson:"_id"`
	GroupID     string    `bson:"group_id"`
	CustID      string    `bson:"cust_id"`
	Kind        string    `bson:"kind"`
	ReceivedAt  time.Time `bson:"received_at"`
	ProcessedMs *int64    `bson:"processed_ms,omitempty"`
}

func toQuoteDoc(q domain.Quote) quoteDoc {
	return quoteDoc{
		TokenAUSD:          q.TokenAUSD.String(),
		TokenBUSD:          q.TokenBUSD.String(),
		SettlementAssetUSD: q.SettlementAssetUSD.String(),
		TokenATokenBRate:   q.TokenATokenBRate.String(),
		FetchTime:          q.FetchTime,
		Source:             q.Source,
		Degraded:           q.Degraded,
	}
}

func fromQuoteDoc(d quoteDoc) (domain.Quote, error) {
	tokenAUSD, err := parseAmount(d.TokenAUSD, "token_a_usd")
	if err != nil {
		return domain.Quote{}, err
	}
	tokenBUSD, err := parseAmount(d.TokenBUSD, "token_b_usd")
	if err != nil {
		return domain.Quote{}, err
	}
	settlementUSD, err := parseAmount(d.SettlementAssetUSD, "settlement_asset_usd")
	if err != nil {
		return domain.Quote{}, err
	}
	rate, err := parseAmount(d.TokenATokenBRate, "token_a_token_b_rate")
	if err != nil {
		return domain.Quote{}, err
	}
	return domain.Quote{
		TokenAUSD:          tokenAUSD,
		TokenBUSD:          tokenBUSD,
		SettlementAssetUSD: settlementUSD,
		TokenATokenBRate:   rate,
		FetchTime:          d.FetchTime,
		Source:             d.Source,
		Degraded:           d.Degraded,
	}, nil
}

func toSnapshotDoc(s domain.ConversionSnapshot) snapshotDoc {
	return snapshotDoc{
		TokenA:       s.TokenA.String(),
		TokenB:       s.TokenB.String(),
		USD:          s.USD.String(),
		Sats:         s.Sats.String(),
		Msats:        s.Msats.String(),
		FeeFlatMsats: s.FeeFlatMsats.String(),
		FeePercent:   s.FeePercent.String(),
		Quote:        toQuoteDoc(s.Quote),
		Source:       s.Source,
		FetchTime:    s.FetchTime,
	}
}

func fromSnapshotDoc(d snapshotDoc) (domain.ConversionSnapshot, error) {
	quote, err := fromQuoteDoc(d.Quote)
	if err != nil {
		return domain.ConversionSnapshot{}, err
	}

	snapshot := domain.ConversionSnapshot{
		Quote:     quote,
		Source:    d.Source,
		FetchTime: d.FetchTime,
	}
	for _, field := range []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"token_a", d.TokenA, &snapshot.TokenA},
		{"token_b", d.TokenB, &snapshot.TokenB},
		{"usd", d.USD, &snapshot.USD},
		{"sats", d.Sats, &snapshot.Sats},
		{"msats", d.Msats, &snapshot.Msats},
		{"fee_flat_msats", d.FeeFlatMsats, &snapshot.FeeFlatMsats},
		{"fee_percent", d.FeePercent, &snapshot.FeePercent},
	} {
		value, err := parseAmount(field.raw, field.name)
		if err != nil {
			return domain.ConversionSnapshot{}, err
		}
		*field.dst = value
	}
	return snapshot, nil
}

func toLegDoc(l domain.Leg) legDoc {
	return legDoc{
		AccountName: l.Account.Name,
		AccountSub:  l.Account.Sub,
		AccountType: string(l.Account.Type),
		Contra:      l.Account.Contra,
		Unit:        string(l.Unit),
		Amount:      l.Amount.String(),
		Snapshot:    toSnapshotDoc(l.Snapshot),
	}
}

func fromLegDoc(d legDoc) (domain.Leg, error) {
	amount, err := parseAmount(d.Amount, "amount")
	if err != nil {
		return domain.Leg{}, err
	}
	snapshot, err := fromSnapshotDoc(d.Snapshot)
	if err != nil {
		return domain.Leg{}, err
	}
	return domain.Leg{
		Account: domain.Account{
			Name:   d.AccountName,
			Sub:    d.AccountSub,
			Type:   domain.AccountType(d.AccountType),
			Contra: d.Contra,
		},
		Unit:     domain.Unit(d.Unit),
		Amount:   amount,
		Snapshot: snapshot,
	}, nil
}

func toEntryDoc(e domain.LedgerEntry) entryDoc {
	return entryDoc{
		GroupID:       e.GroupID,
		ShortID:       e.ShortID,
		CustID:        e.CustID,
		LedgerType:    e.Type.Code(),
		Timestamp:     e.Timestamp.UTC(),
		Description:   e.Description,
		Debit:         toLegDoc(e.Debit),
		Credit:        toLegDoc(e.Credit),
		SourceEventID: e.SourceEventID,
	}
}

func fromEntryDoc(d entryDoc) (domain.LedgerEntry, error) {
	ledgerType, err := domain.ParseLedgerType(d.LedgerType)
	if err != nil {
		return domain.LedgerEntry{}, err
	}
	debit, err := fromLegDoc(d.Debit)
	if err != nil {
		return domain.LedgerEntry{}, fmt.Errorf("debit leg: %w", err)
	}
	credit, err := fromLegDoc(d.Credit)
	if err != nil {
		return domain.LedgerEntry{}, fmt.Errorf("credit leg: %w", err)
	}
	return domain.LedgerEntry{
		GroupID:       d.GroupID,
		ShortID:       d.ShortID,
		CustID:        d.CustID,
		Type:          ledgerType,
		Timestamp:     d.Timestamp.UTC(),
		Description:   d.Description,
		Debit:         debit,
		Credit:        credit,
		SourceEventID: d.SourceEventID,
	}, nil
}

func parseAmount(raw, field string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse %s %q: %w", field, raw, err)
	}
	return value, nil
}
