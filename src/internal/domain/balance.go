package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BalanceLine is one ledger entry's signed contribution to an account
// balance, with the running total after applying it, for audit display.
type BalanceLine struct {
	GroupID      string
	ShortID      string
	Type         LedgerType
	Timestamp    time.Time
	Description  string
	Unit         Unit
	Amount       decimal.Decimal // signed per the account's sign rule
	RunningTotal decimal.Decimal // per-unit running total after this line
	Msats        decimal.Decimal // signed msat equivalent via the leg snapshot
}

// BalanceReport is a point-in-time, multi-currency balance for one account.
type BalanceReport struct {
	Account Account
	AsOf    time.Time
	// Totals holds the signed balance per currency unit.
	Totals map[Unit]decimal.Decimal
	// TotalMsats is every line re-expressed in msats through its own
	// snapshot and summed.
	TotalMsats decimal.Decimal
	Lines      []BalanceLine
}
