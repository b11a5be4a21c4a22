package domain

import (
	"fmt"
	"time"

	"github.com/api-sage/bridge-ledger/src/internal/commons"
	"github.com/shopspring/decimal"
)

var (
	settlementToleranceMsats = decimal.NewFromInt(10)
	chainTokenTolerance      = decimal.RequireFromString("0.001")
)

// Leg is one side of a double-entry record: the account touched, the amount
// in its native unit, and the conversion snapshot the amount was priced
// under.
type Leg struct {
	Account  Account
	Unit     Unit
	Amount   decimal.Decimal
	Snapshot ConversionSnapshot
}

// Msats re-expresses the leg amount in the canonical settlement unit through
// the leg's own snapshot.
func (l Leg) Msats() (decimal.Decimal, error) {
	return l.Snapshot.Quote.ToMsats(l.Amount, l.Unit)
}

func (l Leg) toleranceMsats() (decimal.Decimal, error) {
	if !l.Unit.ChainToken() {
		return settlementToleranceMsats, nil
	}
	per, err := l.Snapshot.Quote.MsatsPer(l.Unit)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return chainTokenTolerance.Mul(per), nil
}

func (l Leg) validate() error {
	if err := l.Account.Validate(); err != nil {
		return err
	}
	if !l.Unit.Valid() {
		return fmt.Errorf("leg unit %q is not valid", l.Unit)
	}
	if l.Amount.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("leg amount must be greater than zero")
	}
	return nil
}

// LedgerEntry is the system's atomic unit of truth: one balanced double-entry
// record. Entries are created once and never mutated or deleted; corrections
// are posted as new contra entries.
type LedgerEntry struct {
	GroupID       string
	ShortID       string
	CustID        string
	Type          LedgerType
	Timestamp     time.Time
	Description   string
	Debit         Leg
	Credit        Leg
	SourceEventID string
}

// Validate checks the structural fields and the conservation invariant: the
// debit and credit legs, each re-expressed in msats through their own
// snapshot, must agree within the per-unit tolerance.
func (e LedgerEntry) Validate() error {
	if e.GroupID == "" {
		return fmt.Errorf("entry group id is required")
	}
	if e.CustID == "" {
		return fmt.Errorf("entry cust id is required")
	}
	if !e.Type.Valid() {
		return fmt.Errorf("entry ledger type %q is not valid", e.Type)
	}
	if e.Timestamp.IsZero() {
		return fmt.Errorf("entry timestamp is required")
	}
	if err := e.Debit.validate(); err != nil {
		return fmt.Errorf("debit leg: %w", err)
	}
	if err := e.Credit.validate(); err != nil {
		return fmt.Errorf("credit leg: %w", err)
	}
	return e.checkConservation()
}

func (e LedgerEntry) checkConservation() error {
	debitMsats, err := e.Debit.Msats()
	if err != nil {
		return fmt.Errorf("debit leg: %w", err)
	}
	creditMsats, err := e.Credit.Msats()
	if err != nil {
		return fmt.Errorf("credit leg: %w", err)
	}

	tolerance, err := e.Debit.toleranceMsats()
	if err != nil {
		return fmt.Errorf("debit leg: %w", err)
	}
	creditTolerance, err := e.Credit.toleranceMsats()
	if err != nil {
		return fmt.Errorf("credit leg: %w", err)
	}
	if creditTolerance.GreaterThan(tolerance) {
		tolerance = creditTolerance
	}

	diff := debitMsats.Sub(creditMsats).Abs()
	if diff.GreaterThan(tolerance) {
		return fmt.Errorf("entry %s debit %s msats vs credit %s msats (tolerance %s): %w",
			e.GroupID, debitMsats.Round(0), creditMsats.Round(0), tolerance.Round(0), commons.ErrImbalancedEntry)
	}
	return nil
}
