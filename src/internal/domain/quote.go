package domain

import (
	"fmt"
	"time"

	"github.com/api-sage/bridge-ledger/src/internal/commons"
	"github.com/shopspring/decimal"
)

var (
	msatsPerSat = decimal.NewFromInt(1000)
	satsPerBTC  = decimal.NewFromInt(100_000_000)
	msatsPerBTC = satsPerBTC.Mul(msatsPerSat)
	decimalOne  = decimal.NewFromInt(1)
)

// Quote is a snapshot of exchange rates across the supported units at a
// point in time. SettlementAssetUSD prices the settlement asset (one BTC
// worth of msats) in USD.
type Quote struct {
	TokenAUSD          decimal.Decimal
	TokenBUSD          decimal.Decimal
	SettlementAssetUSD decimal.Decimal
	TokenATokenBRate   decimal.Decimal
	FetchTime          time.Time
	Source             string
	// Degraded marks a quote served from the last-known cache after the
	// live provider failed.
	Degraded bool
}

// MsatsPer returns the msat value of one unit of the given currency.
func (q Quote) MsatsPer(unit Unit) (decimal.Decimal, error) {
	switch unit {
	case UnitMsats:
		return decimalOne, nil
	case UnitSats:
		return msatsPerSat, nil
	case UnitUSD:
		if q.SettlementAssetUSD.IsZero() {
			return decimal.Decimal{}, fmt.Errorf("settlement asset rate missing from quote %q: %w", q.Source, commons.ErrExchangeRateUnavailable)
		}
		return msatsPerBTC.Div(q.SettlementAssetUSD), nil
	case UnitTokenA:
		return q.tokenMsats(q.TokenAUSD, "token A")
	case UnitTokenB:
		return q.tokenMsats(q.TokenBUSD, "token B")
	default:
		return decimal.Decimal{}, fmt.Errorf("unknown currency unit %q", unit)
	}
}

func (q Quote) tokenMsats(tokenUSD decimal.Decimal, label string) (decimal.Decimal, error) {
	if tokenUSD.IsZero() || q.SettlementAssetUSD.IsZero() {
		return decimal.Decimal{}, fmt.Errorf("%s rate missing from quote %q: %w", label, q.Source, commons.ErrExchangeRateUnavailable)
	}
	return tokenUSD.Mul(msatsPerBTC).Div(q.SettlementAssetUSD), nil
}

// ToMsats re-expresses amount, given in unit, as an exact msat value.
func (q Quote) ToMsats(amount decimal.Decimal, unit Unit) (decimal.Decimal, error) {
	per, err := q.MsatsPer(unit)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return amount.Mul(per), nil
}

// FromMsats re-expresses an exact msat value in unit, unrounded.
func (q Quote) FromMsats(msats decimal.Decimal, unit Unit) (decimal.Decimal, error) {
	per, err := q.MsatsPer(unit)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return msats.Div(per), nil
}

func (q Quote) Validate() error {
	if q.TokenAUSD.IsZero() || q.TokenBUSD.IsZero() || q.SettlementAssetUSD.IsZero() {
		return fmt.Errorf("quote %q has a zero rate: %w", q.Source, commons.ErrExchangeRateUnavailable)
	}
	return nil
}
