package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ConversionSnapshot freezes one priced amount in every supported unit at
// the moment it was quoted. It is never refreshed after creation, which is
// what keeps historical entries auditable after market rates move.
type ConversionSnapshot struct {
	TokenA decimal.Decimal
	TokenB decimal.Decimal
	USD    decimal.Decimal
	Sats   decimal.Decimal
	Msats  decimal.Decimal

	FeeFlatMsats decimal.Decimal
	FeePercent   decimal.Decimal

	Quote     Quote
	Source    string
	FetchTime time.Time
}

// NewConversionSnapshot prices msats into every supported unit under the
// given quote. Chain tokens round to 3 decimal places, sats and msats to
// whole integers.
func NewConversionSnapshot(msats decimal.Decimal, quote Quote, feeFlatMsats, feePercent decimal.Decimal) (ConversionSnapshot, error) {
	tokenA, err := quote.FromMsats(msats, UnitTokenA)
	if err != nil {
		return ConversionSnapshot{}, err
	}
	tokenB, err := quote.FromMsats(msats, UnitTokenB)
	if err != nil {
		return ConversionSnapshot{}, err
	}
	usd, err := quote.FromMsats(msats, UnitUSD)
	if err != nil {
		return ConversionSnapshot{}, err
	}

	return ConversionSnapshot{
		TokenA:       tokenA.Round(3),
		TokenB:       tokenB.Round(3),
		USD:          usd.Round(4),
		Sats:         msats.Div(msatsPerSat).Round(0),
		Msats:        msats.Round(0),
		FeeFlatMsats: feeFlatMsats,
		FeePercent:   feePercent,
		Quote:        quote,
		Source:       quote.Source,
		FetchTime:    quote.FetchTime,
	}, nil
}

// AmountIn returns the frozen amount expressed in the requested unit.
func (s ConversionSnapshot) AmountIn(unit Unit) decimal.Decimal {
	switch unit {
	case UnitTokenA:
		return s.TokenA
	case UnitTokenB:
		return s.TokenB
	case UnitUSD:
		return s.USD
	case UnitSats:
		return s.Sats
	default:
		return s.Msats
	}
}
