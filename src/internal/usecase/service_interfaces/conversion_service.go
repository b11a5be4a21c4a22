package service_interfaces

import (
	"context"

	"github.com/api-sage/bridge-ledger/src/internal/domain"
	"github.com/shopspring/decimal"
)

// ConversionService is the fee-aware currency calculator. All conversions
// pivot through the msat; the quote is passed explicitly per call.
type ConversionService interface {
	// ConvertForward answers "I have amount of from; what net amount of to
	// results after fees". commons.ErrInsufficientAmount when fees exceed
	// the source.
	ConvertForward(ctx context.Context, amount decimal.Decimal, from, to domain.Unit, quote domain.Quote) (domain.ConversionResult, error)

	// ConvertInverse answers "I want the recipient to net targetNet of to;
	// what source amount of from is required", given that fees are computed
	// on the converted amount.
	ConvertInverse(ctx context.Context, targetNet decimal.Decimal, to, from domain.Unit, quote domain.Quote) (domain.ConversionResult, error)
}
