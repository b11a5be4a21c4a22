package services

import (
	"context"
	"fmt"

	"github.com/api-sage/bridge-ledger/src/internal/commons"
	"github.com/api-sage/bridge-ledger/src/internal/domain"
	"github.com/api-sage/bridge-ledger/src/internal/logger"
	"github.com/api-sage/bridge-ledger/src/internal/usecase/service_interfaces"
	"github.com/shopspring/decimal"
)

// Verify that ConversionService implements the service_interfaces.ConversionService interface
var _ service_interfaces.ConversionService = (*ConversionService)(nil)

const maxInverseIterations = 8

var (
	decimalThousand = decimal.NewFromInt(1000)
	decimalHundred  = decimal.NewFromInt(100)
	// Change below this collapses to the minimal receipt amount so the
	// counterparty always gets an observable receipt.
	changeFloorMsats = decimal.NewFromInt(1100)
)

type ConversionConfig struct {
	// FeePercent is the percentage fee, e.g. 1.5 for 1.5%.
	FeePercent float64
	// FlatFeeSats is the flat fee per conversion, settlement side.
	FlatFeeSats int64
	// NotificationFeeSats applies only when the gross source amount
	// exceeds NotificationThresholdSats.
	NotificationFeeSats       int64
	NotificationThresholdSats int64
	// MinimalReceiptMsats replaces sub-receipt change amounts.
	MinimalReceiptMsats int64
}

type ConversionService struct {
	feePercent          decimal.Decimal // as a fraction, e.g. 0.015
	flatFeeMsats        decimal.Decimal
	notificationMsats   decimal.Decimal
	thresholdMsats      decimal.Decimal
	minimalReceiptMsats decimal.Decimal
}

func NewConversionService(cfg ConversionConfig) *ConversionService {
	return &ConversionService{
		feePercent:          decimal.NewFromFloat(cfg.FeePercent).Div(decimalHundred),
		flatFeeMsats:        decimal.NewFromInt(cfg.FlatFeeSats).Mul(decimalThousand),
		notificationMsats:   decimal.NewFromInt(cfg.NotificationFeeSats).Mul(decimalThousand),
		thresholdMsats:      decimal.NewFromInt(cfg.NotificationThresholdSats).Mul(decimalThousand),
		minimalReceiptMsats: decimal.NewFromInt(cfg.MinimalReceiptMsats),
	}
}

func (s *ConversionService) ConvertForward(ctx context.Context, amount decimal.Decimal, from, to domain.Unit, quote domain.Quote) (domain.ConversionResult, error) {
	if err := validateConversionInput(amount, from, to, quote); err != nil {
		return domain.ConversionResult{}, err
	}

	toConvertMsats, err := quote.ToMsats(amount, from)
	if err != nil {
		return domain.ConversionResult{}, err
	}

	feeMsats := s.feeOn(toConvertMsats).Round(0)

	netRawMsats := toConvertMsats.Sub(feeMsats)
	if netRawMsats.LessThanOrEqual(decimal.Zero) {
		return domain.ConversionResult{}, fmt.Errorf(
			"source %s %s yields %s msats against %s msats of fees: %w",
			amount, from, toConvertMsats.Round(0), feeMsats, commons.ErrInsufficientAmount)
	}

	// Net is what the counterparty actually receives, so it rounds down to
	// the target unit's precision; the remainder is change.
	netTarget, err := roundDownForUnit(netRawMsats, to, quote)
	if err != nil {
		return domain.ConversionResult{}, err
	}
	netMsats, err := quote.ToMsats(netTarget, to)
	if err != nil {
		return domain.ConversionResult{}, err
	}

	changeMsats := toConvertMsats.Sub(feeMsats).Sub(netMsats)
	if changeMsats.IsPositive() && changeMsats.LessThan(changeFloorMsats) {
		changeMsats = s.minimalReceiptMsats
	}

	result, err := s.buildResult(toConvertMsats, netMsats, feeMsats, changeMsats, from, to, quote)
	if err != nil {
		return domain.ConversionResult{}, err
	}

	logger.Info("conversion forward", logger.Fields{
		"from":     from,
		"to":       to,
		"amount":   amount,
		"netMsats": netMsats.Round(0),
		"feeMsats": feeMsats,
		"quoteSrc": quote.Source,
		"degraded": quote.Degraded,
	})
	return result, nil
}

func (s *ConversionService) ConvertInverse(ctx context.Context, targetNet decimal.Decimal, to, from domain.Unit, quote domain.Quote) (domain.ConversionResult, error) {
	if err := validateConversionInput(targetNet, to, from, quote); err != nil {
		return domain.ConversionResult{}, err
	}

	targetMsats, err := quote.ToMsats(targetNet, to)
	if err != nil {
		return domain.ConversionResult{}, err
	}

	// The fee is computed on the converted amount, not the original, so
	// solve gross = target + fee(gross) by fixed-point iteration. The fee
	// map is a small contraction; eight rounds are ample.
	grossMsats := s.iterateGross(targetMsats, decimal.Zero)

	source, err := roundUpForUnit(grossMsats, from, quote)
	if err != nil {
		return domain.ConversionResult{}, err
	}

	// Discontinuous adjustment: the notification fee applies only when the
	// pre-notification source amount exceeds the threshold. It changes the
	// fee base, so the iteration runs once more with it included.
	sourceMsats, err := quote.ToMsats(source, from)
	if err != nil {
		return domain.ConversionResult{}, err
	}
	if sourceMsats.GreaterThan(s.thresholdMsats) {
		grossMsats = s.iterateGross(targetMsats, s.notificationMsats)
		source, err = roundUpForUnit(grossMsats, from, quote)
		if err != nil {
			return domain.ConversionResult{}, err
		}
	}

	// Re-verify by running the whole computation forward once more.
	result, err := s.ConvertForward(ctx, source, from, to, quote)
	if err != nil {
		return domain.ConversionResult{}, err
	}
	if shortfall(result, targetMsats, to, quote) {
		source, err = bumpOneStep(source, from)
		if err != nil {
			return domain.ConversionResult{}, err
		}
		result, err = s.ConvertForward(ctx, source, from, to, quote)
		if err != nil {
			return domain.ConversionResult{}, err
		}
		if shortfall(result, targetMsats, to, quote) {
			return domain.ConversionResult{}, fmt.Errorf(
				"inverse conversion for %s %s did not converge on a sufficient source amount", targetNet, to)
		}
	}

	return result, nil
}

func (s *ConversionService) iterateGross(targetMsats, extraFlatMsats decimal.Decimal) decimal.Decimal {
	flat := s.flatFeeMsats.Add(extraFlatMsats)
	gross := targetMsats
	for i := 0; i < maxInverseIterations; i++ {
		next := targetMsats.Add(flat).Add(s.feePercent.Mul(gross))
		if next.Sub(gross).Abs().LessThan(decimal.New(1, 0)) {
			return next
		}
		gross = next
	}
	return gross
}

func (s *ConversionService) feeOn(toConvertMsats decimal.Decimal) decimal.Decimal {
	fee := s.flatFeeMsats.Add(s.feePercent.Mul(toConvertMsats))
	if toConvertMsats.GreaterThan(s.thresholdMsats) {
		fee = fee.Add(s.notificationMsats)
	}
	return fee
}

func (s *ConversionService) buildResult(toConvertMsats, netMsats, feeMsats, changeMsats decimal.Decimal, from, to domain.Unit, quote domain.Quote) (domain.ConversionResult, error) {
	toConvert, err := domain.NewConversionSnapshot(toConvertMsats, quote, s.flatFeeMsats, s.feePercent)
	if err != nil {
		return domain.ConversionResult{}, err
	}
	net, err := domain.NewConversionSnapshot(netMsats, quote, s.flatFeeMsats, s.feePercent)
	if err != nil {
		return domain.ConversionResult{}, err
	}
	fee, err := domain.NewConversionSnapshot(feeMsats, quote, s.flatFeeMsats, s.feePercent)
	if err != nil {
		return domain.ConversionResult{}, err
	}
	change, err := domain.NewConversionSnapshot(changeMsats, quote, s.flatFeeMsats, s.feePercent)
	if err != nil {
		return domain.ConversionResult{}, err
	}

	return domain.ConversionResult{
		ToConvert:    toConvert,
		NetToReceive: net,
		Fee:          fee,
		Change:       change,
		SourceUnit:   from,
		TargetUnit:   to,
		Degraded:     quote.Degraded,
	}, nil
}

func validateConversionInput(amount decimal.Decimal, a, b domain.Unit, quote domain.Quote) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return commons.NewValidationError("amount", "must be greater than zero")
	}
	if !a.Valid() {
		return commons.NewValidationError("unit", fmt.Sprintf("unknown unit %q", a))
	}
	if !b.Valid() {
		return commons.NewValidationError("unit", fmt.Sprintf("unknown unit %q", b))
	}
	return quote.Validate()
}

// roundDownForUnit floors msats at the unit's precision: 3 decimal places
// for chain tokens, whole sats for SATS, whole msats otherwise.
func roundDownForUnit(msats decimal.Decimal, unit domain.Unit, quote domain.Quote) (decimal.Decimal, error) {
	value, err := quote.FromMsats(msats, unit)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return value.RoundDown(unitPrecision(unit)), nil
}

func roundUpForUnit(msats decimal.Decimal, unit domain.Unit, quote domain.Quote) (decimal.Decimal, error) {
	value, err := quote.FromMsats(msats, unit)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return value.RoundUp(unitPrecision(unit)), nil
}

func unitPrecision(unit domain.Unit) int32 {
	switch {
	case unit.ChainToken():
		return 3
	case unit == domain.UnitUSD:
		return 4
	default:
		return 0
	}
}

func shortfall(result domain.ConversionResult, targetMsats decimal.Decimal, to domain.Unit, quote domain.Quote) bool {
	tolerance := decimalThousand // 1 sat
	if to.ChainToken() {
		per, err := quote.MsatsPer(to)
		if err == nil {
			tolerance = decimal.RequireFromString("0.001").Mul(per)
		}
	}
	return result.NetToReceive.Msats.LessThan(targetMsats.Sub(tolerance))
}

func bumpOneStep(amount decimal.Decimal, unit domain.Unit) (decimal.Decimal, error) {
	return amount.Add(decimal.New(1, -unitPrecision(unit))), nil
}
