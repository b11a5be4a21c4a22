package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/api-sage/bridge-ledger/src/internal/commons"
	"github.com/api-sage/bridge-ledger/src/internal/domain"
	"github.com/api-sage/bridge-ledger/src/internal/usecase/services"
	"github.com/shopspring/decimal"
)

// testQuote prices TOKA at 253.9118 sats and TOKB at 1000 sats exactly, so
// every expected value below can be worked out by hand.
func testQuote() domain.Quote {
	return domain.Quote{
		TokenAUSD:          decimal.RequireFromString("0.05078236"),
		TokenBUSD:          decimal.RequireFromString("0.2"),
		SettlementAssetUSD: decimal.RequireFromString("20000"),
		TokenATokenBRate:   decimal.RequireFromString("0.2539118"),
		FetchTime:          time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC),
		Source:             "test",
	}
}

func testConversionService() *services.ConversionService {
	return services.NewConversionService(services.ConversionConfig{
		FeePercent:                1.5,
		FlatFeeSats:               50,
		NotificationFeeSats:       100,
		NotificationThresholdSats: 5000,
		MinimalReceiptMsats:       1000,
	})
}

func TestConvertForwardTokenToSats(t *testing.T) {
	svc := testConversionService()

	result, err := svc.ConvertForward(context.Background(), decimal.NewFromInt(10), domain.UnitTokenA, domain.UnitSats, testQuote())
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	// 10 TOKA = 2539118 msats; fee = 50000 + 1.5% = 88087 msats; net floors
	// to whole sats; the 31 msat remainder collapses to the minimal receipt.
	if got := result.ToConvert.Sats.String(); got != "2539" {
		t.Fatalf("expected toConvert 2539 sats, got %s", got)
	}
	if got := result.Fee.Msats.String(); got != "88087" {
		t.Fatalf("expected fee 88087 msats, got %s", got)
	}
	if got := result.Fee.Sats.String(); got != "88" {
		t.Fatalf("expected fee 88 sats, got %s", got)
	}
	if got := result.NetToReceive.Sats.String(); got != "2451" {
		t.Fatalf("expected net 2451 sats, got %s", got)
	}
	if got := result.Change.Msats.String(); got != "1000" {
		t.Fatalf("expected minimal receipt change of 1000 msats, got %s", got)
	}
}

func TestConvertForwardAddsNotificationFeeAboveThreshold(t *testing.T) {
	svc := testConversionService()

	result, err := svc.ConvertForward(context.Background(), decimal.NewFromInt(25), domain.UnitTokenA, domain.UnitSats, testQuote())
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	// 25 TOKA = 6347795 msats, above the 5000-sat threshold, so the fee is
	// flat + notification + 1.5%.
	if got := result.Fee.Msats.String(); got != "245217" {
		t.Fatalf("expected fee 245217 msats, got %s", got)
	}
	if got := result.NetToReceive.Sats.String(); got != "6102" {
		t.Fatalf("expected net 6102 sats, got %s", got)
	}
}

func TestConvertForwardUSDAtThresholdHasNoNotificationFee(t *testing.T) {
	svc := testConversionService()

	// 1 USD = exactly 5000 sats under the test quote; the threshold is
	// strictly greater-than.
	result, err := svc.ConvertForward(context.Background(), decimal.NewFromInt(1), domain.UnitUSD, domain.UnitSats, testQuote())
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if got := result.Fee.Msats.String(); got != "125000" {
		t.Fatalf("expected fee 125000 msats, got %s", got)
	}
	if got := result.NetToReceive.Sats.String(); got != "4875" {
		t.Fatalf("expected net 4875 sats, got %s", got)
	}
}

func TestConvertForwardInsufficientAmount(t *testing.T) {
	svc := testConversionService()

	_, err := svc.ConvertForward(context.Background(), decimal.RequireFromString("0.1"), domain.UnitTokenA, domain.UnitSats, testQuote())
	if !errors.Is(err, commons.ErrInsufficientAmount) {
		t.Fatalf("expected ErrInsufficientAmount, got %v", err)
	}
}

func TestConvertForwardRejectsZeroAmount(t *testing.T) {
	svc := testConversionService()

	_, err := svc.ConvertForward(context.Background(), decimal.Zero, domain.UnitTokenA, domain.UnitSats, testQuote())
	var verr *commons.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestConvertForwardUnavailableQuote(t *testing.T) {
	svc := testConversionService()

	quote := testQuote()
	quote.TokenAUSD = decimal.Zero

	_, err := svc.ConvertForward(context.Background(), decimal.NewFromInt(10), domain.UnitTokenA, domain.UnitSats, quote)
	if !errors.Is(err, commons.ErrExchangeRateUnavailable) {
		t.Fatalf("expected ErrExchangeRateUnavailable, got %v", err)
	}
}

func TestConvertForwardPropagatesDegradedFlag(t *testing.T) {
	svc := testConversionService()

	quote := testQuote()
	quote.Degraded = true

	result, err := svc.ConvertForward(context.Background(), decimal.NewFromInt(10), domain.UnitTokenA, domain.UnitSats, quote)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !result.Degraded {
		t.Fatal("expected degraded result from degraded quote")
	}
}

func TestConvertInverseSolvesSourceAmount(t *testing.T) {
	svc := testConversionService()

	// Solving for a 2451-sat net from TOKA must land on the same 10-token
	// source that the forward direction started from.
	result, err := svc.ConvertInverse(context.Background(), decimal.NewFromInt(2451), domain.UnitSats, domain.UnitTokenA, testQuote())
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if got := result.ToConvert.TokenA.String(); got != "10" {
		t.Fatalf("expected source 10 TOKA, got %s", got)
	}
	if got := result.NetToReceive.Sats.String(); got != "2451" {
		t.Fatalf("expected net 2451 sats, got %s", got)
	}
}

func TestConvertInverseCrossingNotificationThreshold(t *testing.T) {
	svc := testConversionService()

	// A 6000-sat target pushes the rounded-up TOKB source over the 5000-sat
	// threshold, so the solve must re-run with the notification fee included.
	result, err := svc.ConvertInverse(context.Background(), decimal.NewFromInt(6000), domain.UnitSats, domain.UnitTokenB, testQuote())
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if got := result.ToConvert.TokenB.String(); got != "6.244" {
		t.Fatalf("expected source 6.244 TOKB, got %s", got)
	}
	if got := result.Fee.Msats.String(); got != "243660" {
		t.Fatalf("expected fee 243660 msats, got %s", got)
	}
	if result.NetToReceive.Sats.LessThan(decimal.NewFromInt(6000)) {
		t.Fatalf("inverse source nets %s sats, below the 6000 target", result.NetToReceive.Sats)
	}
}

func TestConvertInverseNeverUndershoots(t *testing.T) {
	svc := testConversionService()
	quote := testQuote()

	targets := []int64{500, 1234, 2451, 4999, 5001, 25000}
	for _, target := range targets {
		result, err := svc.ConvertInverse(context.Background(), decimal.NewFromInt(target), domain.UnitSats, domain.UnitTokenA, quote)
		if err != nil {
			t.Fatalf("target %d: expected nil error, got %v", target, err)
		}
		// Within one sat of the target, never materially under it.
		if result.NetToReceive.Sats.LessThan(decimal.NewFromInt(target - 1)) {
			t.Fatalf("target %d: source nets only %s sats", target, result.NetToReceive.Sats)
		}
	}
}
