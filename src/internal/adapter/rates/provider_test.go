package rates_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/api-sage/bridge-ledger/src/internal/adapter/rates"
	"github.com/api-sage/bridge-ledger/src/internal/commons"
	"github.com/api-sage/bridge-ledger/src/internal/domain"
	"github.com/shopspring/decimal"
)

func providerQuote() domain.Quote {
	return domain.Quote{
		TokenAUSD:          decimal.RequireFromString("0.05078236"),
		TokenBUSD:          decimal.RequireFromString("0.2"),
		SettlementAssetUSD: decimal.RequireFromString("20000"),
		TokenATokenBRate:   decimal.RequireFromString("0.2539118"),
		FetchTime:          time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC),
		Source:             "feed",
	}
}

type switchableSource struct {
	mu    sync.Mutex
	quote domain.Quote
	err   error
}

func (s *switchableSource) FetchLatest(ctx context.Context) (domain.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quote, s.err
}

func (s *switchableSource) FetchNearest(ctx context.Context, at time.Time) (domain.Quote, error) {
	return s.FetchLatest(ctx)
}

func TestProviderServesLiveQuote(t *testing.T) {
	provider := rates.NewProvider(&switchableSource{quote: providerQuote()})

	quote, err := provider.Latest(context.Background())
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if quote.Degraded {
		t.Fatal("live quote must not be degraded")
	}
	if quote.Source != "feed" {
		t.Fatalf("expected source feed, got %s", quote.Source)
	}
}

func TestProviderFallsBackToLastKnownQuote(t *testing.T) {
	source := &switchableSource{quote: providerQuote()}
	provider := rates.NewProvider(source)

	if _, err := provider.Latest(context.Background()); err != nil {
		t.Fatalf("priming fetch: expected nil error, got %v", err)
	}

	source.mu.Lock()
	source.err = errors.New("feed down")
	source.mu.Unlock()

	quote, err := provider.Latest(context.Background())
	if err != nil {
		t.Fatalf("expected cached fallback, got %v", err)
	}
	if !quote.Degraded {
		t.Fatal("fallback quote must be flagged degraded")
	}
	if quote.Source != "feed" {
		t.Fatalf("expected the cached quote's source, got %s", quote.Source)
	}
}

func TestProviderWithNoCacheReportsUnavailable(t *testing.T) {
	provider := rates.NewProvider(&switchableSource{err: errors.New("feed down")})

	_, err := provider.Latest(context.Background())
	if !errors.Is(err, commons.ErrExchangeRateUnavailable) {
		t.Fatalf("expected ErrExchangeRateUnavailable, got %v", err)
	}
}

func TestProviderTreatsZeroRatesAsFailure(t *testing.T) {
	bad := providerQuote()
	bad.TokenAUSD = decimal.Zero

	provider := rates.NewProvider(&switchableSource{quote: bad})
	_, err := provider.Latest(context.Background())
	if !errors.Is(err, commons.ErrExchangeRateUnavailable) {
		t.Fatalf("expected ErrExchangeRateUnavailable for zero rate, got %v", err)
	}
}
