package rates

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/api-sage/bridge-ledger/src/internal/commons"
	"github.com/api-sage/bridge-ledger/src/internal/domain"
	"github.com/api-sage/bridge-ledger/src/internal/logger"
	"golang.org/x/sync/singleflight"
)

// Source is a network-backed rate feed. Out of core scope; anything that can
// produce a Quote plugs in here.
type Source interface {
	FetchLatest(ctx context.Context) (domain.Quote, error)
	FetchNearest(ctx context.Context, t time.Time) (domain.Quote, error)
}

// Provider serves quotes to the calculator and pipeline. Concurrent callers
// share one in-flight fetch; when the source fails, the last known quote is
// served instead, flagged degraded.
type Provider struct {
	source Source
	group  singleflight.Group

	mu        sync.RWMutex
	lastKnown domain.Quote
	hasLast   bool
}

func NewProvider(source Source) *Provider {
	return &Provider{source: source}
}

func (p *Provider) Latest(ctx context.Context) (domain.Quote, error) {
	value, err, _ := p.group.Do("latest", func() (any, error) {
		return p.source.FetchLatest(ctx)
	})
	if err != nil {
		return p.fallback(err)
	}

	quote := value.(domain.Quote)
	if err := quote.Validate(); err != nil {
		return p.fallback(err)
	}

	p.mu.Lock()
	p.lastKnown = quote
	p.hasLast = true
	p.mu.Unlock()

	return quote, nil
}

func (p *Provider) Nearest(ctx context.Context, t time.Time) (domain.Quote, error) {
	quote, err := p.source.FetchNearest(ctx, t)
	if err != nil {
		return p.fallback(err)
	}
	if err := quote.Validate(); err != nil {
		return p.fallback(err)
	}
	return quote, nil
}

func (p *Provider) fallback(cause error) (domain.Quote, error) {
	p.mu.RLock()
	quote, ok := p.lastKnown, p.hasLast
	p.mu.RUnlock()

	if !ok {
		return domain.Quote{}, fmt.Errorf("quote fetch failed with no cached fallback: %v: %w", cause, commons.ErrExchangeRateUnavailable)
	}

	logger.Error("quote fetch failed, serving last known quote", cause, logger.Fields{
		"source":    quote.Source,
		"fetchTime": quote.FetchTime,
	})
	quote.Degraded = true
	return quote, nil
}

// StaticSource serves one fixed quote. Used by tests and local runs.
type StaticSource struct {
	Quote domain.Quote
	Err   error
}

func (s StaticSource) FetchLatest(ctx context.Context) (domain.Quote, error) {
	return s.Quote, s.Err
}

func (s StaticSource) FetchNearest(ctx context.Context, t time.Time) (domain.Quote, error) {
	return s.Quote, s.Err
}
