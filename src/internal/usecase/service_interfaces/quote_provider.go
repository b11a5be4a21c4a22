package service_interfaces

import (
	"context"
	"time"

	"github.com/api-sage/bridge-ledger/src/internal/domain"
)

// QuoteProvider serves exchange-rate quotes. A degraded quote (served from
// cache after a provider failure) is flagged on the quote itself.
type QuoteProvider interface {
	Latest(ctx context.Context) (domain.Quote, error)
	Nearest(ctx context.Context, t time.Time) (domain.Quote, error)
}
