package services

import (
	"context"
	"errors"
	"time"

	"github.com/api-sage/bridge-ledger/src/internal/adapter/locks"
	"github.com/api-sage/bridge-ledger/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/bridge-ledger/src/internal/commons"
	"github.com/api-sage/bridge-ledger/src/internal/domain"
	"github.com/api-sage/bridge-ledger/src/internal/logger"
	"github.com/api-sage/bridge-ledger/src/internal/usecase/service_interfaces"
	"github.com/shopspring/decimal"
)

// Verify that PipelineService implements the service_interfaces.PipelineService interface
var _ service_interfaces.PipelineService = (*PipelineService)(nil)

const finalizeTimeout = 10 * time.Second

type PipelineConfig struct {
	// RetryBaseDelay scales linearly with the attempt number.
	RetryBaseDelay   time.Duration
	RetryMaxAttempts int

	// CustomerLimitSats caps the value a customer may convert within
	// CustomerLimitWindow; zero disables the limit.
	CustomerLimitSats   int64
	CustomerLimitWindow time.Duration
}

// PipelineService runs every inbound tracked event through dedup, locking,
// dispatch and posting, and always finalizes with a completion record.
type PipelineService struct {
	ledgerRepo  repo_interfaces.LedgerRepository
	eventRepo   repo_interfaces.EventRepository
	coordinator *locks.Coordinator
	quotes      service_interfaces.QuoteProvider
	conversion  service_interfaces.ConversionService
	balances    service_interfaces.BalanceService
	publisher   service_interfaces.CompletionPublisher
	cfg         PipelineConfig
}

func NewPipelineService(
	ledgerRepo repo_interfaces.LedgerRepository,
	eventRepo repo_interfaces.EventRepository,
	coordinator *locks.Coordinator,
	quotes service_interfaces.QuoteProvider,
	conversion service_interfaces.ConversionService,
	balances service_interfaces.BalanceService,
	publisher service_interfaces.CompletionPublisher,
	cfg PipelineConfig,
) *PipelineService {
	if cfg.RetryMaxAttempts < 1 {
		cfg.RetryMaxAttempts = 1
	}
	return &PipelineService{
		ledgerRepo:  ledgerRepo,
		eventRepo:   eventRepo,
		coordinator: coordinator,
		quotes:      quotes,
		conversion:  conversion,
		balances:    balances,
		publisher:   publisher,
		cfg:         cfg,
	}
}

// Process handles one tracked event end to end. Whatever path the event
// takes, the deferred finalizer stamps the processing duration, re-validates
// any posted entries and publishes the completion record.
func (s *PipelineService) Process(ctx context.Context, event domain.TrackedEvent) (record service_interfaces.CompletionRecord, err error) {
	start := time.Now()
	record = service_interfaces.CompletionRecord{
		EventID: event.ID,
		CustID:  event.CustID,
	}
	if event.Payload != nil {
		record.Kind = string(event.Payload.Kind())
		record.GroupID = event.GroupID()
	}

	defer func() {
		s.finalize(event, &record, start)
	}()

	if verr := event.Validate(); verr != nil {
		record.Outcome = service_interfaces.OutcomeFailedTerminal
		record.Error = verr.Error()
		return record, verr
	}

	if rerr := s.eventRepo.RecordReceived(ctx, event); rerr != nil {
		// Receipt tracking is best effort; the ledger's idempotency covers a
		// lost receipt row.
		logger.Error("pipeline record received failed", rerr, logger.Fields{"eventID": event.ID})
	}

	// Fast-path dedup before taking any locks.
	if s.alreadyPosted(ctx, record.GroupID) {
		record.Outcome = service_interfaces.OutcomeDuplicate
		logger.Info("duplicate event, nothing to do", logger.Fields{
			"eventID": event.ID,
			"groupID": record.GroupID,
		})
		return record, nil
	}

	for attempt := 1; ; attempt++ {
		record.Attempts = attempt

		outcome, entryIDs, degraded, aerr := s.attempt(ctx, event)
		if aerr == nil {
			record.Outcome = outcome
			record.EntryGroupIDs = entryIDs
			record.Degraded = degraded
			return record, nil
		}

		if !commons.IsRetryable(aerr) || attempt >= s.cfg.RetryMaxAttempts {
			record.Outcome = service_interfaces.OutcomeFailedTerminal
			record.Error = aerr.Error()
			s.logFailure(event, aerr)
			return record, aerr
		}

		record.Outcome = service_interfaces.OutcomeFailedRetryable
		record.Error = aerr.Error()

		delay := time.Duration(attempt) * s.cfg.RetryBaseDelay
		logger.Info("pipeline attempt failed, retrying", logger.Fields{
			"eventID": event.ID,
			"attempt": attempt,
			"delay":   delay.String(),
			"reason":  aerr.Error(),
		})
		select {
		case <-ctx.Done():
			record.Outcome = service_interfaces.OutcomeFailedTerminal
			record.Error = ctx.Err().Error()
			return record, ctx.Err()
		case <-time.After(delay):
		}
	}
}

// attempt is one locked pass over the event: re-check dedup under the lock,
// fetch a quote, enforce the customer limit, dispatch and post.
func (s *PipelineService) attempt(ctx context.Context, event domain.TrackedEvent) (service_interfaces.PipelineOutcome, []string, bool, error) {
	release, err := s.coordinator.AcquireBoth(ctx, event.GroupID(), event.CustID)
	if err != nil {
		return "", nil, false, err
	}
	defer release()

	// A concurrent worker may have posted the entry while this one waited on
	// the lock.
	if s.alreadyPosted(ctx, event.GroupID()) {
		return service_interfaces.OutcomeDuplicate, nil, false, nil
	}

	quote, err := s.quotes.Latest(ctx)
	if err != nil {
		return "", nil, false, err
	}

	limited, err := s.overCustomerLimit(ctx, event)
	if err != nil {
		return "", nil, quote.Degraded, err
	}
	if limited {
		logger.Info("customer conversion limit reached, skipping event", logger.Fields{
			"eventID": event.ID,
			"custID":  event.CustID,
		})
		return service_interfaces.OutcomeSkipped, nil, quote.Degraded, nil
	}

	entries, err := s.dispatch(ctx, event, quote)
	if err != nil {
		return "", nil, quote.Degraded, err
	}
	if len(entries) == 0 {
		return service_interfaces.OutcomeSkipped, nil, quote.Degraded, nil
	}

	entryIDs := make([]string, 0, len(entries))
	for _, entry := range entries {
		if serr := s.ledgerRepo.Save(ctx, entry); serr != nil && !commons.IsDuplicate(serr) {
			return "", entryIDs, quote.Degraded, serr
		}
		entryIDs = append(entryIDs, entry.GroupID)
	}

	return service_interfaces.OutcomeLedgerCreated, entryIDs, quote.Degraded, nil
}

// alreadyPosted reports whether the event's primary entry already exists. A
// store error here falls through to the locked path, which rechecks.
func (s *PipelineService) alreadyPosted(ctx context.Context, groupID string) bool {
	if groupID == "" {
		return false
	}
	_, err := s.ledgerRepo.FindByGroupID(ctx, groupID)
	if err == nil {
		return true
	}
	if !errors.Is(err, commons.ErrRecordNotFound) {
		logger.Error("pipeline dedup lookup failed", err, logger.Fields{"groupID": groupID})
	}
	return false
}

// overCustomerLimit applies the sliding-window conversion cap. Only
// conversion-bearing kinds count against it.
func (s *PipelineService) overCustomerLimit(ctx context.Context, event domain.TrackedEvent) (bool, error) {
	if s.cfg.CustomerLimitSats <= 0 {
		return false, nil
	}
	switch event.Payload.Kind() {
	case domain.EventKindChainTransfer, domain.EventKindInvoice:
	default:
		return false, nil
	}

	converted, err := s.balances.ConvertedInWindow(ctx, event.CustID, s.cfg.CustomerLimitWindow)
	if err != nil {
		return false, err
	}
	limitMsats := decimal.NewFromInt(s.cfg.CustomerLimitSats).Mul(decimal.NewFromInt(1000))
	return converted.GreaterThanOrEqual(limitMsats), nil
}

// finalize always runs, even on panic-free early returns and cancelled
// contexts: stamp the processing duration, re-validate what was posted, and
// publish the completion record.
func (s *PipelineService) finalize(event domain.TrackedEvent, record *service_interfaces.CompletionRecord, start time.Time) {
	duration := time.Since(start)
	record.DurationMs = duration.Milliseconds()

	ctx, cancel := context.WithTimeout(context.Background(), finalizeTimeout)
	defer cancel()

	if event.ID != "" {
		if err := s.eventRepo.StampProcessed(ctx, event.ID, duration); err != nil {
			logger.Error("pipeline stamp processed failed", err, logger.Fields{"eventID": event.ID})
		}
	}

	s.sanityCheck(ctx, record)

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, event.ID, *record); err != nil {
			logger.Error("completion record publish failed", err, logger.Fields{
				"eventID": event.ID,
				"outcome": record.Outcome,
			})
		}
	}

	logger.Info("pipeline event completed", logger.Fields{
		"eventID":    event.ID,
		"outcome":    record.Outcome,
		"attempts":   record.Attempts,
		"durationMs": record.DurationMs,
		"entries":    len(record.EntryGroupIDs),
	})
}

// sanityCheck reloads every entry this run posted and re-validates it. A
// failure here means corrupted ledger state and is logged with everything an
// operator needs.
func (s *PipelineService) sanityCheck(ctx context.Context, record *service_interfaces.CompletionRecord) {
	for _, groupID := range record.EntryGroupIDs {
		entry, err := s.ledgerRepo.FindByGroupID(ctx, groupID)
		if err != nil {
			logger.Error("sanity check: posted entry not readable", err, logger.Fields{"groupID": groupID})
			continue
		}
		if err := entry.Validate(); err != nil {
			logger.Error("sanity check: posted entry fails validation", err, logger.Fields{
				"groupID": groupID,
				"entry":   logger.SanitizePayload(entry),
			})
		}
	}
}

func (s *PipelineService) logFailure(event domain.TrackedEvent, err error) {
	if errors.Is(err, commons.ErrImbalancedEntry) {
		logger.Error("invariant violation: imbalanced ledger entry", err, logger.Fields{
			"eventID": event.ID,
			"custID":  event.CustID,
			"payload": logger.SanitizePayload(event.Payload),
		})
		return
	}
	logger.Error("pipeline event failed terminally", err, logger.Fields{
		"eventID": event.ID,
		"custID":  event.CustID,
		"kind":    eventKind(event),
	})
}

func eventKind(event domain.TrackedEvent) string {
	if event.Payload == nil {
		return ""
	}
	return string(event.Payload.Kind())
}

// UnprocessedEventIDs lists events received before the cutoff that never got
// their processing stamp; after a crash these are the re-delivery candidates.
func (s *PipelineService) UnprocessedEventIDs(ctx context.Context, receivedBefore time.Time) ([]string, error) {
	return s.eventRepo.ListUnstamped(ctx, receivedBefore)
}
