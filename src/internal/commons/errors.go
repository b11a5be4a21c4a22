package commons

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the ledger core. Retryability is decided
// here, explicitly, rather than by callers branching on error chains.
var (
	// ErrRecordNotFound is returned on exact-key lookups with no match.
	ErrRecordNotFound = errors.New("record not found")
	// ErrDuplicateEntry reports an idempotent no-op: an entry with the same
	// group id already exists. Callers treat it as success.
	ErrDuplicateEntry = errors.New("duplicate ledger entry")
	// ErrImbalancedEntry reports a conservation-invariant violation. Never
	// retried; almost certainly a defect.
	ErrImbalancedEntry = errors.New("imbalanced ledger entry")
	// ErrInsufficientAmount reports an economically infeasible conversion
	// (fees exceed the source amount).
	ErrInsufficientAmount = errors.New("insufficient amount after fees")
	// ErrExchangeRateUnavailable reports a zero or missing quote rate.
	ErrExchangeRateUnavailable = errors.New("exchange rate unavailable")
	// ErrLockTimeout reports a bounded lock acquisition that ran out of
	// waiting budget.
	ErrLockTimeout = errors.New("lock acquisition timed out")
	// ErrTransientStore reports a persistence failure worth retrying.
	ErrTransientStore = errors.New("transient store error")
)

// ValidationError reports malformed input. Non-retryable, rejected
// immediately.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// IsRetryable reports whether the error is a transient condition the
// pipeline's bounded backoff policy may retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrLockTimeout) ||
		errors.Is(err, ErrTransientStore) ||
		errors.Is(err, ErrExchangeRateUnavailable)
}

// IsDuplicate reports the idempotent no-op outcome.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicateEntry)
}
