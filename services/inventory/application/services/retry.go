package services

import (
	"context"
	"errors"
	"time"

	domain "github.com/ghuser/stockledger/services/inventory/domain"
)

const (
	conflictRetries   = 3
	conflictBaseDelay = 25 * time.Millisecond
)

// withConflictRetry re-runs fn when it loses a row-lock race
// (ErrConcurrencyConflict), up to conflictRetries attempts with a short
// linear backoff. The final conflict is surfaced to the caller as a
// transient error.
func withConflictRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 1; attempt <= conflictRetries; attempt++ {
		if err = fn(); !errors.Is(err, domain.ErrConcurrencyConflict) {
			return err
		}
		if attempt < conflictRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * conflictBaseDelay):
			}
		}
	}
	return err
}
