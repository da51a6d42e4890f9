// Package domain contains the ERP sync bounded context's domain errors.
package domain

import "errors"

// Sentinel errors for the ERP sync domain. Wrap them with fmt.Errorf("%w", ...)
// so callers can match with errors.Is().
var (
	// ErrSyncEntryNotFound is returned when a sync log entry does not exist.
	ErrSyncEntryNotFound = errors.New("sync entry not found")

	// ErrSyncNotRetryable is returned when a retry is requested for an entry
	// that is not in a retryable state (already succeeded, still pending, or
	// permanently failed).
	ErrSyncNotRetryable = errors.New("sync entry not retryable")
)
