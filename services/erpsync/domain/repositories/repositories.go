// Package repositories defines the ERP sync context's persistence interfaces.
package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ghuser/stockledger/services/erpsync/domain/models"
)

// QueryOpts carries pagination for list queries.
type QueryOpts struct {
	Limit  int
	Offset int
}

// Filters narrows list queries.
type Filters struct {
	Status models.SyncStatus
	Type   models.SyncType
}

// SyncLogRepository persists sync log entries.
type SyncLogRepository interface {
	// Save inserts or updates an entry.
	Save(ctx context.Context, e *models.Entry) error

	// GetByID fetches an entry scoped to the org.
	// Returns domain.ErrSyncEntryNotFound when absent.
	GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Entry, error)

	// Find lists entries for the org newest-first.
	Find(ctx context.Context, orgID uuid.UUID, f Filters, opts QueryOpts) ([]*models.Entry, int, error)

	// DueForRetry returns failed entries across all orgs whose next_attempt_at
	// is at or before now, oldest-first.
	DueForRetry(ctx context.Context, now time.Time, limit int) ([]*models.Entry, error)

	// LatestDocNo returns the ERP document number from the most recent
	// successful entry of the given type for the entity, or "" when none.
	LatestDocNo(ctx context.Context, entityID uuid.UUID, typ models.SyncType) (string, error)
}
