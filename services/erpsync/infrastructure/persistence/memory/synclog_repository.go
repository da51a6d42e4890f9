// Package memory provides an in-memory SyncLogRepository for tests and local
// development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	syncdomain "github.com/ghuser/stockledger/services/erpsync/domain"
	"github.com/ghuser/stockledger/services/erpsync/domain/models"
	"github.com/ghuser/stockledger/services/erpsync/domain/repositories"
)

// SyncLogRepository is a mutex-guarded, map-backed SyncLogRepository.
type SyncLogRepository struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*models.Entry
}

var _ repositories.SyncLogRepository = (*SyncLogRepository)(nil)

// NewSyncLogRepository returns an empty in-memory repository.
func NewSyncLogRepository() *SyncLogRepository {
	return &SyncLogRepository{entries: make(map[uuid.UUID]*models.Entry)}
}

// Save inserts or replaces an entry.
func (r *SyncLogRepository) Save(_ context.Context, e *models.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *e
	r.entries[e.ID] = &clone
	return nil
}

// GetByID fetches an entry scoped to the org.
func (r *SyncLogRepository) GetByID(_ context.Context, orgID, id uuid.UUID) (*models.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[id]
	if !ok || entry.OrgID != orgID {
		return nil, fmt.Errorf("%w: %s", syncdomain.ErrSyncEntryNotFound, id)
	}
	clone := *entry
	return &clone, nil
}

// Find lists entries for the org newest-first.
func (r *SyncLogRepository) Find(_ context.Context, orgID uuid.UUID, f repositories.Filters, opts repositories.QueryOpts) ([]*models.Entry, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*models.Entry
	for _, entry := range r.entries {
		if entry.OrgID != orgID {
			continue
		}
		if f.Status != "" && entry.Status != f.Status {
			continue
		}
		if f.Type != "" && entry.Type != f.Type {
			continue
		}
		clone := *entry
		matched = append(matched, &clone)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	if opts.Offset >= total {
		return nil, total, nil
	}
	matched = matched[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(matched) {
		matched = matched[:opts.Limit]
	}
	return matched, total, nil
}

// DueForRetry returns failed entries due at or before now, oldest-first.
func (r *SyncLogRepository) DueForRetry(_ context.Context, now time.Time, limit int) ([]*models.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var due []*models.Entry
	for _, entry := range r.entries {
		if entry.Status != models.SyncFailed || entry.NextAttemptAt.After(now) {
			continue
		}
		clone := *entry
		due = append(due, &clone)
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].NextAttemptAt.Before(due[j].NextAttemptAt)
	})
	if limit > 0 && limit < len(due) {
		due = due[:limit]
	}
	return due, nil
}

// LatestDocNo returns the doc number of the most recent successful entry of
// the given type for the entity, or "" when none exists.
func (r *SyncLogRepository) LatestDocNo(_ context.Context, entityID uuid.UUID, typ models.SyncType) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		docNo  string
		latest time.Time
	)
	for _, entry := range r.entries {
		if entry.EntityID != entityID || entry.Type != typ {
			continue
		}
		if entry.Status != models.SyncSuccess || entry.AutocountDocNo == "" {
			continue
		}
		if entry.UpdatedAt.After(latest) {
			latest = entry.UpdatedAt
			docNo = entry.AutocountDocNo
		}
	}
	return docNo, nil
}
