// Package postgres implements the ERP sync repositories against PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ghuser/stockledger/pkg/database"
	syncdomain "github.com/ghuser/stockledger/services/erpsync/domain"
	"github.com/ghuser/stockledger/services/erpsync/domain/models"
	"github.com/ghuser/stockledger/services/erpsync/domain/repositories"
)

// SyncLogRepository implements repositories.SyncLogRepository against PostgreSQL.
type SyncLogRepository struct {
	db *database.Database
}

var _ repositories.SyncLogRepository = (*SyncLogRepository)(nil)

// NewSyncLogRepository returns a SyncLogRepository backed by the given
// connection pool.
func NewSyncLogRepository(db *database.Database) *SyncLogRepository {
	return &SyncLogRepository{db: db}
}

const upsertEntrySQL = `
INSERT INTO sync_log (id, org_id, sync_type, status, entity_id, payload,
                      autocount_doc_no, last_error, retry_count, next_attempt_at,
                      created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (id) DO UPDATE SET
    status = EXCLUDED.status,
    autocount_doc_no = EXCLUDED.autocount_doc_no,
    last_error = EXCLUDED.last_error,
    retry_count = EXCLUDED.retry_count,
    next_attempt_at = EXCLUDED.next_attempt_at,
    updated_at = EXCLUDED.updated_at`

// Save inserts a new entry or updates the mutable fields of an existing one.
// The payload is write-once; updates never touch it.
func (r *SyncLogRepository) Save(ctx context.Context, e *models.Entry) error {
	_, err := r.db.DB().ExecContext(ctx, upsertEntrySQL,
		e.ID, e.OrgID, string(e.Type), string(e.Status), e.EntityID, []byte(e.Payload),
		nullString(e.AutocountDocNo), nullString(e.LastError), e.RetryCount,
		e.NextAttemptAt, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save sync entry: %w", err)
	}
	return nil
}

const selectEntryColumns = `id, org_id, sync_type, status, entity_id, payload,
       autocount_doc_no, last_error, retry_count, next_attempt_at, created_at, updated_at`

// GetByID fetches an entry scoped to the org.
// Returns ErrSyncEntryNotFound when absent.
func (r *SyncLogRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Entry, error) {
	row := r.db.DB().QueryRowContext(ctx,
		`SELECT `+selectEntryColumns+` FROM sync_log WHERE id = $1 AND org_id = $2`, id, orgID)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", syncdomain.ErrSyncEntryNotFound, id)
		}
		return nil, fmt.Errorf("query sync entry: %w", err)
	}
	return entry, nil
}

// Find lists entries for the org newest-first with optional filters.
func (r *SyncLogRepository) Find(ctx context.Context, orgID uuid.UUID, f repositories.Filters, opts repositories.QueryOpts) ([]*models.Entry, int, error) {
	where := []string{"org_id = $1"}
	args := []any{orgID}

	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.Type != "" {
		args = append(args, string(f.Type))
		where = append(where, fmt.Sprintf("sync_type = $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.db.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sync_log WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count sync entries: %w", err)
	}

	args = append(args, opts.Limit, opts.Offset)
	query := fmt.Sprintf(`SELECT %s FROM sync_log WHERE %s
		ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		selectEntryColumns, cond, len(args)-1, len(args))

	rows, err := r.db.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query sync entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan sync entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate sync entries: %w", err)
	}
	return entries, total, nil
}

// DueForRetry returns failed entries whose next_attempt_at is at or before
// now, oldest-first, across all orgs.
func (r *SyncLogRepository) DueForRetry(ctx context.Context, now time.Time, limit int) ([]*models.Entry, error) {
	rows, err := r.db.DB().QueryContext(ctx,
		`SELECT `+selectEntryColumns+` FROM sync_log
		 WHERE status = 'failed' AND next_attempt_at <= $1
		 ORDER BY next_attempt_at, id LIMIT $2`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("query due entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan due entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate due entries: %w", err)
	}
	return entries, nil
}

// LatestDocNo returns the ERP document number from the most recent successful
// entry of the given type for the entity, or "" when none exists.
func (r *SyncLogRepository) LatestDocNo(ctx context.Context, entityID uuid.UUID, typ models.SyncType) (string, error) {
	var docNo string
	err := r.db.DB().QueryRowContext(ctx,
		`SELECT autocount_doc_no FROM sync_log
		 WHERE entity_id = $1 AND sync_type = $2 AND status = 'success'
		   AND autocount_doc_no IS NOT NULL
		 ORDER BY updated_at DESC LIMIT 1`, entityID, string(typ)).Scan(&docNo)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("query latest doc no: %w", err)
	}
	return docNo, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*models.Entry, error) {
	var (
		entry     models.Entry
		syncType  string
		status    string
		payload   []byte
		docNo     sql.NullString
		lastError sql.NullString
	)
	if err := row.Scan(
		&entry.ID, &entry.OrgID, &syncType, &status, &entry.EntityID, &payload,
		&docNo, &lastError, &entry.RetryCount, &entry.NextAttemptAt,
		&entry.CreatedAt, &entry.UpdatedAt,
	); err != nil {
		return nil, err
	}
	entry.Type = models.SyncType(syncType)
	entry.Status = models.SyncStatus(status)
	entry.Payload = payload
	entry.AutocountDocNo = docNo.String
	entry.LastError = lastError.String
	return &entry, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
