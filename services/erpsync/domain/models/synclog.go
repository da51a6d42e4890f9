// Package models contains the ERP sync bounded context's domain models.
package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SyncStatus is the lifecycle state of a sync log entry.
type SyncStatus string

const (
	// SyncPending means the call has not completed yet.
	SyncPending SyncStatus = "pending"
	// SyncSuccess means the ERP accepted the call and returned a document number.
	SyncSuccess SyncStatus = "success"
	// SyncFailed means the call failed but will be retried.
	SyncFailed SyncStatus = "failed"
	// SyncPermanentlyFailed means retries are exhausted or the failure is not
	// recoverable; operator intervention is required.
	SyncPermanentlyFailed SyncStatus = "permanently_failed"
)

// Retryable reports whether an entry in this status may be retried.
func (s SyncStatus) Retryable() bool {
	return s == SyncFailed
}

// SyncType identifies which ERP call an entry mirrors.
type SyncType string

const (
	SyncItemCreate          SyncType = "item_create"
	SyncStockAdjustment     SyncType = "stock_adjustment"
	SyncGoodsReceipt        SyncType = "goods_receipt"
	SyncPurchaseOrderCreate SyncType = "purchase_order_create"
	SyncPurchaseOrderCancel SyncType = "purchase_order_cancel"
)

// Entry is one mirrored ERP call. Payload is the frozen, marshalled call
// parameters captured at enqueue time, so a retry replays exactly the call
// that first failed regardless of later local edits.
type Entry struct {
	ID             uuid.UUID       `json:"id"`
	OrgID          uuid.UUID       `json:"org_id"`
	Type           SyncType        `json:"type"`
	Status         SyncStatus      `json:"status"`
	EntityID       uuid.UUID       `json:"entity_id"`
	Payload        json.RawMessage `json:"payload"`
	AutocountDocNo string          `json:"autocount_doc_no,omitempty"`
	LastError      string          `json:"last_error,omitempty"`
	RetryCount     int             `json:"retry_count"`
	NextAttemptAt  time.Time       `json:"next_attempt_at"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// NewEntry creates a pending Entry for the given call. entityID is the local
// aggregate the call mirrors (item ID, movement ID or order ID).
func NewEntry(orgID uuid.UUID, typ SyncType, entityID uuid.UUID, payload json.RawMessage) *Entry {
	now := time.Now().UTC()
	return &Entry{
		ID:            uuid.New(),
		OrgID:         orgID,
		Type:          typ,
		Status:        SyncPending,
		EntityID:      entityID,
		Payload:       payload,
		NextAttemptAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// MarkSuccess records the ERP document number and closes the entry.
func (e *Entry) MarkSuccess(docNo string) {
	e.Status = SyncSuccess
	e.AutocountDocNo = docNo
	e.LastError = ""
	e.UpdatedAt = time.Now().UTC()
}

// MarkFailed records a retryable failure. nextAttemptAt gates the next
// automatic retry; manual retries ignore it.
func (e *Entry) MarkFailed(callErr error, nextAttemptAt time.Time) {
	e.Status = SyncFailed
	e.LastError = callErr.Error()
	e.RetryCount++
	e.NextAttemptAt = nextAttemptAt
	e.UpdatedAt = time.Now().UTC()
}

// MarkPermanentlyFailed takes the entry out of the retry loop for good.
func (e *Entry) MarkPermanentlyFailed(callErr error) {
	e.Status = SyncPermanentlyFailed
	e.LastError = callErr.Error()
	e.UpdatedAt = time.Now().UTC()
}
