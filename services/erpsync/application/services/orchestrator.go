// Package services contains the ERP sync application layer: the orchestrator
// that mirrors local inventory documents into AutoCount.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ghuser/stockledger/pkg/erp"
	"github.com/ghuser/stockledger/pkg/logger"
	syncdomain "github.com/ghuser/stockledger/services/erpsync/domain"
	"github.com/ghuser/stockledger/services/erpsync/domain/models"
	"github.com/ghuser/stockledger/services/erpsync/domain/repositories"
)

// CancelPurchaseOrderPayload is the frozen payload of a purchase_order_cancel
// entry. The ERP document number is resolved from the matching create entry
// at dispatch time, not at enqueue time, because the create may still be in
// flight when the cancel is enqueued.
type CancelPurchaseOrderPayload struct {
	PONumber string `json:"poNumber"`
}

// ResultHook is invoked after every dispatch attempt settles, with the entry
// in its post-dispatch state. Used to mirror sync status back onto the
// inventory ledger. Hooks must not block.
type ResultHook func(ctx context.Context, entry *models.Entry)

// Options tune the orchestrator's retry behavior.
type Options struct {
	MaxRetries  int           // attempts before an entry is permanently failed
	BackoffBase time.Duration // delay after the first failure
	BackoffCap  time.Duration // upper bound for the exponential backoff
	Workers     int           // concurrent dispatches in RetryAllFailed
	RetryBatch  int           // max due entries fetched per RetryAllFailed run
}

// Orchestrator owns the sync log and is the only caller of the ERP client.
// Local inventory state is never rolled back on sync failure; a failed call
// only produces a failed sync log entry.
type Orchestrator struct {
	syncLog repositories.SyncLogRepository
	client  erp.Client
	log     logger.Logger
	opts    Options
	hook    ResultHook
}

// NewOrchestrator wires an Orchestrator. Zero option fields get conservative
// defaults.
func NewOrchestrator(syncLog repositories.SyncLogRepository, client erp.Client, log logger.Logger, opts Options) *Orchestrator {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 5
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = 30 * time.Second
	}
	if opts.BackoffCap <= 0 {
		opts.BackoffCap = 30 * time.Minute
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.RetryBatch <= 0 {
		opts.RetryBatch = 100
	}
	return &Orchestrator{syncLog: syncLog, client: client, log: log, opts: opts}
}

// SetResultHook registers the post-dispatch callback. Must be called before
// any Enqueue or retry runs.
func (o *Orchestrator) SetResultHook(hook ResultHook) {
	o.hook = hook
}

// Enqueue freezes the call parameters into a pending sync log entry and
// dispatches it once. The returned entry reflects the outcome of that first
// attempt; failures stay in the log for the retry loop.
func (o *Orchestrator) Enqueue(ctx context.Context, orgID uuid.UUID, typ models.SyncType, entityID uuid.UUID, params any) (*models.Entry, error) {
	payload, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal sync payload: %w", err)
	}

	entry := models.NewEntry(orgID, typ, entityID, payload)
	if err := o.syncLog.Save(ctx, entry); err != nil {
		return nil, fmt.Errorf("save sync entry: %w", err)
	}

	o.dispatch(ctx, entry)
	return entry, nil
}

// Retry re-dispatches a single failed entry on operator request, ignoring the
// backoff gate. Retrying an entry that already succeeded is a no-op: the entry
// is returned as-is, with no second ERP call. Pending and permanently failed
// entries are rejected with ErrSyncNotRetryable.
func (o *Orchestrator) Retry(ctx context.Context, orgID, id uuid.UUID) (*models.Entry, error) {
	entry, err := o.syncLog.GetByID(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if entry.Status == models.SyncSuccess {
		return entry, nil
	}
	if !entry.Status.Retryable() {
		return nil, fmt.Errorf("%w: entry %s is %s", syncdomain.ErrSyncNotRetryable, id, entry.Status)
	}

	o.dispatch(ctx, entry)
	return entry, nil
}

// RetryAllFailed dispatches every failed entry whose backoff window has
// elapsed, bounded by opts.Workers concurrent calls. Returns the number of
// entries attempted. Called periodically by the worker.
func (o *Orchestrator) RetryAllFailed(ctx context.Context) (int, error) {
	due, err := o.syncLog.DueForRetry(ctx, time.Now().UTC(), o.opts.RetryBatch)
	if err != nil {
		return 0, fmt.Errorf("list due entries: %w", err)
	}
	if len(due) == 0 {
		return 0, nil
	}

	sem := make(chan struct{}, o.opts.Workers)
	var wg sync.WaitGroup
	for _, entry := range due {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			wg.Wait()
			return len(due), ctx.Err()
		}
		wg.Add(1)
		go func(e *models.Entry) {
			defer wg.Done()
			defer func() { <-sem }()
			o.dispatch(ctx, e)
		}(entry)
	}
	wg.Wait()
	return len(due), nil
}

// GetByID fetches a single sync log entry scoped to the org.
func (o *Orchestrator) GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Entry, error) {
	return o.syncLog.GetByID(ctx, orgID, id)
}

// List returns sync log entries for the org, newest-first.
func (o *Orchestrator) List(ctx context.Context, orgID uuid.UUID, f repositories.Filters, opts repositories.QueryOpts) ([]*models.Entry, int, error) {
	return o.syncLog.Find(ctx, orgID, f, opts)
}

// dispatch performs one ERP call for the entry and records the outcome.
// If a previous attempt already yielded a document number, the call is
// short-circuited: the ERP accepted the document even though the response was
// lost, so re-posting would duplicate it.
func (o *Orchestrator) dispatch(ctx context.Context, entry *models.Entry) {
	if entry.AutocountDocNo != "" {
		entry.MarkSuccess(entry.AutocountDocNo)
		o.settle(ctx, entry)
		return
	}

	docNo, err := o.call(ctx, entry)
	switch {
	case err == nil:
		entry.MarkSuccess(docNo)
	case errors.Is(err, erp.ErrItemNotFound):
		o.log.WarnContext(ctx, "sync permanently failed: item missing in erp",
			"entry_id", entry.ID, "type", entry.Type, "error", err)
		entry.MarkPermanentlyFailed(err)
	case entry.RetryCount+1 >= o.opts.MaxRetries:
		o.log.ErrorContext(ctx, "sync retries exhausted",
			"entry_id", entry.ID, "type", entry.Type, "retries", entry.RetryCount+1, "error", err)
		entry.MarkPermanentlyFailed(err)
	default:
		next := time.Now().UTC().Add(o.backoff(entry.RetryCount))
		o.log.WarnContext(ctx, "sync failed, will retry",
			"entry_id", entry.ID, "type", entry.Type, "retry_count", entry.RetryCount+1,
			"next_attempt_at", next, "error", err)
		entry.MarkFailed(err, next)
	}

	o.settle(ctx, entry)
}

func (o *Orchestrator) settle(ctx context.Context, entry *models.Entry) {
	if err := o.syncLog.Save(ctx, entry); err != nil {
		o.log.ErrorContext(ctx, "save sync entry after dispatch", "entry_id", entry.ID, "error", err)
	}
	if o.hook != nil {
		o.hook(ctx, entry)
	}
}

// call unmarshals the frozen payload and invokes the matching ERP RPC.
func (o *Orchestrator) call(ctx context.Context, entry *models.Entry) (string, error) {
	switch entry.Type {
	case models.SyncItemCreate:
		var p erp.CreateItemParams
		if err := json.Unmarshal(entry.Payload, &p); err != nil {
			return "", fmt.Errorf("unmarshal item create payload: %w", err)
		}
		return o.client.CreateItem(ctx, p)

	case models.SyncStockAdjustment:
		var p erp.StockAdjustmentParams
		if err := json.Unmarshal(entry.Payload, &p); err != nil {
			return "", fmt.Errorf("unmarshal stock adjustment payload: %w", err)
		}
		return o.client.PostStockAdjustment(ctx, p)

	case models.SyncGoodsReceipt:
		var p erp.GoodsReceiptParams
		if err := json.Unmarshal(entry.Payload, &p); err != nil {
			return "", fmt.Errorf("unmarshal goods receipt payload: %w", err)
		}
		return o.client.PostGoodsReceipt(ctx, p)

	case models.SyncPurchaseOrderCreate:
		var p erp.CreatePurchaseOrderParams
		if err := json.Unmarshal(entry.Payload, &p); err != nil {
			return "", fmt.Errorf("unmarshal purchase order payload: %w", err)
		}
		return o.client.CreatePurchaseOrder(ctx, p)

	case models.SyncPurchaseOrderCancel:
		var p CancelPurchaseOrderPayload
		if err := json.Unmarshal(entry.Payload, &p); err != nil {
			return "", fmt.Errorf("unmarshal cancel payload: %w", err)
		}
		docNo, err := o.syncLog.LatestDocNo(ctx, entry.EntityID, models.SyncPurchaseOrderCreate)
		if err != nil {
			return "", fmt.Errorf("resolve po doc no: %w", err)
		}
		if docNo == "" {
			// The PO never reached the ERP; there is nothing to void remotely.
			return "-", nil
		}
		if err := o.client.CancelPurchaseOrder(ctx, p.PONumber, docNo); err != nil {
			return "", err
		}
		return docNo, nil

	default:
		return "", fmt.Errorf("unknown sync type %q", entry.Type)
	}
}

// backoff returns base * 2^retryCount bounded by the cap.
func (o *Orchestrator) backoff(retryCount int) time.Duration {
	d := time.Duration(float64(o.opts.BackoffBase) * math.Pow(2, float64(retryCount)))
	if d > o.opts.BackoffCap || d <= 0 {
		return o.opts.BackoffCap
	}
	return d
}
