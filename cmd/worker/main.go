package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/ghuser/stockledger/pkg/app"
	"github.com/ghuser/stockledger/pkg/cache"
	"github.com/ghuser/stockledger/pkg/config"
	"github.com/ghuser/stockledger/pkg/database"
	"github.com/ghuser/stockledger/pkg/erp"
	"github.com/ghuser/stockledger/pkg/events"
	"github.com/ghuser/stockledger/pkg/logger"
	"github.com/ghuser/stockledger/pkg/telemetry"
	"github.com/ghuser/stockledger/pkg/workflows"
	syncsvcs "github.com/ghuser/stockledger/services/erpsync/application/services"
	syncmodels "github.com/ghuser/stockledger/services/erpsync/domain/models"
	erpsyncpg "github.com/ghuser/stockledger/services/erpsync/infrastructure/persistence/postgres"
	invsvcs "github.com/ghuser/stockledger/services/inventory/application/services"
	invworkflows "github.com/ghuser/stockledger/services/inventory/application/workflows"
	invevents "github.com/ghuser/stockledger/services/inventory/domain/events"
	invmodels "github.com/ghuser/stockledger/services/inventory/domain/models"
	invpg "github.com/ghuser/stockledger/services/inventory/infrastructure/persistence/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := config.ValidateForProduction(cfg); err != nil {
		slog.Error("production config validation failed", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg)

	ctx := context.Background()

	otelShutdown, _, err := telemetry.Setup(ctx, cfg)
	if err != nil {
		log.Error("failed to setup otel", "error", err)
		os.Exit(1)
	}
	defer otelShutdown(ctx) //nolint:errcheck

	if err := telemetry.SetupSentry(cfg); err != nil {
		log.Warn("failed to setup sentry, continuing without crash reporting", "error", err)
	}
	defer telemetry.SentryFlush()

	pool, err := database.NewPool(ctx, cfg.DatabaseURL, log)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1) //nolint:gocritic
	}
	defer pool.Close()
	log.Info("database pool connected")

	eventBus, err := events.NewEventBus(cfg, log)
	if err != nil {
		log.Error("failed to setup event bus", "error", err)
		os.Exit(1) //nolint:gocritic
	}
	defer eventBus.Close() //nolint:errcheck

	redisClient, err := cache.NewRedisClient(cfg)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1) //nolint:gocritic
	}
	defer redisClient.Close() //nolint:errcheck
	log.Info("redis connected")

	temporalClient, err := workflows.NewTemporalClient(ctx, cfg.TemporalHostPort, cfg.TemporalNamespace, log)
	if err != nil {
		log.Error("failed to initialize temporal client", "error", err)
		os.Exit(1) //nolint:gocritic
	}
	defer temporalClient.Close()

	erpClient := erp.NewHTTPClient(cfg.ERPBaseURL, cfg.ERPAPIKey, cfg.ERPTimeout)

	appConfig := &app.Application{
		Cfg:            cfg,
		Db:             pool,
		Logger:         log,
		EventBus:       eventBus,
		Redis:          redisClient,
		ERP:            erpClient,
		TemporalClient: temporalClient,
	}

	inventory := invsvcs.New(appConfig)
	sync := syncsvcs.New(appConfig)

	// Mirror sync outcomes back onto the ledger rows they originated from.
	ledger := invpg.NewLedger(pool, eventBus)
	sync.Orchestrator.SetResultHook(mirrorSyncStatus(ledger, log))

	if err := registerSubscribers(ctx, appConfig, sync, cfg.ERPLocation); err != nil {
		log.Error("failed to register subscribers", "error", err)
		os.Exit(1) //nolint:gocritic
	}

	w := worker.New(temporalClient.Client, cfg.TemporalTaskQueue, worker.Options{})
	w.RegisterWorkflow(invworkflows.ExpirySweepWorkflow)
	w.RegisterActivity(invworkflows.NewExpiryActivities(inventory.Batch))
	if err := w.Start(); err != nil {
		log.Error("failed to start temporal worker", "error", err)
		os.Exit(1) //nolint:gocritic
	}
	defer w.Stop()
	log.Info("temporal worker started", "task_queue", cfg.TemporalTaskQueue)

	scheduleExpirySweep(ctx, temporalClient, cfg.TemporalTaskQueue, log)

	retryCtx, cancelRetry := context.WithCancel(ctx)
	go runRetryLoop(retryCtx, sync.Orchestrator, cfg.SyncRetryEvery, log)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancelRetry()

	// EventBus.Close() (via defer) waits up to 30s for in-flight handlers.
	log.Info("worker stopped")
}

// registerSubscribers wires all domain event handlers.
// Add new topics here as more services publish events.
func registerSubscribers(ctx context.Context, a *app.Application, sync *syncsvcs.Services, defaultLocation string) error {
	topics := map[string]func(context.Context, *message.Message) error{
		invevents.TopicItemCreated:       handleItemCreated(a, sync),
		invevents.TopicMovementRecorded:  handleMovementRecorded(a, sync, defaultLocation),
		invevents.TopicOrderTransitioned: handleOrderTransitioned(a, sync),
	}

	registered := make([]string, 0, len(topics))
	for topic, handler := range topics {
		errCh, err := a.EventBus.Subscribe(ctx, topic, handler)
		if err != nil {
			return err
		}
		// Drain subscriber errors in background so the channel never blocks.
		go func(topic string) {
			for err := range errCh {
				a.Logger.ErrorContext(ctx, "subscriber error", "topic", topic, "error", err)
			}
		}(topic)
		registered = append(registered, topic)
	}

	a.Logger.Info("event subscribers registered", "topics", registered)
	return nil
}

// handleItemCreated enqueues an ERP item create for stock-controlled items.
// Handlers must be idempotent: the EventBus retries up to 3x on failure, and
// a duplicate enqueue short-circuits on the stored document number.
func handleItemCreated(a *app.Application, sync *syncsvcs.Services) func(context.Context, *message.Message) error {
	return func(ctx context.Context, msg *message.Message) error {
		var evt invevents.ItemCreatedEvent
		if err := json.Unmarshal(msg.Payload, &evt); err != nil {
			return err
		}

		if !evt.StockControl {
			a.Logger.DebugContext(ctx, "item not stock-controlled, skipping erp sync",
				"item_id", evt.ItemID, "sku", evt.SKU)
			return nil
		}

		_, err := sync.Orchestrator.Enqueue(ctx, evt.OrgID, syncmodels.SyncItemCreate, evt.ItemID, erp.CreateItemParams{
			ItemCode:     evt.SKU,
			Description:  evt.Name,
			UOM:          evt.Unit,
			StockControl: evt.StockControl,
			HasBatchNo:   evt.BatchTracking,
			StandardCost: evt.CostPerUnit,
			Price:        evt.CostPerUnit,
		})
		return err
	}
}

// handleMovementRecorded invalidates the cached stock level and, when the
// movement requires mirroring, enqueues the matching ERP document: a goods
// receipt for purchase order receipts, a stock adjustment for everything else.
func handleMovementRecorded(a *app.Application, sync *syncsvcs.Services, defaultLocation string) func(context.Context, *message.Message) error {
	stockCache := cache.NewStockCache(a.Redis)
	syncLog := erpsyncpg.NewSyncLogRepository(a.Db)
	return func(ctx context.Context, msg *message.Message) error {
		var evt invevents.MovementRecordedEvent
		if err := json.Unmarshal(msg.Payload, &evt); err != nil {
			return err
		}

		// Quantities changed, so the cached level is stale. Best-effort.
		if err := stockCache.Delete(ctx, evt.OrgID, evt.ItemID); err != nil {
			a.Logger.WarnContext(ctx, "stock cache invalidation failed",
				"item_id", evt.ItemID, "error", err)
		}

		if !evt.SyncRequired {
			return nil
		}

		location := evt.Location
		if location == "" {
			location = defaultLocation
		}

		if evt.MovementType == string(invmodels.MovementReceipt) && evt.ReferenceType == string(invmodels.RefPurchaseOrder) {
			// The ERP wants its own PO document number; fall back to the local
			// order ID when the PO create has not succeeded yet.
			poID, err := syncLog.LatestDocNo(ctx, evt.ReferenceID, syncmodels.SyncPurchaseOrderCreate)
			if err != nil {
				return err
			}
			if poID == "" {
				poID = evt.ReferenceID.String()
			}
			_, err = sync.Orchestrator.Enqueue(ctx, evt.OrgID, syncmodels.SyncGoodsReceipt, evt.MovementID, erp.GoodsReceiptParams{
				POID:        poID,
				ItemCode:    evt.ItemSKU,
				Qty:         evt.QuantityInBase,
				BatchNumber: evt.BatchNumber,
				Location:    location,
			})
			return err
		}

		adjType := erp.AdjustmentIn
		qty := evt.QuantityInBase
		if qty.IsNegative() {
			adjType = erp.AdjustmentOut
			qty = qty.Neg()
		}
		_, err := sync.Orchestrator.Enqueue(ctx, evt.OrgID, syncmodels.SyncStockAdjustment, evt.MovementID, erp.StockAdjustmentParams{
			ItemCode:    evt.ItemSKU,
			Location:    location,
			Type:        adjType,
			Qty:         qty,
			UOM:         evt.BaseUnit,
			BatchNumber: evt.BatchNumber,
		})
		return err
	}
}

// handleOrderTransitioned mirrors purchase order submissions and cancellations.
// Sales and assembly orders never leave the local system as documents; their
// stock effects arrive via movement.recorded instead.
func handleOrderTransitioned(a *app.Application, sync *syncsvcs.Services) func(context.Context, *message.Message) error {
	return func(ctx context.Context, msg *message.Message) error {
		var evt invevents.OrderTransitionedEvent
		if err := json.Unmarshal(msg.Payload, &evt); err != nil {
			return err
		}

		if evt.OrderType != string(invmodels.OrderPurchase) {
			return nil
		}

		switch invmodels.OrderStatus(evt.To) {
		case invmodels.StatusSubmitted:
			lines := make([]erp.PurchaseOrderLine, len(evt.Lines))
			for i, l := range evt.Lines {
				lines[i] = erp.PurchaseOrderLine{
					ItemCode:  l.ItemSKU,
					Qty:       l.Quantity,
					UnitPrice: l.UnitPrice,
					UOM:       l.Unit,
				}
			}
			_, err := sync.Orchestrator.Enqueue(ctx, evt.OrgID, syncmodels.SyncPurchaseOrderCreate, evt.OrderID, erp.CreatePurchaseOrderParams{
				PONumber:   evt.OrderNo,
				SupplierID: evt.SupplierID,
				Lines:      lines,
			})
			return err

		case invmodels.StatusCancelled:
			if invmodels.OrderStatus(evt.From) == invmodels.StatusDraft {
				// Never submitted, so nothing was mirrored to void.
				return nil
			}
			_, err := sync.Orchestrator.Enqueue(ctx, evt.OrgID, syncmodels.SyncPurchaseOrderCancel, evt.OrderID, syncsvcs.CancelPurchaseOrderPayload{
				PONumber: evt.OrderNo,
			})
			return err

		default:
			return nil
		}
	}
}

// mirrorSyncStatus maps a settled sync entry back onto the originating
// movement's sync_status column. Only movement-scoped entry types are
// mirrored; for those, EntityID is the movement ID.
func mirrorSyncStatus(ledger *invpg.Ledger, log logger.Logger) syncsvcs.ResultHook {
	return func(ctx context.Context, entry *syncmodels.Entry) {
		if entry.Type != syncmodels.SyncStockAdjustment && entry.Type != syncmodels.SyncGoodsReceipt {
			return
		}

		var status invmodels.SyncStatus
		switch entry.Status {
		case syncmodels.SyncSuccess:
			status = invmodels.SyncSuccess
		case syncmodels.SyncFailed, syncmodels.SyncPermanentlyFailed:
			status = invmodels.SyncFailed
		default:
			return
		}

		if err := ledger.SetSyncStatus(ctx, entry.EntityID, status); err != nil {
			log.ErrorContext(ctx, "failed to mirror sync status onto movement",
				"movement_id", entry.EntityID, "status", status, "error", err)
		}
	}
}

// scheduleExpirySweep starts the nightly expiry sweep on its cron schedule.
// A sweep already running from a previous deploy is not an error.
func scheduleExpirySweep(ctx context.Context, tc *workflows.TemporalClient, taskQueue string, log logger.Logger) {
	_, err := tc.Client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:           invworkflows.ExpirySweepWorkflowID,
		TaskQueue:    taskQueue,
		CronSchedule: invworkflows.ExpirySweepCron,
	}, invworkflows.ExpirySweepWorkflow)

	var already *serviceerror.WorkflowExecutionAlreadyStarted
	switch {
	case err == nil:
		log.Info("expiry sweep scheduled", "cron", invworkflows.ExpirySweepCron)
	case errors.As(err, &already):
		log.Info("expiry sweep already scheduled")
	default:
		log.Error("failed to schedule expiry sweep", "error", err)
	}
}

// runRetryLoop periodically re-dispatches failed sync entries whose backoff
// window has elapsed. Runs until ctx is cancelled.
func runRetryLoop(ctx context.Context, orch *syncsvcs.Orchestrator, every time.Duration, log logger.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("sync retry loop shutting down")
			return
		case <-ticker.C:
			attempted, err := orch.RetryAllFailed(ctx)
			if err != nil {
				log.ErrorContext(ctx, "sync retry sweep failed", "error", err)
				continue
			}
			if attempted > 0 {
				log.InfoContext(ctx, "sync retry sweep completed", "attempted", attempted)
			}
		}
	}
}
