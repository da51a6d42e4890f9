package services

import (
	"github.com/ghuser/stockledger/pkg/app"
	"github.com/ghuser/stockledger/services/erpsync/infrastructure/persistence/postgres"
)

// Services is the application-layer service container for the ERP sync
// bounded context.
type Services struct {
	Orchestrator *Orchestrator
}

// New wires the sync orchestrator with infrastructure from the Application
// container. Retry tuning comes from the sync section of the config.
func New(a *app.Application) *Services {
	syncLog := postgres.NewSyncLogRepository(a.Db)
	orch := NewOrchestrator(syncLog, a.ERP, a.Logger, Options{
		MaxRetries:  a.Cfg.SyncMaxRetries,
		BackoffBase: a.Cfg.SyncBackoffBase,
		BackoffCap:  a.Cfg.SyncBackoffCap,
		Workers:     a.Cfg.SyncWorkers,
	})
	return &Services{Orchestrator: orch}
}
