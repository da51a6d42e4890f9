package app

import (
	"github.com/gorilla/sessions"

	"github.com/ghuser/stockledger/pkg/cache"
	"github.com/ghuser/stockledger/pkg/config"
	"github.com/ghuser/stockledger/pkg/database"
	"github.com/ghuser/stockledger/pkg/erp"
	"github.com/ghuser/stockledger/pkg/events"
	"github.com/ghuser/stockledger/pkg/logger"
	"github.com/ghuser/stockledger/pkg/workflows"
)

// Application holds shared infrastructure dependencies for all services.
// Pass it to each service's Routes call during server initialization.
//
// Logging: app.Logger is backed by a trace-aware handler; use slog's context
// methods and trace_id, span_id, and request_id are injected automatically:
//
//	app.Logger.InfoContext(ctx, "recording movement", "movement_id", id)
//	app.Logger.ErrorContext(ctx, "failed to save", "error", err)
//
// Use app.Logger.Info/Error (no context) only for startup and shutdown messages.
type Application struct {
	Cfg            *config.Config
	Db             *database.Database
	Logger         logger.Logger
	EventBus       *events.EventBus
	Redis          *cache.RedisClient
	ERP            erp.Client
	TemporalClient *workflows.TemporalClient
	SessionStore   sessions.Store // Redis-backed session store; nil in worker process
}
