// Package api registers the ERP sync context's HTTP routes.
package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/ghuser/stockledger/pkg/app"
	"github.com/ghuser/stockledger/services/erpsync/application/handlers"
	appsvcs "github.com/ghuser/stockledger/services/erpsync/application/services"
)

// SyncRoutes registers sync log endpoints on the provided chi router.
func SyncRoutes(r chi.Router, a *app.Application) {
	svcs := appsvcs.New(a)
	r.Group(func(r chi.Router) {
		r.Route("/sync-log", func(r chi.Router) {
			r.Get("/", handlers.NewListSyncLogHandler(svcs).Execute)
			r.Post("/retry-all", handlers.NewPostRetryAllHandler(svcs).Execute)
			r.Get("/{id}", handlers.NewGetSyncEntryHandler(svcs).Execute)
			r.Post("/{id}/retry", handlers.NewPostRetryHandler(svcs).Execute)
		})
	})
}
