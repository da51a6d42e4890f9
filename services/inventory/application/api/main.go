// Package api registers the inventory context's HTTP routes.
package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/ghuser/stockledger/pkg/app"
	"github.com/ghuser/stockledger/services/inventory/application/handlers"
	appsvcs "github.com/ghuser/stockledger/services/inventory/application/services"
)

// InventoryRoutes registers inventory endpoints on the provided chi router.
func InventoryRoutes(r chi.Router, a *app.Application) {
	svcs := appsvcs.New(a)
	r.Group(func(r chi.Router) {
		r.Route("/items", func(r chi.Router) {
			r.Post("/", handlers.NewPostItemHandler(svcs).Execute)
			r.Get("/", handlers.NewListItemsHandler(svcs).Execute)
			r.Get("/{id}", handlers.NewGetItemHandler(svcs).Execute)
			r.Get("/{id}/movements", handlers.NewListMovementsHandler(svcs).Execute)
		})
		r.Route("/movements", func(r chi.Router) {
			r.Post("/", handlers.NewPostMovementHandler(svcs).Execute)
			r.Post("/{id}/expire", handlers.NewPostExpireHandler(svcs).Execute)
			r.Post("/{id}/reinstate", handlers.NewPostReinstateHandler(svcs).Execute)
			r.Post("/{id}/write-off", handlers.NewPostWriteOffHandler(svcs).Execute)
		})
		r.Route("/orders", func(r chi.Router) {
			r.Post("/", handlers.NewPostOrderHandler(svcs).Execute)
			r.Get("/{id}", handlers.NewGetOrderHandler(svcs).Execute)
			r.Post("/{id}/transition", handlers.NewPostOrderTransitionHandler(svcs).Execute)
		})
		r.Route("/purchase-orders", func(r chi.Router) {
			r.Get("/{id}/received", handlers.NewGetPOReceivedHandler(svcs).Execute)
		})
	})
}
