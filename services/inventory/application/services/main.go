package services

import (
	"github.com/ghuser/stockledger/pkg/app"
	"github.com/ghuser/stockledger/pkg/cache"
	domainsvcs "github.com/ghuser/stockledger/services/inventory/domain/services"
	"github.com/ghuser/stockledger/services/inventory/infrastructure/persistence/postgres"
)

// Services is the application-layer service container for the inventory
// bounded context. It wires domain services with their infrastructure
// implementations.
type Services struct {
	Item   *ItemService
	Ledger *LedgerService
	Order  *OrderService
	Batch  *BatchService
}

// New wires all inventory application services with infrastructure from the
// Application container.
func New(a *app.Application) *Services {
	items := postgres.NewItemRepository(a.Db, a.EventBus)
	ledger := postgres.NewLedger(a.Db, a.EventBus)
	orders := postgres.NewOrderRepository(a.Db, a.EventBus)
	conversions := postgres.NewConversionRepository(a.Db)
	converter := domainsvcs.NewConverter(conversions)
	stockCache := cache.NewStockCache(a.Redis)

	return &Services{
		Item:   NewItemService(items, stockCache),
		Ledger: NewLedgerService(items, ledger, converter),
		Order:  NewOrderService(orders, items, ledger),
		Batch:  NewBatchService(items, ledger),
	}
}
