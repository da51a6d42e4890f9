package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	domain "github.com/ghuser/stockledger/services/inventory/domain"
	"github.com/ghuser/stockledger/services/inventory/domain/models"
	"github.com/ghuser/stockledger/services/inventory/domain/repositories"
	"github.com/ghuser/stockledger/services/inventory/infrastructure/persistence/memory"
)

// flakyOrderRepo fails the next `failures` status writes with a concurrency
// conflict, simulating a racing transition winning the CAS.
type flakyOrderRepo struct {
	repositories.OrderRepository
	failures int
}

func (r *flakyOrderRepo) UpdateStatus(ctx context.Context, order *models.Order, from models.OrderStatus) error {
	if r.failures > 0 {
		r.failures--
		return fmt.Errorf("%w: simulated status race", domain.ErrConcurrencyConflict)
	}
	return r.OrderRepository.UpdateStatus(ctx, order, from)
}

func (e *testEnv) transition(t *testing.T, orderID uuid.UUID, target models.OrderStatus) *models.Order {
	t.Helper()
	order, err := e.Order.Transition(context.Background(), e.orgID, e.actor, orderID, target)
	if err != nil {
		t.Fatalf("transition to %s: %v", target, err)
	}
	return order
}

func TestSalesOrderReservesOnProcessing(t *testing.T) {
	env := newTestEnv()
	item := env.newItem(t, "PR-CAKE-01", "pcs")
	env.receive(t, item, 10)

	order, err := env.Order.Create(context.Background(), env.orgID, CreateOrderParams{
		Type:    models.OrderSales,
		OrderNo: "SO-001",
		Channel: models.ChannelOwnStore,
		Lines:   []OrderLineParams{{ItemID: item.ID, Quantity: decimal.NewFromInt(4)}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	env.transition(t, order.ID, models.StatusSubmitted)
	if got := env.currentItem(t, item.ID).ReservedQuantity; !got.IsZero() {
		t.Fatalf("submission must not reserve, got %s", got)
	}

	order = env.transition(t, order.ID, models.StatusProcessing)
	if !order.StockReserved {
		t.Fatal("order should be flagged stock_reserved")
	}
	after := env.currentItem(t, item.ID)
	if !after.ReservedQuantity.Equal(decimal.NewFromInt(4)) {
		t.Fatalf("reserved_quantity = %s, want 4", after.ReservedQuantity)
	}
	if !after.StockQuantity.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("reservation must not change stock_quantity, got %s", after.StockQuantity)
	}
}

func TestReserveIsAllOrNothing(t *testing.T) {
	env := newTestEnv()
	plenty := env.newItem(t, "PR-CAKE-01", "pcs")
	scarce := env.newItem(t, "PR-TART-01", "pcs")
	env.receive(t, plenty, 100)
	env.receive(t, scarce, 2)

	order, err := env.Order.Create(context.Background(), env.orgID, CreateOrderParams{
		Type:    models.OrderSales,
		OrderNo: "SO-002",
		Channel: models.ChannelOwnStore,
		Lines: []OrderLineParams{
			{ItemID: plenty.ID, Quantity: decimal.NewFromInt(10)},
			{ItemID: scarce.ID, Quantity: decimal.NewFromInt(5)},
		},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	env.transition(t, order.ID, models.StatusSubmitted)

	_, err = env.Order.Transition(context.Background(), env.orgID, env.actor, order.ID, models.StatusProcessing)
	if !errors.Is(err, domain.ErrInsufficientAvailableStock) {
		t.Fatalf("error = %v, want ErrInsufficientAvailableStock", err)
	}

	// The sufficient line must not stay reserved after the failed attempt.
	if got := env.currentItem(t, plenty.ID).ReservedQuantity; !got.IsZero() {
		t.Fatalf("partial reservation leaked: %s reserved on %s", got, plenty.SKU)
	}
	if got := env.currentItem(t, scarce.ID).ReservedQuantity; !got.IsZero() {
		t.Fatalf("partial reservation leaked: %s reserved on %s", got, scarce.SKU)
	}

	stored, err := env.Order.GetByID(context.Background(), env.orgID, order.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if stored.Status != models.StatusSubmitted {
		t.Fatalf("order status = %s after failed reserve, want submitted", stored.Status)
	}
}

func TestCancelReleasesReservations(t *testing.T) {
	env := newTestEnv()
	item := env.newItem(t, "PR-CAKE-01", "pcs")
	env.receive(t, item, 10)

	order, err := env.Order.Create(context.Background(), env.orgID, CreateOrderParams{
		Type:    models.OrderSales,
		OrderNo: "SO-003",
		Channel: models.ChannelOwnStore,
		Lines:   []OrderLineParams{{ItemID: item.ID, Quantity: decimal.NewFromInt(6)}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	env.transition(t, order.ID, models.StatusSubmitted)
	env.transition(t, order.ID, models.StatusProcessing)

	order = env.transition(t, order.ID, models.StatusCancelled)
	if order.StockReserved {
		t.Fatal("cancelled order should not be flagged stock_reserved")
	}
	after := env.currentItem(t, item.ID)
	if !after.ReservedQuantity.IsZero() {
		t.Fatalf("reserved_quantity = %s after cancel, want 0", after.ReservedQuantity)
	}
	if !after.StockQuantity.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("cancel must not change stock_quantity, got %s", after.StockQuantity)
	}

	// Cancelled is terminal.
	if _, err := env.Order.Transition(context.Background(), env.orgID, env.actor, order.ID, models.StatusSubmitted); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("error = %v, want ErrInvalidTransition from terminal state", err)
	}
}

func TestCompleteConsumesExactlyReserved(t *testing.T) {
	env := newTestEnv()
	item := env.newItem(t, "PR-CAKE-01", "pcs")
	env.receive(t, item, 10)

	order, err := env.Order.Create(context.Background(), env.orgID, CreateOrderParams{
		Type:    models.OrderSales,
		OrderNo: "SO-004",
		Channel: models.ChannelOwnStore,
		Lines:   []OrderLineParams{{ItemID: item.ID, Quantity: decimal.NewFromInt(4)}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	env.transition(t, order.ID, models.StatusSubmitted)
	env.transition(t, order.ID, models.StatusProcessing)
	env.transition(t, order.ID, models.StatusCompleted)

	after := env.currentItem(t, item.ID)
	if !after.StockQuantity.Equal(decimal.NewFromInt(6)) {
		t.Fatalf("stock_quantity = %s after consume, want 6", after.StockQuantity)
	}
	if !after.ReservedQuantity.IsZero() {
		t.Fatalf("reserved_quantity = %s after consume, want 0", after.ReservedQuantity)
	}

	issue, err := env.ledger.Consume(context.Background(), order.Key(), env.actor, "")
	if err != nil {
		t.Fatalf("second consume: %v", err)
	}
	if len(issue) != 0 {
		t.Fatalf("second consume issued %d movements, want 0", len(issue))
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	env := newTestEnv()
	item := env.newItem(t, "PR-CAKE-01", "pcs")
	env.receive(t, item, 10)

	key := models.OrderKey{OrderType: models.OrderSales, OrderID: uuid.New()}
	res := models.NewReservation(key, item.ID, decimal.NewFromInt(3))
	if err := env.ledger.Reserve(context.Background(), []*models.Reservation{res}); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	first, err := env.ledger.Release(context.Background(), key)
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("first release returned %d reservations, want 1", len(first))
	}

	second, err := env.ledger.Release(context.Background(), key)
	if err != nil {
		t.Fatalf("second release: %v", err)
	}
	if len(second) != 0 {
		t.Fatalf("second release returned %d reservations, want 0", len(second))
	}
	if got := env.currentItem(t, item.ID).ReservedQuantity; !got.IsZero() {
		t.Fatalf("reserved_quantity = %s, want 0", got)
	}
}

func TestDuplicateReservationRejected(t *testing.T) {
	env := newTestEnv()
	item := env.newItem(t, "PR-CAKE-01", "pcs")
	env.receive(t, item, 10)

	key := models.OrderKey{OrderType: models.OrderSales, OrderID: uuid.New()}
	if err := env.ledger.Reserve(context.Background(), []*models.Reservation{
		models.NewReservation(key, item.ID, decimal.NewFromInt(2)),
	}); err != nil {
		t.Fatalf("first reserve: %v", err)
	}

	err := env.ledger.Reserve(context.Background(), []*models.Reservation{
		models.NewReservation(key, item.ID, decimal.NewFromInt(2)),
	})
	if !errors.Is(err, domain.ErrAlreadyReserved) {
		t.Fatalf("error = %v, want ErrAlreadyReserved", err)
	}
	if got := env.currentItem(t, item.ID).ReservedQuantity; !got.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("reserved_quantity = %s, want 2", got)
	}
}

func TestPurchaseOrderFlowHasNoStockEffect(t *testing.T) {
	env := newTestEnv()
	item := env.newItem(t, "RM-FLOUR-01", "g")
	env.receive(t, item, 100)

	order, err := env.Order.Create(context.Background(), env.orgID, CreateOrderParams{
		Type:       models.OrderPurchase,
		OrderNo:    "PO-001",
		SupplierID: "SUP-9",
		Lines:      []OrderLineParams{{ItemID: item.ID, Quantity: decimal.NewFromInt(500)}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	env.transition(t, order.ID, models.StatusSubmitted)
	env.transition(t, order.ID, models.StatusReceived)

	after := env.currentItem(t, item.ID)
	if !after.ReservedQuantity.IsZero() || !after.StockQuantity.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("purchase transitions must not touch counters: stock=%s reserved=%s",
			after.StockQuantity, after.ReservedQuantity)
	}
}

func TestAssemblyOrderReservesAndConsumes(t *testing.T) {
	env := newTestEnv()
	item := env.newItem(t, "CP-GEAR-01", "pcs")
	env.receive(t, item, 20)

	order, err := env.Order.Create(context.Background(), env.orgID, CreateOrderParams{
		Type:    models.OrderAssembly,
		OrderNo: "AO-001",
		Lines:   []OrderLineParams{{ItemID: item.ID, Quantity: decimal.NewFromInt(8)}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if order.Status != models.StatusPending {
		t.Fatalf("assembly order starts %s, want pending", order.Status)
	}

	env.transition(t, order.ID, models.StatusInProgress)
	if got := env.currentItem(t, item.ID).ReservedQuantity; !got.Equal(decimal.NewFromInt(8)) {
		t.Fatalf("reserved_quantity = %s, want 8", got)
	}

	env.transition(t, order.ID, models.StatusCompleted)
	after := env.currentItem(t, item.ID)
	if !after.StockQuantity.Equal(decimal.NewFromInt(12)) || !after.ReservedQuantity.IsZero() {
		t.Fatalf("after completion: stock=%s reserved=%s, want 12/0", after.StockQuantity, after.ReservedQuantity)
	}
}

// A transition that loses the status write race compensates its reservation
// before retrying, so the retry reserves exactly once instead of hitting its
// own leaked rows.
func TestTransitionRetriesStatusRace(t *testing.T) {
	env := newTestEnv()
	item := env.newItem(t, "PR-CAKE-01", "pcs")
	env.receive(t, item, 10)

	order, err := env.Order.Create(context.Background(), env.orgID, CreateOrderParams{
		Type:    models.OrderSales,
		OrderNo: "SO-010",
		Channel: models.ChannelOwnStore,
		Lines:   []OrderLineParams{{ItemID: item.ID, Quantity: decimal.NewFromInt(7)}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	env.transition(t, order.ID, models.StatusSubmitted)

	flaky := &flakyOrderRepo{OrderRepository: memory.NewOrderRepository(env.store), failures: 1}
	racy := NewOrderService(flaky, env.items, env.ledger)

	got, err := racy.Transition(context.Background(), env.orgID, env.actor, order.ID, models.StatusProcessing)
	if err != nil {
		t.Fatalf("transition after transient conflict: %v", err)
	}
	if !got.StockReserved {
		t.Fatal("order should be flagged stock_reserved")
	}
	if reserved := env.currentItem(t, item.ID).ReservedQuantity; !reserved.Equal(decimal.NewFromInt(7)) {
		t.Fatalf("reserved_quantity = %s, want exactly 7", reserved)
	}
}

// When every attempt loses the race, the surfaced conflict must leave no
// partial effect behind: no reservation stays active and the stock remains
// fully reservable.
func TestFailedTransitionLeavesNoReservation(t *testing.T) {
	env := newTestEnv()
	item := env.newItem(t, "PR-CAKE-01", "pcs")
	env.receive(t, item, 10)

	order, err := env.Order.Create(context.Background(), env.orgID, CreateOrderParams{
		Type:    models.OrderSales,
		OrderNo: "SO-011",
		Channel: models.ChannelOwnStore,
		Lines:   []OrderLineParams{{ItemID: item.ID, Quantity: decimal.NewFromInt(7)}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	env.transition(t, order.ID, models.StatusSubmitted)

	flaky := &flakyOrderRepo{OrderRepository: memory.NewOrderRepository(env.store), failures: 100}
	racy := NewOrderService(flaky, env.items, env.ledger)

	_, err = racy.Transition(context.Background(), env.orgID, env.actor, order.ID, models.StatusProcessing)
	if !errors.Is(err, domain.ErrConcurrencyConflict) {
		t.Fatalf("error = %v, want ErrConcurrencyConflict", err)
	}
	if reserved := env.currentItem(t, item.ID).ReservedQuantity; !reserved.IsZero() {
		t.Fatalf("reservation leaked: reserved_quantity = %s after failed transition, want 0", reserved)
	}

	// The order never left submitted, so cancelling it must find nothing to
	// release and leave the counters untouched.
	env.transition(t, order.ID, models.StatusCancelled)
	after := env.currentItem(t, item.ID)
	if !after.ReservedQuantity.IsZero() {
		t.Fatalf("reserved_quantity = %s after cancel, want 0", after.ReservedQuantity)
	}
	if !after.StockQuantity.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("stock_quantity = %s after cancel, want 10", after.StockQuantity)
	}
}

func TestCreateOrderUnknownItem(t *testing.T) {
	env := newTestEnv()
	_, err := env.Order.Create(context.Background(), env.orgID, CreateOrderParams{
		Type:    models.OrderSales,
		OrderNo: "SO-404",
		Channel: models.ChannelOwnStore,
		Lines:   []OrderLineParams{{ItemID: uuid.New(), Quantity: decimal.NewFromInt(1)}},
	})
	if !errors.Is(err, domain.ErrItemNotFound) {
		t.Fatalf("error = %v, want ErrItemNotFound", err)
	}
}
