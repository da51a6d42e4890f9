package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	domain "github.com/ghuser/stockledger/services/inventory/domain"
	"github.com/ghuser/stockledger/services/inventory/domain/models"
	"github.com/ghuser/stockledger/services/inventory/domain/repositories"
	domainsvcs "github.com/ghuser/stockledger/services/inventory/domain/services"
	"github.com/ghuser/stockledger/services/inventory/infrastructure/persistence/memory"
)

// testEnv wires the application services over the in-memory store, the same
// composition cmd/api performs over Postgres.
type testEnv struct {
	store  *memory.Store
	items  *memory.ItemRepository
	ledger *memory.Ledger

	Item   *ItemService
	Ledger *LedgerService
	Order  *OrderService
	Batch  *BatchService

	orgID uuid.UUID
	actor uuid.UUID
}

func newTestEnv() *testEnv {
	store := memory.NewStore()
	store.AddConversion("kg", "g", decimal.NewFromInt(1000))

	items := memory.NewItemRepository(store)
	ledger := memory.NewLedger(store)
	orders := memory.NewOrderRepository(store)
	converter := domainsvcs.NewConverter(memory.NewConversionRepository(store))

	return &testEnv{
		store:  store,
		items:  items,
		ledger: ledger,
		Item:   NewItemService(items, nil),
		Ledger: NewLedgerService(items, ledger, converter),
		Order:  NewOrderService(orders, items, ledger),
		Batch:  NewBatchService(items, ledger),
		orgID:  uuid.New(),
		actor:  uuid.New(),
	}
}

// newItem creates a catalog item with the given base unit.
func (e *testEnv) newItem(t *testing.T, sku, unit string) *models.Item {
	t.Helper()
	item, err := e.Item.Create(context.Background(), e.orgID, CreateItemParams{
		SKU:      sku,
		Name:     "test item " + sku,
		ItemType: models.ItemTypeRawMaterial,
		Unit:     unit,
	})
	if err != nil {
		t.Fatalf("create item %s: %v", sku, err)
	}
	return item
}

// receive appends a receipt of qty base units and returns the movement.
func (e *testEnv) receive(t *testing.T, item *models.Item, qty int64) *models.Movement {
	t.Helper()
	mv, err := e.Ledger.Append(context.Background(), e.orgID, e.actor, models.MovementDraft{
		ItemID:        item.ID,
		Type:          models.MovementReceipt,
		Quantity:      decimal.NewFromInt(qty),
		Unit:          item.Unit,
		ReferenceType: models.RefManual,
		ReferenceID:   uuid.New(),
	})
	if err != nil {
		t.Fatalf("receive %d %s of %s: %v", qty, item.Unit, item.SKU, err)
	}
	return mv
}

func (e *testEnv) currentItem(t *testing.T, id uuid.UUID) *models.Item {
	t.Helper()
	item, err := e.items.GetByID(context.Background(), e.orgID, id)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	return item
}

func TestAppendProjectsIntoBaseUnit(t *testing.T) {
	env := newTestEnv()
	item := env.newItem(t, "RM-FLOUR-01", "g")

	mv, err := env.Ledger.Append(context.Background(), env.orgID, env.actor, models.MovementDraft{
		ItemID:        item.ID,
		Type:          models.MovementReceipt,
		Quantity:      decimal.NewFromInt(50),
		Unit:          "kg",
		ReferenceType: models.RefManual,
		ReferenceID:   uuid.New(),
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	if !mv.Quantity.Equal(decimal.NewFromInt(50)) || mv.UnitOfRecord != "kg" {
		t.Fatalf("movement should keep the recorded unit: %s %s", mv.Quantity, mv.UnitOfRecord)
	}
	if !mv.QuantityInBaseUnit.Equal(decimal.NewFromInt(50000)) {
		t.Fatalf("quantity_in_base_unit = %s, want 50000", mv.QuantityInBaseUnit)
	}
	if got := env.currentItem(t, item.ID).StockQuantity; !got.Equal(decimal.NewFromInt(50000)) {
		t.Fatalf("stock_quantity = %s, want 50000", got)
	}
}

func TestAppendRejectsInvalidDraft(t *testing.T) {
	env := newTestEnv()
	item := env.newItem(t, "RM-FLOUR-01", "g")

	_, err := env.Ledger.Append(context.Background(), env.orgID, env.actor, models.MovementDraft{
		ItemID:        item.ID,
		Type:          models.MovementReceipt,
		Quantity:      decimal.NewFromInt(-5),
		Unit:          "g",
		ReferenceType: models.RefManual,
		ReferenceID:   uuid.New(),
	})
	if !errors.Is(err, domain.ErrInvalidMovement) {
		t.Fatalf("error = %v, want ErrInvalidMovement", err)
	}

	// Nothing must have been written.
	if got := env.currentItem(t, item.ID).StockQuantity; !got.IsZero() {
		t.Fatalf("stock_quantity = %s after rejected draft, want 0", got)
	}
}

func TestAppendUnknownUnit(t *testing.T) {
	env := newTestEnv()
	item := env.newItem(t, "RM-FLOUR-01", "g")

	_, err := env.Ledger.Append(context.Background(), env.orgID, env.actor, models.MovementDraft{
		ItemID:        item.ID,
		Type:          models.MovementReceipt,
		Quantity:      decimal.NewFromInt(5),
		Unit:          "box",
		ReferenceType: models.RefManual,
		ReferenceID:   uuid.New(),
	})
	if !errors.Is(err, domain.ErrUnitNotConvertible) {
		t.Fatalf("error = %v, want ErrUnitNotConvertible", err)
	}
}

func TestAppendInsufficientStock(t *testing.T) {
	env := newTestEnv()
	item := env.newItem(t, "RM-FLOUR-01", "g")
	env.receive(t, item, 100)

	_, err := env.Ledger.Append(context.Background(), env.orgID, env.actor, models.MovementDraft{
		ItemID:        item.ID,
		Type:          models.MovementIssue,
		Quantity:      decimal.NewFromInt(-150),
		Unit:          "g",
		ReferenceType: models.RefManual,
		ReferenceID:   uuid.New(),
	})
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("error = %v, want ErrInsufficientStock", err)
	}
	if got := env.currentItem(t, item.ID).StockQuantity; !got.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("failed issue must not change stock: %s", got)
	}
}

func TestAppendCannotInvadeReservedStock(t *testing.T) {
	env := newTestEnv()
	item := env.newItem(t, "RM-FLOUR-01", "g")
	env.receive(t, item, 100)

	key := models.OrderKey{OrderType: models.OrderSales, OrderID: uuid.New()}
	res := models.NewReservation(key, item.ID, decimal.NewFromInt(80))
	if err := env.ledger.Reserve(context.Background(), []*models.Reservation{res}); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	// 100 on hand, 80 reserved: issuing 30 would leave only 70.
	_, err := env.Ledger.Append(context.Background(), env.orgID, env.actor, models.MovementDraft{
		ItemID:        item.ID,
		Type:          models.MovementIssue,
		Quantity:      decimal.NewFromInt(-30),
		Unit:          "g",
		ReferenceType: models.RefManual,
		ReferenceID:   uuid.New(),
	})
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("error = %v, want ErrInsufficientStock", err)
	}

	// Issuing within the unreserved remainder is fine.
	if _, err := env.Ledger.Append(context.Background(), env.orgID, env.actor, models.MovementDraft{
		ItemID:        item.ID,
		Type:          models.MovementIssue,
		Quantity:      decimal.NewFromInt(-20),
		Unit:          "g",
		ReferenceType: models.RefManual,
		ReferenceID:   uuid.New(),
	}); err != nil {
		t.Fatalf("issue within unreserved stock: %v", err)
	}
}

func TestStockEqualsSumOfMovements(t *testing.T) {
	env := newTestEnv()
	item := env.newItem(t, "RM-FLOUR-01", "g")

	drafts := []struct {
		typ models.MovementType
		qty int64
	}{
		{models.MovementReceipt, 100},
		{models.MovementIssue, -30},
		{models.MovementAdjustment, -5},
		{models.MovementReturn, 10},
		{models.MovementAdjustment, 2},
	}
	want := decimal.Zero
	for _, d := range drafts {
		if _, err := env.Ledger.Append(context.Background(), env.orgID, env.actor, models.MovementDraft{
			ItemID:        item.ID,
			Type:          d.typ,
			Quantity:      decimal.NewFromInt(d.qty),
			Unit:          "g",
			ReferenceType: models.RefManual,
			ReferenceID:   uuid.New(),
		}); err != nil {
			t.Fatalf("append %s %d: %v", d.typ, d.qty, err)
		}
		want = want.Add(decimal.NewFromInt(d.qty))
	}

	if got := env.currentItem(t, item.ID).StockQuantity; !got.Equal(want) {
		t.Fatalf("stock_quantity = %s, want sum of movements %s", got, want)
	}

	movements, total, err := env.Ledger.MovementsFor(context.Background(), env.orgID, item.ID,
		repositories.MovementFilters{}, repositories.QueryOpts{Limit: 10})
	if err != nil {
		t.Fatalf("movements: %v", err)
	}
	if total != len(drafts) || len(movements) != len(drafts) {
		t.Fatalf("movement count = %d (total %d), want %d", len(movements), total, len(drafts))
	}
}

func TestReceivedQuantitySumsPurchaseOrderReceipts(t *testing.T) {
	env := newTestEnv()
	item := env.newItem(t, "RM-FLOUR-01", "g")
	poID := uuid.New()

	for _, qty := range []int64{40, 25} {
		if _, err := env.Ledger.Append(context.Background(), env.orgID, env.actor, models.MovementDraft{
			ItemID:        item.ID,
			Type:          models.MovementReceipt,
			Quantity:      decimal.NewFromInt(qty),
			Unit:          "g",
			ReferenceType: models.RefPurchaseOrder,
			ReferenceID:   poID,
		}); err != nil {
			t.Fatalf("receipt: %v", err)
		}
	}
	// A manual receipt must not count toward the PO.
	env.receive(t, item, 999)

	got, err := env.Ledger.ReceivedQuantity(context.Background(), poID)
	if err != nil {
		t.Fatalf("received quantity: %v", err)
	}
	if !got.Equal(decimal.NewFromInt(65)) {
		t.Fatalf("received = %s, want 65", got)
	}
}

func TestMovementsForScopedToOrg(t *testing.T) {
	env := newTestEnv()
	item := env.newItem(t, "RM-FLOUR-01", "g")
	env.receive(t, item, 10)

	otherOrg := uuid.New()
	_, _, err := env.Ledger.MovementsFor(context.Background(), otherOrg, item.ID,
		repositories.MovementFilters{}, repositories.QueryOpts{Limit: 10})
	if !errors.Is(err, domain.ErrItemNotFound) {
		t.Fatalf("error = %v, want ErrItemNotFound for foreign org", err)
	}
}

func TestMovementsForFilters(t *testing.T) {
	env := newTestEnv()
	item := env.newItem(t, "RM-FLOUR-01", "g")
	expiry := time.Now().UTC().Add(24 * time.Hour)

	if _, err := env.Ledger.Append(context.Background(), env.orgID, env.actor, models.MovementDraft{
		ItemID:        item.ID,
		Type:          models.MovementReceipt,
		Quantity:      decimal.NewFromInt(10),
		Unit:          "g",
		BatchNumber:   "LOT-A",
		ExpiryDate:    &expiry,
		ReferenceType: models.RefManual,
		ReferenceID:   uuid.New(),
	}); err != nil {
		t.Fatalf("batch receipt: %v", err)
	}
	env.receive(t, item, 5)

	byBatch, total, err := env.Ledger.MovementsFor(context.Background(), env.orgID, item.ID,
		repositories.MovementFilters{BatchNumber: "LOT-A"}, repositories.QueryOpts{Limit: 10})
	if err != nil {
		t.Fatalf("filter by batch: %v", err)
	}
	if total != 1 || len(byBatch) != 1 || byBatch[0].BatchNumber != "LOT-A" {
		t.Fatalf("batch filter returned %d movements (total %d)", len(byBatch), total)
	}

	byType, _, err := env.Ledger.MovementsFor(context.Background(), env.orgID, item.ID,
		repositories.MovementFilters{Types: []models.MovementType{models.MovementIssue}}, repositories.QueryOpts{Limit: 10})
	if err != nil {
		t.Fatalf("filter by type: %v", err)
	}
	if len(byType) != 0 {
		t.Fatalf("issue filter returned %d movements, want 0", len(byType))
	}
}
