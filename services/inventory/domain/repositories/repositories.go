package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ghuser/stockledger/services/inventory/domain/models"
)

// QueryOpts contains pagination parameters for list queries.
type QueryOpts struct {
	Limit  int // Maximum number of records to return
	Offset int // Number of records to skip
}

// MovementFilters narrows MovementsFor queries.
type MovementFilters struct {
	Types       []models.MovementType
	BatchNumber string
	ExpiredOnly bool
}

// ItemRepository is the persistence interface for the Item catalog.
// The domain layer owns this interface; infrastructure implements it.
// Stock counters are never written through this interface; only the Ledger
// mutates them.
type ItemRepository interface {
	Save(ctx context.Context, item *models.Item) error
	GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Item, error)
	GetBySKU(ctx context.Context, orgID uuid.UUID, sku models.SKU) (*models.Item, error)

	// FindByOrgID retrieves a paginated list of items for the given org.
	// Returns the items slice and the total count (ignoring pagination).
	FindByOrgID(ctx context.Context, orgID uuid.UUID, opts QueryOpts) ([]*models.Item, int, error)
}

// Ledger is the transactional core of the inventory context. Every method
// that mutates state is atomic: the movement insert and the counter update
// are never observably split, and concurrent calls against the same item are
// serialized (row locks in Postgres, a per-item mutex in memory).
type Ledger interface {
	// Append inserts the movement and applies quantity_in_base_unit to the
	// item's stock_quantity in one atomic unit. Fails with
	// ErrInsufficientStock when an outbound movement would push stock below
	// the item's reserved quantity.
	Append(ctx context.Context, mv *models.Movement) error

	// Reserve atomically claims stock for all reservations or none of them.
	// Fails with ErrInsufficientAvailableStock when any line exceeds the
	// item's available quantity, and with ErrAlreadyReserved when an active
	// reservation already exists for the same key.
	Reserve(ctx context.Context, reservations []*models.Reservation) error

	// Release marks the order's active reservations as released and credits
	// their quantities back to available stock. Already released or consumed
	// reservations are skipped, making a second release a no-op.
	Release(ctx context.Context, key models.OrderKey) ([]*models.Reservation, error)

	// Consume converts each active reservation of the order into an issue
	// movement of exactly the reserved quantity, decrementing stock and
	// reserved together. Returns the movements it appended.
	Consume(ctx context.Context, key models.OrderKey, performedBy uuid.UUID, location string) ([]*models.Movement, error)

	GetMovement(ctx context.Context, id uuid.UUID) (*models.Movement, error)

	// MovementsFor returns the item's movements newest-first.
	MovementsFor(ctx context.Context, itemID uuid.UUID, f MovementFilters, opts QueryOpts) ([]*models.Movement, int, error)

	// ReceivedQuantity sums receipt movements referencing the purchase order.
	// Derived on every call; the movement sum is the source of truth for
	// "remaining to receive".
	ReceivedQuantity(ctx context.Context, purchaseOrderID uuid.UUID) (decimal.Decimal, error)

	// WriteOffTotal sums the magnitude of write_off movements referencing the
	// given batch receipt movement.
	WriteOffTotal(ctx context.Context, receiptMovementID uuid.UUID) (decimal.Decimal, error)

	// WriteOffBatch appends a write_off movement for the batch's remaining
	// quantity (original receipt minus prior write-offs), atomically with the
	// remaining-quantity check so the same physical batch cannot be written
	// off twice. Fails with ErrBatchAlreadyWrittenOff when nothing remains.
	WriteOffBatch(ctx context.Context, receiptMovementID, performedBy uuid.UUID) (*models.Movement, error)

	// SetSyncStatus updates the mirrored ERP status of a movement.
	SetSyncStatus(ctx context.Context, movementID uuid.UUID, status models.SyncStatus) error

	// MarkExpired flags a batch receipt as expired without touching stock.
	MarkExpired(ctx context.Context, movementID uuid.UUID, notes string, at time.Time) error

	// Reinstate clears the expired flag from a batch receipt.
	Reinstate(ctx context.Context, movementID uuid.UUID) error

	// ExpiringReceipts lists batch receipts whose expiry date has passed but
	// that have not been flagged yet.
	ExpiringReceipts(ctx context.Context, asOf time.Time) ([]*models.Movement, error)
}

// OrderRepository persists orders and their status transitions.
type OrderRepository interface {
	Save(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Order, error)

	// UpdateStatus records the transition and publishes order.transitioned in
	// the same transaction.
	UpdateStatus(ctx context.Context, order *models.Order, from models.OrderStatus) error
}

// ConversionRepository looks up unit conversion factors. It satisfies the
// domain services.ConversionLookup interface.
type ConversionRepository interface {
	Factor(ctx context.Context, fromUnit, toUnit string) (decimal.Decimal, bool, error)
}
