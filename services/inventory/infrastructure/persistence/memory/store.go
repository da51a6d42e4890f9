// Package memory provides in-memory implementations of the inventory
// repositories. A single store mutex serializes all mutations, which is the
// in-process equivalent of the per-item row locks the Postgres
// implementation takes: reserve/release/append decisions are always made
// against a consistent snapshot.
//
// Used by unit tests and local development; the Postgres implementations are
// the production path.
package memory

import (
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ghuser/stockledger/services/inventory/domain/models"
)

type skuKey struct {
	orgID uuid.UUID
	sku   models.SKU
}

type resKey struct {
	orderType models.OrderType
	orderID   uuid.UUID
	itemID    uuid.UUID
}

type unitPair struct {
	from string
	to   string
}

// Store holds all inventory state behind one mutex.
type Store struct {
	mu           sync.Mutex
	items        map[uuid.UUID]*models.Item
	itemsBySKU   map[skuKey]uuid.UUID
	movements    []*models.Movement
	movementByID map[uuid.UUID]*models.Movement
	reservations map[resKey]*models.Reservation
	orders       map[uuid.UUID]*models.Order
	conversions  map[unitPair]decimal.Decimal
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		items:        make(map[uuid.UUID]*models.Item),
		itemsBySKU:   make(map[skuKey]uuid.UUID),
		movementByID: make(map[uuid.UUID]*models.Movement),
		reservations: make(map[resKey]*models.Reservation),
		orders:       make(map[uuid.UUID]*models.Order),
		conversions:  make(map[unitPair]decimal.Decimal),
	}
}

// AddConversion seeds a unit conversion factor.
func (s *Store) AddConversion(fromUnit, toUnit string, factor decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversions[unitPair{from: fromUnit, to: toUnit}] = factor
}

// cloneItem returns a copy so callers cannot mutate store state directly.
func cloneItem(i *models.Item) *models.Item {
	c := *i
	return &c
}

func cloneMovement(m *models.Movement) *models.Movement {
	c := *m
	return &c
}

func cloneReservation(r *models.Reservation) *models.Reservation {
	c := *r
	return &c
}

func cloneOrder(o *models.Order) *models.Order {
	c := *o
	c.Lines = append([]models.OrderLine(nil), o.Lines...)
	return &c
}
