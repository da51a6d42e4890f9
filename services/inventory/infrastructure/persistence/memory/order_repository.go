package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	domain "github.com/ghuser/stockledger/services/inventory/domain"
	"github.com/ghuser/stockledger/services/inventory/domain/models"
	"github.com/ghuser/stockledger/services/inventory/domain/repositories"
)

// OrderRepository implements repositories.OrderRepository over the Store.
// Unlike the Postgres implementation it publishes no events.
type OrderRepository struct {
	store *Store
}

// NewOrderRepository returns an OrderRepository backed by store.
func NewOrderRepository(store *Store) *OrderRepository {
	return &OrderRepository{store: store}
}

// Verify interface compliance.
var _ repositories.OrderRepository = (*OrderRepository)(nil)

// Save persists a new order.
func (r *OrderRepository) Save(_ context.Context, order *models.Order) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[order.ID] = cloneOrder(order)
	return nil
}

// GetByID retrieves an order scoped to the given org.
func (r *OrderRepository) GetByID(_ context.Context, orgID, id uuid.UUID) (*models.Order, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[id]
	if !ok || order.OrgID != orgID {
		return nil, domain.ErrOrderNotFound
	}
	return cloneOrder(order), nil
}

// UpdateStatus records the order's new status and reservation flags. Like the
// Postgres implementation it guards against lost updates: a concurrent
// transition that already moved the order away from `from` fails this call
// with ErrConcurrencyConflict.
func (r *OrderRepository) UpdateStatus(_ context.Context, order *models.Order, from models.OrderStatus) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.orders[order.ID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if stored.Status != from {
		return fmt.Errorf("%w: order %s no longer in status %s",
			domain.ErrConcurrencyConflict, order.ID, from)
	}
	stored.Status = order.Status
	stored.StockReserved = order.StockReserved
	stored.ReservationNotes = order.ReservationNotes
	stored.UpdatedAt = time.Now().UTC()
	return nil
}
