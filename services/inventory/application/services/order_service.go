package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ghuser/stockledger/services/inventory/domain/models"
	"github.com/ghuser/stockledger/services/inventory/domain/repositories"
	domainsvcs "github.com/ghuser/stockledger/services/inventory/domain/services"
)

// OrderService owns the order state machines and is the only caller of the
// Ledger's reserve/release/consume operations — the Reservation Manager.
type OrderService struct {
	orders repositories.OrderRepository
	items  repositories.ItemRepository
	ledger repositories.Ledger
}

// CreateOrderParams are the caller-supplied fields for a new order.
type CreateOrderParams struct {
	Type       models.OrderType
	OrderNo    string
	Channel    models.Channel
	SupplierID string
	Location   string
	Lines      []OrderLineParams
}

// OrderLineParams is one requested order line.
type OrderLineParams struct {
	ItemID    uuid.UUID
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
}

// NewOrderService returns an OrderService wired with the given repositories.
func NewOrderService(orders repositories.OrderRepository, items repositories.ItemRepository, ledger repositories.Ledger) *OrderService {
	return &OrderService{orders: orders, items: items, ledger: ledger}
}

// Create validates line items against the catalog and persists the order in
// its initial state. Line quantities are recorded in each item's base unit.
func (s *OrderService) Create(ctx context.Context, orgID uuid.UUID, p CreateOrderParams) (*models.Order, error) {
	lines := make([]models.OrderLine, 0, len(p.Lines))
	for _, lp := range p.Lines {
		item, err := s.items.GetByID(ctx, orgID, lp.ItemID)
		if err != nil {
			return nil, fmt.Errorf("line item %s: %w", lp.ItemID, err)
		}
		lines = append(lines, models.OrderLine{
			ItemID:    item.ID,
			Quantity:  lp.Quantity,
			Unit:      item.Unit,
			UnitPrice: lp.UnitPrice,
		})
	}

	order, err := models.NewOrder(orgID, p.Type, p.OrderNo, p.Channel, p.SupplierID, p.Location, lines)
	if err != nil {
		return nil, err
	}
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, fmt.Errorf("save order: %w", err)
	}
	return order, nil
}

// GetByID retrieves an order scoped to the org.
func (s *OrderService) GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, orgID, id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return order, nil
}

// Transition moves the order to target, applying the stock effect the state
// machine prescribes. Reservations are all-or-nothing across lines. The whole
// read-check-apply sequence is retried when it loses a row-lock or status
// race, so a surfaced ErrConcurrencyConflict never leaves a partial effect:
// each failed attempt compensates its own reservation before the re-read.
func (s *OrderService) Transition(ctx context.Context, orgID, performedBy, orderID uuid.UUID, target models.OrderStatus) (*models.Order, error) {
	var order *models.Order
	err := withConflictRetry(ctx, func() error {
		var err error
		order, err = s.transitionOnce(ctx, orgID, performedBy, orderID, target)
		return err
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *OrderService) transitionOnce(ctx context.Context, orgID, performedBy, orderID uuid.UUID, target models.OrderStatus) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, orgID, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}

	effect, err := domainsvcs.CheckTransition(order, target)
	if err != nil {
		return nil, err
	}

	switch effect {
	case domainsvcs.EffectReserve:
		reservations := make([]*models.Reservation, 0, len(order.Lines))
		for _, line := range order.Lines {
			reservations = append(reservations, models.NewReservation(order.Key(), line.ItemID, line.Quantity))
		}
		if err := s.ledger.Reserve(ctx, reservations); err != nil {
			return nil, err
		}
		order.StockReserved = true
		order.ReservationNotes = fmt.Sprintf("reserved %d lines at %s", len(reservations), time.Now().UTC().Format(time.RFC3339))

	case domainsvcs.EffectRelease:
		if _, err := s.ledger.Release(ctx, order.Key()); err != nil {
			return nil, err
		}
		order.StockReserved = false

	case domainsvcs.EffectConsume:
		if _, err := s.ledger.Consume(ctx, order.Key(), performedBy, order.Location); err != nil {
			return nil, err
		}
		order.StockReserved = false
	}

	from := order.Status
	order.Status = target
	order.UpdatedAt = time.Now().UTC()
	if err := s.orders.UpdateStatus(ctx, order, from); err != nil {
		// A reservation taken in this attempt must not outlive the failed
		// status write: a concurrent transition already moved the order, and
		// its own cancel path would see no stock_reserved flag. Release is
		// keyed on the reservation rows and idempotent, so compensating here
		// is safe even when a retry re-reserves.
		if effect == domainsvcs.EffectReserve {
			if _, relErr := s.ledger.Release(ctx, order.Key()); relErr != nil {
				return nil, fmt.Errorf("update order status: %w (compensating release failed: %v)", err, relErr)
			}
		}
		return nil, fmt.Errorf("update order status: %w", err)
	}
	return order, nil
}
