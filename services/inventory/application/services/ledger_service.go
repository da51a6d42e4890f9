package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	domain "github.com/ghuser/stockledger/services/inventory/domain"
	"github.com/ghuser/stockledger/services/inventory/domain/models"
	"github.com/ghuser/stockledger/services/inventory/domain/repositories"
	domainsvcs "github.com/ghuser/stockledger/services/inventory/domain/services"
)

// LedgerService records stock movements. Every quantity change to an item
// goes through Append; there is no other write path to the counters.
type LedgerService struct {
	items     repositories.ItemRepository
	ledger    repositories.Ledger
	converter *domainsvcs.Converter
}

// NewLedgerService returns a LedgerService wired with the given
// repositories and unit converter.
func NewLedgerService(items repositories.ItemRepository, ledger repositories.Ledger, converter *domainsvcs.Converter) *LedgerService {
	return &LedgerService{items: items, ledger: ledger, converter: converter}
}

// Append validates the draft, converts its quantity into the item's base
// unit and appends the movement. The movement insert and the stock counter
// update happen in one atomic unit inside the Ledger.
func (s *LedgerService) Append(ctx context.Context, orgID, performedBy uuid.UUID, draft models.MovementDraft) (*models.Movement, error) {
	if err := draft.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidMovement, err)
	}

	item, err := s.items.GetByID(ctx, orgID, draft.ItemID)
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}

	baseQty, err := s.converter.ToBase(ctx, draft.Quantity, draft.Unit, item.Unit)
	if err != nil {
		return nil, err
	}

	mv := models.NewMovement(draft, item, baseQty, performedBy)
	if err := withConflictRetry(ctx, func() error {
		return s.ledger.Append(ctx, mv)
	}); err != nil {
		return nil, err
	}
	return mv, nil
}

// MovementsFor returns the item's movements newest-first, scoped to the org.
func (s *LedgerService) MovementsFor(ctx context.Context, orgID, itemID uuid.UUID, f repositories.MovementFilters, opts repositories.QueryOpts) ([]*models.Movement, int, error) {
	if _, err := s.items.GetByID(ctx, orgID, itemID); err != nil {
		return nil, 0, fmt.Errorf("get item: %w", err)
	}
	movements, total, err := s.ledger.MovementsFor(ctx, itemID, f, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list movements: %w", err)
	}
	return movements, total, nil
}

// ReceivedQuantity sums receipt movements for a purchase order. The sum is
// derived from the ledger on every call rather than kept as a counter.
func (s *LedgerService) ReceivedQuantity(ctx context.Context, purchaseOrderID uuid.UUID) (decimal.Decimal, error) {
	sum, err := s.ledger.ReceivedQuantity(ctx, purchaseOrderID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum receipts: %w", err)
	}
	return sum, nil
}
