package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	domain "github.com/ghuser/stockledger/services/inventory/domain"
	"github.com/ghuser/stockledger/services/inventory/domain/models"
	"github.com/ghuser/stockledger/services/inventory/domain/repositories"
)

// Ledger implements repositories.Ledger over the Store. The store mutex is
// held for the whole of every mutating call, so the append-and-project pair
// is atomic and concurrent reservations are serialized.
type Ledger struct {
	store *Store
}

// NewLedger returns a Ledger backed by store.
func NewLedger(store *Store) *Ledger {
	return &Ledger{store: store}
}

// Verify interface compliance.
var _ repositories.Ledger = (*Ledger)(nil)

// Append inserts the movement and applies its base-unit delta to the item's
// stock counter atomically.
func (l *Ledger) Append(_ context.Context, mv *models.Movement) error {
	s := l.store
	s.mu.Lock()
	defer s.mu.Unlock()
	return l.appendLocked(mv)
}

// appendLocked is Append without taking the store mutex; callers must hold it.
func (l *Ledger) appendLocked(mv *models.Movement) error {
	s := l.store
	item, ok := s.items[mv.ItemID]
	if !ok {
		return domain.ErrItemNotFound
	}

	newStock := item.StockQuantity.Add(mv.QuantityInBaseUnit)
	if mv.QuantityInBaseUnit.IsNegative() {
		if newStock.IsNegative() {
			return fmt.Errorf("%w: item %s has %s on hand", domain.ErrInsufficientStock, item.SKU, item.StockQuantity)
		}
		if newStock.LessThan(item.ReservedQuantity) {
			return fmt.Errorf("%w: item %s has %s unreserved", domain.ErrInsufficientStock, item.SKU, item.Available())
		}
	}

	item.StockQuantity = newStock
	stored := cloneMovement(mv)
	s.movements = append(s.movements, stored)
	s.movementByID[stored.ID] = stored
	return nil
}

// Reserve claims stock for all reservations or none.
func (l *Ledger) Reserve(_ context.Context, reservations []*models.Reservation) error {
	s := l.store
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate every line against the current snapshot before touching state,
	// so a failure on line N leaves lines 1..N-1 unreserved.
	claimed := make(map[uuid.UUID]decimal.Decimal)
	for _, res := range reservations {
		item, ok := s.items[res.ItemID]
		if !ok {
			return domain.ErrItemNotFound
		}
		key := resKey{orderType: res.OrderType, orderID: res.OrderID, itemID: res.ItemID}
		if existing, exists := s.reservations[key]; exists && existing.Status == models.ReservationActive {
			return fmt.Errorf("%w: item %s", domain.ErrAlreadyReserved, item.SKU)
		}
		want := claimed[res.ItemID].Add(res.Quantity)
		if want.GreaterThan(item.Available()) {
			return fmt.Errorf("%w: item %s has %s available, requested %s",
				domain.ErrInsufficientAvailableStock, item.SKU, item.Available(), want)
		}
		claimed[res.ItemID] = want
	}

	for _, res := range reservations {
		item := s.items[res.ItemID]
		item.ReservedQuantity = item.ReservedQuantity.Add(res.Quantity)
		key := resKey{orderType: res.OrderType, orderID: res.OrderID, itemID: res.ItemID}
		s.reservations[key] = cloneReservation(res)
	}
	return nil
}

// Release marks the order's active reservations released. A second release
// finds no active rows and is a no-op.
func (l *Ledger) Release(_ context.Context, key models.OrderKey) ([]*models.Reservation, error) {
	s := l.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var released []*models.Reservation
	for _, res := range s.reservations {
		if res.OrderType != key.OrderType || res.OrderID != key.OrderID || res.Status != models.ReservationActive {
			continue
		}
		item := s.items[res.ItemID]
		item.ReservedQuantity = item.ReservedQuantity.Sub(res.Quantity)
		res.Status = models.ReservationReleased
		res.UpdatedAt = time.Now().UTC()
		released = append(released, cloneReservation(res))
	}
	return released, nil
}

// Consume converts the order's active reservations into issue movements of
// exactly the reserved quantities.
func (l *Ledger) Consume(_ context.Context, key models.OrderKey, performedBy uuid.UUID, location string) ([]*models.Movement, error) {
	s := l.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var consumed []*models.Movement
	for _, res := range s.reservations {
		if res.OrderType != key.OrderType || res.OrderID != key.OrderID || res.Status != models.ReservationActive {
			continue
		}
		item := s.items[res.ItemID]

		// Releasing the claim and issuing the same quantity in one step keeps
		// reserved <= stock throughout.
		item.ReservedQuantity = item.ReservedQuantity.Sub(res.Quantity)
		mv := &models.Movement{
			ID:                 uuid.New(),
			ItemID:             res.ItemID,
			Type:               models.MovementIssue,
			Quantity:           res.Quantity.Neg(),
			UnitOfRecord:       item.Unit,
			QuantityInBaseUnit: res.Quantity.Neg(),
			Location:           location,
			PerformedBy:        performedBy,
			ReferenceType:      key.OrderType.ReferenceType(),
			ReferenceID:        key.OrderID,
			SyncStatus:         models.SyncNotRequired,
			CreatedAt:          time.Now().UTC(),
		}
		if item.StockControl {
			mv.SyncStatus = models.SyncPending
		}
		if err := l.appendLocked(mv); err != nil {
			// Roll the claim back; the reservation stays active.
			item.ReservedQuantity = item.ReservedQuantity.Add(res.Quantity)
			return nil, err
		}
		res.Status = models.ReservationConsumed
		res.UpdatedAt = time.Now().UTC()
		consumed = append(consumed, cloneMovement(mv))
	}
	return consumed, nil
}

// GetMovement retrieves one movement by ID.
func (l *Ledger) GetMovement(_ context.Context, id uuid.UUID) (*models.Movement, error) {
	s := l.store
	s.mu.Lock()
	defer s.mu.Unlock()

	mv, ok := s.movementByID[id]
	if !ok {
		return nil, domain.ErrMovementNotFound
	}
	return cloneMovement(mv), nil
}

// MovementsFor returns the item's movements newest-first.
func (l *Ledger) MovementsFor(_ context.Context, itemID uuid.UUID, f repositories.MovementFilters, opts repositories.QueryOpts) ([]*models.Movement, int, error) {
	s := l.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []*models.Movement
	for _, mv := range s.movements {
		if mv.ItemID != itemID {
			continue
		}
		if len(f.Types) > 0 && !containsType(f.Types, mv.Type) {
			continue
		}
		if f.BatchNumber != "" && mv.BatchNumber != f.BatchNumber {
			continue
		}
		if f.ExpiredOnly && mv.ExpiredAt == nil {
			continue
		}
		all = append(all, cloneMovement(mv))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := len(all)
	if opts.Offset >= total {
		return nil, total, nil
	}
	end := total
	if opts.Limit > 0 && opts.Offset+opts.Limit < end {
		end = opts.Offset + opts.Limit
	}
	return all[opts.Offset:end], total, nil
}

// ReceivedQuantity sums receipt movements referencing the purchase order.
func (l *Ledger) ReceivedQuantity(_ context.Context, purchaseOrderID uuid.UUID) (decimal.Decimal, error) {
	s := l.store
	s.mu.Lock()
	defer s.mu.Unlock()

	sum := decimal.Zero
	for _, mv := range s.movements {
		if mv.Type == models.MovementReceipt &&
			mv.ReferenceType == models.RefPurchaseOrder &&
			mv.ReferenceID == purchaseOrderID {
			sum = sum.Add(mv.QuantityInBaseUnit)
		}
	}
	return sum, nil
}

// WriteOffTotal sums the magnitude of write_off movements against a receipt.
func (l *Ledger) WriteOffTotal(_ context.Context, receiptMovementID uuid.UUID) (decimal.Decimal, error) {
	s := l.store
	s.mu.Lock()
	defer s.mu.Unlock()

	sum := decimal.Zero
	for _, mv := range s.movements {
		if mv.Type == models.MovementWriteOff &&
			mv.ReferenceType == models.RefBatchWriteOff &&
			mv.ReferenceID == receiptMovementID {
			sum = sum.Add(mv.QuantityInBaseUnit.Abs())
		}
	}
	return sum, nil
}

// WriteOffBatch appends a write_off movement for the batch's remaining
// quantity, atomically with the remaining-quantity check.
func (l *Ledger) WriteOffBatch(_ context.Context, receiptMovementID, performedBy uuid.UUID) (*models.Movement, error) {
	s := l.store
	s.mu.Lock()
	defer s.mu.Unlock()

	receipt, ok := s.movementByID[receiptMovementID]
	if !ok {
		return nil, domain.ErrMovementNotFound
	}
	if !receipt.IsBatchReceipt() {
		return nil, domain.ErrNotAReceipt
	}
	item, ok := s.items[receipt.ItemID]
	if !ok {
		return nil, domain.ErrItemNotFound
	}

	written := decimal.Zero
	for _, mv := range s.movements {
		if mv.Type == models.MovementWriteOff &&
			mv.ReferenceType == models.RefBatchWriteOff &&
			mv.ReferenceID == receiptMovementID {
			written = written.Add(mv.QuantityInBaseUnit.Abs())
		}
	}
	remaining := receipt.QuantityInBaseUnit.Sub(written)
	if !remaining.IsPositive() {
		return nil, fmt.Errorf("%w: batch %s", domain.ErrBatchAlreadyWrittenOff, receipt.BatchNumber)
	}

	mv := &models.Movement{
		ID:                 uuid.New(),
		ItemID:             receipt.ItemID,
		Type:               models.MovementWriteOff,
		Quantity:           remaining.Neg(),
		UnitOfRecord:       item.Unit,
		QuantityInBaseUnit: remaining.Neg(),
		BatchNumber:        receipt.BatchNumber,
		Location:           receipt.Location,
		PerformedBy:        performedBy,
		ReferenceType:      models.RefBatchWriteOff,
		ReferenceID:        receiptMovementID,
		SyncStatus:         models.SyncNotRequired,
		CreatedAt:          time.Now().UTC(),
	}
	if item.StockControl {
		mv.SyncStatus = models.SyncPending
	}
	if err := l.appendLocked(mv); err != nil {
		return nil, err
	}
	return cloneMovement(mv), nil
}

// SetSyncStatus updates the mirrored ERP status of a movement.
func (l *Ledger) SetSyncStatus(_ context.Context, movementID uuid.UUID, status models.SyncStatus) error {
	s := l.store
	s.mu.Lock()
	defer s.mu.Unlock()

	mv, ok := s.movementByID[movementID]
	if !ok {
		return domain.ErrMovementNotFound
	}
	mv.SyncStatus = status
	return nil
}

// MarkExpired flags a batch receipt as expired.
func (l *Ledger) MarkExpired(_ context.Context, movementID uuid.UUID, notes string, at time.Time) error {
	s := l.store
	s.mu.Lock()
	defer s.mu.Unlock()

	mv, ok := s.movementByID[movementID]
	if !ok {
		return domain.ErrMovementNotFound
	}
	if !mv.IsBatchReceipt() {
		return domain.ErrNotAReceipt
	}
	mv.ExpiredAt = &at
	mv.ExpiryNotes = notes
	return nil
}

// Reinstate clears the expired flag from a batch receipt.
func (l *Ledger) Reinstate(_ context.Context, movementID uuid.UUID) error {
	s := l.store
	s.mu.Lock()
	defer s.mu.Unlock()

	mv, ok := s.movementByID[movementID]
	if !ok {
		return domain.ErrMovementNotFound
	}
	if !mv.IsBatchReceipt() {
		return domain.ErrNotAReceipt
	}
	mv.ExpiredAt = nil
	mv.ExpiryNotes = ""
	return nil
}

// ExpiringReceipts lists unflagged batch receipts past their expiry date.
func (l *Ledger) ExpiringReceipts(_ context.Context, asOf time.Time) ([]*models.Movement, error) {
	s := l.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.Movement
	for _, mv := range s.movements {
		if mv.IsBatchReceipt() && mv.ExpiredAt == nil &&
			mv.ExpiryDate != nil && !mv.ExpiryDate.After(asOf) {
			out = append(out, cloneMovement(mv))
		}
	}
	return out, nil
}

func containsType(types []models.MovementType, t models.MovementType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}
