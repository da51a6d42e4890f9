package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ghuser/stockledger/pkg/database"
	"github.com/ghuser/stockledger/pkg/events"
	invdomain "github.com/ghuser/stockledger/services/inventory/domain"
	domainevents "github.com/ghuser/stockledger/services/inventory/domain/events"
	"github.com/ghuser/stockledger/services/inventory/domain/models"
	"github.com/ghuser/stockledger/services/inventory/domain/repositories"
)

// Ledger implements repositories.Ledger against PostgreSQL. Every mutating
// method locks the affected item rows with SELECT ... FOR UPDATE, so the
// movement insert and the counter update commit as one unit and concurrent
// operations against the same item serialize on the row lock.
type Ledger struct {
	db  *database.Database
	bus *events.EventBus
}

var _ repositories.Ledger = (*Ledger)(nil)

// NewLedger returns a Ledger backed by the given connection pool and event
// bus. The bus publishes MovementRecordedEvents transactionally with appends.
func NewLedger(db *database.Database, bus *events.EventBus) *Ledger {
	return &Ledger{db: db, bus: bus}
}

// lockedItem is the slice of the item row a ledger transaction needs.
type lockedItem struct {
	OrgID            uuid.UUID
	SKU              string
	Unit             string
	StockQuantity    decimal.Decimal
	ReservedQuantity decimal.Decimal
	StockControl     bool
}

const lockItemSQL = `
SELECT org_id, sku, unit, stock_quantity, reserved_quantity, stock_control
FROM items WHERE id = $1 FOR UPDATE`

func lockItem(ctx context.Context, tx *sql.Tx, itemID uuid.UUID) (*lockedItem, error) {
	var it lockedItem
	err := tx.QueryRowContext(ctx, lockItemSQL, itemID).Scan(
		&it.OrgID, &it.SKU, &it.Unit, &it.StockQuantity, &it.ReservedQuantity, &it.StockControl)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", invdomain.ErrItemNotFound, itemID)
		}
		return nil, fmt.Errorf("lock item: %w", err)
	}
	return &it, nil
}

const insertMovementSQL = `
INSERT INTO movements (id, item_id, movement_type, quantity, unit_of_record,
                       quantity_in_base_unit, batch_number, expiry_date, expired_at,
                       expiry_notes, warehouse_location, performed_by,
                       reference_type, reference_id, sync_status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

func insertMovement(ctx context.Context, tx *sql.Tx, mv *models.Movement) error {
	_, err := tx.ExecContext(ctx, insertMovementSQL,
		mv.ID, mv.ItemID, string(mv.Type), mv.Quantity, mv.UnitOfRecord,
		mv.QuantityInBaseUnit, nullString(mv.BatchNumber), mv.ExpiryDate, mv.ExpiredAt,
		nullString(mv.ExpiryNotes), mv.Location, mv.PerformedBy,
		string(mv.ReferenceType), mv.ReferenceID, string(mv.SyncStatus), mv.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert movement: %w", err)
	}
	return nil
}

// applyToStock writes new counter values for the item. The caller must hold
// the row lock.
func applyToStock(ctx context.Context, tx *sql.Tx, itemID uuid.UUID, stock, reserved decimal.Decimal) error {
	if _, err := tx.ExecContext(ctx,
		`UPDATE items SET stock_quantity = $2, reserved_quantity = $3 WHERE id = $1`,
		itemID, stock, reserved); err != nil {
		return fmt.Errorf("update stock counters: %w", err)
	}
	return nil
}

// Append inserts the movement, applies its base-unit quantity to the item's
// stock counter and publishes movement.recorded, all in one transaction.
func (l *Ledger) Append(ctx context.Context, mv *models.Movement) error {
	err := l.db.WithTx(ctx, func(tx *sql.Tx) error {
		item, err := lockItem(ctx, tx, mv.ItemID)
		if err != nil {
			return err
		}

		newStock := item.StockQuantity.Add(mv.QuantityInBaseUnit)
		if mv.QuantityInBaseUnit.IsNegative() {
			if newStock.IsNegative() {
				return fmt.Errorf("%w: stock %s, requested %s",
					invdomain.ErrInsufficientStock, item.StockQuantity, mv.QuantityInBaseUnit.Abs())
			}
			if newStock.LessThan(item.ReservedQuantity) {
				return fmt.Errorf("%w: %s reserved, only %s would remain",
					invdomain.ErrInsufficientStock, item.ReservedQuantity, newStock)
			}
		}

		if err := insertMovement(ctx, tx, mv); err != nil {
			return err
		}
		if err := applyToStock(ctx, tx, mv.ItemID, newStock, item.ReservedQuantity); err != nil {
			return err
		}
		return l.publishRecorded(tx, mv, item)
	})
	return mapConflict(err)
}

// Reserve atomically claims stock for all reservations or none of them.
// Item rows are locked in ID order so concurrent multi-line reservations
// cannot deadlock.
func (l *Ledger) Reserve(ctx context.Context, reservations []*models.Reservation) error {
	if len(reservations) == 0 {
		return nil
	}
	err := l.db.WithTx(ctx, func(tx *sql.Tx) error {
		ordered := make([]*models.Reservation, len(reservations))
		copy(ordered, reservations)
		sort.Slice(ordered, func(i, j int) bool {
			return strings.Compare(ordered[i].ItemID.String(), ordered[j].ItemID.String()) < 0
		})

		// Track cumulative claims so multiple lines of the same item are
		// checked against one snapshot.
		reservedSoFar := make(map[uuid.UUID]decimal.Decimal)
		items := make(map[uuid.UUID]*lockedItem)

		for _, res := range ordered {
			item, ok := items[res.ItemID]
			if !ok {
				var err error
				item, err = lockItem(ctx, tx, res.ItemID)
				if err != nil {
					return err
				}
				items[res.ItemID] = item
				reservedSoFar[res.ItemID] = item.ReservedQuantity
			}

			var exists bool
			if err := tx.QueryRowContext(ctx,
				`SELECT EXISTS (SELECT 1 FROM reservations
				 WHERE order_type = $1 AND order_id = $2 AND item_id = $3 AND status = 'active')`,
				string(res.OrderType), res.OrderID, res.ItemID).Scan(&exists); err != nil {
				return fmt.Errorf("check existing reservation: %w", err)
			}
			if exists {
				return fmt.Errorf("%w: order %s, item %s",
					invdomain.ErrAlreadyReserved, res.OrderID, res.ItemID)
			}

			newReserved := reservedSoFar[res.ItemID].Add(res.Quantity)
			if newReserved.GreaterThan(item.StockQuantity) {
				available := item.StockQuantity.Sub(reservedSoFar[res.ItemID])
				return fmt.Errorf("%w: item %s has %s available, %s requested",
					invdomain.ErrInsufficientAvailableStock, item.SKU, available, res.Quantity)
			}
			reservedSoFar[res.ItemID] = newReserved
		}

		for _, res := range ordered {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO reservations (id, order_type, order_id, item_id, quantity, status, created_at, updated_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				res.ID, string(res.OrderType), res.OrderID, res.ItemID,
				res.Quantity, string(res.Status), res.CreatedAt, res.UpdatedAt); err != nil {
				return fmt.Errorf("insert reservation: %w", err)
			}
		}
		for itemID, reserved := range reservedSoFar {
			if err := applyToStock(ctx, tx, itemID, items[itemID].StockQuantity, reserved); err != nil {
				return err
			}
		}
		return nil
	})
	return mapConflict(err)
}

const selectActiveReservationsSQL = `
SELECT id, order_type, order_id, item_id, quantity, status, created_at, updated_at
FROM reservations
WHERE order_type = $1 AND order_id = $2 AND status = 'active'
ORDER BY item_id FOR UPDATE`

// Release marks the order's active reservations as released and credits their
// quantities back to available stock. Releasing an already released or
// consumed order is a no-op.
func (l *Ledger) Release(ctx context.Context, key models.OrderKey) ([]*models.Reservation, error) {
	var released []*models.Reservation
	err := l.db.WithTx(ctx, func(tx *sql.Tx) error {
		active, err := queryReservations(ctx, tx, key)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		for _, res := range active {
			item, err := lockItem(ctx, tx, res.ItemID)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				`UPDATE reservations SET status = 'released', updated_at = $2 WHERE id = $1`,
				res.ID, now); err != nil {
				return fmt.Errorf("release reservation: %w", err)
			}
			if err := applyToStock(ctx, tx, res.ItemID,
				item.StockQuantity, item.ReservedQuantity.Sub(res.Quantity)); err != nil {
				return err
			}
			res.Status = models.ReservationReleased
			res.UpdatedAt = now
			released = append(released, res)
		}
		return nil
	})
	if err != nil {
		return nil, mapConflict(err)
	}
	return released, nil
}

// Consume converts each active reservation of the order into an issue
// movement of exactly the reserved quantity, decrementing stock and reserved
// together. The appended movements are published as movement.recorded.
func (l *Ledger) Consume(ctx context.Context, key models.OrderKey, performedBy uuid.UUID, location string) ([]*models.Movement, error) {
	var consumed []*models.Movement
	err := l.db.WithTx(ctx, func(tx *sql.Tx) error {
		active, err := queryReservations(ctx, tx, key)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		for _, res := range active {
			item, err := lockItem(ctx, tx, res.ItemID)
			if err != nil {
				return err
			}

			sync := models.SyncNotRequired
			if item.StockControl {
				sync = models.SyncPending
			}
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
				SyncStatus:         sync,
				CreatedAt:          now,
			}
			if err := insertMovement(ctx, tx, mv); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				`UPDATE reservations SET status = 'consumed', updated_at = $2 WHERE id = $1`,
				res.ID, now); err != nil {
				return fmt.Errorf("consume reservation: %w", err)
			}
			if err := applyToStock(ctx, tx, res.ItemID,
				item.StockQuantity.Sub(res.Quantity),
				item.ReservedQuantity.Sub(res.Quantity)); err != nil {
				return err
			}
			if err := l.publishRecorded(tx, mv, item); err != nil {
				return err
			}
			consumed = append(consumed, mv)
		}
		return nil
	})
	if err != nil {
		return nil, mapConflict(err)
	}
	return consumed, nil
}

const selectMovementColumns = `id, item_id, movement_type, quantity, unit_of_record,
       quantity_in_base_unit, batch_number, expiry_date, expired_at, expiry_notes,
       warehouse_location, performed_by, reference_type, reference_id, sync_status, created_at`

// GetMovement retrieves a single movement by ID.
func (l *Ledger) GetMovement(ctx context.Context, id uuid.UUID) (*models.Movement, error) {
	row := l.db.DB().QueryRowContext(ctx,
		`SELECT `+selectMovementColumns+` FROM movements WHERE id = $1`, id)
	mv, err := scanMovement(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", invdomain.ErrMovementNotFound, id)
		}
		return nil, fmt.Errorf("query movement: %w", err)
	}
	return mv, nil
}

// MovementsFor returns the item's movements newest-first with optional filters.
func (l *Ledger) MovementsFor(ctx context.Context, itemID uuid.UUID, f repositories.MovementFilters, opts repositories.QueryOpts) ([]*models.Movement, int, error) {
	where := []string{"item_id = $1"}
	args := []any{itemID}

	if len(f.Types) > 0 {
		placeholders := make([]string, len(f.Types))
		for i, t := range f.Types {
			args = append(args, string(t))
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		where = append(where, fmt.Sprintf("movement_type IN (%s)", strings.Join(placeholders, ", ")))
	}
	if f.BatchNumber != "" {
		args = append(args, f.BatchNumber)
		where = append(where, fmt.Sprintf("batch_number = $%d", len(args)))
	}
	if f.ExpiredOnly {
		where = append(where, "expired_at IS NOT NULL")
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := l.db.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM movements WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count movements: %w", err)
	}

	args = append(args, opts.Limit, opts.Offset)
	query := fmt.Sprintf(`SELECT %s FROM movements WHERE %s
		ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		selectMovementColumns, cond, len(args)-1, len(args))

	rows, err := l.db.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query movements: %w", err)
	}
	defer rows.Close()

	var movements []*models.Movement
	for rows.Next() {
		mv, err := scanMovement(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan movement: %w", err)
		}
		movements = append(movements, mv)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate movements: %w", err)
	}
	return movements, total, nil
}

// ReceivedQuantity sums receipt movements referencing the purchase order.
func (l *Ledger) ReceivedQuantity(ctx context.Context, purchaseOrderID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := l.db.DB().QueryRowContext(ctx,
		`SELECT COALESCE(SUM(quantity_in_base_unit), 0) FROM movements
		 WHERE movement_type = 'receipt' AND reference_type = 'purchase_order' AND reference_id = $1`,
		purchaseOrderID).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum received quantity: %w", err)
	}
	return sum, nil
}

// WriteOffTotal sums the magnitude of write_off movements referencing the
// given batch receipt movement.
func (l *Ledger) WriteOffTotal(ctx context.Context, receiptMovementID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := l.db.DB().QueryRowContext(ctx,
		`SELECT COALESCE(SUM(ABS(quantity_in_base_unit)), 0) FROM movements
		 WHERE movement_type = 'write_off' AND reference_type = 'batch_write_off' AND reference_id = $1`,
		receiptMovementID).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum write-offs: %w", err)
	}
	return sum, nil
}

// WriteOffBatch appends a write_off movement for the batch's remaining
// quantity. The receipt row is locked for the duration, so two concurrent
// write-offs of the same batch cannot both see a remainder.
func (l *Ledger) WriteOffBatch(ctx context.Context, receiptMovementID, performedBy uuid.UUID) (*models.Movement, error) {
	var writeOff *models.Movement
	err := l.db.WithTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`SELECT `+selectMovementColumns+` FROM movements WHERE id = $1 FOR UPDATE`,
			receiptMovementID)
		receipt, err := scanMovement(row)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: %s", invdomain.ErrMovementNotFound, receiptMovementID)
			}
			return fmt.Errorf("lock receipt: %w", err)
		}
		if !receipt.IsBatchReceipt() {
			return fmt.Errorf("%w: movement %s is not a batch receipt",
				invdomain.ErrNotAReceipt, receiptMovementID)
		}

		var priorWriteOffs decimal.Decimal
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(SUM(ABS(quantity_in_base_unit)), 0) FROM movements
			 WHERE movement_type = 'write_off' AND reference_type = 'batch_write_off' AND reference_id = $1`,
			receiptMovementID).Scan(&priorWriteOffs); err != nil {
			return fmt.Errorf("sum prior write-offs: %w", err)
		}
		remaining := receipt.QuantityInBaseUnit.Sub(priorWriteOffs)
		if !remaining.IsPositive() {
			return fmt.Errorf("%w: batch %s", invdomain.ErrBatchAlreadyWrittenOff, receipt.BatchNumber)
		}

		item, err := lockItem(ctx, tx, receipt.ItemID)
		if err != nil {
			return err
		}
		newStock := item.StockQuantity.Sub(remaining)
		if newStock.IsNegative() || newStock.LessThan(item.ReservedQuantity) {
			return fmt.Errorf("%w: batch remainder %s exceeds unreserved stock",
				invdomain.ErrInsufficientStock, remaining)
		}

		sync := models.SyncNotRequired
		if item.StockControl {
			sync = models.SyncPending
		}
		writeOff = &models.Movement{
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
			SyncStatus:         sync,
			CreatedAt:          time.Now().UTC(),
		}
		if err := insertMovement(ctx, tx, writeOff); err != nil {
			return err
		}
		if err := applyToStock(ctx, tx, receipt.ItemID, newStock, item.ReservedQuantity); err != nil {
			return err
		}
		return l.publishRecorded(tx, writeOff, item)
	})
	if err != nil {
		return nil, mapConflict(err)
	}
	return writeOff, nil
}

// SetSyncStatus updates the mirrored ERP status of a movement.
func (l *Ledger) SetSyncStatus(ctx context.Context, movementID uuid.UUID, status models.SyncStatus) error {
	res, err := l.db.DB().ExecContext(ctx,
		`UPDATE movements SET sync_status = $2 WHERE id = $1`, movementID, string(status))
	if err != nil {
		return fmt.Errorf("update sync status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", invdomain.ErrMovementNotFound, movementID)
	}
	return nil
}

// MarkExpired flags a batch receipt as expired without touching stock.
func (l *Ledger) MarkExpired(ctx context.Context, movementID uuid.UUID, notes string, at time.Time) error {
	return l.db.WithTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`SELECT `+selectMovementColumns+` FROM movements WHERE id = $1 FOR UPDATE`, movementID)
		mv, err := scanMovement(row)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: %s", invdomain.ErrMovementNotFound, movementID)
			}
			return fmt.Errorf("lock movement: %w", err)
		}
		if !mv.IsBatchReceipt() {
			return fmt.Errorf("%w: movement %s", invdomain.ErrNotAReceipt, movementID)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE movements SET expired_at = $2, expiry_notes = $3 WHERE id = $1`,
			movementID, at, nullString(notes)); err != nil {
			return fmt.Errorf("mark expired: %w", err)
		}
		return nil
	})
}

// Reinstate clears the expired flag from a batch receipt.
func (l *Ledger) Reinstate(ctx context.Context, movementID uuid.UUID) error {
	return l.db.WithTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`SELECT `+selectMovementColumns+` FROM movements WHERE id = $1 FOR UPDATE`, movementID)
		mv, err := scanMovement(row)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: %s", invdomain.ErrMovementNotFound, movementID)
			}
			return fmt.Errorf("lock movement: %w", err)
		}
		if !mv.IsBatchReceipt() {
			return fmt.Errorf("%w: movement %s", invdomain.ErrNotAReceipt, movementID)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE movements SET expired_at = NULL, expiry_notes = NULL WHERE id = $1`,
			movementID); err != nil {
			return fmt.Errorf("reinstate: %w", err)
		}
		return nil
	})
}

// ExpiringReceipts lists batch receipts whose expiry date has passed but that
// have not been flagged yet.
func (l *Ledger) ExpiringReceipts(ctx context.Context, asOf time.Time) ([]*models.Movement, error) {
	rows, err := l.db.DB().QueryContext(ctx,
		`SELECT `+selectMovementColumns+` FROM movements
		 WHERE movement_type = 'receipt' AND batch_number IS NOT NULL
		   AND expiry_date IS NOT NULL AND expiry_date <= $1 AND expired_at IS NULL
		 ORDER BY expiry_date, id`, asOf)
	if err != nil {
		return nil, fmt.Errorf("query expiring receipts: %w", err)
	}
	defer rows.Close()

	var receipts []*models.Movement
	for rows.Next() {
		mv, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan receipt: %w", err)
		}
		receipts = append(receipts, mv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate receipts: %w", err)
	}
	return receipts, nil
}

func queryReservations(ctx context.Context, tx *sql.Tx, key models.OrderKey) ([]*models.Reservation, error) {
	rows, err := tx.QueryContext(ctx, selectActiveReservationsSQL, string(key.OrderType), key.OrderID)
	if err != nil {
		return nil, fmt.Errorf("query reservations: %w", err)
	}
	defer rows.Close()

	var reservations []*models.Reservation
	for rows.Next() {
		var (
			res       models.Reservation
			orderType string
			status    string
		)
		if err := rows.Scan(&res.ID, &orderType, &res.OrderID, &res.ItemID,
			&res.Quantity, &status, &res.CreatedAt, &res.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		res.OrderType = models.OrderType(orderType)
		res.Status = models.ReservationStatus(status)
		reservations = append(reservations, &res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reservations: %w", err)
	}
	return reservations, nil
}

func (l *Ledger) publishRecorded(tx *sql.Tx, mv *models.Movement, item *lockedItem) error {
	if l.bus == nil {
		return nil
	}
	event := domainevents.MovementRecordedEvent{
		EventID:        uuid.New(),
		Version:        1,
		MovementID:     mv.ID,
		ItemID:         mv.ItemID,
		OrgID:          item.OrgID,
		ItemSKU:        item.SKU,
		MovementType:   string(mv.Type),
		QuantityInBase: mv.QuantityInBaseUnit,
		BaseUnit:       item.Unit,
		BatchNumber:    mv.BatchNumber,
		Location:       mv.Location,
		ReferenceType:  string(mv.ReferenceType),
		ReferenceID:    mv.ReferenceID,
		SyncRequired:   mv.SyncStatus == models.SyncPending,
		OccurredAt:     mv.CreatedAt,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("event_id", event.EventID.String())
	msg.Metadata.Set("event_version", "1")
	p, err := l.bus.NewTxPublisher(tx)
	if err != nil {
		return fmt.Errorf("create publisher: %w", err)
	}
	return p.Publish(domainevents.TopicMovementRecorded, msg)
}

func scanMovement(row rowScanner) (*models.Movement, error) {
	var (
		mv            models.Movement
		movementType  string
		batchNumber   sql.NullString
		expiryDate    sql.NullTime
		expiredAt     sql.NullTime
		expiryNotes   sql.NullString
		referenceType string
		syncStatus    string
	)
	if err := row.Scan(
		&mv.ID, &mv.ItemID, &movementType, &mv.Quantity, &mv.UnitOfRecord,
		&mv.QuantityInBaseUnit, &batchNumber, &expiryDate, &expiredAt, &expiryNotes,
		&mv.Location, &mv.PerformedBy, &referenceType, &mv.ReferenceID,
		&syncStatus, &mv.CreatedAt,
	); err != nil {
		return nil, err
	}
	mv.Type = models.MovementType(movementType)
	mv.BatchNumber = batchNumber.String
	if expiryDate.Valid {
		t := expiryDate.Time
		mv.ExpiryDate = &t
	}
	if expiredAt.Valid {
		t := expiredAt.Time
		mv.ExpiredAt = &t
	}
	mv.ExpiryNotes = expiryNotes.String
	mv.ReferenceType = models.ReferenceType(referenceType)
	mv.SyncStatus = models.SyncStatus(syncStatus)
	return &mv, nil
}

// mapConflict translates lock-race errors into the domain's retryable
// conflict sentinel. Other errors pass through untouched.
func mapConflict(err error) error {
	if err == nil {
		return nil
	}
	if database.IsRetryable(err) {
		return fmt.Errorf("%w: %v", invdomain.ErrConcurrencyConflict, err)
	}
	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
