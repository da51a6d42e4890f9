package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ghuser/stockledger/pkg/database"
	"github.com/ghuser/stockledger/pkg/events"
	invdomain "github.com/ghuser/stockledger/services/inventory/domain"
	domainevents "github.com/ghuser/stockledger/services/inventory/domain/events"
	"github.com/ghuser/stockledger/services/inventory/domain/models"
	"github.com/ghuser/stockledger/services/inventory/domain/repositories"
)

// OrderRepository implements repositories.OrderRepository against PostgreSQL.
// Orders and their lines span two tables written in one transaction.
type OrderRepository struct {
	db  *database.Database
	bus *events.EventBus
}

var _ repositories.OrderRepository = (*OrderRepository)(nil)

// NewOrderRepository returns an OrderRepository backed by the given connection
// pool and event bus.
func NewOrderRepository(db *database.Database, bus *events.EventBus) *OrderRepository {
	return &OrderRepository{db: db, bus: bus}
}

// Save persists a new order and its lines.
// Returns ErrSKUAlreadyExists-style conflict on duplicate order numbers.
func (r *OrderRepository) Save(ctx context.Context, order *models.Order) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO orders (id, org_id, order_type, order_no, channel, supplier_id,
			                     status, stock_reserved, reservation_notes, warehouse_location,
			                     created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			order.ID, order.OrgID, string(order.Type), order.OrderNo,
			nullString(string(order.Channel)), nullString(order.SupplierID),
			string(order.Status), order.StockReserved, nullString(order.ReservationNotes),
			order.Location, order.CreatedAt, order.UpdatedAt,
		); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
				return fmt.Errorf("order %s already exists: %w", order.OrderNo, err)
			}
			return fmt.Errorf("insert order: %w", err)
		}

		for i, line := range order.Lines {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO order_lines (order_id, line_no, item_id, quantity, unit, unit_price)
				 VALUES ($1, $2, $3, $4, $5, $6)`,
				order.ID, i+1, line.ItemID, line.Quantity, line.Unit, line.UnitPrice,
			); err != nil {
				return fmt.Errorf("insert order line %d: %w", i+1, err)
			}
		}
		return nil
	})
}

const selectOrderSQL = `
SELECT id, org_id, order_type, order_no, channel, supplier_id, status,
       stock_reserved, reservation_notes, warehouse_location, created_at, updated_at
FROM orders WHERE id = $1 AND org_id = $2`

// GetByID retrieves an order with its lines scoped to the given org.
// Returns ErrOrderNotFound if not found.
func (r *OrderRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Order, error) {
	var (
		order      models.Order
		orderType  string
		channel    sql.NullString
		supplierID sql.NullString
		status     string
		notes      sql.NullString
	)
	err := r.db.DB().QueryRowContext(ctx, selectOrderSQL, id, orgID).Scan(
		&order.ID, &order.OrgID, &orderType, &order.OrderNo, &channel, &supplierID,
		&status, &order.StockReserved, &notes, &order.Location,
		&order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", invdomain.ErrOrderNotFound, id)
		}
		return nil, fmt.Errorf("query order: %w", err)
	}
	order.Type = models.OrderType(orderType)
	order.Channel = models.Channel(channel.String)
	order.SupplierID = supplierID.String
	order.Status = models.OrderStatus(status)
	order.ReservationNotes = notes.String

	rows, err := r.db.DB().QueryContext(ctx,
		`SELECT item_id, quantity, unit, unit_price FROM order_lines
		 WHERE order_id = $1 ORDER BY line_no`, id)
	if err != nil {
		return nil, fmt.Errorf("query order lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line models.OrderLine
		if err := rows.Scan(&line.ItemID, &line.Quantity, &line.Unit, &line.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		order.Lines = append(order.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order lines: %w", err)
	}
	return &order, nil
}

// UpdateStatus records a status transition and publishes order.transitioned in
// the same transaction. The WHERE clause guards against lost updates: a
// concurrent transition that already moved the order away from `from` makes
// this call fail with ErrConcurrencyConflict.
func (r *OrderRepository) UpdateStatus(ctx context.Context, order *models.Order, from models.OrderStatus) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE orders SET status = $3, stock_reserved = $4, reservation_notes = $5, updated_at = $6
			 WHERE id = $1 AND status = $2`,
			order.ID, string(from), string(order.Status), order.StockReserved,
			nullString(order.ReservationNotes), order.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("update order status: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: order %s no longer in status %s",
				invdomain.ErrConcurrencyConflict, order.ID, from)
		}

		if r.bus != nil {
			if err := r.publishTransitioned(ctx, tx, order, from); err != nil {
				return fmt.Errorf("publish order transitioned: %w", err)
			}
		}
		return nil
	})
}

func (r *OrderRepository) publishTransitioned(ctx context.Context, tx *sql.Tx, order *models.Order, from models.OrderStatus) error {
	lines := make([]domainevents.OrderTransitionLine, 0, len(order.Lines))
	for _, line := range order.Lines {
		var sku string
		if err := tx.QueryRowContext(ctx,
			`SELECT sku FROM items WHERE id = $1`, line.ItemID).Scan(&sku); err != nil {
			return fmt.Errorf("resolve line sku: %w", err)
		}
		lines = append(lines, domainevents.OrderTransitionLine{
			ItemSKU:   sku,
			Quantity:  line.Quantity,
			Unit:      line.Unit,
			UnitPrice: line.UnitPrice,
		})
	}

	event := domainevents.OrderTransitionedEvent{
		EventID:    uuid.New(),
		Version:    1,
		OrderID:    order.ID,
		OrgID:      order.OrgID,
		OrderType:  string(order.Type),
		OrderNo:    order.OrderNo,
		SupplierID: order.SupplierID,
		From:       string(from),
		To:         string(order.Status),
		Lines:      lines,
		OccurredAt: time.Now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("event_id", event.EventID.String())
	msg.Metadata.Set("event_version", "1")
	p, err := r.bus.NewTxPublisher(tx)
	if err != nil {
		return fmt.Errorf("create publisher: %w", err)
	}
	return p.Publish(domainevents.TopicOrderTransitioned, msg)
}
