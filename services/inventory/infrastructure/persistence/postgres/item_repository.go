// Package postgres implements the inventory domain repositories against
// PostgreSQL. All counter mutations go through row locks (SELECT ... FOR
// UPDATE) so concurrent ledger operations on the same item serialize.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

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

const pgUniqueViolation = "23505"

// ItemRepository implements repositories.ItemRepository against PostgreSQL.
type ItemRepository struct {
	db  *database.Database
	bus *events.EventBus
}

var _ repositories.ItemRepository = (*ItemRepository)(nil)

// NewItemRepository returns an ItemRepository backed by the given connection
// pool and event bus. The bus publishes ItemCreatedEvents transactionally with
// the insert.
func NewItemRepository(db *database.Database, bus *events.EventBus) *ItemRepository {
	return &ItemRepository{db: db, bus: bus}
}

const insertItemSQL = `
INSERT INTO items (id, org_id, sku, name, item_type, unit, stock_quantity,
                   reserved_quantity, cost_per_unit, batch_tracking, stock_control, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

// Save persists a new Item and publishes an ItemCreatedEvent within the same
// transaction. Returns ErrSKUAlreadyExists on unique constraint violations.
func (r *ItemRepository) Save(ctx context.Context, item *models.Item) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, insertItemSQL,
			item.ID, item.OrgID, item.SKU.String(), item.Name, string(item.Type),
			item.Unit, item.StockQuantity, item.ReservedQuantity, item.CostPerUnit,
			item.BatchTracking, item.StockControl, item.CreatedAt,
		); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
				return fmt.Errorf("%w: %s", invdomain.ErrSKUAlreadyExists, item.SKU)
			}
			return fmt.Errorf("insert item: %w", err)
		}

		if r.bus != nil {
			if err := r.publishCreated(tx, item); err != nil {
				return fmt.Errorf("publish item created: %w", err)
			}
		}
		return nil
	})
}

const selectItemColumns = `id, org_id, sku, name, item_type, unit, stock_quantity,
       reserved_quantity, cost_per_unit, batch_tracking, stock_control, created_at`

// GetByID retrieves an Item by ID scoped to the given org.
// Returns ErrItemNotFound if not found.
func (r *ItemRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Item, error) {
	row := r.db.DB().QueryRowContext(ctx,
		`SELECT `+selectItemColumns+` FROM items WHERE id = $1 AND org_id = $2`, id, orgID)
	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", invdomain.ErrItemNotFound, id)
		}
		return nil, fmt.Errorf("query item: %w", err)
	}
	return item, nil
}

// GetBySKU retrieves an Item by SKU scoped to the given org.
// Returns ErrItemNotFound if not found.
func (r *ItemRepository) GetBySKU(ctx context.Context, orgID uuid.UUID, sku models.SKU) (*models.Item, error) {
	row := r.db.DB().QueryRowContext(ctx,
		`SELECT `+selectItemColumns+` FROM items WHERE sku = $1 AND org_id = $2`, sku.String(), orgID)
	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: sku %s", invdomain.ErrItemNotFound, sku)
		}
		return nil, fmt.Errorf("query item by sku: %w", err)
	}
	return item, nil
}

// FindByOrgID retrieves a paginated list of items and total count for the org.
func (r *ItemRepository) FindByOrgID(ctx context.Context, orgID uuid.UUID, opts repositories.QueryOpts) ([]*models.Item, int, error) {
	rows, err := r.db.DB().QueryContext(ctx,
		`SELECT `+selectItemColumns+` FROM items
		 WHERE org_id = $1 ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`,
		orgID, opts.Limit, opts.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var items []*models.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate items: %w", err)
	}

	var total int
	if err := r.db.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM items WHERE org_id = $1`, orgID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count items: %w", err)
	}
	return items, total, nil
}

func (r *ItemRepository) publishCreated(tx *sql.Tx, item *models.Item) error {
	event := domainevents.ItemCreatedEvent{
		EventID:       uuid.New(),
		Version:       1,
		ItemID:        item.ID,
		OrgID:         item.OrgID,
		SKU:           item.SKU.String(),
		Name:          item.Name,
		Unit:          item.Unit,
		StockControl:  item.StockControl,
		BatchTracking: item.BatchTracking,
		CostPerUnit:   item.CostPerUnit,
		OccurredAt:    item.CreatedAt,
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
	return p.Publish(domainevents.TopicItemCreated, msg)
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*models.Item, error) {
	var (
		item     models.Item
		sku      string
		itemType string
	)
	if err := row.Scan(
		&item.ID, &item.OrgID, &sku, &item.Name, &itemType, &item.Unit,
		&item.StockQuantity, &item.ReservedQuantity, &item.CostPerUnit,
		&item.BatchTracking, &item.StockControl, &item.CreatedAt,
	); err != nil {
		return nil, err
	}
	item.SKU = models.SKU(sku)
	item.Type = models.ItemType(itemType)
	return &item, nil
}
