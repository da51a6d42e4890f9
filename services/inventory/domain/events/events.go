package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Watermill topics published by the inventory context. The erpsync worker
// subscribes to all three to enqueue ERP mirror tasks.
const (
	TopicItemCreated       = "item.created"
	TopicMovementRecorded  = "movement.recorded"
	TopicOrderTransitioned = "order.transitioned"
)

// ItemCreatedEvent is published after a new catalog item is persisted.
// Stock-controlled items trigger an ERP createItem sync.
type ItemCreatedEvent struct {
	EventID       uuid.UUID       `json:"event_id"` // Unique publish-time identifier for deduplication
	Version       int             `json:"version"`  // Schema version; increment on breaking changes
	ItemID        uuid.UUID       `json:"item_id"`
	OrgID         uuid.UUID       `json:"org_id"`
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	Unit          string          `json:"unit"`
	StockControl  bool            `json:"stock_control"`
	BatchTracking bool            `json:"batch_tracking"`
	CostPerUnit   decimal.Decimal `json:"cost_per_unit"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// MovementRecordedEvent is published in the same transaction as a ledger
// append. It carries everything the sync orchestrator needs to build the ERP
// call without re-reading inventory state.
type MovementRecordedEvent struct {
	EventID        uuid.UUID       `json:"event_id"`
	Version        int             `json:"version"`
	MovementID     uuid.UUID       `json:"movement_id"`
	ItemID         uuid.UUID       `json:"item_id"`
	OrgID          uuid.UUID       `json:"org_id"`
	ItemSKU        string          `json:"item_sku"`
	MovementType   string          `json:"movement_type"`
	QuantityInBase decimal.Decimal `json:"quantity_in_base_unit"`
	BaseUnit       string          `json:"base_unit"`
	BatchNumber    string          `json:"batch_number,omitempty"`
	Location       string          `json:"warehouse_location"`
	ReferenceType  string          `json:"reference_type"`
	ReferenceID    uuid.UUID       `json:"reference_id"`
	SyncRequired   bool            `json:"sync_required"`
	OccurredAt     time.Time       `json:"occurred_at"`
}

// OrderTransitionLine is the denormalized order line carried on transition
// events, keyed by SKU because the ERP knows nothing of local item IDs.
type OrderTransitionLine struct {
	ItemSKU   string          `json:"item_sku"`
	Quantity  decimal.Decimal `json:"quantity"`
	Unit      string          `json:"unit"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// OrderTransitionedEvent is published in the same transaction as an order
// status update. Purchase order submissions and cancellations are mirrored
// into the ERP from this event.
type OrderTransitionedEvent struct {
	EventID    uuid.UUID             `json:"event_id"`
	Version    int                   `json:"version"`
	OrderID    uuid.UUID             `json:"order_id"`
	OrgID      uuid.UUID             `json:"org_id"`
	OrderType  string                `json:"order_type"`
	OrderNo    string                `json:"order_no"`
	SupplierID string                `json:"supplier_id,omitempty"`
	From       string                `json:"from_status"`
	To         string                `json:"to_status"`
	Lines      []OrderTransitionLine `json:"lines"`
	OccurredAt time.Time             `json:"occurred_at"`
}
