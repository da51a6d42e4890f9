package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MovementType classifies a stock movement. The type fixes the sign of the
// quantity: inbound types are positive, outbound types negative, adjustments
// may be either.
type MovementType string

const (
	MovementReceipt           MovementType = "receipt"
	MovementIssue             MovementType = "issue"
	MovementAdjustment        MovementType = "adjustment"
	MovementReturn            MovementType = "return"
	MovementProductionProduce MovementType = "production_produce"
	MovementWriteOff          MovementType = "write_off"
)

// ParseMovementType converts a string into a MovementType, rejecting unknown values.
func ParseMovementType(s string) (MovementType, error) {
	switch MovementType(s) {
	case MovementReceipt, MovementIssue, MovementAdjustment,
		MovementReturn, MovementProductionProduce, MovementWriteOff:
		return MovementType(s), nil
	default:
		return "", fmt.Errorf("unknown movement type %q", s)
	}
}

// Direction returns +1 for inbound types, -1 for outbound types and 0 for
// adjustments (which carry their own sign).
func (t MovementType) Direction() int {
	switch t {
	case MovementReceipt, MovementReturn, MovementProductionProduce:
		return 1
	case MovementIssue, MovementWriteOff:
		return -1
	default:
		return 0
	}
}

// SyncStatus tracks whether a movement has been mirrored into the ERP.
type SyncStatus string

const (
	SyncNotRequired SyncStatus = "not_required"
	SyncPending     SyncStatus = "pending"
	SyncSuccess     SyncStatus = "success"
	SyncFailed      SyncStatus = "failed"
)

// ReferenceType names the order or process that caused a movement.
type ReferenceType string

const (
	RefPurchaseOrder ReferenceType = "purchase_order"
	RefSalesOrder    ReferenceType = "sales_order"
	RefAssemblyOrder ReferenceType = "assembly_order"
	RefBatchWriteOff ReferenceType = "batch_write_off"
	RefManual        ReferenceType = "manual"
)

// ParseReferenceType converts a string into a ReferenceType, rejecting unknown values.
func ParseReferenceType(s string) (ReferenceType, error) {
	switch ReferenceType(s) {
	case RefPurchaseOrder, RefSalesOrder, RefAssemblyOrder, RefBatchWriteOff, RefManual:
		return ReferenceType(s), nil
	default:
		return "", fmt.Errorf("unknown reference type %q", s)
	}
}

// MovementDraft is the caller-supplied portion of a movement, before unit
// conversion and projection.
type MovementDraft struct {
	ItemID        uuid.UUID
	Type          MovementType
	Quantity      decimal.Decimal // signed, in Unit
	Unit          string
	BatchNumber   string
	ExpiryDate    *time.Time
	Location      string
	ReferenceType ReferenceType
	ReferenceID   uuid.UUID
}

// Validate rejects drafts whose quantity is zero or whose sign contradicts
// the movement type. This runs before any mutation is attempted.
func (d MovementDraft) Validate() error {
	if d.ItemID == uuid.Nil {
		return fmt.Errorf("item_id is required")
	}
	if d.Quantity.IsZero() {
		return fmt.Errorf("quantity must be non-zero")
	}
	if d.Unit == "" {
		return fmt.Errorf("unit is required")
	}
	switch dir := d.Type.Direction(); {
	case dir > 0 && d.Quantity.IsNegative():
		return fmt.Errorf("%s movements must have a positive quantity", d.Type)
	case dir < 0 && d.Quantity.IsPositive():
		return fmt.Errorf("%s movements must have a negative quantity", d.Type)
	}
	if d.ExpiryDate != nil && d.Type != MovementReceipt {
		return fmt.Errorf("expiry date is only valid on receipts")
	}
	if _, err := ParseReferenceType(string(d.ReferenceType)); err != nil {
		return err
	}
	return nil
}

// Movement is one immutable row of the append-only stock ledger. Only
// sync_status and the expiry metadata may change after creation.
type Movement struct {
	ID                 uuid.UUID
	ItemID             uuid.UUID
	Type               MovementType
	Quantity           decimal.Decimal // signed, in UnitOfRecord
	UnitOfRecord       string
	QuantityInBaseUnit decimal.Decimal // signed, in the item's base unit
	BatchNumber        string
	ExpiryDate         *time.Time
	ExpiredAt          *time.Time
	ExpiryNotes        string
	Location           string
	PerformedBy        uuid.UUID
	ReferenceType      ReferenceType
	ReferenceID        uuid.UUID
	SyncStatus         SyncStatus
	CreatedAt          time.Time
}

// NewMovement builds a Movement from a validated draft. quantityInBase is the
// draft quantity converted into the item's base unit. Sync status starts as
// pending for stock-controlled items and not_required otherwise.
func NewMovement(d MovementDraft, item *Item, quantityInBase decimal.Decimal, performedBy uuid.UUID) *Movement {
	sync := SyncNotRequired
	if item.StockControl {
		sync = SyncPending
	}
	return &Movement{
		ID:                 uuid.New(),
		ItemID:             item.ID,
		Type:               d.Type,
		Quantity:           d.Quantity,
		UnitOfRecord:       d.Unit,
		QuantityInBaseUnit: quantityInBase,
		BatchNumber:        d.BatchNumber,
		ExpiryDate:         d.ExpiryDate,
		Location:           d.Location,
		PerformedBy:        performedBy,
		ReferenceType:      d.ReferenceType,
		ReferenceID:        d.ReferenceID,
		SyncStatus:         sync,
		CreatedAt:          time.Now().UTC(),
	}
}

// IsBatchReceipt reports whether the movement is a receipt carrying a batch
// number, i.e. eligible for expiry tracking and write-off.
func (m *Movement) IsBatchReceipt() bool {
	return m.Type == MovementReceipt && m.BatchNumber != ""
}
