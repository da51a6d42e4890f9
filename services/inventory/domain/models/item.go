package models

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemType classifies what an item is within the production flow.
type ItemType string

const (
	ItemTypeRawMaterial ItemType = "raw_material"
	ItemTypeComponent   ItemType = "component"
	ItemTypeProduct     ItemType = "product"
)

// ParseItemType converts a string into an ItemType, rejecting unknown values.
func ParseItemType(s string) (ItemType, error) {
	switch ItemType(s) {
	case ItemTypeRawMaterial, ItemTypeComponent, ItemTypeProduct:
		return ItemType(s), nil
	default:
		return "", fmt.Errorf("unknown item type %q", s)
	}
}

// skuPrefix returns the SKU prefix for generated SKUs of this type.
func (t ItemType) skuPrefix() string {
	switch t {
	case ItemTypeRawMaterial:
		return "RM"
	case ItemTypeComponent:
		return "CP"
	default:
		return "PR"
	}
}

// Item is the catalog aggregate. Its two counters are cached projections of
// the movement ledger and the reservation set: stock_quantity equals the sum
// of all movements' base-unit quantities, reserved_quantity equals the sum of
// active reservations. They are only ever mutated through the Ledger.
type Item struct {
	ID               uuid.UUID
	OrgID            uuid.UUID // tenant scope — always filter by this in queries
	SKU              SKU
	Name             string
	Type             ItemType
	Unit             string // base unit of measure; movement quantities are projected into this
	StockQuantity    decimal.Decimal
	ReservedQuantity decimal.Decimal
	CostPerUnit      decimal.Decimal
	BatchTracking    bool
	StockControl     bool // when true, movements are mirrored into the ERP
	CreatedAt        time.Time
}

// NewItem constructs a valid Item aggregate with zeroed counters.
// An empty sku generates one from the item type.
func NewItem(orgID uuid.UUID, sku SKU, name string, itemType ItemType, unit string, costPerUnit decimal.Decimal, batchTracking, stockControl bool) (*Item, error) {
	if unit == "" {
		return nil, fmt.Errorf("base unit is required")
	}
	if costPerUnit.IsNegative() {
		return nil, fmt.Errorf("cost per unit must not be negative")
	}
	if sku == "" {
		sku = GenerateSKU(itemType)
	}
	return &Item{
		ID:               uuid.New(),
		OrgID:            orgID,
		SKU:              sku,
		Name:             name,
		Type:             itemType,
		Unit:             unit,
		StockQuantity:    decimal.Zero,
		ReservedQuantity: decimal.Zero,
		CostPerUnit:      costPerUnit,
		BatchTracking:    batchTracking,
		StockControl:     stockControl,
		CreatedAt:        time.Now().UTC(),
	}, nil
}

// Available is the quantity open for new reservations:
// stock_quantity - reserved_quantity.
func (i *Item) Available() decimal.Decimal {
	return i.StockQuantity.Sub(i.ReservedQuantity)
}

// CheckInvariant verifies 0 <= reserved_quantity <= stock_quantity.
func (i *Item) CheckInvariant() error {
	if i.ReservedQuantity.IsNegative() {
		return fmt.Errorf("item %s: reserved_quantity %s is negative", i.SKU, i.ReservedQuantity)
	}
	if i.ReservedQuantity.GreaterThan(i.StockQuantity) {
		return fmt.Errorf("item %s: reserved_quantity %s exceeds stock_quantity %s",
			i.SKU, i.ReservedQuantity, i.StockQuantity)
	}
	return nil
}

// SKU is a value object for the human-facing stock-keeping unit code.
// Constraints: 3-32 chars, uppercase letters, digits and dashes only.
type SKU string

const (
	minSKULength = 3
	maxSKULength = 32
)

// NewSKU validates and normalizes a human-assigned SKU (trims and uppercases).
func NewSKU(s string) (SKU, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) < minSKULength {
		return "", fmt.Errorf("sku must be at least %d characters", minSKULength)
	}
	if len(s) > maxSKULength {
		return "", fmt.Errorf("sku must not exceed %d characters", maxSKULength)
	}
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') && r != '-' {
			return "", fmt.Errorf("sku may only contain letters, digits and dashes")
		}
	}
	return SKU(s), nil
}

// GenerateSKU produces a system-assigned SKU: a type prefix plus 8 random hex chars.
func GenerateSKU(t ItemType) SKU {
	buf := make([]byte, 4)
	_, _ = rand.Read(buf)
	return SKU(t.skuPrefix() + "-" + strings.ToUpper(hex.EncodeToString(buf)))
}

// String returns the underlying string value.
func (s SKU) String() string {
	return string(s)
}
