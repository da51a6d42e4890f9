package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderKey identifies the owner of a reservation. Releases are keyed by this
// plus the item, never by a bare quantity, which is what makes release
// idempotent.
type OrderKey struct {
	OrderType OrderType
	OrderID   uuid.UUID
}

// ReservationStatus is the lifecycle of a provisional stock claim.
type ReservationStatus string

const (
	// ReservationActive counts toward the item's reserved_quantity.
	ReservationActive ReservationStatus = "active"
	// ReservationReleased was credited back to available stock (order cancelled).
	ReservationReleased ReservationStatus = "released"
	// ReservationConsumed was converted into an issue movement (order completed).
	ReservationConsumed ReservationStatus = "consumed"
)

// Reservation is a provisional claim of quantity on an item by an order.
// The sum of active reservation quantities for an item always equals the
// item's reserved_quantity.
type Reservation struct {
	ID        uuid.UUID
	OrderType OrderType
	OrderID   uuid.UUID
	ItemID    uuid.UUID
	Quantity  decimal.Decimal // always positive, in the item's base unit
	Status    ReservationStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewReservation constructs an active reservation for one order line.
func NewReservation(key OrderKey, itemID uuid.UUID, quantity decimal.Decimal) *Reservation {
	now := time.Now().UTC()
	return &Reservation{
		ID:        uuid.New(),
		OrderType: key.OrderType,
		OrderID:   key.OrderID,
		ItemID:    itemID,
		Quantity:  quantity,
		Status:    ReservationActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
