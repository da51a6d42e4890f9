package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderType distinguishes the three order state machines.
type OrderType string

const (
	OrderSales    OrderType = "sales"
	OrderAssembly OrderType = "assembly"
	OrderPurchase OrderType = "purchase"
)

// ParseOrderType converts a string into an OrderType, rejecting unknown values.
func ParseOrderType(s string) (OrderType, error) {
	switch OrderType(s) {
	case OrderSales, OrderAssembly, OrderPurchase:
		return OrderType(s), nil
	default:
		return "", fmt.Errorf("unknown order type %q", s)
	}
}

// ReferenceType returns the movement reference type for movements caused by
// this kind of order.
func (t OrderType) ReferenceType() ReferenceType {
	switch t {
	case OrderSales:
		return RefSalesOrder
	case OrderAssembly:
		return RefAssemblyOrder
	default:
		return RefPurchaseOrder
	}
}

// OrderStatus is one state of an order's lifecycle. Which statuses are valid
// depends on the order type; see the transitions domain service.
type OrderStatus string

const (
	// Sales order states.
	StatusDraft          OrderStatus = "draft"
	StatusSubmitted      OrderStatus = "submitted"
	StatusPendingPayment OrderStatus = "pending_payment"
	StatusProcessing     OrderStatus = "processing"

	// Assembly order states.
	StatusPending    OrderStatus = "pending"
	StatusInProgress OrderStatus = "in_progress"

	// Purchase order states.
	StatusReceived OrderStatus = "received"

	// Shared terminal states.
	StatusCompleted OrderStatus = "completed"
	StatusCancelled OrderStatus = "cancelled"
)

// ParseOrderStatus converts a string into an OrderStatus, rejecting unknown values.
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch OrderStatus(s) {
	case StatusDraft, StatusSubmitted, StatusPendingPayment, StatusProcessing,
		StatusPending, StatusInProgress, StatusReceived, StatusCompleted, StatusCancelled:
		return OrderStatus(s), nil
	default:
		return "", fmt.Errorf("unknown order status %q", s)
	}
}

// Terminal reports whether no further transitions are allowed from s.
func (s OrderStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusReceived
}

// Channel is the sales channel of a sales order; it decides which state the
// order enters after submission.
type Channel string

const (
	ChannelOwnStore  Channel = "own_store"
	ChannelFranchise Channel = "franchise"
)

// ParseChannel converts a string into a Channel, rejecting unknown values.
func ParseChannel(s string) (Channel, error) {
	switch Channel(s) {
	case ChannelOwnStore, ChannelFranchise:
		return Channel(s), nil
	default:
		return "", fmt.Errorf("unknown channel %q", s)
	}
}

// OrderLine references an item and the quantity the order claims or delivers.
type OrderLine struct {
	ItemID    uuid.UUID
	Quantity  decimal.Decimal // in the item's base unit, always positive
	Unit      string
	UnitPrice decimal.Decimal
}

// Order is the aggregate driving reservations. Its status may only change
// through the transitions domain service.
type Order struct {
	ID               uuid.UUID
	OrgID            uuid.UUID
	Type             OrderType
	OrderNo          string
	Channel          Channel // sales orders only
	SupplierID       string  // purchase orders only
	Status           OrderStatus
	StockReserved    bool
	ReservationNotes string
	Location         string
	Lines            []OrderLine
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewOrder constructs an order in its initial state: draft for sales and
// purchase orders, pending for assembly orders.
func NewOrder(orgID uuid.UUID, orderType OrderType, orderNo string, channel Channel, supplierID, location string, lines []OrderLine) (*Order, error) {
	if orderNo == "" {
		return nil, fmt.Errorf("order_no is required")
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("order must have at least one line")
	}
	for i, l := range lines {
		if l.ItemID == uuid.Nil {
			return nil, fmt.Errorf("line %d: item_id is required", i)
		}
		if !l.Quantity.IsPositive() {
			return nil, fmt.Errorf("line %d: quantity must be positive", i)
		}
	}
	if orderType == OrderSales {
		if _, err := ParseChannel(string(channel)); err != nil {
			return nil, err
		}
	}

	initial := StatusDraft
	if orderType == OrderAssembly {
		initial = StatusPending
	}

	now := time.Now().UTC()
	return &Order{
		ID:         uuid.New(),
		OrgID:      orgID,
		Type:       orderType,
		OrderNo:    orderNo,
		Channel:    channel,
		SupplierID: supplierID,
		Status:     initial,
		Location:   location,
		Lines:      lines,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// Key identifies this order for reservation bookkeeping.
func (o *Order) Key() OrderKey {
	return OrderKey{OrderType: o.Type, OrderID: o.ID}
}
