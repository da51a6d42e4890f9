package domain

import "errors"

// Sentinel errors for the inventory domain. Use errors.Is() to check these.
var (
	// ErrItemNotFound indicates the requested item does not exist.
	ErrItemNotFound = errors.New("item not found")

	// ErrSKUAlreadyExists indicates an item with the same SKU already exists in the org.
	ErrSKUAlreadyExists = errors.New("sku already exists")

	// ErrInvalidSKU indicates the SKU violates domain constraints.
	ErrInvalidSKU = errors.New("invalid sku")

	// ErrInvalidItem indicates new-item fields failed validation (missing
	// unit, negative cost).
	ErrInvalidItem = errors.New("invalid item")

	// ErrMovementNotFound indicates the requested movement does not exist.
	ErrMovementNotFound = errors.New("movement not found")

	// ErrOrderNotFound indicates the requested order does not exist.
	ErrOrderNotFound = errors.New("order not found")

	// ErrInvalidMovement indicates a movement draft failed validation before
	// any mutation was attempted.
	ErrInvalidMovement = errors.New("invalid movement")

	// ErrInsufficientStock indicates an outbound movement would push the
	// item's stock below zero or below its reserved quantity.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrInsufficientAvailableStock indicates a reservation request exceeds
	// stock_quantity - reserved_quantity at evaluation time.
	ErrInsufficientAvailableStock = errors.New("insufficient available stock")

	// ErrAlreadyReserved indicates an active reservation already exists for
	// the same (order_type, order_id, item_id) key.
	ErrAlreadyReserved = errors.New("stock already reserved for order")

	// ErrUnitNotConvertible indicates no conversion factor exists between the
	// movement's unit and the item's base unit.
	ErrUnitNotConvertible = errors.New("unit not convertible")

	// ErrInvalidTransition indicates the order status change is not allowed
	// by the order type's state machine.
	ErrInvalidTransition = errors.New("invalid order transition")

	// ErrNotAReceipt indicates a batch/expiry operation was attempted on a
	// movement that is not a batch receipt.
	ErrNotAReceipt = errors.New("movement is not a batch receipt")

	// ErrBatchAlreadyWrittenOff indicates the batch has no remaining quantity
	// to write off.
	ErrBatchAlreadyWrittenOff = errors.New("batch already written off")

	// ErrConcurrencyConflict indicates two operations raced on the same item
	// and internal retries were exhausted. Safe for the caller to retry.
	ErrConcurrencyConflict = errors.New("concurrent stock operation conflict")
)
