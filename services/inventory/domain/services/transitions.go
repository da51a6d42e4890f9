// Package services contains stateless domain services for the inventory
// bounded context: the order transition tables and the unit converter.
package services

import (
	"fmt"

	domain "github.com/ghuser/stockledger/services/inventory/domain"
	"github.com/ghuser/stockledger/services/inventory/domain/models"
)

// StockEffect is the reservation side effect an order transition triggers.
type StockEffect int

const (
	// EffectNone leaves reservations untouched.
	EffectNone StockEffect = iota
	// EffectReserve claims stock for every order line (all-or-nothing).
	EffectReserve
	// EffectRelease credits all active reservations back to available stock.
	EffectRelease
	// EffectConsume converts each active reservation into an issue movement
	// of exactly the reserved quantity.
	EffectConsume
)

// CheckTransition validates that order may move to target and returns the
// stock effect of doing so. Returns ErrInvalidTransition for anything the
// order type's state machine does not allow.
//
// Sales orders:
//
//	draft → submitted → pending_payment (franchise) | processing (own_store) → completed
//	cancelled reachable from any non-terminal state
//
// Assembly orders:
//
//	pending → in_progress → completed, cancelled from non-terminal states
//
// Purchase orders:
//
//	draft → submitted → received, cancelled from non-terminal states
func CheckTransition(order *models.Order, target models.OrderStatus) (StockEffect, error) {
	if order.Status.Terminal() {
		return EffectNone, fmt.Errorf("%w: order %s is %s", domain.ErrInvalidTransition, order.OrderNo, order.Status)
	}

	// Cancellation is reachable from every non-terminal state of every type.
	// It always releases: Release is keyed on the order's active reservation
	// rows and is a no-op when none exist, so the decision cannot drift from
	// the stock_reserved flag.
	if target == models.StatusCancelled {
		return EffectRelease, nil
	}

	switch order.Type {
	case models.OrderSales:
		return checkSalesTransition(order, target)
	case models.OrderAssembly:
		return checkAssemblyTransition(order, target)
	case models.OrderPurchase:
		return checkPurchaseTransition(order, target)
	default:
		return EffectNone, fmt.Errorf("%w: unknown order type %q", domain.ErrInvalidTransition, order.Type)
	}
}

func checkSalesTransition(order *models.Order, target models.OrderStatus) (StockEffect, error) {
	switch {
	case order.Status == models.StatusDraft && target == models.StatusSubmitted:
		return EffectNone, nil

	case order.Status == models.StatusSubmitted && target == models.StatusPendingPayment:
		if order.Channel != models.ChannelFranchise {
			return EffectNone, fmt.Errorf("%w: pending_payment is only valid for franchise orders", domain.ErrInvalidTransition)
		}
		return EffectReserve, nil

	case order.Status == models.StatusSubmitted && target == models.StatusProcessing:
		if order.Channel != models.ChannelOwnStore {
			return EffectNone, fmt.Errorf("%w: processing is only valid for own-store orders", domain.ErrInvalidTransition)
		}
		return EffectReserve, nil

	case (order.Status == models.StatusPendingPayment || order.Status == models.StatusProcessing) &&
		target == models.StatusCompleted:
		return EffectConsume, nil
	}
	return EffectNone, invalid(order, target)
}

func checkAssemblyTransition(order *models.Order, target models.OrderStatus) (StockEffect, error) {
	switch {
	case order.Status == models.StatusPending && target == models.StatusInProgress:
		return EffectReserve, nil
	case order.Status == models.StatusInProgress && target == models.StatusCompleted:
		return EffectConsume, nil
	}
	return EffectNone, invalid(order, target)
}

func checkPurchaseTransition(order *models.Order, target models.OrderStatus) (StockEffect, error) {
	switch {
	case order.Status == models.StatusDraft && target == models.StatusSubmitted:
		return EffectNone, nil
	case order.Status == models.StatusSubmitted && target == models.StatusReceived:
		return EffectNone, nil
	}
	return EffectNone, invalid(order, target)
}

func invalid(order *models.Order, target models.OrderStatus) error {
	return fmt.Errorf("%w: %s order cannot move %s → %s",
		domain.ErrInvalidTransition, order.Type, order.Status, target)
}
