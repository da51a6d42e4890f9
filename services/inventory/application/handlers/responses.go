// Package handlers contains the inventory context's HTTP handlers. Each
// handler is a small struct with an Execute method, registered in the api
// package.
package handlers

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ghuser/stockledger/services/inventory/domain/models"
)

// ErrorResponse is returned on all error responses.
type ErrorResponse struct {
	Error string `json:"error" example:"item not found"`
} // @name ErrorResponse

// ItemResponse is the JSON shape of a catalog item.
type ItemResponse struct {
	ID                uuid.UUID       `json:"id"`
	OrgID             uuid.UUID       `json:"org_id"`
	SKU               string          `json:"sku"`
	Name              string          `json:"name"`
	Type              string          `json:"type"`
	Unit              string          `json:"unit"`
	StockQuantity     decimal.Decimal `json:"stock_quantity"`
	ReservedQuantity  decimal.Decimal `json:"reserved_quantity"`
	AvailableQuantity decimal.Decimal `json:"available_quantity"`
	CostPerUnit       decimal.Decimal `json:"cost_per_unit"`
	BatchTracking     bool            `json:"batch_tracking"`
	StockControl      bool            `json:"stock_control"`
	CreatedAt         time.Time       `json:"created_at"`
} // @name ItemResponse

func toItemResponse(item *models.Item) ItemResponse {
	return ItemResponse{
		ID:                item.ID,
		OrgID:             item.OrgID,
		SKU:               item.SKU.String(),
		Name:              item.Name,
		Type:              string(item.Type),
		Unit:              item.Unit,
		StockQuantity:     item.StockQuantity,
		ReservedQuantity:  item.ReservedQuantity,
		AvailableQuantity: item.Available(),
		CostPerUnit:       item.CostPerUnit,
		BatchTracking:     item.BatchTracking,
		StockControl:      item.StockControl,
		CreatedAt:         item.CreatedAt,
	}
}

// MovementResponse is the JSON shape of one ledger row.
type MovementResponse struct {
	ID                 uuid.UUID       `json:"id"`
	ItemID             uuid.UUID       `json:"item_id"`
	Type               string          `json:"type"`
	Quantity           decimal.Decimal `json:"quantity"`
	Unit               string          `json:"unit"`
	QuantityInBaseUnit decimal.Decimal `json:"quantity_in_base_unit"`
	BatchNumber        string          `json:"batch_number,omitempty"`
	ExpiryDate         *time.Time      `json:"expiry_date,omitempty"`
	ExpiredAt          *time.Time      `json:"expired_at,omitempty"`
	ExpiryNotes        string          `json:"expiry_notes,omitempty"`
	Location           string          `json:"warehouse_location"`
	PerformedBy        uuid.UUID       `json:"performed_by"`
	ReferenceType      string          `json:"reference_type"`
	ReferenceID        uuid.UUID       `json:"reference_id,omitempty"`
	SyncStatus         string          `json:"sync_status"`
	CreatedAt          time.Time       `json:"created_at"`
} // @name MovementResponse

func toMovementResponse(mv *models.Movement) MovementResponse {
	return MovementResponse{
		ID:                 mv.ID,
		ItemID:             mv.ItemID,
		Type:               string(mv.Type),
		Quantity:           mv.Quantity,
		Unit:               mv.UnitOfRecord,
		QuantityInBaseUnit: mv.QuantityInBaseUnit,
		BatchNumber:        mv.BatchNumber,
		ExpiryDate:         mv.ExpiryDate,
		ExpiredAt:          mv.ExpiredAt,
		ExpiryNotes:        mv.ExpiryNotes,
		Location:           mv.Location,
		PerformedBy:        mv.PerformedBy,
		ReferenceType:      string(mv.ReferenceType),
		ReferenceID:        mv.ReferenceID,
		SyncStatus:         string(mv.SyncStatus),
		CreatedAt:          mv.CreatedAt,
	}
}

func toMovementResponses(movements []*models.Movement) []MovementResponse {
	out := make([]MovementResponse, len(movements))
	for i, mv := range movements {
		out[i] = toMovementResponse(mv)
	}
	return out
}

// OrderLineResponse is one line of an order.
type OrderLineResponse struct {
	ItemID    uuid.UUID       `json:"item_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	Unit      string          `json:"unit"`
	UnitPrice decimal.Decimal `json:"unit_price"`
} // @name OrderLineResponse

// OrderResponse is the JSON shape of an order.
type OrderResponse struct {
	ID               uuid.UUID           `json:"id"`
	OrgID            uuid.UUID           `json:"org_id"`
	Type             string              `json:"type"`
	OrderNo          string              `json:"order_no"`
	Channel          string              `json:"channel,omitempty"`
	SupplierID       string              `json:"supplier_id,omitempty"`
	Status           string              `json:"status"`
	StockReserved    bool                `json:"stock_reserved"`
	ReservationNotes string              `json:"reservation_notes,omitempty"`
	Location         string              `json:"warehouse_location"`
	Lines            []OrderLineResponse `json:"lines"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
} // @name OrderResponse

func toOrderResponse(order *models.Order) OrderResponse {
	lines := make([]OrderLineResponse, len(order.Lines))
	for i, l := range order.Lines {
		lines[i] = OrderLineResponse{
			ItemID:    l.ItemID,
			Quantity:  l.Quantity,
			Unit:      l.Unit,
			UnitPrice: l.UnitPrice,
		}
	}
	return OrderResponse{
		ID:               order.ID,
		OrgID:            order.OrgID,
		Type:             string(order.Type),
		OrderNo:          order.OrderNo,
		Channel:          string(order.Channel),
		SupplierID:       order.SupplierID,
		Status:           string(order.Status),
		StockReserved:    order.StockReserved,
		ReservationNotes: order.ReservationNotes,
		Location:         order.Location,
		Lines:            lines,
		CreatedAt:        order.CreatedAt,
		UpdatedAt:        order.UpdatedAt,
	}
}
