package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ghuser/stockledger/pkg/auth"
	"github.com/ghuser/stockledger/pkg/errhttp"
	"github.com/ghuser/stockledger/pkg/httpx"
	pkgvalidator "github.com/ghuser/stockledger/pkg/validator"
	appsvcs "github.com/ghuser/stockledger/services/inventory/application/services"
	"github.com/ghuser/stockledger/services/inventory/domain/models"
)

// CreateOrderLineRequest is one requested order line.
type CreateOrderLineRequest struct {
	ItemID    uuid.UUID       `json:"item_id" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
} // @name CreateOrderLineRequest

// CreateOrderRequest is the request body for POST /orders.
type CreateOrderRequest struct {
	Type       string                   `json:"type" validate:"required,oneof=sales assembly purchase" example:"sales"`
	OrderNo    string                   `json:"order_no" validate:"required,min=1,max=64" example:"SO-2026-0001"`
	Channel    string                   `json:"channel,omitempty" validate:"omitempty,oneof=own_store franchise" example:"own_store"`
	SupplierID string                   `json:"supplier_id,omitempty" example:"SUP-042"`
	Location   string                   `json:"warehouse_location" validate:"required" example:"HQ"`
	Lines      []CreateOrderLineRequest `json:"lines" validate:"required,min=1,dive"`
} // @name CreateOrderRequest

// PostOrderHandler handles POST /orders requests.
type PostOrderHandler struct {
	svc *appsvcs.Services
}

// NewPostOrderHandler returns a PostOrderHandler backed by the given services.
func NewPostOrderHandler(svc *appsvcs.Services) *PostOrderHandler {
	return &PostOrderHandler{svc: svc}
}

// Execute creates an order in its initial state.
//
//	@Summary		Create order
//	@Description	Creates a sales, assembly or purchase order. Sales and purchase orders start in draft; assembly orders start in pending.
//	@Tags			orders
//	@Accept			json
//	@Produce		json
//	@Param			request	body		CreateOrderRequest	true	"Order creation request"
//	@Success		201		{object}	OrderResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		422		{object}	ErrorResponse
//	@Router			/orders [post]
func (h *PostOrderHandler) Execute(w http.ResponseWriter, r *http.Request) {
	orgID, err := auth.OrgIDFromCtx(r.Context())
	if err != nil {
		httpx.JSON(w, http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
		return
	}

	req, ok := pkgvalidator.ValidateRequest[CreateOrderRequest](w, r)
	if !ok {
		return
	}

	lines := make([]appsvcs.OrderLineParams, len(req.Lines))
	for i, l := range req.Lines {
		lines[i] = appsvcs.OrderLineParams{
			ItemID:    l.ItemID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		}
	}

	order, err := h.svc.Order.Create(r.Context(), orgID, appsvcs.CreateOrderParams{
		Type:       models.OrderType(req.Type),
		OrderNo:    req.OrderNo,
		Channel:    models.Channel(req.Channel),
		SupplierID: req.SupplierID,
		Location:   req.Location,
		Lines:      lines,
	})
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}

	httpx.JSON(w, http.StatusCreated, toOrderResponse(order))
}
