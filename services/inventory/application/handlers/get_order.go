package handlers

import (
	"net/http"

	"github.com/ghuser/stockledger/pkg/auth"
	"github.com/ghuser/stockledger/pkg/errhttp"
	"github.com/ghuser/stockledger/pkg/httpx"
	appsvcs "github.com/ghuser/stockledger/services/inventory/application/services"
)

// GetOrderHandler handles GET /orders/{id} requests.
type GetOrderHandler struct {
	svc *appsvcs.Services
}

// NewGetOrderHandler returns a GetOrderHandler backed by the given services.
func NewGetOrderHandler(svc *appsvcs.Services) *GetOrderHandler {
	return &GetOrderHandler{svc: svc}
}

// Execute fetches one order with its lines.
//
//	@Summary		Get order
//	@Tags			orders
//	@Produce		json
//	@Param			id	path		string	true	"Order ID"
//	@Success		200	{object}	OrderResponse
//	@Failure		401	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/orders/{id} [get]
func (h *GetOrderHandler) Execute(w http.ResponseWriter, r *http.Request) {
	orgID, err := auth.OrgIDFromCtx(r.Context())
	if err != nil {
		httpx.JSON(w, http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
		return
	}

	id, ok := pathUUID(r, "id")
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	order, err := h.svc.Order.GetByID(r.Context(), orgID, id)
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toOrderResponse(order))
}
