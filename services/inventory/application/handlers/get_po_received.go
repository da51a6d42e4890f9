package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ghuser/stockledger/pkg/auth"
	"github.com/ghuser/stockledger/pkg/errhttp"
	"github.com/ghuser/stockledger/pkg/httpx"
	appsvcs "github.com/ghuser/stockledger/services/inventory/application/services"
)

// ReceivedQuantityResponse reports how much of a purchase order has arrived.
type ReceivedQuantityResponse struct {
	PurchaseOrderID  uuid.UUID       `json:"purchase_order_id"`
	ReceivedQuantity decimal.Decimal `json:"received_quantity"`
} // @name ReceivedQuantityResponse

// GetPOReceivedHandler handles GET /purchase-orders/{id}/received requests.
type GetPOReceivedHandler struct {
	svc *appsvcs.Services
}

// NewGetPOReceivedHandler returns a GetPOReceivedHandler backed by the given services.
func NewGetPOReceivedHandler(svc *appsvcs.Services) *GetPOReceivedHandler {
	return &GetPOReceivedHandler{svc: svc}
}

// Execute sums receipt movements for a purchase order.
//
//	@Summary		Received quantity
//	@Description	Sums receipt movements referencing the purchase order, derived from the ledger on every call.
//	@Tags			orders
//	@Produce		json
//	@Param			id	path		string	true	"Purchase order ID"
//	@Success		200	{object}	ReceivedQuantityResponse
//	@Failure		401	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/purchase-orders/{id}/received [get]
func (h *GetPOReceivedHandler) Execute(w http.ResponseWriter, r *http.Request) {
	orgID, err := auth.OrgIDFromCtx(r.Context())
	if err != nil {
		httpx.JSON(w, http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
		return
	}

	poID, ok := pathUUID(r, "id")
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid purchase order id")
		return
	}

	// Verifies the order exists and belongs to the org before summing.
	if _, err := h.svc.Order.GetByID(r.Context(), orgID, poID); err != nil {
		errhttp.WriteError(w, err)
		return
	}

	sum, err := h.svc.Ledger.ReceivedQuantity(r.Context(), poID)
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, ReceivedQuantityResponse{
		PurchaseOrderID:  poID,
		ReceivedQuantity: sum,
	})
}
