package handlers

import (
	"net/http"

	"github.com/ghuser/stockledger/pkg/auth"
	"github.com/ghuser/stockledger/pkg/errhttp"
	"github.com/ghuser/stockledger/pkg/httpx"
	pkgvalidator "github.com/ghuser/stockledger/pkg/validator"
	appsvcs "github.com/ghuser/stockledger/services/inventory/application/services"
	"github.com/ghuser/stockledger/services/inventory/domain/models"
)

// TransitionOrderRequest is the request body for POST /orders/{id}/transition.
type TransitionOrderRequest struct {
	Target string `json:"target" validate:"required" example:"processing"`
} // @name TransitionOrderRequest

// PostOrderTransitionHandler handles POST /orders/{id}/transition requests.
type PostOrderTransitionHandler struct {
	svc *appsvcs.Services
}

// NewPostOrderTransitionHandler returns a PostOrderTransitionHandler backed by the given services.
func NewPostOrderTransitionHandler(svc *appsvcs.Services) *PostOrderTransitionHandler {
	return &PostOrderTransitionHandler{svc: svc}
}

// Execute moves an order through its state machine.
//
//	@Summary		Transition order
//	@Description	Moves the order to the target status, reserving, releasing or consuming stock as the state machine prescribes.
//	@Tags			orders
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"Order ID"
//	@Param			request	body		TransitionOrderRequest	true	"Target status"
//	@Success		200		{object}	OrderResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Failure		422		{object}	ErrorResponse
//	@Router			/orders/{id}/transition [post]
func (h *PostOrderTransitionHandler) Execute(w http.ResponseWriter, r *http.Request) {
	orgID, err := auth.OrgIDFromCtx(r.Context())
	if err != nil {
		httpx.JSON(w, http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
		return
	}
	actorID, err := auth.ActorIDFromCtx(r.Context())
	if err != nil {
		httpx.JSON(w, http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
		return
	}

	orderID, ok := pathUUID(r, "id")
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	req, ok := pkgvalidator.ValidateRequest[TransitionOrderRequest](w, r)
	if !ok {
		return
	}

	target, err := models.ParseOrderStatus(req.Target)
	if err != nil {
		httpx.JSONError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	order, err := h.svc.Order.Transition(r.Context(), orgID, actorID, orderID, target)
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, toOrderResponse(order))
}
