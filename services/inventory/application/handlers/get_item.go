package handlers

import (
	"net/http"

	"github.com/ghuser/stockledger/pkg/auth"
	"github.com/ghuser/stockledger/pkg/errhttp"
	"github.com/ghuser/stockledger/pkg/httpx"
	appsvcs "github.com/ghuser/stockledger/services/inventory/application/services"
)

// GetItemHandler handles GET /items/{id} requests.
type GetItemHandler struct {
	svc *appsvcs.Services
}

// NewGetItemHandler returns a GetItemHandler backed by the given services.
func NewGetItemHandler(svc *appsvcs.Services) *GetItemHandler {
	return &GetItemHandler{svc: svc}
}

// Execute fetches one item with its current stock levels.
//
//	@Summary		Get item
//	@Description	Returns one item. Stock counters may be served from the read cache.
//	@Tags			items
//	@Produce		json
//	@Param			id	path		string	true	"Item ID"
//	@Success		200	{object}	ItemResponse
//	@Failure		401	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/items/{id} [get]
func (h *GetItemHandler) Execute(w http.ResponseWriter, r *http.Request) {
	orgID, err := auth.OrgIDFromCtx(r.Context())
	if err != nil {
		httpx.JSON(w, http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
		return
	}

	id, ok := pathUUID(r, "id")
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	item, err := h.svc.Item.GetByID(r.Context(), orgID, id)
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toItemResponse(item))
}
