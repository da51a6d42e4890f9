package handlers

import (
	"net/http"

	"github.com/ghuser/stockledger/pkg/auth"
	"github.com/ghuser/stockledger/pkg/errhttp"
	"github.com/ghuser/stockledger/pkg/httpx"
	appsvcs "github.com/ghuser/stockledger/services/inventory/application/services"
	"github.com/ghuser/stockledger/services/inventory/domain/models"
	"github.com/ghuser/stockledger/services/inventory/domain/repositories"
)

// ListMovementsResponse is the paginated envelope for GET /items/{id}/movements.
type ListMovementsResponse struct {
	Movements []MovementResponse `json:"movements"`
	Total     int                `json:"total"`
} // @name ListMovementsResponse

// ListMovementsHandler handles GET /items/{id}/movements requests.
type ListMovementsHandler struct {
	svc *appsvcs.Services
}

// NewListMovementsHandler returns a ListMovementsHandler backed by the given services.
func NewListMovementsHandler(svc *appsvcs.Services) *ListMovementsHandler {
	return &ListMovementsHandler{svc: svc}
}

// Execute lists an item's movements newest-first.
//
//	@Summary		List movements
//	@Description	Returns an item's ledger rows, newest first. Filter with type, batch_number and expired_only.
//	@Tags			movements
//	@Produce		json
//	@Param			id				path		string	true	"Item ID"
//	@Param			type			query		string	false	"Movement type filter (repeatable)"
//	@Param			batch_number	query		string	false	"Batch number filter"
//	@Param			expired_only	query		bool	false	"Only expired batch receipts"
//	@Param			limit			query		int		false	"Page size (max 200)"
//	@Param			offset			query		int		false	"Offset"
//	@Success		200				{object}	ListMovementsResponse
//	@Failure		401				{object}	ErrorResponse
//	@Failure		404				{object}	ErrorResponse
//	@Failure		422				{object}	ErrorResponse
//	@Router			/items/{id}/movements [get]
func (h *ListMovementsHandler) Execute(w http.ResponseWriter, r *http.Request) {
	orgID, err := auth.OrgIDFromCtx(r.Context())
	if err != nil {
		httpx.JSON(w, http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
		return
	}

	itemID, ok := pathUUID(r, "id")
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	filters := repositories.MovementFilters{
		BatchNumber: r.URL.Query().Get("batch_number"),
		ExpiredOnly: r.URL.Query().Get("expired_only") == "true",
	}
	for _, raw := range r.URL.Query()["type"] {
		mt, err := models.ParseMovementType(raw)
		if err != nil {
			httpx.JSONError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		filters.Types = append(filters.Types, mt)
	}

	movements, total, err := h.svc.Ledger.MovementsFor(r.Context(), orgID, itemID, filters, queryOpts(r))
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, ListMovementsResponse{
		Movements: toMovementResponses(movements),
		Total:     total,
	})
}
