package handlers

import (
	"net/http"

	"github.com/ghuser/stockledger/pkg/auth"
	"github.com/ghuser/stockledger/pkg/errhttp"
	"github.com/ghuser/stockledger/pkg/httpx"
	appsvcs "github.com/ghuser/stockledger/services/inventory/application/services"
)

// ListItemsResponse is the paginated envelope for GET /items.
type ListItemsResponse struct {
	Items []ItemResponse `json:"items"`
	Total int            `json:"total"`
} // @name ListItemsResponse

// ListItemsHandler handles GET /items requests.
type ListItemsHandler struct {
	svc *appsvcs.Services
}

// NewListItemsHandler returns a ListItemsHandler backed by the given services.
func NewListItemsHandler(svc *appsvcs.Services) *ListItemsHandler {
	return &ListItemsHandler{svc: svc}
}

// Execute lists the org's items.
//
//	@Summary		List items
//	@Description	Returns a paginated list of catalog items
//	@Tags			items
//	@Produce		json
//	@Param			limit	query		int	false	"Page size (max 200)"
//	@Param			offset	query		int	false	"Offset"
//	@Success		200		{object}	ListItemsResponse
//	@Failure		401		{object}	ErrorResponse
//	@Router			/items [get]
func (h *ListItemsHandler) Execute(w http.ResponseWriter, r *http.Request) {
	orgID, err := auth.OrgIDFromCtx(r.Context())
	if err != nil {
		httpx.JSON(w, http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
		return
	}

	items, total, err := h.svc.Item.List(r.Context(), orgID, queryOpts(r))
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}

	out := make([]ItemResponse, len(items))
	for i, item := range items {
		out[i] = toItemResponse(item)
	}
	httpx.JSON(w, http.StatusOK, ListItemsResponse{Items: out, Total: total})
}
