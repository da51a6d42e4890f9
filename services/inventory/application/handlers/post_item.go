package handlers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/ghuser/stockledger/pkg/auth"
	"github.com/ghuser/stockledger/pkg/errhttp"
	"github.com/ghuser/stockledger/pkg/httpx"
	pkgvalidator "github.com/ghuser/stockledger/pkg/validator"
	appsvcs "github.com/ghuser/stockledger/services/inventory/application/services"
	"github.com/ghuser/stockledger/services/inventory/domain/models"
)

// CreateItemRequest is the request body for POST /items.
type CreateItemRequest struct {
	SKU           string          `json:"sku" validate:"omitempty,min=3,max=32" example:"RM-FLOUR-01"`
	Name          string          `json:"name" validate:"required,min=1,max=255" example:"Bread flour"`
	Type          string          `json:"type" validate:"required,oneof=raw_material component product" example:"raw_material"`
	Unit          string          `json:"unit" validate:"required,min=1,max=16" example:"kg"`
	CostPerUnit   decimal.Decimal `json:"cost_per_unit" example:"4.20"`
	BatchTracking bool            `json:"batch_tracking" example:"true"`
	StockControl  bool            `json:"stock_control" example:"true"`
} // @name CreateItemRequest

// PostItemHandler handles POST /items requests.
type PostItemHandler struct {
	svc *appsvcs.Services
}

// NewPostItemHandler returns a PostItemHandler backed by the given services.
func NewPostItemHandler(svc *appsvcs.Services) *PostItemHandler {
	return &PostItemHandler{svc: svc}
}

// Execute creates a new catalog item.
//
//	@Summary		Create item
//	@Description	Creates a new catalog item with zeroed stock counters. Omitting the SKU generates one from the item type.
//	@Tags			items
//	@Accept			json
//	@Produce		json
//	@Param			request	body		CreateItemRequest	true	"Item creation request"
//	@Success		201		{object}	ItemResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Failure		422		{object}	ErrorResponse
//	@Router			/items [post]
func (h *PostItemHandler) Execute(w http.ResponseWriter, r *http.Request) {
	orgID, err := auth.OrgIDFromCtx(r.Context())
	if err != nil {
		httpx.JSON(w, http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
		return
	}

	req, ok := pkgvalidator.ValidateRequest[CreateItemRequest](w, r)
	if !ok {
		return
	}

	itemType, err := models.ParseItemType(req.Type)
	if err != nil {
		httpx.JSONError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	item, err := h.svc.Item.Create(r.Context(), orgID, appsvcs.CreateItemParams{
		SKU:           req.SKU,
		Name:          req.Name,
		ItemType:      itemType,
		Unit:          req.Unit,
		CostPerUnit:   req.CostPerUnit,
		BatchTracking: req.BatchTracking,
		StockControl:  req.StockControl,
	})
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}

	httpx.JSON(w, http.StatusCreated, toItemResponse(item))
}
