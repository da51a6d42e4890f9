package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ghuser/stockledger/pkg/auth"
	"github.com/ghuser/stockledger/pkg/errhttp"
	"github.com/ghuser/stockledger/pkg/httpx"
	pkgvalidator "github.com/ghuser/stockledger/pkg/validator"
	appsvcs "github.com/ghuser/stockledger/services/inventory/application/services"
	"github.com/ghuser/stockledger/services/inventory/domain/models"
)

// RecordMovementRequest is the request body for POST /movements.
type RecordMovementRequest struct {
	ItemID        uuid.UUID       `json:"item_id" validate:"required" example:"123e4567-e89b-12d3-a456-426614174000"`
	Type          string          `json:"type" validate:"required,oneof=receipt issue adjustment return production_produce write_off" example:"receipt"`
	Quantity      decimal.Decimal `json:"quantity" example:"50"`
	Unit          string          `json:"unit" validate:"required,min=1,max=16" example:"kg"`
	BatchNumber   string          `json:"batch_number,omitempty" example:"LOT-2026-08"`
	ExpiryDate    *time.Time      `json:"expiry_date,omitempty"`
	Location      string          `json:"warehouse_location" validate:"required" example:"HQ"`
	ReferenceType string          `json:"reference_type" validate:"required,oneof=purchase_order sales_order assembly_order batch_write_off manual" example:"manual"`
	ReferenceID   uuid.UUID       `json:"reference_id,omitempty"`
} // @name RecordMovementRequest

// PostMovementHandler handles POST /movements requests.
type PostMovementHandler struct {
	svc *appsvcs.Services
}

// NewPostMovementHandler returns a PostMovementHandler backed by the given services.
func NewPostMovementHandler(svc *appsvcs.Services) *PostMovementHandler {
	return &PostMovementHandler{svc: svc}
}

// Execute appends a stock movement to the ledger.
//
//	@Summary		Record movement
//	@Description	Appends a movement and applies it to the item's stock level. The quantity is converted into the item's base unit.
//	@Tags			movements
//	@Accept			json
//	@Produce		json
//	@Param			request	body		RecordMovementRequest	true	"Movement to record"
//	@Success		201		{object}	MovementResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Failure		422		{object}	ErrorResponse
//	@Router			/movements [post]
func (h *PostMovementHandler) Execute(w http.ResponseWriter, r *http.Request) {
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

	req, ok := pkgvalidator.ValidateRequest[RecordMovementRequest](w, r)
	if !ok {
		return
	}

	mv, err := h.svc.Ledger.Append(r.Context(), orgID, actorID, models.MovementDraft{
		ItemID:        req.ItemID,
		Type:          models.MovementType(req.Type),
		Quantity:      req.Quantity,
		Unit:          req.Unit,
		BatchNumber:   req.BatchNumber,
		ExpiryDate:    req.ExpiryDate,
		Location:      req.Location,
		ReferenceType: models.ReferenceType(req.ReferenceType),
		ReferenceID:   req.ReferenceID,
	})
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}

	httpx.JSON(w, http.StatusCreated, toMovementResponse(mv))
}
