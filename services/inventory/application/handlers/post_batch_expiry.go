package handlers

import (
	"net/http"

	"github.com/ghuser/stockledger/pkg/auth"
	"github.com/ghuser/stockledger/pkg/errhttp"
	"github.com/ghuser/stockledger/pkg/httpx"
	pkgvalidator "github.com/ghuser/stockledger/pkg/validator"
	appsvcs "github.com/ghuser/stockledger/services/inventory/application/services"
)

// MarkExpiredRequest is the request body for POST /movements/{id}/expire.
type MarkExpiredRequest struct {
	Notes string `json:"notes,omitempty" validate:"max=1024" example:"found mold during stocktake"`
} // @name MarkExpiredRequest

// PostExpireHandler handles POST /movements/{id}/expire requests.
type PostExpireHandler struct {
	svc *appsvcs.Services
}

// NewPostExpireHandler returns a PostExpireHandler backed by the given services.
func NewPostExpireHandler(svc *appsvcs.Services) *PostExpireHandler {
	return &PostExpireHandler{svc: svc}
}

// Execute flags a batch receipt as expired.
//
//	@Summary		Mark batch expired
//	@Description	Flags a batch receipt as expired. Stock levels are untouched; use write-off to remove quantity.
//	@Tags			batches
//	@Accept			json
//	@Produce		json
//	@Param			id		path	string				true	"Receipt movement ID"
//	@Param			request	body	MarkExpiredRequest	false	"Optional notes"
//	@Success		204
//	@Failure		401	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		422	{object}	ErrorResponse
//	@Router			/movements/{id}/expire [post]
func (h *PostExpireHandler) Execute(w http.ResponseWriter, r *http.Request) {
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

	movementID, ok := pathUUID(r, "id")
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid movement id")
		return
	}

	req, ok := pkgvalidator.ValidateRequest[MarkExpiredRequest](w, r)
	if !ok {
		return
	}

	if err := h.svc.Batch.MarkExpired(r.Context(), orgID, actorID, movementID, req.Notes); err != nil {
		errhttp.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PostReinstateHandler handles POST /movements/{id}/reinstate requests.
type PostReinstateHandler struct {
	svc *appsvcs.Services
}

// NewPostReinstateHandler returns a PostReinstateHandler backed by the given services.
func NewPostReinstateHandler(svc *appsvcs.Services) *PostReinstateHandler {
	return &PostReinstateHandler{svc: svc}
}

// Execute clears the expired flag from a batch receipt.
//
//	@Summary		Reinstate batch
//	@Description	Clears the expired flag from a batch receipt that was flagged by mistake.
//	@Tags			batches
//	@Produce		json
//	@Param			id	path	string	true	"Receipt movement ID"
//	@Success		204
//	@Failure		401	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		422	{object}	ErrorResponse
//	@Router			/movements/{id}/reinstate [post]
func (h *PostReinstateHandler) Execute(w http.ResponseWriter, r *http.Request) {
	orgID, err := auth.OrgIDFromCtx(r.Context())
	if err != nil {
		httpx.JSON(w, http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
		return
	}

	movementID, ok := pathUUID(r, "id")
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid movement id")
		return
	}

	if err := h.svc.Batch.Reinstate(r.Context(), orgID, movementID); err != nil {
		errhttp.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PostWriteOffHandler handles POST /movements/{id}/write-off requests.
type PostWriteOffHandler struct {
	svc *appsvcs.Services
}

// NewPostWriteOffHandler returns a PostWriteOffHandler backed by the given services.
func NewPostWriteOffHandler(svc *appsvcs.Services) *PostWriteOffHandler {
	return &PostWriteOffHandler{svc: svc}
}

// Execute writes off a batch's remaining quantity.
//
//	@Summary		Write off batch
//	@Description	Removes the batch's remaining quantity from stock via a compensating write_off movement. A second write-off of the same batch fails.
//	@Tags			batches
//	@Produce		json
//	@Param			id	path		string	true	"Receipt movement ID"
//	@Success		201	{object}	MovementResponse
//	@Failure		401	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		409	{object}	ErrorResponse
//	@Failure		422	{object}	ErrorResponse
//	@Router			/movements/{id}/write-off [post]
func (h *PostWriteOffHandler) Execute(w http.ResponseWriter, r *http.Request) {
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

	movementID, ok := pathUUID(r, "id")
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid movement id")
		return
	}

	mv, err := h.svc.Batch.WriteOff(r.Context(), orgID, actorID, movementID)
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toMovementResponse(mv))
}
