// Package handlers contains the ERP sync context's HTTP handlers: the
// operator surface for inspecting and retrying mirrored calls.
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ghuser/stockledger/pkg/auth"
	"github.com/ghuser/stockledger/pkg/errhttp"
	"github.com/ghuser/stockledger/pkg/httpx"
	appsvcs "github.com/ghuser/stockledger/services/erpsync/application/services"
	"github.com/ghuser/stockledger/services/erpsync/domain/models"
	"github.com/ghuser/stockledger/services/erpsync/domain/repositories"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// ErrorResponse is returned on all error responses.
type ErrorResponse struct {
	Error string `json:"error" example:"sync entry not found"`
} // @name SyncErrorResponse

// SyncEntryResponse is the JSON shape of one sync log entry.
type SyncEntryResponse struct {
	ID             uuid.UUID `json:"id"`
	OrgID          uuid.UUID `json:"org_id"`
	Type           string    `json:"type"`
	Status         string    `json:"status"`
	EntityID       uuid.UUID `json:"entity_id"`
	AutocountDocNo string    `json:"autocount_doc_no,omitempty"`
	LastError      string    `json:"last_error,omitempty"`
	RetryCount     int       `json:"retry_count"`
	NextAttemptAt  time.Time `json:"next_attempt_at"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
} // @name SyncEntryResponse

func toEntryResponse(e *models.Entry) SyncEntryResponse {
	return SyncEntryResponse{
		ID:             e.ID,
		OrgID:          e.OrgID,
		Type:           string(e.Type),
		Status:         string(e.Status),
		EntityID:       e.EntityID,
		AutocountDocNo: e.AutocountDocNo,
		LastError:      e.LastError,
		RetryCount:     e.RetryCount,
		NextAttemptAt:  e.NextAttemptAt,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}

// ListSyncLogResponse is the paginated envelope for GET /sync-log.
type ListSyncLogResponse struct {
	Entries []SyncEntryResponse `json:"entries"`
	Total   int                 `json:"total"`
} // @name ListSyncLogResponse

// ListSyncLogHandler handles GET /sync-log requests.
type ListSyncLogHandler struct {
	svc *appsvcs.Services
}

// NewListSyncLogHandler returns a ListSyncLogHandler backed by the given services.
func NewListSyncLogHandler(svc *appsvcs.Services) *ListSyncLogHandler {
	return &ListSyncLogHandler{svc: svc}
}

// Execute lists the org's sync log entries newest-first.
//
//	@Summary		List sync log
//	@Description	Returns sync log entries, filterable by status and type
//	@Tags			sync
//	@Produce		json
//	@Param			status	query		string	false	"Status filter"
//	@Param			type	query		string	false	"Type filter"
//	@Param			limit	query		int		false	"Page size (max 200)"
//	@Param			offset	query		int		false	"Offset"
//	@Success		200		{object}	ListSyncLogResponse
//	@Failure		401		{object}	SyncErrorResponse
//	@Router			/sync-log [get]
func (h *ListSyncLogHandler) Execute(w http.ResponseWriter, r *http.Request) {
	orgID, err := auth.OrgIDFromCtx(r.Context())
	if err != nil {
		httpx.JSON(w, http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
		return
	}

	filters := repositories.Filters{
		Status: models.SyncStatus(r.URL.Query().Get("status")),
		Type:   models.SyncType(r.URL.Query().Get("type")),
	}

	entries, total, err := h.svc.Orchestrator.List(r.Context(), orgID, filters, queryOpts(r))
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}

	out := make([]SyncEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = toEntryResponse(e)
	}
	httpx.JSON(w, http.StatusOK, ListSyncLogResponse{Entries: out, Total: total})
}

// GetSyncEntryHandler handles GET /sync-log/{id} requests.
type GetSyncEntryHandler struct {
	svc *appsvcs.Services
}

// NewGetSyncEntryHandler returns a GetSyncEntryHandler backed by the given services.
func NewGetSyncEntryHandler(svc *appsvcs.Services) *GetSyncEntryHandler {
	return &GetSyncEntryHandler{svc: svc}
}

// Execute fetches one sync log entry.
//
//	@Summary		Get sync entry
//	@Tags			sync
//	@Produce		json
//	@Param			id	path		string	true	"Sync entry ID"
//	@Success		200	{object}	SyncEntryResponse
//	@Failure		401	{object}	SyncErrorResponse
//	@Failure		404	{object}	SyncErrorResponse
//	@Router			/sync-log/{id} [get]
func (h *GetSyncEntryHandler) Execute(w http.ResponseWriter, r *http.Request) {
	orgID, err := auth.OrgIDFromCtx(r.Context())
	if err != nil {
		httpx.JSON(w, http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid sync entry id")
		return
	}

	entry, err := h.svc.Orchestrator.GetByID(r.Context(), orgID, id)
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toEntryResponse(entry))
}

// PostRetryHandler handles POST /sync-log/{id}/retry requests.
type PostRetryHandler struct {
	svc *appsvcs.Services
}

// NewPostRetryHandler returns a PostRetryHandler backed by the given services.
func NewPostRetryHandler(svc *appsvcs.Services) *PostRetryHandler {
	return &PostRetryHandler{svc: svc}
}

// Execute re-dispatches one failed sync entry immediately.
//
//	@Summary		Retry sync entry
//	@Description	Re-runs the ERP call for a failed entry, ignoring the backoff gate. Only failed entries are retryable.
//	@Tags			sync
//	@Produce		json
//	@Param			id	path		string	true	"Sync entry ID"
//	@Success		200	{object}	SyncEntryResponse
//	@Failure		401	{object}	SyncErrorResponse
//	@Failure		404	{object}	SyncErrorResponse
//	@Failure		409	{object}	SyncErrorResponse
//	@Router			/sync-log/{id}/retry [post]
func (h *PostRetryHandler) Execute(w http.ResponseWriter, r *http.Request) {
	orgID, err := auth.OrgIDFromCtx(r.Context())
	if err != nil {
		httpx.JSON(w, http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid sync entry id")
		return
	}

	entry, err := h.svc.Orchestrator.Retry(r.Context(), orgID, id)
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toEntryResponse(entry))
}

// RetryAllResponse reports how many due entries a sweep attempted.
type RetryAllResponse struct {
	Attempted int `json:"attempted"`
} // @name RetryAllResponse

// PostRetryAllHandler handles POST /sync-log/retry-all requests.
type PostRetryAllHandler struct {
	svc *appsvcs.Services
}

// NewPostRetryAllHandler returns a PostRetryAllHandler backed by the given services.
func NewPostRetryAllHandler(svc *appsvcs.Services) *PostRetryAllHandler {
	return &PostRetryAllHandler{svc: svc}
}

// Execute dispatches every failed entry whose backoff window has elapsed.
//
//	@Summary		Retry all due entries
//	@Tags			sync
//	@Produce		json
//	@Success		200	{object}	RetryAllResponse
//	@Failure		401	{object}	SyncErrorResponse
//	@Router			/sync-log/retry-all [post]
func (h *PostRetryAllHandler) Execute(w http.ResponseWriter, r *http.Request) {
	if _, err := auth.OrgIDFromCtx(r.Context()); err != nil {
		httpx.JSON(w, http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
		return
	}

	attempted, err := h.svc.Orchestrator.RetryAllFailed(r.Context())
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, RetryAllResponse{Attempted: attempted})
}

func queryOpts(r *http.Request) repositories.QueryOpts {
	opts := repositories.QueryOpts{Limit: defaultPageSize}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			opts.Limit = n
		}
	}
	if opts.Limit > maxPageSize {
		opts.Limit = maxPageSize
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			opts.Offset = n
		}
	}
	return opts
}
