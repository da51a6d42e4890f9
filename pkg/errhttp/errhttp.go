// Package errhttp maps domain sentinel errors to HTTP status codes.
// Add a case to mapErrorToStatus for each new domain sentinel error.
package errhttp

import (
	"errors"
	"net/http"

	"github.com/ghuser/stockledger/pkg/httpx"
	erpsyncdomain "github.com/ghuser/stockledger/services/erpsync/domain"
	invdomain "github.com/ghuser/stockledger/services/inventory/domain"
)

// WriteError maps err to an HTTP status code and writes a JSON error response.
// Uses errors.Is() so wrapped sentinel errors are matched correctly.
// Defaults to 500 Internal Server Error for unrecognized errors.
func WriteError(w http.ResponseWriter, err error) {
	httpx.JSONError(w, mapErrorToStatus(err), err.Error())
}

func mapErrorToStatus(err error) int {
	switch {
	case errors.Is(err, invdomain.ErrItemNotFound),
		errors.Is(err, invdomain.ErrMovementNotFound),
		errors.Is(err, invdomain.ErrOrderNotFound),
		errors.Is(err, erpsyncdomain.ErrSyncEntryNotFound):
		return http.StatusNotFound // 404
	case errors.Is(err, invdomain.ErrSKUAlreadyExists),
		errors.Is(err, invdomain.ErrInsufficientStock),
		errors.Is(err, invdomain.ErrInsufficientAvailableStock),
		errors.Is(err, invdomain.ErrAlreadyReserved),
		errors.Is(err, invdomain.ErrBatchAlreadyWrittenOff),
		errors.Is(err, invdomain.ErrConcurrencyConflict),
		errors.Is(err, erpsyncdomain.ErrSyncNotRetryable):
		return http.StatusConflict // 409
	case errors.Is(err, invdomain.ErrInvalidSKU),
		errors.Is(err, invdomain.ErrInvalidItem),
		errors.Is(err, invdomain.ErrInvalidMovement),
		errors.Is(err, invdomain.ErrUnitNotConvertible),
		errors.Is(err, invdomain.ErrInvalidTransition),
		errors.Is(err, invdomain.ErrNotAReceipt):
		return http.StatusUnprocessableEntity // 422
	default:
		return http.StatusInternalServerError // 500
	}
}
