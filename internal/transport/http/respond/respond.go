package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/verdano/oms/internal/service/models/currency"
	"github.com/verdano/oms/internal/service/models/order"
	"github.com/verdano/oms/internal/service/services/ordersvc"
)

// JSON writes v as a JSON response body.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error writing response", "error", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// Error maps service errors onto HTTP status codes and writes the response.
func Error(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, order.ErrOrderNotFound):
		JSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.Is(err, order.ErrInvalidTransition):
		JSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	case errors.Is(err, order.ErrTrackingRequired),
		errors.Is(err, order.ErrTotalMismatch),
		errors.Is(err, order.ErrInvalidStatus),
		errors.Is(err, currency.ErrInvalidCurrency),
		errors.Is(err, ordersvc.ErrMissingEmail),
		errors.Is(err, ordersvc.ErrMissingSessionID),
		errors.Is(err, ordersvc.ErrMissingReason),
		errors.Is(err, ordersvc.ErrNoItems):
		JSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	default:
		slog.Error("Internal error handling request", "error", err)
		JSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
	}
}

// BadRequest writes a 400 with the given message.
func BadRequest(w http.ResponseWriter, msg string) {
	JSON(w, http.StatusBadRequest, errorBody{Error: msg})
}
