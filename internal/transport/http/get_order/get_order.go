package getorder

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/verdano/oms/internal/service/models/order"
	"github.com/verdano/oms/internal/transport/http/respond"
)

// service is an interface for the service layer.
type service interface {
	GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error)
	GetByOrderNumber(ctx context.Context, orderNumber string) (*order.Order, error)
}

// GetByID handles the single order request by internal id.
func GetByID(w http.ResponseWriter, r *http.Request, service service) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respond.BadRequest(w, "invalid order id")

		return
	}

	o, err := service.GetByID(r.Context(), id)
	if err != nil {
		respond.Error(w, err)

		return
	}

	respond.JSON(w, http.StatusOK, o)
}

// GetByOrderNumber handles the single order request by order number.
func GetByOrderNumber(w http.ResponseWriter, r *http.Request, service service) {
	o, err := service.GetByOrderNumber(r.Context(), chi.URLParam(r, "orderNumber"))
	if err != nil {
		respond.Error(w, err)

		return
	}

	respond.JSON(w, http.StatusOK, o)
}
