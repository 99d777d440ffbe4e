package updatestatus

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/verdano/oms/internal/service/models/order"
	"github.com/verdano/oms/internal/service/services/ordersvc"
	"github.com/verdano/oms/internal/transport/http/respond"
)

// service is an interface for the service layer.
type service interface {
	UpdateStatus(ctx context.Context, id uuid.UUID, newStatus order.Status, opts ordersvc.UpdateStatusOptions) (*order.Order, error)
}

type updateStatusRequest struct {
	Status          string `json:"status"          validate:"required"`
	Notes           string `json:"notes"`
	SupplierOrderID string `json:"supplierOrderId"`
	TrackingNumber  string `json:"trackingNumber"`
	TrackingURL     string `json:"trackingUrl"`
	Carrier         string `json:"carrier"`
}

// UpdateStatus handles the status transition request.
func UpdateStatus(w http.ResponseWriter, r *http.Request, service service) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respond.BadRequest(w, "invalid order id")

		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, "failed to decode request body")

		return
	}
	if err := validator.New().Struct(req); err != nil {
		respond.BadRequest(w, err.Error())

		return
	}

	newStatus, err := order.ParseStatus(req.Status)
	if err != nil {
		respond.Error(w, err)

		return
	}

	o, err := service.UpdateStatus(r.Context(), id, newStatus, ordersvc.UpdateStatusOptions{
		Note:            req.Notes,
		ActorID:         r.Header.Get("X-Actor-ID"),
		TrackingNumber:  req.TrackingNumber,
		TrackingURL:     req.TrackingURL,
		Carrier:         req.Carrier,
		SupplierOrderID: req.SupplierOrderID,
	})
	if err != nil {
		respond.Error(w, err)

		return
	}

	respond.JSON(w, http.StatusOK, o)
}
