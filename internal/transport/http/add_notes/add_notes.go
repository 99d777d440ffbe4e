package addnotes

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/verdano/oms/internal/service/models/order"
	"github.com/verdano/oms/internal/transport/http/respond"
)

// service is an interface for the service layer.
type service interface {
	AddInternalNotes(ctx context.Context, id uuid.UUID, notes string) (*order.Order, error)
}

type addNotesRequest struct {
	Notes string `json:"notes" validate:"required"`
}

// AddNotes handles the internal notes update request.
func AddNotes(w http.ResponseWriter, r *http.Request, service service) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respond.BadRequest(w, "invalid order id")

		return
	}

	var req addNotesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, "failed to decode request body")

		return
	}
	if err := validator.New().Struct(req); err != nil {
		respond.BadRequest(w, err.Error())

		return
	}

	o, err := service.AddInternalNotes(r.Context(), id, req.Notes)
	if err != nil {
		respond.Error(w, err)

		return
	}

	respond.JSON(w, http.StatusOK, o)
}
