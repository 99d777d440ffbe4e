package searchorders

import (
	"context"
	"net/http"

	"github.com/verdano/oms/internal/service/models/order"
	"github.com/verdano/oms/internal/transport/http/respond"
)

// service is an interface for the service layer.
type service interface {
	Search(ctx context.Context, query string) ([]order.Order, error)
}

type searchOrdersResponse struct {
	Orders []order.Order `json:"orders"`
}

// Search handles the substring search request across order number, email and
// customer names.
func Search(w http.ResponseWriter, r *http.Request, service service) {
	orders, err := service.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		respond.Error(w, err)

		return
	}

	respond.JSON(w, http.StatusOK, searchOrdersResponse{Orders: orders})
}
