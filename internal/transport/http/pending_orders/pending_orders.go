package pendingorders

import (
	"context"
	"net/http"

	"github.com/verdano/oms/internal/service/models/order"
	"github.com/verdano/oms/internal/transport/http/respond"
)

// service is an interface for the service layer.
type service interface {
	GetPendingOrders(ctx context.Context) ([]order.Order, error)
}

type pendingOrdersResponse struct {
	Orders []order.Order `json:"orders"`
}

// ListPending handles the pending orders request. Orders come back oldest
// first: the fulfillment queue is FIFO.
func ListPending(w http.ResponseWriter, r *http.Request, service service) {
	orders, err := service.GetPendingOrders(r.Context())
	if err != nil {
		respond.Error(w, err)

		return
	}

	respond.JSON(w, http.StatusOK, pendingOrdersResponse{Orders: orders})
}
