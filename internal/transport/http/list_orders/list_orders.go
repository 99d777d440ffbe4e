package listorders

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/verdano/oms/internal/service/models/order"
	"github.com/verdano/oms/internal/transport/http/respond"
)

// service is an interface for the service layer.
type service interface {
	List(ctx context.Context, filter order.Filter) ([]order.Order, int64, error)
}

type listOrdersResponse struct {
	Orders []order.Order `json:"orders"`
	Count  int64         `json:"count"`
}

// ListOrders handles the filtered order listing request.
func ListOrders(w http.ResponseWriter, r *http.Request, service service) {
	query := r.URL.Query()

	filter := order.Filter{
		CustomerEmail: query.Get("customerEmail"),
		OrderNumber:   query.Get("orderNumber"),
	}

	if statusStr := query.Get("status"); statusStr != "" {
		status, err := order.ParseStatus(statusStr)
		if err != nil {
			respond.Error(w, err)

			return
		}
		filter.Status = &status
	}

	if fromStr := query.Get("dateFrom"); fromStr != "" {
		from, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			respond.BadRequest(w, "dateFrom must be RFC3339")

			return
		}
		filter.DateFrom = &from
	}

	if toStr := query.Get("dateTo"); toStr != "" {
		to, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			respond.BadRequest(w, "dateTo must be RFC3339")

			return
		}
		filter.DateTo = &to
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.ParseUint(limitStr, 10, 32); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.ParseUint(offsetStr, 10, 32); err == nil {
			filter.Offset = offset
		}
	}

	orders, count, err := service.List(r.Context(), filter)
	if err != nil {
		respond.Error(w, err)

		return
	}

	respond.JSON(w, http.StatusOK, listOrdersResponse{Orders: orders, Count: count})
}
