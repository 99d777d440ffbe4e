package orderstats

import (
	"context"
	"net/http"
	"time"

	"github.com/verdano/oms/internal/service/models/order"
	"github.com/verdano/oms/internal/transport/http/respond"
)

// service is an interface for the service layer.
type service interface {
	GetStats(ctx context.Context, from, to *time.Time) (*order.Stats, error)
}

// Stats handles the aggregate statistics request.
func Stats(w http.ResponseWriter, r *http.Request, service service) {
	var from, to *time.Time
	query := r.URL.Query()

	if fromStr := query.Get("dateFrom"); fromStr != "" {
		parsed, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			respond.BadRequest(w, "dateFrom must be RFC3339")

			return
		}
		from = &parsed
	}

	if toStr := query.Get("dateTo"); toStr != "" {
		parsed, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			respond.BadRequest(w, "dateTo must be RFC3339")

			return
		}
		to = &parsed
	}

	stats, err := service.GetStats(r.Context(), from, to)
	if err != nil {
		respond.Error(w, err)

		return
	}

	respond.JSON(w, http.StatusOK, stats)
}
