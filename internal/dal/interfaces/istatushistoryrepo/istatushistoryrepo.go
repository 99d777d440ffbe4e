package istatushistoryrepo

import (
	"context"

	"github.com/google/uuid"

	"github.com/verdano/oms/internal/service/models/statushistory"
)

// IStatusHistoryRepository is an interface for the append-only status
// history postgres repository.
type IStatusHistoryRepository interface {
	Insert(ctx context.Context, entry *statushistory.StatusHistory) error
	QueryByOrderIDs(ctx context.Context, orderIDs []uuid.UUID) ([]statushistory.StatusHistory, error)
}
