package iorderrepo

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/verdano/oms/internal/service/models/order"
)

// IOrderRepository is an interface for the order postgres repository.
type IOrderRepository interface {
	Insert(ctx context.Context, o *order.Order) error
	Update(ctx context.Context, o *order.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*order.Order, error)
	GetByOrderNumber(ctx context.Context, orderNumber string) (*order.Order, error)
	GetByPaymentSessionID(ctx context.Context, sessionID string) (*order.Order, error)
	Query(ctx context.Context, filter *order.Filter) ([]order.Order, error)
	Count(ctx context.Context, filter *order.Filter) (int64, error)
	Search(ctx context.Context, term string, limit uint64) ([]order.Order, error)
	QueryPending(ctx context.Context) ([]order.Order, error)
	Stats(ctx context.Context, from, to *time.Time) (*order.Stats, error)
	MaxOrderNumberSeq(ctx context.Context, prefix string) (int, error)
}
