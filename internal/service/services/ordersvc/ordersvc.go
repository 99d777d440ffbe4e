package ordersvc

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"

	"github.com/verdano/oms/internal/dal/interfaces/iorderitemrepo"
	"github.com/verdano/oms/internal/dal/interfaces/iorderrepo"
	"github.com/verdano/oms/internal/dal/interfaces/ioutboxrepo"
	"github.com/verdano/oms/internal/dal/interfaces/istatushistoryrepo"
	"github.com/verdano/oms/internal/dal/postgres"
	"github.com/verdano/oms/internal/dal/uow"
	"github.com/verdano/oms/internal/service/models/order"
)

const (
	defaultNumberPrefix = "ORD"
	defaultNotifyQueue  = "oms.order.events"
	searchResultLimit   = 20
	defaultPageSize     = 50
)

// OrderService is the order lifecycle service. All mutation of orders, items
// and status history goes through its operations, so every state change is
// paired with an audit row.
type OrderService struct {
	pgClient     *postgres.Client
	newUOW       func() unitOfWork
	clock        func() time.Time
	numberPrefix string
	notifyQueue  string
}

type unitOfWork interface {
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	OrderRepository() iorderrepo.IOrderRepository
	OrderItemRepository() iorderitemrepo.IOrderItemRepository
	StatusHistoryRepository() istatushistoryrepo.IStatusHistoryRepository
	OutboxRepository() ioutboxrepo.IOutboxRepository
}

// option is a function that configures the OrderService.
type option func(*OrderService)

// MustNewOrderService creates a new OrderService.
func MustNewOrderService(opts ...option) *OrderService {
	s := &OrderService{
		clock:        time.Now,
		numberPrefix: viper.GetString("orders.number_prefix"),
		notifyQueue:  viper.GetString("notifications.queue"),
	}
	if s.numberPrefix == "" {
		s.numberPrefix = defaultNumberPrefix
	}
	if s.notifyQueue == "" {
		s.notifyQueue = defaultNotifyQueue
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.newUOW == nil {
		if s.pgClient == nil {
			panic("ordersvc: postgres client is required")
		}
		pgClient := s.pgClient
		s.newUOW = func() unitOfWork {
			return uow.NewUnitOfWork(pgClient)
		}
	}

	return s
}

// WithPostgresClient sets the Postgres client for the OrderService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPostgresClient(pgClient *postgres.Client) option {
	return func(s *OrderService) {
		s.pgClient = pgClient
	}
}

// WithNumberPrefix overrides the order number prefix.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithNumberPrefix(prefix string) option {
	return func(s *OrderService) {
		s.numberPrefix = prefix
	}
}

// GetByID retrieves a single order with its items and full status history.
func (s *OrderService) GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	work := s.newUOW()

	o, err := work.OrderRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return s.hydrateOne(ctx, work, o)
}

// GetByOrderNumber retrieves a single order by its human-readable number.
func (s *OrderService) GetByOrderNumber(ctx context.Context, orderNumber string) (*order.Order, error) {
	work := s.newUOW()

	o, err := work.OrderRepository().GetByOrderNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	return s.hydrateOne(ctx, work, o)
}

// GetByPaymentSessionID retrieves the order created for a payment session.
func (s *OrderService) GetByPaymentSessionID(ctx context.Context, sessionID string) (*order.Order, error) {
	work := s.newUOW()

	o, err := work.OrderRepository().GetByPaymentSessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	return s.hydrateOne(ctx, work, o)
}

// GetPendingOrders retrieves PENDING and PROCESSING orders oldest first.
func (s *OrderService) GetPendingOrders(ctx context.Context) ([]order.Order, error) {
	work := s.newUOW()

	orders, err := work.OrderRepository().QueryPending(ctx)
	if err != nil {
		return nil, err
	}

	return s.hydrateItems(ctx, work, orders)
}

// Search performs a case-insensitive substring search across order number,
// email and customer names, capped at 20 results, newest first.
func (s *OrderService) Search(ctx context.Context, query string) ([]order.Order, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []order.Order{}, nil
	}

	work := s.newUOW()

	orders, err := work.OrderRepository().Search(ctx, query, searchResultLimit)
	if err != nil {
		return nil, err
	}

	return s.hydrateItems(ctx, work, orders)
}

// List retrieves orders matching the filter, newest first, plus the total
// match count for pagination.
func (s *OrderService) List(ctx context.Context, filter order.Filter) ([]order.Order, int64, error) {
	if filter.Limit == 0 {
		filter.Limit = defaultPageSize
	}

	work := s.newUOW()

	orders, err := work.OrderRepository().Query(ctx, &filter)
	if err != nil {
		return nil, 0, err
	}

	count, err := work.OrderRepository().Count(ctx, &filter)
	if err != nil {
		return nil, 0, err
	}

	orders, err = s.hydrateItems(ctx, work, orders)
	if err != nil {
		return nil, 0, err
	}

	return orders, count, nil
}

// GetStats aggregates per-status counts and total revenue over non-cancelled,
// non-refunded orders within the optional date range.
func (s *OrderService) GetStats(ctx context.Context, from, to *time.Time) (*order.Stats, error) {
	work := s.newUOW()

	return work.OrderRepository().Stats(ctx, from, to)
}

func (s *OrderService) hydrateOne(ctx context.Context, work unitOfWork, o *order.Order) (*order.Order, error) {
	items, err := work.OrderItemRepository().QueryByOrderIDs(ctx, []uuid.UUID{o.ID})
	if err != nil {
		return nil, err
	}
	o.OrderItems = items

	history, err := work.StatusHistoryRepository().QueryByOrderIDs(ctx, []uuid.UUID{o.ID})
	if err != nil {
		return nil, err
	}
	o.StatusHistory = history

	return o, nil
}

func (s *OrderService) hydrateItems(ctx context.Context, work unitOfWork, orders []order.Order) ([]order.Order, error) {
	if len(orders) == 0 {
		return []order.Order{}, nil
	}

	orderIDs := make([]uuid.UUID, 0, len(orders))
	for _, o := range orders {
		orderIDs = append(orderIDs, o.ID)
	}

	items, err := work.OrderItemRepository().QueryByOrderIDs(ctx, orderIDs)
	if err != nil {
		return nil, err
	}

	for i := range orders {
		for _, item := range items {
			if item.OrderID == orders[i].ID {
				orders[i].OrderItems = append(orders[i].OrderItems, item)
			}
		}
	}

	return orders, nil
}
