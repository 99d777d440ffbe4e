package uow

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/verdano/oms/internal/dal/interfaces/iorderitemrepo"
	"github.com/verdano/oms/internal/dal/interfaces/iorderrepo"
	"github.com/verdano/oms/internal/dal/interfaces/ioutboxrepo"
	"github.com/verdano/oms/internal/dal/interfaces/istatushistoryrepo"
	"github.com/verdano/oms/internal/dal/postgres"
	orderrepo "github.com/verdano/oms/internal/dal/repositories/order/postgres"
	orderitemrepo "github.com/verdano/oms/internal/dal/repositories/orderitem/postgres"
	outboxrepo "github.com/verdano/oms/internal/dal/repositories/outbox/postgres"
	historyrepo "github.com/verdano/oms/internal/dal/repositories/statushistory/postgres"
)

// UnitOfWork scopes the order, order item, status history and outbox
// repositories to one connection. Before Begin the repositories run against
// the pool; after Begin they share a single transaction, so the lifecycle
// service's read-check-write sequences commit or roll back as one unit.
type UnitOfWork struct {
	pool        *pgxpool.Pool
	tx          pgx.Tx
	orderRepo   iorderrepo.IOrderRepository
	itemRepo    iorderitemrepo.IOrderItemRepository
	historyRepo istatushistoryrepo.IStatusHistoryRepository
	outboxRepo  ioutboxrepo.IOutboxRepository
}

func NewUnitOfWork(client *postgres.Client) *UnitOfWork {
	pool := client.Pool()

	return &UnitOfWork{
		pool:        pool,
		orderRepo:   orderrepo.NewPostgresOrderRepository(pool),
		itemRepo:    orderitemrepo.NewPostgresOrderItemRepository(pool),
		historyRepo: historyrepo.NewPostgresStatusHistoryRepository(pool),
		outboxRepo:  outboxrepo.NewOutboxRepository(pool),
	}
}

func (u *UnitOfWork) OrderRepository() iorderrepo.IOrderRepository {
	return u.orderRepo
}

func (u *UnitOfWork) OrderItemRepository() iorderitemrepo.IOrderItemRepository {
	return u.itemRepo
}

func (u *UnitOfWork) StatusHistoryRepository() istatushistoryrepo.IStatusHistoryRepository {
	return u.historyRepo
}

func (u *UnitOfWork) OutboxRepository() ioutboxrepo.IOutboxRepository {
	return u.outboxRepo
}

func (u *UnitOfWork) Begin(ctx context.Context) error {
	tx, err := u.pool.Begin(ctx)
	if err != nil {
		return err
	}

	u.tx = tx
	u.orderRepo = orderrepo.NewPostgresOrderRepository(tx)
	u.itemRepo = orderitemrepo.NewPostgresOrderItemRepository(tx)
	u.historyRepo = historyrepo.NewPostgresStatusHistoryRepository(tx)
	u.outboxRepo = outboxrepo.NewOutboxRepository(tx)

	return nil
}

func (u *UnitOfWork) Commit(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}

	return u.tx.Commit(ctx)
}

func (u *UnitOfWork) Rollback(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}

	return u.tx.Rollback(ctx)
}
