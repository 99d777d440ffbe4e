package ordersvc

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/verdano/oms/internal/dal/interfaces/iorderitemrepo"
	"github.com/verdano/oms/internal/dal/interfaces/iorderrepo"
	"github.com/verdano/oms/internal/dal/interfaces/ioutboxrepo"
	"github.com/verdano/oms/internal/dal/interfaces/istatushistoryrepo"
	"github.com/verdano/oms/internal/service/models/order"
	"github.com/verdano/oms/internal/service/models/orderitem"
	"github.com/verdano/oms/internal/service/models/outbox"
	"github.com/verdano/oms/internal/service/models/statushistory"
)

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint}
}

// fakeStore is an in-memory stand-in for the Postgres tables, shared by the
// fake repositories. It enforces the same uniqueness constraints the schema
// does.
type fakeStore struct {
	orders  map[uuid.UUID]order.Order
	items   []orderitem.OrderItem
	history []statushistory.StatusHistory
	outbox  []outbox.Message

	nextItemID    int64
	nextHistoryID int64

	// failure injection
	missSessionLookups int
	numberCollisions   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{orders: map[uuid.UUID]order.Order{}}
}

func (st *fakeStore) historyFor(id uuid.UUID) []statushistory.StatusHistory {
	var out []statushistory.StatusHistory
	for _, h := range st.history {
		if h.OrderID == id {
			out = append(out, h)
		}
	}

	return out
}

func (st *fakeStore) eventsByType() map[string]int {
	counts := map[string]int{}
	for _, msg := range st.outbox {
		var evt orderEvent
		if err := json.Unmarshal(msg.Payload, &evt); err == nil {
			counts[evt.Event]++
		}
	}

	return counts
}

type fakeUOW struct {
	store *fakeStore
}

func (f *fakeUOW) Begin(context.Context) error    { return nil }
func (f *fakeUOW) Commit(context.Context) error   { return nil }
func (f *fakeUOW) Rollback(context.Context) error { return nil }

func (f *fakeUOW) OrderRepository() iorderrepo.IOrderRepository {
	return &fakeOrderRepo{store: f.store}
}

func (f *fakeUOW) OrderItemRepository() iorderitemrepo.IOrderItemRepository {
	return &fakeOrderItemRepo{store: f.store}
}

func (f *fakeUOW) StatusHistoryRepository() istatushistoryrepo.IStatusHistoryRepository {
	return &fakeHistoryRepo{store: f.store}
}

func (f *fakeUOW) OutboxRepository() ioutboxrepo.IOutboxRepository {
	return &fakeOutboxRepo{store: f.store}
}

type fakeOrderRepo struct {
	store *fakeStore
}

func (r *fakeOrderRepo) Insert(_ context.Context, o *order.Order) error {
	if r.store.numberCollisions > 0 {
		r.store.numberCollisions--

		return uniqueViolation(numberUniqueConstraint)
	}

	for _, existing := range r.store.orders {
		if existing.PaymentSessionID == o.PaymentSessionID {
			return uniqueViolation(sessionUniqueConstraint)
		}
		if existing.OrderNumber == o.OrderNumber {
			return uniqueViolation(numberUniqueConstraint)
		}
	}

	r.store.orders[o.ID] = *o

	return nil
}

func (r *fakeOrderRepo) Update(_ context.Context, o *order.Order) error {
	if _, ok := r.store.orders[o.ID]; !ok {
		return order.ErrOrderNotFound
	}
	r.store.orders[o.ID] = *o

	return nil
}

func (r *fakeOrderRepo) GetByID(_ context.Context, id uuid.UUID) (*order.Order, error) {
	o, ok := r.store.orders[id]
	if !ok {
		return nil, order.ErrOrderNotFound
	}

	return &o, nil
}

func (r *fakeOrderRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeOrderRepo) GetByOrderNumber(_ context.Context, orderNumber string) (*order.Order, error) {
	for _, o := range r.store.orders {
		if o.OrderNumber == orderNumber {
			return &o, nil
		}
	}

	return nil, order.ErrOrderNotFound
}

func (r *fakeOrderRepo) GetByPaymentSessionID(_ context.Context, sessionID string) (*order.Order, error) {
	if r.store.missSessionLookups > 0 {
		r.store.missSessionLookups--

		return nil, order.ErrOrderNotFound
	}

	for _, o := range r.store.orders {
		if o.PaymentSessionID == sessionID {
			return &o, nil
		}
	}

	return nil, order.ErrOrderNotFound
}

func (r *fakeOrderRepo) matches(o order.Order, filter *order.Filter) bool {
	if filter.Status != nil && o.Status != *filter.Status {
		return false
	}
	if filter.CustomerEmail != "" &&
		!strings.Contains(strings.ToLower(o.CustomerEmail), strings.ToLower(filter.CustomerEmail)) {
		return false
	}
	if filter.OrderNumber != "" && o.OrderNumber != filter.OrderNumber {
		return false
	}
	if filter.DateFrom != nil && o.CreatedAt.Before(*filter.DateFrom) {
		return false
	}
	if filter.DateTo != nil && o.CreatedAt.After(*filter.DateTo) {
		return false
	}

	return true
}

func (r *fakeOrderRepo) all() []order.Order {
	out := make([]order.Order, 0, len(r.store.orders))
	for _, o := range r.store.orders {
		out = append(out, o)
	}

	return out
}

func (r *fakeOrderRepo) Query(_ context.Context, filter *order.Filter) ([]order.Order, error) {
	out := []order.Order{}
	for _, o := range r.all() {
		if r.matches(o, filter) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if filter.Offset > 0 {
		if filter.Offset >= uint64(len(out)) {
			return []order.Order{}, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && uint64(len(out)) > filter.Limit {
		out = out[:filter.Limit]
	}

	return out, nil
}

func (r *fakeOrderRepo) Count(_ context.Context, filter *order.Filter) (int64, error) {
	var count int64
	for _, o := range r.all() {
		if r.matches(o, filter) {
			count++
		}
	}

	return count, nil
}

func (r *fakeOrderRepo) Search(_ context.Context, term string, limit uint64) ([]order.Order, error) {
	term = strings.ToLower(term)
	out := []order.Order{}
	for _, o := range r.all() {
		haystack := strings.ToLower(
			o.OrderNumber + " " + o.CustomerEmail + " " + o.CustomerFirstName + " " + o.CustomerLastName,
		)
		if strings.Contains(haystack, term) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if uint64(len(out)) > limit {
		out = out[:limit]
	}

	return out, nil
}

func (r *fakeOrderRepo) QueryPending(_ context.Context) ([]order.Order, error) {
	out := []order.Order{}
	for _, o := range r.all() {
		if o.Status == order.StatusPending || o.Status == order.StatusProcessing {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })

	return out, nil
}

func (r *fakeOrderRepo) Stats(_ context.Context, from, to *time.Time) (*order.Stats, error) {
	stats := &order.Stats{ByStatus: map[order.Status]int64{}, Revenue: decimal.Zero}
	for _, o := range r.all() {
		if from != nil && o.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && o.CreatedAt.After(*to) {
			continue
		}
		stats.ByStatus[o.Status]++
		stats.TotalOrders++
		if o.Status != order.StatusCancelled && o.Status != order.StatusRefunded {
			stats.Revenue = stats.Revenue.Add(o.Total)
		}
	}

	return stats, nil
}

func (r *fakeOrderRepo) MaxOrderNumberSeq(_ context.Context, prefix string) (int, error) {
	maxSeq := 0
	for _, o := range r.all() {
		if !strings.HasPrefix(o.OrderNumber, prefix+"-") {
			continue
		}
		seq, err := strconv.Atoi(o.OrderNumber[strings.LastIndex(o.OrderNumber, "-")+1:])
		if err == nil && seq > maxSeq {
			maxSeq = seq
		}
	}

	return maxSeq, nil
}

type fakeOrderItemRepo struct {
	store *fakeStore
}

func (r *fakeOrderItemRepo) BulkInsert(_ context.Context, items []orderitem.OrderItem) ([]orderitem.OrderItem, error) {
	for i := range items {
		r.store.nextItemID++
		items[i].ID = r.store.nextItemID
		r.store.items = append(r.store.items, items[i])
	}

	return items, nil
}

func (r *fakeOrderItemRepo) QueryByOrderIDs(_ context.Context, orderIDs []uuid.UUID) ([]orderitem.OrderItem, error) {
	out := []orderitem.OrderItem{}
	for _, item := range r.store.items {
		for _, id := range orderIDs {
			if item.OrderID == id {
				out = append(out, item)
			}
		}
	}

	return out, nil
}

type fakeHistoryRepo struct {
	store *fakeStore
}

func (r *fakeHistoryRepo) Insert(_ context.Context, entry *statushistory.StatusHistory) error {
	r.store.nextHistoryID++
	entry.ID = r.store.nextHistoryID
	r.store.history = append(r.store.history, *entry)

	return nil
}

func (r *fakeHistoryRepo) QueryByOrderIDs(_ context.Context, orderIDs []uuid.UUID) ([]statushistory.StatusHistory, error) {
	out := []statushistory.StatusHistory{}
	for _, entry := range r.store.history {
		for _, id := range orderIDs {
			if entry.OrderID == id {
				out = append(out, entry)
			}
		}
	}

	return out, nil
}

type fakeOutboxRepo struct {
	store *fakeStore
}

func (r *fakeOutboxRepo) Insert(_ context.Context, msg outbox.Message) error {
	msg.ID = int64(len(r.store.outbox) + 1)
	r.store.outbox = append(r.store.outbox, msg)

	return nil
}

func (r *fakeOutboxRepo) GetPendingMessages(_ context.Context, limit int) ([]outbox.Message, error) {
	if len(r.store.outbox) > limit {
		return r.store.outbox[:limit], nil
	}

	return r.store.outbox, nil
}

func (r *fakeOutboxRepo) Delete(_ context.Context, id int64) error {
	for i, msg := range r.store.outbox {
		if msg.ID == id {
			r.store.outbox = append(r.store.outbox[:i], r.store.outbox[i+1:]...)

			return nil
		}
	}

	return nil
}

func (r *fakeOutboxRepo) UpdateRetry(_ context.Context, id int64, retryCount int, lastError string, nextRetryAt time.Time) error {
	for i := range r.store.outbox {
		if r.store.outbox[i].ID == id {
			r.store.outbox[i].RetryCount = retryCount
			r.store.outbox[i].LastError = lastError
			r.store.outbox[i].NextRetryAt = nextRetryAt
		}
	}

	return nil
}
