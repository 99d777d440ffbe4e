package ordersvc

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdano/oms/internal/service/models/currency"
	"github.com/verdano/oms/internal/service/models/order"
	"github.com/verdano/oms/internal/service/models/orderitem"
)

type testEnv struct {
	svc   *OrderService
	store *fakeStore
	now   time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		store: newFakeStore(),
		now:   time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC),
	}
	env.svc = &OrderService{
		newUOW:       func() unitOfWork { return &fakeUOW{store: env.store} },
		clock:        func() time.Time { return env.now },
		numberPrefix: "ORD",
		notifyQueue:  "oms.order.events",
	}

	return env
}

func (e *testEnv) advance(d time.Duration) {
	e.now = e.now.Add(d)
}

func validParams(sessionID string) CreateOrderParams {
	return CreateOrderParams{
		CustomerEmail:     "jane@example.com",
		CustomerFirstName: "Jane",
		CustomerLastName:  "Doe",
		CustomerPhone:     "+44 20 7946 0823",
		ShippingAddress: order.Address{
			Street:   "1 Long Lane",
			City:     "London",
			Postcode: "SE1 4PG",
			Country:  "GB",
		},
		Subtotal:     decimal.RequireFromString("100.00"),
		ShippingCost: decimal.RequireFromString("5.00"),
		Tax:          decimal.Zero,
		Total:        decimal.RequireFromString("105.00"),
		Currency:     currency.CurrencyGBP,
		Items: []orderitem.OrderItem{
			{
				ProductID: 11,
				Name:      "Walnut cutting board",
				SKU:       "WCB-01",
				Quantity:  1,
				UnitPrice: decimal.RequireFromString("60.00"),
				LineTotal: decimal.RequireFromString("60.00"),
			},
			{
				ProductID: 12,
				Name:      "Oak serving spoon",
				SKU:       "OSS-02",
				Quantity:  2,
				UnitPrice: decimal.RequireFromString("20.00"),
				LineTotal: decimal.RequireFromString("40.00"),
			},
		},
		PaymentSessionID: sessionID,
		PaymentIntentID:  "pi_" + sessionID,
		PaidAt:           time.Date(2025, time.March, 10, 11, 59, 0, 0, time.UTC),
		Source:           "payment-provider",
	}
}

func TestCreateOrder_Success(t *testing.T) {
	env := newTestEnv(t)

	o, err := env.svc.CreateOrder(context.Background(), validParams("sess_abc"))
	require.NoError(t, err)

	assert.Equal(t, "ORD-2025-0001", o.OrderNumber)
	assert.Equal(t, order.StatusPending, o.Status)
	assert.Equal(t, order.CustomerTypeGuest, o.CustomerType)
	require.NotNil(t, o.PaidAt)
	require.Len(t, o.OrderItems, 2)
	for _, item := range o.OrderItems {
		assert.Equal(t, o.ID, item.OrderID)
		assert.NotZero(t, item.ID)
	}

	history := env.store.historyFor(o.ID)
	require.Len(t, history, 1)
	assert.Equal(t, order.StatusPending.String(), history[0].Status)
	assert.Equal(t, "Order created", history[0].Note)

	assert.Equal(t, map[string]int{eventOrderCreated: 1}, env.store.eventsByType())
}

func TestCreateOrder_AuthenticatedCustomer(t *testing.T) {
	env := newTestEnv(t)

	userID := int64(42)
	params := validParams("sess_user")
	params.UserID = &userID

	o, err := env.svc.CreateOrder(context.Background(), params)
	require.NoError(t, err)

	assert.Equal(t, order.CustomerTypeAuthenticated, o.CustomerType)
	require.NotNil(t, o.UserID)
	assert.Equal(t, userID, *o.UserID)
}

func TestCreateOrder_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.svc.CreateOrder(ctx, validParams("sess_abc"))
	require.NoError(t, err)

	second, err := env.svc.CreateOrder(ctx, validParams("sess_abc"))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.OrderNumber, second.OrderNumber)
	assert.Len(t, env.store.orders, 1)
	assert.Len(t, env.store.historyFor(first.ID), 1)
	assert.Equal(t, map[string]int{eventOrderCreated: 1}, env.store.eventsByType())
}

func TestCreateOrder_IdempotentUnderConstraintRace(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.svc.CreateOrder(ctx, validParams("sess_abc"))
	require.NoError(t, err)

	// The pre-insert existence check misses, as it does when two deliveries
	// of the same event race; the unique constraint must catch it.
	env.store.missSessionLookups = 1

	second, err := env.svc.CreateOrder(ctx, validParams("sess_abc"))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, env.store.orders, 1)
}

func TestCreateOrder_RetriesOnOrderNumberCollision(t *testing.T) {
	env := newTestEnv(t)

	env.store.numberCollisions = 2

	o, err := env.svc.CreateOrder(context.Background(), validParams("sess_abc"))
	require.NoError(t, err)
	assert.Equal(t, "ORD-2025-0001", o.OrderNumber)
}

func TestCreateOrder_GivesUpAfterRepeatedCollisions(t *testing.T) {
	env := newTestEnv(t)

	env.store.numberCollisions = maxNumberRetries

	_, err := env.svc.CreateOrder(context.Background(), validParams("sess_abc"))
	require.Error(t, err)
	assert.Empty(t, env.store.orders)
}

func TestCreateOrder_SequentialNumbers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		o, err := env.svc.CreateOrder(ctx, validParams(fmt.Sprintf("sess_%d", i)))
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("ORD-2025-%04d", i), o.OrderNumber)
		env.advance(time.Minute)
	}
}

func TestCreateOrder_ValidationFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(*CreateOrderParams)
		wantErr error
	}{
		{"missing email", func(p *CreateOrderParams) { p.CustomerEmail = "" }, ErrMissingEmail},
		{"missing session", func(p *CreateOrderParams) { p.PaymentSessionID = "" }, ErrMissingSessionID},
		{"no items", func(p *CreateOrderParams) { p.Items = nil }, ErrNoItems},
		{
			"total mismatch",
			func(p *CreateOrderParams) { p.Total = decimal.RequireFromString("999.00") },
			order.ErrTotalMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := validParams("sess_invalid")
			tt.mutate(&params)

			_, err := env.svc.CreateOrder(ctx, params)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, env.store.orders)
		})
	}
}

func TestUpdateStatus_FullLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.svc.CreateOrder(ctx, validParams("sess_abc"))
	require.NoError(t, err)

	pending, err := env.svc.GetPendingOrders(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	env.advance(time.Hour)
	shipped, err := env.svc.UpdateStatus(ctx, created.ID, order.StatusShipped, UpdateStatusOptions{
		TrackingNumber: "TRACK123",
		TrackingURL:    "https://tracking.example.com/TRACK123",
		Carrier:        "DPD",
		ActorID:        "admin-7",
	})
	require.NoError(t, err)
	assert.Equal(t, order.StatusShipped, shipped.Status)
	assert.Equal(t, "TRACK123", shipped.TrackingNumber)
	require.NotNil(t, shipped.ShippedAt)
	assert.Equal(t, env.now, *shipped.ShippedAt)
	require.Len(t, shipped.StatusHistory, 2)
	assert.Equal(t, "admin-7", shipped.StatusHistory[1].ActorID)

	pending, err = env.svc.GetPendingOrders(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	env.advance(48 * time.Hour)
	delivered, err := env.svc.UpdateStatus(ctx, created.ID, order.StatusDelivered, UpdateStatusOptions{})
	require.NoError(t, err)
	assert.Equal(t, order.StatusDelivered, delivered.Status)
	require.NotNil(t, delivered.DeliveredAt)
	require.Len(t, delivered.StatusHistory, 3)

	assert.Equal(t, map[string]int{
		eventOrderCreated: 1,
		eventOrderShipped: 1,
	}, env.store.eventsByType())
}

func TestUpdateStatus_ShippedRequiresTracking(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.svc.CreateOrder(ctx, validParams("sess_abc"))
	require.NoError(t, err)

	_, err = env.svc.UpdateStatus(ctx, created.ID, order.StatusShipped, UpdateStatusOptions{})
	assert.ErrorIs(t, err, order.ErrTrackingRequired)

	// rejected transitions must leave status and history untouched
	current, err := env.svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, current.Status)
	assert.Len(t, current.StatusHistory, 1)
}

func TestUpdateStatus_InvalidTransitions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.svc.CreateOrder(ctx, validParams("sess_abc"))
	require.NoError(t, err)

	_, err = env.svc.UpdateStatus(ctx, created.ID, order.StatusDelivered, UpdateStatusOptions{})
	assert.ErrorIs(t, err, order.ErrInvalidTransition)

	_, err = env.svc.UpdateStatus(ctx, created.ID, order.StatusShipped, UpdateStatusOptions{TrackingNumber: "T1"})
	require.NoError(t, err)
	_, err = env.svc.UpdateStatus(ctx, created.ID, order.StatusDelivered, UpdateStatusOptions{})
	require.NoError(t, err)

	// DELIVERED is terminal
	_, err = env.svc.UpdateStatus(ctx, created.ID, order.StatusProcessing, UpdateStatusOptions{})
	assert.ErrorIs(t, err, order.ErrInvalidTransition)

	current, err := env.svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Len(t, current.StatusHistory, 3)
}

func TestUpdateStatus_UnknownOrder(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.UpdateStatus(context.Background(), uuid.New(), order.StatusProcessing, UpdateStatusOptions{})
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}

func TestCancelOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.svc.CreateOrder(ctx, validParams("sess_abc"))
	require.NoError(t, err)

	cancelled, err := env.svc.CancelOrder(ctx, created.ID, "customer request", "admin-3")
	require.NoError(t, err)
	assert.Equal(t, order.StatusCancelled, cancelled.Status)
	assert.Equal(t, "customer request", cancelled.CancellationReason)
	require.NotNil(t, cancelled.CancelledAt)
	require.Len(t, cancelled.StatusHistory, 2)
	assert.Equal(t, "customer request", cancelled.StatusHistory[1].Note)

	assert.Equal(t, 1, env.store.eventsByType()[eventOrderCancelled])
}

func TestCancelOrder_RejectsShippedAndTerminal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.svc.CreateOrder(ctx, validParams("sess_abc"))
	require.NoError(t, err)

	_, err = env.svc.UpdateStatus(ctx, created.ID, order.StatusShipped, UpdateStatusOptions{TrackingNumber: "T1"})
	require.NoError(t, err)

	_, err = env.svc.CancelOrder(ctx, created.ID, "too late", "admin-3")
	assert.ErrorIs(t, err, order.ErrInvalidTransition)
}

func TestCancelOrder_RequiresReason(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.svc.CreateOrder(ctx, validParams("sess_abc"))
	require.NoError(t, err)

	_, err = env.svc.CancelOrder(ctx, created.ID, "", "admin-3")
	assert.ErrorIs(t, err, ErrMissingReason)
}

func TestAddInternalNotes_NoAuditRow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.svc.CreateOrder(ctx, validParams("sess_abc"))
	require.NoError(t, err)

	updated, err := env.svc.AddInternalNotes(ctx, created.ID, "ships from warehouse B")
	require.NoError(t, err)
	assert.Equal(t, "ships from warehouse B", updated.InternalNotes)
	assert.Len(t, updated.StatusHistory, 1)

	updated, err = env.svc.AddInternalNotes(ctx, created.ID, "actually warehouse C")
	require.NoError(t, err)
	assert.Equal(t, "actually warehouse C", updated.InternalNotes)
	assert.Len(t, updated.StatusHistory, 1)
}

func TestGetPendingOrders_OldestFirst(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.svc.CreateOrder(ctx, validParams("sess_1"))
	require.NoError(t, err)
	env.advance(time.Hour)
	second, err := env.svc.CreateOrder(ctx, validParams("sess_2"))
	require.NoError(t, err)

	pending, err := env.svc.GetPendingOrders(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.ID, pending[0].ID)
	assert.Equal(t, second.ID, pending[1].ID)

	_, err = env.svc.UpdateStatus(ctx, first.ID, order.StatusProcessing, UpdateStatusOptions{})
	require.NoError(t, err)
	pending, err = env.svc.GetPendingOrders(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	_, err = env.svc.CancelOrder(ctx, second.ID, "out of stock", "admin-1")
	require.NoError(t, err)
	pending, err = env.svc.GetPendingOrders(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, first.ID, pending[0].ID)
}

func TestSearch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.CreateOrder(ctx, validParams("sess_1"))
	require.NoError(t, err)

	params := validParams("sess_2")
	params.CustomerEmail = "bob@elsewhere.net"
	params.CustomerFirstName = "Bob"
	env.advance(time.Minute)
	_, err = env.svc.CreateOrder(ctx, params)
	require.NoError(t, err)

	results, err := env.svc.Search(ctx, "JANE")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "jane@example.com", results[0].CustomerEmail)

	results, err = env.svc.Search(ctx, "ORD-2025")
	require.NoError(t, err)
	assert.Len(t, results, 2)

	results, err = env.svc.Search(ctx, "   ")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_CappedAtTwenty(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		_, err := env.svc.CreateOrder(ctx, validParams(fmt.Sprintf("sess_%d", i)))
		require.NoError(t, err)
		env.advance(time.Second)
	}

	results, err := env.svc.Search(ctx, "jane")
	require.NoError(t, err)
	assert.Len(t, results, searchResultLimit)
}

func TestList(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.svc.CreateOrder(ctx, validParams("sess_1"))
	require.NoError(t, err)
	env.advance(time.Hour)
	second, err := env.svc.CreateOrder(ctx, validParams("sess_2"))
	require.NoError(t, err)

	_, err = env.svc.CancelOrder(ctx, second.ID, "dup", "admin-1")
	require.NoError(t, err)

	orders, count, err := env.svc.List(ctx, order.Filter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
	require.Len(t, orders, 2)
	// newest first
	assert.Equal(t, second.ID, orders[0].ID)

	status := order.StatusCancelled
	orders, count, err = env.svc.List(ctx, order.Filter{Status: &status})
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
	require.Len(t, orders, 1)
	assert.Equal(t, second.ID, orders[0].ID)

	orders, count, err = env.svc.List(ctx, order.Filter{CustomerEmail: "EXAMPLE.com"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
	assert.Len(t, orders, 2)

	orders, count, err = env.svc.List(ctx, order.Filter{OrderNumber: first.OrderNumber})
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
	require.Len(t, orders, 1)
	assert.Equal(t, first.ID, orders[0].ID)
}

func TestGetStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.svc.CreateOrder(ctx, validParams("sess_1"))
	require.NoError(t, err)
	env.advance(time.Minute)
	second, err := env.svc.CreateOrder(ctx, validParams("sess_2"))
	require.NoError(t, err)
	env.advance(time.Minute)
	_, err = env.svc.CreateOrder(ctx, validParams("sess_3"))
	require.NoError(t, err)

	_, err = env.svc.UpdateStatus(ctx, first.ID, order.StatusShipped, UpdateStatusOptions{TrackingNumber: "T1"})
	require.NoError(t, err)
	_, err = env.svc.CancelOrder(ctx, second.ID, "dup", "admin-1")
	require.NoError(t, err)

	stats, err := env.svc.GetStats(ctx, nil, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.TotalOrders)
	assert.EqualValues(t, 1, stats.ByStatus[order.StatusShipped])
	assert.EqualValues(t, 1, stats.ByStatus[order.StatusCancelled])
	assert.EqualValues(t, 1, stats.ByStatus[order.StatusPending])
	// cancelled order excluded from revenue
	assert.True(t, stats.Revenue.Equal(decimal.RequireFromString("210.00")), "revenue = %s", stats.Revenue)
}

func TestGetByOrderNumberAndSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.svc.CreateOrder(ctx, validParams("sess_abc"))
	require.NoError(t, err)

	byNumber, err := env.svc.GetByOrderNumber(ctx, created.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, created.ID, byNumber.ID)
	assert.Len(t, byNumber.OrderItems, 2)
	assert.Len(t, byNumber.StatusHistory, 1)

	bySession, err := env.svc.GetByPaymentSessionID(ctx, "sess_abc")
	require.NoError(t, err)
	assert.Equal(t, created.ID, bySession.ID)

	_, err = env.svc.GetByOrderNumber(ctx, "ORD-2025-9999")
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}
