package ordersvc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/verdano/oms/internal/dal/postgres"
	"github.com/verdano/oms/internal/service/models/currency"
	"github.com/verdano/oms/internal/service/models/order"
	"github.com/verdano/oms/internal/service/models/orderitem"
	"github.com/verdano/oms/internal/service/models/statushistory"
)

const (
	sessionUniqueConstraint = "orders_payment_session_id_key"
	numberUniqueConstraint  = "orders_order_number_key"

	// Order number collisions between concurrent creations are resolved by
	// the unique index plus a bounded retry with a fresh number.
	maxNumberRetries = 3
)

var (
	ErrMissingEmail     = errors.New("customer email is required")
	ErrMissingSessionID = errors.New("payment session id is required")
	ErrNoItems          = errors.New("order must contain at least one item")
)

// CreateOrderParams carries a normalized payment-completion payload. All
// monetary amounts are in decimal major units.
type CreateOrderParams struct {
	CustomerEmail     string
	CustomerFirstName string
	CustomerLastName  string
	CustomerPhone     string
	UserID            *int64

	ShippingAddress order.Address
	BillingAddress  *order.Address

	Subtotal     decimal.Decimal
	ShippingCost decimal.Decimal
	Tax          decimal.Decimal
	Total        decimal.Decimal
	Currency     currency.Currency

	Items []orderitem.OrderItem

	PaymentSessionID string
	PaymentIntentID  string
	PaidAt           time.Time
	Source           string
}

func (p *CreateOrderParams) validate() error {
	if p.CustomerEmail == "" {
		return ErrMissingEmail
	}
	if p.PaymentSessionID == "" {
		return ErrMissingSessionID
	}
	if len(p.Items) == 0 {
		return ErrNoItems
	}
	if !p.Total.Equal(p.Subtotal.Add(p.ShippingCost).Add(p.Tax)) {
		return order.ErrTotalMismatch
	}

	return nil
}

// CreateOrder creates an order from a completed payment event. The call is
// idempotent on the payment session id: replays return the already created
// order. The order row, its items, the initial audit row and the
// notification outbox message commit in one transaction; a partial order is
// never observable.
func (s *OrderService) CreateOrder(ctx context.Context, params CreateOrderParams) (*order.Order, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	existing, err := s.GetByPaymentSessionID(ctx, params.PaymentSessionID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, order.ErrOrderNotFound) {
		return nil, err
	}

	for attempt := 0; attempt < maxNumberRetries; attempt++ {
		o, err := s.createOnce(ctx, params)
		if err == nil {
			return o, nil
		}

		// A concurrent replay of the same event lost the race on the session
		// key. That is the success case: return the winner's order.
		if postgres.IsUniqueViolation(err, sessionUniqueConstraint) {
			return s.GetByPaymentSessionID(ctx, params.PaymentSessionID)
		}

		if postgres.IsUniqueViolation(err, numberUniqueConstraint) {
			continue
		}

		return nil, err
	}

	return nil, fmt.Errorf("failed to allocate a unique order number after %d attempts", maxNumberRetries)
}

func (s *OrderService) createOnce(ctx context.Context, params CreateOrderParams) (*order.Order, error) {
	now := s.clock()

	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return nil, err
	}
	defer func() { _ = work.Rollback(ctx) }()

	orderNumber, err := s.nextOrderNumber(ctx, work, now)
	if err != nil {
		return nil, err
	}

	customerType := order.CustomerTypeGuest
	if params.UserID != nil {
		customerType = order.CustomerTypeAuthenticated
	}

	paidAt := params.PaidAt
	o := &order.Order{
		ID:                uuid.New(),
		OrderNumber:       orderNumber,
		CustomerEmail:     params.CustomerEmail,
		CustomerFirstName: params.CustomerFirstName,
		CustomerLastName:  params.CustomerLastName,
		CustomerPhone:     params.CustomerPhone,
		UserID:            params.UserID,
		CustomerType:      customerType,
		ShippingAddress:   params.ShippingAddress,
		BillingAddress:    params.BillingAddress,
		Subtotal:          params.Subtotal,
		ShippingCost:      params.ShippingCost,
		Tax:               params.Tax,
		Total:             params.Total,
		Currency:          params.Currency,
		Status:            order.StatusPending,
		PaymentSessionID:  params.PaymentSessionID,
		PaymentIntentID:   params.PaymentIntentID,
		Source:            params.Source,
		CreatedAt:         now,
		UpdatedAt:         now,
		PaidAt:            &paidAt,
	}

	if err := work.OrderRepository().Insert(ctx, o); err != nil {
		return nil, err
	}

	items := make([]orderitem.OrderItem, len(params.Items))
	copy(items, params.Items)
	for i := range items {
		items[i].OrderID = o.ID
		items[i].CreatedAt = now
	}
	items, err = work.OrderItemRepository().BulkInsert(ctx, items)
	if err != nil {
		return nil, err
	}
	o.OrderItems = items

	entry := &statushistory.StatusHistory{
		OrderID:   o.ID,
		Status:    order.StatusPending.String(),
		Note:      "Order created",
		CreatedAt: now,
	}
	if err := work.StatusHistoryRepository().Insert(ctx, entry); err != nil {
		return nil, err
	}
	o.StatusHistory = []statushistory.StatusHistory{*entry}

	if err := s.enqueueEvent(ctx, work, o, eventOrderCreated); err != nil {
		return nil, err
	}

	if err := work.Commit(ctx); err != nil {
		return nil, err
	}

	return o, nil
}

// nextOrderNumber produces PREFIX-YYYY-NNNN, zero-padded, sequence reset
// each calendar year. The read-max-then-increment is not race-free on its
// own; the unique index on order_number is the safety net.
func (s *OrderService) nextOrderNumber(ctx context.Context, work unitOfWork, now time.Time) (string, error) {
	yearPrefix := fmt.Sprintf("%s-%d", s.numberPrefix, now.Year())

	maxSeq, err := work.OrderRepository().MaxOrderNumberSeq(ctx, yearPrefix)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s-%04d", yearPrefix, maxSeq+1), nil
}
