package postgresrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/verdano/oms/internal/dal/postgres"
	"github.com/verdano/oms/internal/service/models/currency"
	"github.com/verdano/oms/internal/service/models/order"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var orderColumns = []string{
	"id",
	"order_number",
	"customer_email",
	"customer_first_name",
	"customer_last_name",
	"customer_phone",
	"user_id",
	"customer_type",
	"shipping_street",
	"shipping_city",
	"shipping_postcode",
	"shipping_country",
	"billing_street",
	"billing_city",
	"billing_postcode",
	"billing_country",
	"subtotal",
	"shipping_cost",
	"tax",
	"total",
	"currency",
	"status",
	"tracking_number",
	"tracking_url",
	"carrier",
	"supplier_order_id",
	"cancellation_reason",
	"internal_notes",
	"payment_session_id",
	"payment_intent_id",
	"source",
	"created_at",
	"updated_at",
	"paid_at",
	"shipped_at",
	"delivered_at",
	"cancelled_at",
}

// OrderDal represents the order data access layer model.
type OrderDal struct {
	Id                 uuid.UUID
	OrderNumber        string
	CustomerEmail      string
	CustomerFirstName  string
	CustomerLastName   string
	CustomerPhone      string
	UserId             *int64
	CustomerType       string
	ShippingStreet     string
	ShippingCity       string
	ShippingPostcode   string
	ShippingCountry    string
	BillingStreet      *string
	BillingCity        *string
	BillingPostcode    *string
	BillingCountry     *string
	Subtotal           decimal.Decimal
	ShippingCost       decimal.Decimal
	Tax                decimal.Decimal
	Total              decimal.Decimal
	Currency           string
	Status             string
	TrackingNumber     string
	TrackingUrl        string
	Carrier            string
	SupplierOrderId    string
	CancellationReason string
	InternalNotes      string
	PaymentSessionId   string
	PaymentIntentId    string
	Source             string
	CreatedAt          time.Time
	UpdatedAt          time.Time
	PaidAt             *time.Time
	ShippedAt          *time.Time
	DeliveredAt        *time.Time
	CancelledAt        *time.Time
}

// ToModel converts OrderDal to the service layer Order model.
func (o *OrderDal) ToModel() (*order.Order, error) {
	cur, err := currency.ParseCurrency(o.Currency)
	if err != nil {
		return nil, err
	}

	status, err := order.ParseStatus(o.Status)
	if err != nil {
		return nil, err
	}

	model := &order.Order{
		ID:                o.Id,
		OrderNumber:       o.OrderNumber,
		CustomerEmail:     o.CustomerEmail,
		CustomerFirstName: o.CustomerFirstName,
		CustomerLastName:  o.CustomerLastName,
		CustomerPhone:     o.CustomerPhone,
		UserID:            o.UserId,
		CustomerType:      order.CustomerType(o.CustomerType),
		ShippingAddress: order.Address{
			Street:   o.ShippingStreet,
			City:     o.ShippingCity,
			Postcode: o.ShippingPostcode,
			Country:  o.ShippingCountry,
		},
		Subtotal:           o.Subtotal,
		ShippingCost:       o.ShippingCost,
		Tax:                o.Tax,
		Total:              o.Total,
		Currency:           cur,
		Status:             status,
		TrackingNumber:     o.TrackingNumber,
		TrackingURL:        o.TrackingUrl,
		Carrier:            o.Carrier,
		SupplierOrderID:    o.SupplierOrderId,
		CancellationReason: o.CancellationReason,
		InternalNotes:      o.InternalNotes,
		PaymentSessionID:   o.PaymentSessionId,
		PaymentIntentID:    o.PaymentIntentId,
		Source:             o.Source,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
		PaidAt:             o.PaidAt,
		ShippedAt:          o.ShippedAt,
		DeliveredAt:        o.DeliveredAt,
		CancelledAt:        o.CancelledAt,
	}

	if o.BillingStreet != nil {
		model.BillingAddress = &order.Address{
			Street:   *o.BillingStreet,
			City:     valueOr(o.BillingCity),
			Postcode: valueOr(o.BillingPostcode),
			Country:  valueOr(o.BillingCountry),
		}
	}

	return model, nil
}

func valueOr(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*order.Order, error) {
	var dal OrderDal
	err := row.Scan(
		&dal.Id,
		&dal.OrderNumber,
		&dal.CustomerEmail,
		&dal.CustomerFirstName,
		&dal.CustomerLastName,
		&dal.CustomerPhone,
		&dal.UserId,
		&dal.CustomerType,
		&dal.ShippingStreet,
		&dal.ShippingCity,
		&dal.ShippingPostcode,
		&dal.ShippingCountry,
		&dal.BillingStreet,
		&dal.BillingCity,
		&dal.BillingPostcode,
		&dal.BillingCountry,
		&dal.Subtotal,
		&dal.ShippingCost,
		&dal.Tax,
		&dal.Total,
		&dal.Currency,
		&dal.Status,
		&dal.TrackingNumber,
		&dal.TrackingUrl,
		&dal.Carrier,
		&dal.SupplierOrderId,
		&dal.CancellationReason,
		&dal.InternalNotes,
		&dal.PaymentSessionId,
		&dal.PaymentIntentId,
		&dal.Source,
		&dal.CreatedAt,
		&dal.UpdatedAt,
		&dal.PaidAt,
		&dal.ShippedAt,
		&dal.DeliveredAt,
		&dal.CancelledAt,
	)
	if err != nil {
		return nil, err
	}

	return dal.ToModel()
}

type PostgresOrderRepository struct {
	conn postgres.Querier
}

func NewPostgresOrderRepository(conn postgres.Querier) *PostgresOrderRepository {
	return &PostgresOrderRepository{
		conn: conn,
	}
}

// Insert inserts a single order row.
func (r *PostgresOrderRepository) Insert(ctx context.Context, o *order.Order) error {
	var billingStreet, billingCity, billingPostcode, billingCountry *string
	if o.BillingAddress != nil {
		billingStreet = &o.BillingAddress.Street
		billingCity = &o.BillingAddress.City
		billingPostcode = &o.BillingAddress.Postcode
		billingCountry = &o.BillingAddress.Country
	}

	query, args, err := psql.Insert("orders").
		Columns(orderColumns...).
		Values(
			o.ID,
			o.OrderNumber,
			o.CustomerEmail,
			o.CustomerFirstName,
			o.CustomerLastName,
			o.CustomerPhone,
			o.UserID,
			string(o.CustomerType),
			o.ShippingAddress.Street,
			o.ShippingAddress.City,
			o.ShippingAddress.Postcode,
			o.ShippingAddress.Country,
			billingStreet,
			billingCity,
			billingPostcode,
			billingCountry,
			o.Subtotal,
			o.ShippingCost,
			o.Tax,
			o.Total,
			o.Currency.String(),
			o.Status.String(),
			o.TrackingNumber,
			o.TrackingURL,
			o.Carrier,
			o.SupplierOrderID,
			o.CancellationReason,
			o.InternalNotes,
			o.PaymentSessionID,
			o.PaymentIntentID,
			o.Source,
			o.CreatedAt,
			o.UpdatedAt,
			o.PaidAt,
			o.ShippedAt,
			o.DeliveredAt,
			o.CancelledAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	return nil
}

// Update persists the mutable lifecycle fields of an order.
func (r *PostgresOrderRepository) Update(ctx context.Context, o *order.Order) error {
	query, args, err := psql.Update("orders").
		Set("status", o.Status.String()).
		Set("tracking_number", o.TrackingNumber).
		Set("tracking_url", o.TrackingURL).
		Set("carrier", o.Carrier).
		Set("supplier_order_id", o.SupplierOrderID).
		Set("cancellation_reason", o.CancellationReason).
		Set("internal_notes", o.InternalNotes).
		Set("updated_at", o.UpdatedAt).
		Set("shipped_at", o.ShippedAt).
		Set("delivered_at", o.DeliveredAt).
		Set("cancelled_at", o.CancelledAt).
		Where(sq.Eq{"id": o.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrOrderNotFound
	}

	return nil
}

func (r *PostgresOrderRepository) getBy(ctx context.Context, pred sq.Eq, forUpdate bool) (*order.Order, error) {
	builder := psql.Select(orderColumns...).From("orders").Where(pred)
	if forUpdate {
		builder = builder.Suffix("FOR UPDATE")
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	o, err := scanOrder(r.conn.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrOrderNotFound
		}

		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	return o, nil
}

// GetByID retrieves a single order by its internal id.
func (r *PostgresOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return r.getBy(ctx, sq.Eq{"id": id}, false)
}

// GetByIDForUpdate retrieves an order and locks the row until the enclosing
// transaction completes.
func (r *PostgresOrderRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return r.getBy(ctx, sq.Eq{"id": id}, true)
}

// GetByOrderNumber retrieves a single order by its human-readable number.
func (r *PostgresOrderRepository) GetByOrderNumber(ctx context.Context, orderNumber string) (*order.Order, error) {
	return r.getBy(ctx, sq.Eq{"order_number": orderNumber}, false)
}

// GetByPaymentSessionID retrieves the order created for a payment session.
func (r *PostgresOrderRepository) GetByPaymentSessionID(ctx context.Context, sessionID string) (*order.Order, error) {
	return r.getBy(ctx, sq.Eq{"payment_session_id": sessionID}, false)
}

func applyFilter(builder sq.SelectBuilder, filter *order.Filter) sq.SelectBuilder {
	if filter.Status != nil {
		builder = builder.Where(sq.Eq{"status": filter.Status.String()})
	}
	if filter.CustomerEmail != "" {
		builder = builder.Where(sq.ILike{"customer_email": "%" + filter.CustomerEmail + "%"})
	}
	if filter.OrderNumber != "" {
		builder = builder.Where(sq.Eq{"order_number": filter.OrderNumber})
	}
	if filter.DateFrom != nil {
		builder = builder.Where(sq.GtOrEq{"created_at": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		builder = builder.Where(sq.LtOrEq{"created_at": *filter.DateTo})
	}

	return builder
}

// Query retrieves orders matching the filter, newest first.
func (r *PostgresOrderRepository) Query(ctx context.Context, filter *order.Filter) ([]order.Order, error) {
	builder := applyFilter(psql.Select(orderColumns...).From("orders"), filter).
		OrderBy("created_at DESC")

	if filter.Limit > 0 {
		builder = builder.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		builder = builder.Offset(filter.Offset)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	return r.queryOrders(ctx, query, args)
}

// Count returns the number of orders matching the filter.
func (r *PostgresOrderRepository) Count(ctx context.Context, filter *order.Filter) (int64, error) {
	query, args, err := applyFilter(psql.Select("COUNT(*)").From("orders"), filter).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var count int64
	if err := r.conn.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}

	return count, nil
}

// Search performs a case-insensitive substring match across order number,
// email and customer names, newest first.
func (r *PostgresOrderRepository) Search(ctx context.Context, term string, limit uint64) ([]order.Order, error) {
	pattern := "%" + term + "%"
	query, args, err := psql.Select(orderColumns...).
		From("orders").
		Where(sq.Or{
			sq.ILike{"order_number": pattern},
			sq.ILike{"customer_email": pattern},
			sq.ILike{"customer_first_name": pattern},
			sq.ILike{"customer_last_name": pattern},
		}).
		OrderBy("created_at DESC").
		Limit(limit).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build search query: %w", err)
	}

	return r.queryOrders(ctx, query, args)
}

// QueryPending retrieves PENDING and PROCESSING orders oldest first, encoding
// the FIFO fulfillment policy.
func (r *PostgresOrderRepository) QueryPending(ctx context.Context) ([]order.Order, error) {
	query, args, err := psql.Select(orderColumns...).
		From("orders").
		Where(sq.Eq{"status": []string{order.StatusPending.String(), order.StatusProcessing.String()}}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build pending query: %w", err)
	}

	return r.queryOrders(ctx, query, args)
}

func (r *PostgresOrderRepository) queryOrders(ctx context.Context, query string, args []any) ([]order.Order, error) {
	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	result := []order.Order{}
	for rows.Next() {
		model, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		result = append(result, *model)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

// Stats aggregates per-status order counts and total revenue over
// non-cancelled, non-refunded orders within the optional date range.
func (r *PostgresOrderRepository) Stats(ctx context.Context, from, to *time.Time) (*order.Stats, error) {
	builder := psql.Select("status", "COUNT(*)").From("orders")
	if from != nil {
		builder = builder.Where(sq.GtOrEq{"created_at": *from})
	}
	if to != nil {
		builder = builder.Where(sq.LtOrEq{"created_at": *to})
	}

	query, args, err := builder.GroupBy("status").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build stats query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}
	defer rows.Close()

	stats := &order.Stats{
		ByStatus: map[order.Status]int64{},
		Revenue:  decimal.Zero,
	}
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan stats row: %w", err)
		}
		stats.ByStatus[order.Status(status)] = count
		stats.TotalOrders += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	revenueBuilder := psql.Select("COALESCE(SUM(total), 0)").
		From("orders").
		Where(sq.NotEq{"status": []string{order.StatusCancelled.String(), order.StatusRefunded.String()}})
	if from != nil {
		revenueBuilder = revenueBuilder.Where(sq.GtOrEq{"created_at": *from})
	}
	if to != nil {
		revenueBuilder = revenueBuilder.Where(sq.LtOrEq{"created_at": *to})
	}

	query, args, err = revenueBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build revenue query: %w", err)
	}

	if err := r.conn.QueryRow(ctx, query, args...).Scan(&stats.Revenue); err != nil {
		return nil, fmt.Errorf("failed to query revenue: %w", err)
	}

	return stats, nil
}

// MaxOrderNumberSeq returns the highest sequence number among order numbers
// starting with the given prefix, zero when none exist.
func (r *PostgresOrderRepository) MaxOrderNumberSeq(ctx context.Context, prefix string) (int, error) {
	query, args, err := psql.Select(`COALESCE(MAX(CAST(SUBSTRING(order_number FROM '[0-9]+$') AS INT)), 0)`).
		From("orders").
		Where(sq.Like{"order_number": prefix + "-%"}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build sequence query: %w", err)
	}

	var maxSeq int
	if err := r.conn.QueryRow(ctx, query, args...).Scan(&maxSeq); err != nil {
		return 0, fmt.Errorf("failed to query max order number sequence: %w", err)
	}

	return maxSeq, nil
}
