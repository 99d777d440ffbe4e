package postgresrepo

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/verdano/oms/internal/dal/postgres"
	"github.com/verdano/oms/internal/service/models/orderitem"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var orderItemColumns = []string{
	"id",
	"order_id",
	"product_id",
	"name",
	"variant",
	"sku",
	"quantity",
	"unit_price",
	"line_total",
	"weight_grams",
	"image_url",
	"created_at",
}

type PostgresOrderItemRepository struct {
	conn postgres.Querier
}

func NewPostgresOrderItemRepository(conn postgres.Querier) *PostgresOrderItemRepository {
	return &PostgresOrderItemRepository{
		conn: conn,
	}
}

// BulkInsert inserts all line items of an order and returns them with
// generated ids. Items are immutable after this point.
func (r *PostgresOrderItemRepository) BulkInsert(ctx context.Context, items []orderitem.OrderItem) ([]orderitem.OrderItem, error) {
	if len(items) == 0 {
		return []orderitem.OrderItem{}, nil
	}

	builder := psql.Insert("order_items").
		Columns(
			"order_id",
			"product_id",
			"name",
			"variant",
			"sku",
			"quantity",
			"unit_price",
			"line_total",
			"weight_grams",
			"image_url",
			"created_at",
		)

	for _, item := range items {
		builder = builder.Values(
			item.OrderID,
			item.ProductID,
			item.Name,
			item.Variant,
			item.SKU,
			item.Quantity,
			item.UnitPrice,
			item.LineTotal,
			item.WeightGrams,
			item.ImageURL,
			item.CreatedAt,
		)
	}

	query, args, err := builder.Suffix("RETURNING id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build insert query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to bulk insert order items: %w", err)
	}
	defer rows.Close()

	i := 0
	for rows.Next() {
		if err := rows.Scan(&items[i].ID); err != nil {
			return nil, fmt.Errorf("failed to scan order item id: %w", err)
		}
		i++
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return items, nil
}

// QueryByOrderIDs retrieves the items of the given orders.
func (r *PostgresOrderItemRepository) QueryByOrderIDs(ctx context.Context, orderIDs []uuid.UUID) ([]orderitem.OrderItem, error) {
	if len(orderIDs) == 0 {
		return []orderitem.OrderItem{}, nil
	}

	query, args, err := psql.Select(orderItemColumns...).
		From("order_items").
		Where(sq.Eq{"order_id": orderIDs}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	result := []orderitem.OrderItem{}
	for rows.Next() {
		var item orderitem.OrderItem
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.Name,
			&item.Variant,
			&item.SKU,
			&item.Quantity,
			&item.UnitPrice,
			&item.LineTotal,
			&item.WeightGrams,
			&item.ImageURL,
			&item.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		result = append(result, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}
