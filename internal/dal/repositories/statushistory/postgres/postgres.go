package postgresrepo

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/verdano/oms/internal/dal/postgres"
	"github.com/verdano/oms/internal/service/models/statushistory"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type PostgresStatusHistoryRepository struct {
	conn postgres.Querier
}

func NewPostgresStatusHistoryRepository(conn postgres.Querier) *PostgresStatusHistoryRepository {
	return &PostgresStatusHistoryRepository{
		conn: conn,
	}
}

// Insert appends one audit row. The table is append-only: there are no
// update or delete operations on this repository.
func (r *PostgresStatusHistoryRepository) Insert(ctx context.Context, entry *statushistory.StatusHistory) error {
	query, args, err := psql.Insert("order_status_history").
		Columns("order_id", "status", "note", "actor_id", "created_at").
		Values(entry.OrderID, entry.Status, entry.Note, entry.ActorID, entry.CreatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}

	if err := r.conn.QueryRow(ctx, query, args...).Scan(&entry.ID); err != nil {
		return fmt.Errorf("failed to insert status history: %w", err)
	}

	return nil
}

// QueryByOrderIDs retrieves history rows for the given orders ordered by
// creation time, the authoritative timeline.
func (r *PostgresStatusHistoryRepository) QueryByOrderIDs(ctx context.Context, orderIDs []uuid.UUID) ([]statushistory.StatusHistory, error) {
	if len(orderIDs) == 0 {
		return []statushistory.StatusHistory{}, nil
	}

	query, args, err := psql.Select("id", "order_id", "status", "note", "actor_id", "created_at").
		From("order_status_history").
		Where(sq.Eq{"order_id": orderIDs}).
		OrderBy("created_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query status history: %w", err)
	}
	defer rows.Close()

	result := []statushistory.StatusHistory{}
	for rows.Next() {
		var entry statushistory.StatusHistory
		err := rows.Scan(
			&entry.ID,
			&entry.OrderID,
			&entry.Status,
			&entry.Note,
			&entry.ActorID,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan status history: %w", err)
		}
		result = append(result, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}
