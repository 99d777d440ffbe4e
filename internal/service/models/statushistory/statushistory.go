package statushistory

import (
	"time"

	"github.com/google/uuid"
)

// StatusHistory is an immutable audit record of a status change. Rows are
// append-only: every status-affecting operation, order creation included,
// writes exactly one row, and no row is ever updated or deleted.
type StatusHistory struct {
	ID        int64     `json:"id"`
	OrderID   uuid.UUID `json:"orderId"`
	Status    string    `json:"status"`
	Note      string    `json:"note,omitempty"`
	ActorID   string    `json:"actorId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
