package ordersvc

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/verdano/oms/internal/service/models/order"
	"github.com/verdano/oms/internal/service/models/statushistory"
)

var ErrMissingReason = errors.New("cancellation reason is required")

// UpdateStatusOptions carries the optional and status-specific fields of a
// transition.
type UpdateStatusOptions struct {
	Note            string
	ActorID         string
	TrackingNumber  string
	TrackingURL     string
	Carrier         string
	SupplierOrderID string
}

// UpdateStatus applies a lifecycle transition. The current row is locked for
// the duration of the transaction so concurrent conflicting transitions
// serialize instead of losing updates. Every accepted transition appends
// exactly one status history row.
func (s *OrderService) UpdateStatus(ctx context.Context, id uuid.UUID, newStatus order.Status, opts UpdateStatusOptions) (*order.Order, error) {
	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return nil, err
	}
	defer func() { _ = work.Rollback(ctx) }()

	o, err := work.OrderRepository().GetByIDForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}

	if !o.Status.CanTransitionTo(newStatus) {
		return nil, fmt.Errorf("%w: %s -> %s", order.ErrInvalidTransition, o.Status, newStatus)
	}
	if newStatus == order.StatusShipped && opts.TrackingNumber == "" {
		return nil, order.ErrTrackingRequired
	}

	now := s.clock()
	o.Status = newStatus
	o.UpdatedAt = now
	if opts.SupplierOrderID != "" {
		o.SupplierOrderID = opts.SupplierOrderID
	}

	switch newStatus {
	case order.StatusShipped:
		o.ShippedAt = &now
		o.TrackingNumber = opts.TrackingNumber
		o.TrackingURL = opts.TrackingURL
		o.Carrier = opts.Carrier
	case order.StatusDelivered:
		o.DeliveredAt = &now
	case order.StatusCancelled:
		o.CancelledAt = &now
	}

	if err := work.OrderRepository().Update(ctx, o); err != nil {
		return nil, err
	}

	entry := &statushistory.StatusHistory{
		OrderID:   o.ID,
		Status:    newStatus.String(),
		Note:      opts.Note,
		ActorID:   opts.ActorID,
		CreatedAt: now,
	}
	if err := work.StatusHistoryRepository().Insert(ctx, entry); err != nil {
		return nil, err
	}

	if newStatus == order.StatusShipped {
		if err := s.enqueueEvent(ctx, work, o, eventOrderShipped); err != nil {
			return nil, err
		}
	}

	if err := work.Commit(ctx); err != nil {
		return nil, err
	}

	return s.GetByID(ctx, id)
}

// CancelOrder transitions an order to CANCELLED and records the reason.
// Orders already shipped or in a terminal state are rejected.
func (s *OrderService) CancelOrder(ctx context.Context, id uuid.UUID, reason, actorID string) (*order.Order, error) {
	if reason == "" {
		return nil, ErrMissingReason
	}

	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return nil, err
	}
	defer func() { _ = work.Rollback(ctx) }()

	o, err := work.OrderRepository().GetByIDForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}

	if !o.Status.CanTransitionTo(order.StatusCancelled) {
		return nil, fmt.Errorf("%w: %s -> %s", order.ErrInvalidTransition, o.Status, order.StatusCancelled)
	}

	now := s.clock()
	o.Status = order.StatusCancelled
	o.CancellationReason = reason
	o.CancelledAt = &now
	o.UpdatedAt = now

	if err := work.OrderRepository().Update(ctx, o); err != nil {
		return nil, err
	}

	entry := &statushistory.StatusHistory{
		OrderID:   o.ID,
		Status:    order.StatusCancelled.String(),
		Note:      reason,
		ActorID:   actorID,
		CreatedAt: now,
	}
	if err := work.StatusHistoryRepository().Insert(ctx, entry); err != nil {
		return nil, err
	}

	if err := s.enqueueEvent(ctx, work, o, eventOrderCancelled); err != nil {
		return nil, err
	}

	if err := work.Commit(ctx); err != nil {
		return nil, err
	}

	return s.GetByID(ctx, id)
}

// AddInternalNotes overwrites the admin-only notes field. Notes are a
// separate annotation channel from the status audit trail, so no history row
// is written.
func (s *OrderService) AddInternalNotes(ctx context.Context, id uuid.UUID, notes string) (*order.Order, error) {
	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return nil, err
	}
	defer func() { _ = work.Rollback(ctx) }()

	o, err := work.OrderRepository().GetByIDForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}

	o.InternalNotes = notes
	o.UpdatedAt = s.clock()

	if err := work.OrderRepository().Update(ctx, o); err != nil {
		return nil, err
	}

	if err := work.Commit(ctx); err != nil {
		return nil, err
	}

	return s.GetByID(ctx, id)
}
