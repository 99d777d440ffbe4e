package ordersvc

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/verdano/oms/internal/service/models/order"
	"github.com/verdano/oms/internal/service/models/outbox"
)

const (
	eventOrderCreated   = "order.created"
	eventOrderShipped   = "order.shipped"
	eventOrderCancelled = "order.cancelled"

	eventMaxRetries = 5
)

// orderEvent is the payload the notification collaborator consumes. Delivery
// is best-effort through the outbox worker and never gates the lifecycle
// transition that produced it.
type orderEvent struct {
	Event          string    `json:"event"`
	OrderID        uuid.UUID `json:"orderId"`
	OrderNumber    string    `json:"orderNumber"`
	CustomerEmail  string    `json:"customerEmail"`
	Status         string    `json:"status"`
	TrackingNumber string    `json:"trackingNumber,omitempty"`
	TrackingURL    string    `json:"trackingUrl,omitempty"`
	Carrier        string    `json:"carrier,omitempty"`
	OccurredAt     time.Time `json:"occurredAt"`
}

func (s *OrderService) enqueueEvent(ctx context.Context, work unitOfWork, o *order.Order, event string) error {
	payload, err := json.Marshal(orderEvent{
		Event:          event,
		OrderID:        o.ID,
		OrderNumber:    o.OrderNumber,
		CustomerEmail:  o.CustomerEmail,
		Status:         o.Status.String(),
		TrackingNumber: o.TrackingNumber,
		TrackingURL:    o.TrackingURL,
		Carrier:        o.Carrier,
		OccurredAt:     s.clock(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", event, err)
	}

	now := s.clock()

	return work.OutboxRepository().Insert(ctx, outbox.Message{
		QueueName:   s.notifyQueue,
		RoutingKey:  s.notifyQueue,
		Payload:     payload,
		ContentType: "application/json",
		MaxRetries:  eventMaxRetries,
		CreatedAt:   now,
		UpdatedAt:   now,
		NextRetryAt: now,
	})
}
