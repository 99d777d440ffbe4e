package outbox

import (
	"time"
)

// Message represents a notification event waiting to be published to
// RabbitMQ. Messages are inserted in the same transaction as the lifecycle
// change that produced them and drained by the outbox worker.
type Message struct {
	ID           int64
	QueueName    string
	ExchangeName string
	RoutingKey   string
	Payload      []byte
	ContentType  string
	RetryCount   int
	MaxRetries   int
	LastError    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	NextRetryAt  time.Time
}
