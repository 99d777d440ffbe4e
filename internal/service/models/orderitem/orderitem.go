package orderitem

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderItem represents a line item within an order. Items are a
// product/price snapshot taken at purchase time and are never mutated after
// creation.
type OrderItem struct {
	ID          int64           `json:"id"`
	OrderID     uuid.UUID       `json:"orderId"`
	ProductID   int64           `json:"productId"`
	Name        string          `json:"name"`
	Variant     string          `json:"variant,omitempty"`
	SKU         string          `json:"sku"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
	WeightGrams int             `json:"weightGrams,omitempty"`
	ImageURL    string          `json:"imageUrl,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}
