package order

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/verdano/oms/internal/service/models/currency"
	"github.com/verdano/oms/internal/service/models/orderitem"
	"github.com/verdano/oms/internal/service/models/statushistory"
)

// CustomerType discriminates guest checkouts from orders owned by a
// registered user.
type CustomerType string

const (
	CustomerTypeGuest         CustomerType = "guest"
	CustomerTypeAuthenticated CustomerType = "authenticated"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrTrackingRequired  = errors.New("tracking number is required for shipped status")
	ErrTotalMismatch     = errors.New("total does not equal subtotal + shipping + tax")
)

// Address is a write-once postal address snapshot.
type Address struct {
	Street   string `json:"street"`
	City     string `json:"city"`
	Postcode string `json:"postcode"`
	Country  string `json:"country"`
}

// Order represents one purchase transaction and its fulfillment state.
type Order struct {
	ID          uuid.UUID `json:"id"`
	OrderNumber string    `json:"orderNumber"`

	CustomerEmail     string       `json:"customerEmail"`
	CustomerFirstName string       `json:"customerFirstName"`
	CustomerLastName  string       `json:"customerLastName"`
	CustomerPhone     string       `json:"customerPhone"`
	UserID            *int64       `json:"userId,omitempty"`
	CustomerType      CustomerType `json:"customerType"`

	ShippingAddress Address  `json:"shippingAddress"`
	BillingAddress  *Address `json:"billingAddress,omitempty"`

	Subtotal     decimal.Decimal   `json:"subtotal"`
	ShippingCost decimal.Decimal   `json:"shippingCost"`
	Tax          decimal.Decimal   `json:"tax"`
	Total        decimal.Decimal   `json:"total"`
	Currency     currency.Currency `json:"currency"`

	Status             Status `json:"status"`
	TrackingNumber     string `json:"trackingNumber,omitempty"`
	TrackingURL        string `json:"trackingUrl,omitempty"`
	Carrier            string `json:"carrier,omitempty"`
	SupplierOrderID    string `json:"supplierOrderId,omitempty"`
	CancellationReason string `json:"cancellationReason,omitempty"`
	InternalNotes      string `json:"internalNotes,omitempty"`

	PaymentSessionID string `json:"paymentSessionId"`
	PaymentIntentID  string `json:"paymentIntentId,omitempty"`
	Source           string `json:"source"`

	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	PaidAt      *time.Time `json:"paidAt,omitempty"`
	ShippedAt   *time.Time `json:"shippedAt,omitempty"`
	DeliveredAt *time.Time `json:"deliveredAt,omitempty"`
	CancelledAt *time.Time `json:"cancelledAt,omitempty"`

	OrderItems    []orderitem.OrderItem         `json:"orderItems,omitempty"`
	StatusHistory []statushistory.StatusHistory `json:"statusHistory,omitempty"`
}

// ValidateTotals checks the monetary invariant enforced at creation time.
func (o *Order) ValidateTotals() error {
	if !o.Total.Equal(o.Subtotal.Add(o.ShippingCost).Add(o.Tax)) {
		return ErrTotalMismatch
	}

	return nil
}
