package paymentwebhook

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/verdano/oms/internal/service/models/currency"
	"github.com/verdano/oms/internal/service/models/order"
	"github.com/verdano/oms/internal/service/models/orderitem"
	"github.com/verdano/oms/internal/service/services/ordersvc"
	"github.com/verdano/oms/internal/transport/http/respond"
)

const orderSource = "payment-provider"

// service is an interface for the service layer.
type service interface {
	CreateOrder(ctx context.Context, params ordersvc.CreateOrderParams) (*order.Order, error)
}

type customerPayload struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
}

type addressPayload struct {
	Street   string `json:"street"`
	City     string `json:"city"`
	Postcode string `json:"postcode"`
	Country  string `json:"country"`
}

type lineItemPayload struct {
	ProductID   int64  `json:"productId"`
	Name        string `json:"name"`
	Variant     string `json:"variant"`
	SKU         string `json:"sku"`
	Quantity    int    `json:"quantity"`
	UnitAmount  int64  `json:"unitAmount"`
	TotalAmount int64  `json:"totalAmount"`
	WeightGrams int    `json:"weightGrams"`
	ImageURL    string `json:"imageUrl"`
}

// paymentCompletedEvent is the provider's payment-completion payload.
// Signature verification happens upstream; amounts arrive in minor currency
// units.
type paymentCompletedEvent struct {
	ID              string            `json:"id"`
	Type            string            `json:"type"`
	SessionID       string            `json:"sessionId"`
	PaymentIntentID string            `json:"paymentIntentId"`
	UserID          *int64            `json:"userId"`
	Customer        customerPayload   `json:"customer"`
	ShippingAddress *addressPayload   `json:"shippingAddress"`
	BillingAddress  *addressPayload   `json:"billingAddress"`
	Currency        string            `json:"currency"`
	AmountSubtotal  int64             `json:"amountSubtotal"`
	AmountShipping  int64             `json:"amountShipping"`
	AmountTax       int64             `json:"amountTax"`
	AmountTotal     int64             `json:"amountTotal"`
	PaidAt          time.Time         `json:"paidAt"`
	LineItems       []lineItemPayload `json:"lineItems"`
}

func minorToMajor(v int64) decimal.Decimal {
	return decimal.New(v, -2)
}

func (e *paymentCompletedEvent) toParams() (*ordersvc.CreateOrderParams, error) {
	cur, err := currency.ParseCurrency(e.Currency)
	if err != nil {
		return nil, err
	}

	items := make([]orderitem.OrderItem, 0, len(e.LineItems))
	for _, li := range e.LineItems {
		items = append(items, orderitem.OrderItem{
			ProductID:   li.ProductID,
			Name:        li.Name,
			Variant:     li.Variant,
			SKU:         li.SKU,
			Quantity:    li.Quantity,
			UnitPrice:   minorToMajor(li.UnitAmount),
			LineTotal:   minorToMajor(li.TotalAmount),
			WeightGrams: li.WeightGrams,
			ImageURL:    li.ImageURL,
		})
	}

	params := &ordersvc.CreateOrderParams{
		CustomerEmail:     e.Customer.Email,
		CustomerFirstName: e.Customer.FirstName,
		CustomerLastName:  e.Customer.LastName,
		CustomerPhone:     e.Customer.Phone,
		UserID:            e.UserID,
		ShippingAddress: order.Address{
			Street:   e.ShippingAddress.Street,
			City:     e.ShippingAddress.City,
			Postcode: e.ShippingAddress.Postcode,
			Country:  e.ShippingAddress.Country,
		},
		Subtotal:         minorToMajor(e.AmountSubtotal),
		ShippingCost:     minorToMajor(e.AmountShipping),
		Tax:              minorToMajor(e.AmountTax),
		Total:            minorToMajor(e.AmountTotal),
		Currency:         cur,
		Items:            items,
		PaymentSessionID: e.SessionID,
		PaymentIntentID:  e.PaymentIntentID,
		PaidAt:           e.PaidAt,
		Source:           orderSource,
	}

	if e.BillingAddress != nil {
		params.BillingAddress = &order.Address{
			Street:   e.BillingAddress.Street,
			City:     e.BillingAddress.City,
			Postcode: e.BillingAddress.Postcode,
			Country:  e.BillingAddress.Country,
		}
	}

	return params, nil
}

type ackResponse struct {
	Received bool `json:"received"`
}

// HandlePaymentCompleted ingests a provider payment-completion event.
// Failures during order construction are logged for manual review and the
// event is still acknowledged: a rejection here would only trigger provider
// retries against an already-failing path. Duplicate deliveries are absorbed
// by the creation idempotency on the session id.
func HandlePaymentCompleted(w http.ResponseWriter, r *http.Request, service service) {
	var event paymentCompletedEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		respond.BadRequest(w, "failed to decode event body")

		return
	}

	ack := func() {
		respond.JSON(w, http.StatusOK, ackResponse{Received: true})
	}

	if event.ShippingAddress == nil {
		slog.Error("Payment event without shipping details, order needs manual review",
			"event_id", event.ID,
			"session_id", event.SessionID,
		)
		ack()

		return
	}

	params, err := event.toParams()
	if err != nil {
		slog.Error("Failed to normalize payment event, order needs manual review",
			"event_id", event.ID,
			"session_id", event.SessionID,
			"error", err,
		)
		ack()

		return
	}

	o, err := service.CreateOrder(r.Context(), *params)
	if err != nil {
		slog.Error("Failed to create order from payment event, order needs manual review",
			"event_id", event.ID,
			"session_id", event.SessionID,
			"error", err,
		)
		ack()

		return
	}

	slog.Info("Order created from payment event",
		"order_id", o.ID,
		"order_number", o.OrderNumber,
		"session_id", o.PaymentSessionID,
	)
	ack()
}
