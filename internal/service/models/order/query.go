package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// Filter represents filter parameters for listing orders.
type Filter struct {
	Status        *Status    `json:"status,omitempty"`
	CustomerEmail string     `json:"customerEmail,omitempty"`
	OrderNumber   string     `json:"orderNumber,omitempty"`
	DateFrom      *time.Time `json:"dateFrom,omitempty"`
	DateTo        *time.Time `json:"dateTo,omitempty"`
	Limit         uint64     `json:"limit,omitempty"`
	Offset        uint64     `json:"offset,omitempty"`
}

// Stats aggregates order counts per status plus total revenue over
// non-cancelled, non-refunded orders.
type Stats struct {
	TotalOrders int64            `json:"totalOrders"`
	ByStatus    map[Status]int64 `json:"byStatus"`
	Revenue     decimal.Decimal  `json:"revenue"`
}
