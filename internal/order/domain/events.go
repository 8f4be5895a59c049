package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventOrderPlaced        = "OrderPlaced"
	EventOrderStatusChanged = "OrderStatusChanged"
)

type OrderPlaced struct {
	OrderID       string          `json:"orderId"`
	CustomerID    string          `json:"customerId"`
	ItemCount     int             `json:"itemCount"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	PaymentMethod PaymentMethod   `json:"paymentMethod"`
	PlacedAt      time.Time       `json:"placedAt"`
}

type OrderStatusChanged struct {
	OrderID   string    `json:"orderId"`
	From      Status    `json:"from"`
	To        Status    `json:"to"`
	ChangedAt time.Time `json:"changedAt"`
}

func NewOrderPlaced(o Order) OrderPlaced {
	return OrderPlaced{
		OrderID:       o.ID,
		CustomerID:    o.Customer.ExternalID,
		ItemCount:     o.ItemCount(),
		TotalAmount:   o.TotalAmount,
		PaymentMethod: o.PaymentMethod,
		PlacedAt:      o.CreatedAt,
	}
}
