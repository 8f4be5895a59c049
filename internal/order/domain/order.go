package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	cartdomain "github.com/dmehra2102/Pickle-Storefront/internal/cart/domain"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusShipped, StatusCancelled},
	StatusShipped:   {StatusDelivered},
}

func ParseStatus(s string) (Status, bool) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case StatusPending, StatusConfirmed, StatusShipped, StatusDelivered, StatusCancelled:
		return st, true
	}
	return "", false
}

// CanTransitionTo reports whether staff may move an order from s to next.
// Delivered and cancelled orders are terminal.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type PaymentMethod string

const (
	PaymentCash PaymentMethod = "cash"
	PaymentUPI  PaymentMethod = "upi"
	PaymentCard PaymentMethod = "card"
)

// ParsePaymentMethod maps checkout input to a method. Blank input means
// cash on delivery.
func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	pm := PaymentMethod(strings.ToLower(strings.TrimSpace(s)))
	switch pm {
	case "":
		return PaymentCash, true
	case PaymentCash, PaymentUPI, PaymentCard:
		return pm, true
	}
	return "", false
}

func (p PaymentMethod) Label() string {
	switch p {
	case PaymentUPI:
		return "UPI on Delivery"
	case PaymentCard:
		return "Card on Delivery"
	default:
		return "Cash on Delivery"
	}
}

type Customer struct {
	ExternalID  string `json:"externalId"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Phone       string `json:"phone"`
}

// Order is the payload handed to the order store. ID stays empty until the
// store assigns one.
type Order struct {
	ID              string                `json:"id,omitempty"`
	Customer        Customer              `json:"customer"`
	Items           []cartdomain.LineItem `json:"items"`
	Subtotal        decimal.Decimal       `json:"subtotal"`
	ShippingFee     decimal.Decimal       `json:"shippingFee"`
	TotalAmount     decimal.Decimal       `json:"totalAmount"`
	DeliveryAddress string                `json:"deliveryAddress"`
	PaymentMethod   PaymentMethod         `json:"paymentMethod"`
	Status          Status                `json:"status"`
	CreatedAt       time.Time             `json:"createdAt"`
	UpdatedAt       time.Time             `json:"updatedAt"`
}

func (o Order) ItemCount() int {
	n := 0
	for _, item := range o.Items {
		n += item.Quantity
	}
	return n
}

func copyItems(items []cartdomain.LineItem) []cartdomain.LineItem {
	out := make([]cartdomain.LineItem, 0, len(items))
	for _, item := range items {
		out = append(out, item.Clone())
	}
	return out
}
