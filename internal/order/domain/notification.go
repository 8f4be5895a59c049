package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	cartdomain "github.com/dmehra2102/Pickle-Storefront/internal/cart/domain"
)

const storeName = "My Mom's Recipe"

// NotificationRequest is the read-only view of a persisted order that staff
// are alerted with.
type NotificationRequest struct {
	OrderID         string                `json:"orderId"`
	CustomerName    string                `json:"customerName"`
	CustomerPhone   string                `json:"customerPhone"`
	CustomerEmail   string                `json:"customerEmail,omitempty"`
	Items           []cartdomain.LineItem `json:"items"`
	Subtotal        decimal.Decimal       `json:"subtotal"`
	ShippingFee     decimal.Decimal       `json:"shipping"`
	Total           decimal.Decimal       `json:"total"`
	DeliveryAddress string                `json:"deliveryAddress"`
	PaymentMethod   PaymentMethod         `json:"paymentMethod"`
	PlacedAt        time.Time             `json:"placedAt"`
}

func NewNotificationRequest(o Order) NotificationRequest {
	return NotificationRequest{
		OrderID:         o.ID,
		CustomerName:    o.Customer.DisplayName,
		CustomerPhone:   o.Customer.Phone,
		CustomerEmail:   o.Customer.Email,
		Items:           copyItems(o.Items),
		Subtotal:        o.Subtotal,
		ShippingFee:     o.ShippingFee,
		Total:           o.TotalAmount,
		DeliveryAddress: o.DeliveryAddress,
		PaymentMethod:   o.PaymentMethod,
		PlacedAt:        o.CreatedAt,
	}
}

// Message renders the plain-text staff summary.
func (n NotificationRequest) Message() string {
	var b strings.Builder

	fmt.Fprintf(&b, "🛒 NEW ORDER - %s\n\n", storeName)
	fmt.Fprintf(&b, "Order ID: %s\n", n.OrderID)
	fmt.Fprintf(&b, "Customer: %s\n", n.CustomerName)
	fmt.Fprintf(&b, "Phone: %s\n", n.CustomerPhone)
	email := n.CustomerEmail
	if email == "" {
		email = "Not provided"
	}
	fmt.Fprintf(&b, "Email: %s\n", email)
	fmt.Fprintf(&b, "Date: %s\n\n", n.PlacedAt.Format("2/1/2006"))

	b.WriteString("ORDER ITEMS:\n")
	for _, item := range n.Items {
		weight := item.WeightLabel
		if weight == "" {
			weight = "N/A"
		}
		fmt.Fprintf(&b, "• %s (%s) - %d × ₹%s = ₹%s\n",
			item.Name, weight, item.Quantity, item.UnitPrice.String(), item.LineTotal().String())
	}

	fmt.Fprintf(&b, "\nSubtotal: ₹%s\n", n.Subtotal.String())
	if n.ShippingFee.IsZero() {
		b.WriteString("Shipping: FREE\n")
	} else {
		fmt.Fprintf(&b, "Shipping: ₹%s\n", n.ShippingFee.String())
	}
	fmt.Fprintf(&b, "TOTAL: ₹%s\n\n", n.Total.String())

	fmt.Fprintf(&b, "DELIVERY ADDRESS:\n%s\n\n", n.DeliveryAddress)
	fmt.Fprintf(&b, "Payment: %s\n\n", n.PaymentMethod.Label())
	b.WriteString("Please contact customer to confirm order.")

	return b.String()
}
