package domain

import (
	"fmt"
	"strings"
	"time"

	cartdomain "github.com/dmehra2102/Pickle-Storefront/internal/cart/domain"
)

const DefaultDisplayName = "Customer"

// ValidationError names the first checkout field that was rejected.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

type DeliveryDetails struct {
	Address       string
	Phone         string
	PaymentMethod string
}

// Assemble builds a pending order from the cart contents. Fields are checked
// in the order deliveryAddress, phone, items and the first failure wins.
func Assemble(items []cartdomain.LineItem, customer Customer, details DeliveryDetails, policy cartdomain.Policy, now time.Time) (Order, error) {
	address := strings.TrimSpace(details.Address)
	if address == "" {
		return Order{}, &ValidationError{Field: "deliveryAddress", Message: "delivery address is required"}
	}
	phone := strings.TrimSpace(details.Phone)
	if phone == "" {
		return Order{}, &ValidationError{Field: "phone", Message: "phone number is required"}
	}
	if len(items) == 0 {
		return Order{}, &ValidationError{Field: "items", Message: "cart is empty"}
	}

	customer.ExternalID = strings.TrimSpace(customer.ExternalID)
	if customer.ExternalID == "" {
		return Order{}, &ValidationError{Field: "customer.id", Message: "customer must be signed in"}
	}
	customer.DisplayName = strings.TrimSpace(customer.DisplayName)
	if customer.DisplayName == "" {
		customer.DisplayName = DefaultDisplayName
	}
	customer.Phone = phone

	method, ok := ParsePaymentMethod(details.PaymentMethod)
	if !ok {
		return Order{}, &ValidationError{Field: "paymentMethod", Message: fmt.Sprintf("unsupported payment method %q", details.PaymentMethod)}
	}

	lines := copyItems(items)
	totals := cartdomain.Calculate(lines, policy)
	now = now.UTC()

	return Order{
		Customer:        customer,
		Items:           lines,
		Subtotal:        totals.Subtotal,
		ShippingFee:     totals.ShippingFee,
		TotalAmount:     totals.Total,
		DeliveryAddress: address,
		PaymentMethod:   method,
		Status:          StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}
