package postgres

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	cartdomain "github.com/dmehra2102/Pickle-Storefront/internal/cart/domain"
	"github.com/dmehra2102/Pickle-Storefront/internal/order/domain"
)

// orderDocument is the jsonb payload stored next to the indexed columns.
// Older rows may lack fields, so reads fill defaults.
type orderDocument struct {
	Customer        customerDocument      `json:"customer"`
	Items           []cartdomain.LineItem `json:"items"`
	Subtotal        decimal.Decimal       `json:"subtotal"`
	ShippingFee     decimal.Decimal       `json:"shippingFee"`
	TotalAmount     decimal.Decimal       `json:"totalAmount"`
	DeliveryAddress string                `json:"deliveryAddress"`
	PaymentMethod   string                `json:"paymentMethod"`
}

type customerDocument struct {
	ExternalID  string `json:"externalId"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Phone       string `json:"phone"`
}

func encodeDocument(o domain.Order) ([]byte, error) {
	return json.Marshal(orderDocument{
		Customer: customerDocument{
			ExternalID:  o.Customer.ExternalID,
			Email:       o.Customer.Email,
			DisplayName: o.Customer.DisplayName,
			Phone:       o.Customer.Phone,
		},
		Items:           o.Items,
		Subtotal:        o.Subtotal,
		ShippingFee:     o.ShippingFee,
		TotalAmount:     o.TotalAmount,
		DeliveryAddress: o.DeliveryAddress,
		PaymentMethod:   string(o.PaymentMethod),
	})
}

// orderRow is one scanned row of the orders table.
type orderRow struct {
	ID        string
	Status    string
	Document  []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (r orderRow) toDomain() (domain.Order, error) {
	var doc orderDocument
	if err := json.Unmarshal(r.Document, &doc); err != nil {
		return domain.Order{}, err
	}

	status, ok := domain.ParseStatus(r.Status)
	if !ok {
		status = domain.StatusPending
	}
	method, ok := domain.ParsePaymentMethod(doc.PaymentMethod)
	if !ok {
		method = domain.PaymentCash
	}
	name := doc.Customer.DisplayName
	if name == "" {
		name = domain.DefaultDisplayName
	}
	items := doc.Items
	if items == nil {
		items = []cartdomain.LineItem{}
	}
	total := doc.TotalAmount
	if total.IsZero() {
		total = doc.Subtotal.Add(doc.ShippingFee)
	}

	return domain.Order{
		ID: r.ID,
		Customer: domain.Customer{
			ExternalID:  doc.Customer.ExternalID,
			Email:       doc.Customer.Email,
			DisplayName: name,
			Phone:       doc.Customer.Phone,
		},
		Items:           items,
		Subtotal:        doc.Subtotal,
		ShippingFee:     doc.ShippingFee,
		TotalAmount:     total,
		DeliveryAddress: doc.DeliveryAddress,
		PaymentMethod:   method,
		Status:          status,
		CreatedAt:       r.CreatedAt.UTC(),
		UpdatedAt:       r.UpdatedAt.UTC(),
	}, nil
}
