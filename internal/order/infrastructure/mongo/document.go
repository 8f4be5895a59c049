package mongo

import (
	"time"

	"github.com/shopspring/decimal"

	cartdomain "github.com/dmehra2102/Pickle-Storefront/internal/cart/domain"
	"github.com/dmehra2102/Pickle-Storefront/internal/order/domain"
)

// Money fields hold decimal strings.
type orderDocument struct {
	ID              string           `bson:"_id"`
	Customer        customerDocument `bson:"customer"`
	Items           []itemDocument   `bson:"items"`
	Subtotal        string           `bson:"subtotal"`
	ShippingFee     string           `bson:"shipping_fee"`
	TotalAmount     string           `bson:"total_amount"`
	DeliveryAddress string           `bson:"delivery_address"`
	PaymentMethod   string           `bson:"payment_method"`
	Status          string           `bson:"status"`
	CreatedAt       time.Time        `bson:"created_at"`
	UpdatedAt       time.Time        `bson:"updated_at"`
}

type customerDocument struct {
	ExternalID  string `bson:"external_id"`
	Email       string `bson:"email,omitempty"`
	DisplayName string `bson:"display_name"`
	Phone       string `bson:"phone"`
}

type itemDocument struct {
	ID            string  `bson:"id"`
	Name          string  `bson:"name"`
	Price         string  `bson:"price"`
	OriginalPrice *string `bson:"original_price,omitempty"`
	Quantity      int     `bson:"quantity"`
	Image         string  `bson:"image"`
	Weight        string  `bson:"weight,omitempty"`
}

func toDocument(o domain.Order) orderDocument {
	items := make([]itemDocument, 0, len(o.Items))
	for _, li := range o.Items {
		it := itemDocument{
			ID:       li.ID,
			Name:     li.Name,
			Price:    li.UnitPrice.String(),
			Quantity: li.Quantity,
			Image:    li.ImageRef,
			Weight:   li.WeightLabel,
		}
		if li.OriginalUnitPrice != nil {
			s := li.OriginalUnitPrice.String()
			it.OriginalPrice = &s
		}
		items = append(items, it)
	}
	return orderDocument{
		ID: o.ID,
		Customer: customerDocument{
			ExternalID:  o.Customer.ExternalID,
			Email:       o.Customer.Email,
			DisplayName: o.Customer.DisplayName,
			Phone:       o.Customer.Phone,
		},
		Items:           items,
		Subtotal:        o.Subtotal.String(),
		ShippingFee:     o.ShippingFee.String(),
		TotalAmount:     o.TotalAmount.String(),
		DeliveryAddress: o.DeliveryAddress,
		PaymentMethod:   string(o.PaymentMethod),
		Status:          string(o.Status),
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

func (d orderDocument) toDomain() domain.Order {
	items := make([]cartdomain.LineItem, 0, len(d.Items))
	for _, it := range d.Items {
		li := cartdomain.LineItem{
			ID:          it.ID,
			Name:        it.Name,
			UnitPrice:   parseMoney(it.Price),
			Quantity:    it.Quantity,
			ImageRef:    it.Image,
			WeightLabel: it.Weight,
		}
		if it.OriginalPrice != nil {
			p := parseMoney(*it.OriginalPrice)
			li.OriginalUnitPrice = &p
		}
		if li.Quantity < 1 {
			li.Quantity = 1
		}
		items = append(items, li)
	}

	status, ok := domain.ParseStatus(d.Status)
	if !ok {
		status = domain.StatusPending
	}
	method, ok := domain.ParsePaymentMethod(d.PaymentMethod)
	if !ok {
		method = domain.PaymentCash
	}
	name := d.Customer.DisplayName
	if name == "" {
		name = domain.DefaultDisplayName
	}
	subtotal := parseMoney(d.Subtotal)
	shipping := parseMoney(d.ShippingFee)
	total := parseMoney(d.TotalAmount)
	if d.TotalAmount == "" {
		total = subtotal.Add(shipping)
	}

	return domain.Order{
		ID: d.ID,
		Customer: domain.Customer{
			ExternalID:  d.Customer.ExternalID,
			Email:       d.Customer.Email,
			DisplayName: name,
			Phone:       d.Customer.Phone,
		},
		Items:           items,
		Subtotal:        subtotal,
		ShippingFee:     shipping,
		TotalAmount:     total,
		DeliveryAddress: d.DeliveryAddress,
		PaymentMethod:   method,
		Status:          status,
		CreatedAt:       d.CreatedAt.UTC(),
		UpdatedAt:       d.UpdatedAt.UTC(),
	}
}

func parseMoney(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
