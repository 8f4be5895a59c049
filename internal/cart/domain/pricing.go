package domain

import "github.com/shopspring/decimal"

var (
	DefaultFreeShippingThreshold = decimal.NewFromInt(500)
	DefaultFlatShippingFee       = decimal.NewFromInt(50)
)

// Policy holds the shipping rules. A subtotal strictly above the threshold
// ships free.
type Policy struct {
	FreeShippingThreshold decimal.Decimal
	FlatShippingFee       decimal.Decimal
}

func DefaultPolicy() Policy {
	return Policy{
		FreeShippingThreshold: DefaultFreeShippingThreshold,
		FlatShippingFee:       DefaultFlatShippingFee,
	}
}

type Totals struct {
	Subtotal         decimal.Decimal `json:"subtotal"`
	OriginalSubtotal decimal.Decimal `json:"originalSubtotal"`
	Savings          decimal.Decimal `json:"savings"`
	ShippingFee      decimal.Decimal `json:"shippingFee"`
	Total            decimal.Decimal `json:"total"`
}

// Calculate prices a set of line items. An empty set is never charged shipping.
func Calculate(items []LineItem, p Policy) Totals {
	subtotal := decimal.Zero
	original := decimal.Zero
	for _, item := range items {
		qty := decimal.NewFromInt(int64(item.Quantity))
		subtotal = subtotal.Add(item.UnitPrice.Mul(qty))

		unit := item.UnitPrice
		if item.OriginalUnitPrice != nil {
			unit = *item.OriginalUnitPrice
		}
		original = original.Add(unit.Mul(qty))
	}

	savings := original.Sub(subtotal)
	if savings.IsNegative() {
		savings = decimal.Zero
	}

	shipping := p.ShippingFee(subtotal)
	if len(items) == 0 {
		shipping = decimal.Zero
	}

	return Totals{
		Subtotal:         subtotal,
		OriginalSubtotal: original,
		Savings:          savings,
		ShippingFee:      shipping,
		Total:            subtotal.Add(shipping),
	}
}

func (p Policy) ShippingFee(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThan(p.FreeShippingThreshold) {
		return decimal.Zero
	}
	return p.FlatShippingFee
}

// AmountToFreeShipping is how much more the shopper must add for shipping to
// become free, zero once it already is. A subtotal sitting exactly on the
// threshold still pays shipping, so it reports one minor unit.
func (p Policy) AmountToFreeShipping(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThan(p.FreeShippingThreshold) {
		return decimal.Zero
	}
	gap := p.FreeShippingThreshold.Sub(subtotal)
	if gap.IsZero() {
		return minorUnit
	}
	return gap
}

var minorUnit = decimal.New(1, -2)
