package domain

import "github.com/shopspring/decimal"

type LineItem struct {
	ID                string           `json:"id"`
	Name              string           `json:"name"`
	UnitPrice         decimal.Decimal  `json:"price"`
	OriginalUnitPrice *decimal.Decimal `json:"originalPrice,omitempty"`
	Quantity          int              `json:"quantity"`
	ImageRef          string           `json:"image"`
	WeightLabel       string           `json:"weight,omitempty"`
}

// LineTotal is unit price times quantity.
func (li LineItem) LineTotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Clone returns a copy that shares no pointers with li.
func (li LineItem) Clone() LineItem {
	if li.OriginalUnitPrice != nil {
		p := *li.OriginalUnitPrice
		li.OriginalUnitPrice = &p
	}
	return li
}

// Cart is the session's mutable collection of line items. Ids are unique and
// every stored quantity is at least 1.
type Cart struct {
	items []LineItem
}

func NewCart() *Cart {
	return &Cart{}
}

// Restore rebuilds a cart from previously stored items, merging duplicate ids
// and dropping entries whose quantity is below 1.
func Restore(items []LineItem) *Cart {
	c := NewCart()
	for _, item := range items {
		if item.ID == "" || item.Quantity < 1 {
			continue
		}
		c.Add(item, item.Quantity)
	}
	return c
}

// Add increments the quantity of an existing id or appends a new line.
// Requested quantities below 1 count as 1.
func (c *Cart) Add(item LineItem, quantity int) {
	if quantity < 1 {
		quantity = 1
	}
	if i := c.indexOf(item.ID); i >= 0 {
		c.items[i].Quantity += quantity
		return
	}
	item = item.Clone()
	item.Quantity = quantity
	c.items = append(c.items, item)
}

// UpdateQuantity sets the quantity of id; anything below 1 removes the line.
func (c *Cart) UpdateQuantity(id string, quantity int) {
	if quantity < 1 {
		c.Remove(id)
		return
	}
	if i := c.indexOf(id); i >= 0 {
		c.items[i].Quantity = quantity
	}
}

func (c *Cart) Remove(id string) {
	i := c.indexOf(id)
	if i < 0 {
		return
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
}

func (c *Cart) Clear() {
	c.items = nil
}

// Items returns a deep copy of the lines in insertion order.
func (c *Cart) Items() []LineItem {
	out := make([]LineItem, 0, len(c.items))
	for _, item := range c.items {
		out = append(out, item.Clone())
	}
	return out
}

func (c *Cart) Len() int {
	return len(c.items)
}

// Count is the total number of units across all lines.
func (c *Cart) Count() int {
	n := 0
	for _, item := range c.items {
		n += item.Quantity
	}
	return n
}

func (c *Cart) Get(id string) (LineItem, bool) {
	if i := c.indexOf(id); i >= 0 {
		return c.items[i].Clone(), true
	}
	return LineItem{}, false
}

func (c *Cart) Totals(p Policy) Totals {
	return Calculate(c.items, p)
}

func (c *Cart) indexOf(id string) int {
	for i := range c.items {
		if c.items[i].ID == id {
			return i
		}
	}
	return -1
}
