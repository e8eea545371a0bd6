package catalog

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// CartLine is a selected item with its quantity and subtotal.
type CartLine struct {
	Item     MenuItem        `json:"item"`
	Quantity int             `json:"quantity"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// Cart maps catalog items to quantities. A zero quantity is the same as
// absence. A Cart is not safe for concurrent use.
type Cart struct {
	catalog    *Catalog
	quantities map[string]int
}

func NewCart(c *Catalog) *Cart {
	return &Cart{
		catalog:    c,
		quantities: make(map[string]int),
	}
}

// SetQuantity stores max(0, quantity) for the item.
func (c *Cart) SetQuantity(itemID string, quantity int) error {
	if _, ok := c.catalog.Item(itemID); !ok {
		return fmt.Errorf("catalog: set quantity of %q: %w", itemID, ErrUnknownItem)
	}
	if quantity <= 0 {
		delete(c.quantities, itemID)
		return nil
	}
	c.quantities[itemID] = quantity
	return nil
}

// AdjustQuantity adds delta to the item's quantity unless the result would
// be negative, in which case nothing changes. It returns the quantity after
// the call.
func (c *Cart) AdjustQuantity(itemID string, delta int) (int, error) {
	if _, ok := c.catalog.Item(itemID); !ok {
		return 0, fmt.Errorf("catalog: adjust quantity of %q: %w", itemID, ErrUnknownItem)
	}
	next := c.quantities[itemID] + delta
	if next < 0 {
		return c.quantities[itemID], nil
	}
	if err := c.SetQuantity(itemID, next); err != nil {
		return 0, err
	}
	return next, nil
}

func (c *Cart) Quantity(itemID string) int {
	return c.quantities[itemID]
}

func (c *Cart) Clear() {
	clear(c.quantities)
}

// SelectedItems returns lines with a positive quantity in catalog order.
func (c *Cart) SelectedItems() []CartLine {
	var lines []CartLine
	for _, item := range c.catalog.Items() {
		qty := c.quantities[item.ID]
		if qty <= 0 {
			continue
		}
		lines = append(lines, CartLine{
			Item:     item,
			Quantity: qty,
			Subtotal: item.Price.Mul(decimal.NewFromInt(int64(qty))),
		})
	}
	return lines
}

func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range c.SelectedItems() {
		total = total.Add(line.Subtotal)
	}
	return total
}

// IsEmpty reports a zero total. A cart holding only free items counts as empty.
func (c *Cart) IsEmpty() bool {
	return c.Total().IsZero()
}
