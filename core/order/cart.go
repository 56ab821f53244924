// Package order holds the per-session cart aggregate and the archive of
// submitted orders.
package order

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

var (
	// ErrUnknownItem reports a dish id that does not resolve in the catalog.
	ErrUnknownItem = errors.New("order: unknown item")
	// ErrNegativeQuantity reports a quantity below zero.
	ErrNegativeQuantity = errors.New("order: negative quantity")
)

// Pricer resolves a dish id to its unit price.
type Pricer interface {
	Price(dishID string) (decimal.Decimal, bool)
}

// Line is one cart position in a snapshot, with the computed subtotal.
type Line struct {
	DishID   string
	Quantity int
	Unit     decimal.Decimal
	Subtotal decimal.Decimal
}

// Cart accumulates selected dishes for a single chat session. The total is
// recomputed in full on every mutation so it can never drift from the lines.
// Callers serialize access per session; Cart itself is not goroutine-safe.
type Cart struct {
	pricer Pricer
	lines  map[string]int
	total  decimal.Decimal

	DeliveryAddress string
	ContactInfo     string
}

// NewCart creates an empty cart bound to a price lookup.
func NewCart(pricer Pricer) *Cart {
	return &Cart{
		pricer: pricer,
		lines:  make(map[string]int),
		total:  decimal.Zero,
	}
}

// SetQuantity replaces the quantity for a dish. Quantity 0 keeps the line
// around transiently; IsEmpty and Snapshot ignore zero lines.
func (c *Cart) SetQuantity(dishID string, qty int) error {
	if qty < 0 {
		return ErrNegativeQuantity
	}
	if _, ok := c.pricer.Price(dishID); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownItem, dishID)
	}
	c.lines[dishID] = qty
	c.recompute()
	return nil
}

// Adjust shifts the quantity for a dish by delta, flooring at zero.
func (c *Cart) Adjust(dishID string, delta int) error {
	qty := c.lines[dishID] + delta
	if qty < 0 {
		qty = 0
	}
	return c.SetQuantity(dishID, qty)
}

// Quantity returns the current quantity for a dish, zero when absent.
func (c *Cart) Quantity(dishID string) int {
	return c.lines[dishID]
}

// IsEmpty reports whether every line has quantity 0 or no lines exist.
func (c *Cart) IsEmpty() bool {
	for _, qty := range c.lines {
		if qty > 0 {
			return false
		}
	}
	return true
}

// Total returns the current total.
func (c *Cart) Total() decimal.Decimal {
	return c.total
}

// ConfirmationDigest derives the exact phrase the user must echo back to
// submit the order. It is a pure function of the total.
func (c *Cart) ConfirmationDigest() string {
	return DigestFor(c.total)
}

// DigestFor formats the confirmation phrase for an arbitrary total.
func DigestFor(total decimal.Decimal) string {
	return fmt.Sprintf("Я подтверждаю заказ на сумму %s грн.", total.StringFixed(2))
}

// Snapshot returns the non-zero lines with per-line subtotals, sorted by
// dish id for deterministic rendering and notification payloads.
func (c *Cart) Snapshot() []Line {
	out := make([]Line, 0, len(c.lines))
	for dishID, qty := range c.lines {
		if qty == 0 {
			continue
		}
		unit, ok := c.pricer.Price(dishID)
		if !ok {
			// dish vanished from the catalog after it was added; the
			// line no longer contributes to the total either
			continue
		}
		out = append(out, Line{
			DishID:   dishID,
			Quantity: qty,
			Unit:     unit,
			Subtotal: unit.Mul(decimal.NewFromInt(int64(qty))),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DishID < out[j].DishID })
	return out
}

func (c *Cart) recompute() {
	total := decimal.Zero
	for dishID, qty := range c.lines {
		if qty == 0 {
			continue
		}
		unit, ok := c.pricer.Price(dishID)
		if !ok {
			continue
		}
		total = total.Add(unit.Mul(decimal.NewFromInt(int64(qty))))
	}
	c.total = total
}
