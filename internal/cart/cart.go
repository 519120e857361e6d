// Package cart holds the in-memory working state of one sale in progress.
// Prices are snapshotted at add time; stock is re-validated again at commit.
package cart

import (
	"errors"
	"fmt"
	"math"

	"smartstore/pos/internal/domain"
)

var (
	ErrOutOfStock        = errors.New("product out of stock")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrLineNotFound      = errors.New("line not found")
)

// Line is one product entry in the cart. UnitPriceCents is the price at the
// moment the product was added; a later catalog edit does not change it.
type Line struct {
	ProductID      int64  `json:"product_id"`
	Barcode        string `json:"barcode,omitempty"`
	Name           string `json:"name"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	Quantity       int    `json:"quantity"`
}

// TotalCents is the line total (unit price times quantity).
func (l Line) TotalCents() int64 {
	return l.UnitPriceCents * int64(l.Quantity)
}

// Cart keeps lines in insertion order. Adding an already-present product
// merges into its existing line.
type Cart struct {
	lines         []Line
	customerName  string
	discountCents int64
}

func New() *Cart {
	return &Cart{customerName: domain.WalkInCustomer}
}

// AddLine stages qty units of product. The staged quantity across calls may
// not exceed the product's current stock; a product with zero or negative
// stock cannot be added at all.
func (c *Cart) AddLine(product domain.Product, qty int) error {
	if qty < 1 {
		return ErrInvalidQuantity
	}
	if !product.Sellable() {
		return fmt.Errorf("%w: %s", ErrOutOfStock, product.Name)
	}

	staged := c.quantityOf(product.ID)
	if staged+qty > product.Quantity {
		return fmt.Errorf("%w: %s (have %d, want %d)", ErrInsufficientStock, product.Name, product.Quantity, staged+qty)
	}

	for i := range c.lines {
		if c.lines[i].ProductID == product.ID {
			c.lines[i].Quantity += qty
			return nil
		}
	}

	c.lines = append(c.lines, Line{
		ProductID:      product.ID,
		Barcode:        product.Barcode,
		Name:           product.Name,
		UnitPriceCents: product.SellPriceCents,
		Quantity:       qty,
	})
	return nil
}

// SetLineQuantity replaces a line's quantity. Zero or negative removes the
// line. The new quantity is checked against the product's current stock.
func (c *Cart) SetLineQuantity(product domain.Product, qty int) error {
	idx := -1
	for i := range c.lines {
		if c.lines[i].ProductID == product.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrLineNotFound
	}
	if qty <= 0 {
		c.lines = append(c.lines[:idx], c.lines[idx+1:]...)
		return nil
	}
	if qty > product.Quantity {
		return fmt.Errorf("%w: %s (have %d, want %d)", ErrInsufficientStock, product.Name, product.Quantity, qty)
	}
	c.lines[idx].Quantity = qty
	return nil
}

func (c *Cart) RemoveLine(productID int64) error {
	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return nil
		}
	}
	return ErrLineNotFound
}

// Clear empties the cart and resets the discount and customer.
func (c *Cart) Clear() {
	c.lines = nil
	c.discountCents = 0
	c.customerName = domain.WalkInCustomer
}

func (c *Cart) SetDiscount(cents int64) error {
	if cents < 0 {
		return fmt.Errorf("discount must not be negative")
	}
	c.discountCents = cents
	return nil
}

func (c *Cart) SetCustomer(name string) {
	if name == "" {
		name = domain.WalkInCustomer
	}
	c.customerName = name
}

func (c *Cart) CustomerName() string { return c.customerName }

func (c *Cart) DiscountCents() int64 { return c.discountCents }

func (c *Cart) IsEmpty() bool { return len(c.lines) == 0 }

// Lines returns a copy; callers cannot mutate cart state through it.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) ItemCount() int {
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

// Totals computes the money breakdown at the given tax rate. Tax applies to
// the discounted base; a discount larger than the subtotal is capped.
// Pure: calling it repeatedly never changes cart state.
func (c *Cart) Totals(taxRatePercent float64) domain.Totals {
	subtotal := int64(0)
	for _, l := range c.lines {
		subtotal += l.TotalCents()
	}

	discount := c.discountCents
	if discount > subtotal {
		discount = subtotal
	}

	taxBase := subtotal - discount
	tax := int64(math.Round(float64(taxBase) * taxRatePercent / 100))

	return domain.Totals{
		SubtotalCents: subtotal,
		TaxCents:      tax,
		DiscountCents: discount,
		TotalCents:    taxBase + tax,
	}
}

// TicketLines snapshots the cart into the immutable ticket item format.
func (c *Cart) TicketLines() []domain.TicketLine {
	out := make([]domain.TicketLine, 0, len(c.lines))
	for _, l := range c.lines {
		out = append(out, domain.TicketLine{
			Name:       l.Name,
			Quantity:   l.Quantity,
			PriceCents: l.UnitPriceCents,
			TotalCents: l.TotalCents(),
		})
	}
	return out
}

// Decrements lists the conditional stock adjustments commit must apply.
func (c *Cart) Decrements() []domain.StockDecrement {
	out := make([]domain.StockDecrement, 0, len(c.lines))
	for _, l := range c.lines {
		out = append(out, domain.StockDecrement{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	return out
}

func (c *Cart) quantityOf(productID int64) int {
	for _, l := range c.lines {
		if l.ProductID == productID {
			return l.Quantity
		}
	}
	return 0
}
