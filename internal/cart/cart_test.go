package cart

import (
	"errors"
	"testing"

	"smartstore/pos/internal/domain"
)

func pen(qty int) domain.Product {
	return domain.Product{ID: 42, Barcode: "PEN-001", Name: "Stylo Bleu", SellPriceCents: 250, Quantity: qty}
}

func TestAddLineMergesSameProduct(t *testing.T) {
	c := New()
	p := pen(10)

	if err := c.AddLine(p, 2); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if err := c.AddLine(p, 3); err != nil {
		t.Fatalf("second add: %v", err)
	}

	lines := c.Lines()
	if len(lines) != 1 {
		t.Fatalf("expected 1 merged line, got %d", len(lines))
	}
	if lines[0].Quantity != 5 {
		t.Fatalf("expected merged quantity 5, got %d", lines[0].Quantity)
	}
	if c.ItemCount() != 5 {
		t.Fatalf("expected item count 5, got %d", c.ItemCount())
	}
}

func TestAddLineRejectsOutOfStock(t *testing.T) {
	c := New()
	if err := c.AddLine(pen(0), 1); !errors.Is(err, ErrOutOfStock) {
		t.Fatalf("expected ErrOutOfStock, got %v", err)
	}
	if !c.IsEmpty() {
		t.Fatalf("cart should stay empty after rejected add")
	}
}

func TestAddLineRejectsStagedOverStock(t *testing.T) {
	c := New()
	p := pen(5)

	if err := c.AddLine(p, 4); err != nil {
		t.Fatalf("add within stock: %v", err)
	}
	if err := c.AddLine(p, 2); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if c.ItemCount() != 4 {
		t.Fatalf("failed add must not change staged quantity, got %d", c.ItemCount())
	}
}

func TestAddLineRejectsInvalidQuantity(t *testing.T) {
	c := New()
	if err := c.AddLine(pen(5), 0); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
}

func TestSetLineQuantity(t *testing.T) {
	c := New()
	p := pen(10)
	if err := c.AddLine(p, 2); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := c.SetLineQuantity(p, 7); err != nil {
		t.Fatalf("set quantity: %v", err)
	}
	if c.ItemCount() != 7 {
		t.Fatalf("expected quantity 7, got %d", c.ItemCount())
	}

	if err := c.SetLineQuantity(p, 11); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock for quantity over stock, got %v", err)
	}

	if err := c.SetLineQuantity(p, 0); err != nil {
		t.Fatalf("set quantity to zero: %v", err)
	}
	if !c.IsEmpty() {
		t.Fatalf("zero quantity should remove the line")
	}

	if err := c.SetLineQuantity(p, 1); !errors.Is(err, ErrLineNotFound) {
		t.Fatalf("expected ErrLineNotFound on removed line, got %v", err)
	}
}

func TestRemoveLine(t *testing.T) {
	c := New()
	if err := c.AddLine(pen(5), 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := c.RemoveLine(42); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := c.RemoveLine(42); !errors.Is(err, ErrLineNotFound) {
		t.Fatalf("expected ErrLineNotFound, got %v", err)
	}
}

func TestTotalsAtNineteenPercent(t *testing.T) {
	c := New()
	if err := c.AddLine(pen(10), 2); err != nil {
		t.Fatalf("add: %v", err)
	}

	totals := c.Totals(19)
	if totals.SubtotalCents != 500 {
		t.Fatalf("expected subtotal 500, got %d", totals.SubtotalCents)
	}
	if totals.TaxCents != 95 {
		t.Fatalf("expected tax 95, got %d", totals.TaxCents)
	}
	if totals.TotalCents != 595 {
		t.Fatalf("expected total 595, got %d", totals.TotalCents)
	}
}

func TestTotalsIsPure(t *testing.T) {
	c := New()
	if err := c.AddLine(pen(10), 3); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := c.SetDiscount(100); err != nil {
		t.Fatalf("discount: %v", err)
	}

	first := c.Totals(19)
	second := c.Totals(19)
	if first != second {
		t.Fatalf("Totals must be stable across calls: %+v vs %+v", first, second)
	}
	if c.ItemCount() != 3 {
		t.Fatalf("Totals must not mutate the cart, got item count %d", c.ItemCount())
	}
}

func TestTotalsAppliesTaxToDiscountedBase(t *testing.T) {
	c := New()
	p := pen(10)
	p.SellPriceCents = 1000
	if err := c.AddLine(p, 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := c.SetDiscount(200); err != nil {
		t.Fatalf("discount: %v", err)
	}

	totals := c.Totals(19)
	if totals.TaxCents != 152 {
		t.Fatalf("expected tax on 800 base to be 152, got %d", totals.TaxCents)
	}
	if totals.TotalCents != 952 {
		t.Fatalf("expected total 952, got %d", totals.TotalCents)
	}
}

func TestTotalsCapsDiscountAtSubtotal(t *testing.T) {
	c := New()
	if err := c.AddLine(pen(10), 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := c.SetDiscount(9999); err != nil {
		t.Fatalf("discount: %v", err)
	}

	totals := c.Totals(19)
	if totals.DiscountCents != 250 {
		t.Fatalf("expected discount capped at 250, got %d", totals.DiscountCents)
	}
	if totals.TotalCents != 0 {
		t.Fatalf("expected total 0 after full discount, got %d", totals.TotalCents)
	}
}

func TestSetDiscountRejectsNegative(t *testing.T) {
	c := New()
	if err := c.SetDiscount(-1); err == nil {
		t.Fatalf("expected error for negative discount")
	}
}

func TestClearResetsEverything(t *testing.T) {
	c := New()
	if err := c.AddLine(pen(10), 2); err != nil {
		t.Fatalf("add: %v", err)
	}
	c.SetCustomer("Amine Khelifa")
	if err := c.SetDiscount(50); err != nil {
		t.Fatalf("discount: %v", err)
	}

	c.Clear()

	if !c.IsEmpty() {
		t.Fatalf("cart should be empty after Clear")
	}
	if c.DiscountCents() != 0 {
		t.Fatalf("discount should reset, got %d", c.DiscountCents())
	}
	if c.CustomerName() != domain.WalkInCustomer {
		t.Fatalf("customer should reset to %q, got %q", domain.WalkInCustomer, c.CustomerName())
	}
}

func TestSetCustomerDefaultsToWalkIn(t *testing.T) {
	c := New()
	c.SetCustomer("")
	if c.CustomerName() != domain.WalkInCustomer {
		t.Fatalf("expected %q, got %q", domain.WalkInCustomer, c.CustomerName())
	}
}

func TestTicketLinesSnapshotPrices(t *testing.T) {
	c := New()
	p := pen(10)
	if err := c.AddLine(p, 2); err != nil {
		t.Fatalf("add: %v", err)
	}

	// A later catalog price change must not leak into already staged lines.
	p.SellPriceCents = 9999

	lines := c.TicketLines()
	if len(lines) != 1 {
		t.Fatalf("expected 1 ticket line, got %d", len(lines))
	}
	if lines[0].PriceCents != 250 || lines[0].TotalCents != 500 {
		t.Fatalf("expected snapshotted price 250/total 500, got %d/%d", lines[0].PriceCents, lines[0].TotalCents)
	}
}

func TestDecrementsMatchLines(t *testing.T) {
	c := New()
	if err := c.AddLine(pen(10), 3); err != nil {
		t.Fatalf("add: %v", err)
	}

	decs := c.Decrements()
	if len(decs) != 1 {
		t.Fatalf("expected 1 decrement, got %d", len(decs))
	}
	if decs[0].ProductID != 42 || decs[0].Quantity != 3 {
		t.Fatalf("unexpected decrement %+v", decs[0])
	}
}
