package checkout

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/thitiwat/salika-pos/internal/domain/product"
)

// OutOfStockError indicates an attempt to add a product with zero stock.
type OutOfStockError struct {
	ProductID string
	Name      string
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("product %s is out of stock", e.Name)
}

// StockCeilingError indicates an attempt to raise a cart line's quantity
// above the stock captured when the product was added.
type StockCeilingError struct {
	ProductID string
	Name      string
	Ceiling   int
}

func (e *StockCeilingError) Error() string {
	return fmt.Sprintf("only %d of %s in stock", e.Ceiling, e.Name)
}

// LineNotFoundError indicates a quantity adjustment targeting a product
// that is not in the cart.
type LineNotFoundError struct {
	ProductID string
}

func (e *LineNotFoundError) Error() string {
	return fmt.Sprintf("product %s not in cart", e.ProductID)
}

// Line is one product's presence in the sale in progress. StockCeiling is
// the product's stock at the moment the line was created; quantity never
// exceeds it. The ceiling is deliberately not revalidated against live
// stock afterwards (optimistic, tolerates staleness until commit).
type Line struct {
	ProductID    string
	Name         string
	UnitPrice    decimal.Decimal
	Quantity     int
	StockCeiling int
}

// Total returns unit price times quantity.
func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is the ordered set of lines for the sale in progress. It is a plain
// value container; the owning Session serializes access.
type Cart struct {
	lines []Line
}

// AddLine adds qty units of the product to the cart. An existing line is
// incremented; a new line captures the product's current stock as its
// ceiling. Capacity violations are advisory: the cart is left unchanged
// and a typed error describes the limit.
func (c *Cart) AddLine(p product.Snapshot, qty int) error {
	if qty <= 0 {
		qty = 1
	}

	for i := range c.lines {
		if c.lines[i].ProductID != p.ID {
			continue
		}
		if c.lines[i].Quantity+qty > c.lines[i].StockCeiling {
			return &StockCeilingError{ProductID: p.ID, Name: c.lines[i].Name, Ceiling: c.lines[i].StockCeiling}
		}
		c.lines[i].Quantity += qty
		return nil
	}

	if p.Stock <= 0 {
		return &OutOfStockError{ProductID: p.ID, Name: p.Name}
	}
	if qty > p.Stock {
		return &StockCeilingError{ProductID: p.ID, Name: p.Name, Ceiling: p.Stock}
	}

	c.lines = append(c.lines, Line{
		ProductID:    p.ID,
		Name:         p.Name,
		UnitPrice:    p.Price,
		Quantity:     qty,
		StockCeiling: p.Stock,
	})
	return nil
}

// AdjustQuantity applies a signed delta to a line's quantity, floored at
// zero. A result above the line's ceiling is rejected and the old quantity
// retained; a result of zero removes the line.
func (c *Cart) AdjustQuantity(productID string, delta int) error {
	for i := range c.lines {
		if c.lines[i].ProductID != productID {
			continue
		}

		newQty := c.lines[i].Quantity + delta
		if newQty < 0 {
			newQty = 0
		}
		if newQty > c.lines[i].StockCeiling {
			return &StockCeilingError{ProductID: productID, Name: c.lines[i].Name, Ceiling: c.lines[i].StockCeiling}
		}
		if newQty == 0 {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return nil
		}
		c.lines[i].Quantity = newQty
		return nil
	}
	return &LineNotFoundError{ProductID: productID}
}

// RemoveLine deletes the product's line. Removing an absent line is not an
// error.
func (c *Cart) RemoveLine(productID string) {
	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return
		}
	}
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.lines = nil
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

// Lines returns a copy of the cart's lines in insertion order. Callers may
// hold the copy across later cart mutations.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}
