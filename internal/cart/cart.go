// Package cart holds the in-progress POS cart and enforces the stock
// invariant: every line has 0 < quantity <= availableStock. A rejected
// mutation leaves the cart exactly as it was.
package cart

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/stationery-pos/internal/pricing"
)

var (
	// ErrInsufficientStock is returned when a mutation would exceed the stock snapshot.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrItemNotFound is returned when the product is not in the cart.
	ErrItemNotFound = errors.New("item not in cart")
	// ErrInvalidProduct is returned for products that cannot be sold.
	ErrInvalidProduct = errors.New("invalid product")
)

// StockError carries the figures behind an ErrInsufficientStock rejection.
type StockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

// Is matches ErrInsufficientStock.
func (e *StockError) Is(target error) bool { return target == ErrInsufficientStock }

// Product is the sellable view of a catalog product at the moment it is added.
type Product struct {
	ID           string
	Name         string
	Code         string
	SellingPrice decimal.Decimal
	TaxRate      decimal.Decimal
	CurrentStock int
}

func (p Product) validate() error {
	switch {
	case strings.TrimSpace(p.ID) == "":
		return fmt.Errorf("%w: missing id", ErrInvalidProduct)
	case p.SellingPrice.IsNegative():
		return fmt.Errorf("%w: negative price", ErrInvalidProduct)
	case p.TaxRate.IsNegative():
		return fmt.Errorf("%w: negative tax rate", ErrInvalidProduct)
	}
	return nil
}

// LineItem is one product in the cart. TaxAmount and LineTotal are derived
// from UnitPrice, Quantity and TaxRate on every change.
type LineItem struct {
	ProductID      string          `json:"productId"`
	ProductName    string          `json:"productName"`
	ProductCode    string          `json:"productCode,omitempty"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unitPrice"`
	TaxRate        decimal.Decimal `json:"taxRate"`
	TaxAmount      decimal.Decimal `json:"taxAmount"`
	LineTotal      decimal.Decimal `json:"lineTotal"`
	AvailableStock int             `json:"availableStock"`
}

func (li *LineItem) setQuantity(q int) {
	li.Quantity = q
	li.TaxAmount = pricing.LineTax(li.UnitPrice, q, li.TaxRate)
	li.LineTotal = pricing.LineTotal(li.UnitPrice, q, li.TaxRate)
}

// Cart is an ordered list of line items keyed by product id.
type Cart struct {
	Items []LineItem `json:"items"`
}

// Len returns the number of distinct products in the cart.
func (c *Cart) Len() int { return len(c.Items) }

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool { return len(c.Items) == 0 }

func (c *Cart) index(productID string) int {
	return slices.IndexFunc(c.Items, func(li LineItem) bool { return li.ProductID == productID })
}

// Find returns the line for productID.
func (c *Cart) Find(productID string) (LineItem, bool) {
	if i := c.index(productID); i >= 0 {
		return c.Items[i], true
	}
	return LineItem{}, false
}

// AddItem adds one unit of p. An existing line is incremented against its
// stock snapshot; a new line snapshots p.CurrentStock.
func (c *Cart) AddItem(p Product) error {
	if err := p.validate(); err != nil {
		return err
	}
	if i := c.index(p.ID); i >= 0 {
		line := c.Items[i]
		next := line.Quantity + 1
		if next > line.AvailableStock {
			return &StockError{ProductID: p.ID, Requested: next, Available: line.AvailableStock}
		}
		line.setQuantity(next)
		c.Items[i] = line
		return nil
	}
	if p.CurrentStock < 1 {
		return &StockError{ProductID: p.ID, Requested: 1, Available: max(p.CurrentStock, 0)}
	}
	line := LineItem{
		ProductID:      p.ID,
		ProductName:    p.Name,
		ProductCode:    p.Code,
		UnitPrice:      p.SellingPrice,
		TaxRate:        p.TaxRate,
		AvailableStock: p.CurrentStock,
	}
	line.setQuantity(1)
	c.Items = append(c.Items, line)
	return nil
}

// UpdateQuantity applies a signed delta. A resulting quantity <= 0 removes the line.
func (c *Cart) UpdateQuantity(productID string, delta int) error {
	i := c.index(productID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrItemNotFound, productID)
	}
	line := c.Items[i]
	// compare against the headroom so extreme deltas cannot wrap
	if delta <= -line.Quantity {
		c.Items = slices.Delete(c.Items, i, i+1)
		return nil
	}
	if delta > line.AvailableStock-line.Quantity {
		requested := math.MaxInt
		if delta <= math.MaxInt-line.Quantity {
			requested = line.Quantity + delta
		}
		return &StockError{ProductID: productID, Requested: requested, Available: line.AvailableStock}
	}
	line.setQuantity(line.Quantity + delta)
	c.Items[i] = line
	return nil
}

// RemoveItem deletes the line for productID and reports whether one existed.
func (c *Cart) RemoveItem(productID string) bool {
	i := c.index(productID)
	if i < 0 {
		return false
	}
	c.Items = slices.Delete(c.Items, i, i+1)
	return true
}

// Restore re-creates a line from a saved invoice. The stock snapshot is
// max(CurrentStock, quantity), so an invoice can always be re-submitted
// unchanged. This differs from the back-office console, which substitutes 100
// whenever current stock is zero; here a zero-stock product is capped at the
// saved quantity, and callers only fall back to 100 for products missing from
// the catalog.
func (c *Cart) Restore(p Product, quantity int) error {
	if err := p.validate(); err != nil {
		return err
	}
	if quantity < 1 {
		return fmt.Errorf("%w: quantity %d", ErrInvalidProduct, quantity)
	}
	if i := c.index(p.ID); i >= 0 {
		line := c.Items[i]
		line.AvailableStock = max(line.AvailableStock, line.Quantity+quantity)
		line.setQuantity(line.Quantity + quantity)
		c.Items[i] = line
		return nil
	}
	line := LineItem{
		ProductID:      p.ID,
		ProductName:    p.Name,
		ProductCode:    p.Code,
		UnitPrice:      p.SellingPrice,
		TaxRate:        p.TaxRate,
		AvailableStock: max(p.CurrentStock, quantity),
	}
	line.setQuantity(quantity)
	c.Items = append(c.Items, line)
	return nil
}

// Clear empties the cart.
func (c *Cart) Clear() { c.Items = nil }

// Clone returns a deep copy.
func (c *Cart) Clone() Cart {
	return Cart{Items: slices.Clone(c.Items)}
}

// Lines converts the cart into pricing input.
func (c *Cart) Lines() []pricing.Line {
	out := make([]pricing.Line, 0, len(c.Items))
	for _, li := range c.Items {
		out = append(out, pricing.Line{UnitPrice: li.UnitPrice, Quantity: li.Quantity, TaxRate: li.TaxRate})
	}
	return out
}
