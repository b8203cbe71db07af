// Package pricing derives invoice totals from cart lines. Every figure is a
// pure function of its inputs; nothing here is stored.
package pricing

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Line is the pricing view of a cart line.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
	TaxRate   decimal.Decimal
}

// Summary aggregates the derived invoice figures.
type Summary struct {
	Subtotal         decimal.Decimal `json:"subtotal"`
	TaxAmount        decimal.Decimal `json:"taxAmount"`
	DiscountPercent  decimal.Decimal `json:"discountPercent"`
	DiscountAmount   decimal.Decimal `json:"discountAmount"`
	Total            decimal.Decimal `json:"total"`
	CommissionAmount decimal.Decimal `json:"commissionAmount"`
}

// Options carries the invoice-level adjustments. CommissionPercent is only
// valid when the customer is an enrolled student of a commission-earning school.
type Options struct {
	DiscountPercent   decimal.Decimal
	CommissionPercent decimal.NullDecimal
}

// LineTax returns unitPrice × quantity × taxRate / 100.
func LineTax(unitPrice decimal.Decimal, quantity int, taxRate decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Mul(taxRate).Div(hundred)
}

// LineTotal returns the tax-inclusive amount of a line.
func LineTotal(unitPrice decimal.Decimal, quantity int, taxRate decimal.Decimal) decimal.Decimal {
	base := unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
	return base.Add(LineTax(unitPrice, quantity, taxRate))
}

// Compute calculates invoice totals. Discount and commission are taken on the
// tax-exclusive subtotal; tax is never discounted.
func Compute(lines []Line, opts Options) Summary {
	subtotal := decimal.Zero
	tax := decimal.Zero
	for _, l := range lines {
		if l.Quantity <= 0 {
			continue
		}
		subtotal = subtotal.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
		tax = tax.Add(LineTax(l.UnitPrice, l.Quantity, l.TaxRate))
	}

	percent := ClampPercent(opts.DiscountPercent)
	discount := subtotal.Mul(percent).Div(hundred)
	base := subtotal.Sub(discount)

	commission := decimal.Zero
	if opts.CommissionPercent.Valid {
		commission = base.Mul(ClampPercent(opts.CommissionPercent.Decimal)).Div(hundred)
	}

	return Summary{
		Subtotal:         subtotal,
		TaxAmount:        tax,
		DiscountPercent:  percent,
		DiscountAmount:   discount,
		Total:            base.Add(tax),
		CommissionAmount: commission,
	}
}

// Rounded returns the summary rounded to two decimal places for presentation.
func (s Summary) Rounded() Summary {
	return Summary{
		Subtotal:         s.Subtotal.Round(2),
		TaxAmount:        s.TaxAmount.Round(2),
		DiscountPercent:  s.DiscountPercent.Round(2),
		DiscountAmount:   s.DiscountAmount.Round(2),
		Total:            s.Total.Round(2),
		CommissionAmount: s.CommissionAmount.Round(2),
	}
}

// ClampPercent bounds p to [0, 100].
func ClampPercent(p decimal.Decimal) decimal.Decimal {
	if p.IsNegative() {
		return decimal.Zero
	}
	if p.GreaterThan(hundred) {
		return hundred
	}
	return p
}

// DiscountPercentFromAmount converts a stored discount amount back into a
// percentage of subtotal. A zero subtotal yields zero.
func DiscountPercentFromAmount(discount, subtotal decimal.Decimal) decimal.Decimal {
	if !subtotal.IsPositive() || !discount.IsPositive() {
		return decimal.Zero
	}
	return ClampPercent(discount.Mul(hundred).Div(subtotal))
}
