// Package inventory derives stock status from the product catalog.
package inventory

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/stationery-pos/internal/backoffice"
)

// Status is the stock level of a product relative to its reorder level.
type Status string

const (
	StatusOut Status = "out"
	StatusLow Status = "low"
	StatusOK  Status = "ok"
)

// Classify returns out when nothing is left, low at or below the reorder
// level and ok otherwise.
func Classify(p backoffice.Product) Status {
	switch {
	case p.Stock <= 0:
		return StatusOut
	case p.Stock <= p.MinStockLevel:
		return StatusLow
	default:
		return StatusOK
	}
}

// StockPercent scales stock against three times the reorder level, capped at 100.
func StockPercent(p backoffice.Product) decimal.Decimal {
	if p.MinStockLevel <= 0 {
		return decimal.NewFromInt(100)
	}
	pct := decimal.NewFromInt(int64(max(p.Stock, 0))).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(p.MinStockLevel * 3)))
	return decimal.Min(pct, decimal.NewFromInt(100)).Round(1)
}

// Item is a product with its derived stock figures.
type Item struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	SKU           string          `json:"sku"`
	Stock         int             `json:"stock"`
	ReorderLevel  int             `json:"reorderLevel"`
	PurchasePrice decimal.Decimal `json:"purchasePrice"`
	StockValue    decimal.Decimal `json:"stockValue"`
	Status        Status          `json:"status"`
	StockPercent  decimal.Decimal `json:"stockPercent"`
	Active        bool            `json:"active"`
}

// NewItem derives an Item from p.
func NewItem(p backoffice.Product) Item {
	price := backoffice.Money(p.BasePrice)
	return Item{
		ID:            p.ID,
		Name:          p.Name,
		SKU:           p.SKU,
		Stock:         p.Stock,
		ReorderLevel:  p.MinStockLevel,
		PurchasePrice: price,
		StockValue:    price.Mul(decimal.NewFromInt(int64(max(p.Stock, 0)))),
		Status:        Classify(p),
		StockPercent:  StockPercent(p),
		Active:        p.IsActive,
	}
}

// Summary aggregates the active catalog. Low counts every active product
// at or below its reorder level, including those that are out.
type Summary struct {
	Active     int             `json:"active"`
	TotalStock int             `json:"totalStock"`
	Low        int             `json:"low"`
	Out        int             `json:"out"`
	StockValue decimal.Decimal `json:"stockValue"`
}

// Summarize totals the active products.
func Summarize(products []backoffice.Product) Summary {
	sum := Summary{StockValue: decimal.Zero}
	for _, p := range products {
		if !p.IsActive {
			continue
		}
		sum.Active++
		sum.TotalStock += p.Stock
		if p.Stock <= p.MinStockLevel {
			sum.Low++
		}
		if p.Stock <= 0 {
			sum.Out++
		}
		sum.StockValue = sum.StockValue.Add(NewItem(p).StockValue)
	}
	return sum
}

// Filter returns products matching status ("", "all", out, low or ok) and a
// name or SKU search. The low filter excludes products that are out.
func Filter(products []backoffice.Product, status, search string) []Item {
	q := strings.ToLower(strings.TrimSpace(search))
	out := make([]Item, 0, len(products))
	for _, p := range products {
		if q != "" && !strings.Contains(strings.ToLower(p.Name), q) && !strings.Contains(strings.ToLower(p.SKU), q) {
			continue
		}
		if status != "" && status != "all" && Status(status) != Classify(p) {
			continue
		}
		out = append(out, NewItem(p))
	}
	return out
}
