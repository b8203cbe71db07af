// Package purchase builds supplier purchase orders and tracks their payment.
package purchase

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/stationery-pos/internal/backoffice"
	"github.com/noah-isme/stationery-pos/internal/common"
	"github.com/noah-isme/stationery-pos/internal/reference"
)

const (
	StatusPending = "pending"
	StatusPaid    = "paid"
)

// ErrUnknownProduct is returned when a draft line names a missing or inactive product.
var ErrUnknownProduct = errors.New("purchase: unknown product")

// DraftItem is one requested line. A zero UnitPrice takes the product's
// purchase price.
type DraftItem struct {
	ProductID string          `json:"productId" validate:"required"`
	Quantity  int             `json:"quantity" validate:"gte=1"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// Draft is a purchase order before it is sent to the backend.
type Draft struct {
	SupplierID    string      `json:"supplierId" validate:"required"`
	Items         []DraftItem `json:"items" validate:"required,min=1,dive"`
	PaymentStatus string      `json:"paymentStatus" validate:"omitempty,oneof=pending paid"`
	Notes         string      `json:"notes"`
}

// Line is a priced purchase line.
type Line struct {
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
	Total     decimal.Decimal
}

// Build prices the draft against the catalog. Lines for the same product
// are merged and the first price wins.
func Build(d Draft, data *reference.Data) (backoffice.NewPurchase, error) {
	lines := make([]Line, 0, len(d.Items))
	for _, item := range d.Items {
		if item.UnitPrice.IsNegative() {
			return backoffice.NewPurchase{}, common.ValidationError("validation failed", map[string]string{"unitPrice": "must not be negative"})
		}
		p, ok := data.Product(item.ProductID)
		if !ok || !p.IsActive {
			return backoffice.NewPurchase{}, fmt.Errorf("%w: %s", ErrUnknownProduct, item.ProductID)
		}
		if i := slices.IndexFunc(lines, func(l Line) bool { return l.ProductID == item.ProductID }); i >= 0 {
			lines[i].Quantity += item.Quantity
			lines[i].Total = lines[i].UnitPrice.Mul(decimal.NewFromInt(int64(lines[i].Quantity)))
			continue
		}
		price := item.UnitPrice
		if !price.IsPositive() {
			price = backoffice.Money(p.BasePrice)
		}
		lines = append(lines, Line{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: price,
			Total:     price.Mul(decimal.NewFromInt(int64(item.Quantity))),
		})
	}

	total := decimal.Zero
	items := make([]backoffice.NewPurchaseItem, 0, len(lines))
	for _, l := range lines {
		total = total.Add(l.Total)
		items = append(items, backoffice.NewPurchaseItem{
			Product:   l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice.Round(2).InexactFloat64(),
			Total:     l.Total.Round(2).InexactFloat64(),
		})
	}
	status := d.PaymentStatus
	if status == "" {
		status = StatusPending
	}
	return backoffice.NewPurchase{
		Supplier:      d.SupplierID,
		Items:         items,
		TotalAmount:   total.Round(2).InexactFloat64(),
		PaymentStatus: status,
		Notes:         strings.TrimSpace(d.Notes),
	}, nil
}

// Row is a purchase with its supplier name resolved.
type Row struct {
	backoffice.Purchase
	SupplierID   string `json:"supplierId"`
	SupplierName string `json:"supplierName"`
}

// Rows resolves supplier names from populated references or suppliers.
func Rows(list []backoffice.Purchase, suppliers []backoffice.Supplier) []Row {
	names := make(map[string]string, len(suppliers))
	for _, s := range suppliers {
		names[s.ID] = s.Name
	}
	rows := make([]Row, 0, len(list))
	for _, p := range list {
		row := Row{Purchase: p, SupplierID: p.Supplier.ID, SupplierName: names[p.Supplier.ID]}
		if p.Supplier.Populated() {
			row.SupplierName = p.Supplier.Doc.Name
		}
		rows = append(rows, row)
	}
	return rows
}

// Filter narrows purchase rows by purchase number or supplier name and by
// payment status.
func Filter(rows []Row, search, status string) []Row {
	q := strings.ToLower(strings.TrimSpace(search))
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if q != "" && !strings.Contains(strings.ToLower(r.PurchaseNumber), q) && !strings.Contains(strings.ToLower(r.SupplierName), q) {
			continue
		}
		if status != "" && status != "all" && r.PaymentStatus != status {
			continue
		}
		out = append(out, r)
	}
	return out
}
