// Package catalog maintains the back-office master data the POS sells from:
// products with their categories and suppliers, and partner schools.
package catalog

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/stationery-pos/internal/backoffice"
	"github.com/noah-isme/stationery-pos/internal/common"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

var (
	// ErrUnknownCategory is returned when a product names a missing category.
	ErrUnknownCategory = errors.New("catalog: unknown category")
	// ErrUnknownSupplier is returned when a product names a missing supplier.
	ErrUnknownSupplier = errors.New("catalog: unknown supplier")
	// ErrDuplicate is returned when a code or name is already taken.
	ErrDuplicate = errors.New("catalog: duplicate")
	// ErrInUse is returned when deleting a category or supplier products still reference.
	ErrInUse = errors.New("catalog: still referenced by products")
)

// InUseError reports a delete blocked by products that still reference the
// record.
type InUseError struct {
	Kind     string
	ID       string
	Products int
}

func (e *InUseError) Error() string {
	return fmt.Sprintf("%s %s is used by %d product(s)", e.Kind, e.ID, e.Products)
}

func (e *InUseError) Is(target error) bool { return target == ErrInUse }

// GSTRates are the slabs a product may be taxed at.
var GSTRates = []int64{0, 5, 12, 18, 28}

// PaymentTerms are the supplier credit terms the console offers.
var PaymentTerms = []string{"COD", "Net 15", "Net 30", "Net 45", "Net 60"}

var gstinPattern = regexp.MustCompile(`^[0-9]{2}[A-Z0-9]{13}$`)

// Known is the master data a draft is checked against.
type Known struct {
	Products   []backoffice.Product
	Categories []backoffice.Category
	Suppliers  []backoffice.Supplier
	Schools    []backoffice.School
}

// ProductDraft is a product as the console edits it.
type ProductDraft struct {
	Name          string          `json:"name" validate:"required"`
	Code          string          `json:"productCode" validate:"required"`
	Barcode       string          `json:"barcode"`
	CategoryID    string          `json:"categoryId" validate:"required"`
	SupplierID    string          `json:"supplierId"`
	PurchasePrice decimal.Decimal `json:"purchasePrice"`
	SellingPrice  decimal.Decimal `json:"sellingPrice"`
	GSTRate       decimal.Decimal `json:"gstRate"`
	CurrentStock  int             `json:"currentStock" validate:"gte=0"`
	ReorderLevel  int             `json:"reorderLevel" validate:"gte=0"`
	Status        string          `json:"status" validate:"omitempty,oneof=active inactive"`
}

// BuildProduct validates d against known and converts it to the backend
// payload. selfID is the product being edited, empty on create; its own SKU
// does not count as a duplicate.
func BuildProduct(d ProductDraft, known Known, selfID string) (backoffice.NewProduct, error) {
	details := map[string]string{}
	if d.PurchasePrice.IsNegative() {
		details["purchasePrice"] = "must not be negative"
	}
	if !d.SellingPrice.IsPositive() {
		details["sellingPrice"] = "must be greater than 0"
	}
	if !d.GSTRate.IsInteger() || !slices.Contains(GSTRates, d.GSTRate.IntPart()) {
		details["gstRate"] = "must be one of [0 5 12 18 28]"
	}
	if len(details) > 0 {
		return backoffice.NewProduct{}, common.ValidationError("validation failed", details)
	}

	sku := strings.ToUpper(strings.TrimSpace(d.Code))
	if slices.ContainsFunc(known.Products, func(p backoffice.Product) bool {
		return p.ID != selfID && strings.EqualFold(p.SKU, sku)
	}) {
		return backoffice.NewProduct{}, fmt.Errorf("%w: product code %s", ErrDuplicate, sku)
	}
	if !slices.ContainsFunc(known.Categories, func(c backoffice.Category) bool { return c.ID == d.CategoryID }) {
		return backoffice.NewProduct{}, fmt.Errorf("%w: %s", ErrUnknownCategory, d.CategoryID)
	}
	if d.SupplierID != "" && !slices.ContainsFunc(known.Suppliers, func(s backoffice.Supplier) bool { return s.ID == d.SupplierID }) {
		return backoffice.NewProduct{}, fmt.Errorf("%w: %s", ErrUnknownSupplier, d.SupplierID)
	}
	return backoffice.NewProduct{
		Name:          strings.TrimSpace(d.Name),
		SKU:           sku,
		Barcode:       strings.TrimSpace(d.Barcode),
		Category:      d.CategoryID,
		Supplier:      d.SupplierID,
		BasePrice:     d.PurchasePrice.Round(2).InexactFloat64(),
		SellingPrice:  d.SellingPrice.Round(2).InexactFloat64(),
		GSTRate:       d.GSTRate.InexactFloat64(),
		Stock:         d.CurrentStock,
		MinStockLevel: d.ReorderLevel,
		IsActive:      d.Status != StatusInactive,
	}, nil
}

// CategoryDraft is a category as the console edits it.
type CategoryDraft struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Status      string `json:"status" validate:"omitempty,oneof=active inactive"`
}

// BuildCategory rejects a name another category already uses,
// case-insensitively.
func BuildCategory(d CategoryDraft, known Known, selfID string) (backoffice.NewCategory, error) {
	name := strings.TrimSpace(d.Name)
	if slices.ContainsFunc(known.Categories, func(c backoffice.Category) bool {
		return c.ID != selfID && strings.EqualFold(strings.TrimSpace(c.Name), name)
	}) {
		return backoffice.NewCategory{}, fmt.Errorf("%w: category %q", ErrDuplicate, name)
	}
	return backoffice.NewCategory{
		Name:        name,
		Description: strings.TrimSpace(d.Description),
		IsActive:    d.Status != StatusInactive,
	}, nil
}

// SupplierDraft is a supplier as the console edits it.
type SupplierDraft struct {
	Name         string `json:"name" validate:"required"`
	Code         string `json:"code"`
	Phone        string `json:"phone"`
	Email        string `json:"email" validate:"omitempty,email"`
	GSTIN        string `json:"gstin"`
	PaymentTerms string `json:"paymentTerms"`
	Street       string `json:"street"`
	City         string `json:"city"`
	State        string `json:"state"`
	Pincode      string `json:"pincode"`
	Status       string `json:"status" validate:"omitempty,oneof=active inactive"`
}

// BuildSupplier normalises the GSTIN and checks the payment terms. A blank
// code keeps the edited supplier's code, or is generated for a new one.
func BuildSupplier(d SupplierDraft, known Known, selfID string) (backoffice.NewSupplier, error) {
	gstin := strings.ToUpper(strings.TrimSpace(d.GSTIN))
	details := map[string]string{}
	if gstin != "" && !gstinPattern.MatchString(gstin) {
		details["gstin"] = "must be a 15 character GSTIN"
	}
	if d.PaymentTerms != "" && !slices.Contains(PaymentTerms, d.PaymentTerms) {
		details["paymentTerms"] = "must be one of [" + strings.Join(PaymentTerms, ", ") + "]"
	}
	if len(details) > 0 {
		return backoffice.NewSupplier{}, common.ValidationError("validation failed", details)
	}
	code := strings.ToUpper(strings.TrimSpace(d.Code))
	if i := slices.IndexFunc(known.Suppliers, func(s backoffice.Supplier) bool { return s.ID == selfID }); code == "" && i >= 0 {
		code = known.Suppliers[i].Code
	}
	if code == "" {
		code = newCode("SUP")
	}
	if slices.ContainsFunc(known.Suppliers, func(s backoffice.Supplier) bool {
		return s.ID != selfID && strings.EqualFold(s.Code, code)
	}) {
		return backoffice.NewSupplier{}, fmt.Errorf("%w: supplier code %s", ErrDuplicate, code)
	}
	return backoffice.NewSupplier{
		Name:         strings.TrimSpace(d.Name),
		Code:         code,
		GSTIN:        gstin,
		PaymentTerms: d.PaymentTerms,
		Contact:      backoffice.Contact{Phone: strings.TrimSpace(d.Phone), Email: strings.TrimSpace(d.Email)},
		Address: backoffice.Address{
			Street:  strings.TrimSpace(d.Street),
			City:    strings.TrimSpace(d.City),
			State:   strings.TrimSpace(d.State),
			Pincode: strings.TrimSpace(d.Pincode),
		},
		IsActive: d.Status != StatusInactive,
	}, nil
}

// SchoolDraft is a partner school as the console registers it.
type SchoolDraft struct {
	Name           string          `json:"name" validate:"required"`
	Code           string          `json:"code"`
	Phone          string          `json:"phone"`
	Email          string          `json:"email" validate:"omitempty,email"`
	Street         string          `json:"street"`
	City           string          `json:"city"`
	State          string          `json:"state"`
	Pincode        string          `json:"pincode"`
	CommissionRate decimal.Decimal `json:"commissionRate"`
}

// BuildSchool checks the commission rate is a percentage. A blank code is
// generated.
func BuildSchool(d SchoolDraft, known Known) (backoffice.NewSchool, error) {
	if d.CommissionRate.IsNegative() || d.CommissionRate.GreaterThan(decimal.NewFromInt(100)) {
		return backoffice.NewSchool{}, common.ValidationError("validation failed", map[string]string{"commissionRate": "must be between 0 and 100"})
	}
	name := strings.TrimSpace(d.Name)
	if slices.ContainsFunc(known.Schools, func(s backoffice.School) bool { return strings.EqualFold(strings.TrimSpace(s.Name), name) }) {
		return backoffice.NewSchool{}, fmt.Errorf("%w: school %q", ErrDuplicate, name)
	}
	code := strings.ToUpper(strings.TrimSpace(d.Code))
	if code == "" {
		code = newCode("SC")
	}
	return backoffice.NewSchool{
		Name:    name,
		Code:    code,
		Contact: backoffice.Contact{Phone: strings.TrimSpace(d.Phone), Email: strings.TrimSpace(d.Email)},
		Address: backoffice.Address{
			Street:  strings.TrimSpace(d.Street),
			City:    strings.TrimSpace(d.City),
			State:   strings.TrimSpace(d.State),
			Pincode: strings.TrimSpace(d.Pincode),
		},
		CommissionRate: d.CommissionRate.Round(2).InexactFloat64(),
		IsActive:       true,
	}, nil
}

func newCode(prefix string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + "-" + strings.ToUpper(id[:8])
}
