package reference

import (
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/stationery-pos/internal/backoffice"
	"github.com/noah-isme/stationery-pos/internal/cart"
)

const (
	// QuickSalesClass is the pseudo class walk-in customers are filed under.
	QuickSalesClass = "Quick Sales"
	// LegacyWalkInClass is the class older walk-in records carry.
	LegacyWalkInClass = "Walk-in"

	minSearchLen = 2
)

// Data is one consistent snapshot of reference lists with id indexes.
type Data struct {
	Products []backoffice.Product `json:"products"`
	Students []backoffice.Student `json:"students"`
	Schools  []backoffice.School  `json:"schools"`

	products map[string]int
	students map[string]int
	schools  map[string]int
}

// NewData indexes the given lists.
func NewData(products []backoffice.Product, students []backoffice.Student, schools []backoffice.School) *Data {
	d := &Data{
		Products: products,
		Students: students,
		Schools:  schools,
		products: make(map[string]int, len(products)),
		students: make(map[string]int, len(students)),
		schools:  make(map[string]int, len(schools)),
	}
	for i, p := range products {
		d.products[p.ID] = i
	}
	for i, s := range students {
		d.students[s.ID] = i
	}
	for i, s := range schools {
		d.schools[s.ID] = i
	}
	return d
}

func (d *Data) Product(id string) (backoffice.Product, bool) {
	if i, ok := d.products[id]; ok {
		return d.Products[i], true
	}
	return backoffice.Product{}, false
}

func (d *Data) Student(id string) (backoffice.Student, bool) {
	if i, ok := d.students[id]; ok {
		return d.Students[i], true
	}
	return backoffice.Student{}, false
}

func (d *Data) School(id string) (backoffice.School, bool) {
	if i, ok := d.schools[id]; ok {
		return d.Schools[i], true
	}
	return backoffice.School{}, false
}

// StudentSchool resolves the school of s, whether populated or by id.
func (d *Data) StudentSchool(s backoffice.Student) (backoffice.School, bool) {
	if s.School.Populated() {
		return *s.School.Doc, true
	}
	if s.School.ID == "" {
		return backoffice.School{}, false
	}
	return d.School(s.School.ID)
}

// ActiveProducts returns the products that can be sold.
func (d *Data) ActiveProducts() []backoffice.Product {
	out := make([]backoffice.Product, 0, len(d.Products))
	for _, p := range d.Products {
		if p.IsActive {
			out = append(out, p)
		}
	}
	return out
}

// SearchProducts matches active products whose name or code contains q.
// Queries shorter than two characters match nothing.
func (d *Data) SearchProducts(q string) []backoffice.Product {
	q = normalize(q)
	if len([]rune(q)) < minSearchLen {
		return []backoffice.Product{}
	}
	out := []backoffice.Product{}
	for _, p := range d.Products {
		if !p.IsActive {
			continue
		}
		if strings.Contains(normalize(p.Name), q) || strings.Contains(normalize(p.SKU), q) || strings.Contains(normalize(p.Barcode), q) {
			out = append(out, p)
		}
	}
	return out
}

// SearchStudents matches enrolled students (walk-ins excluded) by name or
// roll number, optionally restricted to one school. An empty q lists every
// student of the school.
func (d *Data) SearchStudents(q, schoolID string) []backoffice.Student {
	q = normalize(q)
	out := []backoffice.Student{}
	for _, s := range d.Students {
		if IsWalkIn(s) {
			continue
		}
		if schoolID != "" && s.School.ID != schoolID {
			continue
		}
		if q == "" || strings.Contains(normalize(s.Name), q) || strings.Contains(normalize(s.RollNumber), q) {
			out = append(out, s)
		}
	}
	return out
}

// SearchWalkIns matches walk-in customers by name or phone.
func (d *Data) SearchWalkIns(q string) []backoffice.Student {
	q = normalize(q)
	out := []backoffice.Student{}
	for _, s := range d.Students {
		if !IsWalkIn(s) {
			continue
		}
		if q == "" || strings.Contains(normalize(s.Name), q) || strings.Contains(s.Contact.Phone, q) {
			out = append(out, s)
		}
	}
	return out
}

// FindWalkIn returns the walk-in record with the same name (case-insensitive)
// and phone.
func (d *Data) FindWalkIn(name, phone string) (backoffice.Student, bool) {
	name = normalize(name)
	phone = strings.TrimSpace(phone)
	i := slices.IndexFunc(d.Students, func(s backoffice.Student) bool {
		return IsWalkIn(s) && normalize(s.Name) == name && strings.TrimSpace(s.Contact.Phone) == phone
	})
	if i < 0 {
		return backoffice.Student{}, false
	}
	return d.Students[i], true
}

// IsWalkIn reports whether s is a quick-sale customer record.
func IsWalkIn(s backoffice.Student) bool {
	return s.Class == QuickSalesClass || s.Class == LegacyWalkInClass
}

// IsQuickSaleRoll reports whether roll is a walk-in pseudo roll number.
func IsQuickSaleRoll(roll string) bool {
	roll = strings.ToUpper(strings.TrimSpace(roll))
	return strings.HasPrefix(roll, "QS-") || strings.HasPrefix(roll, "WK-")
}

// CartProduct converts a backend product into the cart's sellable view.
func CartProduct(p backoffice.Product) cart.Product {
	return cart.Product{
		ID:           p.ID,
		Name:         p.Name,
		Code:         p.SKU,
		SellingPrice: backoffice.Money(p.SellingPrice),
		TaxRate:      backoffice.Money(p.GSTRate),
		CurrentStock: p.Stock,
	}
}

// CommissionRate returns the school's commission percentage.
func CommissionRate(s backoffice.School) decimal.Decimal {
	return backoffice.Money(s.CommissionRate)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
