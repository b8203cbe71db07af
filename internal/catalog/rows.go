package catalog

import (
	"slices"
	"strings"

	"github.com/noah-isme/stationery-pos/internal/backoffice"
	"github.com/noah-isme/stationery-pos/internal/reference"
)

// ProductRow is a product with its references resolved for the products page.
type ProductRow struct {
	backoffice.Product
	CategoryID   string `json:"categoryId"`
	CategoryName string `json:"categoryName"`
	SupplierID   string `json:"supplierId"`
	SupplierName string `json:"supplierName"`
	Status       string `json:"status"`
}

// ProductRows resolves category and supplier names, preferring populated
// references.
func ProductRows(k Known) []ProductRow {
	categories := make(map[string]string, len(k.Categories))
	for _, c := range k.Categories {
		categories[c.ID] = c.Name
	}
	suppliers := make(map[string]string, len(k.Suppliers))
	for _, s := range k.Suppliers {
		suppliers[s.ID] = s.Name
	}
	rows := make([]ProductRow, 0, len(k.Products))
	for _, p := range k.Products {
		row := ProductRow{
			Product:      p,
			CategoryID:   p.Category.ID,
			CategoryName: categories[p.Category.ID],
			SupplierID:   p.Supplier.ID,
			SupplierName: suppliers[p.Supplier.ID],
			Status:       status(p.IsActive),
		}
		if p.Category.Populated() {
			row.CategoryName = p.Category.Doc.Name
		}
		if p.Supplier.Populated() {
			row.SupplierName = p.Supplier.Doc.Name
		}
		rows = append(rows, row)
	}
	return rows
}

// FilterProducts matches name or product code, then category and status.
// "all" or empty disables a filter.
func FilterProducts(rows []ProductRow, search, categoryID, state string) []ProductRow {
	q := normalize(search)
	out := make([]ProductRow, 0, len(rows))
	for _, r := range rows {
		if q != "" && !strings.Contains(normalize(r.Name), q) && !strings.Contains(normalize(r.SKU), q) {
			continue
		}
		if !matches(categoryID, r.CategoryID) || !matches(state, r.Status) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// CountProducts fills ProductCount for categories the backend did not count.
func CountProducts(k Known) []backoffice.Category {
	counts := make(map[string]int, len(k.Categories))
	for _, p := range k.Products {
		counts[p.Category.ID]++
	}
	out := slices.Clone(k.Categories)
	for i := range out {
		if out[i].ProductCount == 0 {
			out[i].ProductCount = counts[out[i].ID]
		}
	}
	return out
}

// FilterSuppliers matches name, code or GSTIN.
func FilterSuppliers(list []backoffice.Supplier, search string) []backoffice.Supplier {
	q := normalize(search)
	out := make([]backoffice.Supplier, 0, len(list))
	for _, s := range list {
		if q == "" || strings.Contains(normalize(s.Name), q) || strings.Contains(normalize(s.Code), q) || strings.Contains(normalize(s.GSTIN), q) {
			out = append(out, s)
		}
	}
	return out
}

// SchoolRow is a school with its enrolled student count.
type SchoolRow struct {
	backoffice.School
	Status        string `json:"status"`
	TotalStudents int    `json:"totalStudents"`
}

// SchoolRows counts enrolled students per school. Walk-ins are not counted.
func SchoolRows(data *reference.Data) []SchoolRow {
	counts := make(map[string]int, len(data.Schools))
	for _, s := range data.Students {
		if !reference.IsWalkIn(s) {
			counts[s.School.ID]++
		}
	}
	rows := make([]SchoolRow, 0, len(data.Schools))
	for _, s := range data.Schools {
		rows = append(rows, SchoolRow{School: s, Status: status(s.IsActive), TotalStudents: counts[s.ID]})
	}
	return rows
}

// FilterSchools matches name or contact email, then status.
func FilterSchools(rows []SchoolRow, search, state string) []SchoolRow {
	q := normalize(search)
	out := make([]SchoolRow, 0, len(rows))
	for _, r := range rows {
		if q != "" && !strings.Contains(normalize(r.Name), q) && !strings.Contains(normalize(r.Contact.Email), q) {
			continue
		}
		if !matches(state, r.Status) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// StudentRow is a student with the school name resolved.
type StudentRow struct {
	backoffice.Student
	SchoolID   string `json:"schoolId"`
	SchoolName string `json:"schoolName"`
}

func StudentRows(data *reference.Data) []StudentRow {
	rows := make([]StudentRow, 0, len(data.Students))
	for _, s := range data.Students {
		row := StudentRow{Student: s, SchoolID: s.School.ID}
		if school, ok := data.StudentSchool(s); ok {
			row.SchoolName = school.Name
		}
		rows = append(rows, row)
	}
	return rows
}

// FilterStudents matches name or roll number, then school and class.
func FilterStudents(rows []StudentRow, search, schoolID, class string) []StudentRow {
	q := normalize(search)
	out := make([]StudentRow, 0, len(rows))
	for _, r := range rows {
		if q != "" && !strings.Contains(normalize(r.Name), q) && !strings.Contains(normalize(r.RollNumber), q) {
			continue
		}
		if !matches(schoolID, r.SchoolID) || !matches(class, r.Class) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// StudentClasses lists the distinct classes in rows, sorted.
func StudentClasses(rows []StudentRow) []string {
	classes := make([]string, 0)
	for _, r := range rows {
		if r.Class != "" && !slices.Contains(classes, r.Class) {
			classes = append(classes, r.Class)
		}
	}
	slices.Sort(classes)
	return classes
}

func status(active bool) string {
	if active {
		return StatusActive
	}
	return StatusInactive
}

func matches(filter, value string) bool {
	return filter == "" || filter == "all" || filter == value
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
