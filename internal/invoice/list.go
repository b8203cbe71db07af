// Package invoice lists invoices with the student and school details the
// back-office screens filter on.
package invoice

import (
	"slices"
	"strings"

	"github.com/noah-isme/stationery-pos/internal/backoffice"
	"github.com/noah-isme/stationery-pos/internal/reference"
)

const (
	ModeAll        = "all"
	ModeStudent    = "student"
	ModeQuickSales = "quick-sales"
)

// Row is an invoice joined with its customer and school.
type Row struct {
	backoffice.Invoice
	StudentName string `json:"studentName"`
	RollNumber  string `json:"rollNumber"`
	Class       string `json:"class"`
	Phone       string `json:"phone,omitempty"`
	SchoolID    string `json:"schoolId,omitempty"`
	SchoolName  string `json:"schoolName,omitempty"`
	QuickSale   bool   `json:"quickSale"`
}

// IsQuickSale reports whether roll belongs to a walk-in customer.
func IsQuickSale(roll string) bool {
	return reference.IsQuickSaleRoll(roll)
}

// Enrich joins each invoice with its student and school. Populated
// references win over the lookup data.
func Enrich(invoices []backoffice.Invoice, data *reference.Data) []Row {
	rows := make([]Row, 0, len(invoices))
	for _, inv := range invoices {
		rows = append(rows, enrich(inv, data))
	}
	return rows
}

func enrich(inv backoffice.Invoice, data *reference.Data) Row {
	row := Row{Invoice: inv, SchoolID: inv.School.ID}

	student, ok := backoffice.Student{}, false
	if inv.Student.Populated() {
		student, ok = *inv.Student.Doc, true
	} else if data != nil {
		student, ok = data.Student(inv.Student.ID)
	}
	if ok {
		row.StudentName = student.Name
		row.RollNumber = student.RollNumber
		row.Class = student.Class
		row.Phone = student.Contact.Phone
		if row.SchoolID == "" {
			row.SchoolID = student.School.ID
		}
	}

	row.QuickSale = IsQuickSale(row.RollNumber) || (ok && reference.IsWalkIn(student))
	switch {
	case row.QuickSale:
		row.Class = reference.QuickSalesClass
	case row.Class == "":
		row.Class = "N/A"
	}

	if inv.School.Populated() {
		row.SchoolName = inv.School.Doc.Name
	} else if data != nil && row.SchoolID != "" {
		if school, found := data.School(row.SchoolID); found {
			row.SchoolName = school.Name
		}
	}
	if row.QuickSale {
		row.SchoolID, row.SchoolName = "", ""
	}
	return row
}

// Filter narrows invoice rows. Empty fields and "all" match everything.
type Filter struct {
	Search   string
	SchoolID string
	Mode     string
	Class    string
}

// Matches reports whether row passes every criterion.
func (f Filter) Matches(row Row) bool {
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		hit := strings.Contains(strings.ToLower(row.InvoiceNumber), q) ||
			strings.Contains(strings.ToLower(row.StudentName), q) ||
			strings.Contains(strings.ToLower(row.RollNumber), q) ||
			strings.Contains(strings.ToLower(row.SchoolName), q) ||
			(row.Phone != "" && strings.Contains(row.Phone, strings.TrimSpace(f.Search)))
		if !hit {
			return false
		}
	}
	if !isAll(f.SchoolID) && row.SchoolID != f.SchoolID {
		return false
	}
	switch f.Mode {
	case ModeQuickSales:
		if !row.QuickSale {
			return false
		}
	case ModeStudent:
		if row.QuickSale {
			return false
		}
	}
	if !isAll(f.Class) && row.Class != f.Class {
		return false
	}
	return true
}

// Apply returns the rows that match, keeping their order.
func (f Filter) Apply(rows []Row) []Row {
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		if f.Matches(row) {
			out = append(out, row)
		}
	}
	return out
}

// Classes lists the distinct classes of rows, sorted.
func Classes(rows []Row) []string {
	seen := make(map[string]struct{}, len(rows))
	out := make([]string, 0)
	for _, row := range rows {
		if row.Class == "" {
			continue
		}
		if _, ok := seen[row.Class]; ok {
			continue
		}
		seen[row.Class] = struct{}{}
		out = append(out, row.Class)
	}
	slices.Sort(out)
	return out
}

func isAll(v string) bool {
	return v == "" || v == ModeAll
}
