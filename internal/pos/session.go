// Package pos keeps the point-of-sale working state of each operator: the
// cart, discount, customer, GST and payment choices and an optional invoice
// being edited. Sessions live in Redis and every mutation of one session is
// serialized.
package pos

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/stationery-pos/internal/backoffice"
	"github.com/noah-isme/stationery-pos/internal/cart"
	"github.com/noah-isme/stationery-pos/internal/pricing"
)

// CustomerMode selects who an invoice is billed to.
type CustomerMode string

const (
	ModeStudent   CustomerMode = "student"
	ModeQuickSale CustomerMode = "quick-sale"
)

const (
	DefaultPaymentMethod = "cash"
	DefaultPaymentStatus = "paid"
)

// StudentRef is the snapshot of an enrolled student taken when selected.
type StudentRef struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	RollNumber     string          `json:"rollNumber"`
	Class          string          `json:"class"`
	Phone          string          `json:"phone,omitempty"`
	SchoolID       string          `json:"schoolId,omitempty"`
	SchoolName     string          `json:"schoolName,omitempty"`
	CommissionRate decimal.Decimal `json:"commissionRate"`
}

// Customer is the billing party. In quick-sale mode WalkInID is set once
// the walk-in record is known.
type Customer struct {
	Mode        CustomerMode `json:"mode"`
	Student     *StudentRef  `json:"student,omitempty"`
	WalkInID    string       `json:"walkInId,omitempty"`
	WalkInName  string       `json:"walkInName,omitempty"`
	WalkInPhone string       `json:"walkInPhone,omitempty"`
}

// Resolved reports whether an invoice can be billed to this customer.
func (c Customer) Resolved() bool {
	switch c.Mode {
	case ModeStudent:
		return c.Student != nil && c.Student.ID != ""
	case ModeQuickSale:
		return c.WalkInID != "" || c.WalkInName != ""
	}
	return false
}

// GST is the optional tax-invoice block.
type GST struct {
	Enabled  bool                     `json:"enabled"`
	Number   string                   `json:"gstNumber,omitempty"`
	Verified bool                     `json:"verified"`
	Business *backoffice.BusinessInfo `json:"businessInfo,omitempty"`
	Message  string                   `json:"message,omitempty"`
}

// Payment holds the method and status sent with the invoice.
type Payment struct {
	Method string `json:"method"`
	Status string `json:"status"`
}

// Editing identifies the invoice loaded for update.
type Editing struct {
	InvoiceID     string `json:"invoiceId"`
	InvoiceNumber string `json:"invoiceNumber,omitempty"`
}

// Session is one operator's working state.
type Session struct {
	ID              string          `json:"id"`
	OperatorID      string          `json:"operatorId,omitempty"`
	Cart            cart.Cart       `json:"cart"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	Customer        Customer        `json:"customer"`
	GST             GST             `json:"gst"`
	Payment         Payment         `json:"payment"`
	Editing         *Editing        `json:"editing,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// NewSession returns a session in its initial state.
func NewSession(id, operatorID string, now time.Time) *Session {
	s := &Session{ID: id, OperatorID: operatorID, CreatedAt: now}
	s.Reset(now)
	return s
}

// Reset restores the initial working state, keeping identity and creation time.
func (s *Session) Reset(now time.Time) {
	s.Cart = cart.Cart{}
	s.DiscountPercent = decimal.Zero
	s.Customer = Customer{Mode: ModeStudent}
	s.GST = GST{}
	s.Payment = Payment{Method: DefaultPaymentMethod, Status: DefaultPaymentStatus}
	s.Editing = nil
	s.UpdatedAt = now
}

// Commission returns the school commission percentage, absent for quick
// sales and students without a school.
func (s *Session) Commission() decimal.NullDecimal {
	if s.Customer.Mode != ModeStudent || s.Customer.Student == nil || s.Customer.Student.SchoolID == "" {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(s.Customer.Student.CommissionRate)
}

// Totals derives the invoice figures from the current state.
func (s *Session) Totals() pricing.Summary {
	return pricing.Compute(s.Cart.Lines(), pricing.Options{
		DiscountPercent:   s.DiscountPercent,
		CommissionPercent: s.Commission(),
	})
}

// View is the session as returned to clients, with derived totals.
type View struct {
	*Session
	Totals pricing.Summary `json:"totals"`
}

// NewView renders s with rounded totals.
func NewView(s *Session) View {
	return View{Session: s, Totals: s.Totals().Rounded()}
}
