package backoffice

import (
	"time"

	"github.com/shopspring/decimal"
)

// Money converts a wire amount into a decimal.
func Money(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

// Contact is the nested contact block used by schools and students.
type Contact struct {
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// Address is the nested postal address of a school.
type Address struct {
	Street  string `json:"street,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Pincode string `json:"pincode,omitempty"`
}

// Category groups products in the catalog.
type Category struct {
	ID           string `json:"_id" validate:"required"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	ProductCount int    `json:"productCount,omitempty"`
	IsActive     bool   `json:"isActive"`
}

// NewCategory is the body of POST /categories and PUT /categories/{id}.
type NewCategory struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description,omitempty"`
	IsActive    bool   `json:"isActive"`
}

// Supplier provides stock for purchase orders.
type Supplier struct {
	ID           string  `json:"_id" validate:"required"`
	Name         string  `json:"name"`
	Code         string  `json:"code,omitempty"`
	GSTIN        string  `json:"gstin,omitempty"`
	PaymentTerms string  `json:"paymentTerms,omitempty"`
	Contact      Contact `json:"contact"`
	Address      Address `json:"address"`
	IsActive     bool    `json:"isActive"`
}

// NewSupplier is the body of POST /suppliers and PUT /suppliers/{id}.
type NewSupplier struct {
	Name         string  `json:"name" validate:"required"`
	Code         string  `json:"code" validate:"required"`
	GSTIN        string  `json:"gstin,omitempty"`
	PaymentTerms string  `json:"paymentTerms,omitempty"`
	Contact      Contact `json:"contact"`
	Address      Address `json:"address"`
	IsActive     bool    `json:"isActive"`
}

// Product is a catalog entry as the backend stores it.
type Product struct {
	ID            string        `json:"_id" validate:"required"`
	Name          string        `json:"name"`
	SKU           string        `json:"sku"`
	Barcode       string        `json:"barcode,omitempty"`
	Category      Ref[Category] `json:"category"`
	Supplier      Ref[Supplier] `json:"supplier"`
	BasePrice     float64       `json:"basePrice" validate:"gte=0"`
	SellingPrice  float64       `json:"sellingPrice" validate:"gte=0"`
	GSTRate       float64       `json:"gstRate" validate:"gte=0,lte=100"`
	Stock         int           `json:"stock"`
	MinStockLevel int           `json:"minStockLevel"`
	IsActive      bool          `json:"isActive"`
}

// NewProduct is the body of POST /products and PUT /products/{id}.
type NewProduct struct {
	Name          string  `json:"name" validate:"required"`
	SKU           string  `json:"sku" validate:"required"`
	Barcode       string  `json:"barcode,omitempty"`
	Category      string  `json:"category" validate:"required"`
	Supplier      string  `json:"supplier,omitempty"`
	BasePrice     float64 `json:"basePrice" validate:"gte=0"`
	SellingPrice  float64 `json:"sellingPrice" validate:"gt=0"`
	GSTRate       float64 `json:"gstRate" validate:"gte=0,lte=100"`
	Stock         int     `json:"stock" validate:"gte=0"`
	MinStockLevel int     `json:"minStockLevel" validate:"gte=0"`
	IsActive      bool    `json:"isActive"`
}

// School is a partner school earning commission on its students' purchases.
type School struct {
	ID             string  `json:"_id" validate:"required"`
	Name           string  `json:"name"`
	Code           string  `json:"code,omitempty"`
	Contact        Contact `json:"contact"`
	Address        Address `json:"address"`
	CommissionRate float64 `json:"commissionRate" validate:"gte=0,lte=100"`
	IsActive       bool    `json:"isActive"`
}

// NewSchool is the body of POST /schools.
type NewSchool struct {
	Name           string  `json:"name" validate:"required"`
	Code           string  `json:"code" validate:"required"`
	Contact        Contact `json:"contact"`
	Address        Address `json:"address"`
	CommissionRate float64 `json:"commissionRate" validate:"gte=0,lte=100"`
	IsActive       bool    `json:"isActive"`
}

// Student is a customer record; walk-in customers are students of the
// pseudo class "Quick Sales" (older records use "Walk-in").
type Student struct {
	ID         string      `json:"_id" validate:"required"`
	Name       string      `json:"name"`
	RollNumber string      `json:"rollNumber"`
	Class      string      `json:"class"`
	Section    string      `json:"section"`
	Contact    Contact     `json:"contact"`
	School     Ref[School] `json:"school"`
}

// NewStudent is the create payload for POST /students.
type NewStudent struct {
	Name       string  `json:"name" validate:"required"`
	RollNumber string  `json:"rollNumber" validate:"required"`
	Class      string  `json:"class" validate:"required"`
	Section    string  `json:"section"`
	School     string  `json:"school,omitempty"`
	Contact    Contact `json:"contact"`
}

// BusinessInfo is the registered identity behind a GSTIN.
type BusinessInfo struct {
	LegalName string `json:"legalName"`
	TradeName string `json:"tradeName,omitempty"`
	Address   string `json:"address,omitempty"`
}

// GSTResult is the outcome of a GSTIN lookup. A lookup the backend could
// not verify is not an error; Verified is false and Message explains why.
type GSTResult struct {
	Verified bool          `json:"verified"`
	Info     *BusinessInfo `json:"businessInfo,omitempty"`
	Message  string        `json:"message,omitempty"`
}

// InvoiceItem is a priced line stored on an invoice.
type InvoiceItem struct {
	Product   Ref[Product] `json:"product"`
	Quantity  int          `json:"quantity" validate:"gte=1"`
	UnitPrice float64      `json:"unitPrice" validate:"gte=0"`
	GSTRate   float64      `json:"gstRate" validate:"gte=0"`
	GSTAmount float64      `json:"gstAmount"`
	Total     float64      `json:"total"`
}

// Invoice is a persisted sale.
type Invoice struct {
	ID               string        `json:"_id" validate:"required"`
	InvoiceNumber    string        `json:"invoiceNumber"`
	Student          Ref[Student]  `json:"student"`
	School           Ref[School]   `json:"school"`
	Items            []InvoiceItem `json:"items" validate:"dive"`
	Subtotal         float64       `json:"subtotal"`
	Discount         float64       `json:"discount" validate:"gte=0"`
	GSTAmount        float64       `json:"gstAmount"`
	TotalAmount      float64       `json:"totalAmount"`
	CommissionAmount float64       `json:"commissionAmount"`
	PaymentMethod    string        `json:"paymentMethod"`
	PaymentStatus    string        `json:"paymentStatus"`
	IsGSTInvoice     bool          `json:"isGstInvoice"`
	GSTNumber        string        `json:"gstNumber,omitempty"`
	BusinessInfo     *BusinessInfo `json:"businessInfo,omitempty"`
	CreatedAt        time.Time     `json:"createdAt"`
}

// InvoiceLine is one product reference in an invoice payload; the backend
// prices lines itself.
type InvoiceLine struct {
	Product  string `json:"product" validate:"required"`
	Quantity int    `json:"quantity" validate:"gte=1"`
}

// InvoicePayload is the body of POST /invoices and PUT /invoices/{id}.
type InvoicePayload struct {
	Student       string        `json:"student" validate:"required"`
	School        string        `json:"school,omitempty"`
	Items         []InvoiceLine `json:"items" validate:"required,min=1,dive"`
	Discount      float64       `json:"discount" validate:"gte=0"`
	PaymentMethod string        `json:"paymentMethod" validate:"required,oneof=cash card upi bank_transfer"`
	PaymentStatus string        `json:"paymentStatus" validate:"required,oneof=paid unpaid partial"`
	IsGSTInvoice  bool          `json:"isGstInvoice"`
	GSTNumber     string        `json:"gstNumber,omitempty" validate:"required_if=IsGSTInvoice true"`
	BusinessInfo  *BusinessInfo `json:"businessInfo,omitempty"`
}

// Commission is a monthly school commission statement.
type Commission struct {
	ID               string      `json:"_id" validate:"required"`
	School           Ref[School] `json:"school"`
	Month            string      `json:"month"`
	TotalSales       float64     `json:"totalSales"`
	BaseAmount       float64     `json:"baseAmount"`
	CommissionRate   float64     `json:"commissionRate"`
	CommissionAmount float64     `json:"commissionAmount"`
	Status           string      `json:"status" validate:"omitempty,oneof=pending settled"`
	SettledDate      *time.Time  `json:"settledDate,omitempty"`
	Reference        string      `json:"reference,omitempty"`
}

// SettleRequest marks a commission as paid out.
type SettleRequest struct {
	SettledDate string `json:"settledDate" validate:"required,datetime=2006-01-02"`
	Reference   string `json:"reference,omitempty"`
	Status      string `json:"status,omitempty"`
}

// PurchaseItem is a line of a purchase order.
type PurchaseItem struct {
	Product   Ref[Product] `json:"product"`
	Quantity  int          `json:"quantity"`
	UnitPrice float64      `json:"unitPrice"`
	Total     float64      `json:"total"`
}

// Purchase is a purchase order raised against a supplier.
type Purchase struct {
	ID             string         `json:"_id" validate:"required"`
	PurchaseNumber string         `json:"purchaseNumber"`
	Supplier       Ref[Supplier]  `json:"supplier"`
	Items          []PurchaseItem `json:"items"`
	TotalAmount    float64        `json:"totalAmount"`
	PaymentStatus  string         `json:"paymentStatus" validate:"omitempty,oneof=pending paid"`
	CreatedAt      time.Time      `json:"createdAt"`
}

// NewPurchaseItem is a line of a purchase order payload.
type NewPurchaseItem struct {
	Product   string  `json:"product" validate:"required"`
	Quantity  int     `json:"quantity" validate:"gte=1"`
	UnitPrice float64 `json:"unitPrice" validate:"gte=0"`
	Total     float64 `json:"total" validate:"gte=0"`
}

// NewPurchase is the body of POST /purchases.
type NewPurchase struct {
	Supplier      string            `json:"supplier" validate:"required"`
	Items         []NewPurchaseItem `json:"items" validate:"required,min=1,dive"`
	TotalAmount   float64           `json:"totalAmount" validate:"gte=0"`
	PaymentStatus string            `json:"paymentStatus" validate:"required,oneof=pending paid"`
	Notes         string            `json:"notes,omitempty"`
}

// Admin is the back-office operator returned by login.
type Admin struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

// LoginResult is the body of POST /auth/login.
type LoginResult struct {
	Token string `json:"token"`
	Admin Admin  `json:"admin"`
}
