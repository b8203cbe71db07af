package backoffice

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/noah-isme/stationery-pos/internal/common"
)

// Login exchanges operator credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	var out LoginResult
	body := map[string]string{"email": email, "password": password}
	err := c.do(ctx, call{op: "login", method: http.MethodPost, path: "/auth/login", body: body, raw: true}, &out)
	if err != nil {
		return LoginResult{}, err
	}
	if out.Token == "" {
		return LoginResult{}, &Error{Operation: "login", StatusCode: http.StatusUnauthorized, Message: "login returned no token"}
	}
	return out, nil
}

func (c *Client) ListProducts(ctx context.Context) ([]Product, error) {
	var out []Product
	err := c.do(ctx, call{op: "list_products", method: http.MethodGet, path: "/products"}, &out)
	return out, err
}

func (c *Client) CreateProduct(ctx context.Context, in NewProduct) (Product, error) {
	if err := common.ValidateStruct(in); err != nil {
		return Product{}, err
	}
	var out Product
	err := c.do(ctx, call{op: "create_product", method: http.MethodPost, path: "/products", body: in}, &out)
	return out, err
}

// UpdateProduct replaces every editable field of a product.
func (c *Client) UpdateProduct(ctx context.Context, id string, in NewProduct) (Product, error) {
	if err := common.ValidateStruct(in); err != nil {
		return Product{}, err
	}
	var out Product
	err := c.do(ctx, call{op: "update_product", method: http.MethodPut, path: "/products/" + url.PathEscape(id), body: in}, &out)
	return out, err
}

func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	return c.do(ctx, call{op: "delete_product", method: http.MethodDelete, path: "/products/" + url.PathEscape(id)}, nil)
}

func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	var out []Category
	err := c.do(ctx, call{op: "list_categories", method: http.MethodGet, path: "/categories"}, &out)
	return out, err
}

func (c *Client) CreateCategory(ctx context.Context, in NewCategory) (Category, error) {
	if err := common.ValidateStruct(in); err != nil {
		return Category{}, err
	}
	var out Category
	err := c.do(ctx, call{op: "create_category", method: http.MethodPost, path: "/categories", body: in}, &out)
	return out, err
}

func (c *Client) UpdateCategory(ctx context.Context, id string, in NewCategory) (Category, error) {
	if err := common.ValidateStruct(in); err != nil {
		return Category{}, err
	}
	var out Category
	err := c.do(ctx, call{op: "update_category", method: http.MethodPut, path: "/categories/" + url.PathEscape(id), body: in}, &out)
	return out, err
}

func (c *Client) DeleteCategory(ctx context.Context, id string) error {
	return c.do(ctx, call{op: "delete_category", method: http.MethodDelete, path: "/categories/" + url.PathEscape(id)}, nil)
}

func (c *Client) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	var out []Supplier
	err := c.do(ctx, call{op: "list_suppliers", method: http.MethodGet, path: "/suppliers"}, &out)
	return out, err
}

func (c *Client) CreateSupplier(ctx context.Context, in NewSupplier) (Supplier, error) {
	if err := common.ValidateStruct(in); err != nil {
		return Supplier{}, err
	}
	var out Supplier
	err := c.do(ctx, call{op: "create_supplier", method: http.MethodPost, path: "/suppliers", body: in}, &out)
	return out, err
}

func (c *Client) UpdateSupplier(ctx context.Context, id string, in NewSupplier) (Supplier, error) {
	if err := common.ValidateStruct(in); err != nil {
		return Supplier{}, err
	}
	var out Supplier
	err := c.do(ctx, call{op: "update_supplier", method: http.MethodPut, path: "/suppliers/" + url.PathEscape(id), body: in}, &out)
	return out, err
}

func (c *Client) DeleteSupplier(ctx context.Context, id string) error {
	return c.do(ctx, call{op: "delete_supplier", method: http.MethodDelete, path: "/suppliers/" + url.PathEscape(id)}, nil)
}

func (c *Client) ListStudents(ctx context.Context) ([]Student, error) {
	var out []Student
	err := c.do(ctx, call{op: "list_students", method: http.MethodGet, path: "/students"}, &out)
	return out, err
}

// CreateStudent registers a student; quick sales use it for walk-in customers.
func (c *Client) CreateStudent(ctx context.Context, in NewStudent) (Student, error) {
	if err := common.ValidateStruct(in); err != nil {
		return Student{}, err
	}
	var out Student
	err := c.do(ctx, call{op: "create_student", method: http.MethodPost, path: "/students", body: in}, &out)
	return out, err
}

func (c *Client) ListSchools(ctx context.Context) ([]School, error) {
	var out []School
	err := c.do(ctx, call{op: "list_schools", method: http.MethodGet, path: "/schools"}, &out)
	return out, err
}

// CreateSchool registers a partner school. Schools are never deleted; they
// carry commission history.
func (c *Client) CreateSchool(ctx context.Context, in NewSchool) (School, error) {
	if err := common.ValidateStruct(in); err != nil {
		return School{}, err
	}
	var out School
	err := c.do(ctx, call{op: "create_school", method: http.MethodPost, path: "/schools", body: in}, &out)
	return out, err
}

func (c *Client) ListInvoices(ctx context.Context) ([]Invoice, error) {
	var out []Invoice
	err := c.do(ctx, call{op: "list_invoices", method: http.MethodGet, path: "/invoices"}, &out)
	return out, err
}

func (c *Client) GetInvoice(ctx context.Context, id string) (Invoice, error) {
	var out Invoice
	err := c.do(ctx, call{op: "get_invoice", method: http.MethodGet, path: "/invoices/" + url.PathEscape(id)}, &out)
	return out, err
}

// CreateInvoice submits a new invoice. It is attempted once.
func (c *Client) CreateInvoice(ctx context.Context, in InvoicePayload) (Invoice, error) {
	if err := common.ValidateStruct(in); err != nil {
		return Invoice{}, err
	}
	var out Invoice
	err := c.do(ctx, call{op: "create_invoice", method: http.MethodPost, path: "/invoices", body: in}, &out)
	return out, err
}

// UpdateInvoice replaces an existing invoice. It is attempted once.
func (c *Client) UpdateInvoice(ctx context.Context, id string, in InvoicePayload) (Invoice, error) {
	if err := common.ValidateStruct(in); err != nil {
		return Invoice{}, err
	}
	var out Invoice
	err := c.do(ctx, call{op: "update_invoice", method: http.MethodPut, path: "/invoices/" + url.PathEscape(id), body: in}, &out)
	return out, err
}

// LookupGST verifies a GSTIN. A number the backend cannot verify yields
// Verified=false with the backend's message rather than an error.
func (c *Client) LookupGST(ctx context.Context, gstin string) (GSTResult, error) {
	gstin = strings.ToUpper(strings.TrimSpace(gstin))
	var out struct {
		Success bool          `json:"success"`
		Data    *BusinessInfo `json:"data"`
		Message string        `json:"message"`
	}
	err := c.do(ctx, call{op: "lookup_gst", method: http.MethodGet, path: "/gst/" + url.PathEscape(gstin), raw: true}, &out)
	if err != nil {
		var be *Error
		if errors.As(err, &be) && (be.StatusCode == http.StatusNotFound || be.StatusCode == http.StatusUnprocessableEntity || be.StatusCode == http.StatusBadRequest) {
			return GSTResult{Verified: false, Message: messageOr(be.Message, "GST number could not be verified")}, nil
		}
		return GSTResult{}, err
	}
	if out.Data == nil || out.Data.LegalName == "" {
		return GSTResult{Verified: false, Message: messageOr(out.Message, "GST number could not be verified")}, nil
	}
	return GSTResult{Verified: true, Info: out.Data, Message: out.Message}, nil
}

func (c *Client) ListCommissions(ctx context.Context) ([]Commission, error) {
	var out []Commission
	err := c.do(ctx, call{op: "list_commissions", method: http.MethodGet, path: "/commissions"}, &out)
	return out, err
}

// SettleCommission marks a commission settled. Backends without the dedicated
// settle route get a plain update carrying status "settled".
func (c *Client) SettleCommission(ctx context.Context, id string, in SettleRequest) (Commission, error) {
	if err := common.ValidateStruct(in); err != nil {
		return Commission{}, err
	}
	var out Commission
	path := "/commissions/" + url.PathEscape(id)
	err := c.do(ctx, call{op: "settle_commission", method: http.MethodPut, path: path + "/settle", body: in}, &out)
	if err == nil || !isMissingRoute(err) {
		return out, err
	}
	in.Status = "settled"
	err = c.do(ctx, call{op: "update_commission", method: http.MethodPut, path: path, body: in}, &out)
	return out, err
}

func (c *Client) ListPurchases(ctx context.Context) ([]Purchase, error) {
	var out []Purchase
	err := c.do(ctx, call{op: "list_purchases", method: http.MethodGet, path: "/purchases"}, &out)
	return out, err
}

func (c *Client) CreatePurchase(ctx context.Context, in NewPurchase) (Purchase, error) {
	if err := common.ValidateStruct(in); err != nil {
		return Purchase{}, err
	}
	var out Purchase
	err := c.do(ctx, call{op: "create_purchase", method: http.MethodPost, path: "/purchases", body: in}, &out)
	return out, err
}

func (c *Client) UpdatePurchaseStatus(ctx context.Context, id, status string) (Purchase, error) {
	if err := common.Validator().Var(status, "required,oneof=pending paid"); err != nil {
		return Purchase{}, common.ValidationError("validation failed", map[string]string{"paymentStatus": "must be one of [pending paid]"})
	}
	var out Purchase
	body := map[string]string{"paymentStatus": status}
	err := c.do(ctx, call{op: "update_purchase", method: http.MethodPut, path: "/purchases/" + url.PathEscape(id), body: body}, &out)
	return out, err
}

// SalesReport returns the backend's sales report for period as raw JSON.
func (c *Client) SalesReport(ctx context.Context, period string) (json.RawMessage, error) {
	var out json.RawMessage
	q := url.Values{}
	if period != "" {
		q.Set("period", period)
	}
	err := c.do(ctx, call{op: "report_sales", method: http.MethodGet, path: "/reports/sales", query: q}, &out)
	return out, err
}

func (c *Client) SchoolPerformance(ctx context.Context) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.do(ctx, call{op: "report_school_performance", method: http.MethodGet, path: "/reports/school-performance"}, &out)
	return out, err
}

func (c *Client) InventoryValuation(ctx context.Context) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.do(ctx, call{op: "report_inventory_valuation", method: http.MethodGet, path: "/reports/inventory-valuation"}, &out)
	return out, err
}
