package invoice

import (
	"context"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/stationery-pos/internal/backoffice"
	"github.com/noah-isme/stationery-pos/internal/common"
	"github.com/noah-isme/stationery-pos/internal/reference"
)

// Source is the slice of the backend client invoice listing reads from.
type Source interface {
	reference.Source
	ListInvoices(ctx context.Context) ([]backoffice.Invoice, error)
	GetInvoice(ctx context.Context, id string) (backoffice.Invoice, error)
}

// Handler serves the invoice list and detail endpoints.
type Handler struct {
	loader *reference.Loader
	source func(ctx context.Context) Source
}

// NewHandler constructs a Handler. source binds the backend client to the
// caller's credential.
func NewHandler(loader *reference.Loader, source func(ctx context.Context) Source) *Handler {
	if loader == nil {
		loader = &reference.Loader{}
	}
	return &Handler{loader: loader, source: source}
}

// ListResponse is the body of GET /invoices.
type ListResponse struct {
	Items   []Row       `json:"items"`
	Classes []string    `json:"classes"`
	Page    common.Page `json:"page"`
}

// List handles GET /api/v1/invoices?search=&schoolId=&mode=&class=&page=&limit=.
// Newest invoices come first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	src := h.source(ctx)
	invoices, err := src.ListInvoices(ctx)
	if err != nil {
		backoffice.WriteError(w, r, err)
		return
	}
	data, err := h.loader.LoadAll(ctx, src)
	if err != nil {
		backoffice.WriteError(w, r, err)
		return
	}

	rows := Enrich(invoices, data)
	slices.SortStableFunc(rows, func(a, b Row) int { return b.CreatedAt.Compare(a.CreatedAt) })

	q := r.URL.Query()
	filter := Filter{Search: q.Get("search"), SchoolID: q.Get("schoolId"), Mode: q.Get("mode"), Class: q.Get("class")}
	page, perPage := common.PageParams(r, 50)
	items, meta := common.Paginate(filter.Apply(rows), page, perPage)
	common.Data(w, http.StatusOK, ListResponse{Items: items, Classes: Classes(rows), Page: meta})
}

// Get handles GET /api/v1/invoices/{invoiceID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	src := h.source(ctx)
	inv, err := src.GetInvoice(ctx, chi.URLParam(r, "invoiceID"))
	if err != nil {
		backoffice.WriteError(w, r, err)
		return
	}
	data, err := h.loader.LoadAll(ctx, src)
	if err != nil {
		backoffice.WriteError(w, r, err)
		return
	}
	common.Data(w, http.StatusOK, enrich(inv, data))
}
