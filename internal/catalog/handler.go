package catalog

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/stationery-pos/internal/backoffice"
	"github.com/noah-isme/stationery-pos/internal/common"
)

// Handler serves the master data endpoints.
type Handler struct {
	svc    *Service
	source func(ctx context.Context) Source
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, source func(ctx context.Context) Source) *Handler {
	if svc == nil {
		svc = &Service{}
	}
	return &Handler{svc: svc, source: source}
}

// ProductRoutes mounts /products.
func (h *Handler) ProductRoutes(r chi.Router) {
	r.Get("/", h.ListProducts)
	r.Post("/", h.CreateProduct)
	r.Put("/{productID}", h.UpdateProduct)
	r.Delete("/{productID}", h.DeleteProduct)
}

// CategoryRoutes mounts /categories.
func (h *Handler) CategoryRoutes(r chi.Router) {
	r.Get("/", h.ListCategories)
	r.Post("/", h.CreateCategory)
	r.Put("/{categoryID}", h.UpdateCategory)
	r.Delete("/{categoryID}", h.DeleteCategory)
}

// SupplierRoutes mounts /suppliers.
func (h *Handler) SupplierRoutes(r chi.Router) {
	r.Get("/", h.ListSuppliers)
	r.Post("/", h.CreateSupplier)
	r.Put("/{supplierID}", h.UpdateSupplier)
	r.Delete("/{supplierID}", h.DeleteSupplier)
}

// SchoolRoutes mounts /schools.
func (h *Handler) SchoolRoutes(r chi.Router) {
	r.Get("/", h.ListSchools)
	r.Post("/", h.CreateSchool)
}

// ListProducts handles GET /api/v1/products?search=&categoryId=&status=.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	rows, err := h.svc.Products(r.Context(), h.source(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	common.Data(w, http.StatusOK, FilterProducts(rows, q.Get("search"), q.Get("categoryId"), q.Get("status")))
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var d ProductDraft
	if err := common.DecodeJSON(w, r, &d); err != nil {
		writeError(w, r, err)
		return
	}
	created, err := h.svc.CreateProduct(r.Context(), h.source(r.Context()), d)
	respond(w, r, http.StatusCreated, created, err)
}

func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var d ProductDraft
	if err := common.DecodeJSON(w, r, &d); err != nil {
		writeError(w, r, err)
		return
	}
	updated, err := h.svc.UpdateProduct(r.Context(), h.source(r.Context()), chi.URLParam(r, "productID"), d)
	respond(w, r, http.StatusOK, updated, err)
}

func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	err := h.svc.DeleteProduct(r.Context(), h.source(r.Context()), chi.URLParam(r, "productID"))
	respondEmpty(w, r, err)
}

// ListCategories handles GET /api/v1/categories.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Categories(r.Context(), h.source(r.Context()))
	respond(w, r, http.StatusOK, list, err)
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var d CategoryDraft
	if err := common.DecodeJSON(w, r, &d); err != nil {
		writeError(w, r, err)
		return
	}
	created, err := h.svc.CreateCategory(r.Context(), h.source(r.Context()), d)
	respond(w, r, http.StatusCreated, created, err)
}

func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	var d CategoryDraft
	if err := common.DecodeJSON(w, r, &d); err != nil {
		writeError(w, r, err)
		return
	}
	updated, err := h.svc.UpdateCategory(r.Context(), h.source(r.Context()), chi.URLParam(r, "categoryID"), d)
	respond(w, r, http.StatusOK, updated, err)
}

func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	err := h.svc.DeleteCategory(r.Context(), h.source(r.Context()), chi.URLParam(r, "categoryID"))
	respondEmpty(w, r, err)
}

// ListSuppliers handles GET /api/v1/suppliers?search=.
func (h *Handler) ListSuppliers(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Suppliers(r.Context(), h.source(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	common.Data(w, http.StatusOK, FilterSuppliers(list, r.URL.Query().Get("search")))
}

func (h *Handler) CreateSupplier(w http.ResponseWriter, r *http.Request) {
	var d SupplierDraft
	if err := common.DecodeJSON(w, r, &d); err != nil {
		writeError(w, r, err)
		return
	}
	created, err := h.svc.CreateSupplier(r.Context(), h.source(r.Context()), d)
	respond(w, r, http.StatusCreated, created, err)
}

func (h *Handler) UpdateSupplier(w http.ResponseWriter, r *http.Request) {
	var d SupplierDraft
	if err := common.DecodeJSON(w, r, &d); err != nil {
		writeError(w, r, err)
		return
	}
	updated, err := h.svc.UpdateSupplier(r.Context(), h.source(r.Context()), chi.URLParam(r, "supplierID"), d)
	respond(w, r, http.StatusOK, updated, err)
}

func (h *Handler) DeleteSupplier(w http.ResponseWriter, r *http.Request) {
	err := h.svc.DeleteSupplier(r.Context(), h.source(r.Context()), chi.URLParam(r, "supplierID"))
	respondEmpty(w, r, err)
}

// ListSchools handles GET /api/v1/schools?search=&status=.
func (h *Handler) ListSchools(w http.ResponseWriter, r *http.Request) {
	rows, err := h.svc.Schools(r.Context(), h.source(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	common.Data(w, http.StatusOK, FilterSchools(rows, q.Get("search"), q.Get("status")))
}

func (h *Handler) CreateSchool(w http.ResponseWriter, r *http.Request) {
	var d SchoolDraft
	if err := common.DecodeJSON(w, r, &d); err != nil {
		writeError(w, r, err)
		return
	}
	created, err := h.svc.CreateSchool(r.Context(), h.source(r.Context()), d)
	respond(w, r, http.StatusCreated, created, err)
}

// StudentList is the students page: a window of rows plus the class filter
// options across every student.
type StudentList struct {
	Items   []StudentRow `json:"items"`
	Classes []string     `json:"classes"`
	Page    common.Page  `json:"page"`
}

// ListStudents handles GET /api/v1/students?search=&schoolId=&class=&page=&limit=.
func (h *Handler) ListStudents(w http.ResponseWriter, r *http.Request) {
	rows, err := h.svc.Students(r.Context(), h.source(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	number, limit := common.PageParams(r, 50)
	items, page := common.Paginate(FilterStudents(rows, q.Get("search"), q.Get("schoolId"), q.Get("class")), number, limit)
	common.Data(w, http.StatusOK, StudentList{Items: items, Classes: StudentClasses(rows), Page: page})
}

func respond(w http.ResponseWriter, r *http.Request, status int, v any, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	common.Data(w, status, v)
}

func respondEmpty(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var inUse *InUseError
	switch {
	case errors.As(err, &inUse):
		common.JSONError(w, http.StatusConflict, "IN_USE", err.Error(), map[string]any{"kind": inUse.Kind, "products": inUse.Products})
	case errors.Is(err, ErrDuplicate):
		common.JSONError(w, http.StatusConflict, "DUPLICATE", err.Error(), nil)
	case errors.Is(err, ErrUnknownCategory):
		common.JSONError(w, http.StatusUnprocessableEntity, "UNKNOWN_CATEGORY", err.Error(), nil)
	case errors.Is(err, ErrUnknownSupplier):
		common.JSONError(w, http.StatusUnprocessableEntity, "UNKNOWN_SUPPLIER", err.Error(), nil)
	default:
		backoffice.WriteError(w, r, err)
	}
}
