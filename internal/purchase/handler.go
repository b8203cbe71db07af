package purchase

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/stationery-pos/internal/backoffice"
	"github.com/noah-isme/stationery-pos/internal/common"
)

// Handler serves purchase order endpoints.
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

// List handles GET /api/v1/purchases?search=&status=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.svc.List(r.Context(), h.source(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	common.Data(w, http.StatusOK, Filter(rows, q.Get("search"), q.Get("status")))
}

// Create handles POST /api/v1/purchases.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var d Draft
	if err := common.DecodeJSON(w, r, &d); err != nil {
		writeError(w, r, err)
		return
	}
	created, err := h.svc.Create(r.Context(), h.source(r.Context()), d)
	if err != nil {
		writeError(w, r, err)
		return
	}
	common.Data(w, http.StatusCreated, created)
}

type statusRequest struct {
	PaymentStatus string `json:"paymentStatus" validate:"required"`
}

// UpdateStatus handles PATCH /api/v1/purchases/{purchaseID}/status.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := common.DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	updated, err := h.svc.UpdateStatus(r.Context(), h.source(r.Context()), chi.URLParam(r, "purchaseID"), req.PaymentStatus)
	if err != nil {
		writeError(w, r, err)
		return
	}
	common.Data(w, http.StatusOK, updated)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ErrUnknownProduct) {
		common.JSONError(w, http.StatusUnprocessableEntity, "UNKNOWN_PRODUCT", err.Error(), nil)
		return
	}
	backoffice.WriteError(w, r, err)
}
