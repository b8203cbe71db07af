package commission

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/stationery-pos/internal/backoffice"
	"github.com/noah-isme/stationery-pos/internal/common"
)

// Handler serves commission endpoints.
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

// List handles GET /api/v1/commissions?search=&status=&month=. The summary
// always covers the unfiltered list.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	src := h.source(ctx)
	list, err := src.ListCommissions(ctx)
	if err != nil {
		backoffice.WriteError(w, r, err)
		return
	}
	schools, err := src.ListSchools(ctx)
	if err != nil {
		backoffice.WriteError(w, r, err)
		return
	}
	rows := Rows(list, schools)
	q := r.URL.Query()
	filter := Filter{Search: q.Get("search"), Status: q.Get("status"), Month: q.Get("month")}
	common.Data(w, http.StatusOK, map[string]any{
		"items":   filter.Apply(rows),
		"summary": Summarize(rows, schools),
		"months":  Months(rows),
	})
}

// Settle handles POST /api/v1/commissions/{commissionID}/settle.
func (h *Handler) Settle(w http.ResponseWriter, r *http.Request) {
	var in SettleInput
	if err := common.DecodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	settled, err := h.svc.Settle(r.Context(), h.source(r.Context()), chi.URLParam(r, "commissionID"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	common.Data(w, http.StatusOK, settled)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "COMMISSION_NOT_FOUND", "commission not found", nil)
	case errors.Is(err, ErrAlreadySettled):
		common.JSONError(w, http.StatusConflict, "COMMISSION_SETTLED", "commission is already settled", nil)
	default:
		backoffice.WriteError(w, r, err)
	}
}
