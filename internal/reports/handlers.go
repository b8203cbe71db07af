// Package reports serves the back-office reports, cached briefly in Redis.
package reports

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/noah-isme/stationery-pos/internal/backoffice"
	"github.com/noah-isme/stationery-pos/internal/common"
)

// Handler exposes report read endpoints.
type Handler struct {
	Svc    *Service
	Source func(ctx context.Context) Source
}

// Sales handles GET /api/v1/reports/sales?period=.
func (h *Handler) Sales(w http.ResponseWriter, r *http.Request) {
	data, err := h.Svc.Sales(r.Context(), h.Source(r.Context()), r.URL.Query().Get("period"))
	if errors.Is(err, ErrInvalidPeriod) {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "period must be one of "+strings.Join(Periods, ", "), nil)
		return
	}
	h.respond(w, r, data, err)
}

// SchoolPerformance handles GET /api/v1/reports/school-performance.
func (h *Handler) SchoolPerformance(w http.ResponseWriter, r *http.Request) {
	data, err := h.Svc.SchoolPerformance(r.Context(), h.Source(r.Context()))
	h.respond(w, r, data, err)
}

// InventoryValuation handles GET /api/v1/reports/inventory-valuation.
func (h *Handler) InventoryValuation(w http.ResponseWriter, r *http.Request) {
	data, err := h.Svc.InventoryValuation(r.Context(), h.Source(r.Context()))
	h.respond(w, r, data, err)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, data json.RawMessage, err error) {
	if err != nil {
		backoffice.WriteError(w, r, err)
		return
	}
	common.Data(w, http.StatusOK, data)
}
