package inventory

import (
	"context"
	"net/http"

	"github.com/noah-isme/stationery-pos/internal/backoffice"
	"github.com/noah-isme/stationery-pos/internal/common"
	"github.com/noah-isme/stationery-pos/internal/reference"
)

// Handler serves the stock status endpoint.
type Handler struct {
	loader *reference.Loader
	source func(ctx context.Context) reference.Source
}

// NewHandler constructs a Handler reading products through the reference cache.
func NewHandler(loader *reference.Loader, source func(ctx context.Context) reference.Source) *Handler {
	if loader == nil {
		loader = &reference.Loader{}
	}
	return &Handler{loader: loader, source: source}
}

// List handles GET /api/v1/inventory?status=&search=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.loader.Products(r.Context(), h.source(r.Context()))
	if err != nil {
		backoffice.WriteError(w, r, err)
		return
	}
	q := r.URL.Query()
	status := q.Get("status")
	switch status {
	case "", "all", string(StatusOut), string(StatusLow), string(StatusOK):
	default:
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "status must be one of all, out, low, ok", nil)
		return
	}
	common.Data(w, http.StatusOK, map[string]any{
		"items":   Filter(products, status, q.Get("search")),
		"summary": Summarize(products),
	})
}
