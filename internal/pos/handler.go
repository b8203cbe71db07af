package pos

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/stationery-pos/internal/backoffice"
	"github.com/noah-isme/stationery-pos/internal/common"
)

// Handler exposes the POS working state over HTTP.
type Handler struct {
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the session endpoints. submitMW wraps the submit endpoint,
// normally with the idempotency middleware.
func (h *Handler) Routes(submitMW func(http.Handler) http.Handler) func(chi.Router) {
	if submitMW == nil {
		submitMW = func(next http.Handler) http.Handler { return next }
	}
	return func(r chi.Router) {
		r.Post("/", h.Create)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Delete("/", h.Delete)
			r.Post("/items", h.AddItem)
			r.Patch("/items/{productID}", h.UpdateQuantity)
			r.Delete("/items/{productID}", h.RemoveItem)
			r.Put("/discount", h.SetDiscount)
			r.Put("/customer", h.SetCustomer)
			r.Put("/payment", h.SetPayment)
			r.Put("/gst", h.SetGST)
			r.Post("/gst/verify", h.VerifyGST)
			r.With(submitMW).Post("/submit", h.Submit)
			r.Post("/edit/{invoiceID}", h.EditInvoice)
			r.Delete("/edit", h.CancelEdit)
		})
	}
}

// Create handles POST /api/v1/pos/sessions.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	sess, err := h.service.Create(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	common.Data(w, http.StatusCreated, NewView(sess))
}

// Get handles GET /api/v1/pos/sessions/{sessionID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	sess, err := h.service.Get(r.Context(), chi.URLParam(r, "sessionID"))
	h.respond(w, r, sess, err)
}

// Delete handles DELETE /api/v1/pos/sessions/{sessionID}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type addItemRequest struct {
	ProductID string `json:"productId" validate:"required"`
}

// AddItem handles POST /api/v1/pos/sessions/{sessionID}/items.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := common.DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sess, err := h.service.AddItem(r.Context(), chi.URLParam(r, "sessionID"), req.ProductID)
	h.respond(w, r, sess, err)
}

type updateQuantityRequest struct {
	Delta int `json:"delta" validate:"required,min=-100000,max=100000"`
}

// UpdateQuantity handles PATCH /api/v1/pos/sessions/{sessionID}/items/{productID}.
func (h *Handler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req updateQuantityRequest
	if err := common.DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sess, err := h.service.UpdateQuantity(r.Context(), chi.URLParam(r, "sessionID"), chi.URLParam(r, "productID"), req.Delta)
	h.respond(w, r, sess, err)
}

// RemoveItem handles DELETE /api/v1/pos/sessions/{sessionID}/items/{productID}.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	sess, err := h.service.RemoveItem(r.Context(), chi.URLParam(r, "sessionID"), chi.URLParam(r, "productID"))
	h.respond(w, r, sess, err)
}

type discountRequest struct {
	Percent decimal.Decimal `json:"percent"`
}

// SetDiscount handles PUT /api/v1/pos/sessions/{sessionID}/discount.
func (h *Handler) SetDiscount(w http.ResponseWriter, r *http.Request) {
	var req discountRequest
	if err := common.DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sess, err := h.service.SetDiscount(r.Context(), chi.URLParam(r, "sessionID"), req.Percent)
	h.respond(w, r, sess, err)
}

// SetCustomer handles PUT /api/v1/pos/sessions/{sessionID}/customer.
func (h *Handler) SetCustomer(w http.ResponseWriter, r *http.Request) {
	var req CustomerInput
	if err := common.DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sess, err := h.service.SetCustomer(r.Context(), chi.URLParam(r, "sessionID"), req)
	h.respond(w, r, sess, err)
}

// SetPayment handles PUT /api/v1/pos/sessions/{sessionID}/payment.
func (h *Handler) SetPayment(w http.ResponseWriter, r *http.Request) {
	var req PaymentInput
	if err := common.DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sess, err := h.service.SetPayment(r.Context(), chi.URLParam(r, "sessionID"), req)
	h.respond(w, r, sess, err)
}

// SetGST handles PUT /api/v1/pos/sessions/{sessionID}/gst.
func (h *Handler) SetGST(w http.ResponseWriter, r *http.Request) {
	var req GSTInput
	if err := common.DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sess, err := h.service.SetGST(r.Context(), chi.URLParam(r, "sessionID"), req)
	h.respond(w, r, sess, err)
}

// VerifyGST handles POST /api/v1/pos/sessions/{sessionID}/gst/verify.
func (h *Handler) VerifyGST(w http.ResponseWriter, r *http.Request) {
	sess, err := h.service.VerifyGST(r.Context(), chi.URLParam(r, "sessionID"))
	h.respond(w, r, sess, err)
}

// Submit handles POST /api/v1/pos/sessions/{sessionID}/submit.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.Submit(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusCreated
	if res.Action == "updated" {
		status = http.StatusOK
	}
	common.Data(w, status, map[string]any{
		"action":  res.Action,
		"invoice": res.Invoice,
		"session": NewView(res.Session),
	})
}

// EditInvoice handles POST /api/v1/pos/sessions/{sessionID}/edit/{invoiceID}.
func (h *Handler) EditInvoice(w http.ResponseWriter, r *http.Request) {
	sess, err := h.service.EditInvoice(r.Context(), chi.URLParam(r, "sessionID"), chi.URLParam(r, "invoiceID"))
	h.respond(w, r, sess, err)
}

// CancelEdit handles DELETE /api/v1/pos/sessions/{sessionID}/edit.
func (h *Handler) CancelEdit(w http.ResponseWriter, r *http.Request) {
	sess, err := h.service.CancelEdit(r.Context(), chi.URLParam(r, "sessionID"))
	h.respond(w, r, sess, err)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, sess *Session, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	common.Data(w, http.StatusOK, NewView(sess))
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if appErr := toAppError(err); appErr != nil {
		common.WriteAppError(w, appErr)
		return
	}
	backoffice.WriteError(w, r, err)
}
