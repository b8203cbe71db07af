package reference

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/stationery-pos/internal/backoffice"
	"github.com/noah-isme/stationery-pos/internal/common"
)

// Handler serves reference lookups for the POS screens.
type Handler struct {
	loader *Loader
	client *backoffice.Client
}

// NewHandler constructs a Handler.
func NewHandler(loader *Loader, client *backoffice.Client) *Handler {
	return &Handler{loader: loader, client: client}
}

// All handles GET /api/v1/reference.
func (h *Handler) All(w http.ResponseWriter, r *http.Request) {
	data, err := h.loader.LoadAll(r.Context(), h.client.FromContext(r.Context()))
	if err != nil {
		backoffice.WriteError(w, r, err)
		return
	}
	common.Data(w, http.StatusOK, data)
}

// Products handles GET /api/v1/reference/products?q=.
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	products, err := h.loader.Products(r.Context(), h.client.FromContext(r.Context()))
	if err != nil {
		backoffice.WriteError(w, r, err)
		return
	}
	data := NewData(products, nil, nil)
	q := r.URL.Query().Get("q")
	if strings.TrimSpace(q) == "" {
		common.Data(w, http.StatusOK, data.ActiveProducts())
		return
	}
	common.Data(w, http.StatusOK, data.SearchProducts(q))
}

// Students handles GET /api/v1/reference/students?q=&schoolId=&mode=.
// mode=quick-sales searches walk-in customers instead of enrolled students.
func (h *Handler) Students(w http.ResponseWriter, r *http.Request) {
	students, err := h.loader.Students(r.Context(), h.client.FromContext(r.Context()))
	if err != nil {
		backoffice.WriteError(w, r, err)
		return
	}
	data := NewData(nil, students, nil)
	query := r.URL.Query()
	if query.Get("mode") == "quick-sales" {
		common.Data(w, http.StatusOK, data.SearchWalkIns(query.Get("q")))
		return
	}
	common.Data(w, http.StatusOK, data.SearchStudents(query.Get("q"), query.Get("schoolId")))
}

type createStudentRequest struct {
	Name       string `json:"name" validate:"required"`
	RollNumber string `json:"rollNumber" validate:"required"`
	Class      string `json:"class" validate:"required"`
	Section    string `json:"section"`
	SchoolID   string `json:"schoolId" validate:"required"`
	Phone      string `json:"phone"`
	Email      string `json:"email" validate:"omitempty,email"`
}

// CreateStudent handles POST /api/v1/students, the quick-add form of the POS.
func (h *Handler) CreateStudent(w http.ResponseWriter, r *http.Request) {
	var req createStudentRequest
	if err := common.DecodeJSON(w, r, &req); err != nil {
		backoffice.WriteError(w, r, err)
		return
	}
	student, err := h.client.FromContext(r.Context()).CreateStudent(r.Context(), backoffice.NewStudent{
		Name:       strings.TrimSpace(req.Name),
		RollNumber: strings.TrimSpace(req.RollNumber),
		Class:      strings.TrimSpace(req.Class),
		Section:    strings.TrimSpace(req.Section),
		School:     req.SchoolID,
		Contact:    backoffice.Contact{Phone: strings.TrimSpace(req.Phone), Email: strings.TrimSpace(req.Email)},
	})
	if err != nil {
		backoffice.WriteError(w, r, err)
		return
	}
	if err := h.loader.InvalidateStudents(r.Context()); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("invalidate student cache")
	}
	common.Data(w, http.StatusCreated, student)
}
