package pos

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/stationery-pos/internal/backoffice"
	"github.com/noah-isme/stationery-pos/internal/cart"
	"github.com/noah-isme/stationery-pos/internal/common"
	"github.com/noah-isme/stationery-pos/internal/events"
	"github.com/noah-isme/stationery-pos/internal/obs"
	"github.com/noah-isme/stationery-pos/internal/pricing"
	"github.com/noah-isme/stationery-pos/internal/reference"
)

// Backend is the part of the backend client the POS needs.
type Backend interface {
	reference.Source
	CreateStudent(ctx context.Context, in backoffice.NewStudent) (backoffice.Student, error)
	GetInvoice(ctx context.Context, id string) (backoffice.Invoice, error)
	CreateInvoice(ctx context.Context, in backoffice.InvoicePayload) (backoffice.Invoice, error)
	UpdateInvoice(ctx context.Context, id string, in backoffice.InvoicePayload) (backoffice.Invoice, error)
	LookupGST(ctx context.Context, gstin string) (backoffice.GSTResult, error)
}

// Locker serializes work on a key.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// Emitter publishes domain events.
type Emitter interface {
	Emit(ctx context.Context, topic, aggregateID string, payload any) error
}

// ServiceConfig groups Service dependencies. Backend binds the backend client
// to the caller's credential.
type ServiceConfig struct {
	Store   Store
	Locker  Locker
	LockTTL time.Duration
	Loader  *reference.Loader
	Backend func(ctx context.Context) Backend
	Events  Emitter
	Now     func() time.Time
}

// Service applies POS operations to sessions.
type Service struct {
	store   Store
	locker  Locker
	lockTTL time.Duration
	loader  *reference.Loader
	backend func(ctx context.Context) Backend
	events  Emitter
	now     func() time.Time
}

// NewService validates cfg and builds a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil || cfg.Locker == nil || cfg.Backend == nil {
		return nil, fmt.Errorf("pos: store, locker and backend are required")
	}
	loader := cfg.Loader
	if loader == nil {
		loader = &reference.Loader{}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:   cfg.Store,
		locker:  cfg.Locker,
		lockTTL: cfg.LockTTL,
		loader:  loader,
		backend: cfg.Backend,
		events:  cfg.Events,
		now:     now,
	}, nil
}

// Create starts a session owned by the calling operator.
func (s *Service) Create(ctx context.Context) (*Session, error) {
	operator, _ := common.OperatorID(ctx)
	sess := NewSession(uuid.NewString(), operator, s.now().UTC())
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Get returns the session if the caller may see it.
func (s *Service) Get(ctx context.Context, id string) (*Session, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if operator, ok := common.OperatorID(ctx); ok && sess.OperatorID != "" && sess.OperatorID != operator {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Delete discards a session.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.locker.WithLock(ctx, id, s.lockTTL, func(ctx context.Context) error {
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
		return s.store.Delete(ctx, id)
	})
}

// mutate loads the session under its lock, applies fn and saves the result.
// When fn fails nothing is saved.
func (s *Service) mutate(ctx context.Context, id, op string, fn func(ctx context.Context, sess *Session) error) (*Session, error) {
	var out *Session
	err := s.locker.WithLock(ctx, id, s.lockTTL, func(ctx context.Context) error {
		sess, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(ctx, sess); err != nil {
			return err
		}
		sess.UpdatedAt = s.now().UTC()
		if err := s.store.Save(ctx, sess); err != nil {
			return err
		}
		out = sess
		return nil
	})
	result := "ok"
	if err != nil {
		result = "rejected"
	}
	obs.Count(obs.CartMutations, op, result)
	return out, err
}

// AddItem adds one unit of the product to the cart. A product already in the
// cart is incremented against its line's stock snapshot without consulting
// the catalog; only a new line requires an active catalog product.
func (s *Service) AddItem(ctx context.Context, id, productID string) (*Session, error) {
	return s.mutate(ctx, id, "add_item", func(ctx context.Context, sess *Session) error {
		if _, ok := sess.Cart.Find(productID); ok {
			return sess.Cart.UpdateQuantity(productID, 1)
		}
		products, err := s.loader.Products(ctx, s.backend(ctx))
		if err != nil {
			return err
		}
		data := reference.NewData(products, nil, nil)
		p, ok := data.Product(productID)
		if !ok || !p.IsActive {
			return fmt.Errorf("%w: %s", ErrProductNotFound, productID)
		}
		return sess.Cart.AddItem(reference.CartProduct(p))
	})
}

// UpdateQuantity applies a signed quantity change to a cart line.
func (s *Service) UpdateQuantity(ctx context.Context, id, productID string, delta int) (*Session, error) {
	return s.mutate(ctx, id, "update_quantity", func(_ context.Context, sess *Session) error {
		return sess.Cart.UpdateQuantity(productID, delta)
	})
}

// RemoveItem deletes a cart line. Removing an absent line is not an error.
func (s *Service) RemoveItem(ctx context.Context, id, productID string) (*Session, error) {
	return s.mutate(ctx, id, "remove_item", func(_ context.Context, sess *Session) error {
		sess.Cart.RemoveItem(productID)
		return nil
	})
}

// SetDiscount sets the discount percentage of the subtotal.
func (s *Service) SetDiscount(ctx context.Context, id string, percent decimal.Decimal) (*Session, error) {
	if percent.IsNegative() || percent.GreaterThan(decimal.NewFromInt(100)) {
		return nil, common.ValidationError("validation failed", map[string]string{"percent": "must be between 0 and 100"})
	}
	return s.mutate(ctx, id, "set_discount", func(_ context.Context, sess *Session) error {
		sess.DiscountPercent = percent
		return nil
	})
}

// CustomerInput selects the billing party. In student mode StudentID names
// an enrolled student. In quick-sale mode either StudentID names an existing
// walk-in record or Name and Phone describe the walk-in customer.
type CustomerInput struct {
	Mode      CustomerMode `json:"mode" validate:"required,oneof=student quick-sale"`
	StudentID string       `json:"studentId"`
	Name      string       `json:"name"`
	Phone     string       `json:"phone"`
}

// SetCustomer changes the billing party. Switching mode clears the previous selection.
func (s *Service) SetCustomer(ctx context.Context, id string, in CustomerInput) (*Session, error) {
	if err := common.ValidateStruct(in); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, "set_customer", func(ctx context.Context, sess *Session) error {
		if in.Mode == ModeQuickSale && in.StudentID == "" {
			sess.Customer = Customer{
				Mode:        ModeQuickSale,
				WalkInName:  strings.TrimSpace(in.Name),
				WalkInPhone: strings.TrimSpace(in.Phone),
			}
			return nil
		}
		if in.StudentID == "" {
			sess.Customer = Customer{Mode: in.Mode}
			return nil
		}
		customer, err := s.resolveStudent(ctx, in.Mode, in.StudentID)
		if err != nil {
			return err
		}
		sess.Customer = customer
		return nil
	})
}

func (s *Service) resolveStudent(ctx context.Context, mode CustomerMode, studentID string) (Customer, error) {
	backend := s.backend(ctx)
	students, err := s.loader.Students(ctx, backend)
	if err != nil {
		return Customer{}, err
	}
	schools, err := s.loader.Schools(ctx, backend)
	if err != nil {
		return Customer{}, err
	}
	data := reference.NewData(nil, students, schools)
	st, ok := data.Student(studentID)
	if !ok || reference.IsWalkIn(st) != (mode == ModeQuickSale) {
		return Customer{}, fmt.Errorf("%w: %s", ErrStudentNotFound, studentID)
	}
	if mode == ModeQuickSale {
		return Customer{Mode: ModeQuickSale, WalkInID: st.ID, WalkInName: st.Name, WalkInPhone: st.Contact.Phone}, nil
	}
	return Customer{Mode: ModeStudent, Student: studentRef(data, st)}, nil
}

func studentRef(data *reference.Data, st backoffice.Student) *StudentRef {
	ref := &StudentRef{
		ID:         st.ID,
		Name:       st.Name,
		RollNumber: st.RollNumber,
		Class:      st.Class,
		Phone:      st.Contact.Phone,
		SchoolID:   st.School.ID,
	}
	if school, ok := data.StudentSchool(st); ok {
		ref.SchoolID = school.ID
		ref.SchoolName = school.Name
		ref.CommissionRate = reference.CommissionRate(school)
	}
	return ref
}

// PaymentInput sets how the invoice is paid.
type PaymentInput struct {
	Method string `json:"method" validate:"required,oneof=cash card upi bank_transfer"`
	Status string `json:"status" validate:"required,oneof=paid unpaid partial"`
}

func (s *Service) SetPayment(ctx context.Context, id string, in PaymentInput) (*Session, error) {
	if err := common.ValidateStruct(in); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, "set_payment", func(_ context.Context, sess *Session) error {
		sess.Payment = Payment{Method: in.Method, Status: in.Status}
		return nil
	})
}

var gstinPattern = regexp.MustCompile(`^[0-9]{2}[A-Z0-9]{13}$`)

// GSTInput toggles the tax invoice and sets the GSTIN.
type GSTInput struct {
	Enabled bool   `json:"enabled"`
	Number  string `json:"gstNumber"`
}

// SetGST toggles the GST invoice. Changing the number drops any earlier verification.
func (s *Service) SetGST(ctx context.Context, id string, in GSTInput) (*Session, error) {
	number := strings.ToUpper(strings.TrimSpace(in.Number))
	if number != "" && !gstinPattern.MatchString(number) {
		return nil, common.ValidationError("validation failed", map[string]string{"gstNumber": "must be a 15 character GSTIN"})
	}
	return s.mutate(ctx, id, "set_gst", func(_ context.Context, sess *Session) error {
		if !in.Enabled {
			sess.GST = GST{}
			return nil
		}
		if sess.GST.Number != number {
			sess.GST = GST{Number: number}
		}
		sess.GST.Enabled = true
		return nil
	})
}

// VerifyGST looks the GSTIN up and stores the outcome on the session. An
// unverified number is recorded, not rejected.
func (s *Service) VerifyGST(ctx context.Context, id string) (*Session, error) {
	return s.mutate(ctx, id, "verify_gst", func(ctx context.Context, sess *Session) error {
		return s.verifyGST(ctx, sess)
	})
}

func (s *Service) verifyGST(ctx context.Context, sess *Session) error {
	if sess.GST.Number == "" {
		return ErrGSTNumberRequired
	}
	res, err := s.backend(ctx).LookupGST(ctx, sess.GST.Number)
	if err != nil {
		obs.Count(obs.GSTLookups, "error")
		return err
	}
	if res.Verified {
		obs.Count(obs.GSTLookups, "verified")
	} else {
		obs.Count(obs.GSTLookups, "unverified")
	}
	sess.GST.Enabled = true
	sess.GST.Verified = res.Verified
	sess.GST.Business = res.Info
	sess.GST.Message = res.Message
	return nil
}

// SubmitResult is the outcome of a successful submission.
type SubmitResult struct {
	Action  string             `json:"action"`
	Invoice backoffice.Invoice `json:"invoice"`
	Session *Session           `json:"session"`
}

// Submit creates or updates the invoice for the session. Preconditions are
// checked before any backend call. On success the session is reset; on
// failure it is kept as it was, except that a walk-in customer created on
// the way is remembered so a retry does not create it twice.
func (s *Service) Submit(ctx context.Context, id string) (*SubmitResult, error) {
	var result *SubmitResult
	mode, action := "", "create"
	err := s.locker.WithLock(ctx, id, s.lockTTL, func(ctx context.Context) error {
		sess, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		mode = string(sess.Customer.Mode)
		if sess.Editing != nil {
			action = "update"
		}
		if !sess.Customer.Resolved() {
			return ErrCustomerRequired
		}
		if sess.Cart.IsEmpty() {
			return ErrEmptyCart
		}
		if sess.GST.Enabled && sess.GST.Number == "" {
			return ErrGSTNumberRequired
		}

		if sess.GST.Enabled && !sess.GST.Verified {
			if err := s.verifyGST(ctx, sess); err != nil {
				return err
			}
			if !sess.GST.Verified {
				return common.NewAppError("GST_NOT_VERIFIED", messageOr(sess.GST.Message, "GST number could not be verified"), http.StatusUnprocessableEntity, ErrGSTNotVerified)
			}
		}

		customerID, created, err := s.resolveCustomer(ctx, sess)
		if err != nil {
			return err
		}
		if created {
			sess.Customer.WalkInID = customerID
		}

		inv, err := s.send(ctx, sess, customerID)
		if err != nil {
			if created {
				sess.UpdatedAt = s.now().UTC()
				if saveErr := s.store.Save(ctx, sess); saveErr != nil {
					zerolog.Ctx(ctx).Error().Err(saveErr).Str("pos_session", id).Msg("save session after failed submit")
				}
			}
			return err
		}

		topic := events.TopicInvoiceCreated
		if action == "update" {
			topic = events.TopicInvoiceUpdated
		}
		s.emit(ctx, topic, inv.ID, invoiceEvent(sess, inv))
		if err := s.loader.InvalidateProducts(ctx); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("invalidate product cache")
		}

		sess.Reset(s.now().UTC())
		if err := s.store.Save(ctx, sess); err != nil {
			return err
		}
		done := "created"
		if action == "update" {
			done = "updated"
		}
		result = &SubmitResult{Action: done, Invoice: inv, Session: sess}
		return nil
	})
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	obs.Count(obs.InvoiceSubmissions, mode, action, outcome)
	return result, err
}

// resolveCustomer returns the student id to bill and whether a walk-in
// record had to be created for it.
func (s *Service) resolveCustomer(ctx context.Context, sess *Session) (string, bool, error) {
	c := sess.Customer
	if c.Mode == ModeStudent {
		return c.Student.ID, false, nil
	}
	if c.WalkInID != "" {
		return c.WalkInID, false, nil
	}
	backend := s.backend(ctx)
	students, err := s.loader.Students(ctx, backend)
	if err != nil {
		return "", false, err
	}
	if st, ok := reference.NewData(nil, students, nil).FindWalkIn(c.WalkInName, c.WalkInPhone); ok {
		return st.ID, false, nil
	}
	st, err := backend.CreateStudent(ctx, backoffice.NewStudent{
		Name:       c.WalkInName,
		RollNumber: QuickSaleRollNumber(s.now()),
		Class:      reference.QuickSalesClass,
		Section:    "N/A",
		Contact:    backoffice.Contact{Phone: c.WalkInPhone},
	})
	if err != nil {
		return "", false, err
	}
	if st.ID == "" {
		return "", false, fmt.Errorf("%w: created customer has no id", backoffice.ErrInvalidResponse)
	}
	if err := s.loader.InvalidateStudents(ctx); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("invalidate student cache")
	}
	s.emit(ctx, events.TopicCustomerCreated, st.ID, map[string]string{
		"studentId":  st.ID,
		"name":       st.Name,
		"rollNumber": st.RollNumber,
	})
	return st.ID, true, nil
}

// QuickSaleRollNumber builds the pseudo roll number of a walk-in record from
// the last six digits of the millisecond clock.
func QuickSaleRollNumber(now time.Time) string {
	return fmt.Sprintf("QS-%06d", now.UnixMilli()%1_000_000)
}

func (s *Service) send(ctx context.Context, sess *Session, customerID string) (backoffice.Invoice, error) {
	payload := BuildPayload(sess, customerID)
	backend := s.backend(ctx)
	if sess.Editing != nil {
		return backend.UpdateInvoice(ctx, sess.Editing.InvoiceID, payload)
	}
	return backend.CreateInvoice(ctx, payload)
}

// BuildPayload renders the invoice request for sess billed to customerID.
// The backend prices lines itself; only the discount amount travels.
func BuildPayload(sess *Session, customerID string) backoffice.InvoicePayload {
	totals := sess.Totals()
	items := make([]backoffice.InvoiceLine, 0, sess.Cart.Len())
	for _, li := range sess.Cart.Items {
		items = append(items, backoffice.InvoiceLine{Product: li.ProductID, Quantity: li.Quantity})
	}
	payload := backoffice.InvoicePayload{
		Student:       customerID,
		Items:         items,
		Discount:      totals.DiscountAmount.Round(2).InexactFloat64(),
		PaymentMethod: sess.Payment.Method,
		PaymentStatus: sess.Payment.Status,
		IsGSTInvoice:  sess.GST.Enabled,
	}
	if sess.Customer.Mode == ModeStudent && sess.Customer.Student != nil {
		payload.School = sess.Customer.Student.SchoolID
	}
	if sess.GST.Enabled {
		payload.GSTNumber = sess.GST.Number
		payload.BusinessInfo = sess.GST.Business
	}
	return payload
}

// EditInvoice loads an unpaid invoice into the session for update. Lines are
// re-hydrated with current stock as the snapshot, never below the invoiced
// quantity.
func (s *Service) EditInvoice(ctx context.Context, id, invoiceID string) (*Session, error) {
	return s.mutate(ctx, id, "edit_invoice", func(ctx context.Context, sess *Session) error {
		backend := s.backend(ctx)
		inv, err := backend.GetInvoice(ctx, invoiceID)
		if err != nil {
			return err
		}
		if inv.PaymentStatus == "paid" {
			return ErrInvoicePaid
		}
		data, err := s.loader.LoadAll(ctx, backend)
		if err != nil {
			return err
		}
		return hydrate(sess, inv, data, s.now().UTC())
	})
}

// unknownProductStock is assumed for invoice lines whose product is no longer
// in the catalog.
const unknownProductStock = 100

func hydrate(sess *Session, inv backoffice.Invoice, data *reference.Data, now time.Time) error {
	sess.Reset(now)
	for _, item := range inv.Items {
		p := cart.Product{
			ID:           item.Product.ID,
			SellingPrice: backoffice.Money(item.UnitPrice),
			TaxRate:      backoffice.Money(item.GSTRate),
		}
		if current, ok := data.Product(item.Product.ID); ok {
			p.Name, p.Code, p.CurrentStock = current.Name, current.SKU, current.Stock
		} else if item.Product.Populated() {
			p.Name, p.Code, p.CurrentStock = item.Product.Doc.Name, item.Product.Doc.SKU, item.Product.Doc.Stock
		} else {
			p.CurrentStock = unknownProductStock
		}
		if err := sess.Cart.Restore(p, item.Quantity); err != nil {
			return err
		}
	}

	subtotal := backoffice.Money(inv.Subtotal)
	if !subtotal.IsPositive() {
		subtotal = sess.Totals().Subtotal
	}
	sess.DiscountPercent = pricing.DiscountPercentFromAmount(backoffice.Money(inv.Discount), subtotal)

	student, ok := data.Student(inv.Student.ID)
	if !ok && inv.Student.Populated() {
		student, ok = *inv.Student.Doc, true
	}
	switch {
	case ok && (reference.IsWalkIn(student) || reference.IsQuickSaleRoll(student.RollNumber)):
		sess.Customer = Customer{Mode: ModeQuickSale, WalkInID: student.ID, WalkInName: student.Name, WalkInPhone: student.Contact.Phone}
	case ok:
		ref := studentRef(data, student)
		if inv.School.ID != "" {
			if school, found := data.School(inv.School.ID); found {
				ref.SchoolID, ref.SchoolName, ref.CommissionRate = school.ID, school.Name, reference.CommissionRate(school)
			}
		}
		sess.Customer = Customer{Mode: ModeStudent, Student: ref}
	default:
		sess.Customer = Customer{Mode: ModeStudent, Student: &StudentRef{ID: inv.Student.ID, SchoolID: inv.School.ID}}
	}

	sess.GST = GST{
		Enabled:  inv.IsGSTInvoice,
		Number:   inv.GSTNumber,
		Verified: inv.IsGSTInvoice && inv.BusinessInfo != nil,
		Business: inv.BusinessInfo,
	}
	sess.Payment = Payment{Method: orDefault(inv.PaymentMethod, DefaultPaymentMethod), Status: orDefault(inv.PaymentStatus, "unpaid")}
	sess.Editing = &Editing{InvoiceID: inv.ID, InvoiceNumber: inv.InvoiceNumber}
	return nil
}

// CancelEdit leaves edit mode and resets the working state.
func (s *Service) CancelEdit(ctx context.Context, id string) (*Session, error) {
	return s.mutate(ctx, id, "cancel_edit", func(_ context.Context, sess *Session) error {
		sess.Reset(s.now().UTC())
		return nil
	})
}

func (s *Service) emit(ctx context.Context, topic, aggregateID string, payload any) {
	if s.events == nil {
		return
	}
	if err := s.events.Emit(ctx, topic, aggregateID, payload); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("topic", topic).Msg("emit event")
	}
}

func invoiceEvent(sess *Session, inv backoffice.Invoice) map[string]any {
	totals := sess.Totals().Rounded()
	return map[string]any{
		"invoiceId":     inv.ID,
		"invoiceNumber": inv.InvoiceNumber,
		"sessionId":     sess.ID,
		"operatorId":    sess.OperatorID,
		"customerMode":  sess.Customer.Mode,
		"productIds":    productIDs(sess),
		"subtotal":      totals.Subtotal,
		"total":         totals.Total,
		"commission":    totals.CommissionAmount,
	}
}

func productIDs(sess *Session) []string {
	ids := make([]string, 0, sess.Cart.Len())
	for _, li := range sess.Cart.Items {
		ids = append(ids, li.ProductID)
	}
	return ids
}

func messageOr(msg, fallback string) string {
	if msg != "" {
		return msg
	}
	return fallback
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
