package pos_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/stationery-pos/internal/backoffice"
	"github.com/noah-isme/stationery-pos/internal/cart"
	"github.com/noah-isme/stationery-pos/internal/common"
	"github.com/noah-isme/stationery-pos/internal/events"
	"github.com/noah-isme/stationery-pos/internal/lock"
	"github.com/noah-isme/stationery-pos/internal/pos"
)

var fixedNow = time.UnixMilli(1717236000123).UTC()

type fakeBackend struct {
	mu              sync.Mutex
	products        []backoffice.Product
	students        []backoffice.Student
	schools         []backoffice.School
	invoices        map[string]backoffice.Invoice
	gst             map[string]backoffice.GSTResult
	invoiceErr      error
	createdStudents []backoffice.NewStudent
	createdInvoices []backoffice.InvoicePayload
	updatedInvoices map[string]backoffice.InvoicePayload
	gstLookups      int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		products: []backoffice.Product{
			{ID: "p1", Name: "Notebook", SKU: "NB-1", SellingPrice: 100, GSTRate: 18, Stock: 5, IsActive: true},
			{ID: "p2", Name: "Pencil", SKU: "PN-1", SellingPrice: 10, GSTRate: 12, Stock: 0, IsActive: true},
			{ID: "p3", Name: "Eraser", SKU: "ER-1", SellingPrice: 5, GSTRate: 0, Stock: 50, IsActive: false},
		},
		students: []backoffice.Student{
			{ID: "s1", Name: "Riya", RollNumber: "R-1", Class: "5", School: backoffice.RefTo[backoffice.School]("sch-1")},
			{ID: "w1", Name: "Anita Rao", RollNumber: "QS-111111", Class: "Quick Sales", Contact: backoffice.Contact{Phone: "9876543210"}},
		},
		schools: []backoffice.School{{ID: "sch-1", Name: "Green Valley", CommissionRate: 5}},
		invoices: map[string]backoffice.Invoice{
			"inv-paid": {ID: "inv-paid", PaymentStatus: "paid"},
			"inv-open": {
				ID:            "inv-open",
				InvoiceNumber: "INV-0042",
				Student:       backoffice.RefTo[backoffice.Student]("s1"),
				School:        backoffice.RefTo[backoffice.School]("sch-1"),
				Items: []backoffice.InvoiceItem{
					{Product: backoffice.RefTo[backoffice.Product]("p1"), Quantity: 8, UnitPrice: 100, GSTRate: 18},
				},
				Subtotal:      800,
				Discount:      80,
				PaymentMethod: "upi",
				PaymentStatus: "unpaid",
			},
			"inv-walkin": {
				ID:            "inv-walkin",
				Student:       backoffice.RefTo[backoffice.Student]("w1"),
				Items:         []backoffice.InvoiceItem{{Product: backoffice.RefTo[backoffice.Product]("p1"), Quantity: 1, UnitPrice: 100, GSTRate: 18}},
				Subtotal:      100,
				PaymentMethod: "cash",
				PaymentStatus: "partial",
			},
			"inv-retired": {
				ID:      "inv-retired",
				Student: backoffice.RefTo[backoffice.Student]("s1"),
				Items:   []backoffice.InvoiceItem{{Product: backoffice.RefTo[backoffice.Product]("p-gone"), Quantity: 2, UnitPrice: 40, GSTRate: 5}},
			},
		},
		gst: map[string]backoffice.GSTResult{
			"27AAPFU0939F1ZV": {Verified: true, Info: &backoffice.BusinessInfo{LegalName: "Unique Traders", TradeName: "UT", Address: "Pune"}},
		},
		updatedInvoices: map[string]backoffice.InvoicePayload{},
	}
}

func (f *fakeBackend) ListProducts(context.Context) ([]backoffice.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]backoffice.Product(nil), f.products...), nil
}

func (f *fakeBackend) ListStudents(context.Context) ([]backoffice.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]backoffice.Student(nil), f.students...), nil
}

func (f *fakeBackend) ListSchools(context.Context) ([]backoffice.School, error) {
	return f.schools, nil
}

func (f *fakeBackend) CreateStudent(_ context.Context, in backoffice.NewStudent) (backoffice.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createdStudents = append(f.createdStudents, in)
	st := backoffice.Student{
		ID:         fmt.Sprintf("new-%d", len(f.createdStudents)),
		Name:       in.Name,
		RollNumber: in.RollNumber,
		Class:      in.Class,
		Section:    in.Section,
		Contact:    in.Contact,
	}
	f.students = append(f.students, st)
	return st, nil
}

func (f *fakeBackend) GetInvoice(_ context.Context, id string) (backoffice.Invoice, error) {
	inv, ok := f.invoices[id]
	if !ok {
		return backoffice.Invoice{}, &backoffice.Error{Operation: "get_invoice", StatusCode: 404, Message: "Invoice not found"}
	}
	return inv, nil
}

func (f *fakeBackend) CreateInvoice(_ context.Context, in backoffice.InvoicePayload) (backoffice.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.invoiceErr != nil {
		return backoffice.Invoice{}, f.invoiceErr
	}
	f.createdInvoices = append(f.createdInvoices, in)
	return backoffice.Invoice{ID: fmt.Sprintf("inv-%d", len(f.createdInvoices)), InvoiceNumber: "INV-1000"}, nil
}

func (f *fakeBackend) UpdateInvoice(_ context.Context, id string, in backoffice.InvoicePayload) (backoffice.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updatedInvoices[id] = in
	return backoffice.Invoice{ID: id, InvoiceNumber: f.invoices[id].InvoiceNumber}, nil
}

func (f *fakeBackend) LookupGST(_ context.Context, gstin string) (backoffice.GSTResult, error) {
	f.gstLookups++
	if res, ok := f.gst[gstin]; ok {
		return res, nil
	}
	return backoffice.GSTResult{Verified: false, Message: "GSTIN not found"}, nil
}

func (f *fakeBackend) networkWrites() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.createdInvoices) + len(f.updatedInvoices) + len(f.createdStudents)
}

type captureEmitter struct {
	topics []string
}

func (c *captureEmitter) Emit(_ context.Context, topic, _ string, _ any) error {
	c.topics = append(c.topics, topic)
	return nil
}

type fixture struct {
	svc     *pos.Service
	backend *fakeBackend
	emitter *captureEmitter
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	backend := newFakeBackend()
	emitter := &captureEmitter{}
	svc, err := pos.NewService(pos.ServiceConfig{
		Store:   pos.RedisStore{R: client, TTL: time.Hour},
		Locker:  lock.Locker{R: client, Prefix: "lock:pos:", RetryBackoff: time.Millisecond},
		LockTTL: 5 * time.Second,
		Backend: func(context.Context) pos.Backend { return backend },
		Events:  emitter,
		Now:     func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	return fixture{svc: svc, backend: backend, emitter: emitter}
}

func requireDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func TestReferenceInvoiceTotals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess, err := f.svc.Create(ctx)
	require.NoError(t, err)

	_, err = f.svc.AddItem(ctx, sess.ID, "p1")
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, sess.ID, "p1")
	require.NoError(t, err)
	sess, err = f.svc.SetDiscount(ctx, sess.ID, decimal.NewFromInt(10))
	require.NoError(t, err)

	totals := pos.NewView(sess).Totals
	requireDec(t, "200", totals.Subtotal)
	requireDec(t, "36", totals.TaxAmount)
	requireDec(t, "20", totals.DiscountAmount)
	requireDec(t, "216", totals.Total)
	requireDec(t, "0", totals.CommissionAmount)
}

func TestAddItemRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess, err := f.svc.Create(ctx)
	require.NoError(t, err)

	_, err = f.svc.AddItem(ctx, sess.ID, "p2")
	require.ErrorIs(t, err, cart.ErrInsufficientStock)
	_, err = f.svc.AddItem(ctx, sess.ID, "p3")
	require.ErrorIs(t, err, pos.ErrProductNotFound)
	_, err = f.svc.AddItem(ctx, sess.ID, "missing")
	require.ErrorIs(t, err, pos.ErrProductNotFound)

	got, err := f.svc.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.True(t, got.Cart.IsEmpty())

	_, err = f.svc.AddItem(ctx, sess.ID, "p1")
	require.NoError(t, err)
	_, err = f.svc.UpdateQuantity(ctx, sess.ID, "p1", 5)
	require.ErrorIs(t, err, cart.ErrInsufficientStock)
	got, err = f.svc.Get(ctx, sess.ID)
	require.NoError(t, err)
	line, ok := got.Cart.Find("p1")
	require.True(t, ok)
	require.Equal(t, 1, line.Quantity)
}

func TestAddItemIncrementsWithoutCatalog(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess, err := f.svc.Create(ctx)
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, sess.ID, "p1")
	require.NoError(t, err)

	f.backend.mu.Lock()
	f.backend.products[0].IsActive = false
	f.backend.mu.Unlock()
	got, err := f.svc.AddItem(ctx, sess.ID, "p1")
	require.NoError(t, err)
	line, _ := got.Cart.Find("p1")
	require.Equal(t, 2, line.Quantity)

	f.backend.mu.Lock()
	f.backend.products = f.backend.products[1:]
	f.backend.mu.Unlock()
	got, err = f.svc.AddItem(ctx, sess.ID, "p1")
	require.NoError(t, err)
	line, _ = got.Cart.Find("p1")
	require.Equal(t, 3, line.Quantity)
	require.Equal(t, 5, line.AvailableStock)

	_, err = f.svc.UpdateQuantity(ctx, sess.ID, "p1", 2)
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, sess.ID, "p1")
	require.ErrorIs(t, err, cart.ErrInsufficientStock)
}

func TestSetDiscountBounds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess, err := f.svc.Create(ctx)
	require.NoError(t, err)

	_, err = f.svc.SetDiscount(ctx, sess.ID, decimal.NewFromInt(101))
	require.True(t, common.IsAppError(err))
	_, err = f.svc.SetDiscount(ctx, sess.ID, decimal.NewFromInt(-1))
	require.True(t, common.IsAppError(err))
}

func TestSubmitPreconditionsAvoidNetwork(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess, err := f.svc.Create(ctx)
	require.NoError(t, err)

	_, err = f.svc.AddItem(ctx, sess.ID, "p1")
	require.NoError(t, err)
	_, err = f.svc.SetCustomer(ctx, sess.ID, pos.CustomerInput{Mode: pos.ModeQuickSale, Name: "  "})
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, sess.ID)
	require.ErrorIs(t, err, pos.ErrCustomerRequired)

	other, err := f.svc.Create(ctx)
	require.NoError(t, err)
	_, err = f.svc.SetCustomer(ctx, other.ID, pos.CustomerInput{Mode: pos.ModeStudent, StudentID: "s1"})
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, other.ID)
	require.ErrorIs(t, err, pos.ErrEmptyCart)

	require.Zero(t, f.backend.networkWrites())
	require.Empty(t, f.emitter.topics)
}

func TestSubmitStudentInvoice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess, err := f.svc.Create(ctx)
	require.NoError(t, err)

	_, err = f.svc.AddItem(ctx, sess.ID, "p1")
	require.NoError(t, err)
	_, err = f.svc.UpdateQuantity(ctx, sess.ID, "p1", 1)
	require.NoError(t, err)
	_, err = f.svc.SetDiscount(ctx, sess.ID, decimal.NewFromInt(10))
	require.NoError(t, err)
	sess, err = f.svc.SetCustomer(ctx, sess.ID, pos.CustomerInput{Mode: pos.ModeStudent, StudentID: "s1"})
	require.NoError(t, err)
	require.Equal(t, "Green Valley", sess.Customer.Student.SchoolName)
	requireDec(t, "9", sess.Totals().CommissionAmount)

	_, err = f.svc.SetPayment(ctx, sess.ID, pos.PaymentInput{Method: "upi", Status: "unpaid"})
	require.NoError(t, err)

	res, err := f.svc.Submit(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, "created", res.Action)

	require.Len(t, f.backend.createdInvoices, 1)
	payload := f.backend.createdInvoices[0]
	require.Equal(t, "s1", payload.Student)
	require.Equal(t, "sch-1", payload.School)
	require.Equal(t, 20.0, payload.Discount)
	require.Equal(t, "upi", payload.PaymentMethod)
	require.Equal(t, "unpaid", payload.PaymentStatus)
	require.Equal(t, []backoffice.InvoiceLine{{Product: "p1", Quantity: 2}}, payload.Items)

	after, err := f.svc.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.True(t, after.Cart.IsEmpty())
	require.True(t, after.DiscountPercent.IsZero())
	require.Equal(t, pos.Payment{Method: "cash", Status: "paid"}, after.Payment)
	require.False(t, after.Customer.Resolved())
	require.Equal(t, []string{events.TopicInvoiceCreated}, f.emitter.topics)
}

func TestSubmitQuickSaleCreatesWalkIn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess, err := f.svc.Create(ctx)
	require.NoError(t, err)

	_, err = f.svc.AddItem(ctx, sess.ID, "p1")
	require.NoError(t, err)
	_, err = f.svc.SetCustomer(ctx, sess.ID, pos.CustomerInput{Mode: pos.ModeQuickSale, Name: "Vikram Das", Phone: "9000011111"})
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, sess.ID)
	require.NoError(t, err)

	require.Len(t, f.backend.createdStudents, 1)
	created := f.backend.createdStudents[0]
	require.Equal(t, "QS-000123", created.RollNumber)
	require.Equal(t, "Quick Sales", created.Class)
	require.Equal(t, "N/A", created.Section)
	require.Equal(t, "9000011111", created.Contact.Phone)

	payload := f.backend.createdInvoices[0]
	require.Equal(t, "new-1", payload.Student)
	require.Empty(t, payload.School)
	require.Equal(t, []string{events.TopicCustomerCreated, events.TopicInvoiceCreated}, f.emitter.topics)
}

func TestSubmitQuickSaleReusesWalkIn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess, err := f.svc.Create(ctx)
	require.NoError(t, err)

	_, err = f.svc.AddItem(ctx, sess.ID, "p1")
	require.NoError(t, err)
	_, err = f.svc.SetCustomer(ctx, sess.ID, pos.CustomerInput{Mode: pos.ModeQuickSale, Name: "ANITA rao", Phone: "9876543210"})
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, sess.ID)
	require.NoError(t, err)
	require.Empty(t, f.backend.createdStudents)
	require.Equal(t, "w1", f.backend.createdInvoices[0].Student)
}

func TestFailedSubmitPreservesState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess, err := f.svc.Create(ctx)
	require.NoError(t, err)

	_, err = f.svc.AddItem(ctx, sess.ID, "p1")
	require.NoError(t, err)
	_, err = f.svc.SetCustomer(ctx, sess.ID, pos.CustomerInput{Mode: pos.ModeQuickSale, Name: "Vikram Das", Phone: "9000011111"})
	require.NoError(t, err)

	f.backend.invoiceErr = fmt.Errorf("%w: connection refused", backoffice.ErrUnavailable)
	_, err = f.svc.Submit(ctx, sess.ID)
	require.ErrorIs(t, err, backoffice.ErrUnavailable)

	kept, err := f.svc.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, 1, kept.Cart.Len())
	require.Equal(t, "new-1", kept.Customer.WalkInID)

	f.backend.invoiceErr = nil
	_, err = f.svc.Submit(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, f.backend.createdStudents, 1)
	require.Equal(t, "new-1", f.backend.createdInvoices[0].Student)
}

func TestGSTFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess, err := f.svc.Create(ctx)
	require.NoError(t, err)

	_, err = f.svc.AddItem(ctx, sess.ID, "p1")
	require.NoError(t, err)
	_, err = f.svc.SetCustomer(ctx, sess.ID, pos.CustomerInput{Mode: pos.ModeStudent, StudentID: "s1"})
	require.NoError(t, err)

	_, err = f.svc.SetGST(ctx, sess.ID, pos.GSTInput{Enabled: true, Number: "bad"})
	require.True(t, common.IsAppError(err))

	_, err = f.svc.SetGST(ctx, sess.ID, pos.GSTInput{Enabled: true, Number: "29ABCDE1234F1Z5"})
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, sess.ID)
	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, "GST_NOT_VERIFIED", appErr.Code)
	require.Equal(t, "GSTIN not found", appErr.Message)
	require.Empty(t, f.backend.createdInvoices)

	_, err = f.svc.SetGST(ctx, sess.ID, pos.GSTInput{Enabled: true, Number: "27aapfu0939f1zv"})
	require.NoError(t, err)
	sess, err = f.svc.VerifyGST(ctx, sess.ID)
	require.NoError(t, err)
	require.True(t, sess.GST.Verified)
	require.Equal(t, "Unique Traders", sess.GST.Business.LegalName)

	lookups := f.backend.gstLookups
	_, err = f.svc.Submit(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, lookups, f.backend.gstLookups)

	payload := f.backend.createdInvoices[0]
	require.True(t, payload.IsGSTInvoice)
	require.Equal(t, "27AAPFU0939F1ZV", payload.GSTNumber)
	require.Equal(t, "Unique Traders", payload.BusinessInfo.LegalName)
}

func TestEditInvoice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess, err := f.svc.Create(ctx)
	require.NoError(t, err)

	_, err = f.svc.EditInvoice(ctx, sess.ID, "inv-paid")
	require.ErrorIs(t, err, pos.ErrInvoicePaid)

	sess, err = f.svc.EditInvoice(ctx, sess.ID, "inv-open")
	require.NoError(t, err)
	require.Equal(t, "INV-0042", sess.Editing.InvoiceNumber)
	requireDec(t, "10", sess.DiscountPercent)
	line, ok := sess.Cart.Find("p1")
	require.True(t, ok)
	require.Equal(t, 8, line.Quantity)
	require.Equal(t, 8, line.AvailableStock)
	require.Equal(t, "Notebook", line.ProductName)
	require.Equal(t, pos.ModeStudent, sess.Customer.Mode)
	require.Equal(t, "sch-1", sess.Customer.Student.SchoolID)
	require.Equal(t, pos.Payment{Method: "upi", Status: "unpaid"}, sess.Payment)

	_, err = f.svc.UpdateQuantity(ctx, sess.ID, "p1", -3)
	require.NoError(t, err)
	res, err := f.svc.Submit(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, "updated", res.Action)
	require.Empty(t, f.backend.createdInvoices)

	payload := f.backend.updatedInvoices["inv-open"]
	require.Equal(t, []backoffice.InvoiceLine{{Product: "p1", Quantity: 5}}, payload.Items)
	require.Equal(t, 50.0, payload.Discount)
	require.Nil(t, res.Session.Editing)
	require.Equal(t, []string{events.TopicInvoiceUpdated}, f.emitter.topics)
}

func TestEditQuickSaleInvoice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess, err := f.svc.Create(ctx)
	require.NoError(t, err)

	sess, err = f.svc.EditInvoice(ctx, sess.ID, "inv-walkin")
	require.NoError(t, err)
	require.Equal(t, pos.ModeQuickSale, sess.Customer.Mode)
	require.Equal(t, "w1", sess.Customer.WalkInID)
	require.True(t, sess.DiscountPercent.IsZero())
	line, _ := sess.Cart.Find("p1")
	require.Equal(t, 5, line.AvailableStock)

	sess, err = f.svc.CancelEdit(ctx, sess.ID)
	require.NoError(t, err)
	require.Nil(t, sess.Editing)
	require.True(t, sess.Cart.IsEmpty())
}

func TestEditInvoiceWithRetiredProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess, err := f.svc.Create(ctx)
	require.NoError(t, err)

	sess, err = f.svc.EditInvoice(ctx, sess.ID, "inv-retired")
	require.NoError(t, err)
	line, ok := sess.Cart.Find("p-gone")
	require.True(t, ok)
	require.Equal(t, 2, line.Quantity)
	require.Equal(t, 100, line.AvailableStock)
	requireDec(t, "40", line.UnitPrice)
}

func TestSelectWalkInAsQuickSaleCustomer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess, err := f.svc.Create(ctx)
	require.NoError(t, err)

	sess, err = f.svc.SetCustomer(ctx, sess.ID, pos.CustomerInput{Mode: pos.ModeQuickSale, StudentID: "w1"})
	require.NoError(t, err)
	require.Equal(t, "Anita Rao", sess.Customer.WalkInName)
	require.False(t, sess.Commission().Valid)

	_, err = f.svc.SetCustomer(ctx, sess.ID, pos.CustomerInput{Mode: pos.ModeStudent, StudentID: "w1"})
	require.ErrorIs(t, err, pos.ErrStudentNotFound)
	_, err = f.svc.SetCustomer(ctx, sess.ID, pos.CustomerInput{Mode: pos.ModeQuickSale, StudentID: "s1"})
	require.ErrorIs(t, err, pos.ErrStudentNotFound)
}

func TestSessionsAreScopedToOperator(t *testing.T) {
	f := newFixture(t)
	owner := common.WithOperatorID(context.Background(), "op-1")
	sess, err := f.svc.Create(owner)
	require.NoError(t, err)

	_, err = f.svc.Get(common.WithOperatorID(context.Background(), "op-2"), sess.ID)
	require.ErrorIs(t, err, pos.ErrSessionNotFound)

	require.NoError(t, f.svc.Delete(owner, sess.ID))
	_, err = f.svc.Get(owner, sess.ID)
	require.ErrorIs(t, err, pos.ErrSessionNotFound)
}

func TestConcurrentAddsAreSerialized(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess, err := f.svc.Create(ctx)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.svc.AddItem(ctx, sess.ID, "p1")
		}()
	}
	wg.Wait()

	got, err := f.svc.Get(ctx, sess.ID)
	require.NoError(t, err)
	line, ok := got.Cart.Find("p1")
	require.True(t, ok)
	require.Equal(t, 5, line.Quantity)
}

func TestQuickSaleRollNumber(t *testing.T) {
	require.Equal(t, "QS-000123", pos.QuickSaleRollNumber(fixedNow))
	require.Equal(t, "QS-999999", pos.QuickSaleRollNumber(time.UnixMilli(42999999)))
}
