package reference_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/stationery-pos/internal/backoffice"
	"github.com/noah-isme/stationery-pos/internal/reference"
)

type fakeSource struct {
	productCalls atomic.Int32
	studentErr   error
}

func (f *fakeSource) ListProducts(context.Context) ([]backoffice.Product, error) {
	f.productCalls.Add(1)
	return []backoffice.Product{
		{ID: "p1", Name: "Ruled Notebook", SKU: "NB-100", SellingPrice: 45, GSTRate: 12, Stock: 30, IsActive: true},
		{ID: "p2", Name: "Geometry Box", SKU: "GB-200", SellingPrice: 120, GSTRate: 18, Stock: 0, IsActive: true},
		{ID: "p3", Name: "Old Notebook", SKU: "NB-001", SellingPrice: 20, Stock: 5, IsActive: false},
	}, nil
}

func (f *fakeSource) ListStudents(context.Context) ([]backoffice.Student, error) {
	if f.studentErr != nil {
		return nil, f.studentErr
	}
	return []backoffice.Student{
		{ID: "s1", Name: "Riya Sharma", RollNumber: "R-12", Class: "5", School: backoffice.RefTo[backoffice.School]("sch-1")},
		{ID: "s2", Name: "Kabir Khan", RollNumber: "R-40", Class: "7", School: backoffice.RefTo[backoffice.School]("sch-2")},
		{ID: "w1", Name: "Anita Rao", RollNumber: "QS-123456", Class: "Quick Sales", Contact: backoffice.Contact{Phone: "9876543210"}},
		{ID: "w2", Name: "Old Walkin", RollNumber: "WK-1", Class: "Walk-in", Contact: backoffice.Contact{Phone: "9000000000"}},
	}, nil
}

func (f *fakeSource) ListSchools(context.Context) ([]backoffice.School, error) {
	return []backoffice.School{
		{ID: "sch-1", Name: "Green Valley", CommissionRate: 5},
		{ID: "sch-2", Name: "Hill Top", CommissionRate: 7.5},
	}, nil
}

func newLoader(t *testing.T) *reference.Loader {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return &reference.Loader{Cache: reference.NewCache(client, time.Minute)}
}

func TestLoadAllUsesCache(t *testing.T) {
	loader := newLoader(t)
	src := &fakeSource{}
	ctx := context.Background()

	data, err := loader.LoadAll(ctx, src)
	require.NoError(t, err)
	require.Len(t, data.Products, 3)
	require.Len(t, data.Students, 4)
	require.Len(t, data.Schools, 2)

	_, err = loader.LoadAll(ctx, src)
	require.NoError(t, err)
	require.EqualValues(t, 1, src.productCalls.Load())

	require.NoError(t, loader.InvalidateProducts(ctx))
	data, err = loader.LoadAll(ctx, src)
	require.NoError(t, err)
	require.EqualValues(t, 2, src.productCalls.Load())

	school, ok := data.StudentSchool(data.Students[0])
	require.True(t, ok)
	require.Equal(t, "Green Valley", school.Name)
}

func TestLoadAllFailsAsAWhole(t *testing.T) {
	loader := newLoader(t)
	boom := errors.New("students down")

	data, err := loader.LoadAll(context.Background(), &fakeSource{studentErr: boom})
	require.ErrorIs(t, err, boom)
	require.Nil(t, data)
}

func TestLoaderWithoutCache(t *testing.T) {
	loader := &reference.Loader{}
	src := &fakeSource{}
	_, err := loader.LoadAll(context.Background(), src)
	require.NoError(t, err)
	_, err = loader.LoadAll(context.Background(), src)
	require.NoError(t, err)
	require.EqualValues(t, 2, src.productCalls.Load())
	require.NoError(t, loader.InvalidateProducts(context.Background()))
}

func loadData(t *testing.T) *reference.Data {
	t.Helper()
	data, err := (&reference.Loader{}).LoadAll(context.Background(), &fakeSource{})
	require.NoError(t, err)
	return data
}

func TestSearchProducts(t *testing.T) {
	data := loadData(t)

	require.Empty(t, data.SearchProducts("n"))
	hits := data.SearchProducts("note")
	require.Len(t, hits, 1)
	require.Equal(t, "p1", hits[0].ID)

	hits = data.SearchProducts("gb-2")
	require.Len(t, hits, 1)
	require.Equal(t, "p2", hits[0].ID)

	require.Len(t, data.ActiveProducts(), 2)
}

func TestSearchStudentsExcludesWalkIns(t *testing.T) {
	data := loadData(t)

	require.Len(t, data.SearchStudents("", ""), 2)
	hits := data.SearchStudents("", "sch-2")
	require.Len(t, hits, 1)
	require.Equal(t, "s2", hits[0].ID)

	hits = data.SearchStudents("r-12", "")
	require.Len(t, hits, 1)
	require.Equal(t, "s1", hits[0].ID)

	walkIns := data.SearchWalkIns("98765")
	require.Len(t, walkIns, 1)
	require.Equal(t, "w1", walkIns[0].ID)
	require.Len(t, data.SearchWalkIns(""), 2)
}

func TestFindWalkIn(t *testing.T) {
	data := loadData(t)

	s, ok := data.FindWalkIn("  anita RAO ", "9876543210")
	require.True(t, ok)
	require.Equal(t, "w1", s.ID)

	_, ok = data.FindWalkIn("Anita Rao", "1111111111")
	require.False(t, ok)

	_, ok = data.FindWalkIn("Riya Sharma", "")
	require.False(t, ok)

	s, ok = data.FindWalkIn("old walkin", "9000000000")
	require.True(t, ok)
	require.Equal(t, "w2", s.ID)
}

func TestCartProductConversion(t *testing.T) {
	data := loadData(t)
	p, ok := data.Product("p1")
	require.True(t, ok)

	cp := reference.CartProduct(p)
	require.Equal(t, "NB-100", cp.Code)
	require.Equal(t, "45", cp.SellingPrice.String())
	require.Equal(t, "12", cp.TaxRate.String())
	require.Equal(t, 30, cp.CurrentStock)

	school, ok := data.School("sch-2")
	require.True(t, ok)
	require.Equal(t, "7.5", reference.CommissionRate(school).String())
}
