package inventory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/stationery-pos/internal/backoffice"
	"github.com/noah-isme/stationery-pos/internal/reference"
)

func catalog() []backoffice.Product {
	return []backoffice.Product{
		{ID: "p1", Name: "Notebook", SKU: "NB-1", BasePrice: 40, Stock: 30, MinStockLevel: 10, IsActive: true},
		{ID: "p2", Name: "Pencil Box", SKU: "PB-1", BasePrice: 25.5, Stock: 4, MinStockLevel: 5, IsActive: true},
		{ID: "p3", Name: "Geometry Set", SKU: "GS-1", BasePrice: 90, Stock: 0, MinStockLevel: 2, IsActive: true},
		{ID: "p4", Name: "Old Slate", SKU: "OS-1", BasePrice: 15, Stock: 100, MinStockLevel: 0, IsActive: false},
	}
}

func TestClassify(t *testing.T) {
	p := catalog()
	require.Equal(t, StatusOK, Classify(p[0]))
	require.Equal(t, StatusLow, Classify(p[1]))
	require.Equal(t, StatusOut, Classify(p[2]))
	require.Equal(t, StatusLow, Classify(backoffice.Product{Stock: 5, MinStockLevel: 5}))
}

func TestStockPercent(t *testing.T) {
	p := catalog()
	require.Equal(t, "100", StockPercent(p[0]).String())
	require.Equal(t, "26.7", StockPercent(p[1]).String())
	require.Equal(t, "0", StockPercent(p[2]).String())
	require.Equal(t, "100", StockPercent(p[3]).String())
}

func TestSummarize(t *testing.T) {
	sum := Summarize(catalog())
	require.Equal(t, 3, sum.Active)
	require.Equal(t, 34, sum.TotalStock)
	require.Equal(t, 2, sum.Low)
	require.Equal(t, 1, sum.Out)
	require.True(t, decimal.RequireFromString("1302").Equal(sum.StockValue))
}

func TestFilter(t *testing.T) {
	ids := func(items []Item) []string {
		out := make([]string, 0, len(items))
		for _, it := range items {
			out = append(out, it.ID)
		}
		return out
	}
	require.Equal(t, []string{"p2"}, ids(Filter(catalog(), "low", "")))
	require.Equal(t, []string{"p3"}, ids(Filter(catalog(), "out", "")))
	require.Equal(t, []string{"p1", "p4"}, ids(Filter(catalog(), "ok", "")))
	require.Equal(t, []string{"p2"}, ids(Filter(catalog(), "all", "pb-")))
	require.Len(t, Filter(catalog(), "", ""), 4)
}

type productSource struct{}

func (productSource) ListProducts(context.Context) ([]backoffice.Product, error) {
	return catalog(), nil
}
func (productSource) ListStudents(context.Context) ([]backoffice.Student, error) { return nil, nil }
func (productSource) ListSchools(context.Context) ([]backoffice.School, error)   { return nil, nil }

func TestHandlerList(t *testing.T) {
	h := NewHandler(nil, func(context.Context) reference.Source { return productSource{} })

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/inventory?status=out", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"id":"p3"`)
	require.Contains(t, rec.Body.String(), `"stockValue":"1302"`)

	rec = httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/inventory?status=bogus", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
