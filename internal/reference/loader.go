// Package reference loads the lookup data the POS works against (products,
// students and schools) and answers searches over it.
package reference

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/stationery-pos/internal/backoffice"
	"github.com/noah-isme/stationery-pos/internal/obs"
)

const (
	keyProducts = "products"
	keyStudents = "students"
	keySchools  = "schools"
)

// Source is the slice of the backend client the loader reads from.
type Source interface {
	ListProducts(ctx context.Context) ([]backoffice.Product, error)
	ListStudents(ctx context.Context) ([]backoffice.Student, error)
	ListSchools(ctx context.Context) ([]backoffice.School, error)
}

// Loader fetches reference data, preferring the shared cache.
type Loader struct {
	Cache *Cache
}

// LoadAll fetches products, students and schools concurrently. Any failure
// fails the whole load.
func (l *Loader) LoadAll(ctx context.Context, src Source) (*Data, error) {
	var (
		products []backoffice.Product
		students []backoffice.Student
		schools  []backoffice.School
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		products, err = load(gctx, l.Cache, keyProducts, src.ListProducts)
		return err
	})
	g.Go(func() (err error) {
		students, err = load(gctx, l.Cache, keyStudents, src.ListStudents)
		return err
	})
	g.Go(func() (err error) {
		schools, err = load(gctx, l.Cache, keySchools, src.ListSchools)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return NewData(products, students, schools), nil
}

// Products loads only the product list.
func (l *Loader) Products(ctx context.Context, src Source) ([]backoffice.Product, error) {
	return load(ctx, l.Cache, keyProducts, src.ListProducts)
}

// Students loads only the student list.
func (l *Loader) Students(ctx context.Context, src Source) ([]backoffice.Student, error) {
	return load(ctx, l.Cache, keyStudents, src.ListStudents)
}

// Schools loads only the school list.
func (l *Loader) Schools(ctx context.Context, src Source) ([]backoffice.School, error) {
	return load(ctx, l.Cache, keySchools, src.ListSchools)
}

// InvalidateProducts drops cached products so the next load sees fresh stock.
func (l *Loader) InvalidateProducts(ctx context.Context) error {
	return l.Cache.Drop(ctx, keyProducts)
}

// InvalidateStudents drops cached students, used after a walk-in is created.
func (l *Loader) InvalidateStudents(ctx context.Context) error {
	return l.Cache.Drop(ctx, keyStudents)
}

// InvalidateSchools drops cached schools after one is registered.
func (l *Loader) InvalidateSchools(ctx context.Context) error {
	return l.Cache.Drop(ctx, keySchools)
}

func load[T any](ctx context.Context, cache *Cache, key string, fetch func(context.Context) ([]T, error)) ([]T, error) {
	var cached []T
	ok, err := cache.Lookup(ctx, key, &cached)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("dataset", key).Msg("reference cache read failed")
	}
	if ok {
		obs.Count(obs.ReferenceLoads, key, "cache")
		return cached, nil
	}
	items, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	obs.Count(obs.ReferenceLoads, key, "upstream")
	if err := cache.Store(ctx, key, items); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("dataset", key).Msg("reference cache write failed")
	}
	return items, nil
}
