package catalog

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/stationery-pos/internal/backoffice"
	"github.com/noah-isme/stationery-pos/internal/common"
	"github.com/noah-isme/stationery-pos/internal/events"
	"github.com/noah-isme/stationery-pos/internal/reference"
)

// Source is the slice of the backend client master data needs.
type Source interface {
	reference.Source
	ListCategories(ctx context.Context) ([]backoffice.Category, error)
	ListSuppliers(ctx context.Context) ([]backoffice.Supplier, error)
	CreateProduct(ctx context.Context, in backoffice.NewProduct) (backoffice.Product, error)
	UpdateProduct(ctx context.Context, id string, in backoffice.NewProduct) (backoffice.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	CreateCategory(ctx context.Context, in backoffice.NewCategory) (backoffice.Category, error)
	UpdateCategory(ctx context.Context, id string, in backoffice.NewCategory) (backoffice.Category, error)
	DeleteCategory(ctx context.Context, id string) error
	CreateSupplier(ctx context.Context, in backoffice.NewSupplier) (backoffice.Supplier, error)
	UpdateSupplier(ctx context.Context, id string, in backoffice.NewSupplier) (backoffice.Supplier, error)
	DeleteSupplier(ctx context.Context, id string) error
	CreateSchool(ctx context.Context, in backoffice.NewSchool) (backoffice.School, error)
}

// Emitter publishes domain events.
type Emitter interface {
	Emit(ctx context.Context, topic, aggregateID string, payload any) error
}

// Service edits master data upstream and keeps the reference cache in step.
type Service struct {
	Loader *reference.Loader
	Events Emitter
}

const (
	actionCreated = "created"
	actionUpdated = "updated"
	actionDeleted = "deleted"
)

// known loads products, categories and suppliers concurrently.
func (s *Service) known(ctx context.Context, src Source) (Known, error) {
	var k Known
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		k.Products, err = s.loader().Products(gctx, src)
		return err
	})
	g.Go(func() (err error) {
		k.Categories, err = src.ListCategories(gctx)
		return err
	})
	g.Go(func() (err error) {
		k.Suppliers, err = src.ListSuppliers(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Known{}, err
	}
	return k, nil
}

// Products lists every product with its category and supplier names.
func (s *Service) Products(ctx context.Context, src Source) ([]ProductRow, error) {
	k, err := s.known(ctx, src)
	if err != nil {
		return nil, err
	}
	return ProductRows(k), nil
}

// Categories lists categories with their product counts.
func (s *Service) Categories(ctx context.Context, src Source) ([]backoffice.Category, error) {
	k, err := s.known(ctx, src)
	if err != nil {
		return nil, err
	}
	return CountProducts(k), nil
}

func (s *Service) Suppliers(ctx context.Context, src Source) ([]backoffice.Supplier, error) {
	return src.ListSuppliers(ctx)
}

// Schools lists schools with their enrolled student counts.
func (s *Service) Schools(ctx context.Context, src Source) ([]SchoolRow, error) {
	data, err := s.loader().LoadAll(ctx, src)
	if err != nil {
		return nil, err
	}
	return SchoolRows(data), nil
}

// Students lists every student with the school name resolved.
func (s *Service) Students(ctx context.Context, src Source) ([]StudentRow, error) {
	data, err := s.loader().LoadAll(ctx, src)
	if err != nil {
		return nil, err
	}
	return StudentRows(data), nil
}

func (s *Service) CreateProduct(ctx context.Context, src Source, d ProductDraft) (backoffice.Product, error) {
	payload, err := s.productPayload(ctx, src, d, "")
	if err != nil {
		return backoffice.Product{}, err
	}
	created, err := src.CreateProduct(ctx, payload)
	if err != nil {
		return backoffice.Product{}, err
	}
	s.productChanged(ctx, created.ID, actionCreated, payload)
	return created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, src Source, id string, d ProductDraft) (backoffice.Product, error) {
	payload, err := s.productPayload(ctx, src, d, id)
	if err != nil {
		return backoffice.Product{}, err
	}
	updated, err := src.UpdateProduct(ctx, id, payload)
	if err != nil {
		return backoffice.Product{}, err
	}
	s.productChanged(ctx, id, actionUpdated, payload)
	return updated, nil
}

func (s *Service) DeleteProduct(ctx context.Context, src Source, id string) error {
	if err := src.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.productChanged(ctx, id, actionDeleted, backoffice.NewProduct{})
	return nil
}

func (s *Service) productPayload(ctx context.Context, src Source, d ProductDraft, id string) (backoffice.NewProduct, error) {
	if err := common.ValidateStruct(d); err != nil {
		return backoffice.NewProduct{}, err
	}
	k, err := s.known(ctx, src)
	if err != nil {
		return backoffice.NewProduct{}, err
	}
	return BuildProduct(d, k, id)
}

func (s *Service) productChanged(ctx context.Context, id, action string, p backoffice.NewProduct) {
	s.invalidateProducts(ctx)
	payload := map[string]any{"productId": id, "action": action}
	if action != actionDeleted {
		payload["sku"] = p.SKU
		payload["stock"] = p.Stock
		payload["isActive"] = p.IsActive
	}
	s.emit(ctx, events.TopicProductChanged, id, payload)
}

func (s *Service) CreateCategory(ctx context.Context, src Source, d CategoryDraft) (backoffice.Category, error) {
	payload, err := s.categoryPayload(ctx, src, d, "")
	if err != nil {
		return backoffice.Category{}, err
	}
	created, err := src.CreateCategory(ctx, payload)
	if err != nil {
		return backoffice.Category{}, err
	}
	s.emit(ctx, events.TopicCategoryChanged, created.ID, map[string]any{"categoryId": created.ID, "action": actionCreated, "name": payload.Name})
	return created, nil
}

// UpdateCategory renames or retires a category. Cached products embed the
// category name, so they are dropped too.
func (s *Service) UpdateCategory(ctx context.Context, src Source, id string, d CategoryDraft) (backoffice.Category, error) {
	payload, err := s.categoryPayload(ctx, src, d, id)
	if err != nil {
		return backoffice.Category{}, err
	}
	updated, err := src.UpdateCategory(ctx, id, payload)
	if err != nil {
		return backoffice.Category{}, err
	}
	s.invalidateProducts(ctx)
	s.emit(ctx, events.TopicCategoryChanged, id, map[string]any{"categoryId": id, "action": actionUpdated, "name": payload.Name})
	return updated, nil
}

// DeleteCategory refuses while any product still belongs to the category.
func (s *Service) DeleteCategory(ctx context.Context, src Source, id string) error {
	k, err := s.known(ctx, src)
	if err != nil {
		return err
	}
	if n := countWhere(k.Products, func(p backoffice.Product) bool { return p.Category.ID == id }); n > 0 {
		return &InUseError{Kind: "category", ID: id, Products: n}
	}
	if err := src.DeleteCategory(ctx, id); err != nil {
		return err
	}
	s.emit(ctx, events.TopicCategoryChanged, id, map[string]any{"categoryId": id, "action": actionDeleted})
	return nil
}

func (s *Service) categoryPayload(ctx context.Context, src Source, d CategoryDraft, id string) (backoffice.NewCategory, error) {
	if err := common.ValidateStruct(d); err != nil {
		return backoffice.NewCategory{}, err
	}
	categories, err := src.ListCategories(ctx)
	if err != nil {
		return backoffice.NewCategory{}, err
	}
	return BuildCategory(d, Known{Categories: categories}, id)
}

func (s *Service) CreateSupplier(ctx context.Context, src Source, d SupplierDraft) (backoffice.Supplier, error) {
	payload, err := s.supplierPayload(ctx, src, d, "")
	if err != nil {
		return backoffice.Supplier{}, err
	}
	created, err := src.CreateSupplier(ctx, payload)
	if err != nil {
		return backoffice.Supplier{}, err
	}
	s.emit(ctx, events.TopicSupplierChanged, created.ID, map[string]any{"supplierId": created.ID, "action": actionCreated, "code": payload.Code})
	return created, nil
}

func (s *Service) UpdateSupplier(ctx context.Context, src Source, id string, d SupplierDraft) (backoffice.Supplier, error) {
	payload, err := s.supplierPayload(ctx, src, d, id)
	if err != nil {
		return backoffice.Supplier{}, err
	}
	updated, err := src.UpdateSupplier(ctx, id, payload)
	if err != nil {
		return backoffice.Supplier{}, err
	}
	s.invalidateProducts(ctx)
	s.emit(ctx, events.TopicSupplierChanged, id, map[string]any{"supplierId": id, "action": actionUpdated, "code": payload.Code})
	return updated, nil
}

// DeleteSupplier refuses while any product is still sourced from the supplier.
func (s *Service) DeleteSupplier(ctx context.Context, src Source, id string) error {
	k, err := s.known(ctx, src)
	if err != nil {
		return err
	}
	if n := countWhere(k.Products, func(p backoffice.Product) bool { return p.Supplier.ID == id }); n > 0 {
		return &InUseError{Kind: "supplier", ID: id, Products: n}
	}
	if err := src.DeleteSupplier(ctx, id); err != nil {
		return err
	}
	s.emit(ctx, events.TopicSupplierChanged, id, map[string]any{"supplierId": id, "action": actionDeleted})
	return nil
}

func (s *Service) supplierPayload(ctx context.Context, src Source, d SupplierDraft, id string) (backoffice.NewSupplier, error) {
	if err := common.ValidateStruct(d); err != nil {
		return backoffice.NewSupplier{}, err
	}
	suppliers, err := src.ListSuppliers(ctx)
	if err != nil {
		return backoffice.NewSupplier{}, err
	}
	return BuildSupplier(d, Known{Suppliers: suppliers}, id)
}

func (s *Service) CreateSchool(ctx context.Context, src Source, d SchoolDraft) (backoffice.School, error) {
	if err := common.ValidateStruct(d); err != nil {
		return backoffice.School{}, err
	}
	schools, err := s.loader().Schools(ctx, src)
	if err != nil {
		return backoffice.School{}, err
	}
	payload, err := BuildSchool(d, Known{Schools: schools})
	if err != nil {
		return backoffice.School{}, err
	}
	created, err := src.CreateSchool(ctx, payload)
	if err != nil {
		return backoffice.School{}, err
	}
	if err := s.loader().InvalidateSchools(ctx); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("invalidate school cache")
	}
	s.emit(ctx, events.TopicSchoolCreated, created.ID, map[string]any{
		"schoolId":       created.ID,
		"code":           payload.Code,
		"commissionRate": payload.CommissionRate,
	})
	return created, nil
}

func (s *Service) loader() *reference.Loader {
	if s.Loader == nil {
		return &reference.Loader{}
	}
	return s.Loader
}

func (s *Service) invalidateProducts(ctx context.Context) {
	if err := s.loader().InvalidateProducts(ctx); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("invalidate product cache")
	}
}

func (s *Service) emit(ctx context.Context, topic, id string, payload any) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Emit(ctx, topic, id, payload); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("topic", topic).Msg("emit event")
	}
}

func countWhere[T any](items []T, match func(T) bool) int {
	n := 0
	for _, it := range items {
		if match(it) {
			n++
		}
	}
	return n
}
