package purchase

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/stationery-pos/internal/backoffice"
	"github.com/noah-isme/stationery-pos/internal/common"
	"github.com/noah-isme/stationery-pos/internal/events"
	"github.com/noah-isme/stationery-pos/internal/reference"
)

// Source is the slice of the backend client purchasing needs.
type Source interface {
	reference.Source
	ListSuppliers(ctx context.Context) ([]backoffice.Supplier, error)
	ListPurchases(ctx context.Context) ([]backoffice.Purchase, error)
	CreatePurchase(ctx context.Context, in backoffice.NewPurchase) (backoffice.Purchase, error)
	UpdatePurchaseStatus(ctx context.Context, id, status string) (backoffice.Purchase, error)
}

// Emitter publishes domain events.
type Emitter interface {
	Emit(ctx context.Context, topic, aggregateID string, payload any) error
}

// Service creates purchase orders and updates their payment status.
type Service struct {
	Loader *reference.Loader
	Events Emitter
}

// List returns purchases with supplier names.
func (s *Service) List(ctx context.Context, src Source) ([]Row, error) {
	list, err := src.ListPurchases(ctx)
	if err != nil {
		return nil, err
	}
	suppliers, err := src.ListSuppliers(ctx)
	if err != nil {
		return nil, err
	}
	return Rows(list, suppliers), nil
}

// Create validates and prices d, then sends it upstream.
func (s *Service) Create(ctx context.Context, src Source, d Draft) (backoffice.Purchase, error) {
	if err := common.ValidateStruct(d); err != nil {
		return backoffice.Purchase{}, err
	}
	products, err := s.loader().Products(ctx, src)
	if err != nil {
		return backoffice.Purchase{}, err
	}
	payload, err := Build(d, reference.NewData(products, nil, nil))
	if err != nil {
		return backoffice.Purchase{}, err
	}
	created, err := src.CreatePurchase(ctx, payload)
	if err != nil {
		return backoffice.Purchase{}, err
	}
	s.emit(ctx, events.TopicPurchaseCreated, created.ID, map[string]any{
		"purchaseId":     created.ID,
		"purchaseNumber": created.PurchaseNumber,
		"supplierId":     payload.Supplier,
		"totalAmount":    payload.TotalAmount,
		"productIds":     productIDs(payload),
	})
	return created, nil
}

// UpdateStatus sets the payment status of a purchase.
func (s *Service) UpdateStatus(ctx context.Context, src Source, id, status string) (backoffice.Purchase, error) {
	status = strings.TrimSpace(status)
	if status != StatusPending && status != StatusPaid {
		return backoffice.Purchase{}, common.ValidationError("validation failed", map[string]string{"paymentStatus": "must be one of pending paid"})
	}
	updated, err := src.UpdatePurchaseStatus(ctx, id, status)
	if err != nil {
		return backoffice.Purchase{}, err
	}
	s.emit(ctx, events.TopicPurchaseUpdated, id, map[string]any{"purchaseId": id, "paymentStatus": status})
	return updated, nil
}

func (s *Service) loader() *reference.Loader {
	if s.Loader == nil {
		return &reference.Loader{}
	}
	return s.Loader
}

func (s *Service) emit(ctx context.Context, topic, id string, payload any) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Emit(ctx, topic, id, payload); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("topic", topic).Msg("emit event")
	}
}

func productIDs(p backoffice.NewPurchase) []string {
	ids := make([]string, 0, len(p.Items))
	for _, it := range p.Items {
		ids = append(ids, it.Product)
	}
	return ids
}
