package commission

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/stationery-pos/internal/backoffice"
	"github.com/noah-isme/stationery-pos/internal/common"
	"github.com/noah-isme/stationery-pos/internal/events"
)

var (
	ErrNotFound       = errors.New("commission: not found")
	ErrAlreadySettled = errors.New("commission: already settled")
)

// Source is the slice of the backend client commissions need.
type Source interface {
	ListSchools(ctx context.Context) ([]backoffice.School, error)
	ListCommissions(ctx context.Context) ([]backoffice.Commission, error)
	SettleCommission(ctx context.Context, id string, in backoffice.SettleRequest) (backoffice.Commission, error)
}

// Emitter publishes domain events.
type Emitter interface {
	Emit(ctx context.Context, topic, aggregateID string, payload any) error
}

// SettleInput records how a commission was paid out.
type SettleInput struct {
	SettledDate string `json:"settledDate" validate:"required,datetime=2006-01-02"`
	Reference   string `json:"reference"`
}

// Service settles commissions.
type Service struct {
	Events Emitter
}

// Settle marks a pending commission as settled.
func (s *Service) Settle(ctx context.Context, src Source, id string, in SettleInput) (backoffice.Commission, error) {
	in.SettledDate = strings.TrimSpace(in.SettledDate)
	in.Reference = strings.TrimSpace(in.Reference)
	if err := common.ValidateStruct(in); err != nil {
		return backoffice.Commission{}, err
	}
	list, err := src.ListCommissions(ctx)
	if err != nil {
		return backoffice.Commission{}, err
	}
	var current *backoffice.Commission
	for i := range list {
		if list[i].ID == id {
			current = &list[i]
			break
		}
	}
	if current == nil {
		return backoffice.Commission{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if current.Status == StatusSettled {
		return backoffice.Commission{}, fmt.Errorf("%w: %s", ErrAlreadySettled, id)
	}

	settled, err := src.SettleCommission(ctx, id, backoffice.SettleRequest{
		SettledDate: in.SettledDate,
		Reference:   in.Reference,
		Status:      StatusSettled,
	})
	if err != nil {
		return backoffice.Commission{}, err
	}
	if s.Events != nil {
		payload := map[string]any{
			"commissionId": id,
			"schoolId":     current.School.ID,
			"month":        current.Month,
			"amount":       backoffice.Money(current.CommissionAmount),
			"settledDate":  in.SettledDate,
			"reference":    in.Reference,
		}
		if err := s.Events.Emit(ctx, events.TopicCommissionSettled, id, payload); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("commission_id", id).Msg("emit commission settled")
		}
	}
	return settled, nil
}
