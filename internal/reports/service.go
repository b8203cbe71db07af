package reports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Periods accepted by the sales report.
var Periods = []string{"daily", "weekly", "monthly", "yearly"}

// DefaultPeriod is used when no period is requested.
const DefaultPeriod = "monthly"

// ErrInvalidPeriod is returned for a period outside Periods.
var ErrInvalidPeriod = errors.New("reports: invalid period")

// Source is the slice of the backend client the reports read from.
type Source interface {
	SalesReport(ctx context.Context, period string) (json.RawMessage, error)
	SchoolPerformance(ctx context.Context) (json.RawMessage, error)
	InventoryValuation(ctx context.Context) (json.RawMessage, error)
}

// Service provides cached access to the backend reports.
type Service struct {
	R   *redis.Client
	TTL time.Duration
}

func cacheKey(parts ...any) string {
	formatted := make([]string, 0, len(parts))
	for _, part := range parts {
		formatted = append(formatted, fmt.Sprint(part))
	}
	return strings.Join(formatted, ":")
}

// NormalizePeriod lower-cases period, defaults it and checks it is known.
func NormalizePeriod(period string) (string, error) {
	period = strings.ToLower(strings.TrimSpace(period))
	if period == "" {
		return DefaultPeriod, nil
	}
	if !slices.Contains(Periods, period) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, period)
	}
	return period, nil
}

// Sales returns the sales report for period.
func (s *Service) Sales(ctx context.Context, src Source, period string) (json.RawMessage, error) {
	period, err := NormalizePeriod(period)
	if err != nil {
		return nil, err
	}
	return s.cached(ctx, cacheKey("rp", "sales", period), func(ctx context.Context) (json.RawMessage, error) {
		return src.SalesReport(ctx, period)
	})
}

// SchoolPerformance returns revenue and commission per school.
func (s *Service) SchoolPerformance(ctx context.Context, src Source) (json.RawMessage, error) {
	return s.cached(ctx, cacheKey("rp", "schools"), src.SchoolPerformance)
}

// InventoryValuation returns the stock valuation report.
func (s *Service) InventoryValuation(ctx context.Context, src Source) (json.RawMessage, error) {
	return s.cached(ctx, cacheKey("rp", "inventory"), src.InventoryValuation)
}

// Invalidate drops every cached report, used after invoices and purchases change.
func (s *Service) Invalidate(ctx context.Context) error {
	if s == nil || s.R == nil {
		return nil
	}
	keys := []string{cacheKey("rp", "schools"), cacheKey("rp", "inventory")}
	for _, p := range Periods {
		keys = append(keys, cacheKey("rp", "sales", p))
	}
	return s.R.Del(ctx, keys...).Err()
}

func (s *Service) cached(ctx context.Context, key string, fetch func(context.Context) (json.RawMessage, error)) (json.RawMessage, error) {
	if data, ok := s.load(ctx, key); ok {
		return data, nil
	}
	data, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, data)
	return data, nil
}

func (s *Service) load(ctx context.Context, key string) (json.RawMessage, bool) {
	if s == nil || s.R == nil || s.TTL <= 0 {
		return nil, false
	}
	data, err := s.R.Get(ctx, key).Bytes()
	if err != nil || !json.Valid(data) {
		return nil, false
	}
	return json.RawMessage(data), true
}

func (s *Service) store(ctx context.Context, key string, value json.RawMessage) {
	if s == nil || s.R == nil || s.TTL <= 0 || len(value) == 0 {
		return
	}
	_ = s.R.Set(ctx, key, []byte(value), s.TTL).Err()
}
