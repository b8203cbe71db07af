package backoffice

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/noah-isme/stationery-pos/internal/obs"
)

// RequestInfo describes one backend call. Duration, StatusCode and Err are
// only set when the call finished.
type RequestInfo struct {
	ID         uint64
	Operation  string
	Method     string
	Path       string
	StartedAt  time.Time
	Duration   time.Duration
	StatusCode int
	Err        error
}

// Observer is notified around every backend call. Implementations must not block.
type Observer interface {
	RequestStarted(ctx context.Context, info RequestInfo)
	RequestFinished(ctx context.Context, info RequestInfo)
}

// LoadingTracker counts in-flight backend calls and tells subscribers when
// the client goes busy or idle.
type LoadingTracker struct {
	mu       sync.Mutex
	inFlight int
	nextID   uint64
	subs     map[uint64]func(loading bool)
}

// NewLoadingTracker returns an idle tracker.
func NewLoadingTracker() *LoadingTracker {
	return &LoadingTracker{subs: make(map[uint64]func(bool))}
}

// Subscribe registers fn for busy/idle transitions and returns the function
// that removes it.
func (t *LoadingTracker) Subscribe(fn func(loading bool)) (unsubscribe func()) {
	t.mu.Lock()
	t.nextID++
	id := t.nextID
	t.subs[id] = fn
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.subs, id)
			t.mu.Unlock()
		})
	}
}

// Loading reports whether any call is in flight.
func (t *LoadingTracker) Loading() bool {
	return t.InFlight() > 0
}

// InFlight returns the number of calls currently in flight.
func (t *LoadingTracker) InFlight() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inFlight
}

func (t *LoadingTracker) RequestStarted(context.Context, RequestInfo) {
	t.mu.Lock()
	t.inFlight++
	busy := t.inFlight == 1
	subs := t.snapshot()
	t.mu.Unlock()
	if busy {
		notify(subs, true)
	}
}

func (t *LoadingTracker) RequestFinished(context.Context, RequestInfo) {
	t.mu.Lock()
	if t.inFlight > 0 {
		t.inFlight--
	}
	idle := t.inFlight == 0
	subs := t.snapshot()
	t.mu.Unlock()
	if idle {
		notify(subs, false)
	}
}

func (t *LoadingTracker) snapshot() []func(bool) {
	out := make([]func(bool), 0, len(t.subs))
	for _, fn := range t.subs {
		out = append(out, fn)
	}
	return out
}

func notify(subs []func(bool), loading bool) {
	for _, fn := range subs {
		fn(loading)
	}
}

// MetricsObserver records call outcomes on the Prometheus domain collectors
// and keeps an OpenTelemetry in-flight gauge.
type MetricsObserver struct {
	inFlight metric.Int64UpDownCounter
}

// NewMetricsObserver creates the in-flight instrument on meter.
func NewMetricsObserver(meter metric.Meter) (*MetricsObserver, error) {
	counter, err := meter.Int64UpDownCounter("backoffice.requests.in_flight",
		metric.WithDescription("Back-office backend calls currently in flight."))
	if err != nil {
		return nil, err
	}
	return &MetricsObserver{inFlight: counter}, nil
}

func (m *MetricsObserver) RequestStarted(ctx context.Context, info RequestInfo) {
	m.inFlight.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", info.Operation)))
}

func (m *MetricsObserver) RequestFinished(ctx context.Context, info RequestInfo) {
	m.inFlight.Add(ctx, -1, metric.WithAttributes(attribute.String("operation", info.Operation)))
	obs.Count(obs.UpstreamRequests, info.Operation, resultLabel(info.Err))
	if obs.UpstreamLatency != nil {
		obs.UpstreamLatency.WithLabelValues(info.Operation).Observe(obs.DurationMillis(info.Duration))
	}
}

// LogObserver writes one debug line per finished call and a warning for failures.
type LogObserver struct{}

func (LogObserver) RequestStarted(context.Context, RequestInfo) {}

func (LogObserver) RequestFinished(ctx context.Context, info RequestInfo) {
	logger := zerolog.Ctx(ctx)
	event := logger.Debug()
	if info.Err != nil && !errors.Is(info.Err, context.Canceled) {
		event = logger.Warn().Err(info.Err)
	}
	event.
		Uint64("call_id", info.ID).
		Str("operation", info.Operation).
		Str("method", info.Method).
		Str("path", info.Path).
		Int("status", info.StatusCode).
		Dur("duration", info.Duration).
		Msg("backoffice_call")
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	case errors.Is(err, ErrInvalidResponse):
		return "invalid"
	case StatusCode(err) >= 500:
		return "upstream_error"
	case StatusCode(err) > 0:
		return "rejected"
	default:
		return "error"
	}
}
