// Package worker consumes queued domain events.
package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/stationery-pos/internal/events"
	"github.com/noah-isme/stationery-pos/internal/notify"
)

// ProductCache is the reference cache the worker refreshes.
type ProductCache interface {
	InvalidateProducts(ctx context.Context) error
}

// ReportCache is the report cache the worker refreshes.
type ReportCache interface {
	Invalidate(ctx context.Context) error
}

// Handlers react to queued events. Invoice and purchase events move stock and
// money, so they drop the cached products and reports. Every event is then
// handed to Forward when one is configured.
type Handlers struct {
	Products ProductCache
	Reports  ReportCache
	Forward  events.Notifier
	Tracer   trace.Tracer
	Logger   zerolog.Logger
}

// Register mounts the handlers on mux.
func (h Handlers) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(events.TaskInvoiceEvent, h.HandleStockEvent)
	mux.HandleFunc(events.TaskGenericEvent, h.HandleGenericEvent)
}

// HandleStockEvent processes events:invoice tasks.
func (h Handlers) HandleStockEvent(ctx context.Context, t *asynq.Task) error {
	ev, err := events.DecodeTask(t)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	ctx, end := h.span(ctx, ev)
	defer end()

	var errs error
	if h.Products != nil {
		if err := h.Products.InvalidateProducts(ctx); err != nil {
			errs = errors.Join(errs, fmt.Errorf("invalidate products: %w", err))
		}
	}
	if h.Reports != nil {
		if err := h.Reports.Invalidate(ctx); err != nil {
			errs = errors.Join(errs, fmt.Errorf("invalidate reports: %w", err))
		}
	}
	if err := h.forward(ctx, ev); err != nil {
		errs = errors.Join(errs, err)
	}
	h.log(ev).Err(errs).Msg("stock event processed")
	return errs
}

// HandleGenericEvent processes events:generic tasks.
func (h Handlers) HandleGenericEvent(ctx context.Context, t *asynq.Task) error {
	ev, err := events.DecodeTask(t)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	ctx, end := h.span(ctx, ev)
	defer end()
	err = h.forward(ctx, ev)
	h.log(ev).Err(err).Msg("event processed")
	return err
}

func (h Handlers) forward(ctx context.Context, ev events.Event) error {
	if h.Forward == nil {
		return nil
	}
	err := h.Forward.Notify(ctx, ev)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, notify.ErrRejected):
		return fmt.Errorf("forward event: %w: %v", asynq.SkipRetry, err)
	default:
		return fmt.Errorf("forward event: %w", err)
	}
}

func (h Handlers) span(ctx context.Context, ev events.Event) (context.Context, func()) {
	if h.Tracer == nil {
		return ctx, func() {}
	}
	ctx, span := h.Tracer.Start(ctx, "worker."+ev.Topic, trace.WithAttributes(
		attribute.String("event.id", ev.ID),
		attribute.String("event.aggregate_id", ev.AggregateID),
	))
	return ctx, func() { span.End() }
}

func (h Handlers) log(ev events.Event) *zerolog.Event {
	return h.Logger.Info().
		Str("event_id", ev.ID).
		Str("topic", ev.Topic).
		Str("aggregate_id", ev.AggregateID)
}
