package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/stationery-pos/internal/app"
	"github.com/noah-isme/stationery-pos/internal/config"
	"github.com/noah-isme/stationery-pos/internal/health"
	"github.com/noah-isme/stationery-pos/internal/obs"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := obs.NewLogger(cfg.Obs.LogFormat, cfg.Obs.LogLevel).With().Str("env", cfg.AppEnv).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error().Err(err).Msg("api stopped")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	oc := cfg.Obs
	if oc.MetricsEnabled {
		obs.MustRegisterDomainMetrics(oc.MetricsNamespace, nil)
	}

	tracing := oc.TracingEnabled
	if tracing {
		shutdown, err := obs.InitTracer(ctx, obs.TracingConfig{
			ServiceName:   "pos-api",
			Endpoint:      oc.OTLPEndpoint,
			Exporter:      oc.TracingExporter,
			SamplingRatio: oc.SamplingRatio,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracing = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	startCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	deps, err := app.New(startCtx, cfg, logger, app.Options{Metrics: oc.MetricsEnabled})
	cancel()
	if err != nil {
		return err
	}
	defer deps.Close()

	var httpMetrics *obs.HTTPMetrics
	if oc.MetricsEnabled {
		httpMetrics = obs.NewHTTPMetrics(oc.MetricsNamespace, obs.ParseBucketsCSV(oc.MetricsBuckets), nil)
	}
	handler, err := newRouter(deps, routerOptions{
		Tracing:     tracing,
		HTTPMetrics: httpMetrics,
		Pprof:       oc.PprofEnabled,
		PprofUser:   oc.PprofUser,
		PprofPass:   oc.PprofPass,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return logger.WithContext(context.Background()) },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	health.SetReady(false)
	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
