// Package app assembles the long-lived dependencies shared by the API server
// and the background worker.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	limiter "github.com/ulule/limiter/v3"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/stationery-pos/internal/backoffice"
	"github.com/noah-isme/stationery-pos/internal/config"
	"github.com/noah-isme/stationery-pos/internal/db"
	dbgen "github.com/noah-isme/stationery-pos/internal/db/gen"
	"github.com/noah-isme/stationery-pos/internal/events"
	"github.com/noah-isme/stationery-pos/internal/health"
	"github.com/noah-isme/stationery-pos/internal/notify"
	"github.com/noah-isme/stationery-pos/internal/obs"
	"github.com/noah-isme/stationery-pos/internal/reference"
	"github.com/noah-isme/stationery-pos/internal/reports"
	"github.com/noah-isme/stationery-pos/internal/resilience"
)

const eventQueue = "events"

// Dependencies are built once per process and closed on shutdown. DB and
// Queries are nil when DATABASE_URL is empty; Kafka is nil without brokers.
// Webhook is nil without WEBHOOK_URL.
type Dependencies struct {
	Config    *config.Config
	Logger    zerolog.Logger
	Redis     *redis.Client
	DB        *pgxpool.Pool
	Queries   *dbgen.Queries
	Breaker   *resilience.Breaker
	Loading   *backoffice.LoadingTracker
	Backend   *backoffice.Client
	Reference *reference.Loader
	Reports   *reports.Service
	Tasks     *asynq.Client
	Kafka     *kafka.Writer
	Bus       *events.Bus
	Webhook   *notify.Webhook

	closers []func() error
}

// Options toggles optional instrumentation.
type Options struct {
	Metrics bool
}

// New connects Redis (required), Postgres (optional) and builds the backend
// client and event bus.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger, opts Options) (*Dependencies, error) {
	d := &Dependencies{Config: cfg, Logger: logger}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	d.Redis = redis.NewClient(redisOpts)
	d.closers = append(d.closers, d.Redis.Close)
	if err := redisotel.InstrumentTracing(d.Redis); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if opts.Metrics {
		if err := redisotel.InstrumentMetrics(d.Redis); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	if err := d.Redis.Ping(ctx).Err(); err != nil {
		d.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	if cfg.DatabaseURL != "" {
		if err := d.connectDB(ctx); err != nil {
			d.Close()
			return nil, err
		}
	}

	if err := d.buildBackend(); err != nil {
		d.Close()
		return nil, err
	}

	d.Reference = &reference.Loader{Cache: reference.NewCache(d.Redis, cfg.ReferenceCacheTTL)}
	d.Reports = &reports.Service{R: d.Redis, TTL: cfg.ReportCacheTTL}

	asynqOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("parse asynq redis uri: %w", err)
	}
	d.Tasks = asynq.NewClient(asynqOpt)
	d.closers = append(d.closers, d.Tasks.Close)

	notifiers := []events.Notifier{
		events.LogNotifier{},
		events.TaskNotifier{Client: d.Tasks, Queue: eventQueue, MaxRetry: 5},
	}
	if len(cfg.KafkaBrokers) > 0 {
		d.Kafka = events.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic)
		d.closers = append(d.closers, d.Kafka.Close)
		notifiers = append(notifiers, events.KafkaNotifier{Writer: d.Kafka})
	}
	d.Bus = &events.Bus{Notifiers: notifiers}
	if d.Queries != nil {
		d.Bus.Store = events.PGStore{Q: d.Queries}
	}

	if cfg.WebhookURL != "" {
		if err := notify.ValidateURL(cfg.WebhookURL); err != nil {
			d.Close()
			return nil, err
		}
		d.Webhook = &notify.Webhook{
			URL:       cfg.WebhookURL,
			Secret:    cfg.WebhookSecret,
			Client:    notify.HTTPClient(cfg.WebhookTimeout),
			Replay:    notify.RedisReplayProtector{Client: d.Redis},
			ReplayTTL: cfg.WebhookReplayTTL,
		}
	}
	return d, nil
}

func (d *Dependencies) connectDB(ctx context.Context) error {
	cfg := d.Config
	if cfg.MigrateOnStart {
		if err := db.Migrate(cfg.DatabaseURL); err != nil {
			return err
		}
		d.Logger.Info().Msg("database migrations applied")
	}
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "stationery-pos"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("ping database: %w", err)
	}
	d.DB = pool
	d.Queries = dbgen.New(pool)
	d.closers = append(d.closers, func() error { pool.Close(); return nil })
	return nil
}

func (d *Dependencies) buildBackend() error {
	cfg := d.Config
	d.Breaker = resilience.NewBreaker(cfg.CircuitMinRequests, cfg.CircuitFailureRatio, cfg.CircuitOpenFor).
		WithTarget("backoffice").
		WithLogger(d.Logger)
	d.Loading = backoffice.NewLoadingTracker()

	observers := []backoffice.Observer{d.Loading, backoffice.LogObserver{}}
	if m, err := backoffice.NewMetricsObserver(Meter("backoffice")); err != nil {
		d.Logger.Error().Err(err).Msg("create backoffice metrics observer")
	} else {
		observers = append(observers, m)
	}

	client, err := backoffice.New(backoffice.Config{
		BaseURL: cfg.UpstreamBaseURL,
		HTTP: resilience.HTTPClient{
			Client:      &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
			Breaker:     d.Breaker,
			BaseBackoff: cfg.UpstreamRetryBase,
			MaxAttempts: cfg.UpstreamReadRetries,
			Jitter:      cfg.UpstreamRetryJitter,
			Timeout:     cfg.UpstreamTimeout,
		},
		Observers: observers,
	})
	if err != nil {
		return err
	}
	d.Backend = client
	return nil
}

// Probes lists the readiness checks for the wired dependencies.
func (d *Dependencies) Probes() []health.Probe {
	probes := []health.Probe{
		{Name: "redis", Timeout: 300 * time.Millisecond, Check: func(ctx context.Context) error {
			return d.Redis.Ping(ctx).Err()
		}},
		{Name: "upstream", Optional: true, Check: func(context.Context) error {
			if snap := d.Breaker.Snapshot(); snap.State == resilience.Open {
				return fmt.Errorf("circuit open until %s", snap.RetryAt.UTC().Format(time.RFC3339))
			}
			return nil
		}},
	}
	if d.DB != nil {
		probes = append(probes, health.Probe{Name: "db", Optional: true, Check: d.DB.Ping})
	}
	return probes
}

// Close releases every connection in reverse order of creation.
func (d *Dependencies) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			d.Logger.Error().Err(err).Msg("close dependency")
		}
	}
	d.closers = nil
}

// NewRateLimiter builds the global API limiter from a ulule formatted rate
// such as "300-M", sharing counters through Redis.
func NewRateLimiter(rdb *redis.Client, rate string) (*limiter.Limiter, error) {
	parsed, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("parse rate %q: %w", rate, err)
	}
	store, err := limiterredis.NewStoreWithOptions(rdb, limiter.StoreOptions{Prefix: "pos:limiter"})
	if err != nil {
		return nil, err
	}
	return limiter.New(store, parsed), nil
}

// Tracer returns the default OpenTelemetry tracer for instrumentation hooks.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// Meter returns the default OpenTelemetry meter for instrumentation hooks.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}
