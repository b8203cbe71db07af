package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	RedisURL           string
	DatabaseURL        string
	MigrateOnStart     bool
	CORSAllowedOrigins []string

	UpstreamBaseURL     string
	UpstreamTimeout     time.Duration
	UpstreamReadRetries int
	UpstreamRetryBase   time.Duration
	UpstreamRetryJitter float64
	CircuitMinRequests  int
	CircuitFailureRatio float64
	CircuitOpenFor      time.Duration

	SessionTTL        time.Duration
	LockTTL           time.Duration
	ReferenceCacheTTL time.Duration
	ReportCacheTTL    time.Duration
	IdempotencyTTL    time.Duration

	RateLimit       string
	LoginRateMax    int
	LoginRateWindow time.Duration

	JWTSecret    string
	JWTIssuer    string
	JWTAudience  string
	JWTClockSkew time.Duration

	AccessCookieName string
	CookieSecure     bool

	SecureHeaders bool
	HSTSEnabled   bool
	HSTSMaxAge    int

	KafkaBrokers      []string
	KafkaTopic        string
	WorkerConcurrency int

	WebhookURL       string
	WebhookSecret    string
	WebhookTimeout   time.Duration
	WebhookReplayTTL time.Duration

	Obs ObsConfig
}

// ObsConfig holds logging, metrics, tracing and profiling switches.
type ObsConfig struct {
	LogFormat        string
	LogLevel         string
	MetricsEnabled   bool
	MetricsNamespace string
	MetricsBuckets   string
	TracingEnabled   bool
	TracingExporter  string
	OTLPEndpoint     string
	SamplingRatio    float64
	PprofEnabled     bool
	PprofUser        string
	PprofPass        string
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		RedisURL:           strings.TrimSpace(k.String("REDIS_URL")),
		DatabaseURL:        strings.TrimSpace(k.String("DATABASE_URL")),
		MigrateOnStart:     parseBool(k.String("DB_MIGRATE_ON_START")),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		UpstreamBaseURL:     strings.TrimRight(strings.TrimSpace(k.String("UPSTREAM_BASE_URL")), "/"),
		UpstreamTimeout:     parseDuration(k.String("UPSTREAM_TIMEOUT"), "10s"),
		UpstreamReadRetries: parseInt(k.String("UPSTREAM_READ_RETRIES"), 3),
		UpstreamRetryBase:   parseDuration(k.String("UPSTREAM_RETRY_BASE"), "200ms"),
		UpstreamRetryJitter: parseFloat(k.String("UPSTREAM_RETRY_JITTER"), 0.2),
		CircuitMinRequests:  parseInt(k.String("CIRCUIT_MIN_REQUESTS"), 5),
		CircuitFailureRatio: parseFloat(k.String("CIRCUIT_FAILURE_RATIO"), 0.5),
		CircuitOpenFor:      parseDuration(k.String("CIRCUIT_OPEN_FOR"), "30s"),

		SessionTTL:        parseDuration(k.String("POS_SESSION_TTL"), "12h"),
		LockTTL:           parseDuration(k.String("POS_LOCK_TTL"), "15s"),
		ReferenceCacheTTL: parseDuration(k.String("REFERENCE_CACHE_TTL"), "2m"),
		ReportCacheTTL:    parseDuration(k.String("REPORT_CACHE_TTL"), "5m"),
		IdempotencyTTL:    parseDuration(k.String("IDEMPOTENCY_TTL"), "10m"),

		RateLimit:       valueOrDefault(k.String("RATE_LIMIT"), "300-M"),
		LoginRateMax:    parseInt(k.String("LOGIN_RATE_MAX"), 10),
		LoginRateWindow: parseDuration(k.String("LOGIN_RATE_WINDOW"), "1m"),

		JWTSecret:    k.String("JWT_SECRET"),
		JWTIssuer:    strings.TrimSpace(k.String("JWT_ISSUER")),
		JWTAudience:  strings.TrimSpace(k.String("JWT_AUDIENCE")),
		JWTClockSkew: parseDuration(k.String("JWT_CLOCK_SKEW"), "30s"),

		AccessCookieName: valueOrDefault(k.String("AUTH_COOKIE_NAME"), "pos_access"),
		CookieSecure:     parseBool(k.String("AUTH_COOKIE_SECURE")),

		SecureHeaders: parseBool(valueOrDefault(k.String("SECURE_HEADERS_ENABLE"), "true")),
		HSTSEnabled:   parseBool(k.String("SECURE_HSTS_ENABLE")),
		HSTSMaxAge:    parseInt(k.String("SECURE_HSTS_MAX_AGE"), 15552000),

		KafkaBrokers:      splitAndTrim(k.String("KAFKA_BROKERS")),
		KafkaTopic:        valueOrDefault(k.String("KAFKA_TOPIC"), "pos.events"),
		WorkerConcurrency: parseInt(k.String("WORKER_CONCURRENCY"), 5),

		WebhookURL:       strings.TrimSpace(k.String("WEBHOOK_URL")),
		WebhookSecret:    k.String("WEBHOOK_SECRET"),
		WebhookTimeout:   parseDuration(k.String("WEBHOOK_TIMEOUT"), "5s"),
		WebhookReplayTTL: parseDuration(k.String("WEBHOOK_REPLAY_TTL"), "24h"),

		Obs: ObsConfig{
			LogFormat:        valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
			LogLevel:         valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
			MetricsEnabled:   parseBool(valueOrDefault(k.String("OBS_ENABLE_PROMETHEUS"), "true")),
			MetricsNamespace: valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "pos"),
			MetricsBuckets:   strings.TrimSpace(k.String("OBS_METRICS_BUCKETS_MS")),
			TracingEnabled:   parseBool(valueOrDefault(k.String("OBS_ENABLE_TRACING"), "true")),
			TracingExporter:  valueOrDefault(k.String("OBS_TRACING_EXPORTER"), "otlp"),
			OTLPEndpoint:     strings.TrimSpace(k.String("OBS_OTLP_ENDPOINT")),
			SamplingRatio:    parseFloat(k.String("OBS_TRACING_SAMPLING_RATIO"), 1.0),
			PprofEnabled:     parseBool(k.String("OBS_ENABLE_PPROF")),
			PprofUser:        strings.TrimSpace(k.String("SECURE_PPROF_BASIC_AUTH_USER")),
			PprofPass:        strings.TrimSpace(k.String("SECURE_PPROF_BASIC_AUTH_PASS")),
		},
	}

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.UpstreamBaseURL == "" {
		return nil, errors.New("UPSTREAM_BASE_URL is required")
	}
	if u, err := url.Parse(cfg.UpstreamBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("UPSTREAM_BASE_URL is not an absolute url: %q", cfg.UpstreamBaseURL)
	}
	if cfg.UpstreamReadRetries < 1 {
		cfg.UpstreamReadRetries = 1
	}
	if cfg.CircuitFailureRatio <= 0 || cfg.CircuitFailureRatio > 1 {
		return nil, fmt.Errorf("CIRCUIT_FAILURE_RATIO must be in (0,1], got %v", cfg.CircuitFailureRatio)
	}

	if cfg.WebhookURL != "" && cfg.WebhookSecret == "" {
		return nil, errors.New("WEBHOOK_SECRET is required when WEBHOOK_URL is set")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// EventLogEnabled reports whether domain events are persisted to Postgres.
func (c *Config) EventLogEnabled() bool {
	return c.DatabaseURL != ""
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return v
}

func parseFloat(value string, fallback float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return v
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// MustLoad behaves like Load but panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
