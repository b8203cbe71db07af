package app

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/stationery-pos/internal/config"
	"github.com/noah-isme/stationery-pos/internal/health"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	mr := miniredis.RunT(t)
	cfg, err := config.LoadForTests(map[string]string{
		"REDIS_URL":         "redis://" + mr.Addr() + "/0",
		"UPSTREAM_BASE_URL": "http://backoffice.local/api",
		"DATABASE_URL":      "",
		"KAFKA_BROKERS":     "",
		"WEBHOOK_URL":       "",
	})
	require.NoError(t, err)
	return cfg
}

func TestNewWithoutDatabase(t *testing.T) {
	cfg := testConfig(t)
	deps, err := New(context.Background(), cfg, zerolog.Nop(), Options{})
	require.NoError(t, err)
	defer deps.Close()

	require.Nil(t, deps.DB)
	require.Nil(t, deps.Bus.Store)
	require.Nil(t, deps.Kafka)
	require.Len(t, deps.Bus.Notifiers, 2)
	require.NotNil(t, deps.Backend)
	require.Nil(t, deps.Webhook)

	report := health.Handler{Probes: deps.Probes()}.Check(context.Background())
	require.Equal(t, "ok", report.Status)
	require.Equal(t, map[string]string{"redis": "ok", "upstream": "ok"}, report.Checks)
}

func TestNewWithKafka(t *testing.T) {
	cfg := testConfig(t)
	cfg.KafkaBrokers = []string{"localhost:9092"}
	deps, err := New(context.Background(), cfg, zerolog.Nop(), Options{})
	require.NoError(t, err)
	defer deps.Close()

	require.NotNil(t, deps.Kafka)
	require.Equal(t, "pos.events", deps.Kafka.Topic)
	require.Len(t, deps.Bus.Notifiers, 3)
}

func TestNewFailsWithoutRedis(t *testing.T) {
	cfg := testConfig(t)
	cfg.RedisURL = "redis://127.0.0.1:1/0"
	_, err := New(context.Background(), cfg, zerolog.Nop(), Options{})
	require.Error(t, err)
}

func TestNewRateLimiterRejectsBadRate(t *testing.T) {
	cfg := testConfig(t)
	deps, err := New(context.Background(), cfg, zerolog.Nop(), Options{})
	require.NoError(t, err)
	defer deps.Close()

	_, err = NewRateLimiter(deps.Redis, "lots")
	require.Error(t, err)

	lim, err := NewRateLimiter(deps.Redis, "300-M")
	require.NoError(t, err)
	require.Equal(t, int64(300), lim.Rate.Limit)
}

func TestNewWithWebhook(t *testing.T) {
	cfg := testConfig(t)
	cfg.WebhookURL = "https://accounts.example.com/hooks"
	cfg.WebhookSecret = "shared"
	deps, err := New(context.Background(), cfg, zerolog.Nop(), Options{})
	require.NoError(t, err)
	defer deps.Close()
	require.NotNil(t, deps.Webhook)
	require.Equal(t, cfg.WebhookReplayTTL, deps.Webhook.ReplayTTL)

	cfg.WebhookURL = "http://accounts.example.com/hooks"
	_, err = New(context.Background(), cfg, zerolog.Nop(), Options{})
	require.Error(t, err)
}
