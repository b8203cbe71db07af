package notify_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/stationery-pos/internal/events"
	"github.com/noah-isme/stationery-pos/internal/notify"
)

func sampleEvent() events.Event {
	return events.Event{
		ID:          "ev-42",
		Topic:       events.TopicInvoiceCreated,
		AggregateID: "inv-7",
		Payload:     json.RawMessage(`{"invoiceNumber":"INV-0007","total":118}`),
		OccurredAt:  time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC),
	}
}

func TestWebhookSignsPayload(t *testing.T) {
	type recorded struct {
		header http.Header
		body   []byte
	}
	received := make(chan recorded, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		received <- recorded{header: r.Header.Clone(), body: body}
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)

	now := time.Unix(1717234200, 0)
	hook := notify.Webhook{URL: srv.URL, Secret: "s3cret", Client: srv.Client(), Now: func() time.Time { return now }}
	require.NoError(t, hook.Notify(context.Background(), sampleEvent()))

	got := <-received
	require.Equal(t, "ev-42", got.header.Get("X-Event-ID"))
	require.Equal(t, events.TopicInvoiceCreated, got.header.Get("X-Event-Topic"))
	require.Equal(t, strconv.FormatInt(now.Unix(), 10), got.header.Get("X-Timestamp"))
	require.Equal(t, notify.ComputeSignature("s3cret", now.Unix(), "ev-42", got.body), got.header.Get("X-Signature"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(got.body, &body))
	require.Equal(t, "inv-7", body["aggregateId"])
	require.Equal(t, "INV-0007", body["data"].(map[string]any)["invoiceNumber"])
}

func TestWebhookClassifiesFailures(t *testing.T) {
	status := http.StatusBadGateway
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	hook := notify.Webhook{URL: srv.URL, Client: srv.Client()}

	err := hook.Notify(context.Background(), sampleEvent())
	require.Error(t, err)
	require.NotErrorIs(t, err, notify.ErrRejected)

	status = http.StatusUnprocessableEntity
	err = hook.Notify(context.Background(), sampleEvent())
	require.ErrorIs(t, err, notify.ErrRejected)
}

func TestWebhookReplayGuard(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	calls := 0
	fail := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if fail {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	hook := notify.Webhook{
		URL:       srv.URL,
		Client:    srv.Client(),
		Replay:    notify.RedisReplayProtector{Client: rdb},
		ReplayTTL: time.Hour,
	}
	require.Error(t, hook.Notify(context.Background(), sampleEvent()))

	fail = false
	require.NoError(t, hook.Notify(context.Background(), sampleEvent()))
	require.NoError(t, hook.Notify(context.Background(), sampleEvent()))
	require.Equal(t, 2, calls)
}

func TestValidateURL(t *testing.T) {
	require.NoError(t, notify.ValidateURL("https://accounts.example.com/hooks"))
	require.NoError(t, notify.ValidateURL("http://127.0.0.1:9000/hook"))
	require.Error(t, notify.ValidateURL("http://accounts.example.com/hooks"))
	require.Error(t, notify.ValidateURL("ftp://example.com"))
	require.Error(t, notify.ValidateURL("https://"))
}
