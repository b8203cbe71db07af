// Package notify forwards POS domain events to an external HTTP endpoint,
// typically the school's accounting integration.
package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/stationery-pos/internal/events"
	"github.com/noah-isme/stationery-pos/internal/obs"
)

// ErrRejected marks a delivery the receiver refused permanently. Retrying it
// will not help.
var ErrRejected = errors.New("webhook rejected")

// ReplayProtector guards against sending the same event twice within a TTL.
type ReplayProtector interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// Webhook posts signed event payloads to URL. It satisfies events.Notifier.
type Webhook struct {
	URL       string
	Secret    string
	Client    *http.Client
	Replay    ReplayProtector
	ReplayTTL time.Duration
	Now       func() time.Time
}

type payload struct {
	EventID     string          `json:"eventId"`
	Topic       string          `json:"topic"`
	AggregateID string          `json:"aggregateId"`
	Data        json.RawMessage `json:"data"`
	OccurredAt  time.Time       `json:"occurredAt"`
}

// Notify delivers ev once. Redelivery of an event already acknowledged within
// ReplayTTL is suppressed.
func (w Webhook) Notify(ctx context.Context, ev events.Event) (err error) {
	ctx, span := otel.Tracer("notify.Webhook").Start(ctx, "Webhook.Notify")
	defer span.End()
	span.SetAttributes(
		attribute.String("webhook.event_id", ev.ID),
		attribute.String("webhook.topic", ev.Topic),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	if err := ValidateURL(w.URL); err != nil {
		return err
	}

	key := replayKey(ev.ID)
	if w.Replay != nil && w.ReplayTTL > 0 {
		ok, err := w.Replay.Acquire(ctx, key, w.ReplayTTL)
		if err != nil {
			return fmt.Errorf("webhook replay guard: %w", err)
		}
		if !ok {
			span.AddEvent("delivery replay prevented")
			return nil
		}
	}

	start := time.Now()
	status, err := w.deliver(ctx, ev)
	span.SetAttributes(attribute.Int("http.status_code", status))
	result := "delivered"
	if err != nil {
		result = "failed"
		if w.Replay != nil && w.ReplayTTL > 0 {
			_ = w.Replay.Release(ctx, key)
		}
	}
	if obs.WebhookLatency != nil {
		obs.WebhookLatency.WithLabelValues(result).Observe(obs.DurationMillis(time.Since(start)))
	}
	return err
}

func (w Webhook) deliver(ctx context.Context, ev events.Event) (int, error) {
	body, err := json.Marshal(payload{
		EventID:     ev.ID,
		Topic:       ev.Topic,
		AggregateID: ev.AggregateID,
		Data:        ev.Payload,
		OccurredAt:  ev.OccurredAt,
	})
	if err != nil {
		return 0, err
	}

	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	ts := now().Unix()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "stationery-pos-webhooks/1.0")
	req.Header.Set("X-Event-ID", ev.ID)
	req.Header.Set("X-Event-Topic", ev.Topic)
	req.Header.Set("X-Timestamp", strconv.FormatInt(ts, 10))
	req.Header.Set("X-Signature", ComputeSignature(w.Secret, ts, ev.ID, body))

	client := w.Client
	if client == nil {
		client = HTTPClient(5 * time.Second)
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return resp.StatusCode, nil
	case resp.StatusCode == http.StatusRequestTimeout, resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		return resp.StatusCode, fmt.Errorf("webhook responded %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	default:
		return resp.StatusCode, fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, bytes.TrimSpace(snippet))
	}
}

// ValidateURL accepts https endpoints, and plain http only for loopback hosts.
func ValidateURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid webhook url: %w", err)
	}
	if parsed.Host == "" {
		return errors.New("webhook url must include host")
	}
	switch parsed.Scheme {
	case "https":
		return nil
	case "http":
		host := parsed.Hostname()
		if host == "localhost" || host == "127.0.0.1" || host == "::1" {
			return nil
		}
		return errors.New("http webhook only allowed for localhost")
	default:
		return errors.New("webhook url must be http or https")
	}
}

// ComputeSignature is HMAC-SHA256 over "<ts>.<eventID>.<body>" keyed by the
// shared secret, hex encoded.
func ComputeSignature(secret string, ts int64, eventID string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(strconv.FormatInt(ts, 10)))
	_, _ = mac.Write([]byte("."))
	_, _ = mac.Write([]byte(eventID))
	_, _ = mac.Write([]byte("."))
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// HTTPClient returns a traced client for webhook delivery.
func HTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

func replayKey(eventID string) string {
	return "pos:webhook:" + eventID
}
