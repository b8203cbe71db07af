package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/stationery-pos/internal/health"
)

func ok(context.Context) error { return nil }

func ready(t *testing.T, h health.Handler) (int, health.Report) {
	t.Helper()
	rr := httptest.NewRecorder()
	h.Ready(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	var report health.Report
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
	return rr.Code, report
}

func TestLive(t *testing.T) {
	handler := health.Handler{}
	rr := httptest.NewRecorder()
	handler.Live(rr, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}
	if body := rr.Body.String(); body != "ok" {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestReadySuccess(t *testing.T) {
	code, report := ready(t, health.Handler{Probes: []health.Probe{
		{Name: "redis", Check: ok},
		{Name: "upstream", Check: ok},
	}})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "ok", report.Status)
	require.Equal(t, map[string]string{"redis": "ok", "upstream": "ok"}, report.Checks)
}

func TestReadyRequiredFailure(t *testing.T) {
	code, report := ready(t, health.Handler{Probes: []health.Probe{
		{Name: "redis", Check: func(context.Context) error { return errors.New("redis down") }},
		{Name: "db", Optional: true, Check: ok},
	}})
	require.Equal(t, http.StatusServiceUnavailable, code)
	require.Equal(t, "unavailable", report.Status)
	require.Equal(t, "redis down", report.Checks["redis"])
}

func TestReadyOptionalFailureDegrades(t *testing.T) {
	code, report := ready(t, health.Handler{Probes: []health.Probe{
		{Name: "redis", Check: ok},
		{Name: "db", Optional: true, Timeout: 10 * time.Millisecond, Check: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}},
	}})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "degraded", report.Status)
	require.Equal(t, context.DeadlineExceeded.Error(), report.Checks["db"])
}

func TestReadinessAfterShutdown(t *testing.T) {
	handler := health.Handler{Probes: []health.Probe{{Name: "redis", Check: ok}}}

	health.SetReady(true)
	code, _ := ready(t, handler)
	require.Equal(t, http.StatusOK, code)

	health.SetReady(false)
	code, report := ready(t, handler)
	require.Equal(t, http.StatusServiceUnavailable, code)
	require.Equal(t, "draining", report.Status)

	// reset for other tests
	health.SetReady(true)
}
