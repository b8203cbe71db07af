// Package health serves liveness and readiness probes.
package health

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/stationery-pos/internal/common"
)

var draining atomic.Bool

// SetReady flips the process-wide readiness flag. The server clears it when
// shutdown starts so load balancers stop routing new requests.
func SetReady(ready bool) {
	draining.Store(!ready)
}

// Probe checks one dependency. An Optional probe failing degrades readiness
// without failing it.
type Probe struct {
	Name     string
	Timeout  time.Duration
	Optional bool
	Check    func(ctx context.Context) error
}

// Handler exposes HTTP handlers for health endpoints.
type Handler struct {
	Probes []Probe
}

// Report is the readiness response body.
type Report struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Live reports liveness status.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready runs every probe concurrently and reports the aggregate.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if draining.Load() {
		common.JSON(w, http.StatusServiceUnavailable, Report{Status: "draining", Checks: map[string]string{}})
		return
	}
	report := h.Check(r.Context())
	status := http.StatusOK
	if report.Status == "unavailable" {
		status = http.StatusServiceUnavailable
	}
	common.JSON(w, status, report)
}

// Check runs the probes without writing a response.
func (h Handler) Check(ctx context.Context) Report {
	var (
		mu     sync.Mutex
		report = Report{Status: "ok", Checks: make(map[string]string, len(h.Probes))}
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, p := range h.Probes {
		g.Go(func() error {
			result := "ok"
			if err := p.run(gctx); err != nil {
				result = err.Error()
			}
			mu.Lock()
			defer mu.Unlock()
			report.Checks[p.Name] = result
			if result == "ok" {
				return nil
			}
			if !p.Optional {
				report.Status = "unavailable"
			} else if report.Status == "ok" {
				report.Status = "degraded"
			}
			return nil
		})
	}
	_ = g.Wait()
	return report
}

func (p Probe) run(ctx context.Context) error {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.Check(ctx)
}
