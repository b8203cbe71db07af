package resilience

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"
)

// maxRetryAfter bounds how long a Retry-After header may stall a read.
const maxRetryAfter = 5 * time.Second

// HTTPClient sends upstream requests through a breaker with a per-attempt
// timeout. Only GET, HEAD and OPTIONS are retried; any other method gets
// exactly one attempt so an invoice write is never duplicated.
type HTTPClient struct {
	Client      *http.Client
	Breaker     *Breaker
	BaseBackoff time.Duration
	MaxAttempts int
	Jitter      float64
	Timeout     time.Duration
}

// Do sends req. Retryable outcomes (transport errors, 5xx, 429) are retried
// while attempts remain; the last response is handed back as is so callers
// can read the upstream message. The returned body is fully buffered.
func (cl HTTPClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if cl.Client == nil {
		return nil, errors.New("resilience: http client not configured")
	}
	body, err := replayableBody(req)
	if err != nil {
		return nil, err
	}
	attempts := 1
	if idempotent(req.Method) && cl.MaxAttempts > 1 {
		attempts = cl.MaxAttempts
	}

	for n := 1; ; n++ {
		if cl.Breaker != nil && !cl.Breaker.Allow(ctx) {
			return nil, ErrOpenCircuit
		}
		resp, err := cl.attempt(ctx, cloneRequest(ctx, req, body))
		if cl.Breaker != nil {
			// 429 is back-pressure, not a fault
			cl.Breaker.Report(ctx, err == nil && resp.StatusCode < http.StatusInternalServerError)
		}
		if !shouldRetry(resp, err) || n >= attempts || ctx.Err() != nil {
			return resp, err
		}

		wait := Backoff(cmpDuration(cl.BaseBackoff, 100*time.Millisecond), n, cl.Jitter)
		if resp != nil {
			wait = max(wait, retryAfter(resp.Header))
		}
		RetryAttempts.WithLabelValues(cl.target()).Inc()
		if err := sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}

func (cl HTTPClient) target() string {
	if cl.Breaker == nil {
		return "default"
	}
	return cl.Breaker.Target()
}

func idempotent(method string) bool {
	return method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions
}

func shouldRetry(resp *http.Response, err error) bool {
	if err != nil {
		return !errors.Is(err, context.Canceled)
	}
	return resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests
}

func retryAfter(h http.Header) time.Duration {
	secs, err := strconv.Atoi(h.Get("Retry-After"))
	if err != nil || secs <= 0 {
		return 0
	}
	return min(time.Duration(secs)*time.Second, maxRetryAfter)
}

func cmpDuration(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// attempt performs one round trip and buffers the body before the attempt
// deadline is released.
func (cl HTTPClient) attempt(ctx context.Context, req *http.Request) (*http.Response, error) {
	timeout := cmpDuration(cl.Timeout, cl.Client.Timeout)
	var (
		callCtx context.Context
		cancel  context.CancelFunc
	)
	if timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		callCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	resp, err := cl.Client.Do(req.WithContext(callCtx))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	resp.Body = io.NopCloser(bytes.NewReader(data))
	return resp, nil
}

func replayableBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	defer req.Body.Close()
	return io.ReadAll(req.Body)
}

func cloneRequest(ctx context.Context, req *http.Request, body []byte) *http.Request {
	clone := req.Clone(ctx)
	if body == nil {
		return clone
	}
	clone.Body = io.NopCloser(bytes.NewReader(body))
	clone.GetBody = func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(body)), nil }
	clone.ContentLength = int64(len(body))
	return clone
}
