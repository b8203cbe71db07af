package ratelimit

import (
	"cmp"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/stationery-pos/internal/common"
	"github.com/noah-isme/stationery-pos/internal/obs"
)

// Config names a limit and how requests are bucketed into it.
type Config struct {
	Scope  string
	Key    func(*http.Request) string
	Window time.Duration
	Max    int
}

// Handler guards a route with a Limiter. When Redis is unreachable the
// request is let through and OnError, if set, is told.
type Handler struct {
	Limiter Limiter
	Config  Config
	OnError func(error)
}

// ClientIPKey buckets requests by client address.
func ClientIPKey(prefix string) func(*http.Request) string {
	return func(r *http.Request) string {
		return prefix + cmp.Or(common.ClientIP(r), "unknown")
	}
}

func (h Handler) scope() string {
	return cmp.Or(strings.TrimSpace(h.Config.Scope), "default")
}

// Middleware rejects over-limit requests with 429 and advertises the window
// in X-RateLimit-* headers on every response.
func (h Handler) Middleware(next http.Handler) http.Handler {
	if h.Config.Key == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d, err := h.Limiter.Allow(r.Context(), h.Config.Key(r), h.Config.Window, h.Config.Max)
		if err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Str("scope", h.scope()).Msg("rate limiter unavailable")
			if h.OnError != nil {
				h.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}
		advertise(w.Header(), d)
		if d.Allowed {
			next.ServeHTTP(w, r)
			return
		}
		h.reject(w, d.RetryAfter(h.Limiter.now()))
	})
}

func advertise(hdr http.Header, d Decision) {
	hdr.Set("X-RateLimit-Limit", strconv.Itoa(max(d.Limit, 0)))
	hdr.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	hdr.Set("X-RateLimit-Reset", strconv.FormatInt(d.Reset.Unix(), 10))
}

func (h Handler) reject(w http.ResponseWriter, wait time.Duration) {
	seconds := int(math.Ceil(wait.Seconds()))
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	obs.Count(obs.RateLimited, h.scope())
	common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many attempts, try again later",
		map[string]any{"retryAfterSeconds": seconds})
}
