package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/stationery-pos/internal/app"
	"github.com/noah-isme/stationery-pos/internal/config"
)

func newTestRouter(t *testing.T, upstream http.Handler) http.Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	backend := httptest.NewServer(upstream)
	t.Cleanup(backend.Close)

	cfg, err := config.LoadForTests(map[string]string{
		"REDIS_URL":         "redis://" + mr.Addr() + "/0",
		"UPSTREAM_BASE_URL": backend.URL + "/api",
		"DATABASE_URL":      "",
		"KAFKA_BROKERS":     "",
		"JWT_SECRET":        "",
		"WEBHOOK_URL":       "",
	})
	require.NoError(t, err)

	deps, err := app.New(context.Background(), cfg, zerolog.Nop(), app.Options{})
	require.NoError(t, err)
	t.Cleanup(deps.Close)

	router, err := newRouter(deps, routerOptions{})
	require.NoError(t, err)
	return router
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router := newTestRouter(t, http.NotFoundHandler())

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/reference", nil))
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"redis":"ok"`)
}

func TestInventoryForwardsToken(t *testing.T) {
	var seen []string
	router := newTestRouter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/products":
			_, _ = w.Write([]byte(`{"success":true,"data":[{"_id":"p1","name":"Pencil","basePrice":10,"gstRate":12,"stock":2,"minStockLevel":5,"isActive":true}]}`))
		default:
			_, _ = w.Write([]byte(`{"success":true,"data":[]}`))
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/inventory?status=low", nil)
	req.Header.Set("Authorization", "Bearer opaque-token")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Contains(t, rr.Body.String(), `"p1"`)
	require.NotEmpty(t, seen)
	for _, h := range seen {
		require.Equal(t, "Bearer opaque-token", h)
	}
}

func TestLoginRouteIsPublic(t *testing.T) {
	router := newTestRouter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"token":"opaque-token","admin":{"_id":"a1","name":"Asha","email":"asha@example.com"}}`))
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"asha@example.com","password":"secret"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Contains(t, rr.Body.String(), `"token":"opaque-token"`)
}

func TestCookieWritesRequireCSRFToken(t *testing.T) {
	router := newTestRouter(t, http.NotFoundHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/purchases", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: "pos_access", Value: "opaque-token"})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusForbidden, rr.Code)
	require.Contains(t, rr.Body.String(), "CSRF_FAILED")
	require.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
}

func TestPprofRequiresBasicAuth(t *testing.T) {
	h := protectPprof(newPprofMux(), "ops", "s3cret")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/cmdline", nil))
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.NotEmpty(t, rr.Header().Get("WWW-Authenticate"))

	req := httptest.NewRequest(http.MethodGet, "/cmdline", nil)
	req.SetBasicAuth("ops", "s3cret")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
}
