package common_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/stationery-pos/internal/common"
)

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestIdemReplaysCompletedResponse(t *testing.T) {
	client := newRedis(t)
	calls := 0
	handler := common.Idem{R: client, TTL: time.Minute}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		common.Data(w, http.StatusCreated, map[string]int{"call": calls})
	}))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/pos/sessions/abc/submit", nil)
		req.Header.Set("Idempotency-Key", "key-1")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	first := send()
	require.Equal(t, http.StatusCreated, first.Code)
	second := send()
	require.Equal(t, http.StatusCreated, second.Code)
	require.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	require.JSONEq(t, first.Body.String(), second.Body.String())
	require.Equal(t, 1, calls)
}

func TestIdemForgetsServerErrors(t *testing.T) {
	client := newRedis(t)
	calls := 0
	handler := common.Idem{R: client, TTL: time.Minute}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		common.JSONError(w, http.StatusBadGateway, "UPSTREAM_ERROR", "boom", nil)
	}))

	for range 2 {
		req := httptest.NewRequest(http.MethodPost, "/pos/sessions/abc/submit", nil)
		req.Header.Set("Idempotency-Key", "key-2")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		require.Equal(t, http.StatusBadGateway, rr.Code)
	}
	require.Equal(t, 2, calls)
}

func TestIdemReleasesKeyAfterClientError(t *testing.T) {
	client := newRedis(t)
	ready := false
	calls := 0
	handler := common.Idem{R: client, TTL: time.Minute}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if !ready {
			common.JSONError(w, http.StatusUnprocessableEntity, "CUSTOMER_REQUIRED", "select a customer", nil)
			return
		}
		common.Data(w, http.StatusCreated, map[string]int{"call": calls})
	}))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/pos/sessions/abc/submit", nil)
		req.Header.Set("Idempotency-Key", "key-3")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	first := send()
	require.Equal(t, http.StatusUnprocessableEntity, first.Code)

	ready = true
	second := send()
	require.Equal(t, http.StatusCreated, second.Code)
	require.Empty(t, second.Header().Get("Idempotent-Replayed"))
	require.JSONEq(t, `{"data":{"call":2}}`, second.Body.String())

	third := send()
	require.Equal(t, http.StatusCreated, third.Code)
	require.Equal(t, "true", third.Header().Get("Idempotent-Replayed"))
	require.Equal(t, 2, calls)
}

func TestIdemWithoutHeaderPassesThrough(t *testing.T) {
	client := newRedis(t)
	calls := 0
	handler := common.Idem{R: client}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNoContent)
	}))
	for range 2 {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/x", nil))
	}
	require.Equal(t, 2, calls)
}
