package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/stationery-pos/internal/backoffice"
	"github.com/noah-isme/stationery-pos/internal/ratelimit"
	"github.com/noah-isme/stationery-pos/internal/security"
)

type fakeAuthenticator struct {
	token string
	calls int
}

func (f *fakeAuthenticator) Login(_ context.Context, email, password string) (backoffice.LoginResult, error) {
	f.calls++
	if password != "secret" {
		return backoffice.LoginResult{}, &backoffice.Error{Operation: "login", StatusCode: http.StatusUnauthorized, Message: "Invalid credentials"}
	}
	return backoffice.LoginResult{Token: f.token, Admin: backoffice.Admin{ID: "a1", Email: email}}, nil
}

func loginRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Route("/auth", h.Routes)
	return r
}

func postLogin(h http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "10.1.1.1:4000"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestLoginSetsCookieAndExpiry(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	tok := signed(t, []byte("k"), func(b *jwt.Builder) *jwt.Builder {
		return b.Subject("a1").Expiration(now.Add(24 * time.Hour))
	})
	backend := &fakeAuthenticator{token: tok}
	h := &Handler{
		Backend:    backend,
		Inspector:  &Inspector{Now: func() time.Time { return now }},
		CookieName: "pos_access",
	}

	rr := postLogin(loginRouter(h), `{"email":"asha@example.com","password":"secret"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"token":"`+tok+`"`)
	require.Contains(t, rr.Body.String(), `"expiresAt":"2024-06-02T10:00:00Z"`)

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, "pos_access", cookies[0].Name)
	require.Equal(t, tok, cookies[0].Value)
	require.True(t, cookies[0].HttpOnly)
}

func TestLoginValidationAndUpstreamRejection(t *testing.T) {
	backend := &fakeAuthenticator{token: "t"}
	router := loginRouter(&Handler{Backend: backend})

	rr := postLogin(router, `{"email":"not-an-email","password":"secret"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "VALIDATION_ERROR")
	require.Zero(t, backend.calls)

	rr = postLogin(router, `{"email":"asha@example.com","password":"wrong"}`)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Contains(t, rr.Body.String(), "Invalid credentials")
}

func TestLoginIsRateLimited(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	backend := &fakeAuthenticator{token: "t"}
	router := loginRouter(&Handler{
		Backend: backend,
		Limit: &ratelimit.Handler{
			Limiter: ratelimit.Limiter{Client: client, Prefix: "rl:"},
			Config:  ratelimit.Config{Scope: "login", Key: ratelimit.ClientIPKey("login:"), Window: time.Minute, Max: 2},
		},
	})

	for i := 0; i < 2; i++ {
		rr := postLogin(router, `{"email":"asha@example.com","password":"wrong"}`)
		require.Equal(t, http.StatusUnauthorized, rr.Code)
	}
	rr := postLogin(router, `{"email":"asha@example.com","password":"secret"}`)
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	require.Contains(t, rr.Body.String(), "RATE_LIMITED")
	require.Equal(t, 2, backend.calls)
}

func TestLogoutClearsCookie(t *testing.T) {
	rr := httptest.NewRecorder()
	loginRouter(&Handler{CookieName: "pos_access"}).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))
	require.Equal(t, http.StatusNoContent, rr.Code)
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, -1, cookies[0].MaxAge)
}

func TestLoginIssuesCSRFToken(t *testing.T) {
	h := &Handler{
		Backend:    &fakeAuthenticator{token: "opaque"},
		CookieName: "pos_access",
		CSRF:       &security.CSRF{SessionCookie: "pos_access"},
	}
	rr := postLogin(loginRouter(h), `{"email":"asha@example.com","password":"secret"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var csrfCookie *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == security.DefaultCSRFCookie {
			csrfCookie = c
		}
	}
	require.NotNil(t, csrfCookie)
	require.Contains(t, rr.Body.String(), `"csrfToken":"`+csrfCookie.Value+`"`)
}
