package security

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/stationery-pos/internal/common"
)

const (
	DefaultCSRFHeader = "X-CSRF-Token"
	DefaultCSRFCookie = "pos_csrf"
)

// CSRF guards writes that authenticate through the session cookie using the
// double-submit pattern. Bearer requests and requests without the session
// cookie are not affected.
type CSRF struct {
	Header        string
	Cookie        string
	SessionCookie string
	Secure        bool
}

func (c CSRF) header() string {
	if h := strings.TrimSpace(c.Header); h != "" {
		return h
	}
	return DefaultCSRFHeader
}

func (c CSRF) cookie() string {
	if name := strings.TrimSpace(c.Cookie); name != "" {
		return name
	}
	return DefaultCSRFCookie
}

// Issue sets a fresh token cookie readable by the browser client and returns
// the token. It is called alongside the session cookie on login.
func (c CSRF) Issue(w http.ResponseWriter, expires time.Time) string {
	token := uuid.NewString()
	cookie := &http.Cookie{
		Name:     c.cookie(),
		Value:    token,
		Path:     "/",
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if !expires.IsZero() {
		cookie.Expires = expires
	}
	http.SetCookie(w, cookie)
	return token
}

// Clear expires the token cookie.
func (c CSRF) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.cookie(),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Middleware rejects unsafe cookie-authenticated requests whose header token
// does not match the token cookie.
func (c CSRF) Middleware(next http.Handler) http.Handler {
	headerName := c.header()
	cookieName := c.cookie()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if safeMethod(r.Method) || !c.cookieAuthenticated(r) {
			next.ServeHTTP(w, r)
			return
		}

		token := strings.TrimSpace(r.Header.Get(headerName))
		cookie, err := r.Cookie(cookieName)
		if token == "" || err != nil || cookie.Value == "" {
			c.reject(w, r, "missing csrf token")
			return
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(cookie.Value)) != 1 {
			c.reject(w, r, "invalid csrf token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (c CSRF) cookieAuthenticated(r *http.Request) bool {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return false
	}
	if c.SessionCookie == "" {
		return false
	}
	_, err := r.Cookie(c.SessionCookie)
	return err == nil
}

func (c CSRF) reject(w http.ResponseWriter, r *http.Request, reason string) {
	zerolog.Ctx(r.Context()).Warn().Str("path", r.URL.Path).Msg(reason)
	common.JSONError(w, http.StatusForbidden, "CSRF_FAILED", reason, nil)
}

func safeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}
