package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/stationery-pos/internal/backoffice"
	"github.com/noah-isme/stationery-pos/internal/common"
	"github.com/noah-isme/stationery-pos/internal/ratelimit"
	"github.com/noah-isme/stationery-pos/internal/security"
)

// Authenticator exchanges operator credentials with the backend.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (backoffice.LoginResult, error)
}

// Handler exposes the login proxy.
type Handler struct {
	Backend        Authenticator
	Limit          *ratelimit.Handler
	Inspector      *Inspector
	CookieName     string
	CookieSecure   bool
	CookieSameSite http.SameSite
	// CSRF, when set, issues a double-submit token next to the session cookie.
	CSRF *security.CSRF
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token     string           `json:"token"`
	Admin     backoffice.Admin `json:"admin"`
	ExpiresAt *time.Time       `json:"expiresAt,omitempty"`
	CSRFToken string           `json:"csrfToken,omitempty"`
}

// Routes mounts /login and /logout; login goes through the limiter when set.
func (h *Handler) Routes(r chi.Router) {
	login := http.Handler(http.HandlerFunc(h.Login))
	if h.Limit != nil {
		login = h.Limit.Middleware(login)
	}
	r.Method(http.MethodPost, "/login", login)
	r.Post("/logout", h.Logout)
}

// Login handles POST /auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := common.DecodeJSON(w, r, &req); err != nil {
		common.WriteAppError(w, err)
		return
	}
	result, err := h.Backend.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		backoffice.WriteError(w, r, err)
		return
	}

	resp := loginResponse{Token: result.Token, Admin: result.Admin}
	if h.Inspector != nil {
		if claims, err := h.Inspector.Inspect(result.Token); err == nil && !claims.ExpiresAt.IsZero() {
			exp := claims.ExpiresAt.UTC()
			resp.ExpiresAt = &exp
		}
	}
	h.setCookie(w, result.Token, resp.ExpiresAt)
	if h.CSRF != nil && h.CookieName != "" {
		var exp time.Time
		if resp.ExpiresAt != nil {
			exp = *resp.ExpiresAt
		}
		resp.CSRFToken = h.CSRF.Issue(w, exp)
	}
	common.Data(w, http.StatusOK, resp)
}

// Logout clears the access cookie. Bearer clients simply drop their token.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if h.CookieName != "" {
		http.SetCookie(w, &http.Cookie{
			Name:     h.CookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   h.CookieSecure,
			SameSite: h.CookieSameSite,
		})
	}
	if h.CSRF != nil {
		h.CSRF.Clear(w)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) setCookie(w http.ResponseWriter, token string, expires *time.Time) {
	if h.CookieName == "" {
		return
	}
	cookie := &http.Cookie{
		Name:     h.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: h.CookieSameSite,
	}
	if expires != nil {
		cookie.Expires = *expires
	}
	http.SetCookie(w, cookie)
}
