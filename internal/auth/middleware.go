package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/stationery-pos/internal/common"
)

// Middleware attaches the caller's bearer credential to the request context.
// Every upstream call made while serving the request authenticates with it.
type Middleware struct {
	Inspector    *Inspector
	AccessCookie string
}

// RequireToken rejects requests without a credential. When an Inspector is
// configured the token is checked before any upstream traffic happens.
func (m Middleware) RequireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := m.extractToken(r)
		if token == "" {
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
			return
		}
		ctx := common.WithAccessToken(r.Context(), token)
		if m.Inspector != nil {
			claims, err := m.Inspector.Inspect(token)
			switch {
			case errors.Is(err, ErrOpaqueToken):
			case err != nil:
				zerolog.Ctx(r.Context()).Debug().Err(err).Msg("token rejected")
				common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
				return
			case claims.Subject != "":
				ctx = common.WithOperatorID(ctx, claims.Subject)
				logger := zerolog.Ctx(ctx).With().Str("operator_id", claims.Subject).Logger()
				ctx = logger.WithContext(ctx)
			}
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m Middleware) extractToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	if m.AccessCookie != "" {
		if cookie, err := r.Cookie(m.AccessCookie); err == nil {
			if value := strings.TrimSpace(cookie.Value); value != "" {
				return value
			}
		}
	}
	return ""
}
