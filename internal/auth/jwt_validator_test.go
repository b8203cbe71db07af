package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/require"
)

func TestTokenValidator(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	base := func() *jwt.Builder {
		return jwt.NewBuilder().
			Issuer("backoffice").
			Audience([]string{"pos-console"}).
			Subject("op-1").
			IssuedAt(now).
			Expiration(now.Add(time.Minute))
	}
	validator := TokenValidator{Issuer: "backoffice", Audience: "pos-console", ClockSkew: time.Second, Algorithm: jwa.HS256}

	cases := []struct {
		name    string
		build   func() *jwt.Builder
		alg     jwa.SignatureAlgorithm
		wantErr bool
	}{
		{name: "valid", build: base, alg: jwa.HS256},
		{name: "within skew", build: func() *jwt.Builder { return base().NotBefore(now.Add(500 * time.Millisecond)) }, alg: jwa.HS256},
		{name: "issuer", build: func() *jwt.Builder { return base().Issuer("someone-else") }, alg: jwa.HS256, wantErr: true},
		{name: "audience", build: func() *jwt.Builder { return base().Audience([]string{"storefront"}) }, alg: jwa.HS256, wantErr: true},
		{name: "expired", build: func() *jwt.Builder { return base().Expiration(now.Add(-time.Minute)) }, alg: jwa.HS256, wantErr: true},
		{name: "not yet valid", build: func() *jwt.Builder { return base().NotBefore(now.Add(5 * time.Minute)) }, alg: jwa.HS256, wantErr: true},
		{name: "algorithm", build: base, alg: jwa.RS256, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			token, err := tc.build().Build()
			require.NoError(t, err)
			err = validator.Validate(token, tc.alg, now)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func signed(t *testing.T, secret []byte, build func(*jwt.Builder) *jwt.Builder) string {
	t.Helper()
	tok, err := build(jwt.NewBuilder()).Build()
	if err != nil {
		t.Fatalf("build token: %v", err)
	}
	raw, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return string(raw)
}

func TestInspectorVerifiesSignature(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	token := signed(t, []byte("secret"), func(b *jwt.Builder) *jwt.Builder {
		return b.Subject("op-1").Claim("name", "Asha").Expiration(now.Add(time.Hour))
	})

	inspector := Inspector{Secret: []byte("secret"), Now: func() time.Time { return now }}
	claims, err := inspector.Inspect(token)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if claims.Subject != "op-1" || claims.Name != "Asha" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if !claims.ExpiresAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("unexpected expiry: %v", claims.ExpiresAt)
	}

	wrong := Inspector{Secret: []byte("other"), Now: func() time.Time { return now }}
	if _, err := wrong.Inspect(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}
}

func TestInspectorParseOnlyReadsIDClaim(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	token := signed(t, []byte("backend-only"), func(b *jwt.Builder) *jwt.Builder {
		return b.Claim("id", "admin-9").Expiration(now.Add(time.Hour))
	})

	claims, err := Inspector{Now: func() time.Time { return now }}.Inspect(token)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if claims.Subject != "admin-9" {
		t.Fatalf("expected id claim as subject, got %q", claims.Subject)
	}
}

func TestInspectorRejectsExpiredWithoutSecret(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	token := signed(t, []byte("backend-only"), func(b *jwt.Builder) *jwt.Builder {
		return b.Subject("op-1").Expiration(now.Add(-time.Minute))
	})

	_, err := Inspector{Now: func() time.Time { return now }}.Inspect(token)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}
}

func TestInspectorOpaqueToken(t *testing.T) {
	if _, err := (Inspector{}).Inspect("opaque-session-token"); !errors.Is(err, ErrOpaqueToken) {
		t.Fatalf("expected opaque token, got %v", err)
	}
	if _, err := (Inspector{Secret: []byte("s")}).Inspect("opaque-session-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token with secret configured, got %v", err)
	}
}
