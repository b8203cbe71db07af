package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

var (
	// ErrInvalidToken marks a credential that failed inspection.
	ErrInvalidToken = errors.New("auth: invalid token")
	// ErrOpaqueToken marks a credential that is not a JWT. Without a signing
	// secret such tokens are forwarded untouched and the backend decides.
	ErrOpaqueToken = errors.New("auth: token is not a jwt")
)

// TokenValidator validates structural and contextual properties of JWT tokens.
type TokenValidator struct {
	Issuer    string
	Audience  string
	ClockSkew time.Duration
	Algorithm jwa.SignatureAlgorithm
}

// Validate ensures the supplied token satisfies issuer, audience, expiry, and algorithm requirements.
func (v TokenValidator) Validate(tok jwt.Token, algorithm jwa.SignatureAlgorithm, now time.Time) error {
	if tok == nil {
		return errors.New("auth: token is nil")
	}

	if algorithm == "" {
		return errors.New("auth: token missing algorithm")
	}
	if v.Algorithm != "" && algorithm != v.Algorithm {
		return fmt.Errorf("auth: unexpected token algorithm %s", algorithm)
	}

	options := []jwt.ValidateOption{
		jwt.WithClock(jwt.ClockFunc(func() time.Time { return now })),
	}
	if v.ClockSkew > 0 {
		options = append(options, jwt.WithAcceptableSkew(v.ClockSkew))
	}
	if v.Issuer != "" {
		options = append(options, jwt.WithIssuer(v.Issuer))
	}
	if v.Audience != "" {
		options = append(options, jwt.WithAudience(v.Audience))
	}

	return jwt.Validate(tok, options...)
}

// Claims is what the service reads from an operator token.
type Claims struct {
	Subject   string
	Name      string
	Role      string
	ExpiresAt time.Time
}

// Inspector reads operator tokens issued by the back-office backend. With a
// Secret the HMAC signature is verified; otherwise the token is only parsed
// and its time and audience claims checked.
type Inspector struct {
	Secret    []byte
	Validator TokenValidator
	Now       func() time.Time
}

func (i Inspector) now() time.Time {
	if i.Now != nil {
		return i.Now()
	}
	return time.Now()
}

// Inspect parses token and returns its claims.
func (i Inspector) Inspect(token string) (Claims, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return Claims{}, fmt.Errorf("%w: empty", ErrInvalidToken)
	}
	algorithm, err := extractTokenAlgorithm(trimmed)
	if err != nil {
		if len(i.Secret) == 0 && strings.Count(trimmed, ".") != 2 {
			return Claims{}, ErrOpaqueToken
		}
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	var parsed jwt.Token
	if len(i.Secret) > 0 {
		if !isHMAC(algorithm) {
			return Claims{}, fmt.Errorf("%w: unexpected algorithm %s", ErrInvalidToken, algorithm)
		}
		parsed, err = jwt.ParseString(trimmed, jwt.WithKey(algorithm, i.Secret), jwt.WithValidate(false))
	} else {
		parsed, err = jwt.ParseString(trimmed, jwt.WithVerify(false), jwt.WithValidate(false))
	}
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if err := i.Validator.Validate(parsed, algorithm, i.now()); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims := Claims{
		Subject:   parsed.Subject(),
		Name:      privateString(parsed, "name"),
		Role:      privateString(parsed, "role"),
		ExpiresAt: parsed.Expiration(),
	}
	if claims.Subject == "" {
		claims.Subject = privateString(parsed, "id")
	}
	if claims.Subject == "" {
		claims.Subject = privateString(parsed, "_id")
	}
	return claims, nil
}

func privateString(tok jwt.Token, name string) string {
	v, ok := tok.Get(name)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func isHMAC(alg jwa.SignatureAlgorithm) bool {
	switch alg {
	case jwa.HS256, jwa.HS384, jwa.HS512:
		return true
	}
	return false
}

func extractTokenAlgorithm(token string) (jwa.SignatureAlgorithm, error) {
	message, err := jws.ParseString(token)
	if err != nil {
		return "", err
	}
	signatures := message.Signatures()
	if len(signatures) == 0 {
		return "", errors.New("auth: token contains no signatures")
	}
	var algorithm jwa.SignatureAlgorithm
	for _, sig := range signatures {
		headers := sig.ProtectedHeaders()
		if headers == nil {
			return "", errors.New("auth: token missing protected headers")
		}
		alg := headers.Algorithm()
		if alg == "" {
			return "", errors.New("auth: token missing algorithm")
		}
		if alg == jwa.NoSignature {
			return "", errors.New("auth: token uses none algorithm")
		}
		if algorithm == "" {
			algorithm = alg
		} else if algorithm != alg {
			return "", fmt.Errorf("auth: mixed token algorithms detected")
		}
	}
	return algorithm, nil
}
