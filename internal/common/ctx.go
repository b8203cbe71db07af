package common

import "context"

type ctxKey string

const (
	accessTokenKey ctxKey = "auth/access-token"
	operatorIDKey  ctxKey = "auth/operator-id"
)

// WithAccessToken stores the caller's bearer credential on the context.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, accessTokenKey, token)
}

// AccessToken returns the bearer credential attached by the auth middleware.
func AccessToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(accessTokenKey).(string)
	return token, ok && token != ""
}

// WithOperatorID stores the authenticated back-office operator on the context.
func WithOperatorID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, operatorIDKey, id)
}

// OperatorID extracts the authenticated operator identifier if present.
func OperatorID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(operatorIDKey).(string)
	return id, ok && id != ""
}
