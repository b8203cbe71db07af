package backoffice

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/noah-isme/stationery-pos/internal/common"
	"github.com/noah-isme/stationery-pos/internal/resilience"
)

var (
	// ErrUnavailable wraps transport failures and an open circuit.
	ErrUnavailable = errors.New("backoffice: backend unavailable")
	// ErrInvalidResponse is returned when the backend sends a body that does not decode or validate.
	ErrInvalidResponse = errors.New("backoffice: invalid response")
)

// Error is a failure reported by the backend itself.
type Error struct {
	Operation  string
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backoffice %s: status %d", e.Operation, e.StatusCode)
	}
	return fmt.Sprintf("backoffice %s: %s (status %d)", e.Operation, e.Message, e.StatusCode)
}

// StatusCode extracts the backend status of err, or 0 when err did not come
// from a backend response.
func StatusCode(err error) int {
	var be *Error
	if errors.As(err, &be) {
		return be.StatusCode
	}
	return 0
}

// AsAppError maps a client error onto the service's error vocabulary. The
// backend's own message is kept so operators see why a write was refused.
func AsAppError(err error) *common.AppError {
	if appErr, ok := common.AsAppError(err); ok {
		return appErr
	}
	var be *Error
	switch {
	case errors.As(err, &be):
		switch {
		case be.StatusCode == http.StatusUnauthorized:
			return common.NewAppError("UNAUTHORIZED", messageOr(be.Message, "backend rejected the credential"), http.StatusUnauthorized, err)
		case be.StatusCode == http.StatusForbidden:
			return common.NewAppError("FORBIDDEN", messageOr(be.Message, "operation not permitted"), http.StatusForbidden, err)
		case be.StatusCode == http.StatusNotFound:
			return common.NewAppError("NOT_FOUND", messageOr(be.Message, "resource not found"), http.StatusNotFound, err)
		case be.StatusCode >= 400 && be.StatusCode < 500:
			return common.NewAppError("UPSTREAM_REJECTED", messageOr(be.Message, "backend rejected the request"), http.StatusUnprocessableEntity, err)
		default:
			return common.NewAppError("UPSTREAM_ERROR", messageOr(be.Message, "backend failed"), http.StatusBadGateway, err)
		}
	case errors.Is(err, resilience.ErrOpenCircuit), errors.Is(err, ErrUnavailable):
		return common.NewAppError("UPSTREAM_UNAVAILABLE", "backend is unavailable, try again shortly", http.StatusServiceUnavailable, err)
	case errors.Is(err, ErrInvalidResponse):
		return common.NewAppError("UPSTREAM_INVALID", "backend sent an unexpected response", http.StatusBadGateway, err)
	default:
		return common.NewAppError("INTERNAL", "internal error", http.StatusInternalServerError, err)
	}
}

// WriteError renders err with the status AsAppError picks. Server-side
// failures are logged on the request logger.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := AsAppError(err)
	if appErr.Status >= http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("code", appErr.Code).Msg("request failed")
	}
	common.WriteAppError(w, appErr)
}

func messageOr(msg, fallback string) string {
	if msg != "" {
		return msg
	}
	return fallback
}
