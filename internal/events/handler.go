package events

import (
	"context"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/stationery-pos/internal/common"
)

// Log is the read side of the event store.
type Log interface {
	History(ctx context.Context, aggregateID string) ([]Event, error)
	Recent(ctx context.Context, topic string, limit int) ([]Event, error)
}

// Handler serves the persisted event log.
type Handler struct {
	Log Log
}

// List handles GET /events. Either aggregateId or topic is required.
func (h Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	aggregateID := strings.TrimSpace(q.Get("aggregateId"))
	topic := strings.TrimSpace(q.Get("topic"))

	var (
		items []Event
		err   error
	)
	switch {
	case aggregateID != "":
		items, err = h.Log.History(r.Context(), aggregateID)
	case topic != "":
		if !slices.Contains(DefaultTopics(), topic) {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "unknown topic", map[string]any{"topic": topic})
			return
		}
		limit := 50
		if raw := q.Get("limit"); raw != "" {
			if n, convErr := strconv.Atoi(raw); convErr == nil && n > 0 && n <= 200 {
				limit = n
			}
		}
		items, err = h.Log.Recent(r.Context(), topic, limit)
	default:
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "aggregateId or topic is required", nil)
		return
	}
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("read event log")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
		return
	}
	common.Data(w, http.StatusOK, items)
}
