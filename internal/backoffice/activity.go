package backoffice

import (
	"fmt"
	"net/http"
	"time"

	"github.com/noah-isme/stationery-pos/internal/common"
)

// Activity is the snapshot served to screens that show a busy indicator.
type Activity struct {
	Loading  bool `json:"loading"`
	InFlight int  `json:"inFlight"`
}

// ServeHTTP handles GET /upstream/activity.
func (t *LoadingTracker) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	n := t.InFlight()
	common.Data(w, http.StatusOK, Activity{Loading: n > 0, InFlight: n})
}

// Stream handles GET /upstream/activity/stream as server-sent events: the
// current state first, then one event per busy/idle transition.
func (t *LoadingTracker) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		common.JSONError(w, http.StatusNotImplemented, "STREAMING_UNSUPPORTED", "streaming unsupported", nil)
		return
	}
	changes := make(chan bool, 8)
	unsubscribe := t.Subscribe(func(loading bool) {
		select {
		case changes <- loading:
		default:
		}
	})
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	writeActivity(w, t.Loading())
	flusher.Flush()

	keepAlive := time.NewTicker(25 * time.Second)
	defer keepAlive.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case loading := <-changes:
			writeActivity(w, loading)
		case <-keepAlive.C:
			_, _ = fmt.Fprint(w, ": keep-alive\n\n")
		}
		flusher.Flush()
	}
}

func writeActivity(w http.ResponseWriter, loading bool) {
	_, _ = fmt.Fprintf(w, "event: activity\ndata: {\"loading\":%t}\n\n", loading)
}
