package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/micro-nova/taskd/internal/models"
)

// sseKeepAlive is the interval between comment lines on an idle stream.
const sseKeepAlive = 30 * time.Second

// sseEvents streams collection change events. Clients first receive the
// current size of each collection, then one event per change.
func (h *Handlers) sseEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	id := uuid.New().String()
	ch := h.events.Subscribe(id)
	defer h.events.Unsubscribe(id)

	info, appErr := h.ctrl.Info(r.Context())
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
	w.WriteHeader(http.StatusOK)

	now := models.Now()
	sendSSE(w, flusher, models.ChangeEvent{Collection: models.CollectionTasks, Count: info.Tasks, At: now})
	sendSSE(w, flusher, models.ChangeEvent{Collection: models.CollectionStatuses, Count: info.Statuses, At: now})

	ticker := time.NewTicker(sseKeepAlive)
	defer ticker.Stop()
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			sendSSE(w, flusher, ev)
		case <-ticker.C:
			_, _ = fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func sendSSE(w http.ResponseWriter, flusher http.Flusher, ev models.ChangeEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Collection, data)
	flusher.Flush()
}
