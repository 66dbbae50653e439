package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/DoyleJ11/entry-lobby/internal/hub"
)

// Stats reports the relay's view of the session.
func Stats(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply := make(chan hub.Stats, 1)
		select {
		case h.Inbox() <- hub.GetStats{Reply: reply}:
		case <-h.Done():
			http.Error(w, "relay stopped", http.StatusServiceUnavailable)
			return
		}

		var stats hub.Stats
		select {
		case stats = <-reply:
		case <-h.Done():
			http.Error(w, "relay stopped", http.StatusServiceUnavailable)
			return
		case <-time.After(2 * time.Second):
			http.Error(w, "relay busy", http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(stats)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
