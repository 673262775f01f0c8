package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/JonMunkholm/tableroute/internal/logging"
)

// handleWatch streams changes at an address as Server-Sent Events.
// descendants=true also delivers changes to rows beneath a collection.
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		writeError(w, http.StatusNotImplemented, "change notification is disabled")
		return
	}

	m, err := s.provider.Matcher().Resolve(resourcePath(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	descendants, _ := strconv.ParseBool(r.URL.Query().Get("descendants"))

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	sub, err := s.hub.Subscribe(m.Path(), descendants)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	// Tell the client the subscription is live.
	fmt.Fprintf(w, ": watching %s\n\n", m.Path())
	flusher.Flush()

	logger := logging.WithFields(r.Context(), "address", m.Path(), "descendants", descendants)
	logger.Debug("watch opened")
	defer logger.Debug("watch closed")

	heartbeat := time.NewTicker(s.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return

		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()

		case change, ok := <-sub.C():
			if !ok {
				return
			}
			data, err := json.Marshal(change)
			if err != nil {
				logger.Error("encode change failed", "error", err)
				continue
			}
			fmt.Fprintf(w, "id: %s\nevent: change\ndata: %s\n\n", change.ID, data)
			flusher.Flush()
		}
	}
}
