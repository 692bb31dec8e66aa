package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// keepaliveFrame is an SSE comment line. Clients ignore it; writing it
// detects dead peers.
const keepaliveFrame = ": ping\n\n"

// handleLive streams update events as Server-Sent Events.
//
// The first frame is the connected event. Each update is framed as
// "data: <json>\n\n". The stream ends when the client goes away, a write
// fails, or the hub drops the subscriber.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	sub, err := s.hub.Subscribe()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "live updates unavailable")
		return
	}
	defer s.hub.Unsubscribe(sub)

	rc := http.NewResponseController(w)
	// The server write timeout would otherwise cut every stream.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		s.logger.Warn("failed to clear write deadline for live stream", "error", err)
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		s.logger.Warn("live stream does not support flushing", "error", err)
		return
	}

	s.logger.Debug("live subscriber connected",
		"subscriber", sub.ID(),
		"remote", r.RemoteAddr,
		"subscribers", s.hub.Count(),
	)
	defer func() {
		s.logger.Debug("live subscriber disconnected",
			"subscriber", sub.ID(),
			"duration_s", time.Since(sub.ConnectedAt()).Seconds(),
		)
	}()

	ticker := time.NewTicker(s.keepalive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-sub.Done():
			return
		case data := <-sub.Messages():
			if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		case <-ticker.C:
			if _, err := io.WriteString(w, keepaliveFrame); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}
