package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/tempwatch-core/internal/ident"
	"github.com/nerrad567/tempwatch-core/internal/ingest"
	"github.com/nerrad567/tempwatch-core/internal/reading"
)

// writeResponse is the body of a successful POST /api/write.
type writeResponse struct {
	Message string          `json:"message"`
	Device  string          `json:"device"`
	Reading reading.Reading `json:"reading"`
}

// handleWrite stores one sensor reading and publishes it to live streams.
func (s *Server) handleWrite(w http.ResponseWriter, r *http.Request) {
	var req ingest.WriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	res, err := s.ingest.Write(r.Context(), req)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, writeResponse{
		Message: "reading stored",
		Device:  res.Device,
		Reading: res.Reading,
	})
}

// handleLatest returns the most recent reading of a device.
func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	name, ok := s.deviceParam(w, r)
	if !ok {
		return
	}

	latest, err := s.store.Latest(r.Context(), name)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, latest)
}

// handleHistory returns a device's readings newest-first, optionally
// restricted to ?date=YYYY-MM-DD.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	name, ok := s.deviceParam(w, r)
	if !ok {
		return
	}

	history, err := s.store.History(r.Context(), name, r.URL.Query().Get("date"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	if history == nil {
		history = []reading.Reading{}
	}
	writeJSON(w, http.StatusOK, history)
}

// handleResetHistory deletes every reading of a device and keeps its table.
func (s *Server) handleResetHistory(w http.ResponseWriter, r *http.Request) {
	name, ok := s.deviceParam(w, r)
	if !ok {
		return
	}

	if err := s.store.Reset(r.Context(), name); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.logger.Info("reading history reset", "device", name)
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "history reset",
		"device":  name,
	})
}

// deviceParam normalizes the {device} URL parameter the same way writes
// are normalized. On failure it writes the error response.
func (s *Server) deviceParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	name, err := ident.Normalize(chi.URLParam(r, "device"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return "", false
	}
	return name, true
}
