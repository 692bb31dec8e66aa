package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/tempwatch-core/internal/device"
)

// registerDeviceRequest is the body of POST /api/devices.
type registerDeviceRequest struct {
	Name     string `json:"name"`
	Campus   string `json:"campus"`
	Location string `json:"location"`
}

// handleListDevices returns all devices in campus, location order.
// ?campus= restricts the list to one campus.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	var (
		devices []device.Device
		err     error
	)
	if campus := r.URL.Query().Get("campus"); campus != "" {
		devices, err = s.registry.ListByCampus(r.Context(), campus)
	} else {
		devices, err = s.registry.List(r.Context())
	}
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"devices": devices,
		"count":   len(devices),
	})
}

// handleRegisterDevice registers a device and provisions its reading table.
func (s *Server) handleRegisterDevice(w http.ResponseWriter, r *http.Request) {
	var req registerDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	dev, err := s.registry.Register(r.Context(), req.Name, req.Campus, req.Location)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.logger.Info("device registered",
		"device", dev.Name,
		"campus", dev.Campus,
		"location", dev.Location,
	)
	writeJSON(w, http.StatusCreated, dev)
}

// handleRemoveDevice deletes a device and drops its readings.
// The name is matched exactly, as registration is strict.
func (s *Server) handleRemoveDevice(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "device")

	if err := s.registry.Remove(r.Context(), name); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.logger.Info("device removed", "device", name)
	w.WriteHeader(http.StatusNoContent)
}
