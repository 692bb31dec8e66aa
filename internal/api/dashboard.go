package api

import (
	"errors"
	"net/http"

	"github.com/nerrad567/tempwatch-core/internal/device"
	"github.com/nerrad567/tempwatch-core/internal/reading"
)

// DashboardEntry is one device on the dashboard.
// Latest and MoldRisk are null for a device that has not reported yet, or
// whose latest reading could not be read.
type DashboardEntry struct {
	Device   device.Device    `json:"device"`
	Latest   *reading.Reading `json:"latest"`
	MoldRisk *reading.Risk    `json:"mold_risk"`
}

// handleDashboard returns the latest reading of every device as a list,
// optionally restricted to one campus with ?filter=.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	devices, err := s.registry.ListByCampus(ctx, r.URL.Query().Get("filter"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	entries := make([]DashboardEntry, 0, len(devices))
	for _, d := range devices {
		entry := DashboardEntry{Device: d}

		latest, err := s.store.Latest(ctx, d.Name)
		switch {
		case err == nil:
			risk := reading.MoldRisk(latest.Temperature, latest.Humidity)
			entry.Latest = &latest
			entry.MoldRisk = &risk
		case errors.Is(err, reading.ErrNoReadings), errors.Is(err, reading.ErrUnknownDevice):
		default:
			s.logger.Warn("dashboard latest reading unavailable",
				"device", d.Name,
				"error", err,
				"request_id", ctx.Value(ctxKeyRequestID),
			)
		}

		entries = append(entries, entry)
	}

	writeJSON(w, http.StatusOK, entries)
}
