package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/tempwatch-core/internal/metrics"
)

// healthCheckTimeout bounds the whole health check.
const healthCheckTimeout = 3 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware())
	r.Use(s.bodySizeLimitMiddleware)

	// Prometheus exposition
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(s.metricsMiddleware)

		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)

		// Ingestion
		r.Post("/write", s.handleWrite)

		// Per-device readings
		r.Route("/temperature/{device}", func(r chi.Router) {
			r.Get("/", s.handleLatest)
			r.Get("/history", s.handleHistory)
			r.Delete("/history", s.handleResetHistory)
		})

		// Device registry
		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)
			r.Post("/", s.handleRegisterDevice)
			r.Delete("/{device}", s.handleRemoveDevice)
		})

		r.Get("/dashboard", s.handleDashboard)

		// Live streams
		r.Get("/live", s.handleLive)
		r.Get(s.wsPath(), s.handleWebSocket)
	})

	return r
}

// wsPath returns the WebSocket route under /api.
func (s *Server) wsPath() string {
	if s.wsCfg.Path == "" {
		return "/ws"
	}
	return s.wsCfg.Path
}

// handleHealth checks storage and the optional clients.
//
// A failing storage or database check answers 503. A failing optional
// client only marks the status as degraded.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	status := "ok"
	code := http.StatusOK
	checks := make(map[string]string, len(s.checks))

	for _, c := range s.checks {
		if err := c.check.HealthCheck(ctx); err != nil {
			checks[c.name] = err.Error()
			if c.required {
				status = "unhealthy"
				code = http.StatusServiceUnavailable
			} else if status == "ok" {
				status = "degraded"
			}
			continue
		}
		checks[c.name] = "ok"
	}

	writeJSON(w, code, map[string]any{
		"status":  status,
		"version": s.version,
		"checks":  checks,
	})
}
