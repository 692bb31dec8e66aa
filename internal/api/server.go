package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/tempwatch-core/internal/broadcast"
	"github.com/nerrad567/tempwatch-core/internal/device"
	"github.com/nerrad567/tempwatch-core/internal/infrastructure/config"
	"github.com/nerrad567/tempwatch-core/internal/infrastructure/database"
	"github.com/nerrad567/tempwatch-core/internal/infrastructure/logging"
	"github.com/nerrad567/tempwatch-core/internal/ingest"
	"github.com/nerrad567/tempwatch-core/internal/reading"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// defaultKeepalive is the live stream keep-alive period when the config
// leaves it unset.
const defaultKeepalive = 15 * time.Second

// HealthChecker is implemented by every component the health endpoint checks.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// ConnectionState reports whether an optional client is connected.
// mqtt.Client and influxdb.Client satisfy it.
type ConnectionState interface {
	IsConnected() bool
}

// Deps holds the dependencies required by the API server.
//
// Registry, Store, Ingest and Hub are required. DB, MQTT, Influx and Cache
// are optional and only feed health and metrics.
type Deps struct {
	Config   config.APIConfig
	Live     config.LiveConfig
	WS       config.WebSocketConfig
	Logger   *logging.Logger
	Registry *device.Registry
	Store    reading.Store
	Ingest   ingest.Writer
	Hub      *broadcast.Hub
	DB       *database.DB
	MQTT     OptionalClient
	Influx   OptionalClient
	Cache    HealthChecker
	Version  string
}

// OptionalClient is a connection the server reports on but can run without.
type OptionalClient interface {
	HealthChecker
	ConnectionState
}

// namedCheck is one entry of the health report.
type namedCheck struct {
	name     string
	check    HealthChecker
	required bool
}

// Server is the HTTP API server for tempwatch.
//
// It manages the HTTP listener, routes and middleware. The server is
// created with New() and started with Start().
type Server struct {
	cfg       config.APIConfig
	wsCfg     config.WebSocketConfig
	keepalive time.Duration
	logger    *logging.Logger
	registry  *device.Registry
	store     reading.Store
	ingest    ingest.Writer
	hub       *broadcast.Hub
	db        *database.DB
	mqtt      OptionalClient
	influx    OptionalClient
	checks    []namedCheck
	version   string
	startTime time.Time
	server    *http.Server
	handler   http.Handler
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("device registry is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("reading store is required")
	}
	if deps.Ingest == nil {
		return nil, fmt.Errorf("ingest service is required")
	}
	if deps.Hub == nil {
		return nil, fmt.Errorf("broadcast hub is required")
	}

	keepalive := time.Duration(deps.Live.KeepaliveInterval) * time.Second
	if keepalive <= 0 {
		keepalive = defaultKeepalive
	}

	s := &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		keepalive: keepalive,
		logger:    deps.Logger,
		registry:  deps.Registry,
		store:     deps.Store,
		ingest:    deps.Ingest,
		hub:       deps.Hub,
		db:        deps.DB,
		mqtt:      deps.MQTT,
		influx:    deps.Influx,
		version:   deps.Version,
		startTime: time.Now(),
	}

	if hc, ok := deps.Store.(HealthChecker); ok {
		s.checks = append(s.checks, namedCheck{name: "storage", check: hc, required: true})
	}
	if deps.DB != nil {
		s.checks = append(s.checks, namedCheck{name: "database", check: deps.DB, required: true})
	}
	if deps.MQTT != nil {
		s.checks = append(s.checks, namedCheck{name: "mqtt", check: deps.MQTT})
	}
	if deps.Influx != nil {
		s.checks = append(s.checks, namedCheck{name: "influxdb", check: deps.Influx})
	}
	if deps.Cache != nil {
		s.checks = append(s.checks, namedCheck{name: "cache", check: deps.Cache})
	}

	s.handler = s.buildRouter()
	return s, nil
}

// Handler returns the router with the full middleware stack.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins listening for HTTP connections in a background goroutine.
// The server can be stopped with Close().
func (s *Server) Start(_ context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.handler,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// Live streams are ended first by closing the hub, then in-flight requests
// get up to 10 seconds to complete.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	s.hub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
