// Package api implements the HTTP API and live update endpoints for tempwatch.
//
// This package provides:
//   - Reading endpoints: write, latest, history and reset per device
//   - Device registry endpoints: list, register and remove
//   - A dashboard aggregate with mold-risk grading
//   - Live update streams over Server-Sent Events and WebSocket
//   - Health, JSON metrics and Prometheus exposition
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Architecture
//
// Sensors POST readings to /api/write. The ingest service stores each one
// in the device's own table and publishes it to the broadcast hub, which
// fans it out to every subscriber of /api/live and /api/ws. Dashboards
// read history through the reading endpoints and keep a live stream open
// for new values.
//
// # Live Streams
//
// Every stream starts with a "connected" event followed by "update" events
// in publish order. There is no replay: a subscriber only sees readings
// published after it subscribed. A stream whose buffer fills is dropped by
// the hub and the client is expected to reconnect.
//
// The server operates without MQTT, InfluxDB or Redis. Their health is
// reported but does not fail the health check.
package api
