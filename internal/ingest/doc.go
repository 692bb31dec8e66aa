// Package ingest turns sensor write requests into stored readings and live
// updates.
//
// Service.Write is the single write path: the HTTP handler and the MQTT
// source both call it. One write runs validate, normalise the device name,
// look the device up, provision and append, then publish. Nothing touches
// storage until the request has passed validation and the name has passed
// the identifier check.
//
// After a durable append the reading is published to the broadcast hub and
// handed to any configured sinks (InfluxDB, MQTT). Those steps are
// best-effort: a failure there is logged and counted, never returned.
package ingest
