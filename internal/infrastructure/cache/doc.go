// Package cache provides the latest-reading cache client.
//
// The "hot path" of the dashboard asks for each device's latest reading.
// With readings.cache enabled those answers are served from Redis (or
// Valkey) under keys like reading:latest:{device}, written through on
// every append. The client is guarded by a circuit breaker; the reading
// store treats every cache error as a miss and falls back to the database.
package cache
