// Package metrics defines the Prometheus collectors exported on /metrics.
//
// Collectors are package-level and registered with the default registry in
// init, so any package can record without plumbing:
//
//	metrics.ReadingsWritten.WithLabelValues(metrics.ResultOK).Inc()
//
//	timer := metrics.NewTimer()
//	defer timer.ObserveDuration(metrics.IngestDuration)
package metrics
