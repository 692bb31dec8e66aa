// Package logging builds the structured logger shared by every tempwatch
// component, on top of log/slog.
//
// Entries carry service and version attributes. Components take a child
// logger from Component so their lines can be filtered, for example
// component=broadcast or component=ingest.
//
// Attributes named password, token or secret are replaced with
// [REDACTED], and passwords embedded in URL values are masked, so
// connection strings from the config can be logged directly.
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Usage:
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Component("ingest").Info("reading stored", "device", name, "id", r.ID)
package logging
