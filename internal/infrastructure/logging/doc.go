// Package logging provides structured logging using uber/zap.
//
// Two modes are supported:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Terminal components log with the fields "conn_id" and "session_id" so one
// connection's sessions can be followed across the log stream.
//
// Example Usage:
//
//	logger, _ := logging.FromLevel("info", false)
//	logger.Info("Server starting", zap.String("port", "8000"))
//	logger.ForSession(id).Warn("Input for unknown session")
package logging
