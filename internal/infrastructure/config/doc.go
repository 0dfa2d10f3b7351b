// Package config provides 12-factor configuration for the terminal server.
//
// Configuration is loaded from environment variables with defaults suitable
// for local development. The -port flag of cmd/server overrides PORT.
//
// Configuration Sections:
//   - Server: HTTP listen address (port, host)
//   - Terminal: default working directory, shell override, PTY mode, session cap
//   - WebSocket: upgrade path, frame limits, send queue depth, keepalive
//   - Logging: log level and output format
//   - RateLimit: per-IP rate limiting of upgrade requests
//
// Environment Variables:
//   - PORT, HOST
//   - TERMINAL_DEFAULT_CWD, TERMINAL_SHELL, TERMINAL_PTY, TERMINAL_MAX_SESSIONS
//   - WS_PATH, WS_MAX_MESSAGE_SIZE, WS_SEND_QUEUE, WS_PING_INTERVAL, WS_ALLOWED_ORIGINS
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
package config
