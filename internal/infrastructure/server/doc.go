// Package server assembles the terminal HTTP server.
//
// Routes:
//   - GET /            service banner
//   - GET /health      health and open connection count
//   - GET /metrics     Prometheus metrics
//   - GET /terminal    WebSocket upgrade (path from WS_PATH)
//
// Middleware runs in order: recovery, request metrics, CORS, per-IP rate
// limiting.
package server
