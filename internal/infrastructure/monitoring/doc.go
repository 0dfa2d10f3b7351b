/*
Package monitoring provides Prometheus metrics for the terminal server.

# Overview

Each Metrics value owns a private registry, so tests and embedded servers
never collide on global registration. The server exposes it on /metrics.

# Metrics

- HTTP requests by route template and status
- Open WebSocket connections and protocol events by direction/type
- Live sessions, spawns, spawn failures by kind, spawn latency
- Bytes forwarded in each direction

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
*/
package monitoring
