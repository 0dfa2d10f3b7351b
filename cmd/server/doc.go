// Package main is the entry point for the terminal server.
//
// The server spawns one OS shell per terminal session and streams its I/O
// over a WebSocket. Each WebSocket owns its sessions; they are killed when
// the socket closes.
//
// Configuration:
//   - Environment variables (12-factor), see internal/infrastructure/config
//   - CLI flags (override env vars)
//   - Defaults for development
//
// Usage:
//
//	# Production mode
//	./server -port 8000
//
//	# Development mode (colored logs)
//	./server -dev
//
//	# Real pseudo-terminals, resize takes effect (Unix only)
//	./server -pty
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown, every shell is killed
package main
