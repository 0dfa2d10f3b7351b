// Package client is the client side of the terminal protocol.
//
// A Multiplexer owns the tabs of one client window. Each Tab binds a
// session id to an Instance, which renders onto a Screen and either
// forwards keystrokes to a remote shell (live mode) or interprets them with
// a LineEditor running a small built-in command table (local mode, used
// offline). Conn is the WebSocket transport used in live mode.
//
// Example Usage:
//
//	conn, err := client.Dial(ctx, "ws://localhost:8000/terminal", nil, logger)
//	mux, err := client.NewMultiplexer(conn, client.Options{Cols: 120, Rows: 40})
//	go mux.Run(ctx, conn.Events())
//	mux.SendInput([]byte("ls\r"))
package client
