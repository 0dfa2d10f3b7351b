// Package transport carries terminal sessions over WebSocket.
//
// Each WebSocket is one Connection with its own terminal.Registry, so
// session ids only need to be unique per connection. Inbound frames are
// decoded and dispatched on the connection's read loop; outbound events go
// through a bounded queue drained by a single writer goroutine.
//
// Message Types (Client → Server):
//   - create-terminal: {id, cwd?}
//   - input: {id, input}
//   - resize: {id, cols, rows}
//   - destroy-terminal: {id}
//
// Message Types (Server → Client):
//   - created: {id, shell}
//   - output: {id, data}
//   - exit: {id, code}, code is null when unknown
//   - error: {id, error}, id is empty for connection-level errors
//
// Example Usage:
//
//	handler := transport.NewHandler(spawner, cfg, logger, metrics)
//	router.GET("/terminal", handler.HandleConnection)
package transport
