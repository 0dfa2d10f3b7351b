package transport

import (
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
)

// Client → server event types.
const (
	EventCreateTerminal  = "create-terminal"
	EventInput           = "input"
	EventResize          = "resize"
	EventDestroyTerminal = "destroy-terminal"
)

// Server → client event types.
const (
	EventCreated = "created"
	EventOutput  = "output"
	EventExit    = "exit"
	EventError   = "error"
)

// codec validates UTF-8 and escapes like encoding/json so raw shell output
// always produces a well-formed frame.
var codec = sonic.ConfigStd

var errMissingType = errors.New("frame has no type")

// ClientMessage is any frame sent by a client. Fields not used by Type are
// left zero.
type ClientMessage struct {
	Type  string `json:"type"`
	ID    string `json:"id"`
	Cwd   string `json:"cwd,omitempty"`
	Input string `json:"input,omitempty"`
	Cols  int    `json:"cols,omitempty"`
	Rows  int    `json:"rows,omitempty"`
}

// ServerMessage is the decoded form of any server frame, used by clients.
type ServerMessage struct {
	Type  string `json:"type"`
	ID    string `json:"id"`
	Shell string `json:"shell,omitempty"`
	Data  string `json:"data,omitempty"`
	Code  *int   `json:"code,omitempty"`
	Error string `json:"error,omitempty"`
}

// CreatedEvent reports a live session.
type CreatedEvent struct {
	Type  string `json:"type"`
	ID    string `json:"id"`
	Shell string `json:"shell"`
}

// OutputEvent carries shell output.
type OutputEvent struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Data string `json:"data"`
}

// ExitEvent reports that the shell ended. Code is encoded as null when the
// process was killed or its status is unknown.
type ExitEvent struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Code *int   `json:"code"`
}

// ErrorEvent reports a non-fatal per-session failure.
type ErrorEvent struct {
	Type  string `json:"type"`
	ID    string `json:"id"`
	Error string `json:"error"`
}

// Create builds a create-terminal request.
func Create(id, cwd string) ClientMessage {
	return ClientMessage{Type: EventCreateTerminal, ID: id, Cwd: cwd}
}

// Input builds an input request.
func Input(id, data string) ClientMessage {
	return ClientMessage{Type: EventInput, ID: id, Input: data}
}

// Resize builds a resize request.
func Resize(id string, cols, rows int) ClientMessage {
	return ClientMessage{Type: EventResize, ID: id, Cols: cols, Rows: rows}
}

// Destroy builds a destroy-terminal request.
func Destroy(id string) ClientMessage {
	return ClientMessage{Type: EventDestroyTerminal, ID: id}
}

// Encode marshals a frame.
func Encode(v any) ([]byte, error) {
	data, err := codec.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return data, nil
}

// DecodeClientMessage parses a client frame.
func DecodeClientMessage(data []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := codec.Unmarshal(data, &msg); err != nil {
		return ClientMessage{}, fmt.Errorf("decode client frame: %w", err)
	}
	if msg.Type == "" {
		return ClientMessage{}, errMissingType
	}
	return msg, nil
}

// DecodeServerMessage parses a server frame.
func DecodeServerMessage(data []byte) (ServerMessage, error) {
	var msg ServerMessage
	if err := codec.Unmarshal(data, &msg); err != nil {
		return ServerMessage{}, fmt.Errorf("decode server frame: %w", err)
	}
	if msg.Type == "" {
		return ServerMessage{}, errMissingType
	}
	return msg, nil
}
