// Package id provides ID generation for terminal sessions and tabs.
//
// IDs are prefixed ULIDs ("term_01H...") so they sort by creation time and
// read well in logs. The client allocates session ids itself; the server
// treats them as opaque strings, so uniqueness only has to hold within one
// client connection.
package id

import (
	"crypto/rand"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// TerminalID identifies a terminal session within one connection
type TerminalID string

// TabID identifies a client-side terminal tab
type TabID string

const (
	TerminalPrefix = "term"
	TabPrefix      = "tab"
	RequestPrefix  = "req"
)

// Generator generates prefixed ULIDs. Safe for concurrent use.
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the process-wide generator
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = &Generator{entropy: ulid.Monotonic(rand.Reader, 0)}
	})
	return defaultGenerator
}

// GenerateWithPrefix creates a "<prefix>_<ulid>" string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	g.entropyMu.Lock()
	u := ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
	g.entropyMu.Unlock()
	return prefix + "_" + u.String()
}

// NewTerminalID generates a new terminal session ID
func NewTerminalID() TerminalID {
	return TerminalID(Default().GenerateWithPrefix(TerminalPrefix))
}

// NewTabID generates a new tab ID
func NewTabID() TabID {
	return TabID(Default().GenerateWithPrefix(TabPrefix))
}

// NewRequestID generates an id for one HTTP request or WebSocket upgrade
func NewRequestID() string {
	return Default().GenerateWithPrefix(RequestPrefix)
}

func (id TerminalID) String() string { return string(id) }
func (id TabID) String() string      { return string(id) }

// IsPrefixed reports whether id has the form "<prefix>_<ulid>".
func IsPrefixed(id, prefix string) bool {
	rest, ok := strings.CutPrefix(id, prefix+"_")
	if !ok {
		return false
	}
	_, err := ulid.ParseStrict(rest)
	return err == nil
}
