// Package ipc carries agent events from short-lived adapter processes to
// the daemon over a unix domain socket, one JSON frame per line.
package ipc

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/aura-hud/aura/internal/event"
)

// SocketName is the socket filename inside the runtime directory.
const SocketName = "aura.sock"

// Frame message kinds.
const (
	MsgPing  = "ping"
	MsgPong  = "pong"
	MsgEvent = "event"
)

// frame is the wire envelope. Event frames embed the agent event fields
// alongside the msg discriminator.
type frame struct {
	Msg string `json:"msg"`
	event.AgentEvent
}

// SocketPath returns the daemon socket path: $XDG_RUNTIME_DIR/aura.sock,
// falling back to /tmp.
func SocketPath() string {
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		dir = "/tmp"
	}
	return filepath.Join(dir, SocketName)
}

// EncodeEventFrame renders one event as a newline-terminated frame.
func EncodeEventFrame(ev event.AgentEvent) ([]byte, error) {
	data, err := json.Marshal(frame{Msg: MsgEvent, AgentEvent: ev})
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
