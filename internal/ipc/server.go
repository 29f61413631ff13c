package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"

	"github.com/google/uuid"

	"github.com/aura-hud/aura/internal/event"
)

// maxFrameBytes bounds a single line frame. Hook payloads are small; this
// mainly guards against a runaway peer.
const maxFrameBytes = 1 << 20

// Server accepts adapter connections and applies decoded events.
type Server struct {
	path     string
	listener net.Listener
	apply    func(event.AgentEvent)
}

// NewServer prepares a server that listens at path and dispatches each
// decoded event through apply.
func NewServer(path string, apply func(event.AgentEvent)) *Server {
	return &Server{path: path, apply: apply}
}

// Listen binds the unix socket, replacing any stale socket file left by a
// previous daemon.
func (s *Server) Listen() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing stale socket %s: %w", s.path, err)
	}
	ln, err := net.Listen("unix", s.path)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.path, err)
	}
	s.listener = ln
	slog.Info("ipc listening", "path", s.path)
	return nil
}

// Serve accepts connections until the context is cancelled, then unlinks
// the socket file. Peer errors never stop the server.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		return fmt.Errorf("server not listening")
	}

	go func() {
		<-ctx.Done()
		s.listener.Close()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				_ = os.Remove(s.path)
				return nil
			}
			slog.Warn("ipc accept error", "error", err)
			continue
		}
		go s.handleConn(conn)
	}
}

// handleConn reads newline-delimited frames until the peer closes. A frame
// that fails to decode is skipped; the connection stays alive.
func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	connID := uuid.NewString()
	slog.Debug("ipc connection opened", "conn", connID)

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), maxFrameBytes)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var envelope struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(line, &envelope); err != nil {
			slog.Debug("ipc frame decode error, skipping", "conn", connID, "error", err)
			continue
		}

		switch envelope.Msg {
		case MsgPing:
			if _, err := conn.Write([]byte(`{"msg":"pong"}` + "\n")); err != nil {
				slog.Debug("ipc pong write failed", "conn", connID, "error", err)
				return
			}
		case MsgEvent:
			ev, err := event.Decode(line)
			if err != nil {
				slog.Debug("ipc event rejected", "conn", connID, "error", err)
				continue
			}
			s.apply(ev)
		default:
			slog.Debug("ipc unknown frame, skipping", "conn", connID, "msg", envelope.Msg)
		}
	}
	if err := scanner.Err(); err != nil {
		slog.Debug("ipc connection read error", "conn", connID, "error", err)
	}
	slog.Debug("ipc connection closed", "conn", connID)
}
