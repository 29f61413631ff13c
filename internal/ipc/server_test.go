package ipc

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-hud/aura/internal/event"
)

type sink struct {
	mu     sync.Mutex
	events []event.AgentEvent
}

func (s *sink) apply(ev event.AgentEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *sink) snapshot() []event.AgentEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]event.AgentEvent(nil), s.events...)
}

func startServer(t *testing.T) (string, *sink, context.CancelFunc) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "aura.sock")
	s := &sink{}
	srv := NewServer(path, s.apply)
	require.NoError(t, srv.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return path, s, cancel
}

func TestPingPong(t *testing.T) {
	path, _, _ := startServer(t)

	client, err := Dial(path)
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Ping())
}

func TestEventFramesReachRegistry(t *testing.T) {
	path, s, _ := startServer(t)

	client, err := Dial(path)
	require.NoError(t, err)
	defer client.Close()

	events := []event.AgentEvent{
		{Type: event.TypeSessionStarted, SessionID: "s1", Agent: event.AgentClaudeCode, CWD: "/u/dev/app"},
		{Type: event.TypeToolStarted, SessionID: "s1", ToolID: "t1", ToolName: "Read", ToolLabel: "main.go"},
		{Type: event.TypeToolCompleted, SessionID: "s1", ToolID: "t1"},
	}
	require.NoError(t, client.SendEvents(events))

	require.Eventually(t, func() bool {
		return len(s.snapshot()) == 3
	}, 2*time.Second, 10*time.Millisecond)

	got := s.snapshot()
	assert.Equal(t, events[0], got[0])
	assert.Equal(t, events[1], got[1])
	assert.Equal(t, events[2], got[2])
}

func TestBadFramesAreSkipped(t *testing.T) {
	path, s, _ := startServer(t)

	conn, err := net.Dial("unix", path)
	require.NoError(t, err)
	defer conn.Close()

	frames := "this is not json\n" +
		`{"msg":"event","type":"no_such_variant","session_id":"s1"}` + "\n" +
		`{"msg":"event","type":"activity"}` + "\n" + // missing session_id
		`{"msg":"wat"}` + "\n" +
		`{"msg":"event","type":"session_started","session_id":"s1","cwd":"/w"}` + "\n"
	_, err = conn.Write([]byte(frames))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(s.snapshot()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, event.TypeSessionStarted, s.snapshot()[0].Type)
}

func TestSocketUnlinkedOnShutdown(t *testing.T) {
	path, _, cancel := startServer(t)

	cancel()
	require.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return os.IsNotExist(err)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSocketPathEnv(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	assert.Equal(t, "/run/user/1000/aura.sock", SocketPath())

	t.Setenv("XDG_RUNTIME_DIR", "")
	assert.Equal(t, "/tmp/aura.sock", SocketPath())
}
