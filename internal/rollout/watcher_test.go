package rollout

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-hud/aura/internal/event"
)

type collector struct {
	events []event.AgentEvent
}

func (c *collector) apply(ev event.AgentEvent) {
	c.events = append(c.events, ev)
}

func (c *collector) ofType(t event.Type) []event.AgentEvent {
	var out []event.AgentEvent
	for _, ev := range c.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func writeRollout(t *testing.T, codexHome, name string, lines []string) string {
	t.Helper()
	dir := filepath.Join(codexHome, "sessions", "2026", "08", "05")
	require.NoError(t, os.MkdirAll(dir, 0755))
	path := filepath.Join(dir, name)
	var data []byte
	for _, line := range lines {
		data = append(data, line...)
		data = append(data, '\n')
	}
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func metaLine(id, cwd string) string {
	return fmt.Sprintf(`{"type":"session_meta","payload":{"id":%q,"cwd":%q}}`, id, cwd)
}

func callLine(callID string) string {
	return fmt.Sprintf(`{"type":"response_item","payload":{"type":"function_call","name":"shell","call_id":%q,"arguments":"{}"}}`, callID)
}

func TestBootstrapReplaysBoundedTail(t *testing.T) {
	home := t.TempDir()
	lines := []string{metaLine("sess-1", "/w")}
	for i := 0; i < 100; i++ {
		lines = append(lines, callLine(fmt.Sprintf("call_%d", i)))
	}
	writeRollout(t, home, "rollout-2026-08-05T10-00-00-a3953a61-af96-4bfc-8a05-f8355309f025.jsonl", lines)

	c := &collector{}
	w := New(home, c.apply)
	w.scan()

	started := c.ofType(event.TypeSessionStarted)
	require.Len(t, started, 1)
	assert.Equal(t, "sess-1", started[0].SessionID)
	assert.Equal(t, "/w", started[0].CWD)

	replayed := c.ofType(event.TypeToolStarted)
	require.Len(t, replayed, replayLines)
	assert.Equal(t, "call_96", replayed[0].ToolID)
	assert.Equal(t, "call_99", replayed[3].ToolID)
}

func TestOldFilesWatchedPassively(t *testing.T) {
	home := t.TempDir()
	path := writeRollout(t, home, "rollout-2026-08-05T10-00-00-a3953a61-af96-4bfc-8a05-f8355309f025.jsonl",
		[]string{metaLine("sess-1", "/w"), callLine("call_0")})
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))

	c := &collector{}
	w := New(home, c.apply)
	w.scan()
	assert.Empty(t, c.events, "stale file must not bootstrap")

	// First append activates the file from its recorded offset.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString(callLine("call_1") + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	w.scan()
	started := c.ofType(event.TypeToolStarted)
	require.Len(t, started, 1)
	assert.Equal(t, "call_1", started[0].ToolID)
}

func TestTailBuffersPartialLines(t *testing.T) {
	home := t.TempDir()
	path := writeRollout(t, home, "rollout-2026-08-05T10-00-00-a3953a61-af96-4bfc-8a05-f8355309f025.jsonl",
		[]string{metaLine("sess-1", "/w")})

	c := &collector{}
	w := New(home, c.apply)
	w.scan()
	before := len(c.events)

	half := callLine("call_x")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString(half[:20])
	require.NoError(t, err)
	require.NoError(t, f.Close())

	w.scan()
	assert.Len(t, c.events, before, "incomplete line must not be parsed")

	f, err = os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString(half[20:] + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	w.scan()
	started := c.ofType(event.TypeToolStarted)
	require.Len(t, started, 1)
	assert.Equal(t, "call_x", started[0].ToolID)
}

func TestSessionIDFallsBackToFilename(t *testing.T) {
	home := t.TempDir()
	writeRollout(t, home, "rollout-2026-08-05T10-00-00-a3953a61-af96-4bfc-8a05-f8355309f025.jsonl",
		[]string{callLine("call_0")})

	c := &collector{}
	w := New(home, c.apply)
	w.scan()

	started := c.ofType(event.TypeSessionStarted)
	require.Len(t, started, 1)
	assert.Equal(t, "a3953a61-af96-4bfc-8a05-f8355309f025", started[0].SessionID)
}

func TestPreviewNameNeverOverwrites(t *testing.T) {
	home := t.TempDir()
	path := writeRollout(t, home, "rollout-2026-08-05T10-00-00-a3953a61-af96-4bfc-8a05-f8355309f025.jsonl",
		[]string{metaLine("sess-1", "/w")})

	c := &collector{}
	w := New(home, c.apply)
	w.scan()

	appendLine := func(line string) {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
		require.NoError(t, err)
		_, err = f.WriteString(line + "\n")
		require.NoError(t, err)
		require.NoError(t, f.Close())
		w.scan()
	}

	appendLine(`{"type":"event_msg","payload":{"type":"turn_started","preview":"first preview"}}`)
	appendLine(`{"type":"event_msg","payload":{"type":"turn_started","preview":"second preview"}}`)

	names := c.ofType(event.TypeSessionNameUpdated)
	require.Len(t, names, 1)
	assert.Equal(t, "first preview", names[0].Name)

	// An explicit set-name always lands.
	appendLine(`{"type":"response_item","payload":{"type":"function_call","name":"shell","call_id":"c9","arguments":{"command":"aura set-name \"Chosen\""}}}`)
	names = c.ofType(event.TypeSessionNameUpdated)
	require.Len(t, names, 2)
	assert.Equal(t, "Chosen", names[1].Name)
}

func TestMalformedLinesSkipped(t *testing.T) {
	home := t.TempDir()
	writeRollout(t, home, "rollout-2026-08-05T10-00-00-a3953a61-af96-4bfc-8a05-f8355309f025.jsonl",
		[]string{metaLine("sess-1", "/w"), "{{{{ not json", callLine("call_ok")})

	c := &collector{}
	w := New(home, c.apply)
	w.scan()

	started := c.ofType(event.TypeToolStarted)
	require.Len(t, started, 1)
	assert.Equal(t, "call_ok", started[0].ToolID)
}
