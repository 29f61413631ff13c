package rollout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-hud/aura/internal/event"
)

func TestSessionIDFromFilename(t *testing.T) {
	assert.Equal(t,
		"a3953a61-af96-4bfc-8a05-f8355309f025",
		SessionIDFromFilename("rollout-2025-08-10T12-50-53-a3953a61-af96-4bfc-8a05-f8355309f025.jsonl"))
	assert.Empty(t, SessionIDFromFilename("not-a-rollout.jsonl"))
	assert.Empty(t, SessionIDFromFilename(""))
}

func TestParseMeta(t *testing.T) {
	id, cwd, ok := ParseMeta([]byte(`{"type":"session_meta","payload":{"id":"sess-1","cwd":"/u/dev/app"}}`))
	require.True(t, ok)
	assert.Equal(t, "sess-1", id)
	assert.Equal(t, "/u/dev/app", cwd)

	// Legacy form without the payload wrapper.
	id, cwd, ok = ParseMeta([]byte(`{"type":"session_meta","id":"sess-2"}`))
	require.True(t, ok)
	assert.Equal(t, "sess-2", id)
	assert.Empty(t, cwd)

	_, _, ok = ParseMeta([]byte(`{"type":"event_msg","payload":{}}`))
	assert.False(t, ok)
	_, _, ok = ParseMeta([]byte(`not json`))
	assert.False(t, ok)
}

func TestParseLineSessionMeta(t *testing.T) {
	events := ParseLine([]byte(`{"type":"session_meta","payload":{"id":"sess-1","cwd":"/w"}}`), "fallback", "")
	require.Len(t, events, 1)
	assert.Equal(t, event.TypeSessionStarted, events[0].Event.Type)
	assert.Equal(t, "sess-1", events[0].Event.SessionID)
	assert.Equal(t, "/w", events[0].Event.CWD)
	assert.Equal(t, event.AgentCodex, events[0].Event.Agent)
}

func TestParseLineFunctionCall(t *testing.T) {
	line := `{"type":"response_item","payload":{"type":"function_call","name":"shell","call_id":"call_1","arguments":"{\"command\":[\"bash\",\"-lc\",\"ls -la\"]}"}}`
	events := ParseLine([]byte(line), "sess-1", "/w")
	require.Len(t, events, 1)
	ev := events[0].Event
	assert.Equal(t, event.TypeToolStarted, ev.Type)
	assert.Equal(t, "call_1", ev.ToolID)
	assert.Equal(t, "shell", ev.ToolName)
	assert.Equal(t, "bash -lc ls -la", ev.ToolLabel)
}

func TestParseLineFunctionCallOutput(t *testing.T) {
	line := `{"type":"response_item","payload":{"type":"function_call_output","call_id":"call_1","output":"ok"}}`
	events := ParseLine([]byte(line), "sess-1", "/w")
	require.Len(t, events, 1)
	assert.Equal(t, event.TypeToolCompleted, events[0].Event.Type)
	assert.Equal(t, "call_1", events[0].Event.ToolID)
}

func TestParseLineLegacyBareItems(t *testing.T) {
	events := ParseLine([]byte(`{"type":"function_call","name":"shell","id":"fc_1","arguments":"{}"}`), "sess-1", "")
	require.Len(t, events, 1)
	assert.Equal(t, event.TypeToolStarted, events[0].Event.Type)
	assert.Equal(t, "fc_1", events[0].Event.ToolID)

	events = ParseLine([]byte(`{"type":"function_call_output","call_id":"fc_1","output":"{}"}`), "sess-1", "")
	require.Len(t, events, 1)
	assert.Equal(t, event.TypeToolCompleted, events[0].Event.Type)
}

func TestParseLineSetNameCommand(t *testing.T) {
	line := `{"type":"response_item","payload":{"type":"function_call","name":"shell","call_id":"c1","arguments":{"command":"aura set-name \"My Task\""}}}`
	events := ParseLine([]byte(line), "sess-1", "")
	require.Len(t, events, 2)
	assert.Equal(t, event.TypeToolStarted, events[0].Event.Type)
	assert.Equal(t, event.TypeSessionNameUpdated, events[1].Event.Type)
	assert.Equal(t, "My Task", events[1].Event.Name)
	assert.False(t, events[1].NamePreview)
}

func TestParseLineEventMsgs(t *testing.T) {
	tests := []struct {
		payloadType string
		want        event.Type
	}{
		{"task_complete", event.TypeIdle},
		{"request_user_input", event.TypeWaitingForInput},
		{"context_compacted", event.TypeCompacting},
	}
	for _, tt := range tests {
		line := `{"type":"event_msg","payload":{"type":"` + tt.payloadType + `"}}`
		events := ParseLine([]byte(line), "sess-1", "")
		require.Len(t, events, 1, tt.payloadType)
		assert.Equal(t, tt.want, events[0].Event.Type)
	}
}

func TestParseLineTurnStartedPreview(t *testing.T) {
	line := `{"type":"event_msg","payload":{"type":"turn_started","preview":"Refactor the parser"}}`
	events := ParseLine([]byte(line), "sess-1", "")
	require.Len(t, events, 1)
	assert.Equal(t, event.TypeSessionNameUpdated, events[0].Event.Type)
	assert.Equal(t, "Refactor the parser", events[0].Event.Name)
	assert.True(t, events[0].NamePreview)

	// No preview text, no event.
	assert.Empty(t, ParseLine([]byte(`{"type":"event_msg","payload":{"type":"turn_started"}}`), "sess-1", ""))
}

func TestParseLineIgnoresUnknownAndMalformed(t *testing.T) {
	assert.Empty(t, ParseLine([]byte(`{"type":"reasoning","payload":{}}`), "sess-1", ""))
	assert.Empty(t, ParseLine([]byte(`{"record_type":"state"}`), "sess-1", ""))
	assert.Empty(t, ParseLine([]byte(`not json at all`), "sess-1", ""))
	assert.Empty(t, ParseLine([]byte(`{"type":"response_item","payload":{"type":"function_call","name":"shell"}}`), "sess-1", ""), "missing call id")
	assert.Empty(t, ParseLine([]byte(`{"type":"event_msg","payload":{"type":"task_complete"}}`), "", ""), "no session id")
}

func TestCommandFromArguments(t *testing.T) {
	assert.Equal(t, "ls -la", commandFromArguments([]byte(`{"command":"ls -la"}`)))
	assert.Equal(t, "ls -la", commandFromArguments([]byte(`{"cmd":"ls -la"}`)))
	assert.Equal(t, "bash -lc ls", commandFromArguments([]byte(`{"command":["bash","-lc","ls"]}`)))
	assert.Equal(t, "ls", commandFromArguments([]byte(`"{\"command\":\"ls\"}"`)))
	assert.Empty(t, commandFromArguments([]byte(`{"other":"x"}`)))
	assert.Empty(t, commandFromArguments(nil))
}
