// Package event defines the normalized agent event model. Every adapter
// (the Claude Code hook parser, the Codex rollout watcher) reduces its
// vendor-specific input to these events; the registry consumes nothing else.
package event

import (
	"encoding/json"
	"fmt"
)

// AgentKind identifies which agent produced an event.
type AgentKind string

const (
	AgentClaudeCode AgentKind = "claude_code"
	AgentCodex      AgentKind = "codex"
)

// Type discriminates the closed set of event variants.
type Type string

const (
	TypeSessionStarted     Type = "session_started"
	TypeToolStarted        Type = "tool_started"
	TypeToolCompleted      Type = "tool_completed"
	TypeActivity           Type = "activity"
	TypeIdle               Type = "idle"
	TypeNeedsAttention     Type = "needs_attention"
	TypeWaitingForInput    Type = "waiting_for_input"
	TypeCompacting         Type = "compacting"
	TypeSessionNameUpdated Type = "session_name_updated"
	TypeSessionEnded       Type = "session_ended"
)

// knownTypes is the closed variant set; anything else is dropped at decode.
var knownTypes = map[Type]bool{
	TypeSessionStarted:     true,
	TypeToolStarted:        true,
	TypeToolCompleted:      true,
	TypeActivity:           true,
	TypeIdle:               true,
	TypeNeedsAttention:     true,
	TypeWaitingForInput:    true,
	TypeCompacting:         true,
	TypeSessionNameUpdated: true,
	TypeSessionEnded:       true,
}

// AgentEvent is a single normalized event. Only the fields relevant to the
// variant named by Type are populated; the rest stay zero and are omitted
// on the wire.
type AgentEvent struct {
	Type      Type      `json:"type"`
	SessionID string    `json:"session_id"`
	Agent     AgentKind `json:"agent,omitempty"`

	// SessionStarted
	CWD  string `json:"cwd,omitempty"`
	Name string `json:"name,omitempty"` // also SessionNameUpdated

	// ToolStarted / ToolCompleted
	ToolID    string `json:"tool_id,omitempty"`
	ToolName  string `json:"tool_name,omitempty"`
	ToolLabel string `json:"tool_label,omitempty"`

	// NeedsAttention
	Message string `json:"message,omitempty"`
}

// Validate checks that the event names a known variant and a session.
func (e AgentEvent) Validate() error {
	if !knownTypes[e.Type] {
		return fmt.Errorf("unknown event type %q", e.Type)
	}
	if e.SessionID == "" {
		return fmt.Errorf("event %s missing session_id", e.Type)
	}
	return nil
}

// Decode parses a JSON-encoded event. A payload with an unknown type or a
// missing session_id is rejected; the caller drops it (spec forward
// compatibility: unknown variants are ignored, never fatal).
func Decode(data []byte) (AgentEvent, error) {
	var e AgentEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return AgentEvent{}, fmt.Errorf("decoding event: %w", err)
	}
	if err := e.Validate(); err != nil {
		return AgentEvent{}, err
	}
	return e, nil
}
