// Package hook converts a single Claude Code hook message into normalized
// agent events. The hook binary runs once per hook firing: it reads one
// JSON object from stdin, parses it here, and forwards the resulting
// events to the daemon over the socket.
package hook

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/aura-hud/aura/internal/event"
)

// message is the envelope Claude Code delivers on stdin. Unknown fields
// are dropped by the decoder; unknown hook names map to no events.
type message struct {
	HookEventName    string         `json:"hook_event_name"`
	SessionID        string         `json:"session_id"`
	CWD              string         `json:"cwd"`
	ToolName         string         `json:"tool_name"`
	ToolUseID        string         `json:"tool_use_id"`
	ToolInput        map[string]any `json:"tool_input"`
	NotificationType string         `json:"notification_type"`
	Message          string         `json:"message"`
}

// setNamePattern matches the Bash command form of `aura set-name "…"`.
var setNamePattern = regexp.MustCompile(`^\s*aura\s+set-name\s+"(.+)"\s*$`)

// Parse maps one hook JSON message to zero or more agent events, in order.
// A JSON decode failure is the only error; a hook without a session_id is
// dropped wholesale, and unrecognized hook names produce no events.
func Parse(data []byte) ([]event.AgentEvent, error) {
	var m message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing hook JSON: %w", err)
	}
	if m.SessionID == "" {
		slog.Debug("hook missing session_id, dropping", "hook", m.HookEventName)
		return nil, nil
	}

	base := func(t event.Type) event.AgentEvent {
		return event.AgentEvent{Type: t, SessionID: m.SessionID, Agent: event.AgentClaudeCode}
	}

	switch m.HookEventName {
	case "SessionStart":
		ev := base(event.TypeSessionStarted)
		ev.CWD = m.CWD
		return []event.AgentEvent{ev}, nil

	case "PreToolUse":
		ev := base(event.TypeToolStarted)
		ev.ToolID = m.ToolUseID
		ev.ToolName = m.ToolName
		ev.ToolLabel = ExtractToolLabel(m.ToolName, m.ToolInput)
		events := []event.AgentEvent{ev}
		if m.ToolName == "Bash" {
			if command, ok := m.ToolInput["command"].(string); ok {
				if name, ok := ParseSetName(command); ok {
					named := base(event.TypeSessionNameUpdated)
					named.Name = name
					events = append(events, named)
				}
			}
		}
		return events, nil

	case "PostToolUse", "PostToolUseFailure":
		ev := base(event.TypeToolCompleted)
		ev.ToolID = m.ToolUseID
		return []event.AgentEvent{ev}, nil

	case "Notification":
		switch m.NotificationType {
		case "permission_prompt":
			ev := base(event.TypeNeedsAttention)
			ev.Message = m.ToolName
			return []event.AgentEvent{ev}, nil
		case "idle_prompt":
			return []event.AgentEvent{base(event.TypeWaitingForInput)}, nil
		default:
			ev := base(event.TypeNeedsAttention)
			ev.Message = m.Message
			return []event.AgentEvent{ev}, nil
		}

	case "PermissionRequest":
		ev := base(event.TypeNeedsAttention)
		ev.Message = m.ToolName
		return []event.AgentEvent{ev}, nil

	case "Stop":
		return []event.AgentEvent{base(event.TypeIdle)}, nil

	case "PreCompact":
		return []event.AgentEvent{base(event.TypeCompacting)}, nil

	case "UserPromptSubmit", "SubagentStart", "SubagentStop":
		return []event.AgentEvent{base(event.TypeActivity)}, nil

	case "SessionEnd":
		return []event.AgentEvent{base(event.TypeSessionEnded)}, nil
	}

	slog.Debug("unknown hook, ignoring", "hook", m.HookEventName)
	return nil, nil
}

// ParseSetName extracts the quoted name from an `aura set-name "…"`
// command line.
func ParseSetName(command string) (string, bool) {
	matches := setNamePattern.FindStringSubmatch(command)
	if matches == nil {
		return "", false
	}
	return matches[1], true
}
