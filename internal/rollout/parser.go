// Package rollout discovers, tails, and parses Codex session rollout
// files, reducing their JSONL lines to normalized agent events.
package rollout

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/aura-hud/aura/internal/event"
	"github.com/aura-hud/aura/internal/hook"
)

// record is the outer shape of a rollout line. Newer Codex versions wrap
// payloads under type/payload; older lines carry the payload fields at the
// top level, so the item fields are decoded from either place.
type record struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type metaPayload struct {
	ID  string `json:"id"`
	CWD string `json:"cwd"`
}

type itemPayload struct {
	Type      string          `json:"type"`
	CallID    string          `json:"call_id"`
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

type eventMsgPayload struct {
	Type    string `json:"type"`
	Preview string `json:"preview"`
}

// Parsed is one agent event plus the provenance the watcher needs: name
// updates derived from turn preview text only apply while a session has
// never been named.
type Parsed struct {
	Event       event.AgentEvent
	NamePreview bool
}

// sessionIDPattern extracts the trailing UUID from a rollout filename,
// e.g. rollout-2025-08-10T12-50-53-a3953a61-af96-4bfc-8a05-f8355309f025.jsonl
var sessionIDPattern = regexp.MustCompile(`([0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12})\.jsonl$`)

// SessionIDFromFilename extracts the session UUID from a rollout filename.
func SessionIDFromFilename(filename string) string {
	matches := sessionIDPattern.FindStringSubmatch(filename)
	if matches == nil {
		return ""
	}
	return matches[1]
}

// ParseMeta decodes a session_meta line. Returns ok=false for any other
// line shape.
func ParseMeta(raw []byte) (id, cwd string, ok bool) {
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return "", "", false
	}
	if rec.Type != "session_meta" {
		return "", "", false
	}
	var meta metaPayload
	if len(rec.Payload) > 0 {
		if err := json.Unmarshal(rec.Payload, &meta); err != nil {
			return "", "", false
		}
	}
	if meta.ID == "" {
		// Legacy form: id and cwd on the line itself.
		if err := json.Unmarshal(raw, &meta); err != nil {
			return "", "", false
		}
	}
	if meta.ID == "" {
		return "", "", false
	}
	return meta.ID, meta.CWD, true
}

// ParseLine maps one rollout line to zero or more agent events. Malformed
// or unrecognized lines produce nothing; sessionID and cwd are the values
// already established for the file.
func ParseLine(raw []byte, sessionID, cwd string) []Parsed {
	if sessionID == "" {
		return nil
	}

	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil
	}

	base := func(t event.Type) event.AgentEvent {
		return event.AgentEvent{Type: t, SessionID: sessionID, Agent: event.AgentCodex}
	}

	switch rec.Type {
	case "session_meta":
		id, metaCWD, ok := ParseMeta(raw)
		if !ok {
			return nil
		}
		ev := event.AgentEvent{Type: event.TypeSessionStarted, SessionID: id, Agent: event.AgentCodex, CWD: metaCWD}
		if ev.CWD == "" {
			ev.CWD = cwd
		}
		return []Parsed{{Event: ev}}

	case "response_item":
		var item itemPayload
		if err := json.Unmarshal(rec.Payload, &item); err != nil {
			return nil
		}
		return parseItem(item, base)

	case "function_call", "function_call_output":
		// Legacy lines without the response_item wrapper.
		var item itemPayload
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil
		}
		item.Type = rec.Type
		return parseItem(item, base)

	case "event_msg":
		var msg eventMsgPayload
		if err := json.Unmarshal(rec.Payload, &msg); err != nil {
			return nil
		}
		switch msg.Type {
		case "task_complete":
			return []Parsed{{Event: base(event.TypeIdle)}}
		case "request_user_input":
			return []Parsed{{Event: base(event.TypeWaitingForInput)}}
		case "context_compacted":
			return []Parsed{{Event: base(event.TypeCompacting)}}
		case "turn_started":
			if msg.Preview == "" {
				return nil
			}
			ev := base(event.TypeSessionNameUpdated)
			ev.Name = msg.Preview
			return []Parsed{{Event: ev, NamePreview: true}}
		}
	}

	return nil
}

// parseItem maps a function_call or function_call_output payload.
func parseItem(item itemPayload, base func(event.Type) event.AgentEvent) []Parsed {
	switch item.Type {
	case "function_call":
		toolID := item.CallID
		if toolID == "" {
			toolID = item.ID
		}
		if toolID == "" || item.Name == "" {
			return nil
		}
		command := commandFromArguments(item.Arguments)
		ev := base(event.TypeToolStarted)
		ev.ToolID = toolID
		ev.ToolName = item.Name
		ev.ToolLabel = command
		out := []Parsed{{Event: ev}}
		if name, ok := hook.ParseSetName(command); ok {
			named := base(event.TypeSessionNameUpdated)
			named.Name = name
			out = append(out, Parsed{Event: named})
		}
		return out

	case "function_call_output":
		toolID := item.CallID
		if toolID == "" {
			toolID = item.ID
		}
		if toolID == "" {
			return nil
		}
		ev := base(event.TypeToolCompleted)
		ev.ToolID = toolID
		return []Parsed{{Event: ev}}
	}
	return nil
}

// commandFromArguments pulls a best-effort command string out of tool-call
// arguments. Arguments may be a JSON-encoded string or an object; the
// command itself may be a string or an argv array.
func commandFromArguments(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		// Arguments encoded as a JSON string holding JSON.
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return ""
		}
		if err := json.Unmarshal([]byte(inner), &obj); err != nil {
			return ""
		}
	}

	value, ok := obj["command"]
	if !ok {
		value = obj["cmd"]
	}
	switch v := value.(type) {
	case string:
		return v
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	}
	return ""
}

// isReplayable reports whether a raw line is one of the kinds the
// bootstrap replays (response items and event messages).
func isReplayable(raw []byte) bool {
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return false
	}
	switch rec.Type {
	case "response_item", "event_msg", "function_call", "function_call_output":
		return true
	}
	return false
}
