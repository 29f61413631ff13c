// Package view maps registry snapshots to what the indicator and session
// list must display. Everything here is a pure function of a snapshot and,
// where cycling is involved, the wall clock.
package view

import (
	"hash/fnv"
	"path/filepath"
	"strings"
	"time"

	"github.com/aura-hud/aura/internal/registry"
)

// IndicatorState is the aggregate state for the 4-value indicator.
type IndicatorState string

const (
	IndicatorIdle      IndicatorState = "idle"
	IndicatorAttention IndicatorState = "attention"
	IndicatorWaiting   IndicatorState = "waiting"
	IndicatorRunning   IndicatorState = "running"
)

// NotchState is the aggregate state for the richer notch-flanking variant.
type NotchState string

const (
	NotchNone       NotchState = "none"
	NotchRunning    NotchState = "running"
	NotchCompacting NotchState = "compacting"
	NotchIdle       NotchState = "idle"
	NotchStale      NotchState = "stale"
)

// toolCyclePeriod is how long each tool stays selected when a session runs
// more than one tool at once.
const toolCyclePeriod = 2 * time.Second

// placeholders is the fixed set a session with no running tools draws its
// subtitle from. Selection is stable per session id for the process lifetime.
var placeholders = []string{
	"thinking…",
	"drafting…",
	"building…",
	"planning…",
	"analyzing…",
	"pondering…",
	"processing…",
	"reasoning…",
}

// Indicator computes the aggregate 4-value indicator state. The result is
// independent of session order.
func Indicator(sessions []registry.Session) IndicatorState {
	if len(sessions) == 0 {
		return IndicatorIdle
	}
	anyWaiting := false
	for _, s := range sessions {
		switch s.State {
		case registry.StateAttention:
			return IndicatorAttention
		case registry.StateWaiting:
			anyWaiting = true
		}
	}
	if anyWaiting {
		return IndicatorWaiting
	}
	return IndicatorRunning
}

// Notch computes the 5-value aggregate for the notch-flanking indicator,
// with priority running > compacting > idle > stale. Attention and Waiting
// sessions count toward the running bucket here; the 4-value projection is
// the one that distinguishes them.
func Notch(sessions []registry.Session) NotchState {
	if len(sessions) == 0 {
		return NotchNone
	}
	var anyCompacting, anyIdle, anyStale bool
	for _, s := range sessions {
		switch s.State {
		case registry.StateRunning, registry.StateAttention, registry.StateWaiting:
			return NotchRunning
		case registry.StateCompacting:
			anyCompacting = true
		case registry.StateIdle:
			anyIdle = true
		case registry.StateStale:
			anyStale = true
		}
	}
	switch {
	case anyCompacting:
		return NotchCompacting
	case anyIdle:
		return NotchIdle
	case anyStale:
		return NotchStale
	}
	return NotchRunning
}

// Title returns the session row's title: the user-set name, else the last
// path segment of the working directory, else "Unknown".
func Title(s registry.Session) string {
	if s.Name != "" {
		return s.Name
	}
	if base := filepath.Base(s.CWD); base != "." && base != "/" && base != "" {
		return base
	}
	return "Unknown"
}

// Subtitle returns the session row's subtitle at the given instant,
// deterministically selected by state.
func Subtitle(s registry.Session, now time.Time) string {
	switch s.State {
	case registry.StateIdle:
		return "waiting since " + formatClock(s.StoppedAt)
	case registry.StateStale:
		return "inactive since " + formatClock(s.StaleAt)
	case registry.StateAttention:
		tool := s.PermissionTool
		if tool == "" {
			tool = "Tool"
		}
		return tool + " needs permission"
	case registry.StateWaiting:
		return "waiting for input"
	case registry.StateCompacting:
		return "compacting context…"
	}
	if len(s.RunningTools) > 0 {
		t := s.RunningTools[ToolIndex(now, len(s.RunningTools))]
		return ToolDisplay(t.ToolName, t.ToolLabel)
	}
	return Placeholder(s.SessionID)
}

// RichSubtitle behaves like Subtitle, except that an idle-but-Running
// session with recent activity rotates through its recent tool labels
// instead of showing the placeholder.
func RichSubtitle(s registry.Session, now time.Time) string {
	if s.State == registry.StateRunning && len(s.RunningTools) == 0 && len(s.RecentActivity) > 0 {
		return s.RecentActivity[ToolIndex(now, len(s.RecentActivity))]
	}
	return Subtitle(s, now)
}

// ToolIndex selects which of n concurrently running tools to show at the
// given instant. The index advances every cycle period and is taken modulo
// the list length, so it stays in range when tools are added or removed.
func ToolIndex(now time.Time, n int) int {
	if n <= 0 {
		return 0
	}
	return int((now.UnixMilli() / toolCyclePeriod.Milliseconds()) % int64(n))
}

// ToolDisplay renders a tool for the subtitle. MCP tool names of the shape
// mcp__server__function render as "server: label" (falling back to the
// function name); everything else prefers the label over the tool name.
func ToolDisplay(toolName, toolLabel string) string {
	if server, function, ok := splitMCP(toolName); ok {
		label := toolLabel
		if label == "" {
			label = function
		}
		return server + ": " + label
	}
	if toolLabel != "" {
		return toolLabel
	}
	return toolName
}

// Placeholder returns the fixed placeholder for a session with no running
// tools. The same session id always maps to the same placeholder.
func Placeholder(sessionID string) string {
	h := fnv.New32a()
	h.Write([]byte(sessionID))
	return placeholders[h.Sum32()%uint32(len(placeholders))]
}

// splitMCP splits an mcp__server__function tool name into its server and
// function parts.
func splitMCP(toolName string) (server, function string, ok bool) {
	rest, found := strings.CutPrefix(toolName, "mcp__")
	if !found {
		return "", "", false
	}
	server, function, found = strings.Cut(rest, "__")
	if !found || server == "" || function == "" {
		return "", "", false
	}
	return server, function, true
}

func formatClock(t time.Time) string {
	if t.IsZero() {
		return "a while"
	}
	return t.Format("3:04 PM")
}
