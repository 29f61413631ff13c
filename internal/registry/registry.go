// Package registry holds the authoritative in-memory session state machine.
// All mutation flows through Apply, Remove, and timer callbacks, which
// serialize on one lock; renderers read short-lived snapshots.
package registry

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aura-hud/aura/internal/event"
)

// StaleTimeout is how long a non-Running session may go without events
// before it is marked Stale.
const StaleTimeout = 10 * time.Minute

// recentActivityMax bounds the per-session ring of completed tool labels.
const recentActivityMax = 6

// State is a session's lifecycle state.
type State string

const (
	StateRunning    State = "running"
	StateIdle       State = "idle"
	StateAttention  State = "attention"
	StateWaiting    State = "waiting"
	StateCompacting State = "compacting"
	StateStale      State = "stale"
)

// RunningTool is a tool invocation currently in flight inside a session.
type RunningTool struct {
	ToolID    string
	ToolName  string
	ToolLabel string
}

// Session is a snapshot copy of one tracked session.
type Session struct {
	SessionID      string
	Agent          event.AgentKind
	CWD            string
	Name           string
	State          State
	RunningTools   []RunningTool
	RecentActivity []string
	StoppedAt      time.Time // set while State == Idle
	StaleAt        time.Time // set while State == Stale
	PermissionTool string    // set while State == Attention
	LastEventAt    time.Time
}

// session is the mutable registry entry behind the lock.
type session struct {
	Session
	startedAt time.Time
	timer     *time.Timer
	timerGen  uint64
}

// Registry tracks sessions and owns their stale timers.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*session
	timeout  time.Duration
	now      func() time.Time
	closed   bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithStaleTimeout overrides the stale timeout (tests use short values).
func WithStaleTimeout(d time.Duration) Option {
	return func(r *Registry) { r.timeout = d }
}

// New returns an empty registry. The registry always starts empty; nothing
// is restored across daemon restarts.
func New(opts ...Option) *Registry {
	r := &Registry{
		sessions: make(map[string]*session),
		timeout:  StaleTimeout,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Apply processes one event against the registry. Events for unknown
// sessions are no-ops unless they are SessionStarted; sessions are never
// fabricated from tool or state events.
func (r *Registry) Apply(ev event.AgentEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}

	if ev.Type == event.TypeSessionEnded {
		if s, ok := r.sessions[ev.SessionID]; ok {
			slog.Info("session ended", "session_id", ev.SessionID)
			s.cancelTimer()
			delete(r.sessions, ev.SessionID)
		}
		return
	}

	s, ok := r.sessions[ev.SessionID]
	if !ok {
		if ev.Type != event.TypeSessionStarted {
			slog.Debug("event for unknown session", "session_id", ev.SessionID, "type", ev.Type)
			return
		}
		now := r.now()
		s = &session{
			Session: Session{
				SessionID: ev.SessionID,
				Agent:     ev.Agent,
				CWD:       ev.CWD,
				Name:      ev.Name,
				State:     StateRunning,
			},
			startedAt: now,
		}
		r.sessions[ev.SessionID] = s
		slog.Info("session started", "session_id", ev.SessionID, "cwd", ev.CWD, "agent", ev.Agent)
	}

	s.LastEventAt = r.now()

	switch ev.Type {
	case event.TypeSessionStarted:
		if ev.CWD != "" {
			s.CWD = ev.CWD
		}
		if ev.Name != "" {
			s.Name = ev.Name
		}
		s.RunningTools = nil
		r.setState(s, StateRunning)

	case event.TypeToolStarted:
		r.setState(s, StateRunning)
		s.addTool(RunningTool{ToolID: ev.ToolID, ToolName: ev.ToolName, ToolLabel: ev.ToolLabel})

	case event.TypeToolCompleted:
		s.removeTool(ev.ToolID)

	case event.TypeActivity:
		r.setState(s, StateRunning)

	case event.TypeIdle:
		s.RunningTools = nil
		r.setState(s, StateIdle)

	case event.TypeNeedsAttention:
		r.setState(s, StateAttention)
		s.PermissionTool = ev.Message

	case event.TypeWaitingForInput:
		r.setState(s, StateWaiting)

	case event.TypeCompacting:
		r.setState(s, StateCompacting)

	case event.TypeSessionNameUpdated:
		s.Name = ev.Name
	}

	r.rearmTimer(s)
}

// setState transitions a session, maintaining the timestamp and
// permission-tool bookkeeping tied to entering and leaving states.
func (r *Registry) setState(s *session, next State) {
	prev := s.State
	if prev == next {
		return
	}
	if prev == StateAttention {
		s.PermissionTool = ""
	}
	if prev == StateIdle {
		s.StoppedAt = time.Time{}
	}
	if prev == StateStale {
		s.StaleAt = time.Time{}
	}
	switch next {
	case StateIdle:
		s.StoppedAt = r.now()
	case StateStale:
		s.StaleAt = r.now()
	}
	s.State = next
}

// rearmTimer cancels any pending stale timer and re-arms it unless the
// session is Running (which never goes stale) or already Stale.
func (r *Registry) rearmTimer(s *session) {
	s.cancelTimer()
	if s.State == StateRunning || s.State == StateStale {
		return
	}
	s.timerGen++
	gen := s.timerGen
	id := s.SessionID
	armedAt := s.LastEventAt
	s.timer = time.AfterFunc(r.timeout, func() {
		r.expire(id, gen, armedAt)
	})
}

// expire runs when a stale timer fires. Supersession check: if the session
// saw any event since arming, the firing is a no-op.
func (r *Registry) expire(sessionID string, gen uint64, armedAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	s, ok := r.sessions[sessionID]
	if !ok || s.timerGen != gen || s.LastEventAt.After(armedAt) {
		return
	}
	slog.Debug("session went stale", "session_id", sessionID)
	r.setState(s, StateStale)
	s.timer = nil
}

// Remove deletes a session regardless of state. Used by the session list's
// remove affordance.
func (r *Registry) Remove(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[sessionID]; ok {
		slog.Info("session removed", "session_id", sessionID)
		s.cancelTimer()
		delete(r.sessions, sessionID)
	}
}

// Snapshot returns deep copies of all sessions, ordered by start time so
// the session list stays stable across frames.
func (r *Registry) Snapshot() []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Session, 0, len(r.sessions))
	order := make([]*session, 0, len(r.sessions))
	for _, s := range r.sessions {
		order = append(order, s)
	}
	sort.Slice(order, func(i, j int) bool {
		if order[i].startedAt.Equal(order[j].startedAt) {
			return order[i].SessionID < order[j].SessionID
		}
		return order[i].startedAt.Before(order[j].startedAt)
	})
	for _, s := range order {
		out = append(out, s.copySession())
	}
	return out
}

// Get returns a copy of one session.
func (r *Registry) Get(sessionID string) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return Session{}, false
	}
	return s.copySession(), true
}

// Len returns the number of tracked sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Close cancels all timers. Apply becomes a no-op afterwards.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	for _, s := range r.sessions {
		s.cancelTimer()
	}
}

func (s *session) cancelTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.timerGen++
}

// addTool appends a tool, deduplicating by tool id.
func (s *session) addTool(t RunningTool) {
	for _, existing := range s.RunningTools {
		if existing.ToolID == t.ToolID {
			return
		}
	}
	s.RunningTools = append(s.RunningTools, t)
}

// removeTool removes a tool by id; unknown ids are a no-op. A completed
// tool's label feeds the recent-activity ring.
func (s *session) removeTool(toolID string) {
	for i, t := range s.RunningTools {
		if t.ToolID == toolID {
			s.RunningTools = append(s.RunningTools[:i], s.RunningTools[i+1:]...)
			if t.ToolLabel != "" {
				s.pushRecentActivity(t.ToolLabel)
			}
			return
		}
	}
}

// pushRecentActivity appends a label to the bounded ring, collapsing
// consecutive duplicates.
func (s *session) pushRecentActivity(label string) {
	if n := len(s.RecentActivity); n > 0 && s.RecentActivity[n-1] == label {
		return
	}
	s.RecentActivity = append(s.RecentActivity, label)
	if len(s.RecentActivity) > recentActivityMax {
		s.RecentActivity = s.RecentActivity[len(s.RecentActivity)-recentActivityMax:]
	}
}

func (s *session) copySession() Session {
	out := s.Session
	out.RunningTools = append([]RunningTool(nil), s.RunningTools...)
	out.RecentActivity = append([]string(nil), s.RecentActivity...)
	return out
}
