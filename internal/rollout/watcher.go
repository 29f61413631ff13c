package rollout

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/aura-hud/aura/internal/event"
)

const (
	// bootstrapWindow is how recently a rollout file must have been
	// modified to be replayed at startup. Older files are watched
	// passively and activate on their first append.
	bootstrapWindow = 10 * time.Minute

	// replayLines caps how many trailing response-item / event-msg lines
	// the bootstrap replays per file.
	replayLines = 4

	// replayBytes bounds how far back the bootstrap reads, independent of
	// file size.
	replayBytes = 64 * 1024

	// rescanInterval is the periodic fallback for dropped filesystem
	// notifications.
	rescanInterval = 5 * time.Second

	// metaScanLines is how deep into a file the session_meta line is
	// searched; it is typically the first line.
	metaScanLines = 5

	// maxLineBytes bounds a single rollout line.
	maxLineBytes = 8 * 1024 * 1024
)

// fileState tracks one rollout file. offset counts bytes consumed into
// complete lines; a partial trailing line stays unconsumed until its
// newline arrives.
type fileState struct {
	offset    int64
	sessionID string
	cwd       string
	announced bool
}

// Watcher tails rollout files under the Codex sessions tree and feeds the
// resulting events to the registry. It never removes sessions; inactive
// Codex sessions go stale via the registry's timers and stay listed.
type Watcher struct {
	codexHome string
	root      string
	apply     func(event.AgentEvent)
	files     map[string]*fileState
	named     map[string]bool
}

// DefaultCodexHome returns $CODEX_HOME, falling back to ~/.codex.
func DefaultCodexHome() string {
	if home := os.Getenv("CODEX_HOME"); home != "" {
		return home
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(userHome, ".codex")
}

// New returns a watcher over codexHome/sessions that dispatches events
// through apply.
func New(codexHome string, apply func(event.AgentEvent)) *Watcher {
	return &Watcher{
		codexHome: codexHome,
		root:      filepath.Join(codexHome, "sessions"),
		apply:     apply,
		files:     make(map[string]*fileState),
		named:     make(map[string]bool),
	}
}

// Run bootstraps existing files, then tails the tree until the context is
// cancelled. Filesystem notification failures degrade to the periodic
// rescan; they never stop the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	w.scan()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Warn("filesystem notifications unavailable, using rescan only", "error", err)
		fsw = nil
	} else {
		defer fsw.Close()
		w.watchTree(fsw)
	}

	ticker := time.NewTicker(rescanInterval)
	defer ticker.Stop()

	for {
		var fsEvents chan fsnotify.Event
		var fsErrors chan error
		if fsw != nil {
			fsEvents = fsw.Events
			fsErrors = fsw.Errors
		}

		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fsEvents:
			if !ok {
				fsw = nil
				continue
			}
			w.handleFsEvent(fsw, ev)

		case err, ok := <-fsErrors:
			if !ok {
				fsw = nil
				continue
			}
			slog.Debug("filesystem watch error", "error", err)

		case <-ticker.C:
			w.scan()
		}
	}
}

// watchTree registers the sessions root and every subdirectory.
func (w *Watcher) watchTree(fsw *fsnotify.Watcher) {
	_ = filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if err := fsw.Add(path); err != nil {
				slog.Debug("watch add failed", "path", path, "error", err)
			}
		}
		return nil
	})
}

// handleFsEvent reacts to one notification: new directories get watched
// and scanned, changed rollout files get tailed.
func (w *Watcher) handleFsEvent(fsw *fsnotify.Watcher, ev fsnotify.Event) {
	if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}

	info, err := os.Stat(ev.Name)
	if err != nil {
		return
	}

	if info.IsDir() {
		if fsw != nil {
			if err := fsw.Add(ev.Name); err != nil {
				slog.Debug("watch add failed", "path", ev.Name, "error", err)
			}
		}
		w.scanDir(ev.Name)
		return
	}

	if !strings.HasSuffix(ev.Name, ".jsonl") {
		return
	}
	if _, known := w.files[ev.Name]; !known {
		w.register(ev.Name, info.ModTime())
		return
	}
	w.tail(ev.Name)
}

// scan walks the whole tree, registering unknown files and catching up
// known ones whose size advanced past the recorded offset.
func (w *Watcher) scan() {
	_ = filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".jsonl") {
			return nil
		}
		w.scanFile(path)
		return nil
	})
}

func (w *Watcher) scanDir(dir string) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".jsonl") {
			return nil
		}
		w.scanFile(path)
		return nil
	})
}

func (w *Watcher) scanFile(path string) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	state, known := w.files[path]
	if !known {
		w.register(path, info.ModTime())
		return
	}
	if info.Size() != state.offset {
		w.tail(path)
	}
}

// register starts tracking a rollout file. Recently modified files are
// bootstrapped: the session is announced and a bounded tail of the file is
// replayed to seed the session's current shape. Older files start at EOF
// and activate on their first append.
func (w *Watcher) register(path string, mtime time.Time) {
	state := &fileState{}
	w.files[path] = state

	id, cwd := w.readHead(path)
	if id == "" {
		id = SessionIDFromFilename(filepath.Base(path))
	}
	state.sessionID = id
	state.cwd = cwd

	size := fileSize(path)
	state.offset = size

	if id == "" {
		slog.Debug("rollout file without session id, ignoring", "path", path)
		return
	}

	if time.Since(mtime) > bootstrapWindow {
		slog.Debug("rollout file watched passively", "path", path, "session_id", id)
		return
	}

	w.announce(state)
	w.replayTail(path, state)
	slog.Info("rollout session bootstrapped", "path", path, "session_id", id)
}

// announce emits SessionStarted, enriched with thread metadata from the
// Codex state database when available.
func (w *Watcher) announce(state *fileState) {
	state.announced = true
	title := ""
	if info, err := LookupThread(w.codexHome, state.sessionID); err != nil {
		slog.Debug("codex thread lookup failed", "session_id", state.sessionID, "error", err)
	} else {
		title = info.Title
		if state.cwd == "" {
			state.cwd = info.CWD
		}
	}

	w.apply(event.AgentEvent{
		Type:      event.TypeSessionStarted,
		SessionID: state.sessionID,
		Agent:     event.AgentCodex,
		CWD:       state.cwd,
	})

	if title != "" && !w.named[state.sessionID] {
		w.named[state.sessionID] = true
		w.apply(event.AgentEvent{
			Type:      event.TypeSessionNameUpdated,
			SessionID: state.sessionID,
			Agent:     event.AgentCodex,
			Name:      title,
		})
	}
}

// readHead looks for the session_meta line near the top of the file.
func (w *Watcher) readHead(path string) (id, cwd string) {
	f, err := os.Open(path)
	if err != nil {
		return "", ""
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 4096), maxLineBytes)
	for i := 0; i < metaScanLines && scanner.Scan(); i++ {
		if id, cwd, ok := ParseMeta(scanner.Bytes()); ok {
			return id, cwd
		}
	}
	return "", ""
}

// replayTail applies the last few replayable lines from the end of the
// file. The byte window bounds the work regardless of file size.
func (w *Watcher) replayTail(path string, state *fileState) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	size := fileSize(path)
	start := size - replayBytes
	if start < 0 {
		start = 0
	}
	if _, err := f.Seek(start, io.SeekStart); err != nil {
		return
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return
	}

	lines := bytes.Split(data, []byte{'\n'})
	if start > 0 && len(lines) > 0 {
		// The window almost certainly begins mid-line; drop the fragment.
		lines = lines[1:]
	}

	var replay [][]byte
	for _, line := range lines {
		line = bytes.TrimSpace(line)
		if len(line) == 0 || !isReplayable(line) {
			continue
		}
		replay = append(replay, line)
	}
	if len(replay) > replayLines {
		replay = replay[len(replay)-replayLines:]
	}

	for _, line := range replay {
		for _, p := range ParseLine(line, state.sessionID, state.cwd) {
			w.applyParsed(p)
		}
	}
}

// tail reads from the recorded offset to the last complete line and
// applies everything in between. A truncated file restarts from zero.
func (w *Watcher) tail(path string) {
	state, ok := w.files[path]
	if !ok {
		return
	}

	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return
	}
	if info.Size() < state.offset {
		state.offset = 0
	}
	if info.Size() == state.offset {
		return
	}

	if _, err := f.Seek(state.offset, io.SeekStart); err != nil {
		return
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return
	}

	lastNewline := bytes.LastIndexByte(data, '\n')
	if lastNewline < 0 {
		return // partial line, wait for more
	}
	consumed := data[:lastNewline+1]
	state.offset += int64(len(consumed))

	if state.sessionID != "" && !state.announced {
		// Passively watched file activating on its first append.
		w.announce(state)
	}

	for _, line := range bytes.Split(consumed, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		if state.sessionID == "" {
			// Passive file that never had a meta line; it may arrive now.
			if id, cwd, ok := ParseMeta(line); ok {
				state.sessionID = id
				state.cwd = cwd
				w.announce(state)
				continue
			}
		}
		for _, p := range ParseLine(line, state.sessionID, state.cwd) {
			w.applyParsed(p)
		}
	}
}

// applyParsed forwards one event, enforcing that preview-derived names
// never overwrite a name that was already set.
func (w *Watcher) applyParsed(p Parsed) {
	if p.Event.Type == event.TypeSessionNameUpdated {
		if p.NamePreview && w.named[p.Event.SessionID] {
			return
		}
		w.named[p.Event.SessionID] = true
	}
	w.apply(p.Event)
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
