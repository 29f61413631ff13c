// Package daemon wires the core together: one registry, the IPC server
// ingesting hook-adapter events, and the Codex rollout watcher feeding
// events in-process. The UI renderer reads registry snapshots; everything
// that mutates runs here.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/aura-hud/aura/internal/config"
	"github.com/aura-hud/aura/internal/ipc"
	"github.com/aura-hud/aura/internal/registry"
	"github.com/aura-hud/aura/internal/rollout"
)

// lockTimeout bounds how long startup waits for the single-instance lock.
const lockTimeout = 2 * time.Second

// Run starts the daemon and blocks until the context is cancelled. A
// second daemon on the same machine fails fast on the instance lock.
func Run(ctx context.Context) error {
	dataDir := config.DataDir()
	if dataDir == "" {
		return fmt.Errorf("cannot determine data directory; set $HOME or $XDG_DATA_HOME")
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	lock := flock.New(filepath.Join(dataDir, "daemon.lock"))
	lockCtx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()
	locked, err := lock.TryLockContext(lockCtx, 100*time.Millisecond)
	if err != nil {
		return fmt.Errorf("acquiring instance lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("daemon already running")
	}
	defer lock.Unlock()

	reg := registry.New()
	defer reg.Close()

	srv := ipc.NewServer(ipc.SocketPath(), reg.Apply)
	if err := srv.Listen(); err != nil {
		return err
	}

	watcher := rollout.New(rollout.DefaultCodexHome(), reg.Apply)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := watcher.Run(ctx); err != nil {
			slog.Error("rollout watcher error", "error", err)
		}
	}()

	slog.Info("daemon started", "socket", ipc.SocketPath())
	err = srv.Serve(ctx)

	wg.Wait()
	slog.Info("daemon stopped")
	return err
}
