// Package config persists the two per-user files the HUD keeps outside
// the registry: config.json (theme) and state.json (overlay positions).
// Neither holds session state; the registry always starts empty.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"github.com/tidwall/jsonc"
)

// Config is the user-editable configuration.
type Config struct {
	Theme string `json:"theme"`
}

// Position is a screen position for one overlay surface.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// State is the persisted UI state. The indicator and session list are
// independently positionable surfaces.
type State struct {
	Indicator   Position `json:"indicator"`
	SessionList Position `json:"session_list"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{Theme: "dark"}
}

// DataDir returns the per-user data directory for aura files:
// $XDG_DATA_HOME/aura, falling back to ~/.local/share/aura.
func DataDir() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil || home == "" {
			return ""
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "aura")
}

// ConfigPath returns the theme config file path.
func ConfigPath() string {
	return filepath.Join(DataDir(), "config.json")
}

// StatePath returns the UI state file path.
func StatePath() string {
	return filepath.Join(DataDir(), "state.json")
}

// Load reads config.json, deep-merged over the defaults. A missing or
// unreadable file yields the defaults.
func Load() Config {
	cfg := DefaultConfig()
	m, err := loadJSONC(ConfigPath())
	if err != nil {
		return cfg
	}
	if err := mergeInto(&cfg, m); err != nil {
		slog.Warn("failed to merge config, using defaults", "error", err)
		return DefaultConfig()
	}
	return cfg
}

// LoadState reads state.json; a missing file yields the zero state.
func LoadState() State {
	var st State
	m, err := loadJSONC(StatePath())
	if err != nil {
		return st
	}
	if err := mergeInto(&st, m); err != nil {
		slog.Warn("failed to merge state", "error", err)
		return State{}
	}
	return st
}

// Save writes the config atomically.
func Save(cfg Config) error {
	return writeJSON(ConfigPath(), cfg)
}

// SaveState writes the UI state atomically.
func SaveState(st State) error {
	return writeJSON(StatePath(), st)
}

// loadJSONC reads a JSON file tolerantly (comments and trailing commas
// survive hand-editing) and returns it as a map.
func loadJSONC(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(jsonc.ToJSON(data), &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return m, nil
}

// mergeInto deep-merges the source map over the current value of dst.
func mergeInto(dst any, src map[string]any) error {
	cur, err := json.Marshal(dst)
	if err != nil {
		return err
	}
	var base map[string]any
	if err := json.Unmarshal(cur, &base); err != nil {
		return err
	}
	if err := mergo.Merge(&base, src, mergo.WithOverride); err != nil {
		return err
	}
	merged, err := json.Marshal(base)
	if err != nil {
		return err
	}
	return json.Unmarshal(merged, dst)
}

// writeJSON writes a value as indented JSON via temp file + rename.
func writeJSON(path string, v any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
