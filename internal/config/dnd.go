package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DnDState is the do-not-disturb toggle shared between toastd and the
// CLI through a small JSON file. Either side may write it; the daemon
// watches it for changes.
type DnDState struct {
	Enabled bool  `json:"enabled"`
	Since   int64 `json:"since,omitempty"` // Unix seconds of the last change
}

// SinceTime returns when the state last changed, zero if unknown.
func (s DnDState) SinceTime() time.Time {
	if s.Since == 0 {
		return time.Time{}
	}
	return time.Unix(s.Since, 0)
}

// LoadDnD reads the state file. A missing file means do-not-disturb is
// off.
func LoadDnD(path string) (DnDState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DnDState{}, nil
		}
		return DnDState{}, fmt.Errorf("failed to read dnd state: %w", err)
	}

	var state DnDState
	if err := json.Unmarshal(data, &state); err != nil {
		return DnDState{}, fmt.Errorf("failed to parse dnd state: %w", err)
	}
	return state, nil
}

// SaveDnD writes the state file atomically, stamping the change time.
func SaveDnD(path string, enabled bool) (DnDState, error) {
	state := DnDState{Enabled: enabled, Since: time.Now().Unix()}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return state, fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.Marshal(state)
	if err != nil {
		return state, fmt.Errorf("failed to marshal dnd state: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return state, fmt.Errorf("failed to write dnd state: %w", err)
	}

	return state, os.Rename(tmpPath, path)
}
