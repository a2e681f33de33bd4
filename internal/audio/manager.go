package audio

import (
	"context"
	"log/slog"
	"maps"
	"os"
	"sync"

	"toast/internal/config"
	"toast/internal/notify"
)

// Manager resolves urgency levels to configured sound files and plays
// them through a shared Player. Sounds are preloaded at start and their
// files watched so edits take effect without a restart.
type Manager struct {
	mu      sync.RWMutex
	logger  *slog.Logger
	player  *Player
	watcher *Watcher

	enabled bool
	sounds  map[notify.Urgency]string
}

// NewManager creates an audio manager from the daemon's audio section.
func NewManager(cfg config.AudioConfig, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	player := NewPlayer(logger)

	m := &Manager{
		logger:  logger,
		player:  player,
		watcher: NewWatcher(player, logger),
		sounds:  make(map[notify.Urgency]string),
	}
	m.apply(cfg)
	return m
}

// apply resolves the configured sounds, dropping entries whose files do
// not exist so playback never waits on a missing path.
func (m *Manager) apply(cfg config.AudioConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.enabled = cfg.Enabled
	m.player.SetVolume(float64(cfg.Volume) / 100.0)

	m.sounds = make(map[notify.Urgency]string)
	for urgency, path := range map[notify.Urgency]string{
		notify.UrgencyLow:      cfg.Sounds.Low,
		notify.UrgencyNormal:   cfg.Sounds.Normal,
		notify.UrgencyCritical: cfg.Sounds.Critical,
	} {
		if path == "" {
			continue
		}
		expanded := expandHome(path)
		if _, err := os.Stat(expanded); err != nil {
			m.logger.Warn("sound file not found", "urgency", urgency.String(), "path", expanded)
			continue
		}
		m.sounds[urgency] = expanded
		m.logger.Debug("loaded sound", "urgency", urgency.String(), "path", expanded)
	}
}

// Start preloads the configured sounds and begins watching their files.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.RLock()
	sounds := make(map[notify.Urgency]string, len(m.sounds))
	maps.Copy(sounds, m.sounds)
	m.mu.RUnlock()

	for _, path := range sounds {
		if err := m.player.Preload(path); err != nil {
			m.logger.Warn("failed to preload sound", "path", path, "error", err)
		}
		m.watcher.Watch(path)
	}

	if err := m.watcher.Start(ctx); err != nil {
		return err
	}

	m.logger.Info("audio manager started", "sounds", len(sounds))
	return nil
}

// Stop shuts down playback and the file watcher.
func (m *Manager) Stop() {
	m.watcher.Stop()
	m.player.Close()
	m.logger.Debug("audio manager stopped")
}

// PlayForUrgency plays the sound configured for the urgency level, if
// audio is enabled and a sound is configured. Errors are logged, not
// returned; a broken sound file never blocks a notification.
func (m *Manager) PlayForUrgency(urgency notify.Urgency) {
	m.mu.RLock()
	enabled := m.enabled
	path, ok := m.sounds[urgency]
	m.mu.RUnlock()

	if !enabled || !ok {
		return
	}

	if err := m.player.Play(path); err != nil {
		m.logger.Warn("failed to play notification sound",
			"urgency", urgency.String(),
			"path", path,
			"error", err,
		)
	}
}

// PlayFile plays a specific sound file, bypassing urgency mapping.
func (m *Manager) PlayFile(path string) error {
	m.mu.RLock()
	enabled := m.enabled
	m.mu.RUnlock()
	if !enabled {
		return nil
	}
	return m.player.Play(path)
}

// SoundFor returns the resolved sound path for an urgency, if any.
func (m *Manager) SoundFor(urgency notify.Urgency) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	path, ok := m.sounds[urgency]
	return path, ok
}

// Enabled reports whether playback is enabled.
func (m *Manager) Enabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.enabled
}

// UpdateConfig applies a reloaded audio section: the decode cache is
// cleared, sounds re-resolved, and new paths preloaded and watched.
func (m *Manager) UpdateConfig(cfg config.AudioConfig) {
	m.player.ClearCache()
	m.apply(cfg)

	m.mu.RLock()
	sounds := make(map[notify.Urgency]string, len(m.sounds))
	maps.Copy(sounds, m.sounds)
	m.mu.RUnlock()

	for _, path := range sounds {
		if err := m.player.Preload(path); err != nil {
			m.logger.Warn("failed to preload sound on reload", "path", path, "error", err)
		}
		m.watcher.Watch(path)
	}

	m.logger.Debug("audio manager reloaded")
}
