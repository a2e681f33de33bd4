package audio

import (
	"context"
	"log/slog"
	"maps"
	"os"
	"sync"
	"time"
)

// defaultPollInterval is how often watched sound files are checked for
// modification. Polling keeps the watcher working across editors that
// replace files rather than write them in place.
const defaultPollInterval = 2 * time.Second

// Watcher polls sound files for modification and invalidates the
// player's decode cache when one changes.
type Watcher struct {
	mu     sync.Mutex
	logger *slog.Logger
	player *Player

	modTimes map[string]time.Time
	interval time.Duration

	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// NewWatcher creates a watcher feeding cache invalidations to player.
func NewWatcher(player *Player, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		logger:   logger,
		player:   player,
		modTimes: make(map[string]time.Time),
		interval: defaultPollInterval,
	}
}

// SetPollInterval overrides the polling interval. Takes effect on the
// next Start.
func (w *Watcher) SetPollInterval(interval time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.interval = interval
}

// Watch adds a path to the watch list, recording its current mtime.
func (w *Watcher) Watch(path string) {
	if path == "" {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if info, err := os.Stat(path); err == nil {
		w.modTimes[path] = info.ModTime()
	} else {
		w.modTimes[path] = time.Time{}
	}
}

// Unwatch removes a path from the watch list.
func (w *Watcher) Unwatch(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.modTimes, path)
}

// Start begins polling. Starting an already running watcher is a no-op.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	interval := w.interval
	w.mu.Unlock()

	go w.loop(ctx, interval)

	w.logger.Debug("audio watcher started", "interval", interval)
	return nil
}

// Stop halts polling and waits for the loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	doneCh := w.doneCh
	w.mu.Unlock()

	<-doneCh
	w.logger.Debug("audio watcher stopped")
}

func (w *Watcher) loop(ctx context.Context, interval time.Duration) {
	defer close(w.doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.poll()
		}
	}
}

// poll re-stats every watched path and invalidates changed entries.
func (w *Watcher) poll() {
	w.mu.Lock()
	paths := make(map[string]time.Time, len(w.modTimes))
	maps.Copy(paths, w.modTimes)
	w.mu.Unlock()

	for path, last := range paths {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}

		modTime := info.ModTime()
		if !modTime.After(last) {
			continue
		}

		w.logger.Debug("sound file changed, invalidating cache", "path", path)

		w.mu.Lock()
		w.modTimes[path] = modTime
		w.mu.Unlock()

		if w.player != nil {
			w.player.InvalidateCache(path)
		}
	}
}
