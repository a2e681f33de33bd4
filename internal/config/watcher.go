package config

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces bursts of filesystem events into one change signal.
const watchDebounce = 100 * time.Millisecond

// FileWatcher watches a single file for changes and delivers a signal on
// Events after each write. Used for config hot reload and the do-not-disturb
// state file.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	filePath string
	events   chan struct{}
	done     chan struct{}
	mu       sync.Mutex
	running  bool
}

// WatchFile creates a watcher for the given file path. The file does not
// need to exist yet; creation counts as a change.
func WatchFile(path string) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &FileWatcher{
		watcher:  watcher,
		filePath: path,
		events:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}, nil
}

// Events returns the channel change signals are delivered on.
func (fw *FileWatcher) Events() <-chan struct{} {
	return fw.events
}

// Start begins watching the file for changes.
func (fw *FileWatcher) Start() error {
	fw.mu.Lock()
	if fw.running {
		fw.mu.Unlock()
		return nil
	}
	fw.running = true
	fw.mu.Unlock()

	// Watch the directory containing the file (more reliable for writes)
	dir := filepath.Dir(fw.filePath)
	if err := fw.watcher.Add(dir); err != nil {
		return err
	}

	go fw.watch()
	return nil
}

// watch is the main watch loop.
func (fw *FileWatcher) watch() {
	filename := filepath.Base(fw.filePath)

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}

			// Only care about our file
			if filepath.Base(event.Name) != filename {
				continue
			}

			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(watchDebounce, fw.signal)
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("file watcher error", "file", fw.filePath, "error", err)

		case <-fw.done:
			return
		}
	}
}

// signal delivers one change notification without blocking.
func (fw *FileWatcher) signal() {
	select {
	case fw.events <- struct{}{}:
	default:
	}
}

// Stop stops the file watcher.
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if !fw.running {
		return nil
	}

	fw.running = false
	close(fw.done)
	return fw.watcher.Close()
}
