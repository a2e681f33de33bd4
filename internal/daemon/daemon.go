package daemon

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/oklog/ulid/v2"

	"toast/internal/audio"
	"toast/internal/config"
	"toast/internal/dbus"
	"toast/internal/display"
	"toast/internal/history"
	"toast/internal/notify"
	"toast/internal/scene"
)

// rider is a notification waiting for its popup to materialize, keyed
// by the notification pointer the display manager carries through its
// queue.
type rider struct {
	dbusID   uint32
	resident bool
}

// Options configures a Daemon.
type Options struct {
	Config     *config.DaemonConfig
	ConfigPath string
	Scene      scene.Scene
	Logger     *slog.Logger
	Version    string

	// ReplaceBus takes over org.freedesktop.Notifications from a
	// running owner instead of failing.
	ReplaceBus bool
}

// Daemon owns the toastd runtime: one D-Bus server, one display
// manager, audio, history, and the do-not-disturb gate between them.
// Bus handlers run on godbus goroutines and post display work to the
// scene loop; display callbacks arrive on the scene loop.
type Daemon struct {
	logger  *slog.Logger
	version string

	mu  sync.RWMutex // guards cfg and dnd
	cfg *config.DaemonConfig
	dnd config.DnDState

	configPath string
	lock       *flock.Flock
	lockPath   string

	sc       scene.Scene
	server   *dbus.Server
	display  *display.Manager
	audio    *audio.Manager
	history  *history.Store
	tracker  *Tracker
	notifier *Notifier

	pendingMu sync.Mutex
	pending   map[*notify.Notification]rider

	configWatcher *config.FileWatcher
	dndWatcher    *config.FileWatcher

	replaceBus bool
	cancel     context.CancelFunc
	running    atomic.Bool
}

// New assembles a daemon around an already-running scene backend.
func New(opts Options) (*Daemon, error) {
	if opts.Scene == nil {
		return nil, errors.New("daemon requires a scene backend")
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultDaemonConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	lockPath := config.LockPath()
	d := &Daemon{
		logger:     logger,
		version:    opts.Version,
		cfg:        cfg,
		configPath: opts.ConfigPath,
		lock:       flock.New(lockPath),
		lockPath:   lockPath,
		sc:         opts.Scene,
		server:     dbus.NewServer(logger),
		display:    display.NewManager(opts.Scene, nil, cfg, logger),
		audio:      audio.NewManager(cfg.Audio, logger),
		tracker:    NewTracker(),
		notifier:   NewNotifier(logger),
		pending:    make(map[*notify.Notification]rider),
		replaceBus: opts.ReplaceBus,
	}

	info := dbus.DefaultServerInfo()
	info.Version = opts.Version
	d.server.SetServerInfo(info)

	return d, nil
}

// Start acquires the instance lock, claims the bus name, and begins
// serving notifications. The context cancels background watchers.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another toastd instance is already running")
	}

	ctx, d.cancel = context.WithCancel(ctx)

	if d.cfg.History.Enabled {
		store, err := history.Open(d.cfg.HistoryFilePath(), d.cfg.History.MaxEntries)
		if err != nil {
			d.logger.Warn("history disabled, store unavailable", "error", err)
		} else {
			d.history = store
		}
	}

	d.dnd = d.initialDnD()

	d.display.SetHiddenCallback(d.handleHidden)
	d.display.SetShownCallback(d.handleShown)
	d.display.SetActionCallback(d.handleAction)
	d.display.SetDroppedCallback(d.handleDropped)
	d.server.SetNotifyHandler(d.handleNotify)
	d.server.SetCloseHandler(d.handleClose)
	d.notifier.SetSendFunc(d.server.NotifyLocal)

	if err := d.server.Start(d.replaceBus); err != nil {
		_ = d.lock.Unlock()
		return err
	}

	if err := d.audio.Start(ctx); err != nil {
		d.logger.Warn("audio unavailable", "error", err)
	}

	d.startWatchers(ctx)

	d.running.Store(true)
	d.logger.Info("toastd started",
		"version", d.version,
		"lock", d.lockPath,
		"dnd", d.dnd.Enabled,
	)
	return nil
}

// Stop releases the bus name, stops watchers, and closes every popup.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
	}
	if d.configWatcher != nil {
		d.configWatcher.Stop()
	}
	if d.dndWatcher != nil {
		d.dndWatcher.Stop()
	}

	done := make(chan struct{})
	d.sc.Post(func() {
		d.display.CloseAll()
		close(done)
	})
	<-done

	d.audio.Stop()
	if err := d.server.Stop(); err != nil {
		d.logger.Warn("failed to release bus name", "error", err)
	}
	if d.history != nil {
		_ = d.history.Close()
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", "error", err)
	}

	d.running.Store(false)
	d.logger.Info("toastd stopped")
}

// initialDnD loads the state file, falling back to the configured
// initial state when no file exists yet.
func (d *Daemon) initialDnD() config.DnDState {
	path := config.DnDStatePath()
	if _, err := os.Stat(path); err != nil {
		return config.DnDState{Enabled: d.cfg.DnD.Enabled}
	}
	state, err := config.LoadDnD(path)
	if err != nil {
		d.logger.Warn("failed to load dnd state", "error", err)
		return config.DnDState{Enabled: d.cfg.DnD.Enabled}
	}
	return state
}

// startWatchers begins config and do-not-disturb hot reload.
func (d *Daemon) startWatchers(ctx context.Context) {
	if d.configPath != "" {
		w, err := config.WatchFile(d.configPath)
		if err != nil {
			d.logger.Warn("config watcher unavailable", "error", err)
		} else if err := w.Start(); err != nil {
			d.logger.Warn("failed to start config watcher", "error", err)
		} else {
			d.configWatcher = w
			go d.watchLoop(ctx, w, d.reloadConfig)
		}
	}

	w, err := config.WatchFile(config.DnDStatePath())
	if err != nil {
		d.logger.Warn("dnd watcher unavailable", "error", err)
		return
	}
	if err := w.Start(); err != nil {
		d.logger.Warn("failed to start dnd watcher", "error", err)
		return
	}
	d.dndWatcher = w
	go d.watchLoop(ctx, w, d.reloadDnD)
}

// watchLoop forwards change signals to a reload function until the
// context ends.
func (d *Daemon) watchLoop(ctx context.Context, w *config.FileWatcher, reload func()) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-w.Events():
			if !ok {
				return
			}
			reload()
		}
	}
}

// reloadConfig re-reads the config file and pushes the new settings
// into the display and audio managers. A file that fails to load or
// validate leaves the previous settings in effect.
func (d *Daemon) reloadConfig() {
	cfg, err := config.LoadDaemonConfig(d.configPath)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		d.logger.Warn("config reload failed", "error", err)
		d.notifier.NotifyConfigError(err)
		return
	}

	d.mu.Lock()
	d.cfg = cfg
	d.mu.Unlock()

	d.sc.Post(func() { d.display.UpdateConfig(cfg) })
	d.audio.UpdateConfig(cfg.Audio)

	d.logger.Info("config reloaded", "path", d.configPath)
	d.notifier.NotifyConfigReloaded()
}

// reloadDnD re-reads the do-not-disturb state file. The announcement
// toast for enabling is sent before the new state takes effect, so it
// is not swallowed by the suppression it announces.
func (d *Daemon) reloadDnD() {
	state, err := config.LoadDnD(config.DnDStatePath())
	if err != nil {
		d.logger.Warn("failed to reload dnd state", "error", err)
		return
	}

	d.mu.Lock()
	changed := state.Enabled != d.dnd.Enabled
	if !changed {
		d.dnd = state
		d.mu.Unlock()
		return
	}
	d.mu.Unlock()

	if state.Enabled {
		d.notifier.NotifyDnDChanged(true)
		d.mu.Lock()
		d.dnd = state
		d.mu.Unlock()
	} else {
		d.mu.Lock()
		d.dnd = state
		d.mu.Unlock()
		d.notifier.NotifyDnDChanged(false)
	}
	d.logger.Info("dnd state changed", "enabled", state.Enabled)
}

// suppressed reports whether do-not-disturb swallows a notification of
// the given urgency.
func (d *Daemon) suppressed(u notify.Urgency) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.dnd.Enabled {
		return false
	}
	if d.cfg.DnD.CriticalBypass && u == notify.UrgencyCritical {
		return false
	}
	return true
}

// snapshotConfig returns the current config pointer.
func (d *Daemon) snapshotConfig() *config.DaemonConfig {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cfg
}

// handleNotify services one Notify call. It runs on a godbus
// goroutine: everything display-related is posted to the scene loop.
func (d *Daemon) handleNotify(req *dbus.Request, id uint32) {
	cfg := d.snapshotConfig()
	n := requestToNotification(req, cfg)
	urgency := n.Urgency

	suppressed := d.suppressed(urgency)
	d.record(req, n, suppressed)

	if suppressed {
		d.logger.Debug("notification suppressed by dnd", "id", id, "app", n.AppName)
		// The sender still learns the notification is gone.
		if err := d.server.CloseWithReason(id, dbus.CloseReasonUndefined); err != nil {
			d.logger.Warn("failed to close suppressed notification", "id", id, "error", err)
		}
		return
	}

	if !req.SuppressSound() {
		go d.playSound(req, urgency)
	}

	resident := req.Resident()
	d.pendingMu.Lock()
	d.pending[n] = rider{dbusID: id, resident: resident}
	d.pendingMu.Unlock()

	d.sc.Post(func() {
		if req.ReplacesID != 0 {
			if p := d.popupForDBusID(req.ReplacesID); p != nil && !p.Hidden() && !p.Exiting() {
				if err := d.display.Replace(p, n); err != nil {
					d.logger.Warn("failed to replace popup", "id", id, "error", err)
					return
				}
				d.registerRider(n, p)
				return
			}
		}

		p, err := d.display.Show(n)
		if err != nil {
			d.logger.Error("failed to show notification", "id", id, "error", err)
			d.takeRider(n)
			_ = d.server.CloseWithReason(id, dbus.CloseReasonUndefined)
			return
		}
		if p != nil {
			d.registerRider(n, p)
		}
		// p == nil means the notification is queued behind
		// max_visible; handleShown registers it when it surfaces.
	})
}

// handleClose services a CloseNotification call for an active id.
func (d *Daemon) handleClose(id uint32) {
	popupID, ok := d.tracker.PopupID(id)
	if !ok {
		return
	}
	d.sc.Post(func() {
		if p := d.popupByID(popupID); p != nil {
			d.display.Hide(p, display.CauseClosed)
		}
	})
}

// registerRider binds the pending D-Bus id for a notification to the
// popup now showing it. A no-op when handleShown already consumed the
// rider. Runs on the scene loop.
func (d *Daemon) registerRider(n *notify.Notification, p *display.Popup) {
	if info, ok := d.takeRider(n); ok {
		d.tracker.Register(info.dbusID, p.ID, info.resident)
	}
}

// handleShown registers queued notifications once their popup exists.
// Runs on the scene loop.
func (d *Daemon) handleShown(p *display.Popup) {
	d.registerRider(p.Notification, p)
}

// handleHidden emits NotificationClosed for every D-Bus id riding the
// popup that left the screen. A popup destroyed before its rider
// registered, pushed off screen the instant it appeared, still owes the
// sender a close signal.
func (d *Daemon) handleHidden(p *display.Popup, cause display.Cause) {
	ids := d.tracker.Detach(p.ID)
	if info, ok := d.takeRider(p.Notification); ok {
		ids = append(ids, info.dbusID)
	}
	for _, id := range ids {
		if !d.server.IsActive(id) {
			continue
		}
		if err := d.server.CloseWithReason(id, dbus.CloseReason(cause)); err != nil {
			d.logger.Warn("failed to emit close signal", "id", id, "error", err)
		}
	}
}

// handleAction emits ActionInvoked for every rider. Non-resident ids
// are closed as dismissed right away; the popup's own hide follows and
// skips them. Runs on the scene loop.
func (d *Daemon) handleAction(p *display.Popup, key string) {
	for _, id := range d.tracker.DBusIDs(p.ID) {
		if err := d.server.InvokeAction(id, key, d.tracker.Resident(id)); err != nil {
			d.logger.Warn("failed to emit action signal", "id", id, "key", key, "error", err)
		}
	}
}

// handleDropped emits NotificationClosed for a queued notification
// discarded before it ever reached the screen. Runs on the scene loop.
func (d *Daemon) handleDropped(n *notify.Notification) {
	info, ok := d.takeRider(n)
	if !ok {
		return
	}
	if err := d.server.CloseWithReason(info.dbusID, dbus.CloseReasonUndefined); err != nil {
		d.logger.Warn("failed to close dropped notification", "id", info.dbusID, "error", err)
	}
}

// takeRider removes and returns the pending rider for a notification.
func (d *Daemon) takeRider(n *notify.Notification) (rider, bool) {
	d.pendingMu.Lock()
	defer d.pendingMu.Unlock()
	info, ok := d.pending[n]
	if ok {
		delete(d.pending, n)
	}
	return info, ok
}

// popupForDBusID resolves a D-Bus id to its live popup. Runs on the
// scene loop.
func (d *Daemon) popupForDBusID(id uint32) *display.Popup {
	popupID, ok := d.tracker.PopupID(id)
	if !ok {
		return nil
	}
	return d.popupByID(popupID)
}

// popupByID scans the active popups for one id. Runs on the scene
// loop.
func (d *Daemon) popupByID(popupID string) *display.Popup {
	for _, p := range d.display.Popups() {
		if p.ID == popupID {
			return p
		}
	}
	return nil
}

// playSound resolves and plays the notification sound, preferring an
// explicit sound-file hint over the per-urgency configuration.
func (d *Daemon) playSound(req *dbus.Request, urgency notify.Urgency) {
	if file := req.SoundFile(); file != "" {
		if err := d.audio.PlayFile(file); err != nil {
			d.logger.Debug("failed to play hinted sound", "file", file, "error", err)
		}
		return
	}
	d.audio.PlayForUrgency(urgency)
}

// record appends the notification to history. Transient notifications
// are never recorded.
func (d *Daemon) record(req *dbus.Request, n *notify.Notification, suppressed bool) {
	if d.history == nil || req.Transient() {
		return
	}

	id, err := newRecordID()
	if err != nil {
		d.logger.Warn("failed to create history id", "error", err)
		return
	}
	r := history.NewRecord(id, n)
	r.Suppressed = suppressed
	if err := d.history.Append(r); err != nil {
		d.logger.Warn("failed to record notification", "error", err)
	}
}

// newRecordID generates a ULID for a history record.
func newRecordID() (string, error) {
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return "", fmt.Errorf("failed to generate ULID: %w", err)
	}
	return id.String(), nil
}

// requestToNotification maps a wire request onto the display model.
// The expire timeout follows the freedesktop convention: -1 asks for
// the server default, 0 means never expire.
func requestToNotification(req *dbus.Request, cfg *config.DaemonConfig) *notify.Notification {
	urgency := req.Urgency()

	n := &notify.Notification{
		AppName: req.AppName,
		Title:   req.Summary,
		Body:    req.Body,
		Graphic: req.AppIcon,
		Actions: req.ParsedActions(),
		Urgency: urgency,
		Created: time.Now(),
	}

	if pos, ok := req.Position(); ok {
		n.Position = pos
	}
	if req.Dark() {
		n.StyleClasses = append(n.StyleClasses, notify.StyleDark)
	}
	n.HideCloseButton = req.NoCloseButton()
	if v := req.Value(); v >= 0 {
		n.HasValue = true
		n.Value = v
	}

	switch {
	case req.ExpireTimeout < 0:
		n.HideAfter = cfg.TimeoutForUrgency(urgency)
	case req.ExpireTimeout == 0:
		n.HideAfter = 0
	default:
		n.HideAfter = time.Duration(req.ExpireTimeout) * time.Millisecond
	}

	return n
}
