package daemon

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	godbus "github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toast/internal/anim"
	"toast/internal/config"
	"toast/internal/dbus"
	"toast/internal/display"
	"toast/internal/geom"
	"toast/internal/history"
	"toast/internal/notify"
	"toast/internal/scene"
)

// fakeSurface records what the display manager does to it.
type fakeSurface struct {
	content   scene.Content
	at        geom.Point
	updates   []scene.Content
	handlers  scene.Handlers
	destroyed bool
}

func (s *fakeSurface) Move(x, y int) { s.at = geom.Point{X: x, Y: y} }

func (s *fakeSurface) Update(c scene.Content, size geom.Size) {
	s.content = c
	s.updates = append(s.updates, c)
}

func (s *fakeSurface) SetOpacity(float64) {}

func (s *fakeSurface) Destroy() { s.destroyed = true }

// fakeScene runs posted functions synchronously so the whole
// notify-to-popup pipeline resolves inline.
type fakeScene struct {
	surfaces []*fakeSurface
}

func (f *fakeScene) Measure(c scene.Content) geom.Size {
	w := c.Width
	if w <= 0 {
		w = scene.DefaultWidth
	}
	return geom.Size{Width: w, Height: 60}
}

func (f *fakeScene) NewSurface(c scene.Content, size geom.Size, at geom.Point, h scene.Handlers) (scene.Surface, error) {
	s := &fakeSurface{content: c, at: at, handlers: h}
	f.surfaces = append(f.surfaces, s)
	return s, nil
}

func (f *fakeScene) WorkArea() geom.Rect { return geom.Rect{Width: 1000, Height: 800} }

func (f *fakeScene) Post(fn func()) { fn() }

// newTestDaemon builds a daemon on a fake scene without Start: no lock
// file, no bus connection, no watchers. Animations are zero-length so
// hides finalize synchronously.
func newTestDaemon(t *testing.T, mutate func(*config.DaemonConfig)) (*Daemon, *fakeScene) {
	t.Helper()

	cfg := config.DefaultDaemonConfig()
	cfg.Animation.Fade = 0
	cfg.Animation.Reflow = 0
	cfg.Audio.Enabled = false
	if mutate != nil {
		mutate(cfg)
	}

	fs := &fakeScene{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	d, err := New(Options{Scene: fs, Config: cfg, Logger: logger})
	require.NoError(t, err)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	animator := anim.NewManual(fs.Post, func() time.Time { return now })
	d.display = display.NewManager(fs, animator, cfg, logger)

	d.display.SetHiddenCallback(d.handleHidden)
	d.display.SetShownCallback(d.handleShown)
	d.display.SetActionCallback(d.handleAction)
	d.display.SetDroppedCallback(d.handleDropped)
	d.server.SetNotifyHandler(d.handleNotify)
	d.server.SetCloseHandler(d.handleClose)
	d.notifier.SetSendFunc(d.server.NotifyLocal)

	return d, fs
}

func request(summary string) *dbus.Request {
	return &dbus.Request{
		AppName:       "mail",
		Summary:       summary,
		Body:          "you have mail",
		ExpireTimeout: -1,
	}
}

func TestNotifyShowsPopup(t *testing.T) {
	d, fs := newTestDaemon(t, nil)

	id := d.server.NotifyLocal(request("hello"))

	require.Len(t, fs.surfaces, 1)
	assert.Equal(t, "hello", fs.surfaces[0].content.Title)

	popupID, ok := d.tracker.PopupID(id)
	assert.True(t, ok)
	assert.NotEmpty(t, popupID)

	d.pendingMu.Lock()
	assert.Empty(t, d.pending)
	d.pendingMu.Unlock()
}

func TestNotifyReplaceUpdatesExistingPopup(t *testing.T) {
	d, fs := newTestDaemon(t, nil)

	id := d.server.NotifyLocal(request("building"))
	popupID, _ := d.tracker.PopupID(id)

	// The bus path reuses the id when replaces_id names an active one.
	req := request("built")
	req.ReplacesID = id
	d.handleNotify(req, id)

	require.Len(t, fs.surfaces, 1)
	assert.Equal(t, "built", fs.surfaces[0].content.Title)
	assert.NotEmpty(t, fs.surfaces[0].updates)

	after, ok := d.tracker.PopupID(id)
	assert.True(t, ok)
	assert.Equal(t, popupID, after)
	assert.Equal(t, 1, d.tracker.Count())
}

func TestNotifyReplaceOfClosedPopupShowsFresh(t *testing.T) {
	d, fs := newTestDaemon(t, nil)

	id := d.server.NotifyLocal(request("gone"))
	d.handleClose(id)
	require.True(t, fs.surfaces[0].destroyed)

	req := request("fresh")
	req.ReplacesID = id
	d.handleNotify(req, id+100)

	require.Len(t, fs.surfaces, 2)
	assert.Equal(t, "fresh", fs.surfaces[1].content.Title)
}

func TestNotifySuppressedByDnD(t *testing.T) {
	d, fs := newTestDaemon(t, nil)
	d.dnd = config.DnDState{Enabled: true}

	store, err := history.Open(filepath.Join(t.TempDir(), "history.jsonl"), 50)
	require.NoError(t, err)
	defer store.Close()
	d.history = store

	id := d.server.NotifyLocal(request("quiet"))

	assert.Empty(t, fs.surfaces)
	assert.False(t, d.server.IsActive(id))

	records, err := store.Load()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "quiet", records[0].Title)
	assert.True(t, records[0].Suppressed)
}

func TestNotifyCriticalBypassesDnD(t *testing.T) {
	d, fs := newTestDaemon(t, func(c *config.DaemonConfig) {
		c.DnD.CriticalBypass = true
	})
	d.dnd = config.DnDState{Enabled: true}

	req := request("disk failing")
	req.SetUrgency(notify.UrgencyCritical)
	d.server.NotifyLocal(req)

	require.Len(t, fs.surfaces, 1)
	assert.Equal(t, notify.UrgencyCritical, fs.surfaces[0].content.Urgency)
}

func TestNotifyDnDWithoutBypassSwallowsCritical(t *testing.T) {
	d, fs := newTestDaemon(t, func(c *config.DaemonConfig) {
		c.DnD.CriticalBypass = false
	})
	d.dnd = config.DnDState{Enabled: true}

	req := request("disk failing")
	req.SetUrgency(notify.UrgencyCritical)
	d.server.NotifyLocal(req)

	assert.Empty(t, fs.surfaces)
}

func TestCloseNotificationHidesPopup(t *testing.T) {
	d, fs := newTestDaemon(t, nil)

	id := d.server.NotifyLocal(request("bye"))
	d.handleClose(id)

	assert.True(t, fs.surfaces[0].destroyed)
	assert.Equal(t, 0, d.tracker.Count())
	assert.False(t, d.server.IsActive(id))
}

func TestCloseUnknownIDIsNoop(t *testing.T) {
	d, fs := newTestDaemon(t, nil)

	d.handleClose(42)

	assert.Empty(t, fs.surfaces)
}

func TestActionDismissesNonResident(t *testing.T) {
	d, fs := newTestDaemon(t, nil)

	req := request("update ready")
	req.Actions = []string{"install", "Install"}
	id := d.server.NotifyLocal(req)

	fs.surfaces[0].handlers.OnAction("install")

	assert.True(t, fs.surfaces[0].destroyed)
	assert.Equal(t, 0, d.tracker.Count())
	assert.False(t, d.server.IsActive(id))
}

func TestDismissViaCloseButton(t *testing.T) {
	d, fs := newTestDaemon(t, nil)

	id := d.server.NotifyLocal(request("dismiss me"))

	fs.surfaces[0].handlers.OnClose()

	assert.True(t, fs.surfaces[0].destroyed)
	assert.False(t, d.server.IsActive(id))
}

func TestQueuedNotificationRegistersWhenShown(t *testing.T) {
	d, fs := newTestDaemon(t, func(c *config.DaemonConfig) {
		c.Display.MaxVisible = 1
	})

	id1 := d.server.NotifyLocal(request("first"))
	id2 := d.server.NotifyLocal(request("second"))

	// The second holds no popup yet; its rider waits for the surface.
	require.Len(t, fs.surfaces, 1)
	_, ok := d.tracker.PopupID(id2)
	assert.False(t, ok)
	d.pendingMu.Lock()
	assert.Len(t, d.pending, 1)
	d.pendingMu.Unlock()

	d.handleClose(id1)

	require.Len(t, fs.surfaces, 2)
	assert.Equal(t, "second", fs.surfaces[1].content.Title)
	_, ok = d.tracker.PopupID(id2)
	assert.True(t, ok)
	d.pendingMu.Lock()
	assert.Empty(t, d.pending)
	d.pendingMu.Unlock()
}

func TestQueuedNotificationClosedWhenDropped(t *testing.T) {
	d, fs := newTestDaemon(t, func(c *config.DaemonConfig) {
		c.Display.MaxVisible = 1
	})

	d.server.NotifyLocal(request("first"))
	id2 := d.server.NotifyLocal(request("second"))
	require.Len(t, fs.surfaces, 1)
	require.True(t, d.server.IsActive(id2))

	// Shutdown clears the queue; the sender still hears a close.
	d.display.CloseAll()

	assert.False(t, d.server.IsActive(id2))
	d.pendingMu.Lock()
	assert.Empty(t, d.pending)
	d.pendingMu.Unlock()
}

func TestDnDReloadAnnouncesBeforeSuppressing(t *testing.T) {
	stateHome := t.TempDir()
	t.Setenv("XDG_STATE_HOME", stateHome)

	d, fs := newTestDaemon(t, nil)

	_, err := config.SaveDnD(config.DnDStatePath(), true)
	require.NoError(t, err)

	d.reloadDnD()

	// The announcement itself surfaced despite enabling suppression.
	require.Len(t, fs.surfaces, 1)
	assert.Equal(t, "Do not disturb on", fs.surfaces[0].content.Title)

	d.server.NotifyLocal(request("after"))
	assert.Len(t, fs.surfaces, 1)
}

func TestRequestToNotification(t *testing.T) {
	cfg := config.DefaultDaemonConfig()

	t.Run("default timeout from urgency", func(t *testing.T) {
		req := request("a")
		n := requestToNotification(req, cfg)

		assert.Equal(t, "mail", n.AppName)
		assert.Equal(t, "a", n.Title)
		assert.Equal(t, "you have mail", n.Body)
		assert.Equal(t, notify.UrgencyNormal, n.Urgency)
		assert.Equal(t, cfg.TimeoutForUrgency(notify.UrgencyNormal), n.HideAfter)
	})

	t.Run("zero timeout never expires", func(t *testing.T) {
		req := request("a")
		req.ExpireTimeout = 0
		n := requestToNotification(req, cfg)
		assert.Equal(t, time.Duration(0), n.HideAfter)
	})

	t.Run("explicit timeout in milliseconds", func(t *testing.T) {
		req := request("a")
		req.ExpireTimeout = 2500
		n := requestToNotification(req, cfg)
		assert.Equal(t, 2500*time.Millisecond, n.HideAfter)
	})

	t.Run("critical default timeout", func(t *testing.T) {
		req := request("a")
		req.SetUrgency(notify.UrgencyCritical)
		n := requestToNotification(req, cfg)
		assert.Equal(t, cfg.TimeoutForUrgency(notify.UrgencyCritical), n.HideAfter)
	})

	t.Run("position hint", func(t *testing.T) {
		req := request("a")
		req.SetPosition(notify.TopLeft)
		n := requestToNotification(req, cfg)
		assert.Equal(t, notify.TopLeft, n.Position)
	})

	t.Run("missing position left to config", func(t *testing.T) {
		req := request("a")
		n := requestToNotification(req, cfg)
		assert.Empty(t, n.Position)
	})

	t.Run("progress value", func(t *testing.T) {
		req := request("a")
		req.SetValue(40)
		n := requestToNotification(req, cfg)
		assert.True(t, n.HasValue)
		assert.Equal(t, 40, n.Value)
	})

	t.Run("style hints", func(t *testing.T) {
		req := request("a")
		req.SetDark(true).SetNoCloseButton(true)
		n := requestToNotification(req, cfg)
		assert.True(t, n.Dark())
		assert.True(t, n.HideCloseButton)
	})

	t.Run("actions", func(t *testing.T) {
		req := request("a")
		req.Actions = []string{"yes", "Yes", "no", "No"}
		n := requestToNotification(req, cfg)
		assert.Equal(t, []notify.Action{{Key: "yes", Label: "Yes"}, {Key: "no", Label: "No"}}, n.Actions)
	})

	t.Run("resident hint read from variant", func(t *testing.T) {
		req := request("a")
		req.Hints = map[string]godbus.Variant{
			dbus.HintResident: godbus.MakeVariant(true),
		}
		assert.True(t, req.Resident())
	})
}
