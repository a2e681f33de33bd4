package display

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toast/internal/anim"
	"toast/internal/config"
	"toast/internal/geom"
	"toast/internal/notify"
	"toast/internal/scene"
)

// fakeSurface records everything the manager does to it.
type fakeSurface struct {
	content   scene.Content
	at        geom.Point
	opacity   float64
	moves     []geom.Point
	updates   []scene.Content
	handlers  scene.Handlers
	destroyed bool
}

func (s *fakeSurface) Move(x, y int) {
	s.at = geom.Point{X: x, Y: y}
	s.moves = append(s.moves, s.at)
}

func (s *fakeSurface) Update(c scene.Content, size geom.Size) {
	s.content = c
	s.updates = append(s.updates, c)
}

func (s *fakeSurface) SetOpacity(v float64) { s.opacity = v }

func (s *fakeSurface) Destroy() { s.destroyed = true }

// fakeScene measures popups from a per-title height script and runs posted
// functions synchronously.
type fakeScene struct {
	work     geom.Rect
	heights  map[string]int
	surfaces []*fakeSurface
}

func (f *fakeScene) Measure(c scene.Content) geom.Size {
	w := c.Width
	if w <= 0 {
		w = scene.DefaultWidth
	}
	h := f.heights[c.Title]
	if h == 0 {
		h = 60
	}
	return geom.Size{Width: w, Height: h}
}

func (f *fakeScene) NewSurface(c scene.Content, size geom.Size, at geom.Point, h scene.Handlers) (scene.Surface, error) {
	s := &fakeSurface{content: c, at: at, opacity: 1, handlers: h}
	f.surfaces = append(f.surfaces, s)
	return s, nil
}

func (f *fakeScene) WorkArea() geom.Rect { return f.work }

func (f *fakeScene) Post(fn func()) { fn() }

// fixture wires a manager to a fake scene and a manually stepped clock.
type fixture struct {
	scene *fakeScene
	mgr   *Manager
	anim  *anim.Animator
	now   time.Time

	hidden  []Cause
	shown   int
	dropped []string
}

func newFixture(mutate func(*config.DaemonConfig)) *fixture {
	f := &fixture{
		scene: &fakeScene{
			work:    geom.Rect{X: 0, Y: 0, Width: 1000, Height: 800},
			heights: map[string]int{},
		},
		now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	cfg := config.DefaultDaemonConfig()
	if mutate != nil {
		mutate(cfg)
	}

	animator := anim.NewManual(f.scene.Post, func() time.Time { return f.now })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	f.anim = animator
	f.mgr = NewManager(f.scene, animator, cfg, logger)
	f.mgr.SetShownCallback(func(*Popup) { f.shown++ })
	f.mgr.SetHiddenCallback(func(_ *Popup, cause Cause) { f.hidden = append(f.hidden, cause) })
	f.mgr.SetDroppedCallback(func(n *notify.Notification) { f.dropped = append(f.dropped, n.Title) })
	return f
}

// step advances the clock and runs one animation step.
func (f *fixture) step(d time.Duration) {
	f.now = f.now.Add(d)
	f.anim.Step(f.now)
}

func (f *fixture) surface(i int) *fakeSurface {
	return f.scene.surfaces[i]
}

func note(title string) *notify.Notification {
	return &notify.Notification{
		AppName:  "test",
		Title:    title,
		Position: notify.BottomRight,
		Urgency:  notify.UrgencyNormal,
	}
}

func noteAt(title string, pos notify.Position) *notify.Notification {
	n := note(title)
	n.Position = pos
	return n
}

func TestShow_BottomRightAnchor(t *testing.T) {
	f := newFixture(nil)

	p, err := f.mgr.Show(note("a"))
	require.NoError(t, err)
	require.NotNil(t, p)

	// 1000x800 work area, 3% padding = 24, popup 400x60
	assert.Equal(t, geom.Point{X: 576, Y: 716}, p.Anchor())
	assert.Equal(t, geom.Point{X: 576, Y: 716}, f.surface(0).at)
	assert.Equal(t, 1, f.shown)
	assert.Equal(t, 1, f.mgr.ActiveCount())
}

func TestShow_UsesConfigDefaultPosition(t *testing.T) {
	f := newFixture(func(c *config.DaemonConfig) { c.Display.Position = "top-right" })

	n := note("a")
	n.Position = ""
	p, err := f.mgr.Show(n)
	require.NoError(t, err)

	assert.Equal(t, notify.TopRight, p.Position)
	assert.Equal(t, geom.Point{X: 576, Y: 24}, p.Anchor())
}

func TestShow_TopStackGrowsDownward(t *testing.T) {
	f := newFixture(nil)

	p1, err := f.mgr.Show(noteAt("a", notify.TopLeft))
	require.NoError(t, err)
	assert.Equal(t, geom.Point{X: 24, Y: 24}, p1.Anchor())

	p2, err := f.mgr.Show(noteAt("b", notify.TopLeft))
	require.NoError(t, err)

	// The new popup lands below the existing one: 24 + 60 + 24
	assert.Equal(t, 108, p2.Anchor().Y)
	// The first popup never moves, so no reflow transitions run
	assert.Equal(t, 24, p1.Anchor().Y)
	assert.Equal(t, 0, f.anim.Active())

	p3, err := f.mgr.Show(noteAt("c", notify.TopLeft))
	require.NoError(t, err)
	assert.Equal(t, 192, p3.Anchor().Y)
}

func TestShow_BottomStackPushesOlderUp(t *testing.T) {
	f := newFixture(nil)

	p1, _ := f.mgr.Show(note("a"))
	require.Equal(t, 716, p1.Anchor().Y)

	p2, _ := f.mgr.Show(note("b"))
	// Newest takes the corner; the older popup animates up to 656
	assert.Equal(t, 716, p2.Anchor().Y)
	assert.Equal(t, 716, p1.Anchor().Y)

	f.step(175 * time.Millisecond)
	assert.Greater(t, p1.Anchor().Y, 656)
	assert.Less(t, p1.Anchor().Y, 716)

	f.step(175 * time.Millisecond)
	assert.Equal(t, 656, p1.Anchor().Y)
	assert.Equal(t, 716, p2.Anchor().Y)
}

func TestShow_CenterStacking(t *testing.T) {
	f := newFixture(nil)

	p1, _ := f.mgr.Show(noteAt("a", notify.Center))
	// 800/2 - 60/2 - 24/2 = 358
	assert.Equal(t, 358, p1.Anchor().Y)
	assert.Equal(t, 288, p1.Anchor().X)

	p2, _ := f.mgr.Show(noteAt("b", notify.Center))
	assert.Equal(t, 358, p2.Anchor().Y)

	f.step(350 * time.Millisecond)
	assert.Equal(t, 298, p1.Anchor().Y)
}

func TestShow_OwnerRectConfinesPopup(t *testing.T) {
	f := newFixture(nil)

	n := note("a")
	owner := geom.Rect{X: 100, Y: 50, Width: 1000, Height: 800}
	n.Owner = &owner
	p, err := f.mgr.Show(n)
	require.NoError(t, err)

	assert.Equal(t, geom.Point{X: 676, Y: 766}, p.Anchor())
}

func TestShow_NilNotification(t *testing.T) {
	f := newFixture(nil)

	_, err := f.mgr.Show(nil)
	var derr *DisplayError
	require.ErrorAs(t, err, &derr)
}

func TestAutoHide_Expires(t *testing.T) {
	f := newFixture(nil)

	n := note("a")
	n.HideAfter = 2 * time.Second
	hideCalled := false
	n.OnHide = func() { hideCalled = true }

	p, err := f.mgr.Show(n)
	require.NoError(t, err)
	assert.False(t, p.ExpiresAt().IsZero())

	// Nothing happens before the delay elapses
	f.step(1900 * time.Millisecond)
	assert.False(t, f.surface(0).destroyed)
	assert.Equal(t, 1, f.mgr.ActiveCount())

	// Fade runs over the following 500ms
	f.step(350 * time.Millisecond) // t = 2.25s
	assert.InDelta(t, 0.5, f.surface(0).opacity, 0.01)
	assert.False(t, f.surface(0).destroyed)

	f.step(250 * time.Millisecond) // t = 2.5s
	assert.True(t, f.surface(0).destroyed)
	assert.True(t, p.Hidden())
	assert.True(t, hideCalled)
	assert.Equal(t, []Cause{CauseExpired}, f.hidden)
	assert.Equal(t, 0, f.mgr.ActiveCount())
}

func TestAutoHide_StickyWhenZero(t *testing.T) {
	f := newFixture(nil)

	p, err := f.mgr.Show(note("a")) // HideAfter zero
	require.NoError(t, err)
	assert.True(t, p.ExpiresAt().IsZero())

	f.step(time.Hour)
	assert.False(t, p.Hidden())
	assert.Equal(t, 1, f.mgr.ActiveCount())
}

func TestHide_FadesThenDestroys(t *testing.T) {
	f := newFixture(nil)

	p, _ := f.mgr.Show(note("a"))
	f.mgr.Hide(p, CauseClosed)

	// The slot frees immediately even though the fade is still running
	assert.Equal(t, 0, f.mgr.ActiveCount())
	assert.True(t, p.Exiting())
	assert.False(t, p.Hidden())
	assert.False(t, f.surface(0).destroyed)

	f.step(250 * time.Millisecond)
	assert.InDelta(t, 0.5, f.surface(0).opacity, 0.01)

	f.step(250 * time.Millisecond)
	assert.True(t, f.surface(0).destroyed)
	assert.True(t, p.Hidden())
	assert.Equal(t, []Cause{CauseClosed}, f.hidden)
}

func TestHide_Idempotent(t *testing.T) {
	f := newFixture(nil)

	n := note("a")
	n.HideAfter = time.Second
	hideCalls := 0
	n.OnHide = func() { hideCalls++ }

	p, _ := f.mgr.Show(n)
	f.mgr.Hide(p, CauseDismissed)
	f.mgr.Hide(p, CauseDismissed)

	// The cancelled auto-hide never fires either
	f.step(5 * time.Second)
	f.mgr.Hide(p, CauseDismissed)

	assert.Equal(t, 1, hideCalls)
	assert.Equal(t, []Cause{CauseDismissed}, f.hidden)
}

func TestHide_NilHideCallback(t *testing.T) {
	f := newFixture(nil)

	p, _ := f.mgr.Show(note("a")) // OnHide nil
	f.mgr.Hide(p, CauseClosed)
	f.step(500 * time.Millisecond)

	assert.True(t, p.Hidden())
}

func TestHide_ReflowsSurvivorsImmediately(t *testing.T) {
	f := newFixture(nil)

	p1, _ := f.mgr.Show(note("a"))
	p2, _ := f.mgr.Show(note("b"))
	p3, _ := f.mgr.Show(note("c"))
	f.step(350 * time.Millisecond)
	require.Equal(t, 596, p1.Anchor().Y)
	require.Equal(t, 656, p2.Anchor().Y)
	require.Equal(t, 716, p3.Anchor().Y)

	// Hiding the middle popup starts the survivors moving right away
	f.mgr.Hide(p2, CauseDismissed)
	assert.Equal(t, 2, f.mgr.ActiveCount())

	f.step(350 * time.Millisecond)
	assert.Equal(t, 656, p1.Anchor().Y)
	assert.Equal(t, 716, p3.Anchor().Y)

	f.step(150 * time.Millisecond)
	assert.True(t, p2.Hidden())
}

func TestReflow_CancelReplace(t *testing.T) {
	f := newFixture(nil)

	p1, _ := f.mgr.Show(note("a"))
	f.mgr.Show(note("b"))
	require.Equal(t, 1, f.anim.Active())

	// Half way through, a third popup restarts the reflow from the
	// current position
	f.step(175 * time.Millisecond)
	mid := p1.Anchor().Y
	require.Greater(t, mid, 656)
	require.Less(t, mid, 716)

	f.mgr.Show(note("c"))
	assert.Equal(t, 2, f.anim.Active())

	f.step(350 * time.Millisecond)
	assert.Equal(t, 596, p1.Anchor().Y)
	assert.Equal(t, 0, f.anim.Active())
}

func TestReflow_OffscreenHiddenImmediately(t *testing.T) {
	f := newFixture(nil)
	f.scene.work = geom.Rect{X: 0, Y: 0, Width: 1000, Height: 200}
	f.scene.heights["a"] = 80
	f.scene.heights["b"] = 80
	f.scene.heights["c"] = 80

	// 3% of 200 = 6 padding; each popup is 80 tall
	p1, _ := f.mgr.Show(note("a"))
	p2, _ := f.mgr.Show(note("b"))
	f.step(350 * time.Millisecond)
	require.Equal(t, 34, p1.Anchor().Y)
	require.Equal(t, 114, p2.Anchor().Y)

	// The third pushes the oldest to y=-46: hidden at once, no animation
	p3, _ := f.mgr.Show(note("c"))
	assert.True(t, p1.Hidden())
	assert.True(t, f.surface(0).destroyed)
	assert.Equal(t, []Cause{CauseExpired}, f.hidden)

	f.step(350 * time.Millisecond)
	assert.Equal(t, 34, p2.Anchor().Y)
	assert.Equal(t, 114, p3.Anchor().Y)
}

func TestShow_TopStackOverflowHidesNewPopup(t *testing.T) {
	f := newFixture(nil)
	f.scene.work = geom.Rect{X: 0, Y: 0, Width: 1000, Height: 200}
	for _, title := range []string{"a", "b", "c"} {
		f.scene.heights[title] = 80
	}

	f.mgr.Show(noteAt("a", notify.TopLeft))
	f.mgr.Show(noteAt("b", notify.TopLeft))
	require.Equal(t, 2, f.shown)

	// Targets 6 and 92 fit in 200; the third popup at 178 would overflow
	p3, err := f.mgr.Show(noteAt("c", notify.TopLeft))
	require.NoError(t, err)
	assert.True(t, p3.Hidden())
	assert.Equal(t, 2, f.shown)
	assert.Equal(t, 2, f.mgr.ActiveCount())
	assert.Equal(t, []Cause{CauseExpired}, f.hidden)
}

func TestClick_RunsActionAndDismisses(t *testing.T) {
	f := newFixture(nil)

	n := note("a")
	clicked := false
	n.OnClick = func() { clicked = true }
	p, _ := f.mgr.Show(n)

	f.surface(0).handlers.OnClick()
	assert.True(t, clicked)
	assert.True(t, p.Exiting())

	f.step(500 * time.Millisecond)
	assert.Equal(t, []Cause{CauseDismissed}, f.hidden)
}

func TestClick_IgnoredWithoutAction(t *testing.T) {
	f := newFixture(nil)

	p, _ := f.mgr.Show(note("a"))
	f.surface(0).handlers.OnClick()

	assert.False(t, p.Exiting())
	assert.Equal(t, 1, f.mgr.ActiveCount())
}

func TestCloseButton_Dismisses(t *testing.T) {
	f := newFixture(nil)

	p, _ := f.mgr.Show(note("a"))
	f.surface(0).handlers.OnClose()

	assert.True(t, p.Exiting())
	f.step(500 * time.Millisecond)
	assert.Equal(t, []Cause{CauseDismissed}, f.hidden)
}

func TestActionButton_ReportsKeyAndDismisses(t *testing.T) {
	f := newFixture(nil)

	var gotKey string
	f.mgr.SetActionCallback(func(_ *Popup, key string) { gotKey = key })

	n := note("a")
	n.Actions = []notify.Action{{Key: "reply", Label: "Reply"}}
	p, _ := f.mgr.Show(n)

	f.surface(0).handlers.OnAction("reply")
	assert.Equal(t, "reply", gotKey)
	assert.True(t, p.Exiting())
}

func TestStackDuplicates(t *testing.T) {
	f := newFixture(nil)

	p1, _ := f.mgr.Show(note("a"))
	p2, _ := f.mgr.Show(note("a"))

	assert.Same(t, p1, p2)
	assert.Equal(t, 2, p1.Count())
	assert.Len(t, f.scene.surfaces, 1)
	require.Len(t, f.surface(0).updates, 1)
	assert.Equal(t, 2, f.surface(0).updates[0].Count)
}

func TestStackDuplicates_RestartsAutoHide(t *testing.T) {
	f := newFixture(nil)

	n1 := note("a")
	n1.HideAfter = 2 * time.Second
	p, _ := f.mgr.Show(n1)

	f.step(1500 * time.Millisecond)

	n2 := note("a")
	n2.HideAfter = 2 * time.Second
	f.mgr.Show(n2)

	// The original expiry would have fired at 2.5s
	f.step(1500 * time.Millisecond) // t = 3s
	assert.False(t, p.Hidden())

	f.step(1500 * time.Millisecond) // t = 4.5s, past 1.5+2+0.5
	assert.True(t, p.Hidden())
}

func TestStackDuplicates_Disabled(t *testing.T) {
	f := newFixture(func(c *config.DaemonConfig) { c.Behavior.StackDuplicates = false })

	f.mgr.Show(note("a"))
	f.mgr.Show(note("a"))

	assert.Equal(t, 2, f.mgr.ActiveCount())
	assert.Len(t, f.scene.surfaces, 2)
}

func TestStackDuplicates_DifferentPositionsDoNotStack(t *testing.T) {
	f := newFixture(nil)

	f.mgr.Show(noteAt("a", notify.BottomRight))
	f.mgr.Show(noteAt("a", notify.TopLeft))

	assert.Equal(t, 2, f.mgr.ActiveCount())
}

func TestMaxVisible_QueuesAndDrains(t *testing.T) {
	f := newFixture(func(c *config.DaemonConfig) { c.Display.MaxVisible = 2 })

	p1, _ := f.mgr.Show(note("a"))
	f.mgr.Show(note("b"))
	queued, err := f.mgr.Show(note("c"))
	require.NoError(t, err)
	assert.Nil(t, queued)
	assert.Equal(t, 2, f.mgr.ActiveCount())
	assert.Equal(t, 1, f.mgr.QueuedCount())

	// A freed slot pulls the queued notification in once the fade ends
	f.mgr.Hide(p1, CauseDismissed)
	assert.Equal(t, 1, f.mgr.QueuedCount())
	f.step(500 * time.Millisecond)

	assert.Equal(t, 0, f.mgr.QueuedCount())
	assert.Equal(t, 2, f.mgr.ActiveCount())
	assert.Equal(t, 3, f.shown)
}

func TestMaxVisible_CriticalJumpsQueue(t *testing.T) {
	f := newFixture(func(c *config.DaemonConfig) { c.Display.MaxVisible = 1 })

	p1, _ := f.mgr.Show(note("a"))
	f.mgr.Show(note("b"))
	crit := note("c")
	crit.Urgency = notify.UrgencyCritical
	f.mgr.Show(crit)
	require.Equal(t, 2, f.mgr.QueuedCount())

	f.mgr.Hide(p1, CauseDismissed)
	f.step(500 * time.Millisecond)

	popups := f.mgr.Popups()
	require.Len(t, popups, 1)
	assert.Equal(t, "c", popups[0].Notification.Title)
}

func TestCloseAll(t *testing.T) {
	f := newFixture(func(c *config.DaemonConfig) { c.Display.MaxVisible = 2 })

	f.mgr.Show(note("a"))
	f.mgr.Show(noteAt("b", notify.TopLeft))
	f.mgr.Show(note("c")) // queued

	f.mgr.CloseAll()
	assert.Equal(t, 0, f.mgr.ActiveCount())
	assert.Equal(t, 0, f.mgr.QueuedCount())

	// The queued notification is reported dropped, never shown
	assert.Equal(t, []string{"c"}, f.dropped)

	f.step(500 * time.Millisecond)
	assert.Equal(t, []Cause{CauseClosed, CauseClosed}, f.hidden)
	for _, s := range f.scene.surfaces {
		assert.True(t, s.destroyed)
	}
}

func TestReplace_InPlace(t *testing.T) {
	f := newFixture(nil)

	p, _ := f.mgr.Show(note("a"))
	require.Equal(t, 716, p.Anchor().Y)

	n := note("b")
	require.NoError(t, f.mgr.Replace(p, n))

	assert.Equal(t, "b", p.Notification.Title)
	assert.Equal(t, 1, f.mgr.ActiveCount())
	assert.Len(t, f.scene.surfaces, 1)
	require.NotEmpty(t, f.surface(0).updates)
	assert.Equal(t, "b", f.surface(0).updates[0].Title)
}

func TestReplace_ResizeReflows(t *testing.T) {
	f := newFixture(nil)
	f.scene.heights["tall"] = 120

	p, _ := f.mgr.Show(note("a"))
	require.NoError(t, f.mgr.Replace(p, note("tall")))

	// 800 - 120 - 24 = 656
	f.step(350 * time.Millisecond)
	assert.Equal(t, 656, p.Anchor().Y)
}

func TestReplace_HiddenShowsFresh(t *testing.T) {
	f := newFixture(nil)

	p, _ := f.mgr.Show(note("a"))
	f.mgr.Hide(p, CauseClosed)
	f.step(500 * time.Millisecond)
	require.True(t, p.Hidden())

	require.NoError(t, f.mgr.Replace(p, note("b")))
	assert.Equal(t, 1, f.mgr.ActiveCount())
	assert.Len(t, f.scene.surfaces, 2)
}

func TestDisplay_BuilderTerminals(t *testing.T) {
	f := newFixture(nil)

	err := notify.Create(f.mgr).
		Title("build finished").
		Text("all tests passed").
		ShowInformation()
	require.NoError(t, err)

	popups := f.mgr.Popups()
	require.Len(t, popups, 1)
	assert.Equal(t, "build finished", popups[0].Notification.Title)
	assert.Equal(t, notify.GraphicInformation, popups[0].Notification.Graphic)
	// Builder default position and auto-hide delay apply
	assert.Equal(t, notify.BottomRight, popups[0].Position)
	assert.False(t, popups[0].ExpiresAt().IsZero())
}

func TestUpdateConfig_AffectsNewPopups(t *testing.T) {
	f := newFixture(nil)

	cfg := config.DefaultDaemonConfig()
	cfg.Behavior.StackDuplicates = false
	f.mgr.UpdateConfig(cfg)

	f.mgr.Show(note("a"))
	f.mgr.Show(note("a"))
	assert.Equal(t, 2, f.mgr.ActiveCount())
}
