// Package x11 renders popups as override-redirect X11 windows drawn
// with core bitmap fonts. It bypasses the window manager entirely, so
// popups never take focus and never appear in task lists.
package x11

import (
	"fmt"
	"log/slog"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"

	"toast/internal/geom"
	"toast/internal/scene"
)

// Candidate core fonts, tried in order. "fixed" is guaranteed by the
// server; the rest give nicer metrics when present.
var fontNames = []string{"fixed", "9x15", "8x13", "6x13"}

// Options configures the backend.
type Options struct {
	// Monitor selects the output popups appear on, 0 = first.
	Monitor int
	Logger  *slog.Logger
}

// Backend implements scene.Scene on a plain X11 connection. All state
// is confined to the event loop goroutine: NewSurface, WorkArea, and
// surface methods must run on it, which the display manager guarantees
// by only touching the scene from posted closures.
type Backend struct {
	xu     *xgbutil.XUtil
	conn   *xgb.Conn
	screen *xproto.ScreenInfo
	root   xproto.Window
	logger *slog.Logger

	monitor  int
	font     xproto.Font
	hasRandr bool

	surfaces map[xproto.Window]*surface

	run    chan func()
	events chan xgb.Event
	quit   chan struct{}
}

// New connects to the X server and starts the event loop.
func New(opts Options) (*Backend, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	xu, err := xgbutil.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}
	conn := xu.Conn()

	b := &Backend{
		xu:       xu,
		conn:     conn,
		screen:   xu.Screen(),
		root:     xu.RootWin(),
		logger:   logger,
		monitor:  opts.Monitor,
		surfaces: make(map[xproto.Window]*surface),
		run:      make(chan func(), 256),
		events:   make(chan xgb.Event, 64),
		quit:     make(chan struct{}),
	}

	if err := randr.Init(conn); err != nil {
		logger.Warn("RandR unavailable, using screen geometry", "error", err)
	} else {
		b.hasRandr = true
	}

	if err := b.openFont(); err != nil {
		conn.Close()
		return nil, err
	}

	go b.readEvents()
	go b.loop()

	logger.Info("X11 scene started", "display_size",
		fmt.Sprintf("%dx%d", b.screen.WidthInPixels, b.screen.HeightInPixels))
	return b, nil
}

func (b *Backend) openFont() error {
	font, err := xproto.NewFontId(b.conn)
	if err != nil {
		return fmt.Errorf("failed to allocate font id: %w", err)
	}
	for _, name := range fontNames {
		if err := xproto.OpenFontChecked(b.conn, font, uint16(len(name)), name).Check(); err == nil {
			b.font = font
			b.logger.Debug("opened core font", "name", name)
			return nil
		}
	}
	return fmt.Errorf("no usable core font among %v", fontNames)
}

// readEvents pumps X events into the loop channel. WaitForEvent
// returning two nils means the connection is gone.
func (b *Backend) readEvents() {
	for {
		ev, xerr := b.conn.WaitForEvent()
		if ev == nil && xerr == nil {
			close(b.events)
			return
		}
		if xerr != nil {
			b.logger.Debug("X error", "error", xerr)
			continue
		}
		select {
		case b.events <- ev:
		case <-b.quit:
			return
		}
	}
}

func (b *Backend) loop() {
	for {
		select {
		case f := <-b.run:
			f()
		case ev, ok := <-b.events:
			if !ok {
				return
			}
			b.dispatch(ev)
		case <-b.quit:
			return
		}
	}
}

func (b *Backend) dispatch(ev xgb.Event) {
	switch e := ev.(type) {
	case xproto.ButtonPressEvent:
		if s, ok := b.surfaces[e.Event]; ok {
			s.press(int(e.EventX), int(e.EventY))
		}
	case xproto.ExposeEvent:
		// Only redraw once the last expose in a series arrives.
		if e.Count == 0 {
			if s, ok := b.surfaces[e.Window]; ok {
				s.draw()
			}
		}
	}
}

// Post marshals f onto the event loop.
func (b *Backend) Post(f func()) {
	select {
	case b.run <- f:
	case <-b.quit:
	}
}

// Measure reports the deterministic size for the content.
func (b *Backend) Measure(c scene.Content) geom.Size {
	return scene.MeasureContent(c)
}

// WorkArea returns the usable rectangle of the configured monitor,
// shrunk by the EWMH work area when the window manager publishes one.
func (b *Backend) WorkArea() geom.Rect {
	area := b.monitorGeometry()

	if wa, err := ewmh.WorkareaGet(b.xu); err == nil && len(wa) > 0 {
		idx := 0
		if cur, err := ewmh.CurrentDesktopGet(b.xu); err == nil && int(cur) < len(wa) {
			idx = int(cur)
		}
		w := wa[idx]
		area = intersect(area, geom.Rect{
			X: int(w.X), Y: int(w.Y), Width: int(w.Width), Height: int(w.Height),
		})
	}
	return area
}

func (b *Backend) monitorGeometry() geom.Rect {
	full := geom.Rect{
		Width:  int(b.screen.WidthInPixels),
		Height: int(b.screen.HeightInPixels),
	}
	if !b.hasRandr {
		return full
	}

	res, err := randr.GetScreenResources(b.conn, b.root).Reply()
	if err != nil {
		return full
	}

	var active []geom.Rect
	for _, crtc := range res.Crtcs {
		info, err := randr.GetCrtcInfo(b.conn, crtc, res.ConfigTimestamp).Reply()
		if err != nil {
			continue
		}
		if info.Width == 0 || info.Height == 0 || len(info.Outputs) == 0 {
			continue
		}
		active = append(active, geom.Rect{
			X: int(info.X), Y: int(info.Y),
			Width: int(info.Width), Height: int(info.Height),
		})
	}
	if len(active) == 0 {
		return full
	}
	if b.monitor >= 0 && b.monitor < len(active) {
		return active[b.monitor]
	}
	return active[0]
}

// NewSurface creates, draws, and maps a popup window.
func (b *Backend) NewSurface(c scene.Content, size geom.Size, at geom.Point, h scene.Handlers) (scene.Surface, error) {
	s, err := newSurface(b, c, size, at, h)
	if err != nil {
		return nil, err
	}
	b.surfaces[s.win] = s
	return s, nil
}

// Close tears down all surfaces and the connection.
func (b *Backend) Close() {
	done := make(chan struct{})
	b.Post(func() {
		for _, s := range b.surfaces {
			s.Destroy()
		}
		close(done)
	})
	<-done

	close(b.quit)
	xproto.CloseFont(b.conn, b.font)
	b.conn.Close()
}

func intersect(a, b geom.Rect) geom.Rect {
	x1 := max(a.X, b.X)
	y1 := max(a.Y, b.Y)
	x2 := min(a.X+a.Width, b.X+b.Width)
	y2 := min(a.Y+a.Height, b.Y+b.Height)
	if x2 <= x1 || y2 <= y1 {
		return a
	}
	return geom.Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}
