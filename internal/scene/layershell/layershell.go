// Package layershell renders popups as Wayland layer-shell surfaces
// through GTK4 and libadwaita. Surfaces sit on the top layer, reserve
// no space, and never take keyboard focus.
package layershell

import (
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/diamondburned/gotk4/pkg/core/glib"
	"github.com/diamondburned/gotk4/pkg/gdk/v4"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"toast/internal/geom"
	"toast/internal/scene"
)

// Options configures the backend.
type Options struct {
	// App is the running GTK application windows attach to.
	App *gtk.Application
	// Monitor selects the output popups appear on, 0 = first.
	Monitor int
	Logger  *slog.Logger
}

// Backend implements scene.Scene on a Wayland compositor that speaks
// the wlr-layer-shell protocol. The GTK main loop is the scene loop:
// NewSurface, WorkArea, and surface methods must run on it, which the
// display manager guarantees by only touching the scene from posted
// closures.
type Backend struct {
	app     *gtk.Application
	display *gdk.Display
	logger  *slog.Logger
	monitor int

	provider *gtk.CSSProvider
	surfaces map[*surface]struct{}
}

// New prepares the backend on the default GDK display. The GTK
// application must already be activated.
func New(opts Options) (*Backend, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.App == nil {
		return nil, fmt.Errorf("layershell backend needs a GTK application")
	}

	display := gdk.DisplayGetDefault()
	if display == nil {
		return nil, fmt.Errorf("no GDK display available")
	}

	b := &Backend{
		app:      opts.App,
		display:  display,
		logger:   logger,
		monitor:  opts.Monitor,
		surfaces: make(map[*surface]struct{}),
	}

	b.provider = gtk.NewCSSProvider()
	b.provider.LoadFromString(loadStylesheet(logger))
	gtk.StyleContextAddProviderForDisplay(display, b.provider, gtk.STYLE_PROVIDER_PRIORITY_APPLICATION)

	b.logger.Info("layer-shell scene started", "monitor", opts.Monitor)
	return b, nil
}

// Post schedules f on the GTK main loop.
func (b *Backend) Post(f func()) {
	glib.IdleAdd(f)
}

// Measure reports the size content will render at.
func (b *Backend) Measure(c scene.Content) geom.Size {
	return scene.MeasureContent(c)
}

// WorkArea reports the target monitor's rectangle with a local origin.
// Layer-shell margins resolve against the monitor edge after the
// compositor subtracts panels' exclusive zones, so coordinates inside
// this rectangle land where the display manager expects them.
func (b *Backend) WorkArea() geom.Rect {
	mon := b.targetMonitor()
	if mon == nil {
		// A compositor without monitor objects is broken, but a sane
		// fallback keeps stacking math finite.
		return geom.Rect{Width: 1920, Height: 1080}
	}
	geo := mon.Geometry()
	return geom.Rect{Width: geo.Width(), Height: geo.Height()}
}

// targetMonitor resolves the configured monitor index, falling back to
// the first output.
func (b *Backend) targetMonitor() *gdk.Monitor {
	monitors := b.display.Monitors()
	if monitors == nil || monitors.NItems() == 0 {
		return nil
	}
	index := uint(b.monitor)
	if index >= monitors.NItems() {
		b.logger.Warn("configured monitor not available, using first",
			"configured", b.monitor,
			"available", monitors.NItems(),
		)
		index = 0
	}
	obj := monitors.Item(index)
	if obj == nil {
		return nil
	}
	return wrapMonitor(obj)
}

// wrapMonitor casts a list-model item back to a gdk.Monitor. gotk4
// does not export a wrapper for items coming out of gio.ListModel, so
// this mirrors its internal pointer-embedding layout.
func wrapMonitor(obj *glib.Object) *gdk.Monitor {
	if obj == nil {
		return nil
	}
	type monitor struct {
		_ [0]func()
		*glib.Object
	}
	m := &monitor{Object: obj}
	return (*gdk.Monitor)(unsafe.Pointer(m))
}

// NewSurface creates a layer-shell window showing c at the given
// monitor-local coordinate.
func (b *Backend) NewSurface(c scene.Content, size geom.Size, at geom.Point, h scene.Handlers) (scene.Surface, error) {
	s := newSurface(b, c, size, at, h)
	b.surfaces[s] = struct{}{}
	return s, nil
}

// Close destroys all remaining surfaces. It must run on the GTK
// thread; the application's shutdown signal is the intended call site,
// and by then the main loop no longer dispatches posted closures.
func (b *Backend) Close() {
	for s := range b.surfaces {
		s.Destroy()
	}
}
