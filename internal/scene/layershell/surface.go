package layershell

import (
	"strconv"
	"strings"

	layershell "github.com/diamondburned/gotk4-layer-shell/pkg/gtk4layershell"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"toast/internal/geom"
	"toast/internal/scene"
)

// surface is one layer-shell popup window. All methods run on the GTK
// main loop.
type surface struct {
	b        *Backend
	window   *gtk.Window
	handlers scene.Handlers
	content  scene.Content
	dead     bool
}

// newSurface builds and presents the window. The window is anchored to
// the monitor's top-left edge so margins behave as absolute
// coordinates inside the work area the backend reported.
func newSurface(b *Backend, c scene.Content, size geom.Size, at geom.Point, h scene.Handlers) *surface {
	s := &surface{
		b:        b,
		handlers: h,
		content:  c,
	}

	s.window = gtk.NewWindow()
	s.window.SetApplication(b.app)
	s.window.SetDecorated(false)
	s.window.SetResizable(false)
	s.window.SetDefaultSize(size.Width, size.Height)
	s.window.SetSizeRequest(size.Width, size.Height)

	layershell.InitForWindow(s.window)
	layershell.SetLayer(s.window, layershell.LayerShellLayerTop)
	layershell.SetExclusiveZone(s.window, 0)
	layershell.SetKeyboardMode(s.window, layershell.LayerShellKeyboardModeNone)
	layershell.SetNamespace(s.window, "toast-popup")
	layershell.SetAnchor(s.window, layershell.LayerShellEdgeTop, true)
	layershell.SetAnchor(s.window, layershell.LayerShellEdgeLeft, true)
	layershell.SetMargin(s.window, layershell.LayerShellEdgeTop, at.Y)
	layershell.SetMargin(s.window, layershell.LayerShellEdgeLeft, at.X)

	if mon := b.targetMonitor(); mon != nil {
		layershell.SetMonitor(s.window, mon)
	}

	s.window.SetChild(s.build(c))
	s.connectClicks()
	s.window.Present()
	return s
}

// build constructs the widget tree for c.
func (s *surface) build(c scene.Content) *gtk.Box {
	box := gtk.NewBox(gtk.OrientationVertical, 6)
	box.SetMarginTop(8)
	box.SetMarginBottom(8)
	box.SetMarginStart(12)
	box.SetMarginEnd(12)
	for _, class := range contentClasses(c) {
		box.AddCSSClass(class)
	}

	box.Append(s.buildHeader(c))

	if len(c.Body) > 0 {
		body := gtk.NewLabel(strings.Join(c.Body, "\n"))
		body.AddCSSClass("toast-body")
		body.SetXAlign(0)
		body.SetWrap(true)
		body.SetWrapMode(2) // PANGO_WRAP_WORD_CHAR
		body.SetMaxWidthChars(50)
		box.Append(body)
	}

	if c.HasValue {
		meter := gtk.NewProgressBar()
		meter.AddCSSClass("toast-meter")
		meter.SetFraction(float64(c.Value) / 100.0)
		box.Append(meter)
	}

	if len(c.Actions) > 0 {
		box.Append(s.buildActions(c))
	}

	return box
}

// buildHeader creates the icon, title, duplicate counter, and close
// button row.
func (s *surface) buildHeader(c scene.Content) *gtk.Box {
	header := gtk.NewBox(gtk.OrientationHorizontal, 8)
	header.AddCSSClass("toast-header")

	if c.Graphic != "" {
		icon := gtk.NewImage()
		icon.AddCSSClass("toast-icon")
		icon.SetPixelSize(scene.IconSize)
		icon.SetFromIconName(c.Graphic)
		header.Append(icon)
	}

	title := gtk.NewLabel(c.Title)
	title.AddCSSClass("toast-title")
	title.SetXAlign(0)
	title.SetEllipsize(3) // PANGO_ELLIPSIZE_END
	title.SetMaxWidthChars(40)
	title.SetHExpand(true)
	header.Append(title)

	if c.Count > 1 {
		count := gtk.NewLabel("(x" + strconv.Itoa(c.Count) + ")")
		count.AddCSSClass("toast-count")
		header.Append(count)
	}

	if c.CloseButton {
		closeBtn := gtk.NewButtonFromIconName("window-close-symbolic")
		closeBtn.AddCSSClass("toast-close")
		closeBtn.ConnectClicked(func() {
			if s.handlers.OnClose != nil {
				s.handlers.OnClose()
			}
		})
		header.Append(closeBtn)
	}

	return header
}

// buildActions creates one button per action.
func (s *surface) buildActions(c scene.Content) *gtk.Box {
	actions := gtk.NewBox(gtk.OrientationHorizontal, 6)
	actions.AddCSSClass("toast-actions")
	for _, action := range c.Actions {
		key := action.Key
		btn := gtk.NewButtonWithLabel(action.Label)
		btn.AddCSSClass("toast-action")
		btn.ConnectClicked(func() {
			if s.handlers.OnAction != nil {
				s.handlers.OnAction(key)
			}
		})
		actions.Append(btn)
	}
	return actions
}

// connectClicks reports primary-button releases on the window body.
// Clicks on buttons claim the gesture sequence first and never reach
// here.
func (s *surface) connectClicks() {
	click := gtk.NewGestureClick()
	click.SetButton(0)
	click.ConnectReleased(func(nPress int, x, y float64) {
		if click.CurrentButton() != 1 {
			return
		}
		if s.handlers.OnClick != nil {
			s.handlers.OnClick()
		}
	})
	s.window.AddController(click)
}

// Move updates the layer-shell margins to the new coordinate.
func (s *surface) Move(x, y int) {
	if s.dead {
		return
	}
	layershell.SetMargin(s.window, layershell.LayerShellEdgeTop, y)
	layershell.SetMargin(s.window, layershell.LayerShellEdgeLeft, x)
}

// Update swaps in new content, rebuilding the widget tree.
func (s *surface) Update(c scene.Content, size geom.Size) {
	if s.dead {
		return
	}
	s.content = c
	s.window.SetDefaultSize(size.Width, size.Height)
	s.window.SetSizeRequest(size.Width, size.Height)
	s.window.SetChild(s.build(c))
}

// SetOpacity fades the whole window.
func (s *surface) SetOpacity(v float64) {
	if s.dead {
		return
	}
	s.window.SetOpacity(v)
}

// Destroy closes the window.
func (s *surface) Destroy() {
	if s.dead {
		return
	}
	s.dead = true
	delete(s.b.surfaces, s)
	s.window.Close()
}
