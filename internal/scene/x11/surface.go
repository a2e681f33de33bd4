package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/xprop"

	"toast/internal/geom"
	"toast/internal/scene"
)

// surface is one mapped popup window. All methods run on the backend's
// event loop.
type surface struct {
	b   *Backend
	win xproto.Window
	gc  xproto.Gcontext

	content  scene.Content
	size     geom.Size
	regions  []region
	handlers scene.Handlers
	dead     bool
}

func newSurface(b *Backend, c scene.Content, size geom.Size, at geom.Point, h scene.Handlers) (*surface, error) {
	wid, err := xproto.NewWindowId(b.conn)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate window id: %w", err)
	}

	bg, fg, _ := palette(c.Urgency, c.Dark)

	err = xproto.CreateWindowChecked(
		b.conn,
		b.screen.RootDepth,
		wid,
		b.root,
		int16(at.X), int16(at.Y),
		uint16(size.Width), uint16(size.Height),
		0,
		xproto.WindowClassInputOutput,
		b.screen.RootVisual,
		xproto.CwBackPixel|xproto.CwOverrideRedirect|xproto.CwEventMask,
		// Value order follows the mask bits low to high: back_pixel,
		// override_redirect, event_mask.
		[]uint32{
			bg,
			1,
			xproto.EventMaskButtonPress | xproto.EventMaskExposure,
		},
	).Check()
	if err != nil {
		return nil, fmt.Errorf("failed to create popup window: %w", err)
	}

	gc, err := xproto.NewGcontextId(b.conn)
	if err != nil {
		xproto.DestroyWindow(b.conn, wid)
		return nil, fmt.Errorf("failed to allocate gc id: %w", err)
	}
	err = xproto.CreateGCChecked(
		b.conn,
		gc,
		xproto.Drawable(wid),
		xproto.GcForeground|xproto.GcBackground|xproto.GcFont|xproto.GcGraphicsExposures,
		[]uint32{fg, bg, uint32(b.font), 0},
	).Check()
	if err != nil {
		xproto.DestroyWindow(b.conn, wid)
		return nil, fmt.Errorf("failed to create gc: %w", err)
	}

	s := &surface{
		b:        b,
		win:      wid,
		gc:       gc,
		content:  c,
		size:     size,
		regions:  layoutRegions(c, size),
		handlers: h,
	}

	xproto.MapWindow(b.conn, wid)
	xproto.ConfigureWindow(b.conn, wid,
		xproto.ConfigWindowStackMode,
		[]uint32{xproto.StackModeAbove},
	)
	s.draw()
	return s, nil
}

// Move places the window's top-left corner.
func (s *surface) Move(x, y int) {
	if s.dead {
		return
	}
	xproto.ConfigureWindow(s.b.conn, s.win,
		xproto.ConfigWindowX|xproto.ConfigWindowY,
		[]uint32{uint32(x), uint32(y)},
	)
}

// Update re-renders with new content, resizing when the box changed.
func (s *surface) Update(c scene.Content, size geom.Size) {
	if s.dead {
		return
	}
	resized := size != s.size
	s.content = c
	s.size = size
	s.regions = layoutRegions(c, size)

	if resized {
		xproto.ConfigureWindow(s.b.conn, s.win,
			xproto.ConfigWindowWidth|xproto.ConfigWindowHeight,
			[]uint32{uint32(size.Width), uint32(size.Height)},
		)
	}
	s.draw()
}

// SetOpacity publishes _NET_WM_WINDOW_OPACITY; a compositor applies it.
func (s *surface) SetOpacity(v float64) {
	if s.dead {
		return
	}
	if err := xprop.ChangeProp32(s.b.xu, s.win, "_NET_WM_WINDOW_OPACITY",
		"CARDINAL", uint(opacityValue(v))); err != nil {
		s.b.logger.Debug("failed to set window opacity", "error", err)
	}
}

// Destroy unmaps and releases the window.
func (s *surface) Destroy() {
	if s.dead {
		return
	}
	s.dead = true
	delete(s.b.surfaces, s.win)
	xproto.FreeGC(s.b.conn, s.gc)
	xproto.DestroyWindow(s.b.conn, s.win)
}

// press routes a click to the region under it, or to the whole-surface
// click handler when it lands outside every region.
func (s *surface) press(x, y int) {
	if s.dead {
		return
	}
	if r, ok := hitRegion(s.regions, x, y); ok {
		switch r.kind {
		case regionClose:
			if s.handlers.OnClose != nil {
				s.handlers.OnClose()
			}
		case regionAction:
			if s.handlers.OnAction != nil {
				s.handlers.OnAction(r.key)
			}
		}
		return
	}
	if s.handlers.OnClick != nil {
		s.handlers.OnClick()
	}
}

// draw repaints the whole popup.
func (s *surface) draw() {
	if s.dead {
		return
	}
	conn := s.b.conn
	c := s.content
	bg, fg, accent := palette(c.Urgency, c.Dark)

	xproto.ChangeWindowAttributes(conn, s.win, xproto.CwBackPixel, []uint32{bg})
	xproto.ClearArea(conn, false, s.win, 0, 0, 0, 0)

	// Accent bar along the left edge.
	s.fill(accent, 0, 0, accentWidth, s.size.Height)

	textX := scene.PadX
	if c.Graphic != "" {
		s.drawBadge(c.Graphic, bg, accent)
		textX += scene.IconSize + buttonGap
	}

	textRight := s.size.Width - scene.PadX
	if c.CloseButton {
		textRight -= scene.CloseButtonSize + buttonGap
	}
	maxChars := (textRight - textX) / charWidth
	if maxChars < 1 {
		maxChars = 1
	}

	y := scene.PadY
	if c.Title != "" {
		title := c.Title
		if c.Count > 1 {
			title = fmt.Sprintf("%s (x%d)", title, c.Count)
		}
		s.text(fg, bg, textX, y+scene.TitleLineHeight-4, asciiLine(title, maxChars))
		y += scene.TitleLineHeight
	}
	for _, line := range c.Body {
		s.text(fg, bg, textX, y+scene.BodyLineHeight-4, asciiLine(line, maxChars))
		y += scene.BodyLineHeight
	}
	if c.HasValue {
		s.drawMeter(accent, textX, y)
	}

	if c.CloseButton {
		bx := s.size.Width - scene.PadX - scene.CloseButtonSize
		s.text(fg, bg, bx+4, scene.PadY+scene.CloseButtonSize-4, "x")
	}

	for _, r := range s.regions {
		if r.kind != regionAction {
			continue
		}
		s.outline(fg, r.rect)
		label := labelForKey(c, r.key)
		lx := r.rect.X + (r.rect.Width-len(label)*charWidth)/2
		s.text(fg, bg, lx, r.rect.Y+r.rect.Height-6, label)
	}
}

func (s *surface) drawBadge(graphic string, bg, accent uint32) {
	s.fill(accent, scene.PadX, scene.PadY, scene.IconSize, scene.IconSize)
	glyph := glyphFor(graphic)
	gx := scene.PadX + (scene.IconSize-charWidth)/2
	gy := scene.PadY + scene.IconSize/2 + 4
	s.text(bg, accent, gx, gy, glyph)
}

func (s *surface) drawMeter(accent uint32, x, y int) {
	w := s.size.Width - x - scene.PadX
	if w < 2 {
		return
	}
	h := scene.MeterHeight - 4
	s.outline(accent, geom.Rect{X: x, Y: y + 2, Width: w, Height: h})
	fillW := w * s.content.Value / 100
	if fillW > 0 {
		s.fill(accent, x, y+2, fillW, h)
	}
}

func (s *surface) fill(color uint32, x, y, w, h int) {
	xproto.ChangeGC(s.b.conn, s.gc, xproto.GcForeground, []uint32{color})
	xproto.PolyFillRectangle(s.b.conn, xproto.Drawable(s.win), s.gc, []xproto.Rectangle{{
		X: int16(x), Y: int16(y), Width: uint16(w), Height: uint16(h),
	}})
}

func (s *surface) outline(color uint32, r geom.Rect) {
	xproto.ChangeGC(s.b.conn, s.gc, xproto.GcForeground, []uint32{color})
	xproto.PolyRectangle(s.b.conn, xproto.Drawable(s.win), s.gc, []xproto.Rectangle{{
		X: int16(r.X), Y: int16(r.Y), Width: uint16(r.Width), Height: uint16(r.Height),
	}})
}

func (s *surface) text(fg, bg uint32, x, y int, str string) {
	if str == "" {
		return
	}
	if len(str) > 255 {
		str = str[:255]
	}
	xproto.ChangeGC(s.b.conn, s.gc,
		xproto.GcForeground|xproto.GcBackground, []uint32{fg, bg})
	xproto.ImageText8(s.b.conn, byte(len(str)), xproto.Drawable(s.win), s.gc,
		int16(x), int16(y), str)
}

func labelForKey(c scene.Content, key string) string {
	for _, a := range c.Actions {
		if a.Key == key {
			return asciiLine(a.Label, 24)
		}
	}
	return key
}
