package notify

import (
	"errors"
	"time"

	"toast/internal/geom"
)

// Displayer shows a finished notification. The display manager implements
// it; builders are handed one instead of reaching for shared state.
type Displayer interface {
	Display(n *Notification) error
}

// ErrNoDisplayer is returned by the Show terminals when the builder was
// created without a displayer.
var ErrNoDisplayer = errors.New("notify: no displayer configured")

// Builder assembles a Notification through chained calls. Obtain one with
// Create, configure it, then finish with Build or one of the Show
// terminals. A builder is not safe for concurrent use.
type Builder struct {
	n Notification
	d Displayer
}

// Create starts a new builder bound to the given displayer. The displayer
// may be nil when only Build will be called.
func Create(d Displayer) *Builder {
	return &Builder{
		n: Notification{
			Position:  DefaultPosition,
			HideAfter: DefaultHideAfter,
			Urgency:   UrgencyNormal,
		},
		d: d,
	}
}

// Title sets the heading text.
func (b *Builder) Title(title string) *Builder {
	b.n.Title = title
	return b
}

// Text sets the body text.
func (b *Builder) Text(text string) *Builder {
	b.n.Body = text
	return b
}

// Graphic sets the icon reference (a freedesktop icon name or a file path).
func (b *Builder) Graphic(ref string) *Builder {
	b.n.Graphic = ref
	return b
}

// Position sets the screen anchor position. Invalid values fall back to
// the default rather than failing; positions from untrusted input should
// go through ParsePosition first.
func (b *Builder) Position(p Position) *Builder {
	if !p.Valid() {
		p = DefaultPosition
	}
	b.n.Position = p
	return b
}

// Owner confines the notification to the given screen rectangle instead of
// the whole work area.
func (b *Builder) Owner(r geom.Rect) *Builder {
	owner := r
	b.n.Owner = &owner
	return b
}

// HideAfter sets the auto-hide delay. Zero or negative means the
// notification stays until dismissed.
func (b *Builder) HideAfter(d time.Duration) *Builder {
	if d < 0 {
		d = 0
	}
	b.n.HideAfter = d
	return b
}

// OnClick sets the callback invoked when the popup body is clicked. The
// popup also hides after the callback runs. Without a click callback,
// body clicks are ignored.
func (b *Builder) OnClick(f func()) *Builder {
	b.n.OnClick = f
	return b
}

// OnHide sets the callback invoked once the popup has fully hidden.
func (b *Builder) OnHide(f func()) *Builder {
	b.n.OnHide = f
	return b
}

// DarkStyle switches the popup to the built-in dark styling.
func (b *Builder) DarkStyle() *Builder {
	return b.StyleClass(StyleDark)
}

// StyleClass appends a style class.
func (b *Builder) StyleClass(classes ...string) *Builder {
	b.n.StyleClasses = append(b.n.StyleClasses, classes...)
	return b
}

// HideCloseButton removes the close button from the popup.
func (b *Builder) HideCloseButton() *Builder {
	b.n.HideCloseButton = true
	return b
}

// Action replaces the action buttons shown on the popup.
func (b *Builder) Action(actions ...Action) *Builder {
	b.n.Actions = actions
	return b
}

// AppName records the sending application.
func (b *Builder) AppName(name string) *Builder {
	b.n.AppName = name
	return b
}

// Value sets a progress value, clamped to 0-100, rendered as a meter.
func (b *Builder) Value(v int) *Builder {
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	b.n.Value = v
	b.n.HasValue = true
	return b
}

// Urgency sets the urgency level.
func (b *Builder) Urgency(u Urgency) *Builder {
	b.n.Urgency = u
	return b
}

// Build finalizes and returns an independent Notification. The builder can
// keep being modified afterwards without affecting the returned value.
func (b *Builder) Build() *Notification {
	n := b.n
	n.Created = time.Now()
	if len(b.n.Actions) > 0 {
		n.Actions = append([]Action(nil), b.n.Actions...)
	}
	if len(b.n.StyleClasses) > 0 {
		n.StyleClasses = append([]string(nil), b.n.StyleClasses...)
	}
	if b.n.Owner != nil {
		owner := *b.n.Owner
		n.Owner = &owner
	}
	return &n
}

// Show finalizes the notification and hands it to the displayer.
func (b *Builder) Show() error {
	if b.d == nil {
		return ErrNoDisplayer
	}
	return b.d.Display(b.Build())
}

// ShowWarning shows the notification with the built-in warning graphic.
func (b *Builder) ShowWarning() error {
	return b.Graphic(GraphicWarning).Show()
}

// ShowInformation shows the notification with the built-in information
// graphic.
func (b *Builder) ShowInformation() error {
	return b.Graphic(GraphicInformation).Show()
}

// ShowError shows the notification with the built-in error graphic.
func (b *Builder) ShowError() error {
	return b.Graphic(GraphicError).Show()
}

// ShowConfirm shows the notification with the built-in confirmation
// graphic.
func (b *Builder) ShowConfirm() error {
	return b.Graphic(GraphicConfirm).Show()
}
