// Package notify defines the notification value shown by the display
// manager and the fluent builder used to construct one. A Notification is
// immutable once built; display state lives on the popup, not here.
package notify

import (
	"errors"
	"fmt"
	"time"

	"toast/internal/geom"
)

// Position names one of the nine screen anchor positions.
type Position string

const (
	TopLeft      Position = "top-left"
	TopCenter    Position = "top-center"
	TopRight     Position = "top-right"
	CenterLeft   Position = "center-left"
	Center       Position = "center"
	CenterRight  Position = "center-right"
	BottomLeft   Position = "bottom-left"
	BottomCenter Position = "bottom-center"
	BottomRight  Position = "bottom-right"
)

// DefaultPosition is used when a notification does not choose one.
const DefaultPosition = BottomRight

// DefaultHideAfter is the auto-hide delay applied when none is configured.
const DefaultHideAfter = 5 * time.Second

// ErrBadPosition reports an unrecognized position name.
var ErrBadPosition = errors.New("unknown position")

// Positions lists every valid position name, for flag validation and docs.
func Positions() []string {
	return []string{
		string(TopLeft), string(TopCenter), string(TopRight),
		string(CenterLeft), string(Center), string(CenterRight),
		string(BottomLeft), string(BottomCenter), string(BottomRight),
	}
}

// ParsePosition resolves a position name. The empty string resolves to the
// default so that config and flags can leave it unset.
func ParsePosition(s string) (Position, error) {
	if s == "" {
		return DefaultPosition, nil
	}
	p := Position(s)
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrBadPosition, s)
	}
	return p, nil
}

// Valid reports whether p is one of the nine anchor positions.
func (p Position) Valid() bool {
	switch p {
	case TopLeft, TopCenter, TopRight,
		CenterLeft, Center, CenterRight,
		BottomLeft, BottomCenter, BottomRight:
		return true
	}
	return false
}

// HAlign maps the position onto its horizontal screen alignment.
func (p Position) HAlign() geom.HAlign {
	switch p {
	case TopLeft, CenterLeft, BottomLeft:
		return geom.Left
	case TopCenter, Center, BottomCenter:
		return geom.HCenter
	default:
		return geom.Right
	}
}

// VAlign maps the position onto its vertical screen alignment.
func (p Position) VAlign() geom.VAlign {
	switch p {
	case TopLeft, TopCenter, TopRight:
		return geom.Top
	case CenterLeft, Center, CenterRight:
		return geom.VCenter
	default:
		return geom.Bottom
	}
}

// Urgency follows the freedesktop notification urgency levels.
type Urgency byte

const (
	UrgencyLow      Urgency = 0
	UrgencyNormal   Urgency = 1
	UrgencyCritical Urgency = 2
)

func (u Urgency) String() string {
	switch u {
	case UrgencyLow:
		return "low"
	case UrgencyCritical:
		return "critical"
	default:
		return "normal"
	}
}

// Urgencies lists the valid urgency names.
func Urgencies() []string {
	return []string{"low", "normal", "critical"}
}

// ParseUrgency resolves an urgency name; empty means normal.
func ParseUrgency(s string) (Urgency, error) {
	switch s {
	case "", "normal":
		return UrgencyNormal, nil
	case "low":
		return UrgencyLow, nil
	case "critical":
		return UrgencyCritical, nil
	}
	return UrgencyNormal, fmt.Errorf("unknown urgency %q", s)
}

// Built-in category graphics attached by the Show* terminals, as
// freedesktop icon names.
const (
	GraphicInformation = "dialog-information"
	GraphicWarning     = "dialog-warning"
	GraphicError       = "dialog-error"
	GraphicConfirm     = "dialog-question"
)

// StyleDark is the style class toggled by Builder.DarkStyle.
const StyleDark = "dark"

// Action is one button rendered on a popup. Key is reported back when the
// button is pressed; Label is what the user sees.
type Action struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// Notification is the immutable description of one toast.
type Notification struct {
	AppName         string
	Title           string
	Body            string
	Graphic         string
	Actions         []Action
	Position        Position
	Owner           *geom.Rect
	HideAfter       time.Duration
	OnClick         func()
	OnHide          func()
	StyleClasses    []string
	HideCloseButton bool
	Urgency         Urgency
	Created         time.Time

	// Value is an optional progress value from 0 to 100, rendered as a
	// meter below the body. Only meaningful when HasValue is set.
	Value    int
	HasValue bool
}

// Dark reports whether the dark style class is set.
func (n *Notification) Dark() bool {
	for _, c := range n.StyleClasses {
		if c == StyleDark {
			return true
		}
	}
	return false
}

// ContentKey identifies duplicate notifications for stacking: two
// notifications with the same application, title, and body collapse onto
// one popup when duplicate stacking is enabled.
func (n *Notification) ContentKey() string {
	return n.AppName + "\x00" + n.Title + "\x00" + n.Body
}
