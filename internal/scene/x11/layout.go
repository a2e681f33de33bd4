package x11

import (
	"toast/internal/geom"
	"toast/internal/notify"
	"toast/internal/scene"
)

// Core fonts are roughly 7px per glyph; layout math assumes it so text
// fits the fixed popup box regardless of which candidate font opened.
const (
	charWidth    = 7
	accentWidth  = 4
	buttonHeight = 20
	buttonGap    = 8
	minButtonW   = 48
)

// Flat palette, light and dark. Accents color the left edge bar, the
// meter fill, and the graphic badge.
const (
	colorBgLight = 0xf5f7fa
	colorFgLight = 0x1f2933
	colorBgDark  = 0x1f2933
	colorFgDark  = 0xf5f7fa

	accentLow      = 0x95a5a6
	accentNormal   = 0x3498db
	accentCritical = 0xe74c3c
)

// palette returns background, foreground, and accent pixels.
func palette(u notify.Urgency, dark bool) (bg, fg, accent uint32) {
	bg, fg = colorBgLight, colorFgLight
	if dark {
		bg, fg = colorBgDark, colorFgDark
	}
	switch u {
	case notify.UrgencyLow:
		accent = accentLow
	case notify.UrgencyCritical:
		accent = accentCritical
	default:
		accent = accentNormal
	}
	return bg, fg, accent
}

type regionKind int

const (
	regionClose regionKind = iota
	regionAction
)

// region is a clickable rectangle in surface-local coordinates.
type region struct {
	kind regionKind
	key  string
	rect geom.Rect
}

// layoutRegions computes the clickable rectangles for a popup. Action
// buttons flow left to right along the bottom row; buttons that would
// overflow the popup width are dropped rather than clipped.
func layoutRegions(c scene.Content, size geom.Size) []region {
	var regions []region

	if c.CloseButton {
		regions = append(regions, region{
			kind: regionClose,
			rect: geom.Rect{
				X:      size.Width - scene.PadX - scene.CloseButtonSize,
				Y:      scene.PadY,
				Width:  scene.CloseButtonSize,
				Height: scene.CloseButtonSize,
			},
		})
	}

	if len(c.Actions) > 0 {
		y := size.Height - scene.ActionRowHeight + (scene.ActionRowHeight-buttonHeight)/2
		x := scene.PadX
		for _, a := range c.Actions {
			w := buttonWidth(a.Label)
			if x+w > size.Width-scene.PadX {
				break
			}
			regions = append(regions, region{
				kind: regionAction,
				key:  a.Key,
				rect: geom.Rect{X: x, Y: y, Width: w, Height: buttonHeight},
			})
			x += w + buttonGap
		}
	}

	return regions
}

func buttonWidth(label string) int {
	w := charWidth*len(label) + 2*buttonGap
	if w < minButtonW {
		w = minButtonW
	}
	return w
}

// hitRegion returns the region containing the point, innermost first
// (regions never overlap, so first match wins).
func hitRegion(regions []region, x, y int) (region, bool) {
	for _, r := range regions {
		if contains(r.rect, x, y) {
			return r, true
		}
	}
	return region{}, false
}

func contains(r geom.Rect, x, y int) bool {
	return x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height
}

// opacityValue scales a 0-1 opacity onto the 32-bit range the
// _NET_WM_WINDOW_OPACITY property expects.
func opacityValue(v float64) uint32 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 0xffffffff
	}
	return uint32(v * 0xffffffff)
}

// glyphFor maps the built-in category graphics to a badge glyph; other
// icon names fall back to their first character. Core fonts cannot
// render image files.
func glyphFor(graphic string) string {
	switch graphic {
	case notify.GraphicInformation:
		return "i"
	case notify.GraphicWarning:
		return "!"
	case notify.GraphicError:
		return "x"
	case notify.GraphicConfirm:
		return "?"
	}
	for _, r := range graphic {
		if r < 0x80 {
			return string(r)
		}
		break
	}
	return "*"
}

// asciiLine folds a string to the printable ASCII range core fonts are
// guaranteed to cover, truncating to maxChars.
func asciiLine(s string, maxChars int) string {
	if maxChars <= 0 {
		return ""
	}
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if len(out) >= maxChars {
			break
		}
		if r == '\t' {
			out = append(out, ' ')
			continue
		}
		if r < 0x20 || r > 0x7e {
			out = append(out, '?')
			continue
		}
		out = append(out, byte(r))
	}
	return string(out)
}
