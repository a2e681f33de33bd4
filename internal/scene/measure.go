package scene

import (
	"strings"

	"toast/internal/geom"
)

// Layout metrics shared by the backends. The X11 backend draws with core
// bitmap fonts, so all of these are plain pixel counts; the layer-shell
// backend applies the same box so both render popups at identical sizes.
const (
	// DefaultWidth matches the classic toast bar width.
	DefaultWidth = 400

	PadX = 12
	PadY = 10

	TitleLineHeight = 18
	BodyLineHeight  = 16
	ActionRowHeight = 28
	MeterHeight     = 12
	IconSize        = 32
	CloseButtonSize = 16
)

// MeasureContent computes the rendered size of a popup deterministically.
// Empty title, body, and graphic degrade to a minimal empty bar rather
// than an error.
func MeasureContent(c Content) geom.Size {
	width := c.Width
	if width <= 0 {
		width = DefaultWidth
	}
	if c.Title == "" && len(c.Body) == 0 && c.Graphic != "" {
		// Graphic-only content collapses to a compact badge.
		width = IconSize + 2*PadX
	}

	text := 0
	if c.Title != "" {
		text += TitleLineHeight
	}
	text += len(c.Body) * BodyLineHeight
	if c.HasValue {
		text += MeterHeight
	}

	block := text
	if c.Graphic != "" && block < IconSize {
		block = IconSize
	}
	if block == 0 {
		block = BodyLineHeight
	}

	height := 2*PadY + block
	if len(c.Actions) > 0 {
		height += ActionRowHeight
	}
	return geom.Size{Width: width, Height: height}
}

// BodyLines splits body text into render lines. The line-break converter
// emits CR LF; bare newlines are honored too. Trailing blank lines are
// dropped.
func BodyLines(body string) []string {
	if body == "" {
		return nil
	}
	normalized := strings.ReplaceAll(body, "\r\n", "\n")
	lines := strings.Split(normalized, "\n")
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
