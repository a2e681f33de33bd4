// Package geom holds the pure placement math for toast popups: anchor
// computation per screen alignment, padding, and stack target layout for
// popups sharing one anchor position.
package geom

// Rect is an absolute screen rectangle in pixels.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Point is an absolute screen coordinate.
type Point struct {
	X int
	Y int
}

// Size is a popup's rendered dimensions in pixels.
type Size struct {
	Width  int
	Height int
}

// HAlign is the horizontal edge a popup anchors to.
type HAlign int

const (
	Left HAlign = iota
	HCenter
	Right
)

// VAlign is the vertical edge a popup anchors to.
type VAlign int

const (
	Top VAlign = iota
	VCenter
	Bottom
)

// Padding returns the screen-edge padding for an owner of the given height.
// Three percent of the owner height, matching the popup inset on every edge.
func Padding(ownerHeight int) int {
	return ownerHeight * 3 / 100
}

// AnchorX computes the horizontal anchor for a popup of the given width.
func AnchorX(owner Rect, width int, align HAlign, padding int) int {
	switch align {
	case Left:
		return owner.X + padding
	case HCenter:
		return owner.X + owner.Width/2 - width/2 - padding/2
	default:
		return owner.X + owner.Width - width - padding
	}
}

// AnchorY computes the vertical anchor for a single popup of the given height.
func AnchorY(owner Rect, height int, align VAlign, padding int) int {
	switch align {
	case Top:
		return owner.Y + padding
	case VCenter:
		return owner.Y + owner.Height/2 - height/2 - padding/2
	default:
		return owner.Y + owner.Height - height - padding
	}
}

// Anchor computes the single-popup anchor point for both axes.
func Anchor(owner Rect, size Size, h HAlign, v VAlign, padding int) Point {
	return Point{
		X: AnchorX(owner, size.Width, h, padding),
		Y: AnchorY(owner, size.Height, v, padding),
	}
}

// StackTargets computes the anchor Y for every popup in a position bucket,
// in insertion order (oldest first). Heights are the rendered popup heights
// in the same order.
//
// Top-aligned buckets stack downward from the top edge: the oldest popup
// keeps the edge slot and each later popup sits below the previous one with
// a padding-sized gap. All other buckets stack upward from the newest popup:
// the newest takes the single-popup anchor for its height and each older
// popup sits directly above its successor.
func StackTargets(owner Rect, heights []int, v VAlign, padding int) []int {
	n := len(heights)
	if n == 0 {
		return nil
	}
	targets := make([]int, n)
	if v == Top {
		y := owner.Y + padding
		for i, h := range heights {
			targets[i] = y
			y += h + padding
		}
		return targets
	}
	targets[n-1] = AnchorY(owner, heights[n-1], v, padding)
	for i := n - 2; i >= 0; i-- {
		targets[i] = targets[i+1] - heights[i]
	}
	return targets
}

// FitsVertically reports whether a popup anchored at y with the given height
// stays inside the owner's vertical range. Popups pushed past either edge
// during a reflow are hidden instead of animated off screen.
func FitsVertically(owner Rect, y, height int) bool {
	return y >= owner.Y && y+height <= owner.Y+owner.Height
}
