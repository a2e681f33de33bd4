// Package scene abstracts the windowing capability popups are drawn with:
// borderless floating overlays at absolute screen coordinates, with opacity
// control and click reporting. Backends live in the subpackages; the
// display manager only sees the Scene interface.
package scene

import (
	"toast/internal/geom"
	"toast/internal/notify"
)

// Content is everything a backend needs to render one popup.
type Content struct {
	Title       string
	Body        []string
	Graphic     string
	Actions     []notify.Action
	Urgency     notify.Urgency
	Dark        bool
	CloseButton bool

	// Count above one renders a duplicate badge next to the title.
	Count int

	// HasValue renders a progress meter at Value percent.
	HasValue bool
	Value    int

	// Width overrides the default popup width when positive.
	Width int
}

// Handlers receive input events for one surface. All handlers are invoked
// on the scene loop. Nil handlers are skipped.
type Handlers struct {
	OnClick  func()
	OnClose  func()
	OnAction func(key string)
}

// Surface is one live popup window.
type Surface interface {
	// Move places the surface's top-left corner at an absolute coordinate.
	Move(x, y int)
	// Update re-renders the surface with new content, resizing if needed.
	// Used for duplicate counters and in-place replacement.
	Update(c Content, size geom.Size)
	// SetOpacity sets the whole-surface opacity between 0 and 1.
	SetOpacity(v float64)
	// Destroy releases the window. The surface must not be used afterwards.
	Destroy()
}

// Scene is the capability the display manager consumes.
type Scene interface {
	// Measure reports the size the backend will render the content at.
	Measure(c Content) geom.Size
	// NewSurface creates and shows a popup at the given coordinate.
	NewSurface(c Content, size geom.Size, at geom.Point, h Handlers) (Surface, error)
	// WorkArea is the rectangle popups may occupy on the target output.
	WorkArea() geom.Rect
	// Post marshals f onto the scene's event loop.
	Post(f func())
}
