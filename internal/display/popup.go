package display

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"toast/internal/anim"
	"toast/internal/geom"
	"toast/internal/notify"
	"toast/internal/scene"
)

// Cause describes why a popup left the screen. The numeric values match
// the org.freedesktop.Notifications close reason codes.
type Cause int

const (
	// CauseExpired means the auto-hide delay elapsed or the popup was
	// pushed off the visible screen by newer notifications.
	CauseExpired Cause = 1
	// CauseDismissed means the user clicked the popup or its close button.
	CauseDismissed Cause = 2
	// CauseClosed means a programmatic close request.
	CauseClosed Cause = 3
)

func (c Cause) String() string {
	switch c {
	case CauseExpired:
		return "expired"
	case CauseDismissed:
		return "dismissed"
	case CauseClosed:
		return "closed"
	default:
		return "undefined"
	}
}

// Popup is one on-screen notification. It pairs the immutable notification
// with its rendered surface and stacking state. Popups are created and
// mutated only by the Manager, on the scene loop.
type Popup struct {
	// ID uniquely identifies this popup for logging and history.
	ID string

	// Notification is the request this popup renders.
	Notification *notify.Notification

	// Position is the screen corner bucket this popup stacks in.
	Position notify.Position

	surface scene.Surface
	content scene.Content
	size    geom.Size
	owner   geom.Rect
	padding int
	anchorX int
	anchorY int
	opacity float64
	count   int

	exiting bool
	hidden  bool
	hide    *anim.Timeline

	createdAt time.Time
	expiresAt time.Time // Zero means never expires
}

// newPopupID generates a ULID for a popup.
func newPopupID() (string, error) {
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return "", fmt.Errorf("failed to generate ULID: %w", err)
	}
	return id.String(), nil
}

// Anchor returns the current top-left screen position.
func (p *Popup) Anchor() geom.Point {
	return geom.Point{X: p.anchorX, Y: p.anchorY}
}

// Size returns the measured popup dimensions.
func (p *Popup) Size() geom.Size {
	return p.size
}

// Count returns how many identical notifications this popup represents.
func (p *Popup) Count() int {
	return p.count
}

// Hidden reports whether the popup has fully left the screen.
func (p *Popup) Hidden() bool {
	return p.hidden
}

// Exiting reports whether a hide is in progress.
func (p *Popup) Exiting() bool {
	return p.exiting
}

// CreatedAt returns when the popup appeared.
func (p *Popup) CreatedAt() time.Time {
	return p.createdAt
}

// ExpiresAt returns when the popup will auto-hide. Zero means it stays
// until dismissed.
func (p *Popup) ExpiresAt() time.Time {
	return p.expiresAt
}
