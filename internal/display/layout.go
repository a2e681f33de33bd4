package display

import (
	"toast/internal/config"
	"toast/internal/geom"
	"toast/internal/notify"
	"toast/internal/scene"
)

// buildContent converts a notification into renderable content, applying
// theme and behavior settings from the daemon config.
func buildContent(n *notify.Notification, count int, cfg *config.DaemonConfig) scene.Content {
	c := scene.Content{
		Title:       n.Title,
		Body:        scene.BodyLines(n.Body),
		Graphic:     n.Graphic,
		Actions:     n.Actions,
		Urgency:     n.Urgency,
		Dark:        n.Dark() || cfg.Dark(),
		CloseButton: cfg.Theme.ShowCloseButton && !n.HideCloseButton,
		HasValue:    n.HasValue,
		Value:       n.Value,
		Width:       cfg.Display.Width,
	}
	if count > 1 && cfg.Behavior.ShowCount {
		c.Count = count
	}
	return c
}

// bucketTargets returns the anchor Y for every popup in the bucket, in
// insertion order, stacked within owner. Top buckets grow downward from the
// screen edge with a padding-sized gap between popups; bottom and center
// buckets keep the newest popup at the corner and stack older popups
// flush above it.
func bucketTargets(bucket []*Popup, owner geom.Rect, padding int, v geom.VAlign) []int {
	heights := make([]int, len(bucket))
	for i, p := range bucket {
		heights[i] = p.size.Height
	}
	return geom.StackTargets(owner, heights, v, padding)
}
