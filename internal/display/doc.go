// Package display manages the on-screen notification stack. It owns popup
// lifecycle (show, auto-hide, dismiss), per-corner stacking and reflow
// transitions, duplicate collapsing, and overflow queuing. Rendering is
// delegated to a scene.Scene backend; all Manager methods must be called on
// that backend's event loop.
package display
