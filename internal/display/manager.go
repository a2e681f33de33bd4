package display

import (
	"log/slog"
	"math"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"toast/internal/anim"
	"toast/internal/config"
	"toast/internal/geom"
	"toast/internal/notify"
	"toast/internal/scene"
)

const (
	// recentSize bounds the duplicate-detection window.
	recentSize = 64
	// maxQueued bounds the overflow queue; the oldest entry is dropped
	// when it fills.
	maxQueued = 100
)

// ShownCallback is called after a popup appears on screen.
type ShownCallback func(p *Popup)

// HiddenCallback is called after a popup has fully left the screen.
type HiddenCallback func(p *Popup, cause Cause)

// ActionCallback is called when an action button is pressed.
type ActionCallback func(p *Popup, actionKey string)

// DroppedCallback is called when an overflow-queued notification is
// discarded without ever reaching the screen.
type DroppedCallback func(n *notify.Notification)

// Manager owns every popup on screen. Popups stack per corner: each of the
// nine screen positions holds an ordered bucket, oldest first. Adding or
// removing a popup reflows its bucket with animated transitions; starting a
// new reflow cancels any in-flight one.
//
// The Manager is not safe for concurrent use. Every method must be called
// on the scene loop, via scene.Post from other goroutines.
type Manager struct {
	scene  scene.Scene
	anim   *anim.Animator
	config *config.DaemonConfig
	logger *slog.Logger

	buckets map[notify.Position][]*Popup
	reflow  *anim.Group
	recent  *lru.Cache[string, *Popup]

	// Pending queue - notifications waiting for a free slot when
	// max_visible is set
	queue    []*notify.Notification
	draining bool

	onShown   ShownCallback
	onHidden  HiddenCallback
	onAction  ActionCallback
	onDropped DroppedCallback
}

// NewManager creates a display manager rendering through sc. A nil animator
// gets a ticker-driven one posting through the scene loop.
func NewManager(sc scene.Scene, animator *anim.Animator, cfg *config.DaemonConfig, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = config.DefaultDaemonConfig()
	}
	if animator == nil {
		animator = anim.New(sc.Post)
	}
	recent, _ := lru.New[string, *Popup](recentSize)

	return &Manager{
		scene:   sc,
		anim:    animator,
		config:  cfg,
		logger:  logger,
		buckets: make(map[notify.Position][]*Popup),
		recent:  recent,
	}
}

// SetShownCallback sets the callback invoked after a popup appears.
func (m *Manager) SetShownCallback(cb ShownCallback) {
	m.onShown = cb
}

// SetHiddenCallback sets the callback invoked after a popup hides.
func (m *Manager) SetHiddenCallback(cb HiddenCallback) {
	m.onHidden = cb
}

// SetActionCallback sets the callback invoked when an action is pressed.
func (m *Manager) SetActionCallback(cb ActionCallback) {
	m.onAction = cb
}

// SetDroppedCallback sets the callback invoked when a queued
// notification is discarded.
func (m *Manager) SetDroppedCallback(cb DroppedCallback) {
	m.onDropped = cb
}

// UpdateConfig swaps the active configuration. Existing popups keep their
// geometry; new notifications pick up the new settings.
func (m *Manager) UpdateConfig(cfg *config.DaemonConfig) {
	if cfg == nil {
		return
	}
	m.config = cfg
	// Note: if max_visible decreased, existing popups are not closed; they
	// expire or get dismissed naturally and new ones respect the limit.
}

// Display shows the notification and discards the popup handle. It
// implements notify.Displayer for builder terminals.
func (m *Manager) Display(n *notify.Notification) error {
	_, err := m.Show(n)
	return err
}

// Show displays a notification. It returns the popup now representing it:
// the existing popup when an identical notification is stacked onto it, or
// nil when the notification was queued behind the max_visible limit.
func (m *Manager) Show(n *notify.Notification) (*Popup, error) {
	if n == nil {
		return nil, &DisplayError{Message: "nil notification"}
	}

	position := n.Position
	if !position.Valid() {
		position, _ = notify.ParsePosition(m.config.Display.Position)
	}

	// Check for duplicate stacking if enabled
	if m.config.Behavior.StackDuplicates {
		if p, ok := m.recent.Get(n.ContentKey()); ok && !p.hidden && !p.exiting && p.Position == position {
			m.stackDuplicate(p, n)
			return p, nil
		}
	}

	// Check if we have room to display immediately
	if max := m.config.Display.MaxVisible; max > 0 && m.ActiveCount() >= max {
		m.enqueue(n)
		return nil, nil
	}

	return m.present(n, position)
}

// present measures, positions, and maps a new popup.
func (m *Manager) present(n *notify.Notification, position notify.Position) (*Popup, error) {
	id, err := newPopupID()
	if err != nil {
		return nil, &DisplayError{Message: "failed to create popup", Cause: err}
	}

	content := buildContent(n, 1, m.config)
	size := m.scene.Measure(content)

	owner := m.scene.WorkArea()
	if n.Owner != nil {
		owner = *n.Owner
	}
	padding := geom.Padding(owner.Height)

	// The new popup's anchor is its slot in the stacked bucket, so the
	// bucket it joins is laid out before the surface is created.
	bucket := m.buckets[position]
	heights := make([]int, 0, len(bucket)+1)
	for _, p := range bucket {
		heights = append(heights, p.size.Height)
	}
	heights = append(heights, size.Height)
	targets := geom.StackTargets(owner, heights, position.VAlign(), padding)

	p := &Popup{
		ID:           id,
		Notification: n,
		Position:     position,
		content:      content,
		size:         size,
		owner:        owner,
		padding:      padding,
		anchorX:      geom.AnchorX(owner, size.Width, position.HAlign(), padding),
		anchorY:      targets[len(targets)-1],
		opacity:      1.0,
		count:        1,
		createdAt:    time.Now(),
	}

	handlers := scene.Handlers{
		OnClick:  func() { m.handleClick(p) },
		OnClose:  func() { m.Hide(p, CauseDismissed) },
		OnAction: func(key string) { m.handleAction(p, key) },
	}

	surface, err := m.scene.NewSurface(content, size, p.Anchor(), handlers)
	if err != nil {
		return nil, &DisplayError{Message: "failed to create surface", Cause: err}
	}
	p.surface = surface

	m.buckets[position] = append(bucket, p)
	if m.config.Behavior.StackDuplicates {
		m.recent.Add(n.ContentKey(), p)
	}

	// Reflow the survivors; a full bucket can push this popup straight
	// back off screen.
	m.updatePositions(position)

	if !p.hidden {
		m.scheduleAutoHide(p, n.HideAfter)
		if m.onShown != nil {
			m.onShown(p)
		}
	}

	m.logger.Debug("showing popup",
		"id", p.ID,
		"position", string(position),
		"anchor_x", p.anchorX,
		"anchor_y", p.anchorY,
		"width", size.Width,
		"height", size.Height,
	)

	return p, nil
}

// stackDuplicate collapses an identical notification onto an existing
// popup, bumping its counter and restarting its auto-hide delay.
func (m *Manager) stackDuplicate(p *Popup, n *notify.Notification) {
	p.count++
	p.content = buildContent(p.Notification, p.count, m.config)

	// The count badge can change the measured size
	size := m.scene.Measure(p.content)
	resized := size != p.size
	p.size = size
	p.anchorX = geom.AnchorX(p.owner, size.Width, p.Position.HAlign(), p.padding)
	p.surface.Update(p.content, size)

	if p.hide != nil {
		m.anim.Stop(p.hide)
		p.hide = nil
	}
	if p.opacity != 1 {
		m.applyOpacity(p, 1.0)
	}
	p.expiresAt = time.Time{}
	m.scheduleAutoHide(p, n.HideAfter)

	if resized {
		m.updatePositions(p.Position)
	}

	m.logger.Debug("stacked duplicate notification",
		"id", p.ID,
		"count", p.count,
	)
}

// Replace swaps the notification a popup renders, keeping its identity and
// screen position. Used when a sender updates a prior notification. The
// popup's corner is kept even if the replacement names a different one.
func (m *Manager) Replace(p *Popup, n *notify.Notification) error {
	if p == nil || p.hidden || p.exiting {
		_, err := m.Show(n)
		return err
	}

	if m.config.Behavior.StackDuplicates {
		m.recent.Remove(p.Notification.ContentKey())
	}

	p.Notification = n
	p.count = 1
	p.content = buildContent(n, 1, m.config)

	size := m.scene.Measure(p.content)
	resized := size != p.size
	p.size = size
	p.anchorX = geom.AnchorX(p.owner, size.Width, p.Position.HAlign(), p.padding)
	p.surface.Update(p.content, size)

	if m.config.Behavior.StackDuplicates {
		m.recent.Add(n.ContentKey(), p)
	}

	if p.hide != nil {
		m.anim.Stop(p.hide)
		p.hide = nil
	}
	if p.opacity != 1 {
		m.applyOpacity(p, 1.0)
	}
	p.expiresAt = time.Time{}
	m.scheduleAutoHide(p, n.HideAfter)

	if resized {
		m.updatePositions(p.Position)
	} else {
		p.surface.Move(p.anchorX, p.anchorY)
	}

	m.logger.Debug("replaced popup content", "id", p.ID, "resized", resized)
	return nil
}

// Hide starts the fade-out for a popup and removes it from its stack.
// Hiding a popup that is already hidden or exiting is a no-op, so callers
// never race the auto-hide delay.
func (m *Manager) Hide(p *Popup, cause Cause) {
	if p == nil || p.hidden || p.exiting {
		return
	}
	p.exiting = true

	// Cancel a pending auto-hide so its completion cannot fire
	if p.hide != nil {
		m.anim.Stop(p.hide)
		p.hide = nil
	}

	// The slot frees immediately; the fade runs on the detached surface
	if m.removeFromBucket(p) {
		m.updatePositions(p.Position)
	}

	fade := m.config.Animation.Fade.Duration()
	if fade <= 0 {
		m.finalize(p, cause)
		return
	}

	tl := &anim.Timeline{
		Duration:   fade,
		From:       p.opacity,
		To:         0,
		Apply:      func(v float64) { m.applyOpacity(p, v) },
		OnComplete: func() { m.finalize(p, cause) },
	}
	p.hide = tl
	m.anim.Play(tl)
}

// CloseAll hides every popup and clears the overflow queue. Queued
// notifications are reported as dropped so their senders still hear a
// close.
func (m *Manager) CloseAll() {
	queued := m.queue
	m.queue = nil
	for _, n := range queued {
		if m.onDropped != nil {
			m.onDropped(n)
		}
	}
	for _, p := range m.Popups() {
		m.Hide(p, CauseClosed)
	}
}

// ActiveCount returns the number of popups on screen, including ones
// mid-fade that still hold their slot.
func (m *Manager) ActiveCount() int {
	n := 0
	for _, bucket := range m.buckets {
		n += len(bucket)
	}
	return n
}

// QueuedCount returns the number of notifications waiting for a slot.
func (m *Manager) QueuedCount() int {
	return len(m.queue)
}

// Popups returns a snapshot of all on-screen popups, grouped by position
// in insertion order.
func (m *Manager) Popups() []*Popup {
	var all []*Popup
	for _, pos := range notify.Positions() {
		all = append(all, m.buckets[notify.Position(pos)]...)
	}
	return all
}

// scheduleAutoHide arms the delayed fade-out. A delay of zero or less
// means the popup stays until dismissed.
func (m *Manager) scheduleAutoHide(p *Popup, after time.Duration) {
	if after <= 0 {
		return
	}
	p.expiresAt = time.Now().Add(after)

	fade := m.config.Animation.Fade.Duration()
	tl := &anim.Timeline{
		Delay:      after,
		Duration:   fade,
		From:       1.0,
		To:         0,
		Apply:      func(v float64) { m.applyOpacity(p, v) },
		OnComplete: func() { m.finalize(p, CauseExpired) },
	}
	p.hide = tl
	m.anim.Play(tl)
}

// handleClick runs the notification's click action and dismisses the
// popup. Clicks on popups without a click action are ignored.
func (m *Manager) handleClick(p *Popup) {
	if p.Notification.OnClick == nil {
		return
	}
	p.Notification.OnClick()
	m.Hide(p, CauseDismissed)
}

// handleAction reports a pressed action button and dismisses the popup.
func (m *Manager) handleAction(p *Popup, key string) {
	if m.onAction != nil {
		m.onAction(p, key)
	}
	m.Hide(p, CauseDismissed)
}

// applyOpacity records and renders a popup's opacity.
func (m *Manager) applyOpacity(p *Popup, v float64) {
	p.opacity = v
	p.surface.SetOpacity(v)
}

// moveTo records and renders a popup's anchor Y.
func (m *Manager) moveTo(p *Popup, y int) {
	p.anchorY = y
	p.surface.Move(p.anchorX, y)
}

// finalize completes a hide: the popup leaves its bucket, its surface is
// destroyed, and the hide callbacks run. Safe to call more than once.
func (m *Manager) finalize(p *Popup, cause Cause) {
	if p.hidden {
		return
	}

	removed := m.removeFromBucket(p)
	m.destroyPopup(p, cause)
	if removed {
		m.updatePositions(p.Position)
	}
	m.showNextQueued()
}

// destroyPopup tears a popup down without touching its bucket. The caller
// is responsible for removal and reflow.
func (m *Manager) destroyPopup(p *Popup, cause Cause) {
	if p.hidden {
		return
	}
	p.hidden = true
	p.exiting = true

	if p.hide != nil {
		m.anim.Stop(p.hide)
		p.hide = nil
	}
	p.surface.Destroy()

	if m.config.Behavior.StackDuplicates {
		key := p.Notification.ContentKey()
		if cur, ok := m.recent.Get(key); ok && cur == p {
			m.recent.Remove(key)
		}
	}

	if p.Notification.OnHide != nil {
		p.Notification.OnHide()
	}
	if m.onHidden != nil {
		m.onHidden(p, cause)
	}

	m.logger.Debug("popup hidden", "id", p.ID, "cause", cause.String())
}

// removeFromBucket splices the popup out of its position bucket. Returns
// false if it was already gone.
func (m *Manager) removeFromBucket(p *Popup) bool {
	bucket := m.buckets[p.Position]
	for i, q := range bucket {
		if q == p {
			m.buckets[p.Position] = append(bucket[:i], bucket[i+1:]...)
			if len(m.buckets[p.Position]) == 0 {
				delete(m.buckets, p.Position)
			}
			return true
		}
	}
	return false
}

// updatePositions reflows one bucket: every member gets a new target
// anchor and slides there over the reflow duration. Popups whose target
// lies outside the visible screen are hidden immediately instead of
// animated. Starting a reflow cancels any in-flight reflow transitions,
// matching the single outstanding transition group the stack keeps.
func (m *Manager) updatePositions(position notify.Position) {
	bucket := m.buckets[position]
	if len(bucket) == 0 {
		return
	}

	// Stack geometry follows the newest member's owner
	newest := bucket[len(bucket)-1]
	owner, padding := newest.owner, newest.padding
	targets := bucketTargets(bucket, owner, padding, position.VAlign())

	var unfit []*Popup
	for i, p := range bucket {
		if !geom.FitsVertically(owner, targets[i], p.size.Height) {
			unfit = append(unfit, p)
		}
	}
	if len(unfit) > 0 {
		for _, p := range unfit {
			m.logger.Debug("popup pushed off screen", "id", p.ID)
			m.removeFromBucket(p)
			m.destroyPopup(p, CauseExpired)
		}
		bucket = m.buckets[position]
		if len(bucket) == 0 {
			return
		}
		targets = bucketTargets(bucket, owner, padding, position.VAlign())
	}

	reflowDur := m.config.Animation.Reflow.Duration()
	group := anim.NewGroup()
	for i, p := range bucket {
		target := targets[i]
		if target == p.anchorY {
			continue
		}
		if reflowDur <= 0 {
			m.moveTo(p, target)
			continue
		}
		p := p
		group.Add(&anim.Timeline{
			Duration: reflowDur,
			From:     float64(p.anchorY),
			To:       float64(target),
			Apply:    func(v float64) { m.moveTo(p, int(math.Round(v))) },
		})
	}

	if m.reflow != nil {
		m.anim.StopGroup(m.reflow)
	}
	m.reflow = group
	m.anim.PlayGroup(group)
}

// enqueue adds a notification to the overflow queue. Critical
// notifications jump ahead of lower urgencies; the oldest entry is dropped
// when the queue is full.
func (m *Manager) enqueue(n *notify.Notification) {
	if len(m.queue) >= maxQueued {
		m.logger.Warn("overflow queue full, dropping oldest notification")
		dropped := m.queue[0]
		m.queue = m.queue[1:]
		if m.onDropped != nil {
			m.onDropped(dropped)
		}
	}

	if n.Urgency == notify.UrgencyCritical {
		at := len(m.queue)
		for i, q := range m.queue {
			if q.Urgency < notify.UrgencyCritical {
				at = i
				break
			}
		}
		m.queue = append(m.queue[:at], append([]*notify.Notification{n}, m.queue[at:]...)...)
	} else {
		m.queue = append(m.queue, n)
	}

	m.logger.Debug("queued notification",
		"title", n.Title,
		"urgency", n.Urgency.String(),
		"queue_size", len(m.queue),
	)
}

// showNextQueued drains the overflow queue into freed slots.
func (m *Manager) showNextQueued() {
	if m.draining {
		return
	}
	m.draining = true
	defer func() { m.draining = false }()

	max := m.config.Display.MaxVisible
	for len(m.queue) > 0 && (max == 0 || m.ActiveCount() < max) {
		n := m.queue[0]
		m.queue = m.queue[1:]

		position := n.Position
		if !position.Valid() {
			position, _ = notify.ParsePosition(m.config.Display.Position)
		}
		if _, err := m.present(n, position); err != nil {
			m.logger.Warn("failed to show queued notification", "error", err)
		}
	}
}

// DisplayError represents a display-related error.
type DisplayError struct {
	Message string
	Cause   error
}

func (e *DisplayError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *DisplayError) Unwrap() error {
	return e.Cause
}
