// Package anim is the timeline facility the display manager schedules its
// fades and reflow slides on. A Timeline interpolates one float value over
// a duration, optionally after a start delay; a Group bundles timelines so
// they run concurrently and cancel as a unit.
//
// The Animator owns the clock. It ticks on a background ticker but applies
// every step through the post function handed to New, so all Apply and
// OnComplete callbacks run on the scene loop. Stopping a timeline before it
// finishes suppresses its completion callback.
package anim

import "time"

// tickInterval is the frame period for active animations, roughly 60 Hz.
const tickInterval = 16 * time.Millisecond

// Timeline interpolates From to To over Duration, starting Delay after it
// is played. Apply receives each intermediate value; OnComplete fires once
// after the final value was applied, unless the timeline is stopped first.
type Timeline struct {
	Delay      time.Duration
	Duration   time.Duration
	From       float64
	To         float64
	Apply      func(v float64)
	OnComplete func()

	start time.Time
}

// value computes the interpolated value at now. begun is false while the
// start delay has not elapsed; done is true once the timeline reached To.
func (t *Timeline) value(now time.Time) (v float64, begun, done bool) {
	elapsed := now.Sub(t.start) - t.Delay
	if elapsed < 0 {
		return t.From, false, false
	}
	if t.Duration <= 0 || elapsed >= t.Duration {
		return t.To, true, true
	}
	frac := float64(elapsed) / float64(t.Duration)
	return t.From + (t.To-t.From)*frac, true, false
}

// Group is a set of timelines played and stopped together. The display
// manager keeps one group per reflow batch; playing a new batch stops the
// previous one.
type Group struct {
	timelines []*Timeline
}

// NewGroup bundles the given timelines.
func NewGroup(timelines ...*Timeline) *Group {
	return &Group{timelines: timelines}
}

// Add appends timelines to the group.
func (g *Group) Add(timelines ...*Timeline) {
	g.timelines = append(g.timelines, timelines...)
}

// Len reports how many timelines the group holds.
func (g *Group) Len() int {
	return len(g.timelines)
}

// Animator advances timelines. All of its methods must be called on the
// scene loop; the internal ticker posts its steps there too.
type Animator struct {
	post     func(func())
	now      func() time.Time
	interval time.Duration

	active   map[*Timeline]struct{}
	ticking  bool
	stopTick chan struct{}
}

// New returns an Animator whose steps are marshalled through post.
func New(post func(func())) *Animator {
	return &Animator{
		post:     post,
		now:      time.Now,
		interval: tickInterval,
		active:   make(map[*Timeline]struct{}),
	}
}

// NewManual returns an Animator with no internal ticker; the caller drives
// it by calling Step directly. Play stamps start times from now.
func NewManual(post func(func()), now func() time.Time) *Animator {
	if now == nil {
		now = time.Now
	}
	return &Animator{
		post:   post,
		now:    now,
		active: make(map[*Timeline]struct{}),
	}
}

// Play starts the given timelines now. Replaying an active timeline
// restarts it from the beginning.
func (a *Animator) Play(timelines ...*Timeline) {
	start := a.now()
	for _, t := range timelines {
		if t == nil {
			continue
		}
		t.start = start
		a.active[t] = struct{}{}
	}
	if len(a.active) > 0 {
		a.ensureTicking()
	}
}

// Stop cancels the given timelines. Their completion callbacks do not fire.
func (a *Animator) Stop(timelines ...*Timeline) {
	for _, t := range timelines {
		if t != nil {
			delete(a.active, t)
		}
	}
}

// PlayGroup starts every timeline in the group.
func (a *Animator) PlayGroup(g *Group) {
	if g != nil {
		a.Play(g.timelines...)
	}
}

// StopGroup cancels every timeline in the group.
func (a *Animator) StopGroup(g *Group) {
	if g != nil {
		a.Stop(g.timelines...)
	}
}

// Active reports how many timelines are currently running.
func (a *Animator) Active() int {
	return len(a.active)
}

// Step advances all active timelines to now. Completion callbacks run
// after the finished timeline has been retired, so they may freely play or
// stop other timelines.
func (a *Animator) Step(now time.Time) {
	snapshot := make([]*Timeline, 0, len(a.active))
	for t := range a.active {
		snapshot = append(snapshot, t)
	}
	for _, t := range snapshot {
		if _, ok := a.active[t]; !ok {
			continue
		}
		v, begun, done := t.value(now)
		if !begun {
			continue
		}
		if t.Apply != nil {
			t.Apply(v)
		}
		if done {
			delete(a.active, t)
			if t.OnComplete != nil {
				t.OnComplete()
			}
		}
	}
	if len(a.active) == 0 {
		a.stopTicking()
	}
}

func (a *Animator) ensureTicking() {
	if a.ticking || a.interval <= 0 {
		return
	}
	a.ticking = true
	stop := make(chan struct{})
	a.stopTick = stop
	ticker := time.NewTicker(a.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case now := <-ticker.C:
				a.post(func() { a.Step(now) })
			}
		}
	}()
}

func (a *Animator) stopTicking() {
	if !a.ticking {
		return
	}
	close(a.stopTick)
	a.ticking = false
}
