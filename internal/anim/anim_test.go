package anim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// manualAnimator returns an animator without a ticker whose clock starts at
// a fixed instant; tests advance it by calling Step directly.
func manualAnimator() (*Animator, time.Time) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	a := NewManual(func(f func()) { f() }, func() time.Time { return start })
	return a, start
}

func TestTimelineInterpolates(t *testing.T) {
	a, start := manualAnimator()

	var values []float64
	tl := &Timeline{
		Duration: 100 * time.Millisecond,
		From:     1.0,
		To:       0.0,
		Apply:    func(v float64) { values = append(values, v) },
	}
	a.Play(tl)
	require.Equal(t, 1, a.Active())

	a.Step(start.Add(25 * time.Millisecond))
	a.Step(start.Add(50 * time.Millisecond))
	a.Step(start.Add(100 * time.Millisecond))

	require.Len(t, values, 3)
	assert.InDelta(t, 0.75, values[0], 1e-9)
	assert.InDelta(t, 0.5, values[1], 1e-9)
	assert.InDelta(t, 0.0, values[2], 1e-9)
	assert.Equal(t, 0, a.Active())
}

func TestTimelineDelay(t *testing.T) {
	a, start := manualAnimator()

	var applied []float64
	completed := false
	tl := &Timeline{
		Delay:      time.Second,
		Duration:   100 * time.Millisecond,
		From:       1.0,
		To:         0.0,
		Apply:      func(v float64) { applied = append(applied, v) },
		OnComplete: func() { completed = true },
	}
	a.Play(tl)

	// Nothing is applied while the delay is pending.
	a.Step(start.Add(500 * time.Millisecond))
	a.Step(start.Add(999 * time.Millisecond))
	assert.Empty(t, applied)
	assert.False(t, completed)

	a.Step(start.Add(1050 * time.Millisecond))
	require.Len(t, applied, 1)
	assert.InDelta(t, 0.5, applied[0], 1e-9)

	a.Step(start.Add(1200 * time.Millisecond))
	assert.True(t, completed)
	assert.InDelta(t, 0.0, applied[len(applied)-1], 1e-9)
}

func TestZeroDurationCompletesImmediately(t *testing.T) {
	a, start := manualAnimator()

	var got float64 = -1
	completed := false
	tl := &Timeline{
		From:       1.0,
		To:         0.0,
		Apply:      func(v float64) { got = v },
		OnComplete: func() { completed = true },
	}
	a.Play(tl)
	a.Step(start)

	assert.Equal(t, 0.0, got)
	assert.True(t, completed)
	assert.Equal(t, 0, a.Active())
}

func TestStopSuppressesCompletion(t *testing.T) {
	a, start := manualAnimator()

	completed := false
	tl := &Timeline{
		Duration:   100 * time.Millisecond,
		To:         1.0,
		OnComplete: func() { completed = true },
	}
	a.Play(tl)
	a.Stop(tl)
	a.Step(start.Add(time.Second))

	assert.False(t, completed)
	assert.Equal(t, 0, a.Active())
}

func TestGroupStopsAsUnit(t *testing.T) {
	a, start := manualAnimator()

	var completions int
	mk := func() *Timeline {
		return &Timeline{
			Duration:   100 * time.Millisecond,
			To:         1.0,
			OnComplete: func() { completions++ },
		}
	}
	first := NewGroup(mk(), mk(), mk())
	a.PlayGroup(first)
	require.Equal(t, 3, a.Active())

	// Replacing the batch cancels everything still in flight.
	second := NewGroup(mk())
	a.StopGroup(first)
	a.PlayGroup(second)
	require.Equal(t, 1, a.Active())

	a.Step(start.Add(time.Second))
	assert.Equal(t, 1, completions)
}

func TestCompletionMayStartNewTimeline(t *testing.T) {
	a, start := manualAnimator()

	chained := false
	next := &Timeline{
		Duration:   50 * time.Millisecond,
		To:         1.0,
		OnComplete: func() { chained = true },
	}
	first := &Timeline{
		Duration: 100 * time.Millisecond,
		To:       1.0,
		OnComplete: func() {
			a.now = func() time.Time { return start.Add(200 * time.Millisecond) }
			a.Play(next)
		},
	}
	a.Play(first)

	a.Step(start.Add(200 * time.Millisecond))
	require.Equal(t, 1, a.Active())

	a.Step(start.Add(400 * time.Millisecond))
	assert.True(t, chained)
	assert.Equal(t, 0, a.Active())
}
