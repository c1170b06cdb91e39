package search

import (
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTimer struct {
	clock   *fakeClock
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// fakeClock runs callbacks synchronously as virtual time advances.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

// AdvanceTo moves virtual time forward, firing due timers in deadline order.
func (c *fakeClock) AdvanceTo(target time.Duration) {
	for {
		c.mu.Lock()
		sort.SliceStable(c.timers, func(i, j int) bool { return c.timers[i].at < c.timers[j].at })
		var next *fakeTimer
		for _, t := range c.timers {
			if !t.stopped && !t.fired && t.at <= target {
				next = t
				break
			}
		}
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		c.now = next.at
		next.fired = true
		c.mu.Unlock()

		next.f()
	}
}

type firing struct {
	at    time.Duration
	query string
}

func newRecorder(clock *fakeClock) (*[]firing, func(string)) {
	var fired []firing
	return &fired, func(q string) {
		fired = append(fired, firing{at: clock.now, query: q})
	}
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func TestDebouncer_LastKeystrokeWins(t *testing.T) {
	clock := &fakeClock{}
	fired, trigger := newRecorder(clock)
	d := New(trigger, WithClock(clock))

	d.Input("r")
	clock.AdvanceTo(ms(50))
	d.Input("re")
	clock.AdvanceTo(ms(100))
	d.Input("rep")
	assert.Equal(t, "rep", d.Current())

	clock.AdvanceTo(ms(399))
	assert.Empty(t, *fired)

	clock.AdvanceTo(ms(1000))
	require.Len(t, *fired, 1)
	assert.Equal(t, firing{at: ms(400), query: "rep"}, (*fired)[0])
	assert.False(t, d.Pending())
}

func TestDebouncer_SeparateBursts(t *testing.T) {
	clock := &fakeClock{}
	fired, trigger := newRecorder(clock)
	d := New(trigger, WithClock(clock), WithInterval(ms(100)))

	d.Input("milk")
	clock.AdvanceTo(ms(150))
	d.Input("report")
	clock.AdvanceTo(ms(500))

	assert.Equal(t, []firing{
		{at: ms(100), query: "milk"},
		{at: ms(250), query: "report"},
	}, *fired)
}

func TestDebouncer_ClearFiresImmediately(t *testing.T) {
	clock := &fakeClock{}
	fired, trigger := newRecorder(clock)
	d := New(trigger, WithClock(clock))

	d.Input("report")
	clock.AdvanceTo(ms(100))
	d.Clear()

	require.Len(t, *fired, 1)
	assert.Equal(t, firing{at: ms(100), query: ""}, (*fired)[0])

	clock.AdvanceTo(ms(1000))
	assert.Len(t, *fired, 1, "the pending search must not fire after clear")
}

func TestDebouncer_WhitespaceInputClears(t *testing.T) {
	clock := &fakeClock{}
	fired, trigger := newRecorder(clock)
	d := New(trigger, WithClock(clock))

	d.Input("   ")
	require.Len(t, *fired, 1)
	assert.Equal(t, "", (*fired)[0].query)
	assert.Equal(t, "", d.Current())
}

func TestDebouncer_StopCancelsPending(t *testing.T) {
	clock := &fakeClock{}
	fired, trigger := newRecorder(clock)
	d := New(trigger, WithClock(clock))

	d.Input("report")
	d.Stop()
	clock.AdvanceTo(ms(1000))
	assert.Empty(t, *fired)

	d.Input("again")
	d.Clear()
	clock.AdvanceTo(ms(2000))
	assert.Empty(t, *fired)
}

func TestDebouncer_RealClock(t *testing.T) {
	done := make(chan string, 1)
	d := New(func(q string) { done <- q }, WithInterval(ms(10)))
	defer d.Stop()

	d.Input("a")
	d.Input("ab")

	select {
	case q := <-done:
		assert.Equal(t, "ab", q)
	case <-time.After(time.Second):
		t.Fatal("debounced search never fired")
	}
}
