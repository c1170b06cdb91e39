// Package search turns a stream of search-box edits into a trickle of query triggers.
package search

import (
	"strings"
	"sync"
	"time"
)

// DefaultInterval is the quiet period before a search fires.
const DefaultInterval = 300 * time.Millisecond

// Timer is a pending callback that can be stopped.
type Timer interface {
	Stop() bool
}

// Clock schedules callbacks. The real clock wraps time.AfterFunc.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealClock returns a Clock backed by the runtime timers.
func RealClock() Clock {
	return realClock{}
}

// Debouncer coalesces rapid Input calls into a single trigger carrying the last value.
// A cleared query fires at once. After Stop nothing fires again.
type Debouncer struct {
	mu         sync.Mutex
	clock      Clock
	interval   time.Duration
	trigger    func(query string)
	current    string
	pending    Timer
	generation uint64
	stopped    bool
}

// Option customises a Debouncer.
type Option func(*Debouncer)

// WithClock replaces the runtime clock, mostly for tests.
func WithClock(c Clock) Option {
	return func(d *Debouncer) {
		d.clock = c
	}
}

// WithInterval sets the quiet period. Non-positive values fall back to DefaultInterval.
func WithInterval(interval time.Duration) Option {
	return func(d *Debouncer) {
		if interval > 0 {
			d.interval = interval
		}
	}
}

// New creates a Debouncer that calls trigger with the settled query.
func New(trigger func(query string), opts ...Option) *Debouncer {
	d := &Debouncer{
		clock:    RealClock(),
		interval: DefaultInterval,
		trigger:  trigger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Input records q as the current query and (re)schedules the trigger. An empty or
// whitespace-only q is treated as Clear.
func (d *Debouncer) Input(q string) {
	if strings.TrimSpace(q) == "" {
		d.Clear()
		return
	}

	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.current = q
	gen := d.cancelLocked()
	d.pending = d.clock.AfterFunc(d.interval, func() {
		d.fire(gen, q)
	})
	d.mu.Unlock()
}

// Clear drops any pending trigger and fires the empty query immediately.
func (d *Debouncer) Clear() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.current = ""
	d.cancelLocked()
	d.mu.Unlock()

	d.trigger("")
}

// Stop cancels any pending trigger. Later calls to Input and Clear are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.cancelLocked()
	d.stopped = true
}

// Current returns the most recent query, fired or not.
func (d *Debouncer) Current() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

// Pending reports whether a trigger is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}

// cancelLocked stops the pending timer and bumps the generation so a timer that already
// started running sees it is stale.
func (d *Debouncer) cancelLocked() uint64 {
	if d.pending != nil {
		d.pending.Stop()
		d.pending = nil
	}
	d.generation++
	return d.generation
}

func (d *Debouncer) fire(gen uint64, q string) {
	d.mu.Lock()
	if d.stopped || gen != d.generation {
		d.mu.Unlock()
		return
	}
	d.pending = nil
	d.mu.Unlock()

	d.trigger(q)
}
