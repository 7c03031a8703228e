package drag

import (
	"sync"
	"time"
)

// Timer is a pending single-shot callback.
type Timer interface {
	// Stop cancels the callback. It reports false if it already ran or
	// was stopped.
	Stop() bool
}

// Scheduler runs fn once after d. Implementations decide which goroutine
// fn runs on; the desktop routes it back into its event loop.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

// TimeScheduler schedules on the runtime timer heap.
type TimeScheduler struct{}

// AfterFunc implements Scheduler.
func (TimeScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// Debouncer coalesces bursts of triggers into a single deferred call,
// fired once the burst has been quiet for the configured delay.
type Debouncer struct {
	mu    sync.Mutex
	sched Scheduler
	delay time.Duration
	timer Timer
	gen   uint64
}

// NewDebouncer creates a Debouncer. A nil scheduler uses TimeScheduler.
func NewDebouncer(sched Scheduler, delay time.Duration) *Debouncer {
	if sched == nil {
		sched = TimeScheduler{}
	}
	return &Debouncer{sched: sched, delay: delay}
}

// Trigger (re)starts the quiet period; fn replaces any pending callback.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = d.sched.AfterFunc(d.delay, func() {
		d.mu.Lock()
		if gen != d.gen {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()
		fn()
	})
}

// Pending reports whether a callback is waiting to fire.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Stop drops any pending callback.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
}
