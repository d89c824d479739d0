package scrollsync

import (
	"sync"
	"time"
)

// Debouncer delays a call until no new trigger arrived for the configured
// delay. Superseded calls are discarded, never queued.
type Debouncer struct {
	mu    sync.Mutex
	clock Clock
	delay time.Duration
	fn    func()
	timer Timer
	gen   uint64
}

// NewDebouncer returns a Debouncer running fn through clock.
func NewDebouncer(clock Clock, delay time.Duration, fn func()) *Debouncer {
	if clock == nil {
		clock = RealClock()
	}
	return &Debouncer{clock: clock, delay: delay, fn: fn}
}

// Trigger (re)schedules the call.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopLocked()
	d.gen++
	gen := d.gen
	d.timer = d.clock.AfterFunc(d.delay, func() { d.fire(gen) })
}

// Cancel drops the pending call, if any.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopLocked()
	d.gen++
}

func (d *Debouncer) stopLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// fire runs fn unless the call was superseded after its timer had
// already started.
func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.mu.Unlock()

	d.fn()
}
