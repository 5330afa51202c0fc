package draft

import (
	"sync"
	"time"
)

// DefaultQuietPeriod is the debounce window applied when callers do not
// supply one.
const DefaultQuietPeriod = 2 * time.Second

// Debouncer coalesces a burst of snapshot writes into a single write of the
// most recent state after a quiet period. Intermediate snapshots inside one
// window are superseded, never queued.
type Debouncer struct {
	mu      sync.Mutex
	quiet   time.Duration
	timer   *time.Timer
	pending Snapshot
	write   func(Snapshot)
	stopped bool
}

// NewDebouncer builds a debouncer invoking write after each quiet period.
// A non-positive quiet period falls back to DefaultQuietPeriod.
func NewDebouncer(quiet time.Duration, write func(Snapshot)) *Debouncer {
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	return &Debouncer{quiet: quiet, write: write}
}

// Schedule records the latest snapshot and (re)starts the quiet timer.
func (d *Debouncer) Schedule(snap Snapshot) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.pending = snap
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.quiet, d.fire)
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	snap := d.pending
	d.pending = nil
	d.timer = nil
	stopped := d.stopped
	d.mu.Unlock()
	if stopped || snap == nil {
		return
	}
	d.write(snap)
}

// Flush writes any pending snapshot immediately, cancelling the timer.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	snap := d.pending
	d.pending = nil
	stopped := d.stopped
	d.mu.Unlock()
	if stopped || snap == nil {
		return
	}
	d.write(snap)
}

// Stop cancels the timer and drops any pending snapshot. An in-flight write
// that already fired is not awaited.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = nil
}
