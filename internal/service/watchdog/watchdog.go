// Package watchdog fires a callback once when no activity is seen for a while.
package watchdog

import (
	"sync"
	"time"
)

// Watchdog is re-armed on every inbound event. Arm only moves the deadline;
// a single timer is reused and re-scheduled when it wakes up early, so arming
// at frame rate does not allocate.
type Watchdog struct {
	timeout time.Duration
	onFire  func()
	now     func() time.Time

	mu       sync.Mutex
	timer    *time.Timer
	deadline time.Time
	fired    bool
	stopped  bool
}

func New(timeout time.Duration, onFire func()) *Watchdog {
	return &Watchdog{
		timeout: timeout,
		onFire:  onFire,
		now:     time.Now,
	}
}

// Arm pushes the deadline to now+timeout. It is a no-op once the watchdog
// fired or was stopped.
func (w *Watchdog) Arm() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.fired || w.stopped {
		return
	}
	w.deadline = w.now().Add(w.timeout)
	if w.timer == nil {
		w.timer = time.AfterFunc(w.timeout, w.expire)
	}
}

func (w *Watchdog) expire() {
	w.mu.Lock()
	if w.fired || w.stopped {
		w.mu.Unlock()
		return
	}
	if remaining := w.deadline.Sub(w.now()); remaining > 0 {
		w.timer.Reset(remaining)
		w.mu.Unlock()
		return
	}
	w.fired = true
	w.mu.Unlock()

	w.onFire()
}

// Stop cancels the watchdog for good.
func (w *Watchdog) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
	}
}

func (w *Watchdog) Fired() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fired
}
