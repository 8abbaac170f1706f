package watchdog

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestWatchdogFiresOnce(t *testing.T) {
	var fired int32
	done := make(chan struct{})
	w := New(30*time.Millisecond, func() {
		if atomic.AddInt32(&fired, 1) == 1 {
			close(done)
		}
	})
	w.Arm()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watchdog never fired")
	}

	w.Arm()
	time.Sleep(80 * time.Millisecond)
	if n := atomic.LoadInt32(&fired); n != 1 {
		t.Errorf("expected exactly one fire, got %d", n)
	}
	if !w.Fired() {
		t.Error("expected Fired to report true")
	}
}

func TestWatchdogRearmExtendsDeadline(t *testing.T) {
	var firedAt atomic.Value
	done := make(chan struct{})
	w := New(60*time.Millisecond, func() {
		firedAt.Store(time.Now())
		close(done)
	})

	start := time.Now()
	w.Arm()
	for i := 0; i < 5; i++ {
		time.Sleep(20 * time.Millisecond)
		w.Arm()
	}
	lastArm := time.Now()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watchdog never fired")
	}

	at := firedAt.Load().(time.Time)
	if at.Sub(lastArm) < 50*time.Millisecond {
		t.Errorf("fired %v after the last arm, expected at least the timeout", at.Sub(lastArm))
	}
	if at.Sub(start) < 150*time.Millisecond {
		t.Errorf("fired %v after start, stale timer was not ignored", at.Sub(start))
	}
}

func TestWatchdogStop(t *testing.T) {
	var fired int32
	w := New(20*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })
	w.Arm()
	w.Stop()
	w.Arm()

	time.Sleep(60 * time.Millisecond)
	if atomic.LoadInt32(&fired) != 0 {
		t.Error("expected stopped watchdog not to fire")
	}
	if w.Fired() {
		t.Error("expected Fired to report false")
	}
}

func TestWatchdogNeverArmed(t *testing.T) {
	w := New(10*time.Millisecond, func() { t.Error("unexpected fire") })
	time.Sleep(30 * time.Millisecond)
	w.Stop()
}
