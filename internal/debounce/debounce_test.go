package debounce

import (
	"sync/atomic"
	"testing"
	"time"
)

// captureTimers replaces afterFunc with a recorder whose callbacks only run
// when the test invokes them.
func captureTimers(t *testing.T) *[]func() {
	t.Helper()
	orig := afterFunc
	t.Cleanup(func() { afterFunc = orig })

	var callbacks []func()
	afterFunc = func(_ time.Duration, f func()) *time.Timer {
		callbacks = append(callbacks, f)
		timer := time.NewTimer(time.Hour)
		timer.Stop()
		return timer
	}
	return &callbacks
}

func TestDebouncerIgnoresSupersededTimer(t *testing.T) {
	callbacks := captureTimers(t)

	var called atomic.Int32
	d := New(time.Second, func() { called.Add(1) })
	d.Trigger()
	d.Trigger()

	if len(*callbacks) != 2 {
		t.Fatalf("scheduled %d callbacks, want 2", len(*callbacks))
	}
	for _, cb := range *callbacks {
		cb()
	}
	if got := called.Load(); got != 1 {
		t.Fatalf("fn ran %d times, want 1", got)
	}
}

func TestDebouncerStopIgnoresPendingTimer(t *testing.T) {
	callbacks := captureTimers(t)

	var called atomic.Int32
	d := New(time.Second, func() { called.Add(1) })
	d.Trigger()
	d.Stop()

	if len(*callbacks) != 1 {
		t.Fatalf("scheduled %d callbacks, want 1", len(*callbacks))
	}
	(*callbacks)[0]()
	if got := called.Load(); got != 0 {
		t.Fatalf("fn ran %d times after Stop, want 0", got)
	}

	d.Trigger()
	(*callbacks)[1]()
	if got := called.Load(); got != 1 {
		t.Fatalf("fn ran %d times after re-trigger, want 1", got)
	}
}

func TestDebouncerCoalescesBurst(t *testing.T) {
	var count atomic.Int32
	done := make(chan struct{})
	d := New(10*time.Millisecond, func() {
		if count.Add(1) == 1 {
			close(done)
		}
	})
	for range 5 {
		d.Trigger()
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("debouncer did not fire")
	}
	time.Sleep(30 * time.Millisecond)
	if got := count.Load(); got != 1 {
		t.Fatalf("fn ran %d times, want 1", got)
	}
}

func TestDebouncerStop(t *testing.T) {
	var count atomic.Int32
	d := New(20*time.Millisecond, func() { count.Add(1) })
	d.Trigger()
	d.Stop()
	time.Sleep(40 * time.Millisecond)
	if got := count.Load(); got != 0 {
		t.Fatalf("fn ran %d times after Stop, want 0", got)
	}
}
