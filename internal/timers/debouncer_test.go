package timers

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestNewDebouncer(t *testing.T) {
	t.Run("default duration", func(t *testing.T) {
		d := NewDebouncer(0)
		if d.Duration() != DefaultDebounce {
			t.Errorf("Duration() = %v, want %v", d.Duration(), DefaultDebounce)
		}
	})

	t.Run("custom duration", func(t *testing.T) {
		d := NewDebouncer(500 * time.Millisecond)
		if d.Duration() != 500*time.Millisecond {
			t.Errorf("Duration() = %v, want 500ms", d.Duration())
		}
	})
}

func TestDebouncerCoalescesRapidTriggers(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(80 * time.Millisecond)

	for i := 0; i < 5; i++ {
		d.Trigger(func() { calls.Add(1) })
		time.Sleep(10 * time.Millisecond)
	}
	if !d.Pending() {
		t.Fatalf("Pending() = false right after triggering")
	}

	time.Sleep(200 * time.Millisecond)

	if got := calls.Load(); got != 1 {
		t.Fatalf("callback called %d times, want 1", got)
	}
	if d.Pending() {
		t.Fatalf("Pending() = true after callback fired")
	}
}

func TestDebouncerRunsLatestCallback(t *testing.T) {
	var got atomic.Int32
	d := NewDebouncer(40 * time.Millisecond)

	d.Trigger(func() { got.Store(1) })
	d.Trigger(func() { got.Store(2) })

	time.Sleep(120 * time.Millisecond)
	if got.Load() != 2 {
		t.Fatalf("latest callback not used, got %d", got.Load())
	}
}

func TestDebouncerCancel(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(40 * time.Millisecond)

	d.Trigger(func() { calls.Add(1) })
	d.Cancel()
	d.Cancel() // idempotent

	time.Sleep(100 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Fatalf("callback called %d times after Cancel, want 0", got)
	}
}
