package app

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunPoller_TicksUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	done := make(chan struct{})
	go func() {
		runPoller(ctx, 10*time.Millisecond, func() { calls.Add(1) })
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after cancel")
	}

	n := calls.Load()
	if n < 3 {
		t.Fatalf("calls = %d, want at least 3", n)
	}
	time.Sleep(50 * time.Millisecond)
	if after := calls.Load(); after != n {
		t.Fatalf("calls grew after cancel: %d -> %d", n, after)
	}
}

func TestRunPoller_NonPositiveIntervalUsesDefault(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	var calls atomic.Int32
	runPoller(ctx, 0, func() { calls.Add(1) })
	if n := calls.Load(); n != 0 {
		t.Fatalf("calls = %d within 50ms at the default interval, want 0", n)
	}
}
