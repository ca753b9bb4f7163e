package watcher

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncerRunsLastTriggerOnly(t *testing.T) {
	d := NewDebouncer(40 * time.Millisecond)

	var calls, last atomic.Int32
	for i := int32(1); i <= 8; i++ {
		d.Trigger(func() {
			calls.Add(1)
			last.Store(i)
		})
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(120 * time.Millisecond)

	if got := calls.Load(); got != 1 {
		t.Fatalf("calls = %d, want 1", got)
	}
	if got := last.Load(); got != 8 {
		t.Fatalf("ran trigger %d, want 8", got)
	}
}

func TestDebouncerCancelThenTrigger(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)

	var cancelled, later atomic.Bool
	d.Trigger(func() { cancelled.Store(true) })
	d.Cancel()
	d.Trigger(func() { later.Store(true) })
	time.Sleep(80 * time.Millisecond)

	if cancelled.Load() {
		t.Error("cancelled call ran")
	}
	if !later.Load() {
		t.Error("trigger after Cancel did not run")
	}
}

func TestDebouncerDuration(t *testing.T) {
	tests := []struct {
		in, want time.Duration
	}{
		{0, DefaultDebounceDuration},
		{-time.Second, DefaultDebounceDuration},
		{75 * time.Millisecond, 75 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := NewDebouncer(tt.in).Duration(); got != tt.want {
			t.Errorf("NewDebouncer(%v).Duration() = %v, want %v", tt.in, got, tt.want)
		}
	}
}
