package watcher

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestNewDebouncerDefault(t *testing.T) {
	d := NewDebouncer(0, func() {})
	if d.Duration() != DefaultDebounce {
		t.Errorf("Duration() = %v, want %v", d.Duration(), DefaultDebounce)
	}
}

func TestDebouncerCoalesces(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(50*time.Millisecond, func() { calls.Add(1) })

	for i := 0; i < 5; i++ {
		d.Trigger()
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(150 * time.Millisecond)

	if got := calls.Load(); got != 1 {
		t.Errorf("fn called %d times, want 1", got)
	}
}

func TestDebouncerFlush(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(time.Hour, func() { calls.Add(1) })

	d.Flush()
	if calls.Load() != 0 {
		t.Fatal("Flush without pending call should not run fn")
	}
	d.Trigger()
	d.Flush()
	if calls.Load() != 1 {
		t.Errorf("fn called %d times after Flush, want 1", calls.Load())
	}
}

func TestDebouncerStop(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(20*time.Millisecond, func() { calls.Add(1) })

	d.Trigger()
	d.Stop()
	d.Trigger()
	time.Sleep(80 * time.Millisecond)

	if calls.Load() != 0 {
		t.Errorf("fn called %d times after Stop, want 0", calls.Load())
	}
}
