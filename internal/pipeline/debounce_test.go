package pipeline

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestScheduler_CancelAndReschedule(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	var fired atomic.Int32

	// Rapid reschedules must coalesce into a single firing.
	for i := 0; i < 10; i++ {
		s.Schedule("k", 30*time.Millisecond, func() { fired.Add(1) })
	}

	time.Sleep(100 * time.Millisecond)
	if n := fired.Load(); n != 1 {
		t.Errorf("fired %d times, want 1", n)
	}
}

func TestScheduler_IndependentKeys(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	var fired atomic.Int32
	s.Schedule("a", 10*time.Millisecond, func() { fired.Add(1) })
	s.Schedule("b", 10*time.Millisecond, func() { fired.Add(1) })

	time.Sleep(60 * time.Millisecond)
	if n := fired.Load(); n != 2 {
		t.Errorf("fired %d times, want 2", n)
	}
}

func TestScheduler_Cancel(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	var fired atomic.Int32
	s.Schedule("k", 20*time.Millisecond, func() { fired.Add(1) })

	if !s.Cancel("k") {
		t.Error("Cancel returned false for a pending task")
	}
	if s.Cancel("k") {
		t.Error("Cancel returned true for an already-canceled task")
	}

	time.Sleep(50 * time.Millisecond)
	if n := fired.Load(); n != 0 {
		t.Errorf("fired %d times after cancel, want 0", n)
	}
}

func TestScheduler_Pending(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	s.Schedule("a", time.Hour, func() {})
	s.Schedule("b", time.Hour, func() {})

	if got := len(s.Pending()); got != 2 {
		t.Errorf("Pending() = %d keys, want 2", got)
	}

	s.Stop()
	if got := len(s.Pending()); got != 0 {
		t.Errorf("Pending() after Stop = %d keys, want 0", got)
	}
}
