package pipeline

import (
	"sync"
	"time"
)

// Scheduler keeps at most one pending delayed task per key. Scheduling a
// key that already has a pending task cancels it and starts a fresh
// window; timers never stack.
type Scheduler struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewScheduler returns an empty scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{timers: make(map[string]*time.Timer)}
}

// Schedule runs fn after delay, replacing any pending task for key.
func (s *Scheduler) Schedule(key string, delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[key]; ok {
		t.Stop()
	}

	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		// A reschedule may have replaced this timer between expiry and
		// acquiring the lock; only the current owner runs.
		if s.timers[key] == timer {
			delete(s.timers, key)
			s.mu.Unlock()
			fn()
			return
		}
		s.mu.Unlock()
	})
	s.timers[key] = timer
}

// Cancel stops the pending task for key, reporting whether one existed.
func (s *Scheduler) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.timers[key]
	if !ok {
		return false
	}
	t.Stop()
	delete(s.timers, key)
	return true
}

// Pending returns the keys with a task still scheduled.
func (s *Scheduler) Pending() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.timers))
	for k := range s.timers {
		keys = append(keys, k)
	}
	return keys
}

// Stop cancels every pending task.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, t := range s.timers {
		t.Stop()
		delete(s.timers, k)
	}
}
