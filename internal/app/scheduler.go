package app

import (
	"sync"
	"time"
)

// endScheduler arms one countdown per question. Stopping the timer is
// best-effort; correctness against stale fires comes from the generation
// check the fire callback performs, not from cancellation itself.
type endScheduler struct {
	mu    sync.Mutex
	timer *time.Timer
}

func (s *endScheduler) arm(d time.Duration, fire func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(d, fire)
}

func (s *endScheduler) cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
