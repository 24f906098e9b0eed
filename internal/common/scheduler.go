package common

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type scheduled struct {
	timer *time.Timer
	at    time.Time
}

// Keyed one-shot timers. Deadlines are absolute times measured
// against the clock; a deadline in the past fires right away.
// Scheduling a key twice replaces the previous timer
type Scheduler struct {
	mu      sync.Mutex
	clock   Clock
	pending map[string]*scheduled
	stopped bool
}

func NewScheduler(clock Clock) *Scheduler {
	return &Scheduler{clock: clock, pending: map[string]*scheduled{}}
}

func (s *Scheduler) Schedule(key string, at time.Time, task func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		log.Warn().Msg(fmt.Sprintf("Scheduler is stopped, ignoring task %s", key))
		return
	}
	if old, ok := s.pending[key]; ok {
		old.timer.Stop()
	}

	delay := at.Sub(s.clock.Now())
	if delay < 0 {
		delay = 0
	}
	entry := &scheduled{at: at}
	entry.timer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		// The key may have been cancelled or replaced while this timer was firing
		if current, ok := s.pending[key]; !ok || current != entry {
			s.mu.Unlock()
			return
		}
		delete(s.pending, key)
		s.mu.Unlock()

		log.Debug().Msg(fmt.Sprintf("Running scheduled task %s", key))
		task()
	})
	s.pending[key] = entry
	log.Debug().Msg(fmt.Sprintf("Task %s scheduled in %s", key, delay.Round(time.Second)))
}

// Cancel a pending task. Returns false if there was nothing to cancel
func (s *Scheduler) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.pending[key]
	if !ok {
		return false
	}
	entry.timer.Stop()
	delete(s.pending, key)
	return true
}

// Deadline of a pending task
func (s *Scheduler) Pending(key string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.pending[key]
	if !ok {
		return time.Time{}, false
	}
	return entry.at, true
}

// Stop every pending timer. Nothing can be scheduled afterwards
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, entry := range s.pending {
		entry.timer.Stop()
		delete(s.pending, key)
	}
	s.stopped = true
}
