// Package scheduler simulates asynchronous completion with cancelable
// one-shot timers: a single deferred processing completion per project,
// plus independently timed chat replies.
package scheduler

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	apperrors "github.com/brandsight/rfpd/internal/errors"
)

// Config holds the scheduler's fixed delays.
type Config struct {
	// ProcessingDelay is how long a simulated document analysis takes.
	ProcessingDelay time.Duration
	// ReplyDelay is how long a simulated chat reply takes.
	ReplyDelay time.Duration
}

// Scheduler tracks outstanding deferred work. Every timer is owned
// explicitly so deletion can dispose of it instead of relying on the
// fire-time existence check alone.
type Scheduler struct {
	mu      sync.Mutex
	tasks   map[string]*time.Timer   // project id → processing timer
	replies map[string][]*time.Timer // project id → pending reply timers
	cfg     Config
	stopped bool
	logger  zerolog.Logger
}

// New creates a Scheduler. Zero delays are allowed (timers fire almost
// immediately), which tests use in place of a fake clock.
func New(cfg Config, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		tasks:   make(map[string]*time.Timer),
		replies: make(map[string][]*time.Timer),
		cfg:     cfg,
		logger:  logger.With().Str("component", "scheduler").Logger(),
	}
}

// Schedule registers the one-shot processing completion for a project.
// At most one task per project id may be outstanding; a duplicate returns
// ErrAlreadyScheduled rather than risking a double journey advancement.
func (s *Scheduler) Schedule(projectID string, fire func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil
	}
	if _, ok := s.tasks[projectID]; ok {
		return apperrors.ErrAlreadyScheduled
	}
	s.tasks[projectID] = time.AfterFunc(s.cfg.ProcessingDelay, func() {
		// Remove the task before applying, so Outstanding flips off even
		// if the completion callback is slow.
		s.mu.Lock()
		_, live := s.tasks[projectID]
		delete(s.tasks, projectID)
		s.mu.Unlock()
		if !live {
			// Lost the race with Cancel; the disposal discipline wins.
			return
		}
		s.logger.Debug().Str("project_id", projectID).Msg("processing task fired")
		fire()
	})
	s.logger.Info().
		Str("project_id", projectID).
		Dur("delay", s.cfg.ProcessingDelay).
		Msg("processing task scheduled")
	return nil
}

// Cancel stops an outstanding processing task before it fires. Returns
// whether a task was actually cancelled.
func (s *Scheduler) Cancel(projectID string) bool {
	s.mu.Lock()
	t, ok := s.tasks[projectID]
	if ok {
		t.Stop()
		delete(s.tasks, projectID)
	}
	s.mu.Unlock()
	if ok {
		s.logger.Info().Str("project_id", projectID).Msg("processing task cancelled")
	}
	return ok
}

// Outstanding reports whether the project still has a pending processing
// task. Drives the "Processing…" indicator.
func (s *Scheduler) Outstanding(projectID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[projectID]
	return ok
}

// ScheduleReply registers one deferred chat reply for the project. Each
// send gets its own timer; replies are never coalesced.
func (s *Scheduler) ScheduleReply(projectID string, fire func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	var timer *time.Timer
	timer = time.AfterFunc(s.cfg.ReplyDelay, func() {
		s.mu.Lock()
		live := s.removeReply(projectID, timer)
		s.mu.Unlock()
		if !live {
			return
		}
		fire()
	})
	s.replies[projectID] = append(s.replies[projectID], timer)
}

// removeReply detaches a fired or cancelled reply timer. Caller holds the
// lock. Returns whether the timer was still registered.
func (s *Scheduler) removeReply(projectID string, timer *time.Timer) bool {
	pending := s.replies[projectID]
	for i, t := range pending {
		if t == timer {
			s.replies[projectID] = append(pending[:i], pending[i+1:]...)
			if len(s.replies[projectID]) == 0 {
				delete(s.replies, projectID)
			}
			return true
		}
	}
	return false
}

// CancelReplies stops every pending chat reply for the project. Called on
// project deletion so no reply can land on a removed entity.
func (s *Scheduler) CancelReplies(projectID string) {
	s.mu.Lock()
	pending := s.replies[projectID]
	delete(s.replies, projectID)
	s.mu.Unlock()
	for _, t := range pending {
		t.Stop()
	}
	if len(pending) > 0 {
		s.logger.Debug().Str("project_id", projectID).Int("cancelled", len(pending)).Msg("pending replies cancelled")
	}
}

// PendingReplies returns the number of pending chat replies for the
// project.
func (s *Scheduler) PendingReplies(projectID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.replies[projectID])
}

// Stop cancels all outstanding work. The scheduler accepts no new work
// afterwards; used on shutdown.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	var timers []*time.Timer
	for id, t := range s.tasks {
		timers = append(timers, t)
		delete(s.tasks, id)
	}
	for id, pending := range s.replies {
		timers = append(timers, pending...)
		delete(s.replies, id)
	}
	s.mu.Unlock()
	for _, t := range timers {
		t.Stop()
	}
	s.logger.Info().Int("cancelled", len(timers)).Msg("scheduler stopped")
}
