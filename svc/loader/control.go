package loader

import (
	"context"
	"slices"

	"github.com/dmitrymomot/tabloader/pkg/logger"
	"github.com/dmitrymomot/tabloader/pkg/settings"
	"github.com/dmitrymomot/tabloader/pkg/tabs"
)

// Apply installs new settings and returns the keys that changed. A smaller
// queue limit truncates the queue tail. Switching to stay-discarded abandons
// the queue and every in-flight load. When the result is active and
// unpaused the queue is driven once.
func (s *Scheduler) Apply(ctx context.Context, next settings.Settings) []settings.Key {
	next = next.Normalize()

	s.mu.Lock()
	changed := settings.Diff(s.cfg, next)
	s.cfg = next

	dropped := 0
	if len(s.queue) > next.QueueLimit {
		dropped = len(s.queue) - next.QueueLimit
		s.queue = s.queue[:next.QueueLimit]
	}
	abandoned := settings.Contains(changed, settings.KeyLoadBehavior) && next.LoadBehavior == settings.StayDiscarded
	if abandoned {
		s.queue = nil
		s.resetLocked()
	}
	s.mu.Unlock()

	for range dropped {
		s.metrics.TabDropped(ctx)
	}
	if abandoned {
		s.log.Info("keeping tabs discarded, reload queue abandoned")
	}
	if len(changed) > 0 {
		s.changed()
	}
	s.Drive(ctx)
	return changed
}

// SetPaused pauses or unpauses the scheduler. Unpausing drives the queue.
// It reports whether the state changed.
func (s *Scheduler) SetPaused(ctx context.Context, paused bool) bool {
	s.mu.Lock()
	if s.cfg.IsPaused == paused {
		s.mu.Unlock()
		return false
	}
	s.cfg.IsPaused = paused
	s.mu.Unlock()

	s.changed()
	if !paused {
		s.Drive(ctx)
	}
	return true
}

// TogglePause flips the paused state and returns the new value. In-flight
// loads are not interrupted.
func (s *Scheduler) TogglePause(ctx context.Context) bool {
	s.mu.Lock()
	s.cfg.IsPaused = !s.cfg.IsPaused
	paused := s.cfg.IsPaused
	s.mu.Unlock()

	s.changed()
	if !paused {
		s.Drive(ctx)
	}
	return paused
}

// SkipNext removes the head of the queue without reloading it, then drives.
// It reports whether a tab was skipped.
func (s *Scheduler) SkipNext(ctx context.Context) bool {
	s.mu.Lock()
	e, ok := s.popLocked()
	s.mu.Unlock()

	if !ok {
		return false
	}
	s.log.Debug("skipped queued tab", logger.TabID(int(e.TabID)))
	s.changed()
	s.Drive(ctx)
	return true
}

// Empty clears the queue and the in-flight set in one step.
func (s *Scheduler) Empty(context.Context) {
	s.mu.Lock()
	s.queue = nil
	s.resetLocked()
	s.mu.Unlock()

	s.changed()
}

// Resume is the recovery path for a stuck scheduler: it unpauses, forces
// the drain guard back to Idle, clears the in-flight set and drives the
// queue again. Queued tabs are kept unless the browser no longer has them.
// It reports whether it unpaused.
func (s *Scheduler) Resume(ctx context.Context) bool {
	open, err := s.svc.Query(ctx, tabs.Query{})
	if err != nil {
		s.log.Warn("failed to list tabs while resuming", logger.Error(err))
	}

	s.mu.Lock()
	if err == nil {
		present := make(map[tabs.ID]struct{}, len(open))
		for _, t := range open {
			present[t.ID] = struct{}{}
		}
		s.queue = slices.DeleteFunc(s.queue, func(e Entry) bool {
			_, ok := present[e.TabID]
			return !ok
		})
	}
	unpaused := s.cfg.IsPaused
	s.cfg.IsPaused = false
	s.resetLocked()
	n := len(s.queue)
	s.mu.Unlock()

	s.log.Info("scheduler resumed", logger.QueueLength(n))
	s.changed()
	s.Drive(ctx)
	return unpaused
}
