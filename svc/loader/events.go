package loader

import (
	"context"

	"github.com/dmitrymomot/tabloader/pkg/logger"
	"github.com/dmitrymomot/tabloader/pkg/tabs"
)

// HandleEvent dispatches a tab lifecycle event, so the scheduler can be
// registered on a tabs.Router directly.
func (s *Scheduler) HandleEvent(ctx context.Context, e tabs.Event) {
	switch e.Type {
	case tabs.EventCreated:
		if e.Tab != nil {
			s.HandleCreated(ctx, *e.Tab)
		}
	case tabs.EventUpdated:
		s.HandleUpdated(ctx, e.TabID, e.Status)
	case tabs.EventActivated:
		s.HandleActivated(ctx, e.TabID)
	case tabs.EventRemoved:
		s.HandleRemoved(ctx, e.TabID)
	}
}

// HandleUpdated frees the slot of an in-flight tab that finished loading.
// In burst mode the next tab is admitted in the same critical section, so
// the in-flight count does not drop in between.
func (s *Scheduler) HandleUpdated(ctx context.Context, id tabs.ID, status tabs.Status) {
	if s.ownWaiter {
		s.waiter.HandleEvent(ctx, tabs.Updated(id, status))
	}
	if status != tabs.StatusComplete {
		return
	}

	s.mu.Lock()
	if !s.releaseLocked(id) {
		s.mu.Unlock()
		return
	}
	batch := s.admitBurstLocked()
	gen := s.gen
	delayed := s.cfg.Delayed()
	active := len(s.loading)
	s.mu.Unlock()

	s.log.Debug("tab finished loading", logger.TabID(int(id)), logger.ActiveLoads(active))
	s.changed()
	s.issue(gen, batch)
	if delayed {
		s.Drive(ctx)
	}
}

// HandleActivated drops a queued tab without reloading it, since the
// browser loads it on activation, and frees the slot of an in-flight one.
func (s *Scheduler) HandleActivated(ctx context.Context, id tabs.ID) {
	s.leave(ctx, id, "tab activated")
}

// HandleRemoved forgets a closed tab.
func (s *Scheduler) HandleRemoved(ctx context.Context, id tabs.ID) {
	if s.ownWaiter {
		s.waiter.HandleEvent(ctx, tabs.Removed(id))
	}
	s.leave(ctx, id, "tab closed")
}

func (s *Scheduler) leave(ctx context.Context, id tabs.ID, msg string) {
	s.mu.Lock()
	dequeued := s.removeQueuedLocked(id)
	released := s.releaseLocked(id)
	var batch []Entry
	if released {
		batch = s.admitBurstLocked()
	}
	gen := s.gen
	s.mu.Unlock()

	if !dequeued && !released {
		return
	}
	s.log.Debug(msg, logger.TabID(int(id)))
	s.changed()
	s.issue(gen, batch)
	if released {
		s.Drive(ctx)
	}
}
