package loader

import (
	"context"
	"slices"
	"time"

	"github.com/dmitrymomot/tabloader/pkg/logger"
	"github.com/dmitrymomot/tabloader/pkg/tabs"
	"github.com/dmitrymomot/tabloader/pkg/tabwait"
)

type arrival struct {
	tab      tabs.Tab
	deadline time.Time
	delayed  bool
}

// HandleCreated schedules a new tab for discarding and queueing. Pinned and
// active tabs are ignored, as is everything while paused or when the
// scheduler keeps tabs discarded. It never blocks on the tab service: the
// work is done by the intake worker in arrival order.
func (s *Scheduler) HandleCreated(_ context.Context, tab tabs.Tab) {
	s.mu.Lock()
	cfg, closed := s.cfg, s.closed
	s.mu.Unlock()

	switch {
	case closed:
		return
	case tab.Pinned, tab.Active:
		return
	case cfg.IsPaused, !cfg.QueueActive():
		s.log.Debug("new tab left alone", logger.TabID(int(tab.ID)), logger.Mode(string(cfg.LoadBehavior)))
		return
	}
	if s.skip != nil && s.skip(tab) {
		s.log.Debug("new tab owned elsewhere", logger.TabID(int(tab.ID)))
		return
	}

	s.intakeMu.Lock()
	s.intake = append(s.intake, arrival{
		tab:      tab,
		deadline: time.Now().Add(cfg.DiscardingDelay),
		delayed:  cfg.DiscardingDelay > 0,
	})
	s.intakeMu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) runIntake() {
	defer s.wg.Done()

	for {
		a, ok := s.nextArrival()
		if !ok {
			select {
			case <-s.life.Done():
				return
			case <-s.wake:
			}
			continue
		}
		s.admitArrival(s.life, a)
	}
}

func (s *Scheduler) nextArrival() (arrival, bool) {
	s.intakeMu.Lock()
	defer s.intakeMu.Unlock()
	if len(s.intake) == 0 {
		return arrival{}, false
	}
	a := s.intake[0]
	s.intake = slices.Delete(s.intake, 0, 1)
	return a, true
}

// admitArrival discards the tab and appends it to the queue if there is room.
// Deadlines are absolute, so consecutive arrivals wait concurrently.
func (s *Scheduler) admitArrival(ctx context.Context, a arrival) {
	id := a.tab.ID
	log := s.log.With(logger.TabID(int(id)))

	if a.delayed {
		if !tabwait.Delay(ctx, time.Until(a.deadline)) {
			return
		}
		current, err := s.svc.Get(ctx, id)
		if err != nil {
			if !tabs.IsNotFound(err) {
				log.Warn("failed to look up tab after discarding delay", logger.Error(err))
			}
			return
		}
		if current.Active || current.Pinned {
			log.Debug("tab became active during discarding delay")
			return
		}
	}

	if err := s.svc.Discard(ctx, id); err != nil {
		log.Warn("failed to discard tab", logger.Error(err))
		return
	}
	s.metrics.TabDiscarded(ctx)

	s.mu.Lock()
	if !s.cfg.QueueActive() || s.closed {
		s.mu.Unlock()
		return
	}
	_, inFlight := s.loading[id]
	if inFlight || slices.ContainsFunc(s.queue, func(e Entry) bool { return e.TabID == id }) {
		s.mu.Unlock()
		return
	}
	if len(s.queue) >= s.cfg.QueueLimit {
		limit := s.cfg.QueueLimit
		s.mu.Unlock()
		s.metrics.TabDropped(ctx)
		log.Info("reload queue full, tab stays discarded", logger.QueueLength(limit))
		return
	}
	s.queue = append(s.queue, Entry{TabID: id, URL: a.tab.URL, Pinned: a.tab.Pinned, Discarded: true})
	n := len(s.queue)
	s.mu.Unlock()

	log.Debug("tab queued", logger.QueueLength(n))
	s.changed()
	s.Drive(ctx)
}
