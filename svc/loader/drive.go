package loader

import (
	"context"

	"github.com/dmitrymomot/tabloader/pkg/logger"
	"github.com/dmitrymomot/tabloader/pkg/tabs"
	"github.com/dmitrymomot/tabloader/pkg/tabwait"
)

// Drive advances the reload queue as far as capacity allows. It is
// idempotent: with an empty queue, full capacity, a running drain, a paused
// scheduler or tabs kept discarded it does nothing.
func (s *Scheduler) Drive(_ context.Context) {
	s.mu.Lock()
	if !s.runningLocked() || len(s.queue) == 0 {
		s.mu.Unlock()
		return
	}

	if s.cfg.Delayed() {
		started := s.guard.TryStart(s.life)
		gen := s.gen
		if started {
			s.wg.Add(1)
		}
		s.mu.Unlock()
		if started {
			go s.drainDelayed(gen)
		}
		return
	}

	batch := s.admitBurstLocked()
	gen := s.gen
	s.mu.Unlock()

	if len(batch) > 0 {
		s.changed()
	}
	s.issue(gen, batch)
}

// admitBurstLocked pops and admits tabs until capacity is reached.
func (s *Scheduler) admitBurstLocked() []Entry {
	if !s.runningLocked() || s.cfg.Delayed() {
		return nil
	}
	var batch []Entry
	for len(s.loading) < s.cfg.MaxConcurrentTabs {
		e, ok := s.popLocked()
		if !ok {
			break
		}
		s.admitLocked(e)
		batch = append(batch, e)
	}
	s.wg.Add(len(batch))
	return batch
}

// issue reloads tabs returned by admitBurstLocked without blocking the
// caller. gen is the generation the batch was admitted under.
func (s *Scheduler) issue(gen uint64, batch []Entry) {
	for _, e := range batch {
		go s.reloadBurst(gen, e)
	}
}

// reloadBurst reloads one admitted tab. The slot is freed by the tab's
// completion, or here once the wait times out.
func (s *Scheduler) reloadBurst(gen uint64, e Entry) {
	defer s.wg.Done()

	ctx := s.life
	log := s.log.With(logger.TabID(int(e.TabID)))

	wait := s.waiter.Watch(e.TabID)
	if err := s.svc.Reload(ctx, e.TabID); err != nil {
		wait.Stop()
		if s.reloadFailed(gen, e, err) {
			s.Drive(ctx)
		}
		return
	}
	s.metrics.ReloadIssued(ctx)
	log.Debug("tab reloading")

	if wait.Wait(ctx, s.waitTimeout) != tabwait.TimedOut {
		return
	}

	s.mu.Lock()
	released := s.gen == gen && s.releaseLocked(e.TabID)
	var batch []Entry
	if released {
		batch = s.admitBurstLocked()
	}
	next := s.gen
	s.mu.Unlock()

	if !released {
		return
	}
	log.Info("tab did not finish loading in time", logger.Duration(s.waitTimeout))
	s.changed()
	s.issue(next, batch)
}

// reloadFailed frees the slot of a tab whose reload call failed. A tab the
// browser refused for good is dropped and the caller should keep driving.
// Any other failure puts the tab back at the head of the queue and driving
// stops until the next event or reconnect. It reports whether to drive on.
func (s *Scheduler) reloadFailed(gen uint64, e Entry, err error) bool {
	ctx := s.life
	s.metrics.ReloadFailed(ctx)
	permanent := tabs.IsPermanent(err)

	s.mu.Lock()
	released := s.gen == gen && s.releaseLocked(e.TabID)
	if released && !permanent {
		s.requeueLocked(e)
	}
	s.mu.Unlock()

	log := s.log.With(logger.TabID(int(e.TabID)), logger.Error(err))
	if permanent {
		log.Warn("failed to reload tab, dropped")
	} else {
		log.Warn("failed to reload tab, will retry")
	}
	if released {
		s.changed()
	}
	return released && permanent
}

// drainDelayed reloads one tab at a time until the queue is empty.
func (s *Scheduler) drainDelayed(gen uint64) {
	defer s.wg.Done()
	ctx := s.life

	for {
		s.mu.Lock()
		if s.gen != gen {
			s.mu.Unlock()
			return
		}
		if !s.runningLocked() || !s.cfg.Delayed() || len(s.queue) == 0 {
			switchedToBurst := s.runningLocked() && !s.cfg.Delayed() && len(s.queue) > 0
			s.guard.Finish(ctx)
			s.mu.Unlock()
			s.changed()
			if switchedToBurst {
				s.Drive(ctx)
			}
			return
		}

		e, _ := s.popLocked()
		s.admitLocked(e)
		wait := s.waiter.Watch(e.TabID)
		timeout := s.waitTimeout
		s.mu.Unlock()
		s.changed()

		log := s.log.With(logger.TabID(int(e.TabID)))
		if err := s.svc.Reload(ctx, e.TabID); err != nil {
			wait.Stop()
			if s.reloadFailed(gen, e, err) {
				continue
			}
			s.finishDrain(gen)
			return
		}
		s.metrics.ReloadIssued(ctx)

		outcome := wait.Wait(ctx, timeout)
		if outcome == tabwait.TimedOut {
			log.Info("tab did not finish loading in time", logger.Duration(timeout))
		}
		s.release(e.TabID)
		if outcome == tabwait.Canceled {
			return
		}

		s.mu.Lock()
		more := s.gen == gen && len(s.queue) > 0
		delay := s.cfg.LoadingDelay
		s.mu.Unlock()
		if more && !tabwait.Delay(ctx, delay) {
			return
		}
	}
}

// finishDrain returns the guard to Idle unless the drain was superseded.
func (s *Scheduler) finishDrain(gen uint64) {
	s.mu.Lock()
	if s.gen == gen {
		s.guard.Finish(s.life)
	}
	s.mu.Unlock()
	s.changed()
}

func (s *Scheduler) release(id tabs.ID) {
	s.mu.Lock()
	released := s.releaseLocked(id)
	s.mu.Unlock()
	if released {
		s.changed()
	}
}
