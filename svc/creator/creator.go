package creator

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/dmitrymomot/tabloader/pkg/drain"
	"github.com/dmitrymomot/tabloader/pkg/logger"
	"github.com/dmitrymomot/tabloader/pkg/tabs"
	"github.com/dmitrymomot/tabloader/pkg/tabwait"
)

// Entry is a link waiting to be opened.
type Entry struct {
	URL         string   `json:"url"`
	OpenerTabID *tabs.ID `json:"opener_tab_id,omitempty"`
}

// Scheduler owns the creation queue.
type Scheduler struct {
	svc         tabs.Service
	log         *slog.Logger
	metrics     Metrics
	waiter      *tabwait.Registry
	ownWaiter   bool
	waitTimeout time.Duration
	grace       time.Duration
	paused      func() bool
	onChange    func()

	life context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	mu    sync.Mutex
	queue []Entry
	// owned holds tabs created here whose wait has not ended yet.
	owned map[tabs.ID]struct{}
	// creating is the entry passed to the Create call in progress, if any.
	creating *Entry
	guard    *drain.Guard
	gen      uint64
	closed   bool
}

// New creates an idle scheduler. Close releases it.
func New(svc tabs.Service, opts ...Option) *Scheduler {
	s := &Scheduler{
		svc:         svc,
		metrics:     noopMetrics{},
		waiter:      tabwait.NewRegistry(),
		ownWaiter:   true,
		waitTimeout: DefaultWaitTimeout,
		grace:       DefaultGrace,
		owned:       make(map[tabs.ID]struct{}),
		guard:       drain.New(nil),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logger.ForComponent(s.log, "creator")
	s.life, s.stop = context.WithCancel(context.Background())
	return s
}

// Close stops the drain loop and waits for it to exit.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.stop()
	s.wg.Wait()
}

// Enqueue appends a link and starts draining if the scheduler is idle.
func (s *Scheduler) Enqueue(ctx context.Context, url string, opener *tabs.ID) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, Entry{URL: url, OpenerTabID: opener})
	n := len(s.queue)
	s.mu.Unlock()

	s.log.Debug("link queued for creation", logger.URL(url), logger.QueueLength(n))
	s.changed()
	s.Drive(ctx)
}

// Drive starts the drain loop unless it is running, paused or has nothing to do.
func (s *Scheduler) Drive(_ context.Context) {
	if s.isPaused() {
		return
	}

	s.mu.Lock()
	if s.closed || len(s.queue) == 0 || !s.guard.TryStart(s.life) {
		s.mu.Unlock()
		return
	}
	gen := s.gen
	s.wg.Add(1)
	s.mu.Unlock()

	s.changed()
	go s.drain(gen)
}

// Resume abandons a possibly stuck drain loop and starts a fresh one.
// Queued links are kept.
func (s *Scheduler) Resume(ctx context.Context) {
	s.mu.Lock()
	s.resetLocked()
	s.mu.Unlock()

	s.changed()
	s.Drive(ctx)
}

// Clear drops every queued link and abandons the running drain loop.
func (s *Scheduler) Clear(context.Context) {
	s.mu.Lock()
	s.queue = nil
	s.resetLocked()
	s.mu.Unlock()

	s.changed()
}

// Len returns the number of queued links.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Pending returns the queued URLs in order.
func (s *Scheduler) Pending() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	urls := make([]string, len(s.queue))
	for i, e := range s.queue {
		urls[i] = e.URL
	}
	return urls
}

// Queue returns a copy of the queue.
func (s *Scheduler) Queue() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.queue)
}

// Draining reports whether the drain loop is marked as running.
func (s *Scheduler) Draining() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.guard.Draining()
}

// Owns reports whether tab was opened by this scheduler. A non-active tab
// whose opener matches the Create call in progress counts as owned, since
// the browser announces a new tab before Create returns.
func (s *Scheduler) Owns(tab tabs.Tab) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.owned[tab.ID]; ok {
		return true
	}
	c := s.creating
	if c == nil || tab.Active {
		return false
	}
	if !sameOpener(c.OpenerTabID, tab.OpenerTabID) {
		return false
	}
	if tab.URL != "" && tab.URL != c.URL {
		return false
	}
	s.owned[tab.ID] = struct{}{}
	return true
}

// HandleEvent feeds the scheduler's own wait registry. It is a no-op when
// the registry is shared through WithWaiter.
func (s *Scheduler) HandleEvent(ctx context.Context, e tabs.Event) {
	if s.ownWaiter {
		s.waiter.HandleEvent(ctx, e)
	}
}

func (s *Scheduler) drain(gen uint64) {
	defer s.wg.Done()
	ctx := s.life

	for {
		paused := s.isPaused()

		s.mu.Lock()
		if s.gen != gen {
			s.mu.Unlock()
			return
		}
		if s.closed || paused || len(s.queue) == 0 {
			s.guard.Finish(ctx)
			s.mu.Unlock()
			s.changed()
			return
		}
		head := s.queue[0]
		s.creating = &head
		s.mu.Unlock()

		log := s.log.With(logger.URL(head.URL))
		tab, err := s.svc.Create(ctx, tabs.CreateOptions{URL: head.URL, OpenerTabID: head.OpenerTabID})

		current, retry := s.created(gen, tab, err)
		if !current {
			return
		}
		s.changed()

		if err != nil {
			s.metrics.CreateFailed(ctx)
			if retry {
				log.Warn("failed to create tab, will retry", logger.Error(err))
				return
			}
			log.Warn("failed to create tab, link dropped", logger.Error(err))
			continue
		}
		s.metrics.TabCreated(ctx)
		log.Debug("tab created", logger.TabID(int(tab.ID)))

		outcome := s.await(ctx, tab.ID)

		s.mu.Lock()
		delete(s.owned, tab.ID)
		s.mu.Unlock()

		if outcome == tabwait.TimedOut {
			log.Info("created tab did not finish loading in time", logger.TabID(int(tab.ID)))
		}
		if outcome == tabwait.Canceled || !tabwait.Delay(ctx, s.grace) {
			return
		}
	}
}

// created settles the head entry after a Create call. A link the browser
// refused for good is dropped. On any other failure the link stays at the
// head and the drain stops until the next Drive. current is false when the
// queue was reset during the call; the new tab is then forgotten.
func (s *Scheduler) created(gen uint64, tab tabs.Tab, err error) (current, retry bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current = s.gen == gen
	retry = err != nil && !tabs.IsPermanent(err)
	switch {
	case !current:
		if err == nil {
			delete(s.owned, tab.ID)
		}
	case retry:
		s.creating = nil
		s.guard.Finish(s.life)
	default:
		s.creating = nil
		s.queue = slices.Delete(s.queue, 0, 1)
		if err == nil {
			s.owned[tab.ID] = struct{}{}
		}
	}
	return current, retry
}

// await waits until the tab finished loading or was closed. The wait is
// registered after Create returned, so the tab is looked up once to catch
// a load that already completed.
func (s *Scheduler) await(ctx context.Context, id tabs.ID) tabwait.Outcome {
	w := s.waiter.Watch(id)

	current, err := s.svc.Get(ctx, id)
	switch {
	case tabs.IsNotFound(err):
		w.Stop()
		return tabwait.Removed
	case err == nil && current.Status == tabs.StatusComplete:
		w.Stop()
		return tabwait.Completed
	}
	return w.Wait(ctx, s.waitTimeout)
}

func (s *Scheduler) resetLocked() {
	s.gen++
	s.creating = nil
	s.guard.Recover(s.life)
}

func (s *Scheduler) isPaused() bool {
	return s.paused != nil && s.paused()
}

func (s *Scheduler) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}

func sameOpener(a, b *tabs.ID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
