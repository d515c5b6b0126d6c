package loader

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/dmitrymomot/tabloader/pkg/drain"
	"github.com/dmitrymomot/tabloader/pkg/logger"
	"github.com/dmitrymomot/tabloader/pkg/settings"
	"github.com/dmitrymomot/tabloader/pkg/tabs"
	"github.com/dmitrymomot/tabloader/pkg/tabwait"
)

// Entry is a queued tab as it looked when it was enqueued.
type Entry struct {
	TabID     tabs.ID `json:"tab_id"`
	URL       string  `json:"url"`
	Pinned    bool    `json:"pinned"`
	Discarded bool    `json:"discarded"`
}

// Snapshot is a consistent view of the scheduler counters.
type Snapshot struct {
	QueueLength int                   `json:"queue_length"`
	ActiveLoads int                   `json:"active_loads"`
	Loading     []tabs.ID             `json:"loading"`
	Draining    bool                  `json:"draining"`
	Paused      bool                  `json:"paused"`
	Behavior    settings.LoadBehavior `json:"behavior"`
}

// Scheduler owns the reload queue and the in-flight set.
type Scheduler struct {
	svc         tabs.Service
	log         *slog.Logger
	metrics     Metrics
	waiter      *tabwait.Registry
	ownWaiter   bool
	waitTimeout time.Duration
	onChange    func()
	skip        func(tabs.Tab) bool

	life context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	mu      sync.Mutex
	cfg     settings.Settings
	queue   []Entry
	loading map[tabs.ID]struct{}
	guard   *drain.Guard
	// gen changes whenever in-flight work is abandoned; a drain started under
	// an older generation exits without touching the guard.
	gen    uint64
	closed bool

	intakeMu sync.Mutex
	intake   []arrival
	wake     chan struct{}
}

// New creates a scheduler and starts its intake worker. Close releases it.
func New(svc tabs.Service, opts ...Option) *Scheduler {
	s := &Scheduler{
		svc:         svc,
		metrics:     noopMetrics{},
		waiter:      tabwait.NewRegistry(),
		ownWaiter:   true,
		waitTimeout: DefaultWaitTimeout,
		cfg:         settings.Default(),
		loading:     make(map[tabs.ID]struct{}),
		guard:       drain.New(nil),
		wake:        make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logger.ForComponent(s.log, "loader")
	s.life, s.stop = context.WithCancel(context.Background())

	s.wg.Add(1)
	go s.runIntake()
	return s
}

// Close stops background work and waits for it to exit.
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

// Settings returns the configuration in effect.
func (s *Scheduler) Settings() settings.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Queue returns a copy of the reload queue in order.
func (s *Scheduler) Queue() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.queue)
}

// Snapshot returns the counters under one lock hold.
func (s *Scheduler) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	loading := make([]tabs.ID, 0, len(s.loading))
	for id := range s.loading {
		loading = append(loading, id)
	}
	slices.Sort(loading)

	return Snapshot{
		QueueLength: len(s.queue),
		ActiveLoads: len(s.loading),
		Loading:     loading,
		Draining:    s.guard.Draining(),
		Paused:      s.cfg.IsPaused,
		Behavior:    s.cfg.LoadBehavior,
	}
}

// admitLocked moves e into the in-flight set.
func (s *Scheduler) admitLocked(e Entry) {
	s.loading[e.TabID] = struct{}{}
	s.metrics.ActiveLoadsChanged(s.life, 1)
}

// releaseLocked removes id from the in-flight set. It reports whether id was in flight.
func (s *Scheduler) releaseLocked(id tabs.ID) bool {
	if _, ok := s.loading[id]; !ok {
		return false
	}
	delete(s.loading, id)
	s.metrics.ActiveLoadsChanged(s.life, -1)
	return true
}

// resetLocked abandons all in-flight work and any running drain.
func (s *Scheduler) resetLocked() {
	if n := len(s.loading); n > 0 {
		s.metrics.ActiveLoadsChanged(s.life, -n)
	}
	clear(s.loading)
	s.gen++
	s.guard.Recover(s.life)
}

// removeQueuedLocked drops id from the queue and reports whether it was there.
func (s *Scheduler) removeQueuedLocked(id tabs.ID) bool {
	i := slices.IndexFunc(s.queue, func(e Entry) bool { return e.TabID == id })
	if i < 0 {
		return false
	}
	s.queue = slices.Delete(s.queue, i, i+1)
	return true
}

// requeueLocked puts e back at the head of the queue. The tail is trimmed
// when that pushes the queue over its limit.
func (s *Scheduler) requeueLocked(e Entry) {
	s.removeQueuedLocked(e.TabID)
	s.queue = slices.Insert(s.queue, 0, e)
	if len(s.queue) > s.cfg.QueueLimit {
		s.queue = s.queue[:s.cfg.QueueLimit]
		s.metrics.TabDropped(s.life)
	}
}

func (s *Scheduler) popLocked() (Entry, bool) {
	if len(s.queue) == 0 {
		return Entry{}, false
	}
	e := s.queue[0]
	s.queue = slices.Delete(s.queue, 0, 1)
	return e, true
}

// runningLocked reports whether new reloads may be started.
func (s *Scheduler) runningLocked() bool {
	return !s.closed && !s.cfg.IsPaused && s.cfg.QueueActive()
}

func (s *Scheduler) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}
