// Package filestore persists settings in a YAML file and watches it for
// edits made outside the process. Edits are picked up from file system
// notifications; when those are unavailable the file is polled.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/tabloader/pkg/logger"
	"github.com/dmitrymomot/tabloader/pkg/settings"
)

var ErrReadFile = errors.New("filestore: read settings file")

// settle is how long the file must stay quiet after a notification before
// it is read, so a truncate followed by a write is seen as one edit.
const settle = 50 * time.Millisecond

// Store is a settings.Store backed by a YAML file.
type Store struct {
	path     string
	interval time.Duration
	log      *slog.Logger

	mu   sync.Mutex
	feed *settings.Feed
	seen fileStamp

	watching bool
	stop     chan struct{}
	done    chan struct{}
	closed  bool
}

var _ settings.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithPollInterval sets how often the file is checked for external edits
// when file system notifications cannot be used.
func WithPollInterval(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// New creates a store for path. The file is created on the first Update.
func New(path string, opts ...Option) *Store {
	s := &Store{
		path:     path,
		interval: 2 * time.Second,
		feed:     settings.NewFeed(),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logger.ForComponent(s.log, "settings.filestore")
	return s
}

func (s *Store) Load(context.Context) (settings.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *Store) Update(ctx context.Context, values map[settings.Key]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return settings.ErrStoreClosed
	}

	current, err := s.read()
	if errors.Is(err, ErrReadFile) {
		return err
	}
	next, _, err := settings.Merge(current, values)
	if err != nil {
		return err
	}
	if err := s.write(next); err != nil {
		return err
	}
	s.seen = stampOf(s.path)
	s.feed.Publish(ctx, next)
	return nil
}

// Watch starts watching the file on first use.
func (s *Store) Watch(ctx context.Context) (<-chan settings.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, settings.ErrStoreClosed
	}
	ch := s.feed.Watch(ctx)
	if !s.watching {
		s.watching = true
		s.seen = stampOf(s.path)
		go s.run()
	}
	return ch, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	watching := s.watching
	close(s.stop)
	s.mu.Unlock()

	if watching {
		<-s.done
	}
	return s.feed.Close()
}

func (s *Store) run() {
	defer close(s.done)

	w, err := s.notifier()
	if err != nil {
		s.log.Warn("file notifications unavailable, polling settings file",
			logger.Error(err), logger.Duration(s.interval))
		s.poll()
		return
	}
	defer w.Close()
	s.listen(w)
}

// notifier watches the directory holding the file, since an atomic replace
// swaps the file itself out from under a file watch.
func (s *Store) notifier() (*fsnotify.Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("filestore: new watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(s.path)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("filestore: watch dir: %w", err)
	}
	return w, nil
}

func (s *Store) listen(w *fsnotify.Watcher) {
	target := filepath.Clean(s.path)
	quiet := time.NewTimer(settle)
	quiet.Stop()
	defer quiet.Stop()

	for {
		select {
		case <-s.stop:
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) {
				continue
			}
			quiet.Reset(settle)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			s.log.Warn("settings file watcher error", logger.Error(err))
		case <-quiet.C:
			s.check()
		}
	}
}

func (s *Store) poll() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.check()
		}
	}
}

func (s *Store) check() {
	s.mu.Lock()
	defer s.mu.Unlock()

	stamp := stampOf(s.path)
	if stamp == s.seen {
		return
	}
	s.seen = stamp

	current, err := s.read()
	if err != nil {
		s.log.Warn("settings file changed but could not be read cleanly", logger.Error(err))
	}
	s.feed.Publish(context.Background(), current)
}

// read must be called with s.mu held.
func (s *Store) read() (settings.Settings, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return settings.Default(), nil
	}
	if err != nil {
		return settings.Default(), errors.Join(ErrReadFile, err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return settings.Default(), errors.Join(settings.ErrInvalidValue, err)
	}

	raw := make(map[string]string, len(doc))
	for k, v := range doc {
		if v != nil {
			raw[k] = fmt.Sprint(v)
		}
	}
	return settings.Parse(raw)
}

// write must be called with s.mu held. It replaces the file atomically.
func (s *Store) write(v settings.Settings) error {
	data, err := yaml.Marshal(fileDocument{
		MaxConcurrentTabs: v.MaxConcurrentTabs,
		QueueLimit:        v.QueueLimit,
		LoadBehavior:      string(v.LoadBehavior),
		IsPaused:          v.IsPaused,
		DiscardingDelay:   v.DiscardingDelay.Milliseconds(),
		LoadingDelay:      v.LoadingDelay.Milliseconds(),
		AltClickMode:      string(v.AltClickMode),
	})
	if err != nil {
		return fmt.Errorf("filestore: encode: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("filestore: create dir: %w", err)
		}
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".settings-*.yaml")
	if err != nil {
		return fmt.Errorf("filestore: create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("filestore: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("filestore: write: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("filestore: replace: %w", err)
	}
	return nil
}

type fileDocument struct {
	MaxConcurrentTabs int    `yaml:"maxConcurrentTabs"`
	QueueLimit        int    `yaml:"queueLimit"`
	LoadBehavior      string `yaml:"loadBehavior"`
	IsPaused          bool   `yaml:"isPaused"`
	DiscardingDelay   int64  `yaml:"discardingDelay"`
	LoadingDelay      int64  `yaml:"loadingDelay"`
	AltClickMode      string `yaml:"altClickMode"`
}

type fileStamp struct {
	modTime time.Time
	size    int64
}

func stampOf(path string) fileStamp {
	info, err := os.Stat(path)
	if err != nil {
		return fileStamp{}
	}
	return fileStamp{modTime: info.ModTime(), size: info.Size()}
}
