package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/dmitrymomot/tabloader/pkg/logger"
	"github.com/dmitrymomot/tabloader/pkg/settings"
	"github.com/dmitrymomot/tabloader/pkg/tabs"
	"github.com/dmitrymomot/tabloader/svc/capture"
	"github.com/dmitrymomot/tabloader/svc/creator"
	"github.com/dmitrymomot/tabloader/svc/loader"
	"github.com/dmitrymomot/tabloader/svc/presenter"
)

// Actions sent by the extension for toolbar and context menu clicks.
const (
	ActionTogglePause   = "togglePause"
	ActionResume        = "resume"
	ActionKeepDiscarded = "keepDiscarded"
	ActionLoadNext      = "loadNext"
	ActionEmptyQueue    = "emptyQueue"
)

// Status is a consistent view of both schedulers.
type Status struct {
	Settings         settings.Settings      `json:"settings"`
	Loader           loader.Snapshot        `json:"loader"`
	CreationQueue    []creator.Entry        `json:"creation_queue"`
	CreationDraining bool                   `json:"creation_draining"`
	Presentation     presenter.Presentation `json:"presentation"`
}

func (e *Engine) Status() Status {
	return Status{
		Settings:         e.loader.Settings(),
		Loader:           e.loader.Snapshot(),
		CreationQueue:    e.creator.Queue(),
		CreationDraining: e.creator.Draining(),
		Presentation:     e.presenter.Current(),
	}
}

// Queue returns the reload queue in order.
func (e *Engine) Queue() []loader.Entry {
	return e.loader.Queue()
}

// UpdateSettings validates values, applies them and writes them to the
// store. Invalid values leave everything unchanged. When only the write
// fails the change stays applied and the error wraps ErrNotPersisted.
func (e *Engine) UpdateSettings(ctx context.Context, values map[settings.Key]string) (settings.Settings, error) {
	return e.update(ctx, func(settings.Settings) map[settings.Key]string { return values })
}

// update derives the values to write from the settings in effect, under
// the engine lock.
func (e *Engine) update(ctx context.Context, values func(current settings.Settings) map[settings.Key]string) (settings.Settings, error) {
	e.mu.Lock()
	current := e.loader.Settings()
	next, written, err := settings.Merge(current, values(current))
	if err != nil {
		e.mu.Unlock()
		return current, err
	}
	changed := e.loader.Apply(ctx, next)
	e.mu.Unlock()

	e.afterChange(ctx, changed)
	return e.loader.Settings(), e.persist(ctx, written)
}

func (e *Engine) persist(ctx context.Context, values map[settings.Key]string) error {
	if len(values) == 0 {
		return nil
	}
	if err := e.store.Update(ctx, values); err != nil {
		e.log.Error("failed to persist settings", logger.Error(err))
		return errors.Join(ErrNotPersisted, err)
	}
	return nil
}

// SetPaused pauses or unpauses both schedulers and persists the choice.
func (e *Engine) SetPaused(ctx context.Context, paused bool) error {
	_, err := e.UpdateSettings(ctx, map[settings.Key]string{
		settings.KeyIsPaused: strconv.FormatBool(paused),
	})
	return err
}

// TogglePause flips the paused state, persists it and returns the new value.
// A failed write is logged and reported, the new state is kept.
func (e *Engine) TogglePause(ctx context.Context) (bool, error) {
	cfg, err := e.update(ctx, func(current settings.Settings) map[settings.Key]string {
		return map[settings.Key]string{settings.KeyIsPaused: strconv.FormatBool(!current.IsPaused)}
	})
	return cfg.IsPaused, err
}

// KeepDiscarded switches to stay-discarded, abandoning the reload queue.
func (e *Engine) KeepDiscarded(ctx context.Context) error {
	_, err := e.UpdateSettings(ctx, map[settings.Key]string{
		settings.KeyLoadBehavior: string(settings.StayDiscarded),
	})
	return err
}

// LoadNext skips the head of the reload queue. It reports whether a tab
// was skipped.
func (e *Engine) LoadNext(ctx context.Context) bool {
	return e.loader.SkipNext(ctx)
}

// EmptyQueue clears the reload queue with its in-flight set, and the
// creation queue.
func (e *Engine) EmptyQueue(ctx context.Context) {
	e.loader.Empty(ctx)
	e.creator.Clear(ctx)
	e.log.Info("queues emptied")
}

// Resume recovers both schedulers from a stuck state and unpauses them.
// A pause that was lifted is persisted.
func (e *Engine) Resume(ctx context.Context) error {
	e.mu.Lock()
	unpaused := e.loader.Resume(ctx)
	e.mu.Unlock()

	e.creator.Resume(ctx)
	e.refresh()
	if !unpaused {
		return nil
	}
	e.pushSettings(ctx)
	return e.persist(ctx, map[settings.Key]string{settings.KeyIsPaused: "false"})
}

// HandleMessage executes a message sent by the extension: a toolbar or menu
// action, or a link captured by the content script. Errors are logged and
// returned.
func (e *Engine) HandleMessage(ctx context.Context, action, url string, sender *tabs.ID) error {
	var err error
	switch action {
	case ActionTogglePause:
		_, err = e.TogglePause(ctx)
	case ActionResume:
		err = e.Resume(ctx)
	case ActionKeepDiscarded:
		err = e.KeepDiscarded(ctx)
	case ActionLoadNext:
		e.LoadNext(ctx)
	case ActionEmptyQueue:
		e.EmptyQueue(ctx)
	case capture.ActionCreateDiscardedTab:
		_, err = e.capture.Handle(ctx, capture.Message{Action: action, URL: url}, sender)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	if err != nil {
		e.log.Warn("message not handled", logger.MessageType(action), logger.Error(err))
	}
	return err
}
