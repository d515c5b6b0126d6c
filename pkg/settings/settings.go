package settings

import (
	"errors"
	"fmt"
	"time"
)

// LoadBehavior selects whether queued tabs are reloaded automatically.
type LoadBehavior string

const (
	QueueActive   LoadBehavior = "queue-active"
	StayDiscarded LoadBehavior = "stay-discarded"
)

func (b LoadBehavior) Valid() bool {
	return b == QueueActive || b == StayDiscarded
}

// AltClickMode selects what an Alt+click on a link does.
type AltClickMode string

const (
	AltClickNone      AltClickMode = "none"
	AltClickDiscarded AltClickMode = "discarded"
	AltClickQueue     AltClickMode = "queue"
)

func (m AltClickMode) Valid() bool {
	return m == AltClickNone || m == AltClickDiscarded || m == AltClickQueue
}

// Bounds.
const (
	MinMaxConcurrentTabs = 1
	MinQueueLimit        = 3
	MaxQueueLimit        = 500
	MaxDiscardingDelay   = 1000 * time.Millisecond
	MaxLoadingDelay      = 5000 * time.Millisecond
)

// Settings is a snapshot of every scheduler option.
type Settings struct {
	MaxConcurrentTabs int
	QueueLimit        int
	LoadBehavior      LoadBehavior
	IsPaused          bool
	DiscardingDelay   time.Duration
	LoadingDelay      time.Duration
	AltClickMode      AltClickMode
}

// Default returns the settings used when nothing is stored.
func Default() Settings {
	return Settings{
		MaxConcurrentTabs: 1,
		QueueLimit:        25,
		LoadBehavior:      QueueActive,
		IsPaused:          false,
		DiscardingDelay:   0,
		LoadingDelay:      0,
		AltClickMode:      AltClickNone,
	}
}

// Normalize clamps numeric values into range and replaces unknown enum
// values with their defaults.
func (s Settings) Normalize() Settings {
	d := Default()

	s.MaxConcurrentTabs = max(s.MaxConcurrentTabs, MinMaxConcurrentTabs)
	s.QueueLimit = min(max(s.QueueLimit, MinQueueLimit), MaxQueueLimit)
	s.DiscardingDelay = min(max(s.DiscardingDelay, 0), MaxDiscardingDelay)
	s.LoadingDelay = min(max(s.LoadingDelay, 0), MaxLoadingDelay)
	if !s.LoadBehavior.Valid() {
		s.LoadBehavior = d.LoadBehavior
	}
	if !s.AltClickMode.Valid() {
		s.AltClickMode = d.AltClickMode
	}
	return s
}

// Validate reports every out-of-range or unknown value.
func (s Settings) Validate() error {
	var errs []error
	for _, k := range keys {
		if err := s.check(k); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s Settings) check(k Key) error {
	switch k {
	case KeyMaxConcurrentTabs:
		if s.MaxConcurrentTabs < MinMaxConcurrentTabs {
			return rangeErr(k, "must be at least %d", MinMaxConcurrentTabs)
		}
	case KeyQueueLimit:
		if s.QueueLimit < MinQueueLimit || s.QueueLimit > MaxQueueLimit {
			return rangeErr(k, "must be between %d and %d", MinQueueLimit, MaxQueueLimit)
		}
	case KeyDiscardingDelay:
		if s.DiscardingDelay < 0 || s.DiscardingDelay > MaxDiscardingDelay {
			return rangeErr(k, "must be between 0 and %d ms", MaxDiscardingDelay.Milliseconds())
		}
	case KeyLoadingDelay:
		if s.LoadingDelay < 0 || s.LoadingDelay > MaxLoadingDelay {
			return rangeErr(k, "must be between 0 and %d ms", MaxLoadingDelay.Milliseconds())
		}
	case KeyLoadBehavior:
		if !s.LoadBehavior.Valid() {
			return fmt.Errorf("%s: %w: %q", k, ErrInvalidValue, s.LoadBehavior)
		}
	case KeyAltClickMode:
		if !s.AltClickMode.Valid() {
			return fmt.Errorf("%s: %w: %q", k, ErrInvalidValue, s.AltClickMode)
		}
	}
	return nil
}

// QueueActive reports whether queued tabs are reloaded automatically.
func (s Settings) QueueActive() bool {
	return s.LoadBehavior == QueueActive
}

// Delayed reports whether the sequential, paced reload strategy is selected.
func (s Settings) Delayed() bool {
	return s.LoadingDelay > 0
}

func rangeErr(k Key, format string, args ...any) error {
	return fmt.Errorf("%s: %w: %s", k, ErrOutOfRange, fmt.Sprintf(format, args...))
}
