package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Key names a stored option.
type Key string

const (
	KeyMaxConcurrentTabs Key = "maxConcurrentTabs"
	KeyQueueLimit        Key = "queueLimit"
	KeyLoadBehavior      Key = "loadBehavior"
	KeyIsPaused          Key = "isPaused"
	KeyDiscardingDelay   Key = "discardingDelay"
	KeyLoadingDelay      Key = "loadingDelay"
	KeyAltClickMode      Key = "altClickMode"
)

var keys = []Key{
	KeyMaxConcurrentTabs,
	KeyQueueLimit,
	KeyLoadBehavior,
	KeyIsPaused,
	KeyDiscardingDelay,
	KeyLoadingDelay,
	KeyAltClickMode,
}

// Keys returns every known key in a stable order.
func Keys() []Key {
	return append([]Key(nil), keys...)
}

func (k Key) Valid() bool {
	for _, known := range keys {
		if k == known {
			return true
		}
	}
	return false
}

// Get returns the stored string form of a single option.
func (s Settings) Get(k Key) string {
	switch k {
	case KeyMaxConcurrentTabs:
		return strconv.Itoa(s.MaxConcurrentTabs)
	case KeyQueueLimit:
		return strconv.Itoa(s.QueueLimit)
	case KeyLoadBehavior:
		return string(s.LoadBehavior)
	case KeyIsPaused:
		return strconv.FormatBool(s.IsPaused)
	case KeyDiscardingDelay:
		return strconv.FormatInt(s.DiscardingDelay.Milliseconds(), 10)
	case KeyLoadingDelay:
		return strconv.FormatInt(s.LoadingDelay.Milliseconds(), 10)
	case KeyAltClickMode:
		return string(s.AltClickMode)
	}
	return ""
}

// Raw returns the flat string form persisted by stores. Delays are milliseconds.
func (s Settings) Raw() map[string]string {
	raw := make(map[string]string, len(keys))
	for _, k := range keys {
		raw[string(k)] = s.Get(k)
	}
	return raw
}

// Apply parses value and assigns it to the option named by k, rejecting
// malformed and out-of-range input. s is unchanged on error.
func (s *Settings) Apply(k Key, value string) error {
	next := *s
	if err := next.set(k, value); err != nil {
		return err
	}
	if err := next.check(k); err != nil {
		return err
	}
	*s = next
	return nil
}

// Parse builds Settings from the stored form. Missing keys take their
// defaults, malformed values keep their defaults, and numbers are clamped.
// The returned Settings is always usable; the error lists what was ignored.
func Parse(raw map[string]string) (Settings, error) {
	s := Default()
	var errs []error
	for _, k := range keys {
		v, ok := raw[string(k)]
		if !ok {
			continue
		}
		if err := s.set(k, v); err != nil {
			errs = append(errs, err)
		}
	}
	return s.Normalize(), errors.Join(errs...)
}

// Diff lists the keys whose values differ between old and next.
func Diff(old, next Settings) []Key {
	var changed []Key
	for _, k := range keys {
		if old.Get(k) != next.Get(k) {
			changed = append(changed, k)
		}
	}
	return changed
}

// Contains reports whether k is in changed.
func Contains(changed []Key, k Key) bool {
	for _, c := range changed {
		if c == k {
			return true
		}
	}
	return false
}

func (s *Settings) set(k Key, value string) error {
	value = strings.TrimSpace(value)
	invalid := func(err error) error {
		if err != nil {
			return fmt.Errorf("%s: %w: %q", k, ErrInvalidValue, value)
		}
		return nil
	}

	switch k {
	case KeyMaxConcurrentTabs:
		n, err := strconv.Atoi(value)
		if err == nil {
			s.MaxConcurrentTabs = n
		}
		return invalid(err)
	case KeyQueueLimit:
		n, err := strconv.Atoi(value)
		if err == nil {
			s.QueueLimit = n
		}
		return invalid(err)
	case KeyLoadBehavior:
		b := LoadBehavior(value)
		if !b.Valid() {
			return invalid(ErrInvalidValue)
		}
		s.LoadBehavior = b
	case KeyIsPaused:
		b, err := strconv.ParseBool(value)
		if err == nil {
			s.IsPaused = b
		}
		return invalid(err)
	case KeyDiscardingDelay:
		d, err := parseMillis(value)
		if err == nil {
			s.DiscardingDelay = d
		}
		return invalid(err)
	case KeyLoadingDelay:
		d, err := parseMillis(value)
		if err == nil {
			s.LoadingDelay = d
		}
		return invalid(err)
	case KeyAltClickMode:
		m := AltClickMode(value)
		if !m.Valid() {
			return invalid(ErrInvalidValue)
		}
		s.AltClickMode = m
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKey, k)
	}
	return nil
}

func parseMillis(v string) (time.Duration, error) {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Millisecond, nil
}

// MarshalJSON encodes the settings with their stored key names, delays in
// milliseconds.
func (s Settings) MarshalJSON() ([]byte, error) {
	return json.Marshal(document{
		MaxConcurrentTabs: s.MaxConcurrentTabs,
		QueueLimit:        s.QueueLimit,
		LoadBehavior:      s.LoadBehavior,
		IsPaused:          s.IsPaused,
		DiscardingDelay:   s.DiscardingDelay.Milliseconds(),
		LoadingDelay:      s.LoadingDelay.Milliseconds(),
		AltClickMode:      s.AltClickMode,
	})
}

// UnmarshalJSON decodes the form produced by MarshalJSON. Absent fields keep
// their current values.
func (s *Settings) UnmarshalJSON(data []byte) error {
	d := document{
		MaxConcurrentTabs: s.MaxConcurrentTabs,
		QueueLimit:        s.QueueLimit,
		LoadBehavior:      s.LoadBehavior,
		IsPaused:          s.IsPaused,
		DiscardingDelay:   s.DiscardingDelay.Milliseconds(),
		LoadingDelay:      s.LoadingDelay.Milliseconds(),
		AltClickMode:      s.AltClickMode,
	}
	if err := json.Unmarshal(data, &d); err != nil {
		return errors.Join(ErrInvalidValue, err)
	}
	*s = Settings{
		MaxConcurrentTabs: d.MaxConcurrentTabs,
		QueueLimit:        d.QueueLimit,
		LoadBehavior:      d.LoadBehavior,
		IsPaused:          d.IsPaused,
		DiscardingDelay:   time.Duration(d.DiscardingDelay) * time.Millisecond,
		LoadingDelay:      time.Duration(d.LoadingDelay) * time.Millisecond,
		AltClickMode:      d.AltClickMode,
	}
	return nil
}

type document struct {
	MaxConcurrentTabs int          `json:"maxConcurrentTabs"`
	QueueLimit        int          `json:"queueLimit"`
	LoadBehavior      LoadBehavior `json:"loadBehavior"`
	IsPaused          bool         `json:"isPaused"`
	DiscardingDelay   int64        `json:"discardingDelay"`
	LoadingDelay      int64        `json:"loadingDelay"`
	AltClickMode      AltClickMode `json:"altClickMode"`
}
