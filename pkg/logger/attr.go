package logger

import (
	"log/slog"
	"strconv"
	"time"
)

// Group creates a slog group attribute from the provided attributes.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Errors groups multiple non-nil errors under the key "errors".
// If all errors are nil, it returns an empty Attr.
func Errors(errs ...error) slog.Attr {
	as := make([]slog.Attr, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(as) == 0 {
		return slog.Attr{}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// TabID records a browser tab identifier under the key "tab_id".
func TabID(id int) slog.Attr {
	return slog.Int("tab_id", id)
}

// OpenerTabID records the opener tab under the key "opener_tab_id".
// If id is nil, it returns an empty Attr.
func OpenerTabID(id *int) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Int("opener_tab_id", *id)
}

// URL records a page address under the key "url".
func URL(u string) slog.Attr {
	return slog.String("url", u)
}

// QueueLength records a queue length under the key "queue_length".
func QueueLength(n int) slog.Attr {
	return slog.Int("queue_length", n)
}

// ActiveLoads records the in-flight reload count under the key "active_loads".
func ActiveLoads(n int) slog.Attr {
	return slog.Int("active_loads", n)
}

// Mode records a scheduling or capture mode under the key "mode".
func Mode(mode string) slog.Attr {
	return slog.String("mode", mode)
}

// Setting records a settings key under the key "setting".
func Setting(key string) slog.Attr {
	return slog.String("setting", key)
}

// MessageID records a bridge message identifier under the key "message_id".
// Empty ids are skipped.
func MessageID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("message_id", id)
}

// RequestID records an HTTP request id under the key "request_id".
// Empty ids are skipped.
func RequestID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("request_id", id)
}

// MessageType records a bridge message type under the key "message_type".
func MessageType(t string) slog.Attr {
	return slog.String("message_type", t)
}

// Duration records a duration under the key "duration".
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Event records the event name under the key "event".
func Event(name string) slog.Attr {
	return slog.String("event", name)
}
