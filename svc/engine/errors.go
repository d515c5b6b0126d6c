package engine

import "errors"

var (
	// ErrNotPersisted is returned when a change was applied in memory but the
	// settings store rejected the write.
	ErrNotPersisted = errors.New("settings applied but not persisted")

	ErrUnknownAction = errors.New("unknown action")
)
