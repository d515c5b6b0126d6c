package tabs

import "errors"

var (
	// ErrTabNotFound is returned when the target tab no longer exists.
	ErrTabNotFound = errors.New("tab not found")

	// ErrRejected is returned when the browser answered a call with a
	// refusal for that particular tab or URL.
	ErrRejected = errors.New("tab call rejected")

	// ErrInvalidEvent is returned when an event is missing required fields.
	ErrInvalidEvent = errors.New("invalid tab event")
)

// IsNotFound reports whether err means the tab has gone away.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTabNotFound)
}

// IsPermanent reports whether retrying the same call cannot succeed.
// Transport failures, timeouts and unclassified errors are not permanent.
func IsPermanent(err error) bool {
	return IsNotFound(err) || errors.Is(err, ErrRejected)
}
