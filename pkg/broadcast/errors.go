package broadcast

import "errors"

// ErrClosed is returned by Next when the subscriber is closed before a value arrives.
var ErrClosed = errors.New("broadcast: closed")
