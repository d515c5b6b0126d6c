package capture

import "errors"

var (
	ErrUnknownAction = errors.New("unknown message action")
	ErrInvalidURL    = errors.New("invalid link url")
	ErrCreateFailed  = errors.New("failed to create tab")
)
