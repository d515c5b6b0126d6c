package settings

import "errors"

var (
	ErrUnknownKey   = errors.New("unknown settings key")
	ErrInvalidValue = errors.New("invalid settings value")
	ErrOutOfRange   = errors.New("settings value out of range")
	ErrStoreClosed  = errors.New("settings store closed")
)
