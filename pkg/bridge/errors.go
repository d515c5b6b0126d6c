package bridge

import (
	"errors"
	"fmt"

	"github.com/dmitrymomot/tabloader/pkg/tabs"
)

var (
	ErrNotConnected    = errors.New("browser extension not connected")
	ErrTimeout         = errors.New("browser call timed out")
	ErrInvalidEnvelope = errors.New("invalid bridge envelope")
	ErrRemote          = errors.New("browser call failed")
)

// Remote error codes.
const (
	CodeNotFound = "not_found"
	CodeInvalid  = "invalid_argument"
	CodeInternal = "internal"
)

// RemoteError is an error reported by the extension.
type RemoteError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches ErrRemote, tabs.ErrTabNotFound for the not_found code and
// tabs.ErrRejected for every other code.
func (e *RemoteError) Is(target error) bool {
	switch target {
	case ErrRemote:
		return true
	case tabs.ErrTabNotFound:
		return e.Code == CodeNotFound
	case tabs.ErrRejected:
		return e.Code != CodeNotFound
	}
	return false
}
