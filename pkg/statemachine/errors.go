package statemachine

import (
	"errors"
	"fmt"
)

// ErrIncompleteTransition is returned when a transition is declared without an event.
var ErrIncompleteTransition = errors.New("transition must declare an event")

// ErrNoTransition indicates no transition exists for the state/event pair.
type ErrNoTransition struct {
	State string
	Event string
}

func (e *ErrNoTransition) Error() string {
	return fmt.Sprintf("no transition from state '%s' on event '%s'", e.State, e.Event)
}

// ErrRejected indicates every candidate transition was blocked by its guards.
type ErrRejected struct {
	State string
	Event string
}

func (e *ErrRejected) Error() string {
	return fmt.Sprintf("transition from state '%s' on event '%s' rejected by guards", e.State, e.Event)
}

func IsNoTransition(err error) bool {
	var e *ErrNoTransition
	return errors.As(err, &e)
}

func IsRejected(err error) bool {
	var e *ErrRejected
	return errors.As(err, &e)
}
