// Package statemachine provides a small, type-safe finite state machine.
//
// States and events are any comparable types, typically string-based named
// types. Transitions may carry guards, which must all pass for the transition
// to be taken, and actions, which run under the machine's lock before the
// state changes. The first matching transition with passing guards wins, so
// guard-based branching is expressed by declaring several transitions for the
// same state/event pair.
//
// # Usage
//
//	type state string
//	type event string
//
//	const (
//		idle     state = "idle"
//		draining state = "draining"
//		start    event = "start"
//		finish   event = "finish"
//	)
//
//	m := statemachine.MustNew(idle,
//		statemachine.Transition[state, event]{From: idle, Event: start, To: draining},
//		statemachine.Transition[state, event]{From: draining, Event: finish, To: idle},
//	)
//
//	if err := m.Fire(ctx, start); err != nil {
//		// already draining
//	}
//
// # Errors
//
// Fire returns *ErrNoTransition when no transition is declared for the current
// state and event, and *ErrRejected when every candidate was blocked by a
// guard. Use IsNoTransition and IsRejected to tell them apart.
package statemachine
