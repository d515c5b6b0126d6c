// Package drain guarantees that at most one drain loop runs per queue.
//
// A Guard is an Idle|Draining state machine. A loop may only run after a
// successful TryStart and must call Finish on every exit path. Recover is the
// explicit escape hatch for a guard left in Draining without a live loop: it
// forces the guard back to Idle and runs the recovery hook under the guard's
// lock so dependent counters are cleared atomically with the state change.
package drain

import (
	"context"

	"github.com/dmitrymomot/tabloader/pkg/statemachine"
)

// State of a drain guard.
type State string

const (
	Idle     State = "idle"
	Draining State = "draining"
)

type event string

const (
	start  event = "start"
	finish event = "finish"
	reset  event = "reset"
)

// Guard serializes drain loops.
type Guard struct {
	m *statemachine.Machine[State, event]
}

// New creates a guard in Idle. onRecover, if set, runs on every Recover.
func New(onRecover func(ctx context.Context)) *Guard {
	hook := func(ctx context.Context, _, _ State, _ event) error {
		if onRecover != nil {
			onRecover(ctx)
		}
		return nil
	}

	type transition = statemachine.Transition[State, event]
	actions := []statemachine.Action[State, event]{hook}

	return &Guard{m: statemachine.MustNew(Idle,
		transition{From: Idle, Event: start, To: Draining},
		transition{From: Draining, Event: finish, To: Idle},
		transition{From: Draining, Event: reset, To: Idle, Actions: actions},
		transition{From: Idle, Event: reset, To: Idle, Actions: actions},
	)}
}

// TryStart moves Idle to Draining. It reports false when a drain is already running.
func (g *Guard) TryStart(ctx context.Context) bool {
	return g.m.Fire(ctx, start) == nil
}

// Finish moves Draining back to Idle. Calling it while Idle is a no-op.
func (g *Guard) Finish(ctx context.Context) {
	_ = g.m.Fire(ctx, finish)
}

// Recover forces the guard to Idle and runs the recovery hook.
func (g *Guard) Recover(ctx context.Context) {
	_ = g.m.Fire(ctx, reset)
}

// State returns the current state.
func (g *Guard) State() State {
	return g.m.Current()
}

// Draining reports whether a drain is marked as running.
func (g *Guard) Draining() bool {
	return g.m.Is(Draining)
}
