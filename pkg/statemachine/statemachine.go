package statemachine

import (
	"context"
	"fmt"
	"sync"
)

// Guard decides whether a transition may be taken.
type Guard[S, E comparable] func(ctx context.Context, from S, event E) bool

// Action runs a side effect during a transition. A non-nil error aborts it.
type Action[S, E comparable] func(ctx context.Context, from, to S, event E) error

// Transition declares a state change triggered by an event.
type Transition[S, E comparable] struct {
	From    S
	Event   E
	To      S
	Guards  []Guard[S, E]
	Actions []Action[S, E]
}

type key[S, E comparable] struct {
	from  S
	event E
}

// Machine is a concurrency-safe state machine.
type Machine[S, E comparable] struct {
	mu          sync.Mutex
	initial     S
	current     S
	transitions map[key[S, E]][]Transition[S, E]
}

// New creates a machine in the initial state with the given transitions.
func New[S, E comparable](initial S, transitions ...Transition[S, E]) (*Machine[S, E], error) {
	m := &Machine[S, E]{
		initial:     initial,
		current:     initial,
		transitions: make(map[key[S, E]][]Transition[S, E]),
	}
	for _, t := range transitions {
		if err := m.Add(t); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// MustNew is like New but panics on an invalid transition table.
func MustNew[S, E comparable](initial S, transitions ...Transition[S, E]) *Machine[S, E] {
	m, err := New(initial, transitions...)
	if err != nil {
		panic(fmt.Sprintf("statemachine: %v", err))
	}
	return m
}

// Add declares another transition.
func (m *Machine[S, E]) Add(t Transition[S, E]) error {
	var zero E
	if t.Event == zero {
		return ErrIncompleteTransition
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	k := key[S, E]{from: t.From, event: t.Event}
	m.transitions[k] = append(m.transitions[k], t)
	return nil
}

// Current returns the current state.
func (m *Machine[S, E]) Current() S {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Is reports whether the machine is in state s.
func (m *Machine[S, E]) Is(s S) bool {
	return m.Current() == s
}

// Fire takes the first transition for the current state and event whose
// guards pass, runs its actions and moves to its target state.
func (m *Machine[S, E]) Fire(ctx context.Context, event E) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.find(ctx, event)
	if err != nil {
		return err
	}

	for _, action := range t.Actions {
		if action == nil {
			continue
		}
		if err := action(ctx, m.current, t.To, event); err != nil {
			return fmt.Errorf("action failed: %w", err)
		}
	}

	m.current = t.To
	return nil
}

// CanFire reports whether Fire would find a transition for the event.
func (m *Machine[S, E]) CanFire(ctx context.Context, event E) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, err := m.find(ctx, event)
	return err == nil
}

// Reset returns the machine to its initial state without running actions.
func (m *Machine[S, E]) Reset() {
	m.mu.Lock()
	m.current = m.initial
	m.mu.Unlock()
}

func (m *Machine[S, E]) find(ctx context.Context, event E) (*Transition[S, E], error) {
	candidates := m.transitions[key[S, E]{from: m.current, event: event}]
	if len(candidates) == 0 {
		return nil, &ErrNoTransition{State: fmt.Sprint(m.current), Event: fmt.Sprint(event)}
	}

	for i := range candidates {
		if m.guardsPass(ctx, candidates[i], event) {
			return &candidates[i], nil
		}
	}
	return nil, &ErrRejected{State: fmt.Sprint(m.current), Event: fmt.Sprint(event)}
}

func (m *Machine[S, E]) guardsPass(ctx context.Context, t Transition[S, E], event E) bool {
	for _, g := range t.Guards {
		if g != nil && !g(ctx, m.current, event) {
			return false
		}
	}
	return true
}
