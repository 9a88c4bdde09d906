// Package fsm implements a thread-safe finite-state machine with
// guarded, event-driven transitions, bounded state history and a
// transition observer hook.
//
// The central concurrency contract of the package is that user-supplied
// code (state hooks, guards, the transition observer) is never invoked
// while the machine's lock is held. State hooks may therefore call back
// into the machine, for example to trigger a follow-up event, without
// deadlocking. Guards are the one exception: they are evaluated under
// the lock and must not re-enter the machine.
package fsm

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/tkivisto/ecugate/pkg/api"
)

// maxHistory bounds the retained state history; the oldest entry is
// evicted first.
const maxHistory = 50

// Transition is a guarded edge of the machine: while in From, Event
// moves the machine to To, provided Guard (if any) passes against the
// event payload.
type Transition struct {
	From  string
	Event string
	To    string
	Guard api.Guard
}

// Machine is a registry of named states and transitions between them.
//
// All mutating operations report failure with a boolean rather than an
// error: rejected mutations (duplicate state, missing endpoint, removal
// of the current state, and so on) leave the machine unchanged.
type Machine struct {
	mu          sync.Mutex
	states      map[string]api.State
	transitions map[string]map[string]Transition // from -> event -> transition
	initial     string
	current     string
	history     []string
	observer    func(from, to string)

	running atomic.Bool
}

var _ api.Machine = (*Machine)(nil)

// New creates an empty, stopped machine.
func New() *Machine {
	return &Machine{
		states:      make(map[string]api.State),
		transitions: make(map[string]map[string]Transition),
		history:     make([]string, 0, maxHistory),
	}
}

// AddState registers state under name. It fails if name is already
// registered or state is nil.
func (m *Machine) AddState(name string, state api.State) bool {
	if state == nil {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.states[name]; exists {
		return false
	}
	m.states[name] = state
	return true
}

// RemoveState deletes the named state and every transition that
// references it as source or destination. It fails if the state is
// unknown, or if it is the current state of a running machine.
func (m *Machine) RemoveState(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == name && m.running.Load() {
		return false
	}
	if _, exists := m.states[name]; !exists {
		return false
	}

	delete(m.states, name)

	// Cascade: drop outgoing transitions wholesale, then scan the rest
	// for edges pointing at the removed state. Keeping the table free of
	// dangling endpoints is what lets TriggerEvent skip defensive
	// existence checks.
	delete(m.transitions, name)
	for from, events := range m.transitions {
		for event, tr := range events {
			if tr.To == name {
				delete(events, event)
			}
		}
		if len(events) == 0 {
			delete(m.transitions, from)
		}
	}

	return true
}

// AddTransition registers a transition from fromState to toState on
// event, with an optional guard (nil means unconditional). Both
// endpoint states must already be registered. Re-adding the same
// (fromState, event) pair overwrites the previous transition.
func (m *Machine) AddTransition(fromState, event, toState string, guard api.Guard) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.states[fromState]; !ok {
		return false
	}
	if _, ok := m.states[toState]; !ok {
		return false
	}

	events := m.transitions[fromState]
	if events == nil {
		events = make(map[string]Transition)
		m.transitions[fromState] = events
	}
	events[event] = Transition{From: fromState, Event: event, To: toState, Guard: guard}
	return true
}

// RemoveTransition removes the transition registered for
// (fromState, event). It fails if no such transition exists.
func (m *Machine) RemoveTransition(fromState, event string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	events, ok := m.transitions[fromState]
	if !ok {
		return false
	}
	if _, ok := events[event]; !ok {
		return false
	}

	delete(events, event)
	if len(events) == 0 {
		delete(m.transitions, fromState)
	}
	return true
}

// SetInitialState selects the state entered by Start. It fails if the
// state is not registered.
func (m *Machine) SetInitialState(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.states[name]; !ok {
		return false
	}
	m.initial = name
	return true
}

// Start enters the initial state. It fails if the machine is already
// running, no initial state is configured, or the initial state is no
// longer registered. On success the history is reset to the initial
// state and its OnEnter hook runs with a nil context, outside the lock.
func (m *Machine) Start() bool {
	m.mu.Lock()

	if m.running.Load() {
		m.mu.Unlock()
		return false
	}
	if m.initial == "" {
		m.mu.Unlock()
		return false
	}
	state, ok := m.states[m.initial]
	if !ok {
		m.mu.Unlock()
		return false
	}

	m.running.Store(true)
	m.current = m.initial
	m.history = m.history[:0]
	m.history = append(m.history, m.initial)

	m.mu.Unlock()

	state.OnEnter(nil, m)
	return true
}

// Stop exits the current state (OnExit runs outside the lock) and
// clears it. Stopping a stopped machine is a no-op.
func (m *Machine) Stop() {
	m.mu.Lock()

	if !m.running.Load() {
		m.mu.Unlock()
		return
	}
	state := m.states[m.current]

	m.mu.Unlock()

	if state != nil {
		state.OnExit(m)
	}

	m.mu.Lock()
	m.running.Store(false)
	m.current = ""
	m.mu.Unlock()
}

// IsRunning reports whether the machine has been started.
func (m *Machine) IsRunning() bool {
	return m.running.Load()
}

// TriggerEvent dispatches an event against the current state. Dispatch
// happens in two stages:
//
//  1. Under the lock, the current state and a guard-passed transition
//     target for (current, event) are looked up, if any.
//  2. Outside the lock, the current state's OnEvent hook runs first. If
//     it returns true the event is consumed and no transition occurs,
//     regardless of the table lookup. Otherwise the transition found in
//     stage 1, if any, is performed.
//
// It returns true if the state handled the event or a transition was
// performed. Triggering on a stopped machine returns false.
//
// Concurrent TriggerEvent calls race to commit their transition; the
// loser's event is evaluated against whichever state won.
func (m *Machine) TriggerEvent(event string, payload any) bool {
	if !m.running.Load() {
		return false
	}

	m.mu.Lock()

	if m.current == "" {
		m.mu.Unlock()
		return false
	}
	state := m.states[m.current]
	target := m.findTransitionLocked(m.current, event, payload)

	m.mu.Unlock()

	if state != nil && state.OnEvent(event, payload, m) {
		return true
	}

	if target != "" {
		return m.performTransition(target, payload)
	}
	return false
}

// CurrentState returns the current state name, or "" when stopped.
func (m *Machine) CurrentState() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// CurrentStateHandle returns the current state object, or nil when
// stopped.
func (m *Machine) CurrentStateHandle() api.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == "" {
		return nil
	}
	return m.states[m.current]
}

// StateByName returns the registered state with the given name, or nil.
func (m *Machine) StateByName(name string) api.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[name]
}

// Update invokes the current state's OnUpdate hook, outside the lock.
// It is a no-op on a stopped machine. Callers that need periodic state
// work drive this from their own ticker.
func (m *Machine) Update() {
	if !m.running.Load() {
		return
	}

	state := m.CurrentStateHandle()
	if state != nil {
		state.OnUpdate(m)
	}
}

// CanTransition reports whether a transition is registered for
// (fromState, event). Guards are not consulted.
func (m *Machine) CanTransition(fromState, event string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	events, ok := m.transitions[fromState]
	if !ok {
		return false
	}
	_, ok = events[event]
	return ok
}

// EventsFrom returns the sorted event names that have transitions
// registered out of the given state.
func (m *Machine) EventsFrom(stateName string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	events := make([]string, 0, len(m.transitions[stateName]))
	for event := range m.transitions[stateName] {
		events = append(events, event)
	}
	sort.Strings(events)
	return events
}

// SetObserver installs a callback invoked after every successful
// transition with the source and destination state names. It runs
// outside the lock, between the exited state's OnExit and the entered
// state's OnEnter. A nil callback removes the observer.
func (m *Machine) SetObserver(fn func(from, to string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observer = fn
}

// History returns a copy of the retained state history, oldest first.
// At most the 50 most recent states are retained; while running, the
// last element is always the current state.
func (m *Machine) History() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, len(m.history))
	copy(out, m.history)
	return out
}

// RecentHistory returns the most recent max entries of the history,
// oldest first. max <= 0 returns an empty slice.
func (m *Machine) RecentHistory(max int) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if max <= 0 {
		return nil
	}
	start := 0
	if len(m.history) > max {
		start = len(m.history) - max
	}
	out := make([]string, len(m.history)-start)
	copy(out, m.history[start:])
	return out
}

// performTransition commits the state change under the lock, then runs
// the exit hook, the observer, and the enter hook, strictly in that
// order, with the lock released.
func (m *Machine) performTransition(toState string, ctx any) bool {
	m.mu.Lock()

	if !m.running.Load() || m.current == "" {
		m.mu.Unlock()
		return false
	}
	to, ok := m.states[toState]
	if !ok {
		m.mu.Unlock()
		return false
	}

	from := m.current
	fromHandle := m.states[from]

	m.current = toState
	m.history = append(m.history, toState)
	if len(m.history) > maxHistory {
		// Shift in place so the backing array stays at maxHistory+1.
		m.history = append(m.history[:0], m.history[1:]...)
	}

	observer := m.observer

	m.mu.Unlock()

	if fromHandle != nil {
		fromHandle.OnExit(m)
	}
	if observer != nil {
		observer(from, toState)
	}
	to.OnEnter(ctx, m)

	return true
}

// findTransitionLocked resolves (fromState, event) to a destination
// state, returning "" when there is no transition or its guard does not
// pass. The caller must hold m.mu.
func (m *Machine) findTransitionLocked(fromState, event string, payload any) string {
	events, ok := m.transitions[fromState]
	if !ok {
		return ""
	}
	tr, ok := events[event]
	if !ok {
		return ""
	}
	if tr.Guard != nil && !evalGuard(tr.Guard, payload) {
		return ""
	}
	return tr.To
}

// evalGuard runs a guard, mapping a panic (typically a failed payload
// type inspection) to false. A failing guard behaves exactly like an
// unregistered transition.
func evalGuard(guard api.Guard, payload any) (pass bool) {
	defer func() {
		if recover() != nil {
			pass = false
		}
	}()
	return guard(payload)
}
