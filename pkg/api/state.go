package api

// Machine is the surface of a state machine that State callbacks and
// external collaborators may use. It is deliberately narrow: callbacks
// run outside the machine's lock and are allowed to re-enter through
// exactly these methods.
type Machine interface {
	// TriggerEvent dispatches an event against the current state.
	// It reports whether the event was handled or caused a transition.
	TriggerEvent(event string, payload any) bool

	// CurrentState returns the current state name, or "" when stopped.
	CurrentState() string

	// IsRunning reports whether the machine has been started.
	IsRunning() bool
}

// State is a named node in a Machine. All four hooks are invoked with
// the machine's lock released, so a hook may call back into the machine.
//
// Hooks of the same state may run concurrently when events are triggered
// from multiple goroutines; implementations that mutate their own fields
// must synchronize that themselves.
type State interface {
	// Name returns the unique identifier of this state within a machine.
	Name() string

	// OnEnter runs after the machine has switched to this state.
	// ctx carries the payload of the event that caused the transition,
	// or nil on Machine.Start.
	OnEnter(ctx any, m Machine)

	// OnExit runs when the machine leaves this state.
	OnExit(m Machine)

	// OnUpdate runs on Machine.Update while this state is current.
	OnUpdate(m Machine)

	// OnEvent gives the state first refusal on an event. Returning true
	// means "handled here": the machine then performs no table-driven
	// transition for this event, even if one is registered.
	OnEvent(event string, payload any, m Machine) bool
}

// Guard gates a transition. It is evaluated against the triggering
// event's payload and must not mutate machine state. A guard that
// panics (for example on an unexpected payload type) is defined to have
// returned false.
type Guard func(payload any) bool

// BaseState provides no-op implementations of every State hook except
// Name. Concrete states embed it and override what they need.
type BaseState struct{}

func (BaseState) OnEnter(ctx any, m Machine)                     {}
func (BaseState) OnExit(m Machine)                               {}
func (BaseState) OnUpdate(m Machine)                             {}
func (BaseState) OnEvent(event string, payload any, m Machine) bool { return false }
