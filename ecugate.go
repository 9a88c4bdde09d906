package ecugate

import (
	"github.com/tkivisto/ecugate/pkg/api"
	"github.com/tkivisto/ecugate/pkg/fsm"
	"github.com/tkivisto/ecugate/pkg/msgqueue"
	"github.com/tkivisto/ecugate/pkg/pool"
)

// Re-export key types so users don't need to dig into pkg/api.

type (
	Message   = api.Message
	State     = api.State
	BaseState = api.BaseState

	// MachineAPI is the narrow machine surface passed into State hooks.
	// A state overriding a BaseState hook must use this type, not the
	// concrete Machine, or the override no longer satisfies State.
	MachineAPI = api.Machine

	Guard                = api.Guard
	Processor            = api.Processor
	Observer             = api.Observer
	NoopObserver         = api.NoopObserver
	CompositeObserver    = api.CompositeObserver
	LoggingObserver      = api.LoggingObserver
	BasicMetrics         = api.BasicMetrics
	BasicMetricsSnapshot = api.BasicMetricsSnapshot

	Queue      = msgqueue.Queue
	Pool       = pool.Pool
	Machine    = fsm.Machine
	Transition = fsm.Transition
)

// Re-export common observer helpers.

var (
	NewLoggingObserver   = api.NewLoggingObserver
	NewCompositeObserver = api.NewCompositeObserver
)

// NewQueue creates an empty message queue.
func NewQueue() *Queue {
	return msgqueue.New()
}

// NewPool creates a pool of numWorkers workers over queue.
func NewPool(queue *Queue, numWorkers int) *Pool {
	return pool.New(queue, numWorkers)
}

// NewPoolWithObserver creates a pool with an Observer attached.
func NewPoolWithObserver(queue *Queue, numWorkers int, obs Observer) *Pool {
	return pool.NewWithObserver(queue, numWorkers, obs)
}

// NewMachine creates an empty, stopped state machine.
func NewMachine() *Machine {
	return fsm.New()
}
