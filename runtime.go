package ecugate

import (
	"sync"

	"github.com/tkivisto/ecugate/pkg/fsm"
	"github.com/tkivisto/ecugate/pkg/msgqueue"
	"github.com/tkivisto/ecugate/pkg/pool"
)

// Runtime bundles one queue, one worker pool and one state machine into
// a process-local unit sharing a single observer.
//
// Typical usage:
//
//	rt := ecugate.NewRuntime(2, obs)
//	rt.Machine.AddState("idle", idle)
//	rt.Machine.AddState("busy", busy)
//	rt.Machine.AddTransition("idle", "work", "busy", nil)
//	rt.Machine.SetInitialState("idle")
//	rt.SetProcessor(func(msg ecugate.Message) {
//	    rt.Machine.TriggerEvent("work", msg)
//	})
//	rt.Start()
//	rt.Queue.Enqueue(msg)
//	...
//	rt.Stop()
//
// Start and Stop only manage the pool and the machine; registering
// states and transitions is the caller's job. Stop drains the queue
// before stopping the machine, so in-flight messages may still trigger
// transitions during shutdown.
type Runtime struct {
	// Queue is the message queue drained by Pool.
	Queue *msgqueue.Queue

	// Pool processes messages from Queue.
	Pool *pool.Pool

	// Machine is the state machine available to the pool's processor.
	Machine *fsm.Machine

	mu      sync.Mutex
	running bool
}

// NewRuntime constructs a Runtime with numWorkers pool workers and the
// given observer (nil for none). The observer receives both processing
// callbacks from the pool and transition callbacks from the machine.
func NewRuntime(numWorkers int, obs Observer) *Runtime {
	q := msgqueue.New()
	p := pool.NewWithObserver(q, numWorkers, obs)
	m := fsm.New()
	if obs != nil {
		m.SetObserver(obs.OnTransition)
	}

	return &Runtime{
		Queue:   q,
		Pool:    p,
		Machine: m,
	}
}

// SetProcessor forwards to Pool.SetProcessor.
func (r *Runtime) SetProcessor(fn Processor) {
	r.Pool.SetProcessor(fn)
}

// Start starts the machine (when it has an initial state configured)
// and then the pool. Calling Start on a started runtime is a no-op.
func (r *Runtime) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return
	}
	r.running = true

	r.Machine.Start()
	r.Pool.Start()
}

// Stop stops the pool first, draining the queue, then stops the
// machine. It is idempotent.
func (r *Runtime) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return
	}
	r.running = false

	r.Pool.Stop()
	r.Machine.Stop()
}

// IsRunning reports whether Start has been called without a matching
// Stop.
func (r *Runtime) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}
