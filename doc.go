// Package ecugate provides the concurrent runtime core of the ECU data
// gateway: a thread-safe message queue, a fixed worker pool draining
// it, and a thread-safe finite-state machine with guarded, event-driven
// transitions.
//
// It is an in-process library with no wire protocol of its own; the
// gateway binaries under cmd/ wire it to TCP ingestion and a REST API.
//
// # Core Concepts
//
// The programming model is intentionally small:
//
//  1. Queue
//  2. Pool
//  3. Machine
//  4. Message / State
//  5. Runtime
//
// # Queue
//
// Queue is an unbounded, thread-safe FIFO of Messages. Producers never
// block; consumers can block (Dequeue) or poll (TryDequeue). Shutdown
// is drain-on-stop: after Stop no new messages are accepted, but
// everything already queued is still handed out.
//
// # Pool
//
// Pool runs N worker goroutines against one Queue and applies a
// replaceable Processor to each message. The default processor invokes
// the message's own Process method. Stopping the pool stops the queue,
// drains remaining messages and joins every worker. A pool of zero
// workers is legal and processes nothing.
//
// # Machine
//
// Machine is a registry of named States and guarded transitions keyed
// by (state, event). Events are dispatched with TriggerEvent: the
// current state gets first refusal via its OnEvent hook, and only if it
// declines does the transition table apply. The machine keeps a bounded
// history of visited states and can notify a transition observer.
//
// State hooks, guards aside, always run with the machine's lock
// released, so a hook may trigger follow-up events without deadlock.
//
// # Message / State
//
// Message and State are the two polymorphic leaf types, defined in
// pkg/api and re-exported here. Concrete messages (data, event,
// ecu-data) live in pkg/messages; the gateway's lifecycle states live
// with the gateway.
//
// State hooks receive the machine as the MachineAPI interface, not the
// concrete Machine. A state embedding BaseState that overrides a hook
// must keep that parameter type, or the override shadows the promoted
// method and the type no longer satisfies State.
//
// # Runtime
//
// Runtime bundles one queue, one pool and one machine into a single
// process-local unit with a shared observer, for applications and
// tests that want the common wiring without assembling it by hand:
//
//	rt := ecugate.NewRuntime(4, nil)
//	rt.Machine.AddState(...)
//	rt.SetProcessor(func(msg ecugate.Message) { ... })
//	rt.Start()
//	rt.Queue.Enqueue(msg)
//	rt.Stop()
//
// The pool's processor may call rt.Machine.TriggerEvent, which is how
// the gateway couples message arrival to lifecycle transitions; the
// core itself does not hard-wire that coupling.
package ecugate
