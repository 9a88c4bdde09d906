package api

import "time"

// Message is a unit of work carried through a queue to a worker.
//
// Messages are shared by reference: the enqueuing caller and the queue
// both hold the same value, and once dequeued the reference belongs to
// the processing worker for the duration of the call. Implementations
// should be immutable after construction unless they document otherwise,
// because a machine or store may read them concurrently.
type Message interface {
	// ID returns the unique identifier of this message.
	ID() string

	// Type returns the message type identifier, e.g. "ecu-data".
	Type() string

	// Timestamp returns the creation time of the message.
	Timestamp() time.Time

	// Process performs the message's own default processing. The pool
	// invokes it when no custom processor is configured.
	Process()

	// String returns a human-readable rendering for logs.
	String() string
}

// Processor handles a single dequeued message. The pool guarantees the
// message is non-nil.
type Processor func(Message)
