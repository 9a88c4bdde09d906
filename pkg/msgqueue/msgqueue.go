// Package msgqueue provides a thread-safe FIFO handoff queue of
// messages, with blocking and non-blocking removal and drain-on-stop
// shutdown semantics.
package msgqueue

import (
	"sync"

	"github.com/tkivisto/ecugate/pkg/api"
)

// Queue is an unbounded FIFO of messages, safe for concurrent use by
// any number of producers and consumers.
//
// Shutdown follows drain-on-stop semantics: after Stop, no new messages
// are accepted, but messages already queued remain retrievable until
// the queue is empty.
type Queue struct {
	mu       sync.Mutex
	nonEmpty *sync.Cond
	items    []api.Message
	stopped  bool
}

// New creates an empty queue.
func New() *Queue {
	q := &Queue{}
	q.nonEmpty = sync.NewCond(&q.mu)
	return q
}

// Enqueue appends msg to the tail of the queue and wakes one blocked
// consumer. A nil message is silently ignored, as is any message
// enqueued after Stop; neither case is an error. Enqueue never blocks.
func (q *Queue) Enqueue(msg api.Message) {
	if msg == nil {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped {
		return
	}
	q.items = append(q.items, msg)
	q.nonEmpty.Signal()
}

// Dequeue removes and returns the message at the head of the queue,
// blocking until one is available or the queue is stopped.
//
// The second return value is false only when the queue is stopped AND
// empty. If a message is still queued after Stop, it is returned: the
// contract is "stop accepting new work, drain existing work".
func (q *Queue) Dequeue() (api.Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	// The predicate is re-checked on every wakeup: with several
	// consumers competing, another goroutine may have claimed the head
	// between the Signal and this goroutine reacquiring the lock.
	for len(q.items) == 0 && !q.stopped {
		q.nonEmpty.Wait()
	}

	if len(q.items) == 0 {
		return nil, false
	}

	msg := q.items[0]
	q.items[0] = nil // let the head be collected
	q.items = q.items[1:]
	return msg, true
}

// TryDequeue removes and returns the head message without blocking.
// It returns (nil, false) when the queue is empty; emptiness is the
// only gate, so behaviour is identical before and after Stop.
func (q *Queue) TryDequeue() (api.Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil, false
	}

	msg := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return msg, true
}

// Size returns the number of queued messages.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Empty reports whether the queue holds no messages.
func (q *Queue) Empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) == 0
}

// Stop marks the queue as stopped and wakes every blocked consumer.
// It is idempotent.
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.stopped = true
	q.nonEmpty.Broadcast()
}

// Stopped reports whether Stop has been called.
func (q *Queue) Stopped() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stopped
}

// Clear discards all queued messages without processing them.
// It is legal at any time, before or after Stop.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = nil
}
