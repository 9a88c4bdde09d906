// Package pool runs a fixed set of worker goroutines that drain a
// msgqueue.Queue and apply a replaceable processor function to each
// message.
package pool

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/tkivisto/ecugate/pkg/api"
	"github.com/tkivisto/ecugate/pkg/msgqueue"
)

// Pool owns N worker goroutines that pull messages from one queue.
//
// The queue is borrowed, not owned: the pool stops it on Stop (so
// blocked workers wake up) but never creates or clears it.
//
// Panic policy: a panic raised by the processor is recovered by the
// worker and reported through Observer.OnProcessorPanic; the worker
// then moves on to the next message. A panicking message never takes
// down the pool or the process.
type Pool struct {
	queue   *msgqueue.Queue
	workers int

	running atomic.Bool
	wg      sync.WaitGroup

	mu        sync.Mutex
	processor api.Processor

	observer api.Observer
}

// New creates a pool of numWorkers workers over queue. numWorkers may
// be zero, in which case Start succeeds but no message is ever
// processed. The default processor invokes each message's own Process
// method.
func New(queue *msgqueue.Queue, numWorkers int) *Pool {
	return NewWithObserver(queue, numWorkers, nil)
}

// NewWithObserver is like New with an Observer attached. A nil obs
// falls back to api.NoopObserver.
func NewWithObserver(queue *msgqueue.Queue, numWorkers int, obs api.Observer) *Pool {
	if numWorkers < 0 {
		numWorkers = 0
	}
	if obs == nil {
		obs = api.NoopObserver{}
	}
	return &Pool{
		queue:    queue,
		workers:  numWorkers,
		observer: obs,
		processor: func(msg api.Message) {
			msg.Process()
		},
	}
}

// Start spawns the worker goroutines. It is a no-op if the pool is
// already running.
func (p *Pool) Start() {
	if !p.running.CompareAndSwap(false, true) {
		return
	}

	p.wg.Add(p.workers)
	for i := 0; i < p.workers; i++ {
		go p.workerLoop()
	}
}

// Stop shuts the pool down: it clears the running flag, stops the
// queue so that blocked workers wake up, and waits for every worker to
// exit. Messages enqueued before Stop are still processed (the queue
// drains before workers see the stop). Stop is idempotent.
func (p *Pool) Stop() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}

	p.queue.Stop()
	p.wg.Wait()
}

// IsRunning reports whether Start has been called without a matching
// Stop. After Stop returns, IsRunning reports false and all workers
// have exited.
func (p *Pool) IsRunning() bool {
	return p.running.Load()
}

// SetProcessor replaces the per-message processing function. It may be
// called before or during a run; the next dequeued message uses the new
// function. The swap is lock-protected so a worker never observes a
// torn function value. A nil fn restores the default processor.
func (p *Pool) SetProcessor(fn api.Processor) {
	if fn == nil {
		fn = func(msg api.Message) { msg.Process() }
	}
	p.mu.Lock()
	p.processor = fn
	p.mu.Unlock()
}

func (p *Pool) currentProcessor() api.Processor {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.processor
}

func (p *Pool) workerLoop() {
	defer p.wg.Done()

	for p.running.Load() || !p.queue.Empty() {
		msg, ok := p.queue.Dequeue()
		if !ok {
			// Queue is stopped and drained.
			return
		}
		p.process(msg)
	}
}

func (p *Pool) process(msg api.Message) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			p.observer.OnProcessorPanic(msg, r)
		}
		p.observer.OnMessageProcessed(msg, time.Since(start))
	}()

	p.currentProcessor()(msg)
}
