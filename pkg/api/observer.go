package api

import (
	"log/slog"
	"sync/atomic"
	"time"
)

// Observer receives callbacks from the runtime for logging and metrics.
//
// Implementations should be fast and non-blocking; heavy work should be
// done asynchronously so as not to delay message processing.
type Observer interface {
	// OnMessageProcessed is called after a worker has finished running
	// the processor for a message, whether or not it panicked.
	OnMessageProcessed(msg Message, duration time.Duration)

	// OnProcessorPanic is called when the processor panicked while
	// handling msg. recovered is the value recovered from the panic.
	// The worker continues with the next message afterwards.
	OnProcessorPanic(msg Message, recovered any)

	// OnTransition is called after every successful state transition,
	// in exit-observer-enter order relative to the state hooks.
	OnTransition(from, to string)
}

// NoopObserver is an Observer that does nothing.
// It is used as the default when no observer is configured.
type NoopObserver struct{}

func (NoopObserver) OnMessageProcessed(msg Message, d time.Duration) {}
func (NoopObserver) OnProcessorPanic(msg Message, recovered any)     {}
func (NoopObserver) OnTransition(from, to string)                    {}

// CompositeObserver fans out events to multiple observers.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an Observer that forwards events to each
// non-nil observer in obs.
func NewCompositeObserver(obs ...Observer) Observer {
	filtered := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	if len(filtered) == 0 {
		return NoopObserver{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeObserver{observers: filtered}
}

func (c *CompositeObserver) OnMessageProcessed(msg Message, d time.Duration) {
	for _, o := range c.observers {
		o.OnMessageProcessed(msg, d)
	}
}

func (c *CompositeObserver) OnProcessorPanic(msg Message, recovered any) {
	for _, o := range c.observers {
		o.OnProcessorPanic(msg, recovered)
	}
}

func (c *CompositeObserver) OnTransition(from, to string) {
	for _, o := range c.observers {
		o.OnTransition(from, to)
	}
}

// LoggingObserver writes structured logs using log/slog.
type LoggingObserver struct {
	Logger *slog.Logger
}

// NewLoggingObserver creates an Observer that logs processing and
// transition events using the provided slog.Logger. If logger is nil,
// slog.Default() is used.
func NewLoggingObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{Logger: logger}
}

func (o *LoggingObserver) OnMessageProcessed(msg Message, d time.Duration) {
	o.Logger.Debug("message_processed",
		slog.String("id", msg.ID()),
		slog.String("type", msg.Type()),
		slog.Duration("duration", d),
	)
}

func (o *LoggingObserver) OnProcessorPanic(msg Message, recovered any) {
	o.Logger.Error("processor_panic",
		slog.String("id", msg.ID()),
		slog.String("type", msg.Type()),
		slog.Any("panic", recovered),
	)
}

func (o *LoggingObserver) OnTransition(from, to string) {
	o.Logger.Info("state_transition",
		slog.String("from", from),
		slog.String("to", to),
	)
}

// BasicMetrics collects simple counters and aggregate processing
// durations. It implements Observer, and can be combined with
// LoggingObserver via NewCompositeObserver.
type BasicMetrics struct {
	messagesProcessed atomic.Int64
	processorPanics   atomic.Int64
	transitions       atomic.Int64
	totalDuration     atomic.Int64 // nanoseconds
}

// BasicMetricsSnapshot is an immutable snapshot of BasicMetrics.
type BasicMetricsSnapshot struct {
	MessagesProcessed int64
	ProcessorPanics   int64
	Transitions       int64
	AvgProcessTime    time.Duration
}

func (m *BasicMetrics) OnMessageProcessed(msg Message, d time.Duration) {
	m.messagesProcessed.Add(1)
	m.totalDuration.Add(d.Nanoseconds())
}

func (m *BasicMetrics) OnProcessorPanic(msg Message, recovered any) {
	m.processorPanics.Add(1)
}

func (m *BasicMetrics) OnTransition(from, to string) {
	m.transitions.Add(1)
}

// Snapshot returns a snapshot of the current metrics.
func (m *BasicMetrics) Snapshot() BasicMetricsSnapshot {
	processed := m.messagesProcessed.Load()
	totalNs := m.totalDuration.Load()

	var avg time.Duration
	if processed > 0 {
		avg = time.Duration(totalNs / processed)
	}

	return BasicMetricsSnapshot{
		MessagesProcessed: processed,
		ProcessorPanics:   m.processorPanics.Load(),
		Transitions:       m.transitions.Load(),
		AvgProcessTime:    avg,
	}
}
