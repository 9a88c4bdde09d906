// Package gateway assembles the ecugate runtime core into the ECU data
// gateway service: a TCP listener ingesting newline-delimited JSON
// frames, a worker pool storing and auditing them, a lifecycle state
// machine, and a REST API over the collected data.
package gateway

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/tkivisto/ecugate/pkg/api"
	"github.com/tkivisto/ecugate/pkg/fsm"
	"github.com/tkivisto/ecugate/pkg/messages"
	"github.com/tkivisto/ecugate/pkg/msgqueue"
	"github.com/tkivisto/ecugate/pkg/pool"
)

// Gateway owns every moving part of the service. Construct with New,
// then Start; Stop drains in-flight work before returning.
type Gateway struct {
	cfg Config
	log *zap.Logger

	queue   *msgqueue.Queue
	pool    *pool.Pool
	machine *fsm.Machine
	store   *Store
	audit   *Audit // nil when auditing is disabled
	metrics *Metrics
	ingest  *IngestServer
	rest    *RESTServer

	// processed and processingErrors are owned here and passed into the
	// processor, rather than living as package globals.
	processed        atomic.Int64
	processingErrors atomic.Int64

	mu      sync.Mutex
	running bool
}

// New builds a gateway from cfg. Nothing is started and no port is
// bound; callers that need the audit trail closed on failure after New
// must call Stop.
func New(cfg Config, log *zap.Logger) (*Gateway, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	g := &Gateway{
		cfg:   cfg,
		log:   log,
		queue: msgqueue.New(),
		store: NewStore(),
	}

	g.metrics = NewMetrics(func() float64 { return float64(g.queue.Size()) })

	g.machine = fsm.New()
	configureMachine(g.machine, log.Named("state"))
	g.machine.SetObserver(func(from, to string) {
		g.metrics.Transitions.Inc()
		log.Info("state transition", zap.String("from", from), zap.String("to", to))
	})

	if cfg.AuditDB != "" {
		audit, err := OpenAudit(cfg.AuditDB)
		if err != nil {
			return nil, err
		}
		g.audit = audit
	}

	g.pool = pool.NewWithObserver(g.queue, cfg.Workers, &poolObserver{g: g})
	g.pool.SetProcessor(g.process)

	g.ingest = NewIngestServer(cfg.TCPAddr, log.Named("ingest"), g.metrics, func(msg *messages.ECUData) {
		g.queue.Enqueue(msg)
	})
	g.rest = NewRESTServer(cfg.HTTPAddr, log.Named("rest"), g.store, g.machine, g.metrics)

	return g, nil
}

// Start brings the gateway up: state machine into init, pool workers,
// both listeners, and finally the ready event moving the machine to
// active. Start is not idempotent on failure; a gateway that failed to
// start should be stopped and discarded.
func (g *Gateway) Start() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.running {
		return nil
	}

	g.machine.Start()
	g.pool.Start()

	if err := g.ingest.Start(); err != nil {
		g.machine.TriggerEvent("fault", "ingest listener: "+err.Error())
		return err
	}
	if err := g.rest.Start(); err != nil {
		g.ingest.Stop()
		g.machine.TriggerEvent("fault", "rest listener: "+err.Error())
		return err
	}

	g.machine.TriggerEvent("ready", nil)
	g.running = true

	g.log.Info("gateway started",
		zap.String("tcp", g.ingest.Addr().String()),
		zap.String("http", g.rest.Addr().String()),
		zap.Int("workers", g.cfg.Workers),
	)
	return nil
}

// Stop shuts everything down in dependency order: stop accepting
// (ingest, then rest), drain the pool, stop the machine, close the
// audit trail. Idempotent.
func (g *Gateway) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.running {
		// Still close the audit trail if New succeeded but Start never
		// ran or failed partway.
		if g.audit != nil {
			g.audit.Close()
			g.audit = nil
		}
		return
	}
	g.running = false

	g.ingest.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := g.rest.Stop(ctx); err != nil {
		g.log.Warn("rest shutdown", zap.Error(err))
	}

	g.pool.Stop()
	g.machine.Stop()

	if g.audit != nil {
		g.audit.Close()
		g.audit = nil
	}

	g.log.Info("gateway stopped",
		zap.Int64("processed", g.processed.Load()),
		zap.Int64("errors", g.processingErrors.Load()),
	)
}

// IngestAddr returns the bound ingestion address once started.
func (g *Gateway) IngestAddr() string {
	if addr := g.ingest.Addr(); addr != nil {
		return addr.String()
	}
	return ""
}

// RESTAddr returns the bound REST address once started.
func (g *Gateway) RESTAddr() string {
	if addr := g.rest.Addr(); addr != nil {
		return addr.String()
	}
	return ""
}

// Processed returns the number of messages the processor completed.
func (g *Gateway) Processed() int64 { return g.processed.Load() }

// Machine exposes the lifecycle machine, mainly for tests and the
// heartbeat loop in cmd/gateway.
func (g *Gateway) Machine() *fsm.Machine { return g.machine }

// Store exposes the ECU data store.
func (g *Gateway) Store() *Store { return g.store }

// process is the pool's processor: it routes by concrete message type,
// feeding the store and audit trail, and couples message arrival to the
// lifecycle machine by triggering events.
func (g *Gateway) process(msg api.Message) {
	switch m := msg.(type) {
	case *messages.ECUData:
		g.store.Update(m)
		if g.audit != nil {
			if err := g.audit.Record(m); err != nil {
				g.processingErrors.Add(1)
				g.log.Warn("audit write failed", zap.Error(err))
			}
		}

	case *messages.Event:
		if m.Severity() == messages.SeverityError {
			g.machine.TriggerEvent("fault", m.Description())
		}

	default:
		msg.Process()
	}

	g.processed.Add(1)
	g.metrics.Processed.Inc()
}

// poolObserver adapts pool callbacks onto the gateway's metrics and
// error counters.
type poolObserver struct {
	api.NoopObserver
	g *Gateway
}

func (o *poolObserver) OnProcessorPanic(msg api.Message, recovered any) {
	o.g.processingErrors.Add(1)
	o.g.metrics.Panics.Inc()
	o.g.log.Error("processor panic",
		zap.String("message", msg.String()),
		zap.Any("panic", recovered),
	)
}
