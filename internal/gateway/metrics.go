package gateway

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the gateway's Prometheus collectors. Each gateway
// instance owns its registry so that tests can build gateways side by
// side without duplicate-registration panics.
type Metrics struct {
	registry *prometheus.Registry

	FramesReceived prometheus.Counter
	FramesRejected prometheus.Counter
	Processed      prometheus.Counter
	Panics         prometheus.Counter
	Transitions    prometheus.Counter
}

// NewMetrics creates the collectors and registers them. queueDepth is
// sampled on scrape.
func NewMetrics(queueDepth func() float64) *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		FramesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ecugate_frames_received_total",
			Help: "ECU data frames accepted from the TCP listener.",
		}),
		FramesRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ecugate_frames_rejected_total",
			Help: "Ingested frames dropped as malformed or missing ecuId.",
		}),
		Processed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ecugate_messages_processed_total",
			Help: "Messages completed by the worker pool.",
		}),
		Panics: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ecugate_processor_panics_total",
			Help: "Panics recovered from the message processor.",
		}),
		Transitions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ecugate_state_transitions_total",
			Help: "Successful state machine transitions.",
		}),
	}

	reg.MustRegister(
		m.FramesReceived,
		m.FramesRejected,
		m.Processed,
		m.Panics,
		m.Transitions,
	)

	if queueDepth != nil {
		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "ecugate_queue_depth",
			Help: "Messages currently waiting in the handoff queue.",
		}, queueDepth))
	}

	return m
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
