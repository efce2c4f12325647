// Package metrics exposes Prometheus collectors for event ingress and workflow execution.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shopflow"

// Status label values.
const (
	StatusSuccess   = "success"
	StatusFailed    = "failed"
	StatusSkipped   = "skipped"
	StatusDuplicate = "duplicate"
)

// Metrics groups the collectors of one process. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	eventsTotal       *prometheus.CounterVec
	executionsTotal   *prometheus.CounterVec
	executionDuration *prometheus.HistogramVec
	executionsActive  prometheus.Gauge
	nodesTotal        *prometheus.CounterVec
	nodeDuration      *prometheus.HistogramVec
}

// New creates the collectors and registers them on a fresh registry together with
// the Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return NewWithRegistry(reg)
}

// NewWithRegistry registers the shopflow collectors on reg only.
func NewWithRegistry(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: reg,
		eventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_total",
				Help:      "Total number of inbound commerce events by topic and outcome",
			},
			[]string{"topic", "status"},
		),
		executionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "executions_total",
				Help:      "Total number of finished workflow executions",
			},
			[]string{"status"},
		),
		executionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "execution_duration_seconds",
				Help:      "Histogram of workflow execution duration in seconds",
				Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"status"},
		),
		executionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "executions_active",
				Help:      "Number of workflow executions currently running",
			},
		),
		nodesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "nodes_total",
				Help:      "Total number of visited workflow nodes",
			},
			[]string{"type", "action", "status"},
		),
		nodeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "node_duration_seconds",
				Help:      "Histogram of node processing duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"type", "action"},
		),
	}

	reg.MustRegister(
		m.eventsTotal,
		m.executionsTotal,
		m.executionDuration,
		m.executionsActive,
		m.nodesTotal,
		m.nodeDuration,
	)

	return m
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func (m *Metrics) RecordEvent(topic, status string) {
	if m == nil {
		return
	}

	m.eventsTotal.WithLabelValues(topic, status).Inc()
}

// ExecutionStarted marks an execution as running and returns the callback that records its end.
func (m *Metrics) ExecutionStarted() func(status string) {
	if m == nil {
		return func(string) {}
	}

	started := time.Now()

	m.executionsActive.Inc()

	return func(status string) {
		m.executionsActive.Dec()
		m.executionsTotal.WithLabelValues(status).Inc()
		m.executionDuration.WithLabelValues(status).Observe(time.Since(started).Seconds())
	}
}

func (m *Metrics) RecordNode(nodeType, actionKey, status string, duration time.Duration) {
	if m == nil {
		return
	}

	m.nodesTotal.WithLabelValues(nodeType, actionKey, status).Inc()
	m.nodeDuration.WithLabelValues(nodeType, actionKey).Observe(duration.Seconds())
}
