package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flowgraph/flowlogic/internal/core/compiler"
)

const namespace = "flowlogic"

// Generation outcomes used as the status label.
const (
	StatusOK            = "ok"
	StatusInvalid       = "invalid"
	StatusWiringFailed  = "wiring_failed"
	StatusPersistFailed = "persist_failed"
)

// Metrics holds the generation metrics and the registry they live in.
type Metrics struct {
	registry *prometheus.Registry

	generations   *prometheus.CounterVec   // By context and status
	duration      *prometheus.HistogramVec // By context
	flowsCompiled *prometheus.CounterVec   // By context
	nodesEmitted  *prometheus.CounterVec   // By context
	cyclesCut     *prometheus.CounterVec   // By context
	danglingSkips *prometheus.CounterVec   // By context
	unknownNodes  *prometheus.CounterVec   // By context
	customCode    *prometheus.CounterVec   // By context
	artifacts     *prometheus.CounterVec   // By store operation and status
}

// New creates the metrics on a fresh registry that also carries the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg)
}

// NewWithRegistry creates the metrics and registers them with reg.
func NewWithRegistry(reg *prometheus.Registry) *Metrics {
	perContext := func(name, help string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "compiler",
			Name:      name,
			Help:      help,
		}, []string{"context"})
	}

	m := &Metrics{
		registry: reg,

		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generator",
			Name:      "generations_total",
			Help:      "Total number of bundle generations",
		}, []string{"context", "status"}),

		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "generator",
			Name:      "generation_duration_seconds",
			Help:      "Time spent resolving, compiling and storing one bundle",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}, []string{"context"}),

		flowsCompiled: perContext("flows_compiled_total", "Total number of flows compiled"),
		nodesEmitted:  perContext("nodes_emitted_total", "Total number of nodes emitted as code"),
		cyclesCut:     perContext("cycles_cut_total", "Total number of cycle markers emitted"),
		danglingSkips: perContext("dangling_references_total", "Total number of skipped references to missing nodes"),
		unknownNodes:  perContext("unknown_nodes_total", "Total number of nodes with unsupported types"),
		customCode:    perContext("custom_code_nodes_total", "Total number of custom code nodes copied verbatim"),

		artifacts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "artifacts",
			Name:      "operations_total",
			Help:      "Total number of artifact store operations",
		}, []string{"operation", "status"}),
	}

	reg.MustRegister(
		m.generations,
		m.duration,
		m.flowsCompiled,
		m.nodesEmitted,
		m.cyclesCut,
		m.danglingSkips,
		m.unknownNodes,
		m.customCode,
		m.artifacts,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// RecordGeneration records one generation attempt.
func (m *Metrics) RecordGeneration(ctx, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.generations.WithLabelValues(ctx, status).Inc()
	m.duration.WithLabelValues(ctx).Observe(elapsed.Seconds())
}

// RecordBundle adds the per-flow compile stats of a bundle.
func (m *Metrics) RecordBundle(b *compiler.LogicBundle) {
	if m == nil || b == nil {
		return
	}
	ctx := string(b.Context)
	m.flowsCompiled.WithLabelValues(ctx).Add(float64(len(b.Compiled)))
	for _, c := range b.Compiled {
		m.nodesEmitted.WithLabelValues(ctx).Add(float64(c.Stats.NodesEmitted))
		m.cyclesCut.WithLabelValues(ctx).Add(float64(c.Stats.CyclesCut))
		m.danglingSkips.WithLabelValues(ctx).Add(float64(c.Stats.DanglingSkips))
		m.unknownNodes.WithLabelValues(ctx).Add(float64(c.Stats.UnknownNodes))
		m.customCode.WithLabelValues(ctx).Add(float64(c.Stats.CustomCodeUsed))
	}
}

// RecordArtifactOp records one artifact store operation.
func (m *Metrics) RecordArtifactOp(op string, err error) {
	if m == nil {
		return
	}
	status := StatusOK
	if err != nil {
		status = "error"
	}
	m.artifacts.WithLabelValues(op, status).Inc()
}
