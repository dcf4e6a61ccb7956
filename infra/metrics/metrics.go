package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "rbstore"

// Metrics groups the collectors shared by the service and its jobs.
type Metrics struct {
	Ops           *prometheus.CounterVec
	Keys          prometheus.Gauge
	Height        prometheus.Gauge
	AuditRuns     *prometheus.CounterVec
	Published     *prometheus.CounterVec
	OutboxPending prometheus.Gauge
}

// New builds the collectors and registers them on reg when reg is not nil.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Tree operations by name and result.",
		}, []string{"op", "result"}),
		Keys: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "keys",
			Help:      "Keys currently stored.",
		}),
		Height: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tree_height",
			Help:      "Tree height at the last audit.",
		}),
		AuditRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_runs_total",
			Help:      "Invariant audits by result.",
		}, []string{"result"}),
		Published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Outbox events handed to the bus, by result.",
		}, []string{"result"}),
		OutboxPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "outbox_pending",
			Help:      "NEW events seen by the last broadcaster pass.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Ops, m.Keys, m.Height, m.AuditRuns, m.Published, m.OutboxPending)
	}
	return m
}

// Op counts one operation outcome.
func (m *Metrics) Op(op, result string) {
	m.Ops.WithLabelValues(op, result).Inc()
}
