// Package metrics defines the Prometheus collectors exported by an hlckv
// node. Collectors are registered on an injected Registerer so tests and
// multiple in-process nodes do not collide on the default registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "hlckv"

// Clock collects hybrid logical clock activity.
type Clock struct {
	Updates          *prometheus.CounterVec
	Overflows        prometheus.Counter
	OffsetRejections prometheus.Counter
	Physical         prometheus.Gauge
	Logical          prometheus.Gauge
}

// NewClock registers the clock collectors on reg.
func NewClock(reg prometheus.Registerer) *Clock {
	f := promauto.With(reg)
	return &Clock{
		Updates: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "clock",
				Name:      "updates_total",
				Help:      "Clock advances by kind (local, observe, reserve).",
			},
			[]string{"kind"},
		),
		Overflows: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "clock",
			Name:      "logical_overflows_total",
			Help:      "Updates refused because the logical counter could not advance.",
		}),
		OffsetRejections: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "clock",
			Name:      "offset_rejections_total",
			Help:      "Remote timestamps rejected for being too far ahead of local physical time.",
		}),
		Physical: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "clock",
			Name:      "physical",
			Help:      "Physical component of the last issued timestamp.",
		}),
		Logical: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "clock",
			Name:      "logical",
			Help:      "Logical component of the last issued timestamp.",
		}),
	}
}

// Store collects replication and storage activity.
type Store struct {
	Requests      *prometheus.CounterVec
	Applies       *prometheus.CounterVec
	QuorumFailure *prometheus.CounterVec
	Conflicts     prometheus.Counter
	ReadRepairs   *prometheus.CounterVec
	Duration      *prometheus.HistogramVec
}

// NewStore registers the store collectors on reg.
func NewStore(reg prometheus.Registerer) *Store {
	f := promauto.With(reg)
	return &Store{
		Requests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "kv",
				Name:      "requests_total",
				Help:      "Client requests by method and gRPC status code.",
			},
			[]string{"method", "code"},
		),
		Applies: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "kv",
				Name:      "applies_total",
				Help:      "Local writes by outcome (applied, superseded).",
			},
			[]string{"outcome"},
		),
		QuorumFailure: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "kv",
				Name:      "quorum_failures_total",
				Help:      "Operations that did not reach their quorum.",
			},
			[]string{"op"},
		),
		Conflicts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "kv",
			Name:      "concurrent_reads_total",
			Help:      "Reads that saw same-instant concurrent siblings.",
		}),
		ReadRepairs: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "kv",
				Name:      "read_repairs_total",
				Help:      "Read repair pushes by result.",
			},
			[]string{"result"},
		),
		Duration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "kv",
				Name:      "request_duration_seconds",
				Help:      "Client request latency.",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"method"},
		),
	}
}
