// Package metrics defines the Prometheus metrics exported by the logbook.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "scuba"

// Metrics holds the logbook's collectors.
type Metrics struct {
	// DivesAdded counts successful Add calls.
	DivesAdded prometheus.Counter

	// DivesDeleted counts Delete calls that removed a dive.
	DivesDeleted prometheus.Counter

	// PersistFailures counts saves that failed after a mutation.
	// Labels: op (add, delete, flush)
	PersistFailures *prometheus.CounterVec

	// Dives is the current collection size.
	Dives prometheus.Gauge
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in
// tests to avoid clashing with the default registry.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		DivesAdded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dives_added_total",
			Help:      "Dives added to the logbook.",
		}),
		DivesDeleted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dives_deleted_total",
			Help:      "Dives deleted from the logbook.",
		}),
		PersistFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_failures_total",
			Help:      "Failed writes of the dive collection to storage.",
		}, []string{"op"}),
		Dives: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dives",
			Help:      "Dives currently in the logbook.",
		}),
	}
}
