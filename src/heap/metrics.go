package heap

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	capacity  prometheus.Gauge
	allocated prometheus.Gauge
	failures  prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	return &metrics{
		capacity: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: "solace",
			Subsystem: "heap",
			Name:      "capacity_bytes",
			Help:      "Size of the malloc arena computed at boot.",
		}),
		allocated: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: "solace",
			Subsystem: "heap",
			Name:      "allocated_bytes",
			Help:      "Current bump-allocator cursor offset.",
		}),
		failures: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "solace",
			Subsystem: "heap",
			Name:      "sbrk_failures_total",
			Help:      "Sbrk calls rejected because the arena was exhausted.",
		}),
	}
}
