package console

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	consoleBytes prometheus.Counter
	stdoutBytes  prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	return &metrics{
		consoleBytes: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "solace",
			Subsystem: "console",
			Name:      "channel_bytes_total",
			Help:      "Bytes pushed through the console channel sink.",
		}),
		stdoutBytes: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "solace",
			Subsystem: "console",
			Name:      "stdout_bytes_total",
			Help:      "Bytes written through the stdout stream.",
		}),
	}
}
