package notify

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	deliveries *prometheus.CounterVec
	suppressed prometheus.Counter
	latency    prometheus.Histogram
}

func newMetrics() *metrics {
	return &metrics{
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "custody",
			Subsystem: "notify",
			Name:      "deliveries_total",
			Help:      "Notifications handled, by final state.",
		}, []string{"state"}),
		suppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "custody",
			Subsystem: "notify",
			Name:      "duplicates_suppressed_total",
			Help:      "Notifications dropped because the transition was already delivered.",
		}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "custody",
			Subsystem: "notify",
			Name:      "delivery_seconds",
			Help:      "Time spent delivering a notification, retries included.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
	}
}

func (m *metrics) register(r prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.deliveries, m.suppressed, m.latency} {
		if err := r.Register(c); err != nil {
			return err
		}
	}
	return nil
}
